package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/points-ledger/internal/models"
)

// LedgerRepository handles the append-only points history. Entries are only
// ever inserted; there is no update or delete path.
type LedgerRepository struct {
	db *PostgresDB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *PostgresDB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// AppendWithTx appends one ledger entry within the caller's transaction.
// The entry ID and timestamp are assigned here; PointsChange must be nonzero
// (the schema check constraint enforces it).
func (r *LedgerRepository) AppendWithTx(ctx context.Context, tx pgx.Tx, entry *models.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO points_history (id, user_id, points_change, reason, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := tx.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.PointsChange,
		entry.Reason,
		entry.Description,
		entry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// RecentByUser retrieves the user's most recent ledger entries, newest first
func (r *LedgerRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]*models.LedgerEntry, error) {
	query := `
		SELECT id, user_id, points_change, reason, COALESCE(description, ''), created_at
		FROM points_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool().Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.PointsChange,
			&entry.Reason,
			&entry.Description,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}

// SumByUser returns the sum of the user's point changes. By the ledger
// consistency invariant this always equals the user's summary total.
func (r *LedgerRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(SUM(points_change), 0) FROM points_history WHERE user_id = $1`

	err := r.db.Pool().QueryRow(ctx, query, userID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger entries: %w", err)
	}

	return sum, nil
}

// Count returns the total number of ledger entries
func (r *LedgerRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM points_history`

	err := r.db.Pool().QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

// SumAll returns the sum of all point changes across users
func (r *LedgerRepository) SumAll(ctx context.Context) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(SUM(points_change), 0) FROM points_history`

	err := r.db.Pool().QueryRow(ctx, query).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger entries: %w", err)
	}

	return sum, nil
}
