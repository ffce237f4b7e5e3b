package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/points-ledger/internal/models"
)

// ErrDuplicateSignIn is returned when inserting a daily sign-in row that
// already exists for the same (user, date). The unique constraint is the
// authoritative signal for "already signed in today"; callers map this to
// their AlreadySignedToday outcome rather than treating it as a failure.
var ErrDuplicateSignIn = errors.New("daily sign-in already recorded")

// uniqueViolation is the Postgres SQLSTATE for unique constraint violations
const uniqueViolation = "23505"

// SignInRepository handles the one-row-per-(user, calendar date) sign-in records
type SignInRepository struct {
	db *PostgresDB
}

// NewSignInRepository creates a new sign-in repository
func NewSignInRepository(db *PostgresDB) *SignInRepository {
	return &SignInRepository{db: db}
}

// InsertWithTx inserts the sign-in row for (userID, date) within the caller's
// transaction. Returns ErrDuplicateSignIn when the row already exists; two
// concurrent attempts race to insert and the loser observes this error.
func (r *SignInRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, userID int64, date time.Time, pointsAwarded int) error {
	query := `
		INSERT INTO daily_sign_ins (user_id, sign_date, points_awarded, created_at)
		VALUES ($1, $2, $3, NOW())
	`

	_, err := tx.Exec(ctx, query, userID, date, pointsAwarded)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateSignIn
		}
		return fmt.Errorf("failed to insert daily sign-in: %w", err)
	}

	return nil
}

// GetOn retrieves the sign-in row for (userID, date). Returns (nil, nil) when
// the user has not signed in on that date.
func (r *SignInRepository) GetOn(ctx context.Context, userID int64, date time.Time) (*models.DailySignIn, error) {
	query := `
		SELECT id, user_id, sign_date, points_awarded, created_at
		FROM daily_sign_ins
		WHERE user_id = $1 AND sign_date = $2
	`

	var signIn models.DailySignIn
	err := r.db.Pool().QueryRow(ctx, query, userID, date).Scan(
		&signIn.ID,
		&signIn.UserID,
		&signIn.SignDate,
		&signIn.PointsAwarded,
		&signIn.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get daily sign-in: %w", err)
	}

	return &signIn, nil
}

// GetOnWithTx is GetOn inside the caller's transaction
func (r *SignInRepository) GetOnWithTx(ctx context.Context, tx pgx.Tx, userID int64, date time.Time) (*models.DailySignIn, error) {
	query := `
		SELECT id, user_id, sign_date, points_awarded, created_at
		FROM daily_sign_ins
		WHERE user_id = $1 AND sign_date = $2
	`

	var signIn models.DailySignIn
	err := tx.QueryRow(ctx, query, userID, date).Scan(
		&signIn.ID,
		&signIn.UserID,
		&signIn.SignDate,
		&signIn.PointsAwarded,
		&signIn.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get daily sign-in: %w", err)
	}

	return &signIn, nil
}

// ExistsOnWithTx checks for a sign-in row on the given date within the
// caller's transaction
func (r *SignInRepository) ExistsOnWithTx(ctx context.Context, tx pgx.Tx, userID int64, date time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM daily_sign_ins WHERE user_id = $1 AND sign_date = $2)`

	err := tx.QueryRow(ctx, query, userID, date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check daily sign-in: %w", err)
	}

	return exists, nil
}

// ExistsOn checks for a sign-in row on the given date
func (r *SignInRepository) ExistsOn(ctx context.Context, userID int64, date time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM daily_sign_ins WHERE user_id = $1 AND sign_date = $2)`

	err := r.db.Pool().QueryRow(ctx, query, userID, date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check daily sign-in: %w", err)
	}

	return exists, nil
}

// ListRange retrieves the user's sign-in rows with from <= sign_date <= to,
// most recent first
func (r *SignInRepository) ListRange(ctx context.Context, userID int64, from, to time.Time) ([]*models.DailySignIn, error) {
	query := `
		SELECT id, user_id, sign_date, points_awarded, created_at
		FROM daily_sign_ins
		WHERE user_id = $1 AND sign_date >= $2 AND sign_date <= $3
		ORDER BY sign_date DESC
	`

	rows, err := r.db.Pool().Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily sign-ins: %w", err)
	}
	defer rows.Close()

	var signIns []*models.DailySignIn
	for rows.Next() {
		var signIn models.DailySignIn
		err := rows.Scan(
			&signIn.ID,
			&signIn.UserID,
			&signIn.SignDate,
			&signIn.PointsAwarded,
			&signIn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily sign-in: %w", err)
		}
		signIns = append(signIns, &signIn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily sign-ins: %w", err)
	}

	return signIns, nil
}

// CountOn returns the number of sign-ins recorded on the given date
func (r *SignInRepository) CountOn(ctx context.Context, date time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM daily_sign_ins WHERE sign_date = $1`

	err := r.db.Pool().QueryRow(ctx, query, date).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count daily sign-ins: %w", err)
	}

	return count, nil
}

// CountByUser returns the number of sign-in rows for the user. By the summary
// invariant this always equals the summary's sign_in_count.
func (r *SignInRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM daily_sign_ins WHERE user_id = $1`

	err := r.db.Pool().QueryRow(ctx, query, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count daily sign-ins: %w", err)
	}

	return count, nil
}
