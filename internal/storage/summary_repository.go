package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/points-ledger/internal/models"
)

// SummaryRepository maintains the denormalized per-user points aggregate.
// All writes are atomic arithmetic upserts: the increment happens in the
// store, never as a read-modify-write of the whole row, so a concurrent
// sign-in and adjustment for the same user cannot lose updates.
type SummaryRepository struct {
	db *PostgresDB
}

// NewSummaryRepository creates a new summary repository
func NewSummaryRepository(db *PostgresDB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// Get retrieves a user's summary. Returns (nil, nil) when the user has no
// summary yet; callers present that as a zero-valued summary.
func (r *SummaryRepository) Get(ctx context.Context, userID int64) (*models.PointsSummary, error) {
	query := `
		SELECT user_id, total_points, sign_in_count, last_sign_in, current_streak, max_streak, updated_at
		FROM user_points
		WHERE user_id = $1
	`

	var summary models.PointsSummary
	err := r.db.Pool().QueryRow(ctx, query, userID).Scan(
		&summary.UserID,
		&summary.TotalPoints,
		&summary.SignInCount,
		&summary.LastSignIn,
		&summary.CurrentStreak,
		&summary.MaxStreak,
		&summary.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get points summary: %w", err)
	}

	return &summary, nil
}

// CurrentStreakWithTx reads the user's current streak within the caller's
// transaction, 0 if the user has no summary yet
func (r *SummaryRepository) CurrentStreakWithTx(ctx context.Context, tx pgx.Tx, userID int64) (int, error) {
	var streak int
	query := `SELECT current_streak FROM user_points WHERE user_id = $1`

	err := tx.QueryRow(ctx, query, userID).Scan(&streak)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get current streak: %w", err)
	}

	return streak, nil
}

// TotalForUpdateWithTx reads the user's total with a row lock so an absolute
// set computes its delta against a total no concurrent writer can move,
// 0 if the user has no summary yet
func (r *SummaryRepository) TotalForUpdateWithTx(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	var total int64
	query := `SELECT total_points FROM user_points WHERE user_id = $1 FOR UPDATE`

	err := tx.QueryRow(ctx, query, userID).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get total points: %w", err)
	}

	return total, nil
}

// ApplySignInWithTx folds one sign-in into the summary within the caller's
// transaction: increments total and count, stamps the sign-in time, replaces
// the streak, and raises max_streak when passed.
func (r *SummaryRepository) ApplySignInWithTx(ctx context.Context, tx pgx.Tx, userID int64, pointsAwarded int, newStreak int) error {
	query := `
		INSERT INTO user_points (user_id, total_points, sign_in_count, last_sign_in, current_streak, max_streak, updated_at)
		VALUES ($1, $2, 1, NOW(), $3, $3, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET
			total_points = user_points.total_points + EXCLUDED.total_points,
			sign_in_count = user_points.sign_in_count + 1,
			last_sign_in = NOW(),
			current_streak = EXCLUDED.current_streak,
			max_streak = GREATEST(user_points.max_streak, EXCLUDED.current_streak),
			updated_at = NOW()
	`

	_, err := tx.Exec(ctx, query, userID, pointsAwarded, newStreak)
	if err != nil {
		return fmt.Errorf("failed to apply sign-in to summary: %w", err)
	}

	return nil
}

// ApplyDeltaWithTx adds delta to the user's total within the caller's
// transaction, creating the summary row with other fields zeroed when absent.
// Negative resulting totals are allowed; no floor is enforced.
func (r *SummaryRepository) ApplyDeltaWithTx(ctx context.Context, tx pgx.Tx, userID int64, delta int64) error {
	query := `
		INSERT INTO user_points (user_id, total_points, sign_in_count, current_streak, max_streak, updated_at)
		VALUES ($1, $2, 0, 0, 0, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET
			total_points = user_points.total_points + EXCLUDED.total_points,
			updated_at = NOW()
	`

	_, err := tx.Exec(ctx, query, userID, delta)
	if err != nil {
		return fmt.Errorf("failed to apply delta to summary: %w", err)
	}

	return nil
}

// Rank computes the user's 1-based rank: one more than the number of users
// with a strictly greater total. Equal totals yield equal ranks by
// construction.
func (r *SummaryRepository) Rank(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COUNT(*) + 1
		FROM user_points
		WHERE total_points > COALESCE(
			(SELECT total_points FROM user_points WHERE user_id = $1), 0)
	`

	var rank int
	err := r.db.Pool().QueryRow(ctx, query, userID).Scan(&rank)
	if err != nil {
		return 0, fmt.Errorf("failed to compute rank: %w", err)
	}

	return rank, nil
}

// TopN retrieves the leaderboard: total points descending, streak descending,
// then user ID ascending as the deterministic final tiebreak.
func (r *SummaryRepository) TopN(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	query := `
		SELECT
			up.user_id,
			COALESCE(u.username, ''),
			COALESCE(u.first_name, ''),
			up.total_points,
			up.sign_in_count,
			up.current_streak,
			up.last_sign_in
		FROM user_points up
		JOIN users u ON up.user_id = u.id
		ORDER BY up.total_points DESC, up.current_streak DESC, up.user_id ASC
		LIMIT $1
	`

	rows, err := r.db.Pool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*models.LeaderboardEntry
	for rows.Next() {
		var entry models.LeaderboardEntry
		err := rows.Scan(
			&entry.UserID,
			&entry.Username,
			&entry.FirstName,
			&entry.TotalPoints,
			&entry.SignInCount,
			&entry.CurrentStreak,
			&entry.LastSignIn,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entry.Rank = len(entries) + 1
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	return entries, nil
}

// LastSignInWithTx reads the user's last sign-in timestamp within the
// caller's transaction, nil when never signed in
func (r *SummaryRepository) LastSignInWithTx(ctx context.Context, tx pgx.Tx, userID int64) (*time.Time, error) {
	var last *time.Time
	query := `SELECT last_sign_in FROM user_points WHERE user_id = $1`

	err := tx.QueryRow(ctx, query, userID).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last sign-in: %w", err)
	}

	return last, nil
}
