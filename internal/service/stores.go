// Package service implements the points ledger core: the sign-in engine,
// read-side summary queries, the leaderboard, and administrative adjustments.
package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/points-ledger/internal/models"
)

// Store interfaces for dependency injection

// TxRunner runs a function inside a single all-or-nothing transaction
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// UserStore provides user identity operations
type UserStore interface {
	UpsertWithTx(ctx context.Context, tx pgx.Tx, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Count(ctx context.Context) (int64, error)
	ActiveSince(ctx context.Context, since time.Time) (int64, error)
}

// SignInStore provides daily sign-in record operations
type SignInStore interface {
	InsertWithTx(ctx context.Context, tx pgx.Tx, userID int64, date time.Time, pointsAwarded int) error
	GetOn(ctx context.Context, userID int64, date time.Time) (*models.DailySignIn, error)
	GetOnWithTx(ctx context.Context, tx pgx.Tx, userID int64, date time.Time) (*models.DailySignIn, error)
	ExistsOn(ctx context.Context, userID int64, date time.Time) (bool, error)
	ExistsOnWithTx(ctx context.Context, tx pgx.Tx, userID int64, date time.Time) (bool, error)
	ListRange(ctx context.Context, userID int64, from, to time.Time) ([]*models.DailySignIn, error)
	CountOn(ctx context.Context, date time.Time) (int64, error)
}

// LedgerStore provides append-only point history operations
type LedgerStore interface {
	AppendWithTx(ctx context.Context, tx pgx.Tx, entry *models.LedgerEntry) error
	RecentByUser(ctx context.Context, userID int64, limit int) ([]*models.LedgerEntry, error)
	Count(ctx context.Context) (int64, error)
	SumAll(ctx context.Context) (int64, error)
}

// SummaryStore provides denormalized summary operations
type SummaryStore interface {
	Get(ctx context.Context, userID int64) (*models.PointsSummary, error)
	CurrentStreakWithTx(ctx context.Context, tx pgx.Tx, userID int64) (int, error)
	TotalForUpdateWithTx(ctx context.Context, tx pgx.Tx, userID int64) (int64, error)
	ApplySignInWithTx(ctx context.Context, tx pgx.Tx, userID int64, pointsAwarded int, newStreak int) error
	ApplyDeltaWithTx(ctx context.Context, tx pgx.Tx, userID int64, delta int64) error
	Rank(ctx context.Context, userID int64) (int, error)
	TopN(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
}

// LeaderboardCache caches leaderboard windows between mutations
type LeaderboardCache interface {
	LeaderboardKey(limit int) string
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	InvalidateLeaderboard(ctx context.Context) error
}
