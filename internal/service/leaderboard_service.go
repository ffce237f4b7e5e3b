package service

import (
	"context"
	"errors"

	apperrors "github.com/points-ledger/internal/errors"
	"github.com/points-ledger/internal/logging"
	"github.com/points-ledger/internal/models"
)

const (
	// DefaultLeaderboardLimit is used when the caller passes no limit
	DefaultLeaderboardLimit = 10
	// MaxLeaderboardLimit caps a single leaderboard window
	MaxLeaderboardLimit = 100
)

// LeaderboardService serves the ranked top-N view over user summaries,
// fronted by a short-TTL cache that mutations invalidate.
type LeaderboardService struct {
	summaries SummaryStore
	cache     LeaderboardCache
}

// NewLeaderboardService creates a new leaderboard service. cache may be nil.
func NewLeaderboardService(summaries SummaryStore, cache LeaderboardCache) *LeaderboardService {
	return &LeaderboardService{
		summaries: summaries,
		cache:     cache,
	}
}

// ListTop returns the top entries ordered by total points descending, streak
// descending, then user ID ascending. The ordering is total: equal inputs
// always produce the same board.
func (l *LeaderboardService) ListTop(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	if limit < 0 {
		return nil, apperrors.NewValidationError("limit", "must be positive")
	}
	if limit == 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	logger := logging.FromContext(ctx)

	if l.cache != nil {
		var cached []*models.LeaderboardEntry
		key := l.cache.LeaderboardKey(limit)
		found, err := l.cache.Get(ctx, key, &cached)
		if err != nil {
			logger.WithError(err).Warn("Leaderboard cache read failed")
		} else if found {
			return cached, nil
		}
	}

	entries, err := l.summaries.TopN(ctx, limit)
	if err != nil {
		var catErr *apperrors.CategorizedError
		if errors.As(err, &catErr) {
			return nil, catErr
		}
		return nil, apperrors.NewPersistenceError("list_leaderboard", err)
	}
	if entries == nil {
		entries = []*models.LeaderboardEntry{}
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, l.cache.LeaderboardKey(limit), entries); err != nil {
			logger.WithError(err).Warn("Leaderboard cache write failed")
		}
	}

	return entries, nil
}
