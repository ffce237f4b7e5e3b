package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	apperrors "github.com/points-ledger/internal/errors"
	"github.com/points-ledger/internal/logging"
	"github.com/points-ledger/internal/models"
	"github.com/points-ledger/internal/types"
)

// AdjustmentService implements administrative credits, debits, and absolute
// sets. It reuses the same atomic-upsert primitive as the sign-in engine, so
// an adjustment racing a sign-in for the same user never loses an update.
// Callers must already be authorized; no authorization happens here.
type AdjustmentService struct {
	tx        TxRunner
	users     UserStore
	ledger    LedgerStore
	summaries SummaryStore
	cache     LeaderboardCache
}

// NewAdjustmentService creates a new adjustment service. cache may be nil.
func NewAdjustmentService(
	tx TxRunner,
	users UserStore,
	ledger LedgerStore,
	summaries SummaryStore,
	cache LeaderboardCache,
) *AdjustmentService {
	return &AdjustmentService{
		tx:        tx,
		users:     users,
		ledger:    ledger,
		summaries: summaries,
		cache:     cache,
	}
}

// AddPointsInput represents input for an administrative point adjustment
type AddPointsInput struct {
	UserID      int64  `json:"userId"`
	Delta       int64  `json:"delta"`
	Reason      string `json:"reason,omitempty"`
	Description string `json:"description,omitempty"`
}

// AddPoints appends a ledger entry for delta and atomically folds it into the
// user's total. Delta may be negative; the resulting total has no floor.
func (a *AdjustmentService) AddPoints(ctx context.Context, input *AddPointsInput) (*models.PointsSummary, error) {
	if input == nil || input.UserID <= 0 {
		return nil, apperrors.NewValidationError("userId", "must be a positive identifier")
	}
	if input.Delta == 0 {
		return nil, apperrors.NewValidationError("delta", "must be nonzero")
	}

	reason := types.ReasonCode(input.Reason)
	if reason == "" {
		if input.Delta > 0 {
			reason = types.ReasonAdminAdd
		} else {
			reason = types.ReasonAdminDeduct
		}
	}

	err := a.tx.WithinTx(ctx, func(tx pgx.Tx) error {
		if err := a.users.UpsertWithTx(ctx, tx, &models.User{ID: input.UserID}); err != nil {
			return err
		}

		entry := &models.LedgerEntry{
			UserID:       input.UserID,
			PointsChange: input.Delta,
			Reason:       reason,
			Description:  input.Description,
		}
		if err := a.ledger.AppendWithTx(ctx, tx, entry); err != nil {
			return err
		}

		return a.summaries.ApplyDeltaWithTx(ctx, tx, input.UserID, input.Delta)
	})
	if err != nil {
		return nil, a.persistence("add_points", err)
	}

	a.invalidateLeaderboard(ctx)
	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"userId": input.UserID,
		"delta":  input.Delta,
		"reason": string(reason),
	}).Info("Points adjusted")

	return a.freshSummary(ctx, input.UserID)
}

// SetPoints sets the user's total to an absolute value by appending the true
// delta to the ledger, keeping the append-only invariant: the ledger records
// what changed, never the absolute. Setting to the current total is a no-op.
func (a *AdjustmentService) SetPoints(ctx context.Context, userID int64, absolute int64) (*models.PointsSummary, error) {
	if userID <= 0 {
		return nil, apperrors.NewValidationError("userId", "must be a positive identifier")
	}

	var changed bool
	err := a.tx.WithinTx(ctx, func(tx pgx.Tx) error {
		if err := a.users.UpsertWithTx(ctx, tx, &models.User{ID: userID}); err != nil {
			return err
		}

		// Row lock so the delta is computed against a total no concurrent
		// writer can move before we commit.
		current, err := a.summaries.TotalForUpdateWithTx(ctx, tx, userID)
		if err != nil {
			return err
		}

		delta := absolute - current
		if delta == 0 {
			return nil
		}
		changed = true

		entry := &models.LedgerEntry{
			UserID:       userID,
			PointsChange: delta,
			Reason:       types.ReasonAdminSet,
			Description:  fmt.Sprintf("Total set to %d (change %+d)", absolute, delta),
		}
		if err := a.ledger.AppendWithTx(ctx, tx, entry); err != nil {
			return err
		}

		return a.summaries.ApplyDeltaWithTx(ctx, tx, userID, delta)
	})
	if err != nil {
		return nil, a.persistence("set_points", err)
	}

	if changed {
		a.invalidateLeaderboard(ctx)
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"userId": userID,
			"total":  absolute,
		}).Info("Points set")
	}

	return a.freshSummary(ctx, userID)
}

// freshSummary reads back the committed summary for the response
func (a *AdjustmentService) freshSummary(ctx context.Context, userID int64) (*models.PointsSummary, error) {
	summary, err := a.summaries.Get(ctx, userID)
	if err != nil {
		return nil, a.persistence("get_summary", err)
	}
	if summary == nil {
		// SetPoints to the current value of an absent summary writes nothing.
		summary = &models.PointsSummary{UserID: userID, UpdatedAt: time.Now()}
	}
	return summary, nil
}

func (a *AdjustmentService) invalidateLeaderboard(ctx context.Context) {
	if a.cache == nil {
		return
	}
	if err := a.cache.InvalidateLeaderboard(ctx); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to invalidate leaderboard cache")
	}
}

func (a *AdjustmentService) persistence(operation string, err error) error {
	var catErr *apperrors.CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}
	return apperrors.NewPersistenceError(operation, err)
}
