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
	"github.com/points-ledger/internal/storage"
	"github.com/points-ledger/internal/types"
)

// SignInService implements the idempotent daily sign-in. A sign-in is one
// all-or-nothing transaction: the daily row insert, the ledger append, the
// summary upsert, and the user upsert commit together or not at all.
type SignInService struct {
	tx        TxRunner
	users     UserStore
	signIns   SignInStore
	ledger    LedgerStore
	summaries SummaryStore
	cache     LeaderboardCache
	location  *time.Location
}

// NewSignInService creates a new sign-in service. cache may be nil when no
// leaderboard cache is configured.
func NewSignInService(
	tx TxRunner,
	users UserStore,
	signIns SignInStore,
	ledger LedgerStore,
	summaries SummaryStore,
	cache LeaderboardCache,
	location *time.Location,
) *SignInService {
	if location == nil {
		location = time.UTC
	}
	return &SignInService{
		tx:        tx,
		users:     users,
		signIns:   signIns,
		ledger:    ledger,
		summaries: summaries,
		cache:     cache,
		location:  location,
	}
}

// SignInInput represents input for a sign-in attempt. At defaults to the
// current time; Username and FirstName refresh the user's profile when set.
type SignInInput struct {
	UserID    int64  `json:"userId"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	At        time.Time
}

// SignInResult represents the outcome of a sign-in attempt. Exactly one of
// the two shapes is populated: a fresh award (PointsAwarded, NewStreak) or a
// repeat attempt (AlreadySignedToday with PreviousPoints, SignedAt).
type SignInResult struct {
	AlreadySignedToday bool       `json:"alreadySignedToday"`
	PointsAwarded      int        `json:"pointsAwarded,omitempty"`
	NewStreak          int        `json:"newStreak,omitempty"`
	PreviousPoints     int        `json:"previousPoints,omitempty"`
	SignedAt           *time.Time `json:"signedAt,omitempty"`
}

// AttemptSignIn performs the once-per-calendar-day sign-in for the user.
// Repeating the call on the same civil date returns AlreadySignedToday with
// the prior award and changes nothing. Two concurrent attempts race on the
// daily row's unique constraint; exactly one wins and the loser also sees
// AlreadySignedToday.
func (s *SignInService) AttemptSignIn(ctx context.Context, input *SignInInput) (*SignInResult, error) {
	if input == nil || input.UserID <= 0 {
		return nil, apperrors.NewValidationError("userId", "must be a positive identifier")
	}

	at := input.At
	if at.IsZero() {
		at = time.Now()
	}
	today := civilDate(at, s.location)
	yesterday := today.AddDate(0, 0, -1)

	var result *SignInResult
	err := s.tx.WithinTx(ctx, func(tx pgx.Tx) error {
		user := &models.User{
			ID:        input.UserID,
			Username:  input.Username,
			FirstName: input.FirstName,
		}
		if err := s.users.UpsertWithTx(ctx, tx, user); err != nil {
			return err
		}

		// The read is only for previousPoints/signedAt in the response;
		// the unique constraint below stays the correctness authority.
		existing, err := s.signIns.GetOnWithTx(ctx, tx, input.UserID, today)
		if err != nil {
			return err
		}
		if existing != nil {
			result = alreadySigned(existing)
			return nil
		}

		signedYesterday, err := s.signIns.ExistsOnWithTx(ctx, tx, input.UserID, yesterday)
		if err != nil {
			return err
		}

		previousStreak, err := s.summaries.CurrentStreakWithTx(ctx, tx, input.UserID)
		if err != nil {
			return err
		}

		streak := nextStreak(previousStreak, signedYesterday)
		award := signInAward(streak)

		if err := s.signIns.InsertWithTx(ctx, tx, input.UserID, today, award); err != nil {
			return err
		}

		entry := &models.LedgerEntry{
			UserID:       input.UserID,
			PointsChange: int64(award),
			Reason:       signInReason(streak),
			Description:  signInDescription(streak),
		}
		if err := s.ledger.AppendWithTx(ctx, tx, entry); err != nil {
			return err
		}

		if err := s.summaries.ApplySignInWithTx(ctx, tx, input.UserID, award, streak); err != nil {
			return err
		}

		result = &SignInResult{
			PointsAwarded: award,
			NewStreak:     streak,
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, storage.ErrDuplicateSignIn) {
			// Lost the insert race: the row now exists, read it back for
			// the response.
			existing, getErr := s.signIns.GetOn(ctx, input.UserID, today)
			if getErr == nil && existing != nil {
				return alreadySigned(existing), nil
			}
			return nil, apperrors.NewPersistenceError("sign_in", err)
		}
		var catErr *apperrors.CategorizedError
		if errors.As(err, &catErr) {
			return nil, catErr
		}
		return nil, apperrors.NewPersistenceError("sign_in", err)
	}

	if !result.AlreadySignedToday {
		s.invalidateLeaderboard(ctx)
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"userId": input.UserID,
			"points": result.PointsAwarded,
			"streak": result.NewStreak,
		}).Info("Sign-in recorded")
	}

	return result, nil
}

// invalidateLeaderboard drops cached leaderboard windows after a mutation.
// Cache failures are logged, never surfaced: the store already committed.
func (s *SignInService) invalidateLeaderboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateLeaderboard(ctx); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to invalidate leaderboard cache")
	}
}

func alreadySigned(existing *models.DailySignIn) *SignInResult {
	signedAt := existing.CreatedAt
	return &SignInResult{
		AlreadySignedToday: true,
		PreviousPoints:     existing.PointsAwarded,
		SignedAt:           &signedAt,
	}
}

func signInReason(streak int) types.ReasonCode {
	if streakBonus(streak) > 0 {
		return types.SignInStreakReason(streak)
	}
	return types.ReasonSignIn
}

func signInDescription(streak int) string {
	bonus := streakBonus(streak)
	if bonus > 0 {
		return fmt.Sprintf("Daily sign-in (streak %d bonus +%d)", streak, bonus)
	}
	return "Daily sign-in"
}
