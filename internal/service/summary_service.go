package service

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/points-ledger/internal/errors"
	"github.com/points-ledger/internal/logging"
	"github.com/points-ledger/internal/models"
	"github.com/points-ledger/internal/types"
)

const (
	// recentSignInWindowDays is the trailing calendar window shown in a
	// summary, inclusive of today
	recentSignInWindowDays = 7
	// recentTransactionLimit is how many ledger entries a summary carries
	recentTransactionLimit = 5
)

// SummaryService composes the read-side per-user view from ledger store
// state. It never mutates anything.
type SummaryService struct {
	users     UserStore
	signIns   SignInStore
	ledger    LedgerStore
	summaries SummaryStore
	location  *time.Location
}

// NewSummaryService creates a new summary service
func NewSummaryService(
	users UserStore,
	signIns SignInStore,
	ledger LedgerStore,
	summaries SummaryStore,
	location *time.Location,
) *SummaryService {
	if location == nil {
		location = time.UTC
	}
	return &SummaryService{
		users:     users,
		signIns:   signIns,
		ledger:    ledger,
		summaries: summaries,
		location:  location,
	}
}

// Summary is the per-user points view
type Summary struct {
	UserID             int64                 `json:"userId"`
	Username           string                `json:"username,omitempty"`
	FirstName          string                `json:"firstName,omitempty"`
	TotalPoints        int64                 `json:"totalPoints"`
	SignInCount        int                   `json:"signInCount"`
	CurrentStreak      int                   `json:"currentStreak"`
	MaxStreak          int                   `json:"maxStreak"`
	LastSignIn         *time.Time            `json:"lastSignIn,omitempty"`
	SignedInToday      bool                  `json:"signedInToday"`
	Rank               int                   `json:"rank"`
	RecentSignIns      []models.TaggedSignIn `json:"recentSignIns"`
	RecentTransactions []*models.LedgerEntry `json:"recentTransactions"`
}

// GetSummary returns the user's points summary. A user with no history is a
// valid zero state, not an error: the result carries all-zero counters.
func (s *SummaryService) GetSummary(ctx context.Context, userID int64) (*Summary, error) {
	if userID <= 0 {
		return nil, apperrors.NewValidationError("userId", "must be a positive identifier")
	}

	today := civilDate(time.Now(), s.location)

	stored, err := s.summaries.Get(ctx, userID)
	if err != nil {
		return nil, s.persistence("get_summary", err)
	}

	summary := &Summary{
		UserID:             userID,
		RecentSignIns:      []models.TaggedSignIn{},
		RecentTransactions: []*models.LedgerEntry{},
	}

	// Profile fields are decoration on the summary, so a user store failure
	// degrades to an unnamed result rather than failing the read
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to load user profile for summary")
	} else if user != nil {
		summary.Username = user.Username
		summary.FirstName = user.FirstName
	}

	if stored == nil {
		// No history yet. Rank still computes: 1 + count of users with a
		// total strictly above zero.
		rank, err := s.summaries.Rank(ctx, userID)
		if err != nil {
			return nil, s.persistence("get_summary", err)
		}
		summary.Rank = rank
		return summary, nil
	}

	summary.TotalPoints = stored.TotalPoints
	summary.SignInCount = stored.SignInCount
	summary.CurrentStreak = stored.CurrentStreak
	summary.MaxStreak = stored.MaxStreak
	summary.LastSignIn = stored.LastSignIn

	signedToday, err := s.signIns.ExistsOn(ctx, userID, today)
	if err != nil {
		return nil, s.persistence("get_summary", err)
	}
	summary.SignedInToday = signedToday

	rank, err := s.summaries.Rank(ctx, userID)
	if err != nil {
		return nil, s.persistence("get_summary", err)
	}
	summary.Rank = rank

	from := today.AddDate(0, 0, -(recentSignInWindowDays - 1))
	recent, err := s.signIns.ListRange(ctx, userID, from, today)
	if err != nil {
		return nil, s.persistence("get_summary", err)
	}
	for _, signIn := range recent {
		summary.RecentSignIns = append(summary.RecentSignIns, models.TaggedSignIn{
			SignDate:      signIn.SignDate,
			PointsAwarded: signIn.PointsAwarded,
			Tag:           tagForDate(signIn.SignDate, today),
		})
	}

	transactions, err := s.ledger.RecentByUser(ctx, userID, recentTransactionLimit)
	if err != nil {
		return nil, s.persistence("get_summary", err)
	}
	if transactions != nil {
		summary.RecentTransactions = transactions
	}

	return summary, nil
}

// Stats aggregates service-wide totals
type Stats struct {
	TotalUsers         int64 `json:"totalUsers"`
	ActiveUsers        int64 `json:"activeUsers"`
	TotalLedgerEntries int64 `json:"totalLedgerEntries"`
	TotalPoints        int64 `json:"totalPoints"`
	SignInsToday       int64 `json:"signInsToday"`
}

// GetStats returns service-wide totals. ActiveUsers covers the same trailing
// window as a summary's recent sign-ins.
func (s *SummaryService) GetStats(ctx context.Context) (*Stats, error) {
	today := civilDate(time.Now(), s.location)

	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, s.persistence("get_stats", err)
	}

	activeUsers, err := s.users.ActiveSince(ctx, today.AddDate(0, 0, -(recentSignInWindowDays-1)))
	if err != nil {
		return nil, s.persistence("get_stats", err)
	}

	totalEntries, err := s.ledger.Count(ctx)
	if err != nil {
		return nil, s.persistence("get_stats", err)
	}

	totalPoints, err := s.ledger.SumAll(ctx)
	if err != nil {
		return nil, s.persistence("get_stats", err)
	}

	signInsToday, err := s.signIns.CountOn(ctx, today)
	if err != nil {
		return nil, s.persistence("get_stats", err)
	}

	return &Stats{
		TotalUsers:         totalUsers,
		ActiveUsers:        activeUsers,
		TotalLedgerEntries: totalEntries,
		TotalPoints:        totalPoints,
		SignInsToday:       signInsToday,
	}, nil
}

func (s *SummaryService) persistence(operation string, err error) error {
	var catErr *apperrors.CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}
	return apperrors.NewPersistenceError(operation, err)
}

// tagForDate labels a sign-in date relative to today: "today", "yesterday",
// or the date as MM-DD
func tagForDate(date, today time.Time) types.DayTag {
	switch {
	case date.Equal(today):
		return types.TagToday
	case date.Equal(today.AddDate(0, 0, -1)):
		return types.TagYesterday
	default:
		return types.DayTag(date.Format("01-02"))
	}
}
