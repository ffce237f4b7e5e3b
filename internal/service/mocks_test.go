package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/points-ledger/internal/models"
	"github.com/points-ledger/internal/storage"
)

// In-memory mock stores for testing. The tx runner passes a nil pgx.Tx
// through; the mocks ignore it.

type mockTxRunner struct {
	beginErr error
}

func (m *mockTxRunner) WithinTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if m.beginErr != nil {
		return m.beginErr
	}
	return fn(nil)
}

type mockUserStore struct {
	users  map[int64]*models.User
	getErr error
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[int64]*models.User)}
}

func (m *mockUserStore) UpsertWithTx(ctx context.Context, tx pgx.Tx, user *models.User) error {
	existing, ok := m.users[user.ID]
	if !ok {
		copied := *user
		copied.CreatedAt = time.Now()
		copied.LastActive = copied.CreatedAt
		m.users[user.ID] = &copied
		return nil
	}
	if user.Username != "" {
		existing.Username = user.Username
	}
	if user.FirstName != "" {
		existing.FirstName = user.FirstName
	}
	existing.LastActive = time.Now()
	return nil
}

func (m *mockUserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.users[id], nil
}

func (m *mockUserStore) Count(ctx context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

func (m *mockUserStore) ActiveSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	for _, user := range m.users {
		if !user.LastActive.Before(since) {
			count++
		}
	}
	return count, nil
}

func dateKey(userID int64, date time.Time) string {
	return fmt.Sprintf("%d:%s", userID, date.Format("2006-01-02"))
}

type mockSignInStore struct {
	rows map[string]*models.DailySignIn
	// hidden rows are invisible to reads until an insert collides with
	// them, simulating a concurrent writer that commits first
	hidden map[string]*models.DailySignIn
}

func newMockSignInStore() *mockSignInStore {
	return &mockSignInStore{
		rows:   make(map[string]*models.DailySignIn),
		hidden: make(map[string]*models.DailySignIn),
	}
}

func (m *mockSignInStore) seedHidden(userID int64, date time.Time, points int) {
	m.hidden[dateKey(userID, date)] = &models.DailySignIn{
		UserID:        userID,
		SignDate:      date,
		PointsAwarded: points,
		CreatedAt:     date.Add(9 * time.Hour),
	}
}

func (m *mockSignInStore) InsertWithTx(ctx context.Context, tx pgx.Tx, userID int64, date time.Time, pointsAwarded int) error {
	key := dateKey(userID, date)
	if row, concurrent := m.hidden[key]; concurrent {
		m.rows[key] = row
		delete(m.hidden, key)
		return storage.ErrDuplicateSignIn
	}
	if _, exists := m.rows[key]; exists {
		return storage.ErrDuplicateSignIn
	}
	m.rows[key] = &models.DailySignIn{
		UserID:        userID,
		SignDate:      date,
		PointsAwarded: pointsAwarded,
		CreatedAt:     time.Now(),
	}
	return nil
}

func (m *mockSignInStore) GetOn(ctx context.Context, userID int64, date time.Time) (*models.DailySignIn, error) {
	return m.rows[dateKey(userID, date)], nil
}

func (m *mockSignInStore) GetOnWithTx(ctx context.Context, tx pgx.Tx, userID int64, date time.Time) (*models.DailySignIn, error) {
	return m.GetOn(ctx, userID, date)
}

func (m *mockSignInStore) ExistsOn(ctx context.Context, userID int64, date time.Time) (bool, error) {
	_, ok := m.rows[dateKey(userID, date)]
	return ok, nil
}

func (m *mockSignInStore) ExistsOnWithTx(ctx context.Context, tx pgx.Tx, userID int64, date time.Time) (bool, error) {
	return m.ExistsOn(ctx, userID, date)
}

func (m *mockSignInStore) ListRange(ctx context.Context, userID int64, from, to time.Time) ([]*models.DailySignIn, error) {
	var result []*models.DailySignIn
	for _, row := range m.rows {
		if row.UserID == userID && !row.SignDate.Before(from) && !row.SignDate.After(to) {
			result = append(result, row)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SignDate.After(result[j].SignDate)
	})
	return result, nil
}

func (m *mockSignInStore) CountOn(ctx context.Context, date time.Time) (int64, error) {
	var count int64
	for _, row := range m.rows {
		if row.SignDate.Equal(date) {
			count++
		}
	}
	return count, nil
}

type mockLedgerStore struct {
	entries []*models.LedgerEntry
}

func (m *mockLedgerStore) AppendWithTx(ctx context.Context, tx pgx.Tx, entry *models.LedgerEntry) error {
	copied := *entry
	copied.ID = fmt.Sprintf("entry-%d", len(m.entries)+1)
	copied.CreatedAt = time.Now()
	m.entries = append(m.entries, &copied)
	return nil
}

func (m *mockLedgerStore) RecentByUser(ctx context.Context, userID int64, limit int) ([]*models.LedgerEntry, error) {
	var result []*models.LedgerEntry
	for i := len(m.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if m.entries[i].UserID == userID {
			result = append(result, m.entries[i])
		}
	}
	return result, nil
}

func (m *mockLedgerStore) Count(ctx context.Context) (int64, error) {
	return int64(len(m.entries)), nil
}

func (m *mockLedgerStore) SumAll(ctx context.Context) (int64, error) {
	var sum int64
	for _, entry := range m.entries {
		sum += entry.PointsChange
	}
	return sum, nil
}

// lastFor returns the most recent ledger entry for the user
func (m *mockLedgerStore) lastFor(userID int64) *models.LedgerEntry {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].UserID == userID {
			return m.entries[i]
		}
	}
	return nil
}

type mockSummaryStore struct {
	summaries map[int64]*models.PointsSummary
	users     *mockUserStore
}

func newMockSummaryStore(users *mockUserStore) *mockSummaryStore {
	return &mockSummaryStore{
		summaries: make(map[int64]*models.PointsSummary),
		users:     users,
	}
}

func (m *mockSummaryStore) Get(ctx context.Context, userID int64) (*models.PointsSummary, error) {
	return m.summaries[userID], nil
}

func (m *mockSummaryStore) CurrentStreakWithTx(ctx context.Context, tx pgx.Tx, userID int64) (int, error) {
	if summary, ok := m.summaries[userID]; ok {
		return summary.CurrentStreak, nil
	}
	return 0, nil
}

func (m *mockSummaryStore) TotalForUpdateWithTx(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	if summary, ok := m.summaries[userID]; ok {
		return summary.TotalPoints, nil
	}
	return 0, nil
}

func (m *mockSummaryStore) ApplySignInWithTx(ctx context.Context, tx pgx.Tx, userID int64, pointsAwarded int, newStreak int) error {
	now := time.Now()
	summary, ok := m.summaries[userID]
	if !ok {
		summary = &models.PointsSummary{UserID: userID}
		m.summaries[userID] = summary
	}
	summary.TotalPoints += int64(pointsAwarded)
	summary.SignInCount++
	summary.LastSignIn = &now
	summary.CurrentStreak = newStreak
	if newStreak > summary.MaxStreak {
		summary.MaxStreak = newStreak
	}
	summary.UpdatedAt = now
	return nil
}

func (m *mockSummaryStore) ApplyDeltaWithTx(ctx context.Context, tx pgx.Tx, userID int64, delta int64) error {
	summary, ok := m.summaries[userID]
	if !ok {
		summary = &models.PointsSummary{UserID: userID}
		m.summaries[userID] = summary
	}
	summary.TotalPoints += delta
	summary.UpdatedAt = time.Now()
	return nil
}

func (m *mockSummaryStore) Rank(ctx context.Context, userID int64) (int, error) {
	var total int64
	if summary, ok := m.summaries[userID]; ok {
		total = summary.TotalPoints
	}
	rank := 1
	for id, summary := range m.summaries {
		if id != userID && summary.TotalPoints > total {
			rank++
		}
	}
	return rank, nil
}

func (m *mockSummaryStore) TopN(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	var entries []*models.LeaderboardEntry
	for id, summary := range m.summaries {
		entry := &models.LeaderboardEntry{
			UserID:        id,
			TotalPoints:   summary.TotalPoints,
			SignInCount:   summary.SignInCount,
			CurrentStreak: summary.CurrentStreak,
			LastSignIn:    summary.LastSignIn,
		}
		if m.users != nil {
			if user, ok := m.users.users[id]; ok {
				entry.Username = user.Username
				entry.FirstName = user.FirstName
			}
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		if entries[i].CurrentStreak != entries[j].CurrentStreak {
			return entries[i].CurrentStreak > entries[j].CurrentStreak
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i, entry := range entries {
		entry.Rank = i + 1
	}
	return entries, nil
}

type mockLeaderboardCache struct {
	values      map[string][]byte
	invalidated int
	getErr      error
	setErr      error
	hits        int
	misses      int
}

func newMockLeaderboardCache() *mockLeaderboardCache {
	return &mockLeaderboardCache{values: make(map[string][]byte)}
}

func (m *mockLeaderboardCache) LeaderboardKey(limit int) string {
	return fmt.Sprintf("leaderboard:%d", limit)
}

func (m *mockLeaderboardCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if m.getErr != nil {
		return false, m.getErr
	}
	data, ok := m.values[key]
	if !ok {
		m.misses++
		return false, nil
	}
	m.hits++
	return true, json.Unmarshal(data, dest)
}

func (m *mockLeaderboardCache) Set(ctx context.Context, key string, value interface{}) error {
	if m.setErr != nil {
		return m.setErr
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = data
	return nil
}

func (m *mockLeaderboardCache) InvalidateLeaderboard(ctx context.Context) error {
	m.invalidated++
	m.values = make(map[string][]byte)
	return nil
}
