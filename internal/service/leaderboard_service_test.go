package service

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/points-ledger/internal/errors"
)

func seedLeaderboard(t *testing.T, users *mockUserStore, ledger *mockLedgerStore, summaries *mockSummaryStore, totals map[int64]int64) {
	t.Helper()
	adjustments := NewAdjustmentService(&mockTxRunner{}, users, ledger, summaries, nil)
	for id, total := range totals {
		if _, err := adjustments.AddPoints(context.Background(), &AddPointsInput{UserID: id, Delta: total}); err != nil {
			t.Fatalf("Seed for user %d failed: %v", id, err)
		}
	}
}

func TestListTopOrdering(t *testing.T) {
	users := newMockUserStore()
	ledger := &mockLedgerStore{}
	summaries := newMockSummaryStore(users)
	seedLeaderboard(t, users, ledger, summaries, map[int64]int64{1: 30, 2: 100, 3: 30, 4: 70})

	svc := NewLeaderboardService(summaries, nil)
	entries, err := svc.ListTop(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListTop failed: %v", err)
	}

	if len(entries) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(entries))
	}

	// Total descending, tied totals with equal streaks break on user ID
	wantOrder := []int64{2, 4, 1, 3}
	for i, want := range wantOrder {
		if entries[i].UserID != want {
			t.Errorf("Position %d: expected user %d, got %d", i, want, entries[i].UserID)
		}
		if entries[i].Rank != i+1 {
			t.Errorf("Position %d: expected rank %d, got %d", i, i+1, entries[i].Rank)
		}
	}
}

func TestListTopLimit(t *testing.T) {
	users := newMockUserStore()
	ledger := &mockLedgerStore{}
	summaries := newMockSummaryStore(users)
	totals := make(map[int64]int64)
	for i := int64(1); i <= 15; i++ {
		totals[i] = i * 10
	}
	seedLeaderboard(t, users, ledger, summaries, totals)

	svc := NewLeaderboardService(summaries, nil)
	ctx := context.Background()

	entries, err := svc.ListTop(ctx, 3)
	if err != nil {
		t.Fatalf("ListTop failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected 3 entries, got %d", len(entries))
	}

	// Zero means the default window
	entries, err = svc.ListTop(ctx, 0)
	if err != nil {
		t.Fatalf("ListTop with default failed: %v", err)
	}
	if len(entries) != DefaultLeaderboardLimit {
		t.Errorf("Expected default %d entries, got %d", DefaultLeaderboardLimit, len(entries))
	}

	// Oversized limits are capped, not rejected
	if _, err := svc.ListTop(ctx, MaxLeaderboardLimit+50); err != nil {
		t.Errorf("Expected oversized limit to be capped, got error: %v", err)
	}

	_, err = svc.ListTop(ctx, -1)
	if err == nil {
		t.Fatal("Expected validation error for negative limit")
	}
	var catErr *apperrors.CategorizedError
	if !errors.As(err, &catErr) || catErr.Category != apperrors.CategoryValidation {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestListTopEmptyBoard(t *testing.T) {
	users := newMockUserStore()
	summaries := newMockSummaryStore(users)

	svc := NewLeaderboardService(summaries, nil)
	entries, err := svc.ListTop(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListTop failed: %v", err)
	}
	if entries == nil {
		t.Fatal("Expected empty slice, not nil")
	}
	if len(entries) != 0 {
		t.Errorf("Expected 0 entries, got %d", len(entries))
	}
}

func TestListTopCaching(t *testing.T) {
	users := newMockUserStore()
	ledger := &mockLedgerStore{}
	summaries := newMockSummaryStore(users)
	seedLeaderboard(t, users, ledger, summaries, map[int64]int64{1: 10, 2: 20})

	cache := newMockLeaderboardCache()
	svc := NewLeaderboardService(summaries, cache)
	ctx := context.Background()

	// First read misses and populates the cache
	first, err := svc.ListTop(ctx, 10)
	if err != nil {
		t.Fatalf("First ListTop failed: %v", err)
	}
	if cache.misses != 1 || cache.hits != 0 {
		t.Errorf("Expected 1 miss 0 hits, got %d/%d", cache.misses, cache.hits)
	}

	// Second read is served from the cache
	second, err := svc.ListTop(ctx, 10)
	if err != nil {
		t.Fatalf("Second ListTop failed: %v", err)
	}
	if cache.hits != 1 {
		t.Errorf("Expected a cache hit, got %d", cache.hits)
	}
	if len(second) != len(first) || second[0].UserID != first[0].UserID {
		t.Error("Cached read diverged from store read")
	}

	// Different limits cache under different keys
	if _, err := svc.ListTop(ctx, 5); err != nil {
		t.Fatalf("ListTop with other limit failed: %v", err)
	}
	if cache.misses != 2 {
		t.Errorf("Expected a second miss for the new window, got %d", cache.misses)
	}
}

func TestListTopCacheFailureFallsThrough(t *testing.T) {
	users := newMockUserStore()
	ledger := &mockLedgerStore{}
	summaries := newMockSummaryStore(users)
	seedLeaderboard(t, users, ledger, summaries, map[int64]int64{1: 10})

	cache := newMockLeaderboardCache()
	cache.getErr = errors.New("connection reset")
	cache.setErr = errors.New("connection reset")
	svc := NewLeaderboardService(summaries, cache)

	// Cache failures degrade to store reads, never surface
	entries, err := svc.ListTop(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListTop with broken cache failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(entries))
	}
}

func TestMutationInvalidatesLeaderboard(t *testing.T) {
	users := newMockUserStore()
	ledger := &mockLedgerStore{}
	summaries := newMockSummaryStore(users)
	cache := newMockLeaderboardCache()

	leaderboard := NewLeaderboardService(summaries, cache)
	adjustments := NewAdjustmentService(&mockTxRunner{}, users, ledger, summaries, cache)
	ctx := context.Background()

	if _, err := adjustments.AddPoints(ctx, &AddPointsInput{UserID: 1, Delta: 10}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if _, err := leaderboard.ListTop(ctx, 10); err != nil {
		t.Fatalf("ListTop failed: %v", err)
	}
	if len(cache.values) == 0 {
		t.Fatal("Expected cache populated")
	}

	// A later adjustment drops the cached windows
	if _, err := adjustments.AddPoints(ctx, &AddPointsInput{UserID: 2, Delta: 30}); err != nil {
		t.Fatalf("Adjustment failed: %v", err)
	}
	if len(cache.values) != 0 {
		t.Error("Expected cached windows invalidated after mutation")
	}

	// The next read reflects the new total
	entries, err := leaderboard.ListTop(ctx, 10)
	if err != nil {
		t.Fatalf("ListTop after mutation failed: %v", err)
	}
	if entries[0].UserID != 2 {
		t.Errorf("Expected user 2 on top, got %d", entries[0].UserID)
	}
}
