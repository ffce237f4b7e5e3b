package models

import "time"

// PointsSummary is the denormalized per-user aggregate row. It is derived
// entirely from LedgerEntry and DailySignIn history: TotalPoints equals the
// sum of the user's ledger changes and SignInCount equals the count of the
// user's daily sign-in rows. Maintained by atomic increment-upsert inside the
// same transaction as each ledger append.
type PointsSummary struct {
	UserID        int64      `json:"userId" db:"user_id"`
	TotalPoints   int64      `json:"totalPoints" db:"total_points"`
	SignInCount   int        `json:"signInCount" db:"sign_in_count"`
	LastSignIn    *time.Time `json:"lastSignIn,omitempty" db:"last_sign_in"`
	CurrentStreak int        `json:"currentStreak" db:"current_streak"`
	MaxStreak     int        `json:"maxStreak" db:"max_streak"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// LeaderboardEntry is one ranked row of the points leaderboard
type LeaderboardEntry struct {
	Rank          int        `json:"rank"`
	UserID        int64      `json:"userId" db:"user_id"`
	Username      string     `json:"username,omitempty" db:"username"`
	FirstName     string     `json:"firstName,omitempty" db:"first_name"`
	TotalPoints   int64      `json:"totalPoints" db:"total_points"`
	SignInCount   int        `json:"signInCount" db:"sign_in_count"`
	CurrentStreak int        `json:"currentStreak" db:"current_streak"`
	LastSignIn    *time.Time `json:"lastSignIn,omitempty" db:"last_sign_in"`
}
