package models

import (
	"time"

	"github.com/points-ledger/internal/types"
)

// DailySignIn records one sign-in per (user, calendar date). The unique
// constraint on that pair is the single source of truth for "already signed
// in today"; rows are never updated after creation.
type DailySignIn struct {
	ID            int64     `json:"id" db:"id"`
	UserID        int64     `json:"userId" db:"user_id"`
	SignDate      time.Time `json:"signDate" db:"sign_date"`
	PointsAwarded int       `json:"pointsAwarded" db:"points_awarded"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// TaggedSignIn is a DailySignIn labelled for display relative to the current
// calendar day ("today", "yesterday", or "MM-DD").
type TaggedSignIn struct {
	SignDate      time.Time    `json:"signDate"`
	PointsAwarded int          `json:"pointsAwarded"`
	Tag           types.DayTag `json:"tag"`
}
