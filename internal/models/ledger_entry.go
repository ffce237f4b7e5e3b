package models

import (
	"time"

	"github.com/points-ledger/internal/types"
)

// LedgerEntry is an immutable, append-only record of one point-change event.
// Entries are never mutated or deleted; the ledger is the source of truth for
// point history. PointsChange is never zero.
type LedgerEntry struct {
	ID           string           `json:"id" db:"id"`
	UserID       int64            `json:"userId" db:"user_id"`
	PointsChange int64            `json:"pointsChange" db:"points_change"`
	Reason       types.ReasonCode `json:"reason" db:"reason"`
	Description  string           `json:"description,omitempty" db:"description"`
	CreatedAt    time.Time        `json:"createdAt" db:"created_at"`
}
