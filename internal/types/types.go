// Package types provides common type definitions for the points ledger system.
package types

import "fmt"

// ReasonCode identifies why a ledger entry was written
type ReasonCode string

const (
	// ReasonSignIn represents the base daily sign-in award
	ReasonSignIn ReasonCode = "sign_in"
	// ReasonAdminAdd represents an administrative credit
	ReasonAdminAdd ReasonCode = "admin_add"
	// ReasonAdminDeduct represents an administrative debit
	ReasonAdminDeduct ReasonCode = "admin_deduct"
	// ReasonAdminSet represents an administrative absolute set, recorded as a delta
	ReasonAdminSet ReasonCode = "admin_set"
)

// SignInStreakReason returns the reason code for a sign-in that earned a
// streak bonus, e.g. "sign_in_streak_7"
func SignInStreakReason(streak int) ReasonCode {
	return ReasonCode(fmt.Sprintf("sign_in_streak_%d", streak))
}

// DayTag labels a sign-in date relative to the current calendar day
type DayTag string

const (
	// TagToday marks the current calendar day
	TagToday DayTag = "today"
	// TagYesterday marks the previous calendar day
	TagYesterday DayTag = "yesterday"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
