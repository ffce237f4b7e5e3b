package service

import "time"

// Every successful sign-in awards the base point plus at most one streak
// bonus: the highest matching tier wins, tiers do not stack.
const (
	baseSignInPoints = 1

	lowStreakThreshold  = 3
	lowStreakBonus      = 1
	highStreakThreshold = 7
	highStreakBonus     = 2
)

// nextStreak computes the streak a sign-in today produces: one more than the
// previous streak when yesterday has a sign-in row, otherwise back to 1.
func nextStreak(previousStreak int, signedYesterday bool) int {
	if signedYesterday {
		return previousStreak + 1
	}
	return 1
}

// streakBonus returns the bonus for the given streak length
func streakBonus(streak int) int {
	switch {
	case streak >= highStreakThreshold:
		return highStreakBonus
	case streak >= lowStreakThreshold:
		return lowStreakBonus
	default:
		return 0
	}
}

// signInAward returns the total points awarded for a sign-in at the given
// streak length
func signInAward(streak int) int {
	return baseSignInPoints + streakBonus(streak)
}

// civilDate truncates t to its calendar date in loc. The result is a
// midnight-UTC date value so equal civil dates compare equal regardless of
// the wall-clock time they came from.
func civilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
