package types

import "testing"

func TestSignInStreakReason(t *testing.T) {
	cases := []struct {
		streak int
		want   ReasonCode
	}{
		{3, "sign_in_streak_3"},
		{7, "sign_in_streak_7"},
		{15, "sign_in_streak_15"},
	}
	for _, tc := range cases {
		if got := SignInStreakReason(tc.streak); got != tc.want {
			t.Errorf("SignInStreakReason(%d) = %q, want %q", tc.streak, got, tc.want)
		}
	}
}

func TestServiceErrorMessage(t *testing.T) {
	err := &ServiceError{Code: "INVALID_INPUT", Message: "delta must be nonzero"}
	want := "INVALID_INPUT: delta must be nonzero"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
