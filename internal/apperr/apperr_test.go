package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"authorization", AuthorizationError{Role: "dean", Action: "approve grades"}, KindAuthorization},
		{"window", WindowClosedError{Reason: "no encoding schedule configured"}, KindWindowClosed},
		{"incomplete", IncompleteDataError{StudentID: 4, StudentName: "Cruz, Ana", Message: "incomplete grades"}, KindIncomplete},
		{"validation", Invalid("prelim", "abc", "not a number"), KindValidation},
		{"not found", NotFound("subject", 9), KindNotFound},
		{"conflict", Conflict("schedule %d already completed", 3), KindConflict},
		{"wrapped", fmt.Errorf("submit: %w", NotFound("grade", 1)), KindNotFound},
		{"plain", errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestIncompleteDataErrorNamesStudent(t *testing.T) {
	err := IncompleteDataError{StudentID: 7, StudentName: "Reyes, Jose", Message: "incomplete grades"}
	if got, want := err.Error(), "incomplete grades: Reyes, Jose"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestConflictUnwrap(t *testing.T) {
	cause := errors.New("duplicate key")
	err := fmt.Errorf("insert: %w", ConflictError{Message: "grade exists", Err: cause})
	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if !Is(err, KindConflict) {
		t.Fatal("expected conflict kind")
	}
}
