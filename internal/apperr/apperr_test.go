package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundWrapsSentinel(t *testing.T) {
	err := NotFound("issue #%d not found", 7)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "issue #7 not found")
}

func TestInvalidWrapsSentinel(t *testing.T) {
	err := Invalid("unknown state %q", "merged")

	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, `unknown state "merged": invalid input`, err.Error())
}

func TestTypedErrors(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "Repository creation forbidden",
			err:      &RepoCreationForbiddenError{Name: "attractor-store-demo"},
			contains: "REPO_CREATE_FORBIDDEN:attractor-store-demo",
		},
		{
			name:     "Store id mismatch",
			err:      &StoreIDMismatchError{Expected: "a", Actual: "b"},
			contains: `project expects "a" but store has "b"`,
		},
		{
			name:     "Malformed document",
			err:      &MalformedDocumentError{Path: "issues/1.json", Err: &json.SyntaxError{}},
			contains: "malformed document issues/1.json",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("operation failed: %w", tc.err)
			assert.Contains(t, wrapped.Error(), tc.contains)
		})
	}
}

func TestErrorsAs(t *testing.T) {
	err := fmt.Errorf("open project: %w", &StoreIDMismatchError{Expected: "x", Actual: "y"})

	var mismatch *StoreIDMismatchError
	assert.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "x", mismatch.Expected)
	assert.Equal(t, "y", mismatch.Actual)

	var forbidden *RepoCreationForbiddenError
	assert.False(t, errors.As(err, &forbidden))
}
