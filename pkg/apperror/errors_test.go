package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("proposal 7: %w", ErrNotFound), http.StatusNotFound},
		{"unauthenticated", ErrUnauthenticated, http.StatusUnauthorized},
		{"inactive", ErrAccountInactive, http.StatusBadRequest},
		{"duplicate email", fmt.Errorf("email: %w", ErrConflict), http.StatusBadRequest},
		{"version conflict", NewVersionConflict(4, 3), http.StatusConflict},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"app error code", New(http.StatusTeapot, "teapot", nil), http.StatusTeapot},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapErrorToStatus(tt.err); got != tt.want {
				t.Errorf("MapErrorToStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVersionConflictError(t *testing.T) {
	err := fmt.Errorf("update proposal: %w", NewVersionConflict(5, 4))

	var conflict *VersionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected VersionConflictError in chain")
	}
	if conflict.Current != 5 || conflict.Submitted != 4 {
		t.Errorf("got current=%d submitted=%d", conflict.Current, conflict.Submitted)
	}
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("expected errors.Is ErrVersionConflict")
	}
	want := "version conflict: current version 5, submitted version 4"
	if conflict.Error() != want {
		t.Errorf("Error() = %q, want %q", conflict.Error(), want)
	}
}
