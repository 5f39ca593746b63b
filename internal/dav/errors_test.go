package dav

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: ErrUnauthenticated, want: http.StatusUnauthorized},
		{err: fmt.Errorf("wrong password: %w", ErrInvalidCredentials), want: http.StatusUnauthorized},
		{err: fmt.Errorf("get: %w", ErrNotFound), want: http.StatusNotFound},
		{err: fmt.Errorf("open: %w", ErrBlobNotFound), want: http.StatusNotFound},
		{err: ErrParentNotFound, want: http.StatusConflict},
		{err: ErrPreconditionFailed, want: http.StatusPreconditionFailed},
		{err: ErrForbidden, want: http.StatusForbidden},
		{err: ErrMethodNotAllowed, want: http.StatusMethodNotAllowed},
		{err: ErrSizeMismatch, want: http.StatusBadRequest},
		{err: ErrUnsupportedMedia, want: http.StatusUnsupportedMediaType},
		{err: errors.New("disk on fire"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
