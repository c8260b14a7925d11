package hub

import (
	"context"
	"errors"
	"net"
	"os"
)

var (
	// ErrNotConfigured is returned when an adapter is used before its
	// counterpart has been wired.
	ErrNotConfigured = errors.New("counterpart hub not configured")

	// ErrTimeout marks a transient transport timeout.
	ErrTimeout = errors.New("hub request timed out")
)

// IsTimeout reports whether err is a transient timeout rather than a hard
// client error.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
