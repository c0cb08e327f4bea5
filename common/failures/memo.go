// Package failures remembers recent fetch failures per content identifier so
// doomed fetches can be short-circuited. Permanent failures (the content does
// not exist) are kept for a long window, temporary ones for a short window.
package failures

import (
	"context"
	"time"
)

const (
	// DefaultPermanentWindow is how long a permanent failure is remembered
	DefaultPermanentWindow = 24 * time.Hour

	// DefaultTemporaryWindow is how long a temporary failure is remembered
	DefaultTemporaryWindow = 30 * time.Minute
)

// Entry is one remembered failure
type Entry struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
	Permanent bool      `json:"permanent"`
}

// Windows holds the expiry window per failure class
type Windows struct {
	Permanent time.Duration
	Temporary time.Duration
}

// DefaultWindows returns 24h for permanent and 30m for temporary failures
func DefaultWindows() Windows {
	return Windows{
		Permanent: DefaultPermanentWindow,
		Temporary: DefaultTemporaryWindow,
	}
}

// For returns the window that applies to an entry of the given permanence
func (w Windows) For(permanent bool) time.Duration {
	if permanent {
		return w.Permanent
	}
	return w.Temporary
}

// Expired reports whether entry is past its window at now
func (w Windows) Expired(entry Entry, now time.Time) bool {
	return !now.Before(entry.Timestamp.Add(w.For(entry.Permanent)))
}

// Memo is the failure memo used by the loader.
// Implementations never return errors; backend problems are logged and read as absent.
type Memo interface {
	// Get returns the live entry for id; expired entries are absent
	Get(ctx context.Context, id string) (Entry, bool)

	// RecordFailure remembers a failure for id, replacing any previous entry
	RecordFailure(ctx context.Context, id, message string, permanent bool)

	// Clear forgets id
	Clear(ctx context.Context, id string)

	// IsExpired reports whether entry is past its window now
	IsExpired(entry Entry) bool
}

// Logger interface for memo logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}
