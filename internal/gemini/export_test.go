package gemini

import (
	"context"
	"time"
)

// SetSleep replaces the wait between status checks.
func SetSleep(s *Stager, fn func(ctx context.Context, d time.Duration) error) {
	s.sleep = fn
}
