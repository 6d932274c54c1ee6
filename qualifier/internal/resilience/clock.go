package resilience

import "time"

// Clock abstracts time for deterministic testing, mirroring the teacher
// engine's ratelimit.Clock seam.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
