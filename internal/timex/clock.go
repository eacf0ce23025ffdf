package timex

import "time"

// Clock abstracts the current time so TTL and sync logic can be driven by a
// stub in tests.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}
