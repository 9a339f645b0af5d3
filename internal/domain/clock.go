package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source used to default the reference date.
// Production code uses the real clock; tests inject a fake for deterministic output.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Today returns the current date (midnight UTC) according to the package clock.
func Today() time.Time {
	return DateOf(clock.Now())
}

// Now returns the current instant according to the package clock.
func Now() time.Time {
	return clock.Now()
}
