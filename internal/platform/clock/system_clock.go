// Package clock holds the production Clock.
package clock

import "time"

// SystemClock reads the wall clock. Times are UTC so stored and signed
// timestamps never carry a local zone.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC() }
