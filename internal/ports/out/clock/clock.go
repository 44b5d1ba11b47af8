package clock

import "time"

// Clock is the source of time for every timestamp the registry records:
// identity and driver creation, uploads, complaints and signed URL expiry.
type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }
