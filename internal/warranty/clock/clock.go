// Package clock provides the single authoritative time source for validity
// decisions.
package clock

import "time"

// Clock abstracts time retrieval so validity checks are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock at whole-second resolution in UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC().Truncate(time.Second) }

// Func adapts a function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }
