package w25q

import "time"

// Clock is the timing source of a Flash: Now measures readiness waits and
// Sleep covers the fixed settle windows after power-up and reset.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }
