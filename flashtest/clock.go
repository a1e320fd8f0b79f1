package flashtest

import "time"

// Clock is a manual clock. Every Now advances it by Step, so a polling loop
// sees time pass without sleeping; Sleep advances it by the requested
// duration and records it.
type Clock struct {
	T      time.Time
	Step   time.Duration
	Sleeps []time.Duration
}

func NewClock(step time.Duration) *Clock {
	return &Clock{T: time.Unix(0, 0), Step: step}
}

func (c *Clock) Now() time.Time {
	now := c.T
	c.T = c.T.Add(c.Step)
	return now
}

func (c *Clock) Sleep(d time.Duration) {
	c.Sleeps = append(c.Sleeps, d)
	c.T = c.T.Add(d)
}
