package clockx

import "time"

// Countdown is a whole-second countdown clamped at zero. It carries no
// goroutine of its own: the owner decides when a second has elapsed and calls
// Tick, so ticks can never fire re-entrantly with other owner operations.
type Countdown struct {
	remaining int
}

// NewCountdown starts a countdown at d rounded up to whole seconds.
func NewCountdown(d time.Duration) Countdown {
	if d <= 0 {
		return Countdown{}
	}
	secs := int((d + time.Second - 1) / time.Second)
	return Countdown{remaining: secs}
}

// Tick consumes one second. It reports whether this tick crossed zero;
// ticking an already-finished countdown stays at zero and reports false.
func (c *Countdown) Tick() bool {
	if c.remaining == 0 {
		return false
	}
	c.remaining--
	return c.remaining == 0
}

// Remaining returns the time left on the countdown.
func (c Countdown) Remaining() time.Duration {
	return time.Duration(c.remaining) * time.Second
}

// Done reports whether the countdown has reached zero.
func (c Countdown) Done() bool { return c.remaining == 0 }

// Reset rewinds the countdown to d, replacing whatever was left.
func (c *Countdown) Reset(d time.Duration) {
	*c = NewCountdown(d)
}
