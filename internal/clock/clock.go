// Package clock tracks the simulation's fixed-step wall time. The host
// drives one Tick per step; the clock itself never advances on its own.
package clock

import "fmt"

// Clock accumulates elapsed simulation time in fixed Δt increments.
type Clock struct {
	DT   float64 // step size in seconds
	T    float64 // current simulation time in seconds
	Step int64   // number of ticks advanced so far
}

// New creates a clock with the given step size.
func New(dt float64) *Clock {
	return &Clock{DT: dt}
}

// Advance moves the clock forward by one Δt.
func (c *Clock) Advance() {
	c.Step++
	c.T += c.DT
}

// String renders elapsed time as HH:MM:SS.
func (c *Clock) String() string {
	t := c.T
	h := int(t / 3600)
	t -= float64(h * 3600)
	m := int(t / 60)
	t -= float64(m * 60)
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
