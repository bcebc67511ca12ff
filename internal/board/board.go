// Package board is a simulated microcontroller board: digital pins that
// record their transitions and a millisecond clock advanced by hand.
package board

import (
	"log/slog"
)

// Pin is a digital output pin.
type Pin interface {
	// Set drives the pin high (true) or low (false).
	Set(high bool)

	// Get reads back the current level.
	Get() bool
}

// Edge is one recorded pin transition.
type Edge struct {
	At   uint32
	High bool
}

// LogPin is a Pin that logs and records every level change.
type LogPin struct {
	name  string
	clock *SimClock
	log   *slog.Logger
	high  bool
	edges []Edge
}

// NewLogPin returns a low pin stamping its transitions with clock.
func NewLogPin(name string, clock *SimClock, log *slog.Logger) *LogPin {
	return &LogPin{name: name, clock: clock, log: log}
}

func (p *LogPin) Set(high bool) {
	if p.high == high {
		return
	}
	p.high = high
	e := Edge{At: p.clock.Millis(), High: high}
	p.edges = append(p.edges, e)
	if p.log != nil {
		p.log.Info("pin", "name", p.name, "ms", e.At, "high", high)
	}
}

func (p *LogPin) Get() bool { return p.high }

// Edges returns the transitions recorded so far.
func (p *LogPin) Edges() []Edge { return p.edges }

func (p *LogPin) Name() string { return p.name }

// SimClock is a manual millisecond clock.
type SimClock struct {
	now uint32
}

func (c *SimClock) Millis() uint32 { return c.now }

func (c *SimClock) Set(ms uint32) { c.now = ms }

func (c *SimClock) Advance(ms uint32) uint32 {
	c.now += ms
	return c.now
}
