package main

import (
	"log/slog"

	"github.com/webriots/cosched"
	"github.com/webriots/cosched/internal/board"
)

// sketch holds the pins and coroutine bodies of the demo, in the shape
// of an Arduino sketch: file-scope state shared by the coroutines.
type sketch struct {
	log   *slog.Logger
	led   board.Pin
	beep  board.Pin
	pulse board.Pin
}

// flashOnce lights the LED for 100ms.
func (s *sketch) flashOnce(c *cosched.Coroutine) {
	switch c.Begin() {
	case 0:
		s.led.Set(true)
		c.Wait(100)
		c.Yield(1)
		return
	case 1:
		s.led.Set(false)
	}
	c.End()
}

// flashThrice flashes the LED three times, 100ms on and 50ms off.
func (s *sketch) flashThrice(c *cosched.Coroutine) {
	i := cosched.Local[int](c)

	switch c.Begin() {
	case 0:
		*i = 0
		fallthrough
	case 1:
		if *i >= 3 {
			break
		}
		s.led.Set(true)
		c.Wait(100)
		c.Yield(2)
		return
	case 2:
		s.led.Set(false)
		c.Wait(50)
		*i++
		c.Yield(1)
		return
	}
	c.End()
}

// flashForever toggles the beeper until terminated.
func (s *sketch) flashForever(c *cosched.Coroutine) {
	switch c.Begin() {
	case 0:
		s.beep.Set(true)
		c.Wait(100)
		c.Yield(1)
		return
	case 1:
		s.beep.Set(false)
		c.Wait(50)
		c.Yield(2)
		return
	case 2:
		c.Loop()
	case cosched.Finally:
		s.beep.Set(false)
	}
	c.End()
}

// waitThenReport waits a second, reporting both the wait and its exit.
// The exit is reported even when it is terminated early.
func (s *sketch) waitThenReport(c *cosched.Coroutine) {
	switch c.Begin() {
	case 0:
		c.Wait(1000)
		c.Yield(1)
		return
	case 1:
		s.log.Info("waited 1000ms", "id", c.ID())
		fallthrough
	case cosched.Finally:
		if c.IsLooping() {
			break
		}
		s.log.Info("exiting", "id", c.ID(), "elapsed", c.Elapsed())
	}
	c.End()
}

// heartbeat pulses a pin about every quarter second as a native body.
// The deferred call leaves the pin low however the body exits.
func (s *sketch) heartbeat(c *cosched.Coroutine, yield func()) {
	defer s.pulse.Set(false)

	s.pulse.Set(true)
	c.Wait(20)
	yield()
	s.pulse.Set(false)
	c.Wait(230)
	yield()
	c.Loop()
}
