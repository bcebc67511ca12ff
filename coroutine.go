package cosched

// Finally is the resumption point a terminated coroutine is sent to.
// Step bodies put their cleanup code under case Finally.
const Finally = -1

// Coroutine is one slot of a Pool. The same value is handed to the body
// on every invocation and returned by Start so the caller can suspend,
// resume or terminate it from the outside.
//
// Slots are recycled: a *Coroutine kept by the caller stays valid for
// the lifetime of the pool, but refers to whatever coroutine currently
// occupies the slot. Check IsTerminated before acting on an old handle.
type Coroutine struct {
	pool *Pool
	id   int

	step   func(*Coroutine)
	native func(*Coroutine, func())
	run    *resumable

	point       int
	wake        uint32
	startedAt   uint32
	suspendedAt uint32
	elapsed     uint32

	terminated bool
	suspended  bool
	looping    bool
	begun      bool

	locals    []any
	saved     int
	recovered int
}

// reset clears the state of a recycled slot. id, pool and the locals
// table itself are kept.
func (c *Coroutine) reset() {
	c.step = nil
	c.native = nil
	c.run = nil
	c.point = 0
	c.wake = 0
	c.elapsed = 0
	c.terminated = false
	c.suspended = false
	c.looping = false
	c.begun = false
	c.saved = 0
	c.recovered = 0
}

// update runs the body once if the coroutine is neither suspended nor
// waiting, and reports whether it has terminated.
func (c *Coroutine) update(now uint32) bool {
	if c.suspended {
		return false
	}
	if c.wake > now {
		return false
	}

	if c.startedAt > now {
		c.elapsed = 0
	} else {
		c.elapsed = now - c.startedAt
	}

	if c.native != nil {
		c.stepNative()
	} else {
		c.recovered = 0
		c.begun = false
		c.step(c)
	}
	return c.terminated
}

func (c *Coroutine) stepNative() {
	if c.point == Finally {
		if c.run != nil {
			c.run.cancel()
			c.run = nil
		}
		c.terminated = true
		return
	}

	if c.run == nil {
		c.recovered = 0
		c.looping = false
		c.run = newResumable(c.id, func(yield func()) {
			c.native(c, func() {
				if c.point != Finally {
					c.point++
				}
				yield()
			})
		})
	}

	if c.run.step() {
		return
	}
	c.run = nil
	c.End()
}

// ID returns the slot index. It never changes.
func (c *Coroutine) ID() int {
	return c.id
}

// Begin marks the end of the local declarations of a step body and
// returns the resumption point to switch on: 0 on a fresh start or a
// loop restart, the value last passed to Yield when resuming, and
// Finally after Terminate.
func (c *Coroutine) Begin() int {
	c.begun = true
	c.looping = false
	return c.point
}

// Yield records where a step body continues on its next invocation.
// The body must return right after calling it. point must be positive
// and unique within the body.
func (c *Coroutine) Yield(point int) {
	c.point = point
	c.recovered = 0
}

// End is called when a step body runs off its end. The coroutine
// terminates unless Loop was called during this invocation.
func (c *Coroutine) End() {
	c.terminated = !c.looping
}

// Wait sets the earliest time the coroutine may run again to now plus
// ms. It does not yield by itself, and the last call before a yield
// wins.
func (c *Coroutine) Wait(ms uint32) {
	c.wake = c.pool.clock.Millis() + ms
}

// Terminate stops the coroutine on its next visit, which runs its
// Finally section (or, for native bodies, its deferred calls) regardless
// of any pending wait or suspension. Called from inside the body, the
// coroutine retires as soon as the current invocation returns; a step
// body does not get another pass through Finally, a native body still
// runs its deferred calls.
func (c *Coroutine) Terminate() {
	c.terminated = true
	c.suspended = false
	c.looping = false
	c.point = Finally
	c.wake = 0
}

// Suspend stops the coroutine from running until Resume is called. It
// may be called from inside the body, which then needs to yield.
func (c *Coroutine) Suspend() {
	if c.suspended || c.terminated {
		return
	}
	c.suspended = true
	c.suspendedAt = c.pool.clock.Millis()
}

// Resume undoes Suspend. Time spent suspended is not counted in
// Elapsed.
func (c *Coroutine) Resume() {
	if !c.suspended || c.terminated {
		return
	}
	c.suspended = false
	c.startedAt += c.pool.clock.Millis() - c.suspendedAt
}

// Loop makes the coroutine start over from the beginning instead of
// terminating when it reaches its end. Locals keep their values.
func (c *Coroutine) Loop() {
	c.point = 0
	c.recovered = 0
	c.looping = true
	c.pool.log.Debug("looping coroutine", "id", c.id)
}

// IsTerminated reports whether the coroutine has ended or been told to.
// A coroutine that ends on its own is retired by the same Update, so its
// slot is free once IsTerminated is true. After an external Terminate it
// is true immediately, but the slot stays occupied until the next Update
// runs the finally section and retires it. Starting a replacement before
// that Update lands in a different slot.
func (c *Coroutine) IsTerminated() bool { return c.terminated }

func (c *Coroutine) IsSuspended() bool { return c.suspended }
func (c *Coroutine) IsLooping() bool   { return c.looping }

// Point returns the current resumption point. For native bodies it
// counts the yields since the last (re)start.
func (c *Coroutine) Point() int { return c.point }

// Elapsed returns the milliseconds since the coroutine started, minus
// the time it spent suspended, as of the current invocation.
func (c *Coroutine) Elapsed() uint32 { return c.elapsed }

// StartedAt returns the start time, shifted forward by every suspension.
func (c *Coroutine) StartedAt() uint32 { return c.startedAt }

// WakeAt returns the time before which the coroutine will not run.
func (c *Coroutine) WakeAt() uint32 { return c.wake }

// Locals returns the number of locals currently allocated.
func (c *Coroutine) Locals() int { return c.saved }
