package cosched

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/bits-and-blooms/bitset"
)

// ErrPoolExhausted is returned by TryStart and TrySpawn, and is the panic
// value of Start and Spawn, when every slot of the pool is in use.
var ErrPoolExhausted = errors.New("cosched: out of allocated coroutines")

// Pool owns a fixed number of coroutine slots and drives the active ones
// forward on every Update. A Pool is not safe for concurrent use; it is
// meant to be driven from a single main loop.
type Pool struct {
	slots []Coroutine

	// active has bit i set while slot i holds a live coroutine. sweep
	// and retired are scratch sets for UpdateAt.
	active  *bitset.BitSet
	sweep   *bitset.BitSet
	retired *bitset.BitSet
	count   int

	updating bool
	started  uint64
	finished uint64

	clock Clock
	log   *slog.Logger
}

// New creates a pool with all slots preallocated. Without options it
// has DefaultSlots slots, DefaultMaxLocals locals per coroutine and
// uses SystemClock.
func New(opts ...Option) (*Pool, error) {
	o := options{config: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}
	if o.clock == nil {
		o.clock = SystemClock()
	}
	if o.log == nil {
		o.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	n := uint(o.config.Slots)
	p := &Pool{
		slots:   make([]Coroutine, n),
		active:  bitset.New(n),
		sweep:   bitset.New(n),
		retired: bitset.New(n),
		clock:   o.clock,
		log:     o.log,
	}
	// ids are assigned sequentially and never change
	for i := range p.slots {
		p.slots[i] = Coroutine{
			pool:   p,
			id:     i,
			locals: make([]any, o.config.MaxLocals),
		}
	}
	return p, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew(opts ...Option) *Pool {
	p, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Start claims a free slot and starts a step body in it. The body is
// first invoked on the next Update. Start panics with ErrPoolExhausted
// if no slot is free: the pool must be sized for the largest number of
// coroutines the program runs at once.
//
// A step body is an explicit state machine that returns on every yield:
//
//	func blink(c *cosched.Coroutine) {
//		switch c.Begin() {
//		case 0:
//			led.Set(true)
//			c.Wait(100)
//			c.Yield(1)
//			return
//		case 1:
//			led.Set(false)
//		}
//		c.End()
//	}
func (p *Pool) Start(fn func(c *Coroutine)) *Coroutine {
	c, err := p.TryStart(fn)
	if err != nil {
		p.log.Error("out of allocated coroutines", "slots", len(p.slots))
		panic(err)
	}
	return c
}

// TryStart is like Start but returns ErrPoolExhausted instead of
// panicking.
func (p *Pool) TryStart(fn func(c *Coroutine)) (*Coroutine, error) {
	if fn == nil {
		panic("cosched: nil coroutine body")
	}
	c, err := p.claim()
	if err != nil {
		return nil, err
	}
	c.step = fn
	return c, nil
}

// Spawn claims a free slot and starts a native body in it. The body is
// an ordinary function that runs on its own coroutine stack, so its
// variables survive yields without Local. Calling yield returns control
// to the scheduler until the next visit. If the coroutine is terminated
// while parked in yield, yield panics with ErrCanceled so the deferred
// calls of the body act as its Finally section.
//
// Like Start, Spawn panics with ErrPoolExhausted if no slot is free.
func (p *Pool) Spawn(fn func(c *Coroutine, yield func())) *Coroutine {
	c, err := p.TrySpawn(fn)
	if err != nil {
		p.log.Error("out of allocated coroutines", "slots", len(p.slots))
		panic(err)
	}
	return c
}

// TrySpawn is like Spawn but returns ErrPoolExhausted instead of
// panicking.
func (p *Pool) TrySpawn(fn func(c *Coroutine, yield func())) (*Coroutine, error) {
	if fn == nil {
		panic("cosched: nil coroutine body")
	}
	c, err := p.claim()
	if err != nil {
		return nil, err
	}
	c.native = fn
	return c, nil
}

func (p *Pool) claim() (*Coroutine, error) {
	// take the first inactive slot
	i, ok := p.active.NextClear(0)
	if !ok || i >= uint(len(p.slots)) {
		return nil, fmt.Errorf("%w: all %d slots in use", ErrPoolExhausted, len(p.slots))
	}

	p.active.Set(i)
	p.count++
	p.started++

	c := &p.slots[i]
	c.reset()
	c.startedAt = p.clock.Millis()
	p.log.Debug("adding coroutine", "id", i)
	return c, nil
}

// Update advances every active coroutine using the pool clock.
func (p *Pool) Update() {
	p.UpdateAt(p.clock.Millis())
}

// UpdateAt advances every active coroutine by at most one segment, in
// ascending slot order. Coroutines reporting termination are retired
// after the sweep, so slots freed during it are not reused until it is
// over and coroutines started during it first run on the next update.
//
// If a body panics, its slot is retired together with the ones that
// already terminated in this sweep, and the panic propagates. Panics of
// native bodies arrive as *PanicError.
func (p *Pool) UpdateAt(now uint32) {
	if p.updating {
		panic("cosched: Update called from inside a coroutine")
	}
	if p.count == 0 {
		return
	}

	p.updating = true
	defer p.retire()

	p.active.Copy(p.sweep)
	for i, ok := p.sweep.NextSet(0); ok; i, ok = p.sweep.NextSet(i + 1) {
		if p.visit(i, now) {
			p.retired.Set(i)
		}
	}
}

func (p *Pool) visit(i uint, now uint32) bool {
	defer func() {
		if r := recover(); r != nil {
			p.retired.Set(i)
			panic(r)
		}
	}()
	return p.slots[i].update(now)
}

// retire frees every slot collected during the sweep. Native bodies are
// canceled only once the pool is consistent again, since their deferred
// calls may panic.
func (p *Pool) retire() {
	p.updating = false

	var runs []*resumable
	for i, ok := p.retired.NextSet(0); ok; i, ok = p.retired.NextSet(i + 1) {
		c := &p.slots[i]
		c.freeLocals()
		if c.run != nil {
			runs = append(runs, c.run)
		}
		c.terminated = true
		c.step = nil
		c.native = nil
		c.run = nil

		p.log.Debug("removing coroutine", "id", i)
		p.active.Clear(i)
		p.count--
		p.finished++
	}
	p.retired.ClearAll()

	cancelAll(runs)
}

// cancelAll cancels every run even if one of them panics.
func cancelAll(runs []*resumable) {
	if len(runs) == 0 {
		return
	}
	defer cancelAll(runs[1:])
	runs[0].cancel()
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return len(p.slots)
}

// Active returns the number of live coroutines.
func (p *Pool) Active() int {
	return p.count
}

// Slot returns the coroutine in slot i, live or not.
func (p *Pool) Slot(i int) *Coroutine {
	return &p.slots[i]
}

// All iterates over the live coroutines in slot order.
func (p *Pool) All() iter.Seq[*Coroutine] {
	return func(yield func(*Coroutine) bool) {
		for i, ok := p.active.NextSet(0); ok; i, ok = p.active.NextSet(i + 1) {
			if !yield(&p.slots[i]) {
				return
			}
		}
	}
}

// Stats is a snapshot of pool occupancy.
type Stats struct {
	Slots     int
	Active    int
	Suspended int
	Waiting   int

	// Started and Finished count coroutines over the pool lifetime.
	Started  uint64
	Finished uint64
}

func (p *Pool) Stats() Stats {
	s := Stats{
		Slots:    len(p.slots),
		Active:   p.count,
		Started:  p.started,
		Finished: p.finished,
	}
	now := p.clock.Millis()
	for c := range p.All() {
		switch {
		case c.suspended:
			s.Suspended++
		case c.wake > now:
			s.Waiting++
		}
	}
	return s
}
