package cosched

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type closeCounter struct {
	closed *int
	err    error
}

func (c *closeCounter) Close() error {
	*c.closed++
	return c.err
}

func TestLocalSurvivesYield(t *testing.T) {
	r := require.New(t)
	p, clock := newTestPool(t, 1)

	var got []int
	var ptrs []*int
	c := p.Start(func(c *Coroutine) {
		a := Local[int](c)
		b := Local[string](c)
		ptrs = append(ptrs, a)

		switch c.Begin() {
		case 0:
			*a = 7
			*b = "x"
			c.Yield(1)
			return
		case 1:
			got = append(got, *a)
			*a *= 2
			*b += "y"
			c.Yield(2)
			return
		case 2:
			got = append(got, *a)
			r.Equal("xy", *b)
		}
		c.End()
	})

	at(p, clock, 0)
	r.Equal(2, c.Locals())
	at(p, clock, 1)
	at(p, clock, 2)

	r.Equal([]int{7, 14}, got)
	r.Same(ptrs[0], ptrs[1])
	r.Same(ptrs[1], ptrs[2])
	r.Equal(0, c.Locals())
}

func TestLocalStartsZeroed(t *testing.T) {
	r := require.New(t)
	p, clock := newTestPool(t, 2)

	var seen []int
	body := func(c *Coroutine) {
		n := Local[int](c)
		switch c.Begin() {
		case 0:
			seen = append(seen, *n)
			*n = 10 + c.ID()
			c.Yield(1)
			return
		case 1:
			seen = append(seen, *n)
		}
		c.End()
	}

	p.Start(body)
	p.Start(body)
	at(p, clock, 0)
	at(p, clock, 1)
	r.Equal([]int{0, 0, 10, 11}, seen)

	// a fresh start in a recycled slot does not see the old value
	seen = nil
	c := p.Start(body)
	r.Equal(0, c.ID())
	at(p, clock, 2)
	r.Equal([]int{0}, seen)
}

func TestLocalCapacity(t *testing.T) {
	p, clock := newTestPool(t, 1, WithMaxLocals(2))

	p.Start(func(c *Coroutine) {
		Local[int](c)
		Local[int](c)
		Local[int](c)
		c.Begin()
		c.End()
	})

	requirePanicIs(t, ErrTooManyLocals, func() { at(p, clock, 0) })
	requireActive(t, p, 0)
}

func TestLocalDefaultCapacity(t *testing.T) {
	p, clock := newTestPool(t, 1)

	var declared int
	p.Start(func(c *Coroutine) {
		for i := 0; i < DefaultMaxLocals; i++ {
			Local[int](c)
			declared++
		}
		c.Begin()
		c.End()
	})
	at(p, clock, 0)
	require.Equal(t, DefaultMaxLocals, declared)
}

func TestLocalAfterBegin(t *testing.T) {
	p, clock := newTestPool(t, 1)

	p.Start(func(c *Coroutine) {
		c.Begin()
		Local[int](c)
		c.End()
	})

	requirePanicIs(t, ErrLocalAfterBegin, func() { at(p, clock, 0) })
}

func TestLocalTypeMismatch(t *testing.T) {
	p, clock := newTestPool(t, 1)

	p.Start(func(c *Coroutine) {
		if c.Point() == 0 {
			Local[int](c)
		} else {
			Local[string](c)
		}
		switch c.Begin() {
		case 0:
			c.Yield(1)
			return
		}
		c.End()
	})

	at(p, clock, 0)
	requirePanicIs(t, ErrLocalType, func() { at(p, clock, 1) })
}

func TestLocalRecoveredAfterTerminate(t *testing.T) {
	r := require.New(t)
	p, clock := newTestPool(t, 1)

	var final int
	c := p.Start(func(c *Coroutine) {
		n := Local[int](c)
		switch c.Begin() {
		case 0:
			*n = 42
			c.Yield(1)
			return
		case Finally:
			final = *n
		}
		c.End()
	})

	at(p, clock, 0)
	c.Terminate()
	at(p, clock, 1)
	r.Equal(42, final)
	r.Equal(0, c.Locals())
}

func TestLocalClosedOnceOnRelease(t *testing.T) {
	r := require.New(t)
	p, clock := newTestPool(t, 1)

	var closed int
	c := p.Start(func(c *Coroutine) {
		cc := Local[closeCounter](c)
		switch c.Begin() {
		case 0:
			cc.closed = &closed
			cc.err = errors.New("already closed")
			c.Yield(1)
			return
		}
		c.End()
	})

	at(p, clock, 0)
	r.Equal(0, closed)
	at(p, clock, 1)
	r.Equal(1, closed)
	r.True(c.IsTerminated())

	at(p, clock, 2)
	r.Equal(1, closed)
}

func TestLocalsNotSharedAcrossSlots(t *testing.T) {
	p, clock := newTestPool(t, 2)

	ptrs := map[int]*int{}
	body := func(c *Coroutine) {
		n := Local[int](c)
		ptrs[c.ID()] = n
		*n += c.ID() + 1
		c.Begin()
		c.Yield(1)
	}
	p.Start(body)
	p.Start(body)

	at(p, clock, 0)
	at(p, clock, 1)

	require.NotSame(t, ptrs[0], ptrs[1])
	require.Equal(t, 2, *ptrs[0])
	require.Equal(t, 4, *ptrs[1])
}
