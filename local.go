package cosched

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrTooManyLocals is the panic value when a coroutine declares more
	// locals than the pool's MaxLocals.
	ErrTooManyLocals = errors.New("cosched: ran out of coroutine locals")

	// ErrLocalAfterBegin is the panic value when a step body declares a
	// local after calling Begin.
	ErrLocalAfterBegin = errors.New("cosched: coroutine local declared after Begin")

	// ErrLocalType is the panic value when a local is declared with a
	// different type than on the pass that allocated it.
	ErrLocalType = errors.New("cosched: coroutine local type mismatch")
)

// Local returns storage for a variable that keeps its value across
// yields and loop restarts of c.
//
// Locals are matched by declaration order: the Nth call to Local in an
// invocation returns the Nth value allocated, so every pass must declare
// the same locals in the same order. Step bodies declare them before
// Begin; native bodies at the top of the function. The value starts out
// zeroed and is released when the coroutine terminates. If *T implements
// io.Closer it is closed at that point.
func Local[T any](c *Coroutine) *T {
	if c.begun {
		panic(ErrLocalAfterBegin)
	}

	idx := c.recovered
	if idx >= len(c.locals) {
		panic(fmt.Errorf("%w: coroutine #%d has room for %d", ErrTooManyLocals, c.id, len(c.locals)))
	}
	c.recovered++

	if idx == c.saved {
		v := new(T)
		c.locals[idx] = v
		c.saved++
		c.pool.log.Debug("allocating local", "id", c.id, "local", idx)
		return v
	}

	v, ok := c.locals[idx].(*T)
	if !ok {
		panic(fmt.Errorf("%w: local #%d of coroutine #%d is %T, not %T",
			ErrLocalType, idx, c.id, c.locals[idx], v))
	}
	return v
}

func (c *Coroutine) freeLocals() {
	if c.saved == 0 {
		return
	}

	c.pool.log.Debug("freeing locals", "id", c.id, "count", c.saved)
	for i := 0; i < c.saved; i++ {
		if cl, ok := c.locals[i].(io.Closer); ok {
			if err := cl.Close(); err != nil {
				c.pool.log.Warn("closing coroutine local", "id", c.id, "local", i, "error", err)
			}
		}
		c.locals[i] = nil
	}
	c.saved = 0
	c.recovered = 0
}
