package cosched

import (
	"errors"
	"unsafe"
)

var (
	// ErrCanceled is the panic value a native body unwinds with when its
	// coroutine is terminated while parked in yield, or when an escaped
	// yield is called after the body has finished.
	ErrCanceled = errors.New("cosched: coroutine canceled")
	_           unsafe.Pointer
)

// coroutine represents a native Go coroutine instance. It's an opaque
// struct used by the runtime functions.
type coroutine struct{}

//go:linkname newcoro runtime.newcoro
func newcoro(func(*coroutine)) *coroutine

//go:linkname coroswitch runtime.coroswitch
func coroswitch(*coroutine)

// resumable drives a plain Go function on a runtime coroutine, one
// segment per step. The function hands control back by calling the
// yield it is given.
type resumable struct {
	step   func() bool
	cancel func()
}

// newResumable creates a resumable for fn. Nothing runs until the first
// call to step.
//
// step runs fn until its next yield or until it returns, and reports
// whether fn is still running. A panic inside fn is captured together
// with its stack and re-raised from step as a *PanicError tagged with id.
//
// cancel unwinds a parked fn: the pending yield panics with ErrCanceled
// so deferred calls in fn run before cancel returns. Canceling a fn that
// never ran skips it entirely. Canceling a finished fn is a no-op.
func newResumable(id int, fn func(yield func())) *resumable {
	var (
		c        *coroutine
		done     bool
		canceled bool
		perr     error
	)

	c = newcoro(func(c *coroutine) {
		defer func() {
			if p := recover(); p != nil {
				if err, ok := p.(error); !ok || !errors.Is(err, ErrCanceled) {
					perr = newPanicError(id, p)
				}
			}
			done = true
		}()

		yield := func() {
			if done || canceled {
				panic(ErrCanceled)
			}
			coroswitch(c)
			if canceled {
				panic(ErrCanceled)
			}
		}

		if !canceled {
			fn(yield)
		}
	})

	step := func() bool {
		if perr != nil {
			panic(perr)
		}
		if done {
			return false
		}
		coroswitch(c)
		if perr != nil {
			panic(perr)
		}
		return !done
	}

	cancel := func() {
		if done {
			return
		}
		canceled = true
		coroswitch(c)
		if perr != nil {
			panic(perr)
		}
	}

	return &resumable{step: step, cancel: cancel}
}
