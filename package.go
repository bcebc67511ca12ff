// Package cosched provides a cooperative coroutine scheduler for
// microcontroller-style main loops. A Pool preallocates a fixed number
// of coroutine slots; the program starts coroutines into free slots and
// calls Update once per loop iteration, which runs every active
// coroutine up to its next yield in ascending slot order.
//
// Coroutines never get preempted. They give up control by yielding,
// and may first call Wait to stay off the schedule for a number of
// milliseconds. From the outside, the handle returned by Start can
// Suspend, Resume or Terminate the coroutine. Time spent suspended does
// not count towards Elapsed. A terminated coroutine runs its cleanup on
// its next visit and then frees its slot. A coroutine that calls Loop
// before reaching its end starts over on its next visit instead of
// terminating.
//
// Bodies come in two forms. Step bodies, started with Start, are
// explicit state machines: they switch on the resumption point returned
// by Begin, record the next one with Yield and return. Their variables
// do not survive a return, so state that must outlive a yield is
// declared with Local, which hands out the same storage on every pass
// by declaration order. Native bodies, started with Spawn, are ordinary
// functions run on a runtime coroutine; they call the yield function
// they are given and keep their variables on their own stack.
//
// The pool never grows. Starting a coroutine when every slot is taken
// panics with ErrPoolExhausted; TryStart and TrySpawn report it as an
// error instead.
package cosched
