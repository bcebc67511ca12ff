package cosched

import "time"

// Clock is a monotonic millisecond counter, the equivalent of millis()
// on a microcontroller. It may wrap around at 2^32.
type Clock interface {
	Millis() uint32
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() uint32

func (f ClockFunc) Millis() uint32 { return f() }

type systemClock struct {
	epoch time.Time
}

// SystemClock returns a Clock that counts milliseconds since it was
// created.
func SystemClock() Clock {
	return systemClock{epoch: time.Now()}
}

func (c systemClock) Millis() uint32 {
	return uint32(time.Since(c.epoch).Milliseconds())
}
