package cosched

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// PanicError is raised from Update when a native coroutine body panics.
// It carries the slot id of the coroutine and the stack captured at the
// point of the panic, which would otherwise be lost across the
// coroutine switch.
type PanicError struct {
	ID    int
	Value any
	stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("coroutine #%d: %v", p.ID, p.Value)
}

// ErrorWithStack returns Error followed by the captured stack.
func (p *PanicError) ErrorWithStack() string {
	return fmt.Sprintf("%s\n\n%s", p.Error(), p.stack)
}

// Stack returns the stack captured when the body panicked.
func (p *PanicError) Stack() []byte {
	return p.stack
}

func (p *PanicError) Unwrap() error {
	err, ok := p.Value.(error)
	if !ok {
		return nil
	}
	return err
}

// DebugString renders the error chain one frame per line, including
// joined errors. Each PanicError frame is headed by its coroutine id and
// followed by its stack, indented by a tab. Other errors in the chain
// are listed as causes.
func (p *PanicError) DebugString() string {
	var sb strings.Builder
	seen := make(map[error]bool)

	pending := []error{p}
	for len(pending) > 0 {
		e := pending[0]
		pending = pending[1:]
		if e == nil || seen[e] {
			continue
		}
		seen[e] = true

		if pe, ok := e.(*PanicError); ok {
			fmt.Fprintf(&sb, "coroutine #%d: %v\n", pe.ID, pe.Value)
			for _, line := range strings.Split(strings.TrimRight(string(pe.stack), "\n"), "\n") {
				if line != "" {
					fmt.Fprintf(&sb, "\t%s\n", line)
				}
			}
		} else {
			fmt.Fprintf(&sb, "caused by: %v\n", e)
		}

		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			pending = append(append([]error(nil), u.Unwrap()...), pending...)
		case interface{ Unwrap() error }:
			pending = append([]error{u.Unwrap()}, pending...)
		}
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

func newPanicError(id int, v any) error {
	return &PanicError{
		ID:    id,
		Value: v,
		stack: debug.Stack(),
	}
}
