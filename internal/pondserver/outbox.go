// outbox.go — the bounded per-connection outbound frame channel that
// implements query.Outbox. Its capacity IS the high-water mark from
// SPEC_FULL.md §4.9: a non-blocking send models "buffer full, pause
// draining until writable" without any manual length bookkeeping.
package pondserver

import "github.com/check-spelling/pond/internal/wire"

type outbox struct {
	frames chan wire.Frame
}

func newOutbox(highWaterMark int) *outbox {
	return &outbox{frames: make(chan wire.Frame, highWaterMark)}
}

// TryEnqueue implements query.Outbox.
func (o *outbox) TryEnqueue(f wire.Frame) bool {
	select {
	case o.frames <- f:
		return true
	default:
		return false
	}
}
