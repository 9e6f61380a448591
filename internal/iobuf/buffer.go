// Package iobuf provides the fixed-capacity staging buffer used between the
// pty and the terminal emulator.
//
// A Buffer never grows. Appends that would exceed the capacity are truncated
// and the excess is reported back to the caller, so aggregation saturates at
// the boundary instead of reallocating.
package iobuf

// DefaultCapacity matches the aggregation window of one scheduler iteration.
const DefaultCapacity = 8 * 1024

// Buffer is a bounded byte buffer. The zero value is unusable; use New.
type Buffer struct {
	data []byte
	n    int
}

// New returns an empty buffer holding at most capacity bytes.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Len returns the number of staged bytes.
func (b *Buffer) Len() int { return b.n }

// Free returns the remaining room.
func (b *Buffer) Free() int { return len(b.data) - b.n }

// Full reports whether no more bytes fit.
func (b *Buffer) Full() bool { return b.n == len(b.data) }

// Bytes returns the staged bytes. The slice aliases the buffer and is only
// valid until the next Reset or write.
func (b *Buffer) Bytes() []byte { return b.data[:b.n] }

// Reset discards the staged bytes, keeping the storage.
func (b *Buffer) Reset() { b.n = 0 }

// Window returns the writable slot for the next read of at most max bytes,
// or nil when fewer than max bytes of room remain. A read into the returned
// slice can never write past the aggregation boundary.
func (b *Buffer) Window(max int) []byte {
	if max <= 0 || b.Free() < max {
		return nil
	}
	return b.data[b.n : b.n+max]
}

// Commit marks n bytes of the last Window as staged. n is clamped to the
// remaining capacity.
func (b *Buffer) Commit(n int) {
	if n <= 0 {
		return
	}
	if n > b.Free() {
		n = b.Free()
	}
	b.n += n
}

// Append copies as much of p as fits and returns the number of bytes that
// were dropped.
func (b *Buffer) Append(p []byte) (dropped int) {
	n := copy(b.data[b.n:], p)
	b.n += n
	return len(p) - n
}

// Consume drops the first n staged bytes and moves the rest to the front.
func (b *Buffer) Consume(n int) {
	if n <= 0 {
		return
	}
	if n >= b.n {
		b.n = 0
		return
	}
	copy(b.data, b.data[n:b.n])
	b.n -= n
}
