// Package outbuf holds the reusable byte buffer that a parser fills with the
// canonical lines of one query.
//
// The slice returned by Bytes aliases the buffer's storage. It is only valid
// until the next call to Reset or any Write method; callers that need the
// bytes longer must copy them.
package outbuf

// DefaultCapacity is the initial capacity used by parsers.
const DefaultCapacity = 10000

// Buffer is an append-only byte buffer whose capacity survives Reset.
type Buffer struct {
	data []byte
	n    int
}

// New returns a buffer with the given initial capacity.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Reset drops the logical contents and keeps the storage.
func (b *Buffer) Reset() {
	b.n = 0
}

// grow makes room for pending more bytes. New capacity is twice the
// required size.
func (b *Buffer) grow(pending int) {
	need := b.n + pending
	if need <= len(b.data) {
		return
	}
	tmp := make([]byte, 2*need)
	copy(tmp, b.data[:b.n])
	b.data = tmp
}

// Write appends p. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.grow(len(p))
	b.n += copy(b.data[b.n:], p)
	return len(p), nil
}

// WriteString appends s. It never fails.
func (b *Buffer) WriteString(s string) (int, error) {
	b.grow(len(s))
	b.n += copy(b.data[b.n:], s)
	return len(s), nil
}

// WriteByte appends c. It never fails.
func (b *Buffer) WriteByte(c byte) error {
	b.grow(1)
	b.data[b.n] = c
	b.n++
	return nil
}

// AppendLine writes s followed by a newline.
func (b *Buffer) AppendLine(s string) {
	b.grow(len(s) + 1)
	b.n += copy(b.data[b.n:], s)
	b.data[b.n] = '\n'
	b.n++
}

// Bytes returns a view of the logical contents, valid until the next
// mutating call.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n:b.n]
}

// Len is the logical length.
func (b *Buffer) Len() int { return b.n }

// Cap is the size of the backing storage.
func (b *Buffer) Cap() int { return len(b.data) }
