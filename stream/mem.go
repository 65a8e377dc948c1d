package stream

import (
	"errors"
	"io"
)

// MemStream is a seekable in-memory stream. A growable MemStream backs the
// central-directory staging buffer and the per-entry scratch areas; a fixed
// MemStream wraps an existing byte slice for parsing.
type MemStream struct {
	buf   []byte
	pos   int64
	fixed bool
}

// NewMemStream returns an empty growable memory stream.
func NewMemStream() *MemStream {
	return &MemStream{}
}

// NewMemStreamBuffer wraps buf as a fixed-size stream. Writes past the end of
// buf fail instead of growing.
func NewMemStreamBuffer(buf []byte) *MemStream {
	return &MemStream{buf: buf, fixed: true}
}

func (m *MemStream) Open(mode int) error {
	if mode&ModeCreate != 0 && !m.fixed {
		m.buf = m.buf[:0]
	}
	m.pos = 0
	return nil
}

func (m *MemStream) Close() error { return nil }

func (m *MemStream) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *MemStream) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		if m.fixed {
			if m.pos >= int64(len(m.buf)) {
				return 0, io.ErrShortWrite
			}
			n := copy(m.buf[m.pos:], p)
			m.pos += int64(n)
			if n < len(p) {
				return n, io.ErrShortWrite
			}
			return n, nil
		}
		m.grow(end)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += int64(n)
	return n, nil
}

func (m *MemStream) grow(size int64) {
	if size <= int64(cap(m.buf)) {
		m.buf = m.buf[:size]
		return
	}
	newCap := int64(cap(m.buf))*2 + 64
	if newCap < size {
		newCap = size
	}
	nb := make([]byte, size, newCap)
	copy(nb, m.buf)
	m.buf = nb
}

func (m *MemStream) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = m.pos + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("stream: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("stream: negative seek position")
	}
	if abs > int64(len(m.buf)) && !m.fixed {
		// Seeking past the end reserves zero-filled space, like a sparse file.
		m.grow(abs)
	}
	m.pos = abs
	return abs, nil
}

func (m *MemStream) Tell() int64 { return m.pos }

// Buffer exposes the underlying bytes. The slice is valid until the next
// write or grow.
func (m *MemStream) Buffer() []byte { return m.buf }

// Len reports the current logical size.
func (m *MemStream) Len() int64 { return int64(len(m.buf)) }

func (m *MemStream) GetProp(p Prop) (int64, error) { return 0, ErrProp }
func (m *MemStream) SetProp(p Prop, v int64) error { return ErrProp }
