// Package stream provides the layered byte-stream abstraction the archive
// code is built on. Every layer — storage, memory, checksum, compression,
// encryption — exposes the same Stream interface, and transform layers stack
// on a base stream via SetBase. A layer never closes a base it did not create.
package stream

import (
	"encoding/binary"
	"errors"
	"io"
)

// Open modes. Bit-composable; Read|Write|Append opens an existing archive for
// appending, Create|Write truncates.
const (
	ModeRead   = 0x01
	ModeWrite  = 0x02
	ModeAppend = 0x04
	ModeCreate = 0x08
)

// Prop identifies a numeric stream property.
type Prop int

const (
	PropTotalIn Prop = iota
	PropTotalOut
	PropTotalInMax
	PropTotalOutMax
	PropHeaderSize
	PropFooterSize
	PropCompressLevel
	PropDiskNumber
	PropDiskSize
)

var (
	ErrNotOpen = errors.New("stream: not open")
	ErrProp    = errors.New("stream: property not supported")
	// ErrVerify is returned by the encryption layers when the password
	// verification bytes or the AES authentication code do not match.
	ErrVerify = errors.New("stream: password verification failed")
)

// Stream is the capability set shared by every layer. Read, Write and Seek
// have the io package signatures so a Stream can be used directly as an
// io.Reader, io.Writer or io.Seeker.
type Stream interface {
	Open(mode int) error
	Close() error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Tell() int64
	GetProp(p Prop) (int64, error)
	SetProp(p Prop, v int64) error
}

// Layered is a Stream that transforms another stream.
type Layered interface {
	Stream
	SetBase(base Stream)
}

// ReadFull reads exactly len(p) bytes. io.EOF is returned untouched when no
// bytes at all were available, io.ErrUnexpectedEOF on a short read.
func ReadFull(s Stream, p []byte) error {
	total := 0
	for total < len(p) {
		n, err := s.Read(p[total:])
		total += n
		if err != nil {
			if err == io.EOF && total > 0 && total < len(p) {
				return io.ErrUnexpectedEOF
			}
			if total == len(p) {
				return nil
			}
			return err
		}
		if n == 0 {
			return io.ErrUnexpectedEOF
		}
	}
	return nil
}

// WriteFull writes all of p, surfacing a short write as an error.
func WriteFull(s Stream, p []byte) error {
	total := 0
	for total < len(p) {
		n, err := s.Write(p[total:])
		total += n
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}

func ReadUint8(s Stream) (uint8, error) {
	var b [1]byte
	if err := ReadFull(s, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func ReadUint16(s Stream) (uint16, error) {
	var b [2]byte
	if err := ReadFull(s, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func ReadUint32(s Stream) (uint32, error) {
	var b [4]byte
	if err := ReadFull(s, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func ReadUint64(s Stream) (uint64, error) {
	var b [8]byte
	if err := ReadFull(s, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func WriteUint8(s Stream, v uint8) error {
	return WriteFull(s, []byte{v})
}

func WriteUint16(s Stream, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return WriteFull(s, b[:])
}

func WriteUint32(s Stream, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return WriteFull(s, b[:])
}

func WriteUint64(s Stream, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return WriteFull(s, b[:])
}

// CopyStream copies exactly n bytes from src to dst.
func CopyStream(dst, src Stream, n int64) error {
	buf := make([]byte, 16*1024)
	for n > 0 {
		chunk := int64(len(buf))
		if chunk > n {
			chunk = n
		}
		if err := ReadFull(src, buf[:chunk]); err != nil {
			return err
		}
		if err := WriteFull(dst, buf[:chunk]); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
