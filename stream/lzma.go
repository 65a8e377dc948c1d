package stream

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz/lzma"
)

// ZIP method 14 frames LZMA as a 4-byte preamble (SDK version, properties
// size) followed by the 5 property bytes and the raw stream. The lzma package
// speaks the classic .lzma container with a 13-byte header (5 property bytes
// plus a 64-bit size), so both directions splice between the two framings.
const (
	lzmaVerMajor  = 9
	lzmaVerMinor  = 20
	lzmaPropsSize = 5
)

// LZMAStream handles ZIP method 14.
type LZMAStream struct {
	base        Stream
	maxTotalIn  int64
	maxTotalOut int64
	level       int64
	lw          *lzma.Writer
	lr          *lzma.Reader
	strip       *lzmaHeaderStrip
	cr          *countReader
	cw          *countWriter
	totalIn     int64
	totalOut    int64
}

func NewLZMAStream() *LZMAStream { return &LZMAStream{} }

func (l *LZMAStream) SetBase(base Stream) { l.base = base }

func (l *LZMAStream) Open(mode int) error {
	l.totalIn = 0
	l.totalOut = 0
	if mode&ModeWrite != 0 {
		l.cw = &countWriter{s: l.base}
		l.strip = &lzmaHeaderStrip{w: l.cw}
		lw, err := lzma.NewWriter(l.strip)
		if err != nil {
			return errors.Wrap(err, "lzma")
		}
		l.lw = lw
		return nil
	}

	l.cr = &countReader{s: l.base, max: l.maxTotalIn}
	var preamble [4]byte
	if _, err := io.ReadFull(l.cr, preamble[:]); err != nil {
		return errors.Wrap(err, "lzma: preamble")
	}
	propSize := int(binary.LittleEndian.Uint16(preamble[2:]))
	if propSize < lzmaPropsSize {
		return errors.New("lzma: short properties")
	}
	props := make([]byte, propSize)
	if _, err := io.ReadFull(l.cr, props); err != nil {
		return errors.Wrap(err, "lzma: properties")
	}

	// Rebuild the classic header. Entries without an EOS marker are bounded
	// by the known uncompressed size instead.
	header := make([]byte, lzmaPropsSize+8)
	copy(header, props[:lzmaPropsSize])
	if l.maxTotalOut > 0 {
		binary.LittleEndian.PutUint64(header[lzmaPropsSize:], uint64(l.maxTotalOut))
	} else {
		binary.LittleEndian.PutUint64(header[lzmaPropsSize:], ^uint64(0))
	}
	lr, err := lzma.NewReader(io.MultiReader(bytes.NewReader(header), l.cr))
	if err != nil {
		return errors.Wrap(err, "lzma")
	}
	l.lr = lr
	return nil
}

func (l *LZMAStream) Close() error {
	if l.lw != nil {
		err := l.lw.Close()
		l.lw = nil
		l.totalOut = l.cw.n
		return errors.Wrap(err, "lzma")
	}
	l.lr = nil
	return nil
}

func (l *LZMAStream) Read(p []byte) (int, error) {
	if l.lr == nil {
		return 0, ErrNotOpen
	}
	n, err := l.lr.Read(p)
	l.totalOut += int64(n)
	l.totalIn = l.cr.n
	return n, err
}

func (l *LZMAStream) Write(p []byte) (int, error) {
	if l.lw == nil {
		return 0, ErrNotOpen
	}
	n, err := l.lw.Write(p)
	l.totalIn += int64(n)
	l.totalOut = l.cw.n
	return n, err
}

func (l *LZMAStream) Seek(offset int64, whence int) (int64, error) {
	return l.base.Seek(offset, whence)
}

func (l *LZMAStream) Tell() int64 { return l.base.Tell() }

func (l *LZMAStream) GetProp(p Prop) (int64, error) {
	switch p {
	case PropTotalIn:
		return l.totalIn, nil
	case PropTotalOut:
		return l.totalOut, nil
	case PropTotalInMax:
		return l.maxTotalIn, nil
	case PropTotalOutMax:
		return l.maxTotalOut, nil
	case PropCompressLevel:
		return l.level, nil
	}
	return 0, ErrProp
}

func (l *LZMAStream) SetProp(p Prop, v int64) error {
	switch p {
	case PropTotalInMax:
		l.maxTotalIn = v
		return nil
	case PropTotalOutMax:
		l.maxTotalOut = v
		return nil
	case PropCompressLevel:
		l.level = v
		return nil
	}
	return ErrProp
}

// lzmaHeaderStrip swallows the classic 13-byte header the lzma writer emits
// and replaces it with the ZIP framing: preamble, then the property bytes.
// The 8-byte size field is dropped; the stream always carries an EOS marker.
type lzmaHeaderStrip struct {
	w      io.Writer
	header [lzmaPropsSize + 8]byte
	got    int
}

func (s *lzmaHeaderStrip) Write(p []byte) (int, error) {
	consumed := 0
	for s.got < len(s.header) && consumed < len(p) {
		n := copy(s.header[s.got:], p[consumed:])
		s.got += n
		consumed += n
		if s.got == len(s.header) {
			preamble := []byte{lzmaVerMajor, lzmaVerMinor, lzmaPropsSize, 0}
			if _, err := s.w.Write(preamble); err != nil {
				return consumed, err
			}
			if _, err := s.w.Write(s.header[:lzmaPropsSize]); err != nil {
				return consumed, err
			}
		}
	}
	if consumed == len(p) {
		return consumed, nil
	}
	n, err := s.w.Write(p[consumed:])
	return consumed + n, err
}
