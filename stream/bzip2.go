package stream

import (
	"github.com/dsnet/compress/bzip2"
	"github.com/pkg/errors"
)

// Bzip2Stream handles ZIP method 12. The stdlib bzip2 package only reads, so
// both directions go through dsnet's implementation.
type Bzip2Stream struct {
	base       Stream
	level      int64
	maxTotalIn int64
	bw         *bzip2.Writer
	br         *bzip2.Reader
	cr         *countReader
	cw         *countWriter
	totalIn    int64
	totalOut   int64
}

func NewBzip2Stream() *Bzip2Stream {
	return &Bzip2Stream{level: bzip2.DefaultCompression}
}

func (b *Bzip2Stream) SetBase(base Stream) { b.base = base }

func (b *Bzip2Stream) Open(mode int) error {
	b.totalIn = 0
	b.totalOut = 0
	if mode&ModeWrite != 0 {
		level := int(b.level)
		if level < bzip2.BestSpeed || level > bzip2.BestCompression {
			level = bzip2.DefaultCompression
		}
		b.cw = &countWriter{s: b.base}
		bw, err := bzip2.NewWriter(b.cw, &bzip2.WriterConfig{Level: level})
		if err != nil {
			return errors.Wrap(err, "bzip2")
		}
		b.bw = bw
		return nil
	}
	b.cr = &countReader{s: b.base, max: b.maxTotalIn}
	br, err := bzip2.NewReader(b.cr, nil)
	if err != nil {
		return errors.Wrap(err, "bzip2")
	}
	b.br = br
	return nil
}

func (b *Bzip2Stream) Close() error {
	if b.bw != nil {
		err := b.bw.Close()
		b.bw = nil
		b.totalOut = b.cw.n
		return errors.Wrap(err, "bzip2")
	}
	if b.br != nil {
		err := b.br.Close()
		b.br = nil
		return errors.Wrap(err, "bzip2")
	}
	return nil
}

func (b *Bzip2Stream) Read(p []byte) (int, error) {
	if b.br == nil {
		return 0, ErrNotOpen
	}
	n, err := b.br.Read(p)
	b.totalOut += int64(n)
	b.totalIn = b.cr.n
	return n, err
}

func (b *Bzip2Stream) Write(p []byte) (int, error) {
	if b.bw == nil {
		return 0, ErrNotOpen
	}
	n, err := b.bw.Write(p)
	b.totalIn += int64(n)
	b.totalOut = b.cw.n
	return n, err
}

func (b *Bzip2Stream) Seek(offset int64, whence int) (int64, error) {
	return b.base.Seek(offset, whence)
}

func (b *Bzip2Stream) Tell() int64 { return b.base.Tell() }

func (b *Bzip2Stream) GetProp(p Prop) (int64, error) {
	switch p {
	case PropTotalIn:
		return b.totalIn, nil
	case PropTotalOut:
		return b.totalOut, nil
	case PropTotalInMax:
		return b.maxTotalIn, nil
	case PropCompressLevel:
		return b.level, nil
	}
	return 0, ErrProp
}

func (b *Bzip2Stream) SetProp(p Prop, v int64) error {
	switch p {
	case PropTotalInMax:
		b.maxTotalIn = v
		return nil
	case PropTotalOutMax:
		return nil
	case PropCompressLevel:
		b.level = v
		return nil
	}
	return ErrProp
}
