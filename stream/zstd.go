package stream

import (
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// ZstdStream handles ZIP method 93 (zstandard).
type ZstdStream struct {
	base       Stream
	level      int64
	maxTotalIn int64
	zw         *zstd.Encoder
	zr         *zstd.Decoder
	cr         *countReader
	cw         *countWriter
	totalIn    int64
	totalOut   int64
}

func NewZstdStream() *ZstdStream {
	return &ZstdStream{level: 3}
}

func (z *ZstdStream) SetBase(base Stream) { z.base = base }

func (z *ZstdStream) Open(mode int) error {
	z.totalIn = 0
	z.totalOut = 0
	if mode&ModeWrite != 0 {
		z.cw = &countWriter{s: z.base}
		zw, err := zstd.NewWriter(z.cw,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(int(z.level))))
		if err != nil {
			return errors.Wrap(err, "zstd")
		}
		z.zw = zw
		return nil
	}
	z.cr = &countReader{s: z.base, max: z.maxTotalIn}
	zr, err := zstd.NewReader(z.cr, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return errors.Wrap(err, "zstd")
	}
	z.zr = zr
	return nil
}

func (z *ZstdStream) Close() error {
	if z.zw != nil {
		err := z.zw.Close()
		z.zw = nil
		z.totalOut = z.cw.n
		return errors.Wrap(err, "zstd")
	}
	if z.zr != nil {
		z.zr.Close()
		z.zr = nil
	}
	return nil
}

func (z *ZstdStream) Read(p []byte) (int, error) {
	if z.zr == nil {
		return 0, ErrNotOpen
	}
	n, err := z.zr.Read(p)
	z.totalOut += int64(n)
	z.totalIn = z.cr.n
	return n, err
}

func (z *ZstdStream) Write(p []byte) (int, error) {
	if z.zw == nil {
		return 0, ErrNotOpen
	}
	n, err := z.zw.Write(p)
	z.totalIn += int64(n)
	z.totalOut = z.cw.n
	return n, err
}

func (z *ZstdStream) Seek(offset int64, whence int) (int64, error) {
	return z.base.Seek(offset, whence)
}

func (z *ZstdStream) Tell() int64 { return z.base.Tell() }

func (z *ZstdStream) GetProp(p Prop) (int64, error) {
	switch p {
	case PropTotalIn:
		return z.totalIn, nil
	case PropTotalOut:
		return z.totalOut, nil
	case PropTotalInMax:
		return z.maxTotalIn, nil
	case PropCompressLevel:
		return z.level, nil
	}
	return 0, ErrProp
}

func (z *ZstdStream) SetProp(p Prop, v int64) error {
	switch p {
	case PropTotalInMax:
		z.maxTotalIn = v
		return nil
	case PropTotalOutMax:
		return nil
	case PropCompressLevel:
		z.level = v
		return nil
	}
	return ErrProp
}
