package stream

import (
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// DeflateStream compresses or decompresses with raw deflate, the default ZIP
// method.
type DeflateStream struct {
	base        Stream
	mode        int
	level       int64
	maxTotalIn  int64
	maxTotalOut int64
	fw          *flate.Writer
	fr          io.ReadCloser
	cr          *countReader
	cw          *countWriter
	totalIn     int64
	totalOut    int64
}

func NewDeflateStream() *DeflateStream {
	return &DeflateStream{level: flate.DefaultCompression}
}

func (d *DeflateStream) SetBase(base Stream) { d.base = base }

func (d *DeflateStream) Open(mode int) error {
	d.mode = mode
	d.totalIn = 0
	d.totalOut = 0
	if mode&ModeWrite != 0 {
		level := int(d.level)
		if level < flate.HuffmanOnly || level > flate.BestCompression {
			level = flate.DefaultCompression
		}
		d.cw = &countWriter{s: d.base}
		fw, err := flate.NewWriter(d.cw, level)
		if err != nil {
			return errors.Wrap(err, "deflate")
		}
		d.fw = fw
		return nil
	}
	d.cr = &countReader{s: d.base, max: d.maxTotalIn}
	d.fr = flate.NewReader(d.cr)
	return nil
}

func (d *DeflateStream) Close() error {
	if d.fw != nil {
		err := d.fw.Close()
		d.fw = nil
		d.totalOut = d.cw.n
		return errors.Wrap(err, "deflate")
	}
	if d.fr != nil {
		err := d.fr.Close()
		d.fr = nil
		return errors.Wrap(err, "deflate")
	}
	return nil
}

func (d *DeflateStream) Read(p []byte) (int, error) {
	if d.fr == nil {
		return 0, ErrNotOpen
	}
	n, err := d.fr.Read(p)
	d.totalOut += int64(n)
	d.totalIn = d.cr.n
	return n, err
}

func (d *DeflateStream) Write(p []byte) (int, error) {
	if d.fw == nil {
		return 0, ErrNotOpen
	}
	n, err := d.fw.Write(p)
	d.totalIn += int64(n)
	d.totalOut = d.cw.n
	return n, err
}

func (d *DeflateStream) Seek(offset int64, whence int) (int64, error) {
	return d.base.Seek(offset, whence)
}

func (d *DeflateStream) Tell() int64 { return d.base.Tell() }

func (d *DeflateStream) GetProp(p Prop) (int64, error) {
	switch p {
	case PropTotalIn:
		return d.totalIn, nil
	case PropTotalOut:
		return d.totalOut, nil
	case PropTotalInMax:
		return d.maxTotalIn, nil
	case PropCompressLevel:
		return d.level, nil
	}
	return 0, ErrProp
}

func (d *DeflateStream) SetProp(p Prop, v int64) error {
	switch p {
	case PropTotalInMax:
		d.maxTotalIn = v
		return nil
	case PropTotalOutMax:
		d.maxTotalOut = v
		return nil
	case PropCompressLevel:
		d.level = v
		return nil
	}
	return ErrProp
}
