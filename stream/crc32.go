package stream

import "hash/crc32"

// CRC32Stream is the checksum tap sitting at the payload-facing end of the
// entry pipeline. It observes every byte crossing it and keeps the running
// IEEE CRC32 along with byte totals for size accounting.
type CRC32Stream struct {
	base     Stream
	crc      uint32
	totalIn  int64
	totalOut int64
}

func NewCRC32Stream() *CRC32Stream { return &CRC32Stream{} }

func (c *CRC32Stream) SetBase(base Stream) { c.base = base }

func (c *CRC32Stream) Open(mode int) error {
	c.crc = 0
	c.totalIn = 0
	c.totalOut = 0
	return nil
}

func (c *CRC32Stream) Close() error { return nil }

func (c *CRC32Stream) Read(p []byte) (int, error) {
	n, err := c.base.Read(p)
	if n > 0 {
		c.crc = crc32.Update(c.crc, crc32.IEEETable, p[:n])
		c.totalIn += int64(n)
	}
	return n, err
}

func (c *CRC32Stream) Write(p []byte) (int, error) {
	n, err := c.base.Write(p)
	if n > 0 {
		c.crc = crc32.Update(c.crc, crc32.IEEETable, p[:n])
		c.totalOut += int64(n)
	}
	return n, err
}

func (c *CRC32Stream) Seek(offset int64, whence int) (int64, error) {
	return c.base.Seek(offset, whence)
}

func (c *CRC32Stream) Tell() int64 { return c.base.Tell() }

// Value returns the CRC32 of all bytes read or written so far.
func (c *CRC32Stream) Value() uint32 { return c.crc }

func (c *CRC32Stream) GetProp(p Prop) (int64, error) {
	switch p {
	case PropTotalIn:
		return c.totalIn, nil
	case PropTotalOut:
		return c.totalOut, nil
	}
	return 0, ErrProp
}

func (c *CRC32Stream) SetProp(p Prop, v int64) error { return ErrProp }
