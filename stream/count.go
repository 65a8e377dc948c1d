package stream

import "io"

// countReader counts bytes pulled from the base stream, optionally bounded.
type countReader struct {
	s   Stream
	n   int64
	max int64 // <= 0 means unbounded
}

func (c *countReader) Read(p []byte) (int, error) {
	if c.max > 0 {
		remaining := c.max - c.n
		if remaining <= 0 {
			return 0, io.EOF
		}
		if int64(len(p)) > remaining {
			p = p[:remaining]
		}
	}
	n, err := c.s.Read(p)
	c.n += int64(n)
	return n, err
}

// countWriter counts bytes pushed into the base stream.
type countWriter struct {
	s Stream
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.s.Write(p)
	c.n += int64(n)
	return n, err
}
