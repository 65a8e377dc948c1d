package stream

import (
	"bytes"
	"io"
	"testing"
)

func codecRoundTrip(t *testing.T, name string, makeStream func() Layered, payload []byte) {
	t.Helper()

	base := NewMemStream()
	base.Open(ModeCreate)

	enc := makeStream()
	enc.SetBase(base)
	enc.SetProp(PropCompressLevel, 6)
	if err := enc.Open(ModeWrite); err != nil {
		t.Fatalf("%s: open write: %v", name, err)
	}
	if err := WriteFull(enc, payload); err != nil {
		t.Fatalf("%s: write: %v", name, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("%s: close: %v", name, err)
	}

	compressed, err := enc.GetProp(PropTotalOut)
	if err != nil {
		t.Fatalf("%s: total out: %v", name, err)
	}
	if compressed != base.Len() {
		t.Fatalf("%s: total out = %d, stream has %d", name, compressed, base.Len())
	}

	base.Seek(0, io.SeekStart)
	dec := makeStream()
	dec.SetBase(base)
	dec.SetProp(PropTotalInMax, compressed)
	if err := dec.Open(ModeRead); err != nil {
		t.Fatalf("%s: open read: %v", name, err)
	}
	got := make([]byte, len(payload))
	if err := ReadFull(dec, got); err != nil {
		t.Fatalf("%s: read: %v", name, err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("%s: payload mismatch", name)
	}
	if err := dec.Close(); err != nil {
		t.Fatalf("%s: close read: %v", name, err)
	}
}

func TestCodecRoundTrips(t *testing.T) {
	payload := bytes.Repeat([]byte("all work and no play makes jack a dull boy\n"), 512)

	codecRoundTrip(t, "deflate", func() Layered { return NewDeflateStream() }, payload)
	codecRoundTrip(t, "bzip2", func() Layered { return NewBzip2Stream() }, payload)
	codecRoundTrip(t, "lzma", func() Layered { return NewLZMAStream() }, payload)
	codecRoundTrip(t, "zstd", func() Layered { return NewZstdStream() }, payload)
}

func TestLZMAZipFraming(t *testing.T) {
	base := NewMemStream()
	base.Open(ModeCreate)

	enc := NewLZMAStream()
	enc.SetBase(base)
	if err := enc.Open(ModeWrite); err != nil {
		t.Fatal(err)
	}
	if err := WriteFull(enc, []byte("framing check")); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}

	buf := base.Buffer()
	if len(buf) < 4+lzmaPropsSize {
		t.Fatalf("stream too short: %d", len(buf))
	}
	if buf[0] != lzmaVerMajor || buf[1] != lzmaVerMinor {
		t.Fatalf("version bytes = %d.%d", buf[0], buf[1])
	}
	if buf[2] != lzmaPropsSize || buf[3] != 0 {
		t.Fatalf("properties size = %d", int(buf[2])|int(buf[3])<<8)
	}
}

func TestRawStreamBudget(t *testing.T) {
	base := NewMemStream()
	base.Open(ModeCreate)
	WriteFull(base, []byte("0123456789"))
	base.Seek(0, io.SeekStart)

	r := NewRawStream()
	r.SetBase(base)
	r.SetProp(PropTotalInMax, 4)
	if err := r.Open(ModeRead); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, 10)
	n, err := r.Read(got)
	if n != 4 || err != nil {
		t.Fatalf("read = %d, %v, want 4 bytes", n, err)
	}
	if _, err := r.Read(got); err != io.EOF {
		t.Fatalf("read past budget = %v, want io.EOF", err)
	}
}
