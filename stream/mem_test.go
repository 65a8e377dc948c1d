package stream

import (
	"bytes"
	"io"
	"testing"
)

func TestMemStreamReadWrite(t *testing.T) {
	m := NewMemStream()
	if err := m.Open(ModeCreate); err != nil {
		t.Fatal(err)
	}

	payload := []byte("the quick brown fox")
	if err := WriteFull(m, payload); err != nil {
		t.Fatal(err)
	}
	if m.Len() != int64(len(payload)) {
		t.Fatalf("len = %d, want %d", m.Len(), len(payload))
	}

	if _, err := m.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, len(payload))
	if err := ReadFull(m, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("read back %q, want %q", got, payload)
	}

	if _, err := m.Read(got); err != io.EOF {
		t.Fatalf("read past end = %v, want io.EOF", err)
	}
}

func TestMemStreamSeekPastEnd(t *testing.T) {
	m := NewMemStream()
	if err := m.Open(ModeCreate); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Seek(10, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 10 {
		t.Fatalf("len after sparse seek = %d, want 10", m.Len())
	}
	for _, b := range m.Buffer() {
		if b != 0 {
			t.Fatal("sparse region not zero-filled")
		}
	}
}

func TestMemStreamFixedBuffer(t *testing.T) {
	buf := make([]byte, 4)
	m := NewMemStreamBuffer(buf)
	if err := m.Open(ModeRead); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Write([]byte("toolong")); err != io.ErrShortWrite {
		t.Fatalf("overflowing write = %v, want io.ErrShortWrite", err)
	}
	if !bytes.Equal(buf, []byte("tool")) {
		t.Fatalf("fixed buffer = %q", buf)
	}
}

func TestIntegerHelpers(t *testing.T) {
	m := NewMemStream()
	m.Open(ModeCreate)

	if err := WriteUint16(m, 0x1234); err != nil {
		t.Fatal(err)
	}
	if err := WriteUint32(m, 0xdeadbeef); err != nil {
		t.Fatal(err)
	}
	if err := WriteUint64(m, 0x0102030405060708); err != nil {
		t.Fatal(err)
	}

	m.Seek(0, io.SeekStart)
	if v, _ := ReadUint16(m); v != 0x1234 {
		t.Fatalf("uint16 = %04x", v)
	}
	if v, _ := ReadUint32(m); v != 0xdeadbeef {
		t.Fatalf("uint32 = %08x", v)
	}
	if v, _ := ReadUint64(m); v != 0x0102030405060708 {
		t.Fatalf("uint64 = %016x", v)
	}
	if _, err := ReadUint16(m); err != io.EOF {
		t.Fatalf("read at end = %v, want io.EOF", err)
	}
}

func TestCopyStream(t *testing.T) {
	src := NewMemStream()
	src.Open(ModeCreate)
	WriteFull(src, bytes.Repeat([]byte("abc"), 20000))
	src.Seek(0, io.SeekStart)

	dst := NewMemStream()
	dst.Open(ModeCreate)
	if err := CopyStream(dst, src, src.Len()); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dst.Buffer(), src.Buffer()) {
		t.Fatal("copy differs from source")
	}
}
