package zip

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/abe-nagisa/zipcore/stream"
)

func emitHeader(t *testing.T, local bool, fi *FileInfo) []byte {
	t.Helper()
	m := stream.NewMemStream()
	m.Open(stream.ModeCreate)
	if err := writeHeader(m, local, fi); err != nil {
		t.Fatalf("writeHeader: %v", err)
	}
	return m.Buffer()
}

func parseHeader(t *testing.T, local bool, data []byte) *FileInfo {
	t.Helper()
	m := stream.NewMemStreamBuffer(data)
	m.Open(stream.ModeRead)
	var fi FileInfo
	if err := readHeader(m, local, &fi, stream.NewMemStream()); err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	return &fi
}

func TestCentralHeaderRoundTrip(t *testing.T) {
	modified := time.Date(2022, 3, 14, 15, 9, 26, 0, time.Local).Unix()
	fi := &FileInfo{
		VersionMadeBy:     uint16(HostSystemUnix)<<8 | 20,
		Flag:              FlagDataDescriptor,
		CompressionMethod: MethodDeflate,
		ModifiedDate:      modified,
		CRC:               0xcafebabe,
		CompressedSize:    1234,
		UncompressedSize:  5678,
		DiskNumber:        0,
		InternalFA:        1,
		ExternalFA:        (posixModeReg | 0644) << 16,
		DiskOffset:        4096,
		Filename:          "dir/name.txt",
		Comment:           "entry comment",
	}

	data := emitHeader(t, false, fi)
	wantLen := centralHeaderLen + len(fi.Filename) + len(fi.Comment)
	if len(data) != wantLen {
		t.Fatalf("record length = %d, want %d", len(data), wantLen)
	}

	got := parseHeader(t, false, data)
	if got.VersionMadeBy != fi.VersionMadeBy ||
		got.Flag != fi.Flag ||
		got.CompressionMethod != fi.CompressionMethod ||
		got.CRC != fi.CRC ||
		got.CompressedSize != fi.CompressedSize ||
		got.UncompressedSize != fi.UncompressedSize ||
		got.InternalFA != fi.InternalFA ||
		got.ExternalFA != fi.ExternalFA ||
		got.DiskOffset != fi.DiskOffset ||
		got.Filename != fi.Filename ||
		got.Comment != fi.Comment {
		t.Fatalf("parsed record differs: %+v", got)
	}
	if got.ModifiedDate != modified {
		t.Fatalf("modified = %d, want %d", got.ModifiedDate, modified)
	}
	if got.VersionNeeded != zipVersionDefault {
		t.Fatalf("version needed = %d", got.VersionNeeded)
	}
}

func TestLocalHeaderRoundTrip(t *testing.T) {
	fi := &FileInfo{
		CompressionMethod: MethodStore,
		ModifiedDate:      time.Date(2020, 1, 2, 3, 4, 6, 0, time.Local).Unix(),
		CRC:               0x12345678,
		CompressedSize:    10,
		UncompressedSize:  10,
		Filename:          "plain.bin",
	}
	data := emitHeader(t, true, fi)
	if len(data) != localHeaderLen+len(fi.Filename) {
		t.Fatalf("record length = %d", len(data))
	}
	got := parseHeader(t, true, data)
	if got.Filename != fi.Filename || got.CRC != fi.CRC || got.VersionMadeBy != 0 {
		t.Fatalf("parsed record differs: %+v", got)
	}
}

func TestZip64Promotion(t *testing.T) {
	fi := &FileInfo{
		CompressionMethod: MethodStore,
		CompressedSize:    1 << 32,
		UncompressedSize:  1 << 32,
		Filename:          "big",
	}
	data := emitHeader(t, false, fi)

	// The classic fields must carry sentinels.
	if binary.LittleEndian.Uint32(data[20:]) != uint32max {
		t.Fatal("compressed size is not the sentinel")
	}
	if binary.LittleEndian.Uint32(data[24:]) != uint32max {
		t.Fatal("uncompressed size is not the sentinel")
	}

	got := parseHeader(t, false, data)
	if got.UncompressedSize != 1<<32 || got.CompressedSize != 1<<32 {
		t.Fatalf("widened sizes = %d / %d", got.UncompressedSize, got.CompressedSize)
	}
	if got.VersionNeeded != zipVersionZip64 {
		t.Fatalf("version needed = %d, want %d", got.VersionNeeded, zipVersionZip64)
	}
}

func TestZip64NotPromotedBelowLimit(t *testing.T) {
	fi := &FileInfo{
		CompressionMethod: MethodStore,
		CompressedSize:    uint32max - 1,
		UncompressedSize:  uint32max - 1,
		Filename:          "almost",
	}
	data := emitHeader(t, false, fi)
	if len(data) != centralHeaderLen+len(fi.Filename) {
		t.Fatalf("unexpected extra field, record length = %d", len(data))
	}
}

func TestZip64Disabled(t *testing.T) {
	fi := &FileInfo{
		CompressionMethod: MethodStore,
		UncompressedSize:  1 << 32,
		Filename:          "big",
		Zip64:             Zip64Disable,
	}
	m := stream.NewMemStream()
	m.Open(stream.ModeCreate)
	if err := writeHeader(m, false, fi); !errors.Is(err, ErrParam) {
		t.Fatalf("err = %v, want ErrParam", err)
	}
}

func TestZip64Forced(t *testing.T) {
	fi := &FileInfo{
		CompressionMethod: MethodStore,
		CompressedSize:    10,
		UncompressedSize:  10,
		Filename:          "f",
		Zip64:             Zip64Force,
	}
	data := emitHeader(t, false, fi)
	// Forced promotion emits an empty ZIP64 field: header only.
	if len(data) != centralHeaderLen+1+4 {
		t.Fatalf("record length = %d", len(data))
	}
}

func TestNtfsTimestampsRoundTrip(t *testing.T) {
	modified := time.Date(2021, 6, 1, 10, 0, 0, 0, time.Local).Unix()
	fi := &FileInfo{
		CompressionMethod: MethodStore,
		ModifiedDate:      modified,
		AccessedDate:      modified + 60,
		CreationDate:      modified - 60,
		Filename:          "stamped",
	}
	data := emitHeader(t, false, fi)
	got := parseHeader(t, false, data)
	if got.ModifiedDate != fi.ModifiedDate ||
		got.AccessedDate != fi.AccessedDate ||
		got.CreationDate != fi.CreationDate {
		t.Fatalf("timestamps = %d/%d/%d", got.ModifiedDate, got.AccessedDate, got.CreationDate)
	}
}

func TestAESExtraFieldRoundTrip(t *testing.T) {
	fi := &FileInfo{
		Flag:              FlagEncrypted,
		CompressionMethod: MethodDeflate,
		Filename:          "secret",
		AESVersion:        AESVersion2,
		AESEncryptionMode: stream.AESEncryptionMode256,
	}
	data := emitHeader(t, false, fi)

	// The outer method must be the AE stand-in.
	if binary.LittleEndian.Uint16(data[10:]) != MethodAES {
		t.Fatal("outer method is not 99")
	}

	got := parseHeader(t, false, data)
	if got.CompressionMethod != MethodDeflate {
		t.Fatalf("method = %d, want the real method from the extra field", got.CompressionMethod)
	}
	if got.AESVersion != AESVersion2 || got.AESEncryptionMode != stream.AESEncryptionMode256 {
		t.Fatalf("aes fields = %d/%d", got.AESVersion, got.AESEncryptionMode)
	}
	if got.VersionNeeded != zipVersionAES {
		t.Fatalf("version needed = %d", got.VersionNeeded)
	}
}

func TestForeignExtraFieldsPassThrough(t *testing.T) {
	var extra bytes.Buffer
	// An extended-timestamp field the emitter does not own.
	extra.Write([]byte{0x55, 0x54, 5, 0, 1, 2, 3, 4, 5})
	// A caller zip64 field; the emitter owns that type and drops it.
	extra.Write([]byte{0x01, 0x00, 8, 0, 0, 0, 0, 0, 0, 0, 0, 0})

	fi := &FileInfo{
		CompressionMethod: MethodStore,
		Filename:          "x",
		Extrafield:        extra.Bytes(),
	}
	data := emitHeader(t, false, fi)

	got := parseHeader(t, false, data)
	want := []byte{0x55, 0x54, 5, 0, 1, 2, 3, 4, 5}
	if !bytes.Equal(got.Extrafield, want) {
		t.Fatalf("extra field = %x, want %x", got.Extrafield, want)
	}
}

func TestCallerAESFieldIsAuthoritative(t *testing.T) {
	callerAES := []byte{0x01, 0x99, 7, 0, 2, 0, 'A', 'E', 1, 8, 0}
	fi := &FileInfo{
		Flag:              FlagEncrypted,
		CompressionMethod: MethodDeflate,
		Filename:          "s",
		AESVersion:        AESVersion2,
		AESEncryptionMode: stream.AESEncryptionMode256,
		Extrafield:        callerAES,
	}
	data := emitHeader(t, false, fi)

	// Exactly one AES field: the caller's 11 bytes, no emitter duplicate.
	if len(data) != centralHeaderLen+1+len(callerAES) {
		t.Fatalf("record length = %d", len(data))
	}
	got := parseHeader(t, false, data)
	if got.AESEncryptionMode != 1 {
		t.Fatalf("aes mode = %d, want the caller's", got.AESEncryptionMode)
	}
}

func TestDirectorySlashNormalisation(t *testing.T) {
	madeBy := uint16(HostSystemUnix) << 8
	tests := []struct {
		name string
		want string
	}{
		{"subdir", "subdir/"},
		{"subdir/", "subdir/"},
		{"subdir\\", "subdir/"},
	}
	for _, tt := range tests {
		fi := &FileInfo{
			VersionMadeBy:     madeBy,
			CompressionMethod: MethodStore,
			ExternalFA:        posixModeDir | 0755,
			Filename:          tt.name,
		}
		got := parseHeader(t, false, emitHeader(t, false, fi))
		if got.Filename != tt.want {
			t.Errorf("%q emitted as %q, want %q", tt.name, got.Filename, tt.want)
		}
	}
}

func TestUnix1AppliedOnlyWhenZero(t *testing.T) {
	// atime 100, mtime 200, uid/gid, no tail.
	unix1 := []byte{0x0d, 0x00, 12, 0, 100, 0, 0, 0, 200, 0, 0, 0, 0, 0, 0, 0}

	fi := &FileInfo{
		CompressionMethod: MethodStore,
		Filename:          "u",
		Extrafield:        unix1,
	}
	got := parseHeader(t, false, emitHeader(t, false, fi))
	if got.AccessedDate != 100 || got.ModifiedDate != 200 {
		t.Fatalf("unix1 times = %d/%d", got.AccessedDate, got.ModifiedDate)
	}

	// With a DOS modified time already present, only atime applies.
	modified := time.Date(2019, 8, 2, 6, 30, 0, 0, time.Local).Unix()
	fi.ModifiedDate = modified
	got = parseHeader(t, false, emitHeader(t, false, fi))
	if got.AccessedDate != 100 {
		t.Fatalf("atime = %d", got.AccessedDate)
	}
	if got.ModifiedDate != modified {
		t.Fatalf("mtime overwritten to %d", got.ModifiedDate)
	}
}

func TestUnix1ShortFieldTolerated(t *testing.T) {
	// A 4-byte UNIX1 field carries only the atime; the skip clamps at zero.
	unix1 := []byte{0x0d, 0x00, 4, 0, 100, 0, 0, 0}
	fi := &FileInfo{
		CompressionMethod: MethodStore,
		Filename:          "u",
		Extrafield:        unix1,
	}
	got := parseHeader(t, false, emitHeader(t, false, fi))
	if got.AccessedDate != 100 {
		t.Fatalf("atime = %d", got.AccessedDate)
	}
}

func TestReadHeaderEndOfList(t *testing.T) {
	m := stream.NewMemStream()
	m.Open(stream.ModeCreate)
	stream.WriteUint32(m, endHeaderSignature)
	m.Seek(0, io.SeekStart)

	var fi FileInfo
	if err := readHeader(m, false, &fi, stream.NewMemStream()); !errors.Is(err, ErrEndOfList) {
		t.Fatalf("err = %v, want ErrEndOfList", err)
	}

	empty := stream.NewMemStream()
	empty.Open(stream.ModeCreate)
	if err := readHeader(empty, false, &fi, stream.NewMemStream()); !errors.Is(err, ErrEndOfList) {
		t.Fatalf("empty stream err = %v, want ErrEndOfList", err)
	}
}

func TestReadHeaderBadMagic(t *testing.T) {
	m := stream.NewMemStream()
	m.Open(stream.ModeCreate)
	stream.WriteUint32(m, 0x12345678)
	m.Seek(0, io.SeekStart)

	var fi FileInfo
	if err := readHeader(m, false, &fi, stream.NewMemStream()); !errors.Is(err, ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", err)
	}
}
