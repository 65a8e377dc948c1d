package zip

import "unicode/utf8"

// FileInfo describes one archive entry. On read it is filled from the
// central (or local) header; on write the caller fills the descriptive
// fields and the library computes sizes and CRC.
type FileInfo struct {
	VersionMadeBy     uint16
	VersionNeeded     uint16
	Flag              uint16
	CompressionMethod uint16

	// Timestamps in POSIX epoch seconds.
	ModifiedDate int64
	AccessedDate int64
	CreationDate int64

	CRC              uint32
	CompressedSize   uint64
	UncompressedSize uint64

	FilenameSize   uint16
	ExtrafieldSize uint16
	CommentSize    uint16

	DiskNumber uint32
	InternalFA uint16
	ExternalFA uint32
	DiskOffset uint64

	Filename string
	// Extrafield holds the raw TLV bytes. After a scan it borrows the
	// archive's scratch buffer and is only valid until the next scan.
	Extrafield []byte
	Comment    string

	AESVersion        uint16
	AESEncryptionMode uint8

	Zip64 Zip64Policy
}

// detectUTF8 reports whether s is a valid UTF-8 string, and whether the string
// must be considered UTF-8 encoding (i.e., not compatible with CP-437, ASCII,
// or any other common encoding).
func detectUTF8(s string) (valid, require bool) {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		// Officially, ZIP uses CP-437, but many readers use the system's
		// local character encoding. Most encoding are compatible with a large
		// subset of CP-437, which itself is ASCII-like.
		//
		// Forbid 0x7e and 0x5c since EUC-KR and Shift-JIS replace those
		// characters with localized currency and overline characters.
		if r < 0x20 || r > 0x7d || r == 0x5c {
			if !utf8.ValidRune(r) || (r == utf8.RuneError && size == 1) {
				return false, false
			}
			require = true
		}
	}
	return true, require
}
