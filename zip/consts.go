package zip

// Compression methods.
const (
	MethodStore   uint16 = 0  // no compression
	MethodDeflate uint16 = 8  // DEFLATE compressed
	MethodBzip2   uint16 = 12 // bzip2
	MethodLZMA    uint16 = 14 // LZMA (EOS marker controlled by FlagLZMAEOSMarker)
	MethodZstd    uint16 = 93 // zstandard
	MethodAES     uint16 = 99 // AE-x stand-in; real method lives in the AES extra field
)

const (
	localHeaderSignature    = 0x04034b50
	centralHeaderSignature  = 0x02014b50
	endHeaderSignature      = 0x06054b50
	endHeader64Signature    = 0x06064b50
	endLocHeader64Signature = 0x07064b50
	dataDescriptorSignature = 0x08074b50

	localHeaderLen    = 30 // + filename + extra
	centralHeaderLen  = 46 // + filename + extra + comment
	endHeaderLen      = 22 // + comment
	endLocHeader64Len = 20
	dataDescriptorLen = 16 // four uint32: signature, crc32, compressed size, size
	maxCommentSize    = 65535

	// Version numbers.
	zipVersionDefault = 20 // 2.0
	zipVersionZip64   = 45 // 4.5 (reads and writes zip64 archives)
	zipVersionAES     = 51 // 5.1 (AE-x encryption)
	zipVersionLZMA    = 63 // 6.3 (LZMA)

	// Limits for non zip64 fields.
	uint16max = (1 << 16) - 1
	uint32max = (1 << 32) - 1

	// Extra header IDs.
	//
	// IDs 0..31 are reserved for official use by PKWARE; 0x9901 is the
	// WinZip AES vendor ID.
	zip64ExtraID = 0x0001 // Zip64 extended information
	ntfsExtraID  = 0x000a // NTFS timestamps
	unix1ExtraID = 0x000d // UNIX type 1 (atime/mtime/uid/gid)
	aesExtraID   = 0x9901 // WinZip AE-x
)

// General purpose bit flags.
const (
	FlagEncrypted        uint16 = 1 << 0
	FlagLZMAEOSMarker    uint16 = 1 << 1
	FlagDeflateMax       uint16 = 1 << 1
	FlagDeflateFast      uint16 = 1 << 2
	FlagDataDescriptor   uint16 = 1 << 3
	FlagDeflateSuperFast uint16 = (1 << 1) | (1 << 2)
	FlagUTF8             uint16 = 1 << 11
)

// Host systems, the high byte of "version made by".
const (
	HostSystemMSDOS       = 0
	HostSystemUnix        = 3
	HostSystemWindowsNTFS = 10
	HostSystemDarwin      = 19
)

// HostSystem extracts the host system from a version-made-by field.
func HostSystem(versionMadeBy uint16) uint8 {
	return uint8(versionMadeBy >> 8)
}

// Windows file attribute bits.
const (
	fileAttributeReadonly     = 0x01
	fileAttributeDirectory    = 0x10
	fileAttributeNormal       = 0x80
	fileAttributeReparsePoint = 0x400
)

// POSIX mode bits, kept numeric so the codec does not depend on any
// particular host's syscall package.
const (
	posixModeFmt  = 0170000
	posixModeDir  = 0040000
	posixModeReg  = 0100000
	posixModeLink = 0120000
)

// AES versions carried by the 0x9901 extra field.
const (
	AESVersion1 uint16 = 1 // AE-1, CRC present and checked
	AESVersion2 uint16 = 2 // AE-2, CRC not checked on read; HMAC authenticates
)

// Zip64Policy controls emission of the ZIP64 extra field for an entry.
type Zip64Policy int

const (
	Zip64Auto Zip64Policy = iota
	Zip64Force
	Zip64Disable
)
