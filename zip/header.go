package zip

import (
	"encoding/binary"
	"io"

	"github.com/abe-nagisa/zipcore/stream"
	"github.com/pkg/errors"
)

// readBuf is a little-endian cursor over a byte slice.
type readBuf []byte

func (b *readBuf) uint8() uint8 {
	v := (*b)[0]
	*b = (*b)[1:]
	return v
}

func (b *readBuf) uint16() uint16 {
	v := binary.LittleEndian.Uint16(*b)
	*b = (*b)[2:]
	return v
}

func (b *readBuf) uint32() uint32 {
	v := binary.LittleEndian.Uint32(*b)
	*b = (*b)[4:]
	return v
}

func (b *readBuf) uint64() uint64 {
	v := binary.LittleEndian.Uint64(*b)
	*b = (*b)[8:]
	return v
}

func (b *readBuf) sub(n int) readBuf {
	b2 := (*b)[:n]
	*b = (*b)[n:]
	return b2
}

// fieldWriter chains little-endian writes to a stream, latching the first
// error.
type fieldWriter struct {
	s   stream.Stream
	err error
}

func (w *fieldWriter) uint8(v uint8) {
	if w.err == nil {
		w.err = stream.WriteUint8(w.s, v)
	}
}

func (w *fieldWriter) uint16(v uint16) {
	if w.err == nil {
		w.err = stream.WriteUint16(w.s, v)
	}
}

func (w *fieldWriter) uint32(v uint32) {
	if w.err == nil {
		w.err = stream.WriteUint32(w.s, v)
	}
}

func (w *fieldWriter) uint64(v uint64) {
	if w.err == nil {
		w.err = stream.WriteUint64(w.s, v)
	}
}

func (w *fieldWriter) bytes(p []byte) {
	if w.err == nil {
		w.err = stream.WriteFull(w.s, p)
	}
}

// readHeader parses a local or central record at the stream's position into
// fi. Hitting an end-of-central-directory signature while scanning central
// records terminates with ErrEndOfList. Filename, extra field and comment
// bytes are staged in scratch; the strings are copied out, the extra-field
// slice borrows scratch until the next scan.
func readHeader(s stream.Stream, local bool, fi *FileInfo, scratch *stream.MemStream) error {
	*fi = FileInfo{}

	magic, err := stream.ReadUint32(s)
	switch {
	case err == io.EOF:
		return ErrEndOfList
	case err != nil:
		return errors.Wrap(ErrStream, err.Error())
	case magic == endHeaderSignature || magic == endHeader64Signature:
		return ErrEndOfList
	case local && magic != localHeaderSignature:
		return errors.Wrapf(ErrFormat, "unexpected magic %08x", magic)
	case !local && magic != centralHeaderSignature:
		return errors.Wrapf(ErrFormat, "unexpected magic %08x", magic)
	}

	fixedLen := localHeaderLen - 4
	if !local {
		fixedLen = centralHeaderLen - 4
	}
	fixed := make([]byte, fixedLen)
	if err := stream.ReadFull(s, fixed); err != nil {
		return errors.Wrap(ErrStream, err.Error())
	}
	b := readBuf(fixed)

	if !local {
		fi.VersionMadeBy = b.uint16()
	}
	fi.VersionNeeded = b.uint16()
	fi.Flag = b.uint16()
	fi.CompressionMethod = b.uint16()
	if dosDate := b.uint32(); dosDate != 0 {
		fi.ModifiedDate = DosDateToUnixTime(dosDate)
	}
	fi.CRC = b.uint32()
	fi.CompressedSize = uint64(b.uint32())
	fi.UncompressedSize = uint64(b.uint32())
	fi.FilenameSize = b.uint16()
	fi.ExtrafieldSize = b.uint16()
	if !local {
		fi.CommentSize = b.uint16()
		fi.DiskNumber = uint32(b.uint16())
		fi.InternalFA = b.uint16()
		fi.ExternalFA = b.uint32()
		fi.DiskOffset = uint64(b.uint32())
	}

	// Stage the variable-length tail in the scratch buffer, zero-terminated
	// per section so the slices stay stable until the next scan.
	if err := scratch.Open(stream.ModeCreate); err != nil {
		return err
	}
	total := int64(fi.FilenameSize) + int64(fi.ExtrafieldSize) + int64(fi.CommentSize) + 3
	if _, err := scratch.Seek(total, io.SeekStart); err != nil {
		return err
	}
	if _, err := scratch.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := stream.CopyStream(scratch, s, int64(fi.FilenameSize)); err != nil {
		return errors.Wrap(ErrStream, err.Error())
	}
	if err := stream.WriteUint8(scratch, 0); err != nil {
		return err
	}
	if err := stream.CopyStream(scratch, s, int64(fi.ExtrafieldSize)); err != nil {
		return errors.Wrap(ErrStream, err.Error())
	}
	if err := stream.WriteUint8(scratch, 0); err != nil {
		return err
	}
	if err := stream.CopyStream(scratch, s, int64(fi.CommentSize)); err != nil {
		return errors.Wrap(ErrStream, err.Error())
	}
	if err := stream.WriteUint8(scratch, 0); err != nil {
		return err
	}

	buf := scratch.Buffer()
	nameEnd := int(fi.FilenameSize)
	extraStart := nameEnd + 1
	extraEnd := extraStart + int(fi.ExtrafieldSize)
	commentStart := extraEnd + 1
	commentEnd := commentStart + int(fi.CommentSize)
	fi.Filename = string(buf[:nameEnd])
	fi.Extrafield = buf[extraStart:extraEnd]
	fi.Comment = string(buf[commentStart:commentEnd])

	if fi.ExtrafieldSize > 0 {
		if err := parseExtrafield(fi); err != nil {
			return err
		}
	}
	return nil
}

// parseExtrafield walks the TLV area, widening ZIP64 sentinel fields and
// applying NTFS, UNIX1 and AES subfields. Unknown types are skipped.
func parseExtrafield(fi *FileInfo) error {
	b := readBuf(fi.Extrafield)
	for len(b) >= 4 {
		headerID := b.uint16()
		size := int(b.uint16())
		if size > len(b) {
			return errors.Wrap(ErrFormat, "extra field overruns its area")
		}
		field := b.sub(size)

		switch headerID {
		case zip64ExtraID:
			if fi.UncompressedSize == uint32max {
				if len(field) < 8 {
					return errors.Wrap(ErrFormat, "short zip64 extra field")
				}
				fi.UncompressedSize = field.uint64()
			}
			if fi.CompressedSize == uint32max {
				if len(field) < 8 {
					return errors.Wrap(ErrFormat, "short zip64 extra field")
				}
				fi.CompressedSize = field.uint64()
			}
			if fi.DiskOffset == uint32max {
				if len(field) < 8 {
					return errors.Wrap(ErrFormat, "short zip64 extra field")
				}
				fi.DiskOffset = field.uint64()
			}
			if fi.DiskNumber == uint16max {
				if len(field) < 4 {
					return errors.Wrap(ErrFormat, "short zip64 extra field")
				}
				fi.DiskNumber = field.uint32()
			}

		case ntfsExtraID:
			if len(field) < 4 {
				return errors.Wrap(ErrFormat, "short ntfs extra field")
			}
			field.uint32() // reserved
			for len(field) >= 4 {
				attrID := field.uint16()
				attrSize := int(field.uint16())
				if attrSize > len(field) {
					return errors.Wrap(ErrFormat, "ntfs attribute overruns its field")
				}
				attr := field.sub(attrSize)
				if attrID == 0x01 && attrSize == 24 {
					fi.ModifiedDate = NtfsToUnixTime(attr.uint64())
					fi.AccessedDate = NtfsToUnixTime(attr.uint64())
					fi.CreationDate = NtfsToUnixTime(attr.uint64())
				}
			}

		case unix1ExtraID:
			// atime, mtime, then uid/gid and a variable tail, all ignored.
			if len(field) >= 4 {
				atime := int64(field.uint32())
				if fi.AccessedDate == 0 {
					fi.AccessedDate = atime
				}
			}
			if len(field) >= 4 {
				mtime := int64(field.uint32())
				if fi.ModifiedDate == 0 {
					fi.ModifiedDate = mtime
				}
			}

		case aesExtraID:
			if len(field) < 7 {
				return errors.Wrap(ErrFormat, "short aes extra field")
			}
			version := field.uint16()
			if version != AESVersion1 && version != AESVersion2 {
				return errors.Wrap(ErrFormat, "unsupported aes version")
			}
			fi.AESVersion = version
			if field.uint8() != 'A' || field.uint8() != 'E' {
				return errors.Wrap(ErrFormat, "bad aes marker")
			}
			fi.AESEncryptionMode = field.uint8()
			// The outer method was the AE stand-in; the real one is here.
			fi.CompressionMethod = field.uint16()
		}
	}
	return nil
}

// writeHeader emits a local or central record for fi. The ZIP64, NTFS and
// AES subfields are recomputed from the logical record; caller-supplied extra
// fields pass through except those the emitter owns, and a caller-supplied
// AES subfield suppresses the emitter's own.
func writeHeader(s stream.Stream, local bool, fi *FileInfo) error {
	var zip64FieldSize uint16
	if fi.UncompressedSize >= uint32max {
		zip64FieldSize += 8
	}
	if fi.CompressedSize >= uint32max {
		zip64FieldSize += 8
	}
	if fi.DiskOffset >= uint32max {
		zip64FieldSize += 8
	}

	var zip64 bool
	switch fi.Zip64 {
	case Zip64Auto:
		// Unknown uncompressed size promotes the local header so the data
		// descriptor may carry 64-bit sizes.
		zip64 = (local && fi.UncompressedSize == 0) || zip64FieldSize > 0
	case Zip64Force:
		zip64 = true
	case Zip64Disable:
		if zip64FieldSize > 0 {
			return errors.Wrap(ErrParam, "entry requires zip64 but it is disabled")
		}
	}

	var extrafieldSize uint16
	if zip64 {
		extrafieldSize += 4 + zip64FieldSize
	}

	// Size up caller-supplied fields, dropping the ones the emitter owns.
	var skipAES bool
	foreign := readBuf(fi.Extrafield)
	for len(foreign) >= 4 {
		fieldType := foreign.uint16()
		fieldLength := int(foreign.uint16())
		if fieldLength > len(foreign) {
			break
		}
		foreign.sub(fieldLength)
		if fieldType == aesExtraID {
			skipAES = true
		}
		if fieldType != zip64ExtraID && fieldType != ntfsExtraID {
			extrafieldSize += uint16(4 + fieldLength)
		}
	}

	writeAES := !skipAES && fi.Flag&FlagEncrypted != 0 && fi.AESVersion != 0
	if writeAES {
		extrafieldSize += 4 + 7
	}

	var ntfsFieldSize uint16
	if fi.ModifiedDate != 0 && fi.AccessedDate != 0 && fi.CreationDate != 0 {
		ntfsFieldSize = 8 + 8 + 8 + 4 + 2 + 2
		extrafieldSize += 4 + ntfsFieldSize
	}

	w := &fieldWriter{s: s}
	if local {
		w.uint32(localHeaderSignature)
	} else {
		w.uint32(centralHeaderSignature)
		w.uint16(fi.VersionMadeBy)
	}

	versionNeeded := fi.VersionNeeded
	if versionNeeded == 0 {
		versionNeeded = zipVersionDefault
		if zip64 {
			versionNeeded = zipVersionZip64
		}
		if fi.Flag&FlagEncrypted != 0 && fi.AESVersion != 0 {
			versionNeeded = zipVersionAES
		}
		if fi.CompressionMethod == MethodLZMA {
			versionNeeded = zipVersionLZMA
		}
	}
	w.uint16(versionNeeded)
	w.uint16(fi.Flag)
	if fi.AESVersion != 0 {
		w.uint16(MethodAES)
	} else {
		w.uint16(fi.CompressionMethod)
	}
	var dosDate uint32
	if fi.ModifiedDate != 0 {
		dosDate = UnixTimeToDosDate(fi.ModifiedDate)
	}
	w.uint32(dosDate)
	w.uint32(fi.CRC)
	if fi.CompressedSize >= uint32max {
		w.uint32(uint32max)
	} else {
		w.uint32(uint32(fi.CompressedSize))
	}
	if fi.UncompressedSize >= uint32max {
		w.uint32(uint32max)
	} else {
		w.uint32(uint32(fi.UncompressedSize))
	}

	// Directories carry a trailing slash for compatibility; a backslash is
	// normalised, a missing slash appended.
	filename := fi.Filename
	filenameSize := uint16(len(filename))
	isDir := AttribIsDir(fi.ExternalFA, fi.VersionMadeBy)
	if isDir && len(filename) > 0 {
		last := filename[len(filename)-1]
		if last == '/' || last == '\\' {
			filename = filename[:len(filename)-1]
		} else {
			filenameSize++
		}
	}
	w.uint16(filenameSize)
	w.uint16(extrafieldSize)

	if !local {
		w.uint16(uint16(len(fi.Comment)))
		w.uint16(uint16(fi.DiskNumber))
		w.uint16(fi.InternalFA)
		w.uint32(fi.ExternalFA)
		if fi.DiskOffset >= uint32max {
			w.uint32(uint32max)
		} else {
			w.uint32(uint32(fi.DiskOffset))
		}
	}

	w.bytes([]byte(filename))
	if isDir && len(filename) > 0 {
		w.uint8('/')
	}

	foreign = readBuf(fi.Extrafield)
	for w.err == nil && len(foreign) >= 4 {
		fieldType := foreign.uint16()
		fieldLength := int(foreign.uint16())
		if fieldLength > len(foreign) {
			break
		}
		field := foreign.sub(fieldLength)
		if fieldType == zip64ExtraID || fieldType == ntfsExtraID {
			continue
		}
		w.uint16(fieldType)
		w.uint16(uint16(fieldLength))
		w.bytes(field)
	}

	if zip64 {
		w.uint16(zip64ExtraID)
		w.uint16(zip64FieldSize)
		if fi.UncompressedSize >= uint32max {
			w.uint64(fi.UncompressedSize)
		}
		if fi.CompressedSize >= uint32max {
			w.uint64(fi.CompressedSize)
		}
		if fi.DiskOffset >= uint32max {
			w.uint64(fi.DiskOffset)
		}
	}

	if ntfsFieldSize > 0 {
		w.uint16(ntfsExtraID)
		w.uint16(ntfsFieldSize)
		w.uint32(0) // reserved
		w.uint16(0x01)
		w.uint16(ntfsFieldSize - 8)
		w.uint64(UnixTimeToNtfs(fi.ModifiedDate))
		w.uint64(UnixTimeToNtfs(fi.AccessedDate))
		w.uint64(UnixTimeToNtfs(fi.CreationDate))
	}

	if writeAES {
		w.uint16(aesExtraID)
		w.uint16(7)
		w.uint16(fi.AESVersion)
		w.uint8('A')
		w.uint8('E')
		w.uint8(fi.AESEncryptionMode)
		w.uint16(fi.CompressionMethod)
	}

	if !local && len(fi.Comment) > 0 {
		w.bytes([]byte(fi.Comment))
	}

	return w.err
}
