package zip

import (
	stderrors "errors"
	"io"

	"github.com/abe-nagisa/zipcore/stream"
	"github.com/pkg/errors"
)

// openEntryInt builds the pipeline for the scanned entry: CRC32 tap over the
// compressor over the encryption layer over storage. Raw mode substitutes
// pass-through layers so the payload moves verbatim.
func (a *Archive) openEntryInt(raw bool, compressLevel int, password string) error {
	switch a.fileInfo.CompressionMethod {
	case MethodStore, MethodDeflate, MethodBzip2, MethodLZMA, MethodZstd:
	default:
		return errors.Wrapf(ErrSupport, "compression method %d", a.fileInfo.CompressionMethod)
	}

	a.entryRaw = raw

	useCrypt := false
	if a.fileInfo.Flag&FlagEncrypted != 0 && password != "" {
		if a.openMode&ModeWrite != 0 {
			// Encrypt only when not writing raw.
			useCrypt = !raw
		} else if a.openMode&ModeRead != 0 {
			// No password on read is not an error; the caller may want the
			// raw encrypted bytes.
			useCrypt = true
		}
	}

	if useCrypt {
		if a.fileInfo.AESVersion != 0 {
			aesStream := stream.NewAESStream()
			aesStream.SetPassword(password)
			aesStream.SetEncryptionMode(int(a.fileInfo.AESEncryptionMode))
			a.cryptStream = aesStream
		} else {
			// Info-ZIP variant: with a data descriptor the verifier derives
			// from the DOS time instead of the yet-unknown CRC.
			var verify1, verify2 byte
			if a.fileInfo.Flag&FlagDataDescriptor != 0 {
				dosDate := UnixTimeToDosDate(a.fileInfo.ModifiedDate)
				verify1 = byte(dosDate >> 16)
				verify2 = byte(dosDate >> 8)
			} else {
				verify1 = byte(a.fileInfo.CRC >> 16)
				verify2 = byte(a.fileInfo.CRC >> 24)
			}
			pkStream := stream.NewPKCryptStream()
			pkStream.SetPassword(password)
			pkStream.SetVerify(verify1, verify2)
			a.cryptStream = pkStream
		}
	} else {
		a.cryptStream = stream.NewRawStream()
	}
	a.cryptStream.SetBase(a.stream)

	if a.entryRaw || a.fileInfo.CompressionMethod == MethodStore {
		a.compressStream = stream.NewRawStream()
	} else {
		switch a.fileInfo.CompressionMethod {
		case MethodDeflate:
			a.compressStream = stream.NewDeflateStream()
		case MethodBzip2:
			a.compressStream = stream.NewBzip2Stream()
		case MethodLZMA:
			a.compressStream = stream.NewLZMAStream()
		case MethodZstd:
			a.compressStream = stream.NewZstdStream()
		}
	}

	if a.openMode&ModeWrite != 0 {
		a.compressStream.SetProp(stream.PropCompressLevel, int64(compressLevel))
	} else {
		maxTotalIn := int64(a.fileInfo.CompressedSize)
		a.cryptStream.SetProp(stream.PropTotalInMax, maxTotalIn)

		if headerSize, err := a.cryptStream.GetProp(stream.PropHeaderSize); err == nil {
			maxTotalIn -= headerSize
		}
		if footerSize, err := a.cryptStream.GetProp(stream.PropFooterSize); err == nil {
			maxTotalIn -= footerSize
		}
		a.compressStream.SetProp(stream.PropTotalInMax, maxTotalIn)
		if a.fileInfo.CompressionMethod == MethodLZMA && a.fileInfo.Flag&FlagLZMAEOSMarker == 0 {
			a.compressStream.SetProp(stream.PropTotalInMax, int64(a.fileInfo.CompressedSize))
			a.compressStream.SetProp(stream.PropTotalOutMax, int64(a.fileInfo.UncompressedSize))
		}
	}

	if err := a.cryptStream.Open(a.openMode); err != nil {
		a.cryptStream = nil
		a.compressStream = nil
		if stderrors.Is(err, stream.ErrVerify) {
			return errors.Wrap(ErrCRC, err.Error())
		}
		return err
	}

	a.compressStream.SetBase(a.cryptStream)
	if err := a.compressStream.Open(a.openMode); err != nil {
		a.cryptStream = nil
		a.compressStream = nil
		return err
	}

	a.crcStream = stream.NewCRC32Stream()
	a.crcStream.SetBase(a.compressStream)
	if err := a.crcStream.Open(a.openMode); err != nil {
		a.cryptStream = nil
		a.compressStream = nil
		a.crcStream = nil
		return err
	}

	a.entryOpened = true
	return nil
}

// EntryIsOpen reports whether an entry payload pipeline is live.
func (a *Archive) EntryIsOpen() bool {
	return a != nil && a.entryOpened
}

// EntryIsDir reports whether the scanned entry is a directory, by attributes
// or by a trailing slash.
func (a *Archive) EntryIsDir() (bool, error) {
	if a == nil || !a.entryScanned {
		return false, errors.Wrap(ErrParam, "no entry scanned")
	}
	if AttribIsDir(a.fileInfo.ExternalFA, a.fileInfo.VersionMadeBy) {
		return true, nil
	}
	name := a.fileInfo.Filename
	if len(name) > 0 {
		last := name[len(name)-1]
		if last == '/' || last == '\\' {
			return true, nil
		}
	}
	return false, nil
}

// EntryInfo exposes the scanned entry's record. The pointed-to record is
// overwritten by the next scan.
func (a *Archive) EntryInfo() (*FileInfo, error) {
	if a == nil || !a.entryScanned {
		return nil, errors.Wrap(ErrParam, "no entry scanned")
	}
	return &a.fileInfo, nil
}

// EntryLocalInfo exposes the local-header view of the open entry.
func (a *Archive) EntryLocalInfo() (*FileInfo, error) {
	if !a.EntryIsOpen() {
		return nil, errors.Wrap(ErrParam, "no entry open")
	}
	return &a.localFileInfo, nil
}

// EntryReadOpen opens the scanned entry's payload for reading. With raw set
// the payload is not decompressed; it is still decrypted when a password is
// given, and comes back exactly as stored when none is. An encrypted entry
// without a password can only be opened raw.
func (a *Archive) EntryReadOpen(raw bool, password string) error {
	if a == nil {
		return errors.Wrap(ErrParam, "nil archive")
	}
	if a.openMode&ModeRead == 0 {
		return errors.Wrap(ErrParam, "archive not open for read")
	}
	if !a.entryScanned {
		return errors.Wrap(ErrParam, "no entry scanned")
	}
	if a.fileInfo.Flag&FlagEncrypted != 0 && password == "" && !raw {
		return errors.Wrap(ErrParam, "password required")
	}

	if a.fileInfo.DiskNumber == a.diskNumberWithCD {
		a.stream.SetProp(stream.PropDiskNumber, -1)
	} else {
		a.stream.SetProp(stream.PropDiskNumber, int64(a.fileInfo.DiskNumber))
	}

	if _, err := a.stream.Seek(int64(a.fileInfo.DiskOffset+a.diskOffsetShift), io.SeekStart); err != nil {
		return errors.Wrap(ErrStream, err.Error())
	}
	if err := readHeader(a.stream, true, &a.localFileInfo, a.localFileInfoScratch); err != nil {
		return err
	}

	return a.openEntryInt(raw, 0, password)
}

// EntryWriteOpen starts a new entry described by fi at the stream's current
// position, writing its local header. A non-empty password enables
// encryption; level zero or a directory forces the store method.
func (a *Archive) EntryWriteOpen(fi *FileInfo, compressLevel int, raw bool, password string) error {
	if a == nil || fi == nil || fi.Filename == "" {
		return errors.Wrap(ErrParam, "missing file info")
	}

	if a.EntryIsOpen() {
		if err := a.EntryClose(); err != nil {
			return err
		}
	}

	a.fileInfo = *fi
	a.fileInfo.Extrafield = append([]byte(nil), fi.Extrafield...)

	if a.fileInfo.CompressionMethod == MethodDeflate {
		switch compressLevel {
		case 8, 9:
			a.fileInfo.Flag |= FlagDeflateMax
		case 2:
			a.fileInfo.Flag |= FlagDeflateFast
		case 1:
			a.fileInfo.Flag |= FlagDeflateSuperFast
		}
	} else if a.fileInfo.CompressionMethod == MethodLZMA {
		a.fileInfo.Flag |= FlagLZMAEOSMarker
	}

	a.fileInfo.Flag |= FlagDataDescriptor
	if password != "" {
		a.fileInfo.Flag |= FlagEncrypted
	}

	if valid, require := detectUTF8(a.fileInfo.Filename); valid && require {
		a.fileInfo.Flag |= FlagUTF8
	}

	if diskNumber, err := a.stream.GetProp(stream.PropDiskNumber); err == nil && diskNumber >= 0 {
		a.fileInfo.DiskNumber = uint32(diskNumber)
	}

	a.fileInfo.DiskOffset = uint64(a.stream.Tell())
	a.fileInfo.CRC = 0
	a.fileInfo.CompressedSize = 0

	if a.fileInfo.AESVersion != 0 && a.fileInfo.AESEncryptionMode == 0 {
		a.fileInfo.AESEncryptionMode = stream.AESEncryptionMode256
	}

	if compressLevel == 0 || AttribIsDir(a.fileInfo.ExternalFA, a.fileInfo.VersionMadeBy) {
		a.fileInfo.CompressionMethod = MethodStore
	}

	if err := writeHeader(a.stream, true, &a.fileInfo); err != nil {
		return err
	}
	return a.openEntryInt(raw, compressLevel, password)
}

// EntryRead reads decompressed payload bytes from the open entry.
func (a *Archive) EntryRead(p []byte) (int, error) {
	if !a.EntryIsOpen() {
		return 0, errors.Wrap(ErrParam, "no entry open")
	}
	if a.fileInfo.CompressedSize == 0 {
		return 0, io.EOF
	}
	return a.crcStream.Read(p)
}

// EntryWrite writes payload bytes into the open entry.
func (a *Archive) EntryWrite(p []byte) (int, error) {
	if !a.EntryIsOpen() {
		return 0, errors.Wrap(ErrParam, "no entry open")
	}
	return a.crcStream.Write(p)
}

// EntryClose finishes the open entry.
func (a *Archive) EntryClose() error {
	return a.EntryCloseRaw(0, 0)
}

// EntryCloseRaw finishes the open entry, taking the uncompressed size and CRC
// from the caller when the entry was written raw. In write mode the data
// descriptor is emitted and the central record staged; in read mode a fully
// drained payload is checked against the stored CRC.
func (a *Archive) EntryCloseRaw(uncompressedSize uint64, crc uint32) error {
	if !a.EntryIsOpen() {
		return errors.Wrap(ErrParam, "no entry open")
	}

	err := a.compressStream.Close()

	if !a.entryRaw {
		crc = a.crcStream.Value()
	}

	if a.openMode&ModeWrite == 0 {
		// AE-2 omits the CRC; the HMAC has already authenticated the data.
		if a.fileInfo.AESVersion < AESVersion2 {
			totalIn, _ := a.crcStream.GetProp(stream.PropTotalIn)
			if totalIn > 0 && totalIn == int64(a.fileInfo.UncompressedSize) && !a.entryRaw && err == nil {
				if crc != a.fileInfo.CRC {
					err = errors.Wrapf(ErrCRC, "computed %08x, stored %08x", crc, a.fileInfo.CRC)
				}
			}
		}
	}

	var compressedSize uint64
	if total, perr := a.compressStream.GetProp(stream.PropTotalOut); perr == nil {
		compressedSize = uint64(total)
	}
	if !a.entryRaw {
		if total, perr := a.crcStream.GetProp(stream.PropTotalOut); perr == nil {
			uncompressedSize = uint64(total)
		}
	}

	if a.fileInfo.Flag&FlagEncrypted != 0 {
		if cerr := a.cryptStream.Close(); cerr != nil {
			if stderrors.Is(cerr, stream.ErrVerify) {
				cerr = errors.Wrap(ErrCRC, cerr.Error())
			}
			if err == nil {
				err = cerr
			}
		}
		if total, perr := a.cryptStream.GetProp(stream.PropTotalOut); perr == nil && total > 0 {
			compressedSize = uint64(total)
		}
	}

	a.cryptStream = nil
	a.compressStream = nil
	a.crcStream = nil

	if a.openMode&ModeWrite != 0 && err == nil {
		w := &fieldWriter{s: a.stream}
		w.uint32(dataDescriptorSignature)
		w.uint32(crc)
		// Sizes widen to 8 bytes when the uncompressed size declared at
		// entry-open time is above 0xFFFFFFFF.
		if a.fileInfo.UncompressedSize <= uint32max {
			w.uint32(uint32(compressedSize))
			w.uint32(uint32(uncompressedSize))
		} else {
			w.uint64(compressedSize)
			w.uint64(uncompressedSize)
		}
		err = w.err

		a.fileInfo.CRC = crc
		a.fileInfo.CompressedSize = compressedSize
		a.fileInfo.UncompressedSize = uncompressedSize

		if err == nil {
			// The cursor may have moved the staging stream; records always
			// append at its end.
			if _, err = a.cdMemStream.Seek(0, io.SeekEnd); err == nil {
				err = writeHeader(a.cdMemStream, false, &a.fileInfo)
			}
		}
		if err == nil {
			a.numberEntry++
		}
	}

	a.entryOpened = false
	return err
}
