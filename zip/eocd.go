package zip

import (
	"io"

	"github.com/abe-nagisa/zipcore/stream"
	"github.com/pkg/errors"
)

// searchEOCD locates the classic end-of-central-directory signature by
// scanning the last min(fileSize, 65535+22) bytes backwards in overlapping
// windows. The first signature found from the end wins.
func searchEOCD(s stream.Stream) (uint64, error) {
	buf := make([]byte, 1024+4)

	fileSize, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, errors.Wrap(ErrStream, err.Error())
	}

	maxBack := int64(maxCommentSize + endHeaderLen)
	if maxBack > fileSize {
		maxBack = fileSize
	}

	var backRead int64
	for backRead < maxBack {
		backRead += int64(len(buf) - 4)
		if backRead > maxBack {
			backRead = maxBack
		}
		readPos := fileSize - backRead
		readSize := int64(len(buf))
		if readSize > fileSize-readPos {
			readSize = fileSize - readPos
		}
		if _, err := s.Seek(readPos, io.SeekStart); err != nil {
			return 0, errors.Wrap(ErrStream, err.Error())
		}
		if err := stream.ReadFull(s, buf[:readSize]); err != nil {
			return 0, errors.Wrap(ErrStream, err.Error())
		}
		for i := readSize - 4; i >= 0; i-- {
			if buf[i] == 'P' && buf[i+1] == 'K' && buf[i+2] == 0x05 && buf[i+3] == 0x06 {
				return uint64(readPos + i), nil
			}
		}
	}

	return 0, errors.Wrap(ErrFormat, "end of central directory not found")
}

// searchZip64EOCD follows the ZIP64 locator expected just before the classic
// record and validates the ZIP64 end-of-central-directory signature it points
// at.
func searchZip64EOCD(s stream.Stream, eocdPos uint64) (uint64, error) {
	if eocdPos < endLocHeader64Len {
		return 0, errors.Wrap(ErrFormat, "no room for zip64 locator")
	}
	if _, err := s.Seek(int64(eocdPos)-endLocHeader64Len, io.SeekStart); err != nil {
		return 0, errors.Wrap(ErrStream, err.Error())
	}
	sig, err := stream.ReadUint32(s)
	if err != nil {
		return 0, errors.Wrap(ErrStream, err.Error())
	}
	if sig != endLocHeader64Signature {
		return 0, errors.Wrap(ErrFormat, "zip64 locator not found")
	}
	if _, err := stream.ReadUint32(s); err != nil { // disk with the zip64 eocd
		return 0, errors.Wrap(ErrStream, err.Error())
	}
	offset, err := stream.ReadUint64(s)
	if err != nil {
		return 0, errors.Wrap(ErrStream, err.Error())
	}
	if _, err := stream.ReadUint32(s); err != nil { // total number of disks
		return 0, errors.Wrap(ErrStream, err.Error())
	}
	if _, err := s.Seek(int64(offset), io.SeekStart); err != nil {
		return 0, errors.Wrap(ErrStream, err.Error())
	}
	sig, err = stream.ReadUint32(s)
	if err != nil {
		return 0, errors.Wrap(ErrStream, err.Error())
	}
	if sig != endHeader64Signature {
		return 0, errors.Wrap(ErrFormat, "zip64 end of central directory not found")
	}
	return offset, nil
}

// readCentralDirectory resolves the central directory extents from the EOCD
// chain, upgrading to ZIP64 when the classic record carries sentinels and
// compensating for producers that stored offsets relative to the wrong
// origin.
func (a *Archive) readCentralDirectory() error {
	eocdPos, err := searchEOCD(a.stream)
	if err != nil {
		return err
	}

	if _, err := a.stream.Seek(int64(eocdPos)+4, io.SeekStart); err != nil {
		return errors.Wrap(ErrStream, err.Error())
	}
	fixed := make([]byte, endHeaderLen-4)
	if err := stream.ReadFull(a.stream, fixed); err != nil {
		return errors.Wrap(ErrStream, err.Error())
	}
	b := readBuf(fixed)
	b.uint16() // number of this disk
	a.diskNumberWithCD = uint32(b.uint16())
	entriesThisDisk := uint64(b.uint16())
	entriesTotal := uint64(b.uint16())
	a.cdSize = uint64(b.uint32())
	a.cdOffset = uint64(b.uint32())
	commentSize := b.uint16()

	if entriesThisDisk != entriesTotal {
		return errors.Wrap(ErrFormat, "inconsistent entry counts")
	}
	a.numberEntry = int64(entriesThisDisk)

	if commentSize > 0 {
		comment := make([]byte, commentSize)
		if err := stream.ReadFull(a.stream, comment); err != nil {
			return errors.Wrap(ErrStream, err.Error())
		}
		a.comment = string(comment)
		a.hasComment = true
	}

	if entriesTotal == uint16max || a.cdOffset == uint32max || a.cdSize == uint32max {
		eocdPos64, err := searchZip64EOCD(a.stream, eocdPos)
		if err != nil {
			return err
		}
		eocdPos = eocdPos64

		if _, err := a.stream.Seek(int64(eocdPos)+4, io.SeekStart); err != nil {
			return errors.Wrap(ErrStream, err.Error())
		}
		fixed64 := make([]byte, 52)
		if err := stream.ReadFull(a.stream, fixed64); err != nil {
			return errors.Wrap(ErrStream, err.Error())
		}
		b64 := readBuf(fixed64)
		b64.uint64() // size of the zip64 end of central directory record
		a.versionMadeBy = b64.uint16()
		b64.uint16() // version needed to extract
		b64.uint32() // number of this disk
		a.diskNumberWithCD = b64.uint32()
		entriesThisDisk = b64.uint64()
		entriesTotal = b64.uint64()
		a.cdSize = b64.uint64()
		a.cdOffset = b64.uint64()

		if entriesThisDisk != entriesTotal {
			return errors.Wrap(ErrFormat, "inconsistent zip64 entry counts")
		}
		a.numberEntry = int64(entriesTotal)
	}

	if eocdPos < a.cdOffset+a.cdSize {
		return errors.Wrap(ErrFormat, "impossible central directory extent")
	}

	// Verify the central directory signature exists at the stored offset.
	if _, err := a.stream.Seek(int64(a.cdOffset), io.SeekStart); err != nil {
		return errors.Wrap(ErrStream, err.Error())
	}
	sig, err := stream.ReadUint32(a.stream)
	if err != nil {
		return errors.Wrap(ErrStream, err.Error())
	}
	if sig != centralHeaderSignature {
		// Some producers shift an archive without rewriting its offsets.
		// If the directory sits right before the EOCD, adopt that position
		// and carry the difference as a correction for every entry offset.
		if _, err := a.stream.Seek(int64(eocdPos-a.cdSize), io.SeekStart); err != nil {
			return errors.Wrap(ErrStream, err.Error())
		}
		sig, err = stream.ReadUint32(a.stream)
		if err != nil {
			return errors.Wrap(ErrStream, err.Error())
		}
		if sig == centralHeaderSignature {
			storedOffset := a.cdOffset
			a.cdOffset = eocdPos - a.cdSize
			a.diskOffsetShift = a.cdOffset - storedOffset
		}
	}

	return nil
}

// writeCentralDirectory flushes the staging buffer and emits the EOCD chain.
// The ZIP64 record and locator appear only when the classic fields cannot
// hold the directory offset or entry count.
func (a *Archive) writeCentralDirectory() error {
	if diskNumber, err := a.stream.GetProp(stream.PropDiskNumber); err == nil {
		a.diskNumberWithCD = uint32(diskNumber)
	}
	if diskSize, err := a.stream.GetProp(stream.PropDiskSize); err == nil && diskSize > 0 {
		a.diskNumberWithCD++
	}

	a.cdOffset = uint64(a.stream.Tell())
	a.cdSize = uint64(a.cdMemStream.Len())
	if _, err := a.cdMemStream.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := stream.CopyStream(a.stream, a.cdMemStream, int64(a.cdSize)); err != nil {
		return errors.Wrap(ErrStream, err.Error())
	}

	w := &fieldWriter{s: a.stream}

	if a.cdOffset >= uint32max || a.numberEntry > uint16max {
		zip64EOCDPos := uint64(a.stream.Tell())

		w.uint32(endHeader64Signature)
		w.uint64(44) // size of the remainder of this record
		w.uint16(a.versionMadeBy)
		w.uint16(zipVersionZip64)
		w.uint32(a.diskNumberWithCD)
		w.uint32(a.diskNumberWithCD)
		w.uint64(uint64(a.numberEntry))
		w.uint64(uint64(a.numberEntry))
		w.uint64(a.cdSize)
		w.uint64(a.cdOffset)

		w.uint32(endLocHeader64Signature)
		w.uint32(a.diskNumberWithCD)
		w.uint64(zip64EOCDPos)
		w.uint32(a.diskNumberWithCD + 1)
	}

	w.uint32(endHeaderSignature)
	w.uint16(uint16(a.diskNumberWithCD))
	w.uint16(uint16(a.diskNumberWithCD))
	if a.numberEntry >= uint16max {
		w.uint16(uint16max)
		w.uint16(uint16max)
	} else {
		w.uint16(uint16(a.numberEntry))
		w.uint16(uint16(a.numberEntry))
	}
	if a.cdSize >= uint32max {
		w.uint32(uint32max)
	} else {
		w.uint32(uint32(a.cdSize))
	}
	if a.cdOffset >= uint32max {
		w.uint32(uint32max)
	} else {
		w.uint32(uint32(a.cdOffset))
	}
	w.uint16(uint16(len(a.comment)))
	w.bytes([]byte(a.comment))

	return w.err
}
