// Package zip implements a format-faithful PKZIP codec: central directory
// discovery, per-entry header parsing and emission including the ZIP64, NTFS,
// UNIX1 and AES extra fields, and a sequential cursor suitable for reading
// and appending archives over any seekable stream.
package zip

import (
	"io"

	"github.com/abe-nagisa/zipcore/stream"
	"github.com/pkg/errors"
)

// Open modes, re-exported from the stream package so callers need only one
// import.
const (
	ModeRead   = stream.ModeRead
	ModeWrite  = stream.ModeWrite
	ModeAppend = stream.ModeAppend
	ModeCreate = stream.ModeCreate
)

// LocateEntryFunc is called per entry during LocateFirstEntry and
// LocateNextEntry iteration; returning zero stops at that entry. The callback
// must not operate on the archive handle it was called from.
type LocateEntryFunc func(a *Archive, fi *FileInfo) int

// Archive is a handle over one open archive. It is not safe for concurrent
// use; at most one entry is open at a time.
type Archive struct {
	fileInfo      FileInfo
	localFileInfo FileInfo

	stream      stream.Stream     // main stream
	cdStream    stream.Stream     // stream carrying the central directory
	cdMemStream *stream.MemStream // staging buffer for the central directory

	compressStream stream.Layered
	crcStream      *stream.CRC32Stream
	cryptStream    stream.Layered

	fileInfoScratch      *stream.MemStream
	localFileInfoScratch *stream.MemStream

	openMode int

	diskNumberWithCD uint32
	diskOffsetShift  uint64 // correction for producers that misplace the cd

	cdStartPos   uint64
	cdCurrentPos uint64
	cdOffset     uint64
	cdSize       uint64

	entryScanned bool
	entryOpened  bool
	entryRaw     bool

	numberEntry int64

	versionMadeBy uint16
	comment       string
	hasComment    bool
}

// OpenArchive opens an archive over s. The stream must already be open; it is
// never closed by the archive. In read and append modes the central directory
// is discovered immediately; append repositions the stream so new entries
// overwrite the old directory.
func OpenArchive(s stream.Stream, mode int) (*Archive, error) {
	if s == nil {
		return nil, errors.Wrap(ErrParam, "nil stream")
	}

	a := &Archive{stream: s, cdStream: s}

	if mode&ModeWrite != 0 {
		a.cdMemStream = stream.NewMemStream()
		if err := a.cdMemStream.Open(ModeCreate); err != nil {
			return nil, err
		}
		a.cdStream = a.cdMemStream
	}

	var err error
	if mode&(ModeRead|ModeAppend) != 0 {
		if mode&ModeCreate == 0 {
			err = a.readCentralDirectory()
		}

		if err == nil && mode&ModeAppend != 0 {
			if a.cdSize > 0 {
				// Park the existing directory in memory; its place in the
				// file is where the next entry goes.
				if _, err = a.stream.Seek(int64(a.cdOffset), io.SeekStart); err == nil {
					err = stream.CopyStream(a.cdMemStream, a.stream, int64(a.cdSize))
				}
				if err == nil {
					_, err = a.stream.Seek(int64(a.cdOffset), io.SeekStart)
				}
			} else {
				_, err = a.stream.Seek(0, io.SeekEnd)
			}
		} else if err == nil {
			a.cdStartPos = a.cdOffset
		}
	}

	if err != nil {
		a.openMode = 0
		a.Close()
		return nil, err
	}

	a.fileInfoScratch = stream.NewMemStream()
	a.localFileInfoScratch = stream.NewMemStream()
	a.openMode = mode
	return a, nil
}

// Close finishes the archive. A still-open entry is closed first; in write
// mode the staged central directory and the EOCD chain are flushed. The
// underlying stream stays open.
func (a *Archive) Close() error {
	if a == nil {
		return errors.Wrap(ErrParam, "nil archive")
	}

	var err error
	if a.EntryIsOpen() {
		if err = a.EntryClose(); err != nil {
			return err
		}
	}

	if a.openMode&ModeWrite != 0 {
		err = a.writeCentralDirectory()
	}

	if a.cdMemStream != nil {
		a.cdMemStream.Close()
		a.cdMemStream = nil
	}
	a.fileInfoScratch = nil
	a.localFileInfoScratch = nil
	a.comment = ""
	a.hasComment = false
	a.stream = nil
	a.cdStream = nil

	return err
}

// Comment returns the archive comment, or ErrExist when the archive carries
// none.
func (a *Archive) Comment() (string, error) {
	if a == nil {
		return "", errors.Wrap(ErrParam, "nil archive")
	}
	if !a.hasComment {
		return "", ErrExist
	}
	return a.comment, nil
}

// SetComment sets the comment emitted with the EOCD on close.
func (a *Archive) SetComment(comment string) error {
	if a == nil {
		return errors.Wrap(ErrParam, "nil archive")
	}
	if len(comment) > maxCommentSize {
		return errors.Wrap(ErrParam, "comment too long")
	}
	a.comment = comment
	a.hasComment = true
	return nil
}

// VersionMadeBy returns the archive-level version-made-by field.
func (a *Archive) VersionMadeBy() uint16 { return a.versionMadeBy }

// SetVersionMadeBy sets the version-made-by recorded in the ZIP64 EOCD.
func (a *Archive) SetVersionMadeBy(version uint16) { a.versionMadeBy = version }

// Stream returns the underlying storage stream.
func (a *Archive) Stream() (stream.Stream, error) {
	if a == nil {
		return nil, errors.Wrap(ErrParam, "nil archive")
	}
	if a.stream == nil {
		return nil, ErrExist
	}
	return a.stream, nil
}

// NumberEntry reports the entry count: read entries on open, staged central
// records in write mode.
func (a *Archive) NumberEntry() int64 { return a.numberEntry }

// DiskNumberWithCD reports the disk carrying the central directory.
func (a *Archive) DiskNumberWithCD() uint32 { return a.diskNumberWithCD }

// gotoNextEntryInt scans the header at the cursor position.
func (a *Archive) gotoNextEntryInt() error {
	a.entryScanned = false

	a.cdStream.SetProp(stream.PropDiskNumber, -1)
	if _, err := a.cdStream.Seek(int64(a.cdCurrentPos), io.SeekStart); err != nil {
		return errors.Wrap(ErrStream, err.Error())
	}
	if err := readHeader(a.cdStream, false, &a.fileInfo, a.fileInfoScratch); err != nil {
		return err
	}
	a.entryScanned = true
	return nil
}

// GotoFirstEntry positions the cursor on the first central directory record
// and scans it.
func (a *Archive) GotoFirstEntry() error {
	if a == nil {
		return errors.Wrap(ErrParam, "nil archive")
	}
	a.cdCurrentPos = a.cdStartPos
	return a.gotoNextEntryInt()
}

// GotoNextEntry advances past the current record and scans the next one.
// ErrEndOfList reports the end of the directory.
func (a *Archive) GotoNextEntry() error {
	if a == nil {
		return errors.Wrap(ErrParam, "nil archive")
	}
	a.cdCurrentPos += centralHeaderLen + uint64(a.fileInfo.FilenameSize) +
		uint64(a.fileInfo.ExtrafieldSize) + uint64(a.fileInfo.CommentSize)
	return a.gotoNextEntryInt()
}

// GetEntryPos reports the cursor position, suitable for GotoEntry.
func (a *Archive) GetEntryPos() (uint64, error) {
	if a == nil {
		return 0, errors.Wrap(ErrParam, "nil archive")
	}
	return a.cdCurrentPos, nil
}

// GotoEntry reseats the cursor on a position previously obtained from
// GetEntryPos and scans the record there.
func (a *Archive) GotoEntry(cdPos uint64) error {
	if a == nil {
		return errors.Wrap(ErrParam, "nil archive")
	}
	if cdPos < a.cdStartPos || cdPos > a.cdStartPos+a.cdSize {
		return errors.Wrap(ErrParam, "cursor out of range")
	}
	a.cdCurrentPos = cdPos
	return a.gotoNextEntryInt()
}

// LocateEntry finds the entry named filename, comparing slash-agnostically
// and optionally case-insensitively. The current entry is checked before
// restarting the linear scan from the first record.
func (a *Archive) LocateEntry(filename string, ignoreCase bool) error {
	if a == nil || filename == "" {
		return errors.Wrap(ErrParam, "missing filename")
	}

	if a.entryScanned && a.fileInfo.Filename != "" {
		if PathCompare(a.fileInfo.Filename, filename, ignoreCase) == 0 {
			return nil
		}
	}

	err := a.GotoFirstEntry()
	for err == nil {
		if PathCompare(a.fileInfo.Filename, filename, ignoreCase) == 0 {
			return nil
		}
		err = a.GotoNextEntry()
	}
	return err
}

// LocateFirstEntry iterates from the first entry until cb returns zero.
func (a *Archive) LocateFirstEntry(cb LocateEntryFunc) error {
	if a == nil || cb == nil {
		return errors.Wrap(ErrParam, "nil callback")
	}
	if err := a.GotoFirstEntry(); err != nil {
		return err
	}
	if cb(a, &a.fileInfo) == 0 {
		return nil
	}
	return a.LocateNextEntry(cb)
}

// LocateNextEntry resumes iteration after the current entry until cb returns
// zero.
func (a *Archive) LocateNextEntry(cb LocateEntryFunc) error {
	if a == nil || cb == nil {
		return errors.Wrap(ErrParam, "nil callback")
	}
	err := a.GotoNextEntry()
	for err == nil {
		if cb(a, &a.fileInfo) == 0 {
			return nil
		}
		err = a.GotoNextEntry()
	}
	return err
}
