package zip

import (
	"errors"
	"io"
)

// Every operation reports failure through one of these sentinels, usually
// wrapped with context. Classify with errors.Is.
var (
	ErrParam    = errors.New("zip: invalid parameter")
	ErrFormat   = errors.New("zip: not a valid zip file")
	ErrStream   = errors.New("zip: stream error")
	ErrMem      = errors.New("zip: out of memory")
	ErrCRC      = errors.New("zip: crc mismatch")
	ErrSupport  = errors.New("zip: unsupported method")
	ErrExist    = errors.New("zip: does not exist")
	ErrInternal = errors.New("zip: internal error")

	// ErrEndOfList terminates iteration over the central directory. It is a
	// normal condition, not a failure.
	ErrEndOfList = errors.New("zip: end of list")

	// ErrEndOfStream is the underlying stream running dry mid-record.
	ErrEndOfStream = io.EOF
)
