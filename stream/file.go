package stream

import (
	"io"
	"os"
)

// FileStream is the storage stream backing an archive on disk.
type FileStream struct {
	path string
	f    *os.File
}

// NewFileStream returns a stream for the file at path. The file is not
// touched until Open.
func NewFileStream(path string) *FileStream {
	return &FileStream{path: path}
}

// NewFileStreamFile wraps an already-open file. Close does not close it.
func NewFileStreamFile(f *os.File) *FileStream {
	return &FileStream{f: f}
}

func (fs *FileStream) Open(mode int) error {
	if fs.f != nil {
		return nil
	}
	flags := os.O_RDONLY
	if mode&ModeWrite != 0 {
		flags = os.O_RDWR
		if mode&ModeCreate != 0 {
			flags |= os.O_CREATE | os.O_TRUNC
		}
	}
	f, err := os.OpenFile(fs.path, flags, 0644)
	if err != nil {
		return err
	}
	fs.f = f
	return nil
}

func (fs *FileStream) Close() error {
	if fs.f == nil {
		return nil
	}
	err := fs.f.Close()
	fs.f = nil
	return err
}

func (fs *FileStream) Read(p []byte) (int, error) {
	if fs.f == nil {
		return 0, ErrNotOpen
	}
	return fs.f.Read(p)
}

func (fs *FileStream) Write(p []byte) (int, error) {
	if fs.f == nil {
		return 0, ErrNotOpen
	}
	return fs.f.Write(p)
}

func (fs *FileStream) Seek(offset int64, whence int) (int64, error) {
	if fs.f == nil {
		return 0, ErrNotOpen
	}
	return fs.f.Seek(offset, whence)
}

func (fs *FileStream) Tell() int64 {
	if fs.f == nil {
		return 0
	}
	pos, err := fs.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0
	}
	return pos
}

func (fs *FileStream) GetProp(p Prop) (int64, error) { return 0, ErrProp }
func (fs *FileStream) SetProp(p Prop, v int64) error { return ErrProp }
