// Package bytesource provides the seekable byte-I/O abstraction that every
// container parser in this module is built on: open a path, read N bytes at
// the current position, seek relative to begin/current/end.
package bytesource

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrOpenFailed indicates the underlying path could not be opened.
var ErrOpenFailed = errors.New("bytesource: open failed")

// Source is a seekable byte stream. Implementations guarantee that the
// position is always valid (0 <= pos <= size), that reads past the end
// return a short count rather than an error, and that Seek supports negative
// offsets for io.SeekCurrent and io.SeekEnd.
type Source interface {
	// Read reads up to len(dst) bytes at the current position and advances
	// the position by the number of bytes read. At end of stream it returns
	// 0, nil rather than an error.
	Read(dst []byte) (n int, err error)

	// Seek repositions the stream per whence (io.SeekStart, io.SeekCurrent,
	// io.SeekEnd) and returns the new absolute position.
	Seek(offset int64, whence int) (int64, error)

	// Tell returns the current position without altering it.
	Tell() int64

	// IsOpen reports whether the underlying resource is still open.
	IsOpen() bool

	// Close releases the underlying resource. Safe to call more than once.
	Close() error
}

// FileSource is a Source backed by an *os.File.
type FileSource struct {
	f      *os.File
	size   int64
	open   bool
	closed error
}

// Open opens path for reading and returns a FileSource positioned at 0.
func Open(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	return &FileSource{f: f, size: info.Size(), open: true}, nil
}

// Read implements Source.
func (s *FileSource) Read(dst []byte) (int, error) {
	n, err := s.f.Read(dst)
	if errors.Is(err, io.EOF) {
		return n, nil
	}

	return n, err
}

// Seek implements Source.
func (s *FileSource) Seek(offset int64, whence int) (int64, error) {
	pos, err := s.f.Seek(offset, whence)
	if err != nil {
		return pos, err
	}

	switch {
	case pos < 0:
		pos, err = s.f.Seek(0, io.SeekStart)
	case pos > s.size:
		pos, err = s.f.Seek(s.size, io.SeekStart)
	}

	return pos, err
}

// Tell implements Source.
func (s *FileSource) Tell() int64 {
	pos, _ := s.f.Seek(0, io.SeekCurrent)
	return pos
}

// IsOpen implements Source.
func (s *FileSource) IsOpen() bool {
	return s.open
}

// Size returns the total size of the underlying file in bytes.
func (s *FileSource) Size() int64 {
	return s.size
}

// Close implements Source.
func (s *FileSource) Close() error {
	if !s.open {
		return s.closed
	}

	s.open = false
	s.closed = s.f.Close()

	return s.closed
}
