// Package volume abstracts the mountable storage a blink device keeps
// its log file on (a RAM drive on real hardware).
package volume

import (
	"errors"
	"io"
)

var (
	// ErrNoFileSystem indicates the volume has no filesystem marker
	// and must be formatted before mounting.
	ErrNoFileSystem = errors.New("no file system")
	// ErrNotMounted indicates the volume is not mounted.
	ErrNotMounted = errors.New("not mounted")
	// ErrNoSpace indicates the volume is out of free space.
	ErrNoSpace = errors.New("no space on volume")
	// ErrNotExist indicates the named file does not exist.
	ErrNotExist = errors.New("file does not exist")
)

// File is an open file on a Volume.
type File interface {
	io.Reader
	io.Writer
	io.Closer
	// Seek repositions the read/write offset.
	Seek(offset int64, whence int) (int64, error)
	// Size reports the current file size.
	Size() (int64, error)
}

// Volume is a mountable storage device.
type Volume interface {
	// Init initializes the drive. It must be called before Mount.
	Init() error
	// Mount attaches the filesystem. Returns ErrNoFileSystem when the
	// volume has not been formatted.
	Mount() error
	// Format creates a fresh filesystem, erasing all content.
	Format() error
	// Free reports the free space in bytes.
	Free() (int64, error)
	// Create creates (or truncates) a file for writing.
	Create(name string) (File, error)
	// OpenAppend opens a file for appending, creating it if absent.
	OpenAppend(name string) (File, error)
	// OpenRead opens a file for reading.
	OpenRead(name string) (File, error)
	// Remove deletes a file.
	Remove(name string) error
}
