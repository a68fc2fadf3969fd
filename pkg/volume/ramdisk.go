package volume

import (
	"io"
	"sync"
)

// RamDisk is an in-memory Volume with a fixed capacity.
type RamDisk struct {
	// InitErr, when set, is returned by Init. Used to exercise
	// drive-failure paths.
	InitErr error
	// FormatErr, when set, is returned by Format.
	FormatErr error

	capacity  int64
	lock      sync.Mutex
	files     map[string][]byte
	formatted bool
	mounted   bool
}

// NewRamDisk creates a RamDisk with the given capacity in bytes.
func NewRamDisk(capacity int64) *RamDisk {
	return &RamDisk{capacity: capacity}
}

// Init implements Volume.
func (d *RamDisk) Init() error {
	return d.InitErr
}

// Mount implements Volume.
func (d *RamDisk) Mount() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.formatted {
		return ErrNoFileSystem
	}
	d.mounted = true
	return nil
}

// Format implements Volume.
func (d *RamDisk) Format() error {
	if d.FormatErr != nil {
		return d.FormatErr
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	d.files = make(map[string][]byte)
	d.formatted = true
	return nil
}

// Free implements Volume.
func (d *RamDisk) Free() (int64, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.mounted {
		return 0, ErrNotMounted
	}
	return d.capacity - d.used(), nil
}

func (d *RamDisk) used() int64 {
	var n int64
	for _, data := range d.files {
		n += int64(len(data))
	}
	return n
}

// Create implements Volume.
func (d *RamDisk) Create(name string) (File, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.mounted {
		return nil, ErrNotMounted
	}
	d.files[name] = nil
	return &ramFile{disk: d, name: name}, nil
}

// OpenAppend implements Volume.
func (d *RamDisk) OpenAppend(name string) (File, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.mounted {
		return nil, ErrNotMounted
	}
	if _, ok := d.files[name]; !ok {
		d.files[name] = nil
	}
	return &ramFile{disk: d, name: name, pos: int64(len(d.files[name]))}, nil
}

// OpenRead implements Volume.
func (d *RamDisk) OpenRead(name string) (File, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.mounted {
		return nil, ErrNotMounted
	}
	if _, ok := d.files[name]; !ok {
		return nil, ErrNotExist
	}
	return &ramFile{disk: d, name: name}, nil
}

// Remove implements Volume.
func (d *RamDisk) Remove(name string) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.mounted {
		return ErrNotMounted
	}
	if _, ok := d.files[name]; !ok {
		return ErrNotExist
	}
	delete(d.files, name)
	return nil
}

type ramFile struct {
	disk *RamDisk
	name string
	pos  int64
}

func (f *ramFile) Read(p []byte) (int, error) {
	f.disk.lock.Lock()
	defer f.disk.lock.Unlock()
	data, ok := f.disk.files[f.name]
	if !ok {
		return 0, ErrNotExist
	}
	if f.pos >= int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(p, data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *ramFile) Write(p []byte) (int, error) {
	f.disk.lock.Lock()
	defer f.disk.lock.Unlock()
	data, ok := f.disk.files[f.name]
	if !ok {
		return 0, ErrNotExist
	}
	grow := f.pos + int64(len(p)) - int64(len(data))
	if grow > 0 && f.disk.used()+grow > f.disk.capacity {
		return 0, ErrNoSpace
	}
	for int64(len(data)) < f.pos+int64(len(p)) {
		data = append(data, 0)
	}
	copy(data[f.pos:], p)
	f.disk.files[f.name] = data
	f.pos += int64(len(p))
	return len(p), nil
}

func (f *ramFile) Seek(offset int64, whence int) (int64, error) {
	f.disk.lock.Lock()
	defer f.disk.lock.Unlock()
	data := f.disk.files[f.name]
	switch whence {
	case io.SeekStart:
		f.pos = offset
	case io.SeekCurrent:
		f.pos += offset
	case io.SeekEnd:
		f.pos = int64(len(data)) + offset
	}
	if f.pos < 0 {
		f.pos = 0
	}
	return f.pos, nil
}

func (f *ramFile) Size() (int64, error) {
	f.disk.lock.Lock()
	defer f.disk.lock.Unlock()
	data, ok := f.disk.files[f.name]
	if !ok {
		return 0, ErrNotExist
	}
	return int64(len(data)), nil
}

func (f *ramFile) Close() error {
	return nil
}
