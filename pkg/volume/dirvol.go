package volume

import (
	"io/ioutil"
	"os"
	"path/filepath"
)

const markerName = ".blinkfs"

// DirVolume is a Volume backed by an OS directory with a byte quota.
// A marker file stands in for the filesystem signature: mounting a
// directory without the marker fails with ErrNoFileSystem until the
// volume is formatted.
type DirVolume struct {
	Dir   string
	Quota int64

	mounted bool
}

// NewDirVolume creates a DirVolume rooted at dir.
func NewDirVolume(dir string, quota int64) *DirVolume {
	return &DirVolume{Dir: dir, Quota: quota}
}

// Init implements Volume.
func (d *DirVolume) Init() error {
	return os.MkdirAll(d.Dir, 0755)
}

// Mount implements Volume.
func (d *DirVolume) Mount() error {
	if _, err := os.Stat(filepath.Join(d.Dir, markerName)); err != nil {
		if os.IsNotExist(err) {
			return ErrNoFileSystem
		}
		return err
	}
	d.mounted = true
	return nil
}

// Format implements Volume.
func (d *DirVolume) Format() error {
	entries, err := ioutil.ReadDir(d.Dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err = os.RemoveAll(filepath.Join(d.Dir, entry.Name())); err != nil {
			return err
		}
	}
	return ioutil.WriteFile(filepath.Join(d.Dir, markerName), nil, 0644)
}

// Free implements Volume.
func (d *DirVolume) Free() (int64, error) {
	if !d.mounted {
		return 0, ErrNotMounted
	}
	entries, err := ioutil.ReadDir(d.Dir)
	if err != nil {
		return 0, err
	}
	var used int64
	for _, entry := range entries {
		used += entry.Size()
	}
	free := d.Quota - used
	if free < 0 {
		free = 0
	}
	return free, nil
}

// Create implements Volume.
func (d *DirVolume) Create(name string) (File, error) {
	if !d.mounted {
		return nil, ErrNotMounted
	}
	f, err := os.Create(filepath.Join(d.Dir, name))
	if err != nil {
		return nil, err
	}
	return &osFile{File: f, vol: d}, nil
}

// OpenAppend implements Volume.
func (d *DirVolume) OpenAppend(name string) (File, error) {
	if !d.mounted {
		return nil, ErrNotMounted
	}
	f, err := os.OpenFile(filepath.Join(d.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &osFile{File: f, vol: d}, nil
}

// OpenRead implements Volume.
func (d *DirVolume) OpenRead(name string) (File, error) {
	if !d.mounted {
		return nil, ErrNotMounted
	}
	f, err := os.Open(filepath.Join(d.Dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return &osFile{File: f, vol: d}, nil
}

// Remove implements Volume.
func (d *DirVolume) Remove(name string) error {
	if !d.mounted {
		return ErrNotMounted
	}
	err := os.Remove(filepath.Join(d.Dir, name))
	if os.IsNotExist(err) {
		return ErrNotExist
	}
	return err
}

type osFile struct {
	*os.File
	vol *DirVolume
}

func (f *osFile) Write(p []byte) (int, error) {
	free, err := f.vol.Free()
	if err != nil {
		return 0, err
	}
	if int64(len(p)) > free {
		return 0, ErrNoSpace
	}
	return f.File.Write(p)
}

func (f *osFile) Size() (int64, error) {
	info, err := f.File.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
