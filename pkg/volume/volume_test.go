package volume

import (
	"io"
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func mountFresh(t *testing.T, v Volume) {
	require.NoError(t, v.Init())
	require.Equal(t, ErrNoFileSystem, v.Mount())
	require.NoError(t, v.Format())
	require.NoError(t, v.Mount())
}

func testVolume(t *testing.T, v Volume, capacity int64) {
	mountFresh(t, v)

	free, err := v.Free()
	require.NoError(t, err)

	f, err := v.Create("log.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = v.OpenAppend("log.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("world\n"))
	require.NoError(t, err)
	size, err := f.Size()
	require.NoError(t, err)
	require.Equal(t, int64(12), size)
	require.NoError(t, f.Close())

	free2, err := v.Free()
	require.NoError(t, err)
	require.True(t, free2 < free)

	f, err = v.OpenRead("log.txt")
	require.NoError(t, err)
	data, err := ioutil.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "hello\nworld\n", string(data))

	_, err = f.Seek(6, io.SeekStart)
	require.NoError(t, err)
	buf := make([]byte, 5)
	_, err = io.ReadFull(f, buf)
	require.NoError(t, err)
	require.Equal(t, "world", string(buf))
	require.NoError(t, f.Close())

	// exhaust the capacity
	f, err = v.OpenAppend("log.txt")
	require.NoError(t, err)
	big := make([]byte, capacity)
	_, err = f.Write(big)
	require.Equal(t, ErrNoSpace, err)
	require.NoError(t, f.Close())

	require.NoError(t, v.Remove("log.txt"))
	_, err = v.OpenRead("log.txt")
	require.Equal(t, ErrNotExist, err)
	require.Equal(t, ErrNotExist, v.Remove("log.txt"))
}

func TestRamDisk(t *testing.T) {
	testVolume(t, NewRamDisk(1024), 1024)
}

func TestDirVolume(t *testing.T) {
	dir, err := ioutil.TempDir("", "blinkvol")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	testVolume(t, NewDirVolume(dir, 1024), 1024)
}

func TestFormatErasesContent(t *testing.T) {
	v := NewRamDisk(1024)
	mountFresh(t, v)
	f, err := v.Create("log.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, v.Format())
	require.NoError(t, v.Mount())
	_, err = v.OpenRead("log.txt")
	require.Equal(t, ErrNotExist, err)
}
