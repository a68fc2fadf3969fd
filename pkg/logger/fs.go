package logger

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/blink.go/pkg/volume"
)

// InitStatus is the closed result set of FsLog.Init. Callers must
// check it before trusting Log or ReplayLogsToUsb.
type InitStatus int

const (
	// StatusNotInitialized means Init has not run (or not succeeded).
	StatusNotInitialized InitStatus = iota
	// StatusInitialized means the file logger is ready.
	StatusInitialized
	// StatusDriveInitError means the storage drive failed to initialize.
	StatusDriveInitError
	// StatusFormatError means formatting an unformatted volume failed.
	StatusFormatError
	// StatusFormatFailed means mounting failed after a format.
	StatusFormatFailed
	// StatusMountError means mounting an already formatted volume failed.
	StatusMountError
	// StatusFileCreateError means the log file could not be created.
	StatusFileCreateError
	// StatusMutexError means the file mutex could not be created.
	// Unreachable in this implementation; kept for the status contract.
	StatusMutexError
	// StatusPoolError means the scratch memory pool could not be created.
	StatusPoolError
	// StatusPoolAllocError means the scratch buffer allocation failed.
	StatusPoolAllocError
)

var statusNames = []string{
	"not initialized",
	"initialized",
	"drive init error",
	"format error",
	"format failed",
	"mount error",
	"file create error",
	"mutex error",
	"pool error",
	"pool alloc error",
}

func (s InitStatus) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

const (
	// LogFileName is the fixed log file path on the volume.
	LogFileName = "log.txt"

	recreationMarker = "Warning: Log file recreated: volume full.\r\n"
	noLogsNotice     = "Reply: No logs to replay.\r\n"
	replayingNotice  = "Reply: Replaying logs:\r\n"

	replayRetryCap = 100
)

// FsLog is the file-system logger: durable, space-bounded append
// logging on a mountable volume plus on-demand replay to the channel.
type FsLog struct {
	// Sender transmits replay chunks. Typically the UsbLogger.
	Sender ChunkSender
	// Diag receives best-effort diagnostics on the alternate sink.
	Diag func(msg string)
	// RetryDelay is the fixed backoff between replay chunk retries.
	RetryDelay time.Duration

	vol   volume.Volume
	pool  *blockPool
	chunk []byte

	lock   sync.Mutex
	status InitStatus
	cursor int64
	gen    uint64
}

// NewFsLog creates a FsLog on the given volume. Init must be called
// before use.
func NewFsLog(vol volume.Volume) *FsLog {
	return &FsLog{
		RetryDelay: 10 * time.Millisecond,
		vol:        vol,
		status:     StatusNotInitialized,
	}
}

// Init mounts the volume (formatting first when no filesystem is
// found), creates the log file if absent and allocates the replay
// scratch buffer. The returned status is also retained and gates all
// subsequent calls.
func (l *FsLog) Init() InitStatus {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.status = l.initLocked()
	return l.status
}

func (l *FsLog) initLocked() InitStatus {
	if err := l.vol.Init(); err != nil {
		return StatusDriveInitError
	}
	var formatted bool
	if err := l.vol.Mount(); err != nil {
		if err != volume.ErrNoFileSystem {
			return StatusMountError
		}
		if err = l.vol.Format(); err != nil {
			return StatusFormatError
		}
		if err = l.vol.Mount(); err != nil {
			return StatusFormatFailed
		}
		formatted = true
	}
	f, err := l.vol.OpenAppend(LogFileName)
	if err != nil {
		return StatusFileCreateError
	}
	f.Close()
	l.pool = newBlockPool(ChunkSize, 1)
	if l.pool == nil {
		return StatusPoolError
	}
	if l.chunk, err = l.pool.alloc(); err != nil {
		return StatusPoolAllocError
	}
	l.cursor = 0
	if formatted {
		l.appendLocked("Log file system initialized.\r\n")
	}
	return StatusInitialized
}

// Status reports the retained init status.
func (l *FsLog) Status() InitStatus {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.status
}

// Cursor reports the replay cursor byte offset.
func (l *FsLog) Cursor() int64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.cursor
}

// Log implements Sink. The message is truncated at MsgSize with a
// diagnostic recorded once per call. A no-op unless initialized. On
// insufficient volume space the log file is recreated (losing prior
// content) and the message is written into the fresh file. All
// failures are reported to the alternate sink and the write is
// abandoned.
func (l *FsLog) Log(msg string) {
	if len(msg) > MsgSize {
		msg = msg[:MsgSize]
		glog.Warning("message size exceeded, message truncated")
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.status != StatusInitialized {
		return
	}
	l.appendLocked(msg)
}

func (l *FsLog) appendLocked(msg string) {
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	free, err := l.vol.Free()
	if err != nil {
		l.report("Error: FS free space query failed")
		return
	}
	if free < int64(len(msg)) {
		if !l.recreateLocked() {
			return
		}
	}
	f, err := l.vol.OpenAppend(LogFileName)
	if err != nil {
		l.report("Error: FS log open failed")
		return
	}
	defer f.Close()
	if _, err = f.Seek(0, io.SeekEnd); err != nil {
		l.report("Error: FS log seek failed")
		return
	}
	if _, err = f.Write([]byte(msg)); err != nil {
		l.report("Error: FS log write failed")
	}
}

// recreateLocked closes, removes and recreates the log file, writes
// the recreation marker and resets the replay cursor.
func (l *FsLog) recreateLocked() bool {
	if err := l.vol.Remove(LogFileName); err != nil {
		l.report("Error: FS log remove failed")
		return false
	}
	f, err := l.vol.Create(LogFileName)
	if err != nil {
		l.report("Error: FS log recreate failed")
		return false
	}
	defer f.Close()
	l.cursor = 0
	l.gen++
	l.report("Warning: FS volume full, log file recreated")
	if _, err = f.Write([]byte(recreationMarker)); err != nil {
		l.report("Error: FS log marker write failed")
		return false
	}
	return true
}

func (l *FsLog) report(msg string) {
	glog.Warning(msg)
	if diag := l.Diag; diag != nil {
		diag(msg + "\r\n")
	}
}

// ReplayLogsToUsb streams unread log file content to the channel in
// bounded chunks, advancing the cursor after each confirmed chunk.
// Only complete lines are sent; a partially written trailing line is
// withheld until its line break appears. Safe against concurrent
// appends: size is re-read under the mutex on every iteration.
func (l *FsLog) ReplayLogsToUsb() InitStatus {
	l.lock.Lock()
	if l.status != StatusInitialized {
		status := l.status
		l.lock.Unlock()
		return status
	}
	size := l.fileSizeLocked()
	l.lock.Unlock()

	if size == 0 {
		l.sendChunk([]byte(noLogsNotice))
		return StatusInitialized
	}
	l.sendChunk([]byte(replayingNotice))

	for {
		l.lock.Lock()
		gen := l.gen
		chunk, ok := l.readChunkLocked()
		l.lock.Unlock()
		if !ok {
			break
		}
		// trim back to the last complete line
		idx := bytes.LastIndexByte(chunk, '\n')
		if idx < 0 {
			break
		}
		chunk = chunk[:idx+1]
		if !l.sendChunk(chunk) {
			break
		}
		l.lock.Lock()
		if l.gen == gen {
			l.cursor += int64(len(chunk))
		}
		// on a generation change the file was recreated while the
		// chunk was in flight; restart from the reset cursor
		l.lock.Unlock()
	}
	return StatusInitialized
}

func (l *FsLog) fileSizeLocked() int64 {
	f, err := l.vol.OpenRead(LogFileName)
	if err != nil {
		return 0
	}
	defer f.Close()
	size, err := f.Size()
	if err != nil {
		return 0
	}
	return size
}

// readChunkLocked reads up to one scratch buffer of bytes at the
// cursor. ok is false once the cursor reaches the file size.
func (l *FsLog) readChunkLocked() ([]byte, bool) {
	f, err := l.vol.OpenRead(LogFileName)
	if err != nil {
		l.report("Error: FS replay open failed")
		return nil, false
	}
	defer f.Close()
	size, err := f.Size()
	if err != nil || l.cursor >= size {
		return nil, false
	}
	if _, err = f.Seek(l.cursor, io.SeekStart); err != nil {
		l.report("Error: FS replay seek failed")
		return nil, false
	}
	n, err := f.Read(l.chunk)
	if n <= 0 {
		if err != nil && err != io.EOF {
			l.report("Error: FS replay read failed")
		}
		return nil, false
	}
	return l.chunk[:n], true
}

func (l *FsLog) sendChunk(p []byte) bool {
	sender := l.Sender
	if sender == nil {
		return false
	}
	for i := 0; i <= replayRetryCap; i++ {
		if sender.TransmitChunk(p) == nil {
			return true
		}
		time.Sleep(l.RetryDelay)
	}
	l.report("Error: FS replay transfer failed")
	return false
}
