package logger

import (
	"fmt"
	"strings"
	"sync"
)

// severityKeywords trigger timestamp annotation when found in a
// message.
var severityKeywords = []string{
	"Warning",
	"Error",
	"Fail",
	"Critical",
	"Overflow",
	"Event",
	"Hardware Fault",
	"Program Fault",
	"System Fault",
	"Supervisor",
}

const emptyMsgWarning = "Warning: Empty log message.\r\n"

// TimeSource provides the formatted boot-clock time for annotation.
type TimeSource interface {
	TimeString() string
}

// Router is the single point of policy for where a log message goes.
// It holds two independent sink-enable flags; the file-system sink
// takes priority over the channel sink when both are set. With no
// sink enabled messages are dropped silently, which is the default
// startup state.
type Router struct {
	Usb   Sink
	Fs    *FsLog
	Clock TimeSource

	lock       sync.Mutex
	usbEnabled bool
	fsEnabled  bool
}

// NewRouter creates a Router with both sinks disabled.
func NewRouter(usb Sink, fs *FsLog, clock TimeSource) *Router {
	return &Router{Usb: usb, Fs: fs, Clock: clock}
}

// EnableUsbLogging sets the channel sink flag. No other side effects.
func (r *Router) EnableUsbLogging(on bool) {
	r.lock.Lock()
	r.usbEnabled = on
	r.lock.Unlock()
}

// EnableFsLogging sets the file-system sink flag. No other side
// effects.
func (r *Router) EnableFsLogging(on bool) {
	r.lock.Lock()
	r.fsEnabled = on
	r.lock.Unlock()
}

// UsbLoggingEnabled reports the channel sink flag.
func (r *Router) UsbLoggingEnabled() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.usbEnabled
}

// FsLoggingEnabled reports the file-system sink flag.
func (r *Router) FsLoggingEnabled() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.fsEnabled
}

// Log routes one message to exactly one sink, annotating it with the
// boot-clock time when it carries a severity keyword.
func (r *Router) Log(msg string) {
	if msg == "" {
		msg = emptyMsgWarning
	}
	if r.Clock != nil && hasSeverityKeyword(msg) {
		msg = r.Clock.TimeString() + " " + msg
	}
	sink := r.selectSink()
	if sink != nil {
		sink.Log(msg)
	}
}

// Logf logs a message followed by formatted values, e.g.
// Logf("Event: New ON Time", 1500) -> "Event: New ON Time: 1500".
func (r *Router) Logf(msg string, values ...interface{}) {
	if len(values) > 0 {
		parts := make([]string, len(values))
		for n, v := range values {
			parts[n] = fmt.Sprint(v)
		}
		msg = msg + ": " + strings.Join(parts, " ")
	}
	r.Log(msg + "\r\n")
}

// ReplayFsLogsToUsb replays file logs to the channel. Gated on the
// file-system sink being enabled.
func (r *Router) ReplayFsLogsToUsb() {
	if !r.FsLoggingEnabled() {
		return
	}
	if r.Fs != nil {
		r.Fs.ReplayLogsToUsb()
	}
}

func (r *Router) selectSink() Sink {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.fsEnabled {
		if r.Fs != nil {
			return r.Fs
		}
		return nil
	}
	if r.usbEnabled {
		return r.Usb
	}
	return nil
}

func hasSeverityKeyword(msg string) bool {
	for _, kw := range severityKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
