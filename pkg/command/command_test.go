package command

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/blink.go/pkg/bootclock"
	"github.com/robotalks/blink.go/pkg/led"
	"github.com/robotalks/blink.go/pkg/logger"
	"github.com/robotalks/blink.go/pkg/volume"
)

type replyRecorder struct {
	lock    sync.Mutex
	replies []string
}

func (r *replyRecorder) TransmitChunk(p []byte) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.replies = append(r.replies, string(p))
	return nil
}

func (r *replyRecorder) last() string {
	r.lock.Lock()
	defer r.lock.Unlock()
	if len(r.replies) == 0 {
		return ""
	}
	return r.replies[len(r.replies)-1]
}

func (r *replyRecorder) count() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.replies)
}

type usbRecorder struct {
	lock sync.Mutex
	msgs []string
}

func (s *usbRecorder) Log(msg string) {
	s.lock.Lock()
	s.msgs = append(s.msgs, msg)
	s.lock.Unlock()
}

func (s *usbRecorder) all() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.msgs...)
}

type fixedReceiver struct {
	lock sync.Mutex
	data [][]byte
}

func (r *fixedReceiver) push(s string) {
	r.lock.Lock()
	r.data = append(r.data, []byte(s))
	r.lock.Unlock()
}

func (r *fixedReceiver) TryReceive(p []byte) (int, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if len(r.data) == 0 {
		return 0, false
	}
	buf := r.data[0]
	r.data = r.data[1:]
	return copy(p, buf), true
}

type testEnv struct {
	interp *Interpreter
	rx     *fixedReceiver
	reply  *replyRecorder
	usb    *usbRecorder
	fs     *logger.FsLog
	leds   *led.Controller
	clock  *bootclock.Clock
}

func newTestEnv(t *testing.T) *testEnv {
	disk := volume.NewRamDisk(64 * 1024)
	require.NoError(t, disk.Format())
	fs := logger.NewFsLog(disk)
	fs.RetryDelay = time.Millisecond
	require.Equal(t, logger.StatusInitialized, fs.Init())

	env := &testEnv{
		rx:    &fixedReceiver{},
		reply: &replyRecorder{},
		usb:   &usbRecorder{},
		fs:    fs,
		clock: bootclock.New(),
	}
	env.leds = led.NewController(nil)
	router := logger.NewRouter(env.usb, fs, env.clock)
	fs.Sender = env.reply
	env.interp = NewInterpreter(env.rx)
	env.interp.Router = router
	env.interp.Sender = env.reply
	env.interp.Clock = env.clock
	env.interp.Leds = env.leds
	return env
}

func (env *testEnv) send(cmd string) {
	env.rx.push(cmd)
	env.interp.Poll()
}

func TestOnTimeCommand(t *testing.T) {
	env := newTestEnv(t)
	env.send("1500")
	require.Equal(t, 1500, env.leds.OnTime())

	env.send("50")
	require.Equal(t, 1500, env.leds.OnTime())
	require.Contains(t, env.reply.last(), "Invalid ON Time")

	env.send("2001")
	require.Equal(t, 1500, env.leds.OnTime())

	// zero is silently ignored
	replies := env.reply.count()
	env.send("0")
	require.Equal(t, replies, env.reply.count())
}

func TestOnTimeEventLogged(t *testing.T) {
	env := newTestEnv(t)
	env.send("log on")
	env.send("1200")
	msgs := env.usb.all()
	require.True(t, len(msgs) >= 2)
	require.Contains(t, msgs[len(msgs)-1], "Event: New ON Time: 1200 ms")
}

func TestSinkSelectionCommands(t *testing.T) {
	env := newTestEnv(t)
	r := env.interp.Router

	env.send("log on")
	require.True(t, r.UsbLoggingEnabled())
	require.False(t, r.FsLoggingEnabled())
	// enabling announces the queue capacity
	require.Contains(t, env.usb.all()[0], "Max Log storage capacity is 32 messages")

	env.send("fsLog on")
	require.True(t, r.FsLoggingEnabled())
	require.False(t, r.UsbLoggingEnabled())

	env.send("fsLog off")
	require.False(t, r.FsLoggingEnabled())

	env.send("log on")
	env.send("log off")
	require.False(t, r.UsbLoggingEnabled())
}

func TestReplayCommand(t *testing.T) {
	env := newTestEnv(t)
	env.send("fsLog on")
	env.interp.Router.Log("stored line\r\n")
	env.send("fsLog out")
	var replayed string
	for _, chunk := range env.reply.replies {
		replayed += chunk
	}
	require.Contains(t, replayed, "stored line\r\n")
}

func TestClockCommands(t *testing.T) {
	env := newTestEnv(t)
	env.send("set clock")
	require.Contains(t, env.reply.last(), "Set clock time")

	env.send("23:59:59")
	require.Contains(t, env.reply.last(), "successfully")

	env.send("25:00:00")
	require.Contains(t, env.reply.last(), "Failed")
	// clock unchanged by the rejected value
	require.Equal(t, "23:59:59", env.clock.TimeString()[:8])
}

func TestPromptAndHelp(t *testing.T) {
	env := newTestEnv(t)
	env.send("set on time")
	require.Contains(t, env.reply.last(), "Set LED ON time (100-2000 ms)")

	env.send("help")
	require.Contains(t, env.reply.last(), "fsLog out")
	require.Contains(t, env.reply.last(), "set clock")
}

func TestInvalidCommand(t *testing.T) {
	env := newTestEnv(t)
	env.send("bogus")
	require.Contains(t, env.reply.last(), "Invalid command")

	// single characters are ignored
	replies := env.reply.count()
	env.send("x")
	require.Equal(t, replies, env.reply.count())

	// empty input is ignored
	env.send("")
	require.Equal(t, replies, env.reply.count())
}

func TestReplyFailureDoesNotCrash(t *testing.T) {
	env := newTestEnv(t)
	env.interp.Sender = failingSender{}
	env.send("help")
}

type failingSender struct{}

func (failingSender) TransmitChunk(p []byte) error { return errors.New("link down") }

func TestCommandLineEndingsTrimmed(t *testing.T) {
	env := newTestEnv(t)
	env.send("help\r\n")
	require.Contains(t, env.reply.last(), "Commands:")
}
