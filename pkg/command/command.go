// Package command interprets the text protocol a blink device accepts
// on its channel: LED timing control, sink selection, log replay and
// clock setting.
package command

import (
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/blink.go/pkg/bootclock"
	"github.com/robotalks/blink.go/pkg/channel"
	"github.com/robotalks/blink.go/pkg/led"
	"github.com/robotalks/blink.go/pkg/logger"
)

// rxBufSize is the fixed receive buffer size. The whole buffer is
// cleared on every poll.
const rxBufSize = 64

const helpMsg = "Commands:\r\n" +
	"  set on time: Set LED ON time (100-2000 ms)\r\n" +
	"  fsLog out: Replay file system logs to USB\r\n" +
	"  fsLog on : Enable file system logging\r\n" +
	"  fsLog off: Disable file system logging\r\n" +
	"  log on   : Enable USB logging\r\n" +
	"  log off  : Disable USB logging\r\n" +
	"  set clock: Set clock time (24-hour format)\r\n" +
	"  help     : Show this help message\r\n"

// Interpreter dispatches received command lines. Poll is designed to
// be hooked into the channel logger's consumer loop so command
// handling and log draining multiplex on one goroutine.
type Interpreter struct {
	Router *logger.Router
	Sender logger.ChunkSender
	Clock  *bootclock.Clock
	Leds   *led.Controller

	rx       channel.Receiver
	commands map[string]func()
}

// NewInterpreter creates an Interpreter reading from rx.
func NewInterpreter(rx channel.Receiver) *Interpreter {
	i := &Interpreter{rx: rx}
	i.commands = map[string]func(){
		"set on time": i.handleSetOnTime,
		"fsLog out":   i.handleFsLogOut,
		"fsLog on":    i.handleFsLogOn,
		"fsLog off":   i.handleFsLogOff,
		"log on":      i.handleLogOn,
		"log off":     i.handleLogOff,
		"set clock":   i.handleSetClock,
		"help":        i.handleHelp,
	}
	return i
}

// Poll checks for one received command and dispatches it.
// Non-blocking; intended to run once per consumer loop iteration.
func (i *Interpreter) Poll() {
	buf := make([]byte, rxBufSize)
	n, ok := i.rx.TryReceive(buf)
	if !ok || n == 0 {
		return
	}
	cmd := strings.TrimRight(string(buf[:n]), "\r\n")
	glog.V(2).Infof("command received: %q", cmd)
	i.Dispatch(cmd)
}

// Dispatch interprets one command line.
func (i *Interpreter) Dispatch(cmd string) {
	if handler, ok := i.commands[cmd]; ok {
		handler()
		return
	}
	if val, err := strconv.Atoi(cmd); err == nil {
		i.handleOnTimeValue(val)
		return
	}
	if len(cmd) == 8 && cmd[2] == ':' && cmd[5] == ':' {
		i.handleClockValue(cmd)
		return
	}
	if len(cmd) > 1 {
		i.reply("Reply: Invalid command. Type 'help' for list of commands\r\n")
	}
}

func (i *Interpreter) reply(msg string) {
	if i.Sender == nil {
		return
	}
	if err := i.Sender.TransmitChunk([]byte(msg)); err != nil {
		glog.Warningf("command reply failed: %v", err)
	}
}

func (i *Interpreter) handleSetOnTime() {
	i.reply("Reply: Set LED ON time (100-2000 ms):\r\n")
}

func (i *Interpreter) handleOnTimeValue(val int) {
	if val >= led.OnTimeMin && val <= led.OnTimeMax {
		i.Leds.SetOnTime(val)
		i.Router.Logf("Event: New ON Time", i.Leds.OnTime(), "ms")
		return
	}
	if val != 0 {
		i.reply("Reply: Invalid ON Time received: " + strconv.Itoa(val) +
			". Enter between 100 and 2000.\r\n")
	}
}

func (i *Interpreter) handleFsLogOut() {
	i.Router.ReplayFsLogsToUsb()
}

func (i *Interpreter) handleFsLogOn() {
	i.Router.EnableFsLogging(true)
	i.Router.EnableUsbLogging(false)
}

func (i *Interpreter) handleFsLogOff() {
	i.Router.EnableFsLogging(false)
}

func (i *Interpreter) handleLogOn() {
	i.Router.EnableUsbLogging(true)
	i.Router.EnableFsLogging(false)
	i.Router.Log("Info: Max Log storage capacity is 32 messages.\r\n")
}

func (i *Interpreter) handleLogOff() {
	i.Router.EnableUsbLogging(false)
}

func (i *Interpreter) handleSetClock() {
	i.reply("Reply: Set clock time (hh:mm:ss):\r\n")
}

func (i *Interpreter) handleClockValue(value string) {
	if i.Clock.Set(value) == bootclock.SetOK {
		i.reply("Reply: Clock time set successfully\r\n")
	} else {
		i.reply("Reply: Failed to set clock time\r\n")
	}
}

func (i *Interpreter) handleHelp() {
	i.reply(helpMsg)
}
