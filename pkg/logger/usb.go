package logger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/blink.go/pkg/channel"
)

// TransferState tracks an in-flight transmission.
type TransferState int

const (
	// TransferIdle means no buffer is in flight.
	TransferIdle TransferState = iota
	// TransferSending means a buffer is being handed to the channel.
	TransferSending
	// TransferWaitingCompletion means the channel accepted the buffer
	// and the completion signal is pending.
	TransferWaitingCompletion
	// TransferFailed means the completion signal timed out; the same
	// message is retried on the next iteration.
	TransferFailed
)

// ErrXferTimeout indicates the transfer-complete signal did not
// arrive within the wait window.
var ErrXferTimeout = errors.New("transfer completion timeout")

// UsbLogger delivers short text messages over a channel.Channel
// without blocking the caller. A single consumer goroutine drains the
// queue, transmits each message and waits for the channel's
// transfer-complete signal. Messages are never reordered: a message
// whose transfer fails stays at the head until it goes through.
type UsbLogger struct {
	// PopTimeout bounds the queue wait so the consumer keeps polling
	// for commands even when idle.
	PopTimeout time.Duration
	// CompleteTimeout bounds the wait for transfer completion.
	CompleteTimeout time.Duration
	// RetryDelay is the fixed backoff after a busy or failed transfer.
	RetryDelay time.Duration
	// BusyRetryCap bounds transmit attempts while the channel reports
	// busy before the transfer is abandoned for this iteration.
	BusyRetryCap int
	// CommandPoll, when set, is invoked once per consumer iteration to
	// interleave command handling on the same goroutine.
	CommandPoll func()

	ch     channel.Channel
	queue  *Queue
	cplt   chan struct{}
	txLock sync.Mutex

	stateLock sync.Mutex
	state     TransferState
	pending   []byte
}

// NewUsbLogger creates a UsbLogger on the given channel and registers
// the transfer-complete callback.
func NewUsbLogger(ch channel.Channel) *UsbLogger {
	l := &UsbLogger{
		PopTimeout:      100 * time.Millisecond,
		CompleteTimeout: 10 * time.Millisecond,
		RetryDelay:      10 * time.Millisecond,
		BusyRetryCap:    100,
		ch:              ch,
		queue:           NewQueue(QueueLen),
		cplt:            make(chan struct{}, 1),
	}
	ch.OnTransmitComplete(l.signalComplete)
	return l
}

// Queue exposes the message queue, primarily for inspection in tests.
func (l *UsbLogger) Queue() *Queue {
	return l.queue
}

// State reports the current transfer state.
func (l *UsbLogger) State() TransferState {
	l.stateLock.Lock()
	defer l.stateLock.Unlock()
	return l.state
}

func (l *UsbLogger) setState(s TransferState) {
	l.stateLock.Lock()
	l.state = s
	l.stateLock.Unlock()
}

func (l *UsbLogger) signalComplete() {
	select {
	case l.cplt <- struct{}{}:
	default:
	}
}

// Log implements Sink. The message is copied into a queue slot; it is
// truncated at MsgSize with a diagnostic recorded once per call.
func (l *UsbLogger) Log(msg string) {
	if len(msg) > MsgSize {
		msg = msg[:MsgSize]
		glog.Warning("message size exceeded, message truncated")
	}
	buf := make([]byte, len(msg))
	copy(buf, msg)
	if !l.queue.Put(buf) {
		glog.Warning("log message not admitted to queue")
	}
}

// Run implements framework.Runnable: the consumer loop. Each
// iteration pops one message (bounded wait), transmits it with
// flow-control handling, and polls for commands.
func (l *UsbLogger) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.stateLock.Lock()
		pending := l.pending
		l.stateLock.Unlock()
		if pending == nil {
			if msg, ok := l.queue.Get(l.PopTimeout); ok {
				pending = msg
				l.stateLock.Lock()
				l.pending = msg
				l.stateLock.Unlock()
			}
		}
		if pending != nil {
			if err := l.transfer(pending); err == nil {
				l.stateLock.Lock()
				l.pending = nil
				l.stateLock.Unlock()
			} else {
				// same message is retried next iteration
				time.Sleep(l.RetryDelay)
			}
		}
		if poll := l.CommandPoll; poll != nil {
			poll()
		}
	}
}

// TransmitChunk sends one chunk synchronously: transmit, then wait
// for transfer completion. Used by the file log replay path, which
// retries with its own backoff.
func (l *UsbLogger) TransmitChunk(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	return l.transfer(p)
}

func (l *UsbLogger) transfer(p []byte) error {
	l.txLock.Lock()
	defer l.txLock.Unlock()

	l.setState(TransferSending)
	accepted := false
	for i := 0; i <= l.BusyRetryCap; i++ {
		err := l.ch.Transmit(p)
		if err == nil {
			accepted = true
			break
		}
		if err != channel.ErrBusy {
			l.setState(TransferFailed)
			return err
		}
		time.Sleep(l.RetryDelay)
	}
	if !accepted {
		l.setState(TransferFailed)
		return channel.ErrBusy
	}
	l.setState(TransferWaitingCompletion)
	select {
	case <-l.cplt:
		l.setState(TransferIdle)
		return nil
	case <-time.After(l.CompleteTimeout):
		glog.V(1).Info("transfer completion timeout")
		l.setState(TransferFailed)
		return ErrXferTimeout
	}
}
