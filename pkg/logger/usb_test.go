package logger

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/blink.go/pkg/channel"
	"github.com/robotalks/blink.go/pkg/channel/loopback"
)

func newTestUsbLogger(t *testing.T) (*UsbLogger, *loopback.Endpoint, func()) {
	dev, host := loopback.Pipe()
	l := NewUsbLogger(dev)
	l.PopTimeout = 5 * time.Millisecond
	l.CompleteTimeout = 20 * time.Millisecond
	l.RetryDelay = time.Millisecond
	ctx, cancel := context.WithCancel(context.TODO())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	return l, host, func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("consumer did not stop")
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestUsbLoggerOrder(t *testing.T) {
	l, host, stop := newTestUsbLogger(t)
	defer stop()

	var expect string
	for i := 0; i < 16; i++ {
		msg := fmt.Sprintf("message %02d\r\n", i)
		expect += msg
		l.Log(msg)
	}
	var got string
	waitFor(t, func() bool {
		got += string(host.ReceiveAll())
		return got == expect
	})
}

func TestUsbLoggerRetrySameMessage(t *testing.T) {
	dev, host := loopback.Pipe()
	dev.MuteCompletion(true)
	l := NewUsbLogger(dev)
	l.PopTimeout = 5 * time.Millisecond
	l.CompleteTimeout = 5 * time.Millisecond
	l.RetryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.TODO())
	defer cancel()
	go l.Run(ctx)

	l.Log("first\r\n")
	l.Log("second\r\n")

	// with completion muted the head message is retransmitted and the
	// one behind it never moves
	waitFor(t, func() bool {
		return dev.TransmitCount() >= 3 && l.State() == TransferFailed
	})

	dev.MuteCompletion(false)
	var got string
	waitFor(t, func() bool {
		got += string(host.ReceiveAll())
		return strings.Contains(got, "second\r\n")
	})
	// every retransmitted copy of the head precedes the message behind it
	require.True(t, strings.Count(got, "first\r\n") >= 2)
	require.True(t, strings.LastIndex(got, "first\r\n") < strings.Index(got, "second\r\n"))
}

func TestUsbLoggerTruncation(t *testing.T) {
	dev, _ := loopback.Pipe()
	l := NewUsbLogger(dev)

	exact := strings.Repeat("a", MsgSize)
	l.Log(exact)
	msg, ok := l.Queue().Get(time.Millisecond)
	require.True(t, ok)
	require.Equal(t, exact, string(msg))

	over := strings.Repeat("b", MsgSize+1)
	l.Log(over)
	msg, ok = l.Queue().Get(time.Millisecond)
	require.True(t, ok)
	require.Equal(t, over[:MsgSize], string(msg))
}

func TestTransmitChunkBusyRetry(t *testing.T) {
	dev, host := loopback.Pipe()
	l := NewUsbLogger(dev)
	l.RetryDelay = time.Millisecond
	l.CompleteTimeout = 20 * time.Millisecond
	l.BusyRetryCap = 4

	dev.FailNext(2)
	require.NoError(t, l.TransmitChunk([]byte("chunk\r\n")))
	require.Equal(t, "chunk\r\n", string(host.ReceiveAll()))

	dev.FailNext(100)
	require.Equal(t, channel.ErrBusy, l.TransmitChunk([]byte("chunk\r\n")))
	require.Equal(t, TransferFailed, l.State())
}

func TestUsbLoggerCommandPollInterleaved(t *testing.T) {
	dev, _ := loopback.Pipe()
	l := NewUsbLogger(dev)
	l.PopTimeout = time.Millisecond
	polled := make(chan struct{}, 1)
	l.CommandPoll = func() {
		select {
		case polled <- struct{}{}:
		default:
		}
	}
	ctx, cancel := context.WithCancel(context.TODO())
	defer cancel()
	go l.Run(ctx)

	// polled even with an empty queue
	select {
	case <-polled:
	case <-time.After(time.Second):
		t.Fatal("command poll not invoked")
	}
}
