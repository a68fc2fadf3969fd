package led

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type logRecorder struct {
	lock sync.Mutex
	msgs []string
}

func (r *logRecorder) Log(msg string) {
	r.lock.Lock()
	r.msgs = append(r.msgs, msg)
	r.lock.Unlock()
}

func (r *logRecorder) count() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.msgs)
}

func TestOnTime(t *testing.T) {
	c := NewController(nil)
	require.Equal(t, OnTimeDefault, c.OnTime())
	c.SetOnTime(1500)
	require.Equal(t, 1500, c.OnTime())
}

func TestBlinkerLogsEvents(t *testing.T) {
	rec := &logRecorder{}
	c := NewController(rec)
	c.SetOnTime(OnTimeMin)
	pin := &MemPin{}
	b := c.NewBlinker("blue", pin)
	require.Equal(t, "led-blue", b.Name())

	ctx, cancel := context.WithCancel(context.TODO())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for rec.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	require.Equal(t, context.Canceled, <-done)
	require.True(t, rec.count() > 0)
	r := rec.msgs[0]
	require.True(t, strings.HasPrefix(r, "Event: LED blue is on"))
	require.False(t, pin.Get())
}

func TestBlinkersShareSemaphore(t *testing.T) {
	c := NewController(nil)
	c.SetOnTime(OnTimeMin)
	pinA, pinB := &MemPin{}, &MemPin{}
	ctx, cancel := context.WithCancel(context.TODO())
	defer cancel()
	go c.NewBlinker("a", pinA).Run(ctx)
	go c.NewBlinker("b", pinB).Run(ctx)

	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		require.False(t, pinA.Get() && pinB.Get(), "both LEDs lit at once")
		time.Sleep(time.Millisecond)
	}
}
