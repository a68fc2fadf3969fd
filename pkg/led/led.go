// Package led drives the blink outputs. Each LED blinks on its own
// runnable; all runnables share one semaphore so only one LED toggles
// at a time, and a shared on-time controls how long an LED stays lit.
package led

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// OnTimeMin is the lowest accepted on-time in milliseconds.
	OnTimeMin = 100
	// OnTimeMax is the highest accepted on-time in milliseconds.
	OnTimeMax = 2000
	// OnTimeDefault is the startup on-time in milliseconds.
	OnTimeDefault = 500
)

// Pin is a single output pin.
type Pin interface {
	Set(on bool)
}

// MemPin is an in-memory Pin, standing in for a GPIO line.
type MemPin struct {
	lock  sync.Mutex
	state bool
}

// Set implements Pin.
func (p *MemPin) Set(on bool) {
	p.lock.Lock()
	p.state = on
	p.lock.Unlock()
}

// Get reports the pin state.
func (p *MemPin) Get() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.state
}

// Logger receives blink events.
type Logger interface {
	Log(msg string)
}

// Controller owns the shared blink state: the on-time and the
// semaphore multiplexing pin access across blinkers.
type Controller struct {
	onTime int32
	sem    chan struct{}
	logger Logger
}

// NewController creates a Controller with the default on-time.
func NewController(logger Logger) *Controller {
	c := &Controller{
		onTime: OnTimeDefault,
		sem:    make(chan struct{}, 1),
		logger: logger,
	}
	c.sem <- struct{}{}
	return c
}

// OnTime reports the current on-time in milliseconds.
func (c *Controller) OnTime() int {
	return int(atomic.LoadInt32(&c.onTime))
}

// SetOnTime sets the on-time in milliseconds. Validation is the
// command layer's duty.
func (c *Controller) SetOnTime(ms int) {
	atomic.StoreInt32(&c.onTime, int32(ms))
}

// NewBlinker creates a blink runnable for one LED.
func (c *Controller) NewBlinker(name string, pin Pin) *Blinker {
	return &Blinker{name: name, pin: pin, ctrl: c}
}

// Blinker blinks one LED forever.
type Blinker struct {
	name string
	pin  Pin
	ctrl *Controller
}

// Name implements framework.Named.
func (b *Blinker) Name() string {
	return "led-" + b.name
}

// Run implements framework.Runnable.
func (b *Blinker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.ctrl.sem:
		}
		b.pin.Set(true)
		if logger := b.ctrl.logger; logger != nil {
			logger.Log("Event: LED " + b.name + " is on\r\n")
		}
		onTime := time.Duration(b.ctrl.OnTime()) * time.Millisecond
		select {
		case <-ctx.Done():
			b.pin.Set(false)
			b.ctrl.sem <- struct{}{}
			return ctx.Err()
		case <-time.After(onTime):
		}
		b.pin.Set(false)
		b.ctrl.sem <- struct{}{}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}
