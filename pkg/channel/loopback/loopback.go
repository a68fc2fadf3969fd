package loopback

import (
	"sync"

	"github.com/robotalks/blink.go/pkg/channel"
)

// Endpoint is one side of an in-memory channel pair.
type Endpoint struct {
	peer *Endpoint

	lock       sync.Mutex
	rx         [][]byte
	completeFn channel.CompleteFunc
	connected  bool
	busyCount  int
	muteCplt   bool
	txCount    int
}

// Pipe creates two connected Endpoints.
func Pipe() (*Endpoint, *Endpoint) {
	a := &Endpoint{connected: true}
	b := &Endpoint{connected: true}
	a.peer, b.peer = b, a
	return a, b
}

// Transmit implements channel.Transmitter.
func (e *Endpoint) Transmit(p []byte) error {
	e.lock.Lock()
	if !e.connected {
		e.lock.Unlock()
		return channel.ErrBusy
	}
	if e.busyCount > 0 {
		e.busyCount--
		e.lock.Unlock()
		return channel.ErrBusy
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	e.txCount++
	fn := e.completeFn
	mute := e.muteCplt
	e.lock.Unlock()

	e.peer.lock.Lock()
	e.peer.rx = append(e.peer.rx, buf)
	e.peer.lock.Unlock()

	if fn != nil && !mute {
		fn()
	}
	return nil
}

// OnTransmitComplete implements channel.Transmitter.
func (e *Endpoint) OnTransmitComplete(fn channel.CompleteFunc) {
	e.lock.Lock()
	e.completeFn = fn
	e.lock.Unlock()
}

// TryReceive implements channel.Receiver.
func (e *Endpoint) TryReceive(p []byte) (int, bool) {
	e.lock.Lock()
	defer e.lock.Unlock()
	if len(e.rx) == 0 {
		return 0, false
	}
	buf := e.rx[0]
	e.rx = e.rx[1:]
	n := copy(p, buf)
	return n, true
}

// Connected implements channel.Channel.
func (e *Endpoint) Connected() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.connected
}

// SetConnected attaches or detaches the link.
func (e *Endpoint) SetConnected(on bool) {
	e.lock.Lock()
	e.connected = on
	e.lock.Unlock()
}

// FailNext makes the next n Transmit calls report ErrBusy.
func (e *Endpoint) FailNext(n int) {
	e.lock.Lock()
	e.busyCount = n
	e.lock.Unlock()
}

// MuteCompletion suppresses completion callbacks when on, simulating
// a link that accepted a buffer but never signalled transfer-complete.
func (e *Endpoint) MuteCompletion(on bool) {
	e.lock.Lock()
	e.muteCplt = on
	e.lock.Unlock()
}

// TransmitCount reports how many buffers have been accepted.
func (e *Endpoint) TransmitCount() int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.txCount
}

// ReceiveAll drains all pending buffers on this side, concatenated.
func (e *Endpoint) ReceiveAll() []byte {
	e.lock.Lock()
	defer e.lock.Unlock()
	var out []byte
	for _, buf := range e.rx {
		out = append(out, buf...)
	}
	e.rx = nil
	return out
}
