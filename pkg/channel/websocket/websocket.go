package websocket

import (
	"sync"

	"golang.org/x/net/websocket"

	"github.com/robotalks/blink.go/pkg/channel"
)

// Channel implements channel.Channel over a websocket connection.
type Channel struct {
	Conn *websocket.Conn

	lock       sync.Mutex
	rx         [][]byte
	completeFn channel.CompleteFunc
	sending    bool
	closed     bool
}

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *Channel {
	return &Channel{Conn: conn}
}

// Transmit implements channel.Transmitter.
func (c *Channel) Transmit(p []byte) error {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return channel.ErrClosed
	}
	if c.sending {
		c.lock.Unlock()
		return channel.ErrBusy
	}
	c.sending = true
	c.lock.Unlock()

	buf := make([]byte, len(p))
	copy(buf, p)
	go func() {
		err := websocket.Message.Send(c.Conn, buf)
		c.lock.Lock()
		c.sending = false
		fn := c.completeFn
		c.lock.Unlock()
		if err == nil && fn != nil {
			fn()
		}
	}()
	return nil
}

// OnTransmitComplete implements channel.Transmitter.
func (c *Channel) OnTransmitComplete(fn channel.CompleteFunc) {
	c.lock.Lock()
	c.completeFn = fn
	c.lock.Unlock()
}

// TryReceive implements channel.Receiver.
func (c *Channel) TryReceive(p []byte) (int, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if len(c.rx) == 0 {
		return 0, false
	}
	buf := c.rx[0]
	c.rx = c.rx[1:]
	return copy(p, buf), true
}

// Connected implements channel.Channel.
func (c *Channel) Connected() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return !c.closed
}

// ReadLoop reads incoming messages until the connection closes.
// It is expected to run on its own goroutine.
func (c *Channel) ReadLoop() error {
	for {
		var data []byte
		if err := websocket.Message.Receive(c.Conn, &data); err != nil {
			c.lock.Lock()
			c.closed = true
			c.lock.Unlock()
			return err
		}
		c.lock.Lock()
		c.rx = append(c.rx, data)
		c.lock.Unlock()
	}
}
