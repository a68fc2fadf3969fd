package stream

import (
	"context"
	"net"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/blink.go/pkg/channel"
)

// Channel serves a channel.Channel over a net.Listener, accepting one
// client at a time. With no client attached Transmit reports ErrBusy,
// the same as an unplugged cable.
type Channel struct {
	Listener net.Listener

	lock       sync.Mutex
	conn       net.Conn
	rx         [][]byte
	completeFn channel.CompleteFunc
	sending    bool
}

// New creates a Channel over an existing listener.
func New(ln net.Listener) *Channel {
	return &Channel{Listener: ln}
}

// Listen creates a Channel listening on a TCP address.
func Listen(addr string) (*Channel, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return New(ln), nil
}

// Transmit implements channel.Transmitter.
// The buffer is written on a separate goroutine and completion is
// signalled once the write returns.
func (c *Channel) Transmit(p []byte) error {
	c.lock.Lock()
	if c.conn == nil || c.sending {
		c.lock.Unlock()
		return channel.ErrBusy
	}
	conn := c.conn
	c.sending = true
	c.lock.Unlock()

	buf := make([]byte, len(p))
	copy(buf, p)
	go func() {
		_, err := conn.Write(buf)
		c.lock.Lock()
		c.sending = false
		fn := c.completeFn
		c.lock.Unlock()
		if err != nil {
			glog.Warningf("stream write failed: %v", err)
			c.dropConn(conn)
			return
		}
		if fn != nil {
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
	return c.conn != nil
}

// Run implements framework.Runnable. It accepts clients sequentially
// and reads from the attached client until it disconnects.
func (c *Channel) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		c.Listener.Close()
	}()
	for {
		conn, err := c.Listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		c.lock.Lock()
		if c.conn != nil {
			// one client at a time
			c.lock.Unlock()
			glog.Warningf("rejecting client %s: already attached", conn.RemoteAddr())
			conn.Close()
			continue
		}
		c.conn = conn
		c.lock.Unlock()
		glog.Infof("client attached: %s", conn.RemoteAddr())
		go c.readLoop(conn)
	}
}

func (c *Channel) readLoop(conn net.Conn) {
	buf := make([]byte, 64)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			c.lock.Lock()
			c.rx = append(c.rx, data)
			c.lock.Unlock()
		}
		if err != nil {
			c.dropConn(conn)
			glog.Infof("client detached: %s", conn.RemoteAddr())
			return
		}
	}
}

func (c *Channel) dropConn(conn net.Conn) {
	c.lock.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.lock.Unlock()
	conn.Close()
}
