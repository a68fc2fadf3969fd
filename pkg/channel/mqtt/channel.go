package mqtt

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/blink.go/pkg/channel"
)

// Channel implements channel.Channel over a pair of MQTT topics.
// The device publishes log output to the "log" topic and receives
// commands from the "cmd" topic. Publish token completion maps to
// the channel's transfer-complete callback.
type Channel struct {
	Queue    *Queue
	PubTopic string
	SubTopic string

	lock       sync.Mutex
	rx         [][]byte
	completeFn channel.CompleteFunc
	sending    bool
}

// NewChannel creates a Channel for a device named by id.
// Topics follow the convention <prefix><id>/log and <prefix><id>/cmd.
func NewChannel(q *Queue, id string) *Channel {
	return &Channel{
		Queue:    q,
		PubTopic: id + "/log",
		SubTopic: id + "/cmd",
	}
}

// Transmit implements channel.Transmitter.
func (c *Channel) Transmit(p []byte) error {
	if !c.Queue.Client.IsConnected() {
		return channel.ErrBusy
	}
	c.lock.Lock()
	if c.sending {
		c.lock.Unlock()
		return channel.ErrBusy
	}
	c.sending = true
	c.lock.Unlock()

	token := c.Queue.Pub(c.PubTopic, p)
	go func() {
		token.Wait()
		c.lock.Lock()
		c.sending = false
		fn := c.completeFn
		c.lock.Unlock()
		if err := token.Error(); err != nil {
			glog.Warningf("publish %q failed: %v", c.PubTopic, err)
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
	return c.Queue.Client.IsConnected()
}

// Run implements framework.Runnable.
func (c *Channel) Run(ctx context.Context) error {
	sub := c.Queue.Sub(c.SubTopic, func(_ string, payload []byte) {
		data := make([]byte, len(payload))
		copy(data, payload)
		c.lock.Lock()
		c.rx = append(c.rx, data)
		c.lock.Unlock()
	})
	sub.Wait()
	if err := sub.Error(); err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}
