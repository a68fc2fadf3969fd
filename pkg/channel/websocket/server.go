package websocket

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/blink.go/pkg/channel"
	fx "github.com/robotalks/blink.go/pkg/framework"
)

// Server serves a channel.Channel over websocket, one client at a
// time. With no client attached Transmit reports ErrBusy.
type Server struct {
	Addr string

	lock sync.Mutex
	cur  *Channel
	fn   channel.CompleteFunc
}

// NewServer creates a Server listening on addr.
func NewServer(addr string) *Server {
	return &Server{Addr: addr}
}

// Transmit implements channel.Transmitter.
func (s *Server) Transmit(p []byte) error {
	ch := s.current()
	if ch == nil {
		return channel.ErrBusy
	}
	return ch.Transmit(p)
}

// OnTransmitComplete implements channel.Transmitter.
func (s *Server) OnTransmitComplete(fn channel.CompleteFunc) {
	s.lock.Lock()
	s.fn = fn
	s.lock.Unlock()
}

// TryReceive implements channel.Receiver.
func (s *Server) TryReceive(p []byte) (int, bool) {
	ch := s.current()
	if ch == nil {
		return 0, false
	}
	return ch.TryReceive(p)
}

// Connected implements channel.Channel.
func (s *Server) Connected() bool {
	return s.current() != nil
}

func (s *Server) current() *Channel {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.cur
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: websocket.Handler(s.handle)}
	return fx.RunWithContextCloser(ctx, ln, func() error {
		return srv.Serve(ln)
	})
}

func (s *Server) handle(conn *websocket.Conn) {
	ch := New(conn)
	s.lock.Lock()
	if s.cur != nil {
		s.lock.Unlock()
		glog.Warningf("rejecting websocket client: already attached")
		conn.Close()
		return
	}
	s.cur = ch
	ch.OnTransmitComplete(s.fn)
	s.lock.Unlock()
	glog.Infof("websocket client attached: %s", conn.Request().RemoteAddr)

	ch.ReadLoop()

	s.lock.Lock()
	if s.cur == ch {
		s.cur = nil
	}
	s.lock.Unlock()
	glog.Info("websocket client detached")
}
