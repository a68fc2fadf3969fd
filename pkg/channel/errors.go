package channel

import "errors"

var (
	// ErrBusy indicates the link can not accept a buffer now.
	ErrBusy = errors.New("channel busy")
	// ErrClosed indicates the channel is closed.
	ErrClosed = errors.New("channel closed")
)
