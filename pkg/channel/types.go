package channel

// CompleteFunc is called when an accepted transmit buffer has been
// fully handed off to the peer.
type CompleteFunc func()

// Transmitter accepts one outgoing buffer at a time.
// Completion of an accepted buffer is signalled asynchronously through
// the registered CompleteFunc.
type Transmitter interface {
	// Transmit hands off one buffer to the link. It returns ErrBusy
	// when the link cannot accept the buffer now, and the caller is
	// expected to retry.
	Transmit(p []byte) error
	// OnTransmitComplete registers the completion callback. Only one
	// callback is supported; a later registration replaces it.
	OnTransmitComplete(fn CompleteFunc)
}

// Receiver polls for incoming bytes without blocking.
type Receiver interface {
	// TryReceive copies pending incoming bytes into p. ok is false
	// when nothing is pending.
	TryReceive(p []byte) (n int, ok bool)
}

// Channel is a byte-oriented duplex link.
type Channel interface {
	Transmitter
	Receiver
	// Connected reports whether a peer is attached to the link.
	Connected() bool
}
