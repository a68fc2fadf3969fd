package logger

const (
	// MsgSize is the fixed slot size of a log message in bytes.
	// Longer messages are truncated.
	MsgSize = 64
	// QueueLen is the capacity of the channel logger's message queue.
	QueueLen = 32
	// ChunkSize is the scratch buffer size used by replay.
	ChunkSize = 256
)

// Sink is a destination for log messages.
// The closed set of implementations is UsbLogger and FsLog.
type Sink interface {
	Log(msg string)
}

// ChunkSender transmits one chunk synchronously and reports the
// outcome, letting the caller retry with its own backoff.
type ChunkSender interface {
	TransmitChunk(p []byte) error
}
