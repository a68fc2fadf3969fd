package logger

import (
	"time"

	"github.com/golang/glog"
)

// evictAttempts bounds how many times Put evicts and retries before
// giving up, in case the queue is concurrently refilled.
const evictAttempts = 4

// Queue is a fixed-capacity message queue with a drop-oldest overflow
// policy. Put never blocks.
type Queue struct {
	slots chan []byte
}

// NewQueue creates a Queue with the given capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{slots: make(chan []byte, capacity)}
}

// Put enqueues a message without blocking. On a full queue the oldest
// entry is evicted to make room; each eviction is recorded once.
// Returns false if the message could not be admitted within the
// bounded number of eviction attempts.
func (q *Queue) Put(msg []byte) bool {
	for i := 0; i < evictAttempts; i++ {
		select {
		case q.slots <- msg:
			return true
		default:
		}
		select {
		case <-q.slots:
			glog.Warning("log queue full, oldest message dropped")
		default:
		}
	}
	return false
}

// Get dequeues the oldest message, waiting up to timeout.
func (q *Queue) Get(timeout time.Duration) ([]byte, bool) {
	select {
	case msg := <-q.slots:
		return msg, true
	default:
	}
	select {
	case msg := <-q.slots:
		return msg, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Len reports the number of queued messages.
func (q *Queue) Len() int {
	return len(q.slots)
}

// Cap reports the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.slots)
}
