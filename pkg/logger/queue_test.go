package logger

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueOrder(t *testing.T) {
	q := NewQueue(8)
	for i := 0; i < 8; i++ {
		require.True(t, q.Put([]byte(fmt.Sprintf("msg-%d", i))))
	}
	for i := 0; i < 8; i++ {
		msg, ok := q.Get(time.Millisecond)
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("msg-%d", i), string(msg))
	}
	_, ok := q.Get(time.Millisecond)
	require.False(t, ok)
}

func TestQueueDropOldest(t *testing.T) {
	q := NewQueue(4)
	for i := 0; i < 10; i++ {
		require.True(t, q.Put([]byte(fmt.Sprintf("msg-%d", i))))
	}
	require.Equal(t, 4, q.Len())
	// exactly the oldest excess messages are gone
	for i := 6; i < 10; i++ {
		msg, ok := q.Get(time.Millisecond)
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("msg-%d", i), string(msg))
	}
}

func TestQueueGetTimeout(t *testing.T) {
	q := NewQueue(1)
	start := time.Now()
	_, ok := q.Get(10 * time.Millisecond)
	require.False(t, ok)
	require.True(t, time.Since(start) >= 10*time.Millisecond)
}
