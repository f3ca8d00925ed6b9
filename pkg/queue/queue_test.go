package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAsynqQueueRunTimeout(t *testing.T) {
	q, err := NewAsynqQueue(&Config{RedisAddr: "localhost:6379"})
	require.NoError(t, err)
	defer q.Close()
	assert.Equal(t, 30*time.Minute, q.runTimeout)

	q2, err := NewAsynqQueue(&Config{RedisAddr: "localhost:6379", RunTimeout: 10 * time.Minute})
	require.NoError(t, err)
	defer q2.Close()
	assert.Equal(t, 10*time.Minute, q2.runTimeout)
}
