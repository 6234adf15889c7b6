package core

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("enqueue then reserve then ack", func(t *testing.T) {
		q := NewRedisQueue(newTestRedis(t))

		require.NoError(t, q.Enqueue(ctx, PendingQueueKey, "41"))
		require.NoError(t, q.Enqueue(ctx, PendingQueueKey, "42"))

		job, err := q.Reserve(ctx, PendingQueueKey, ProcessingQueueKey, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "41", job, "FIFO: first enqueued is reserved first")

		require.NoError(t, q.Ack(ctx, ProcessingQueueKey, job))

		// Acked job never comes back, the second one does.
		job, err = q.Reserve(ctx, PendingQueueKey, ProcessingQueueKey, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "42", job)
	})

	t.Run("reserve on empty queue returns redis.Nil", func(t *testing.T) {
		q := NewRedisQueue(newTestRedis(t))

		_, err := q.Reserve(ctx, PendingQueueKey, ProcessingQueueKey, time.Minute)
		assert.ErrorIs(t, err, redis.Nil)
	})

	t.Run("expired in-flight job is requeued", func(t *testing.T) {
		q := NewRedisQueue(newTestRedis(t))

		require.NoError(t, q.Enqueue(ctx, PendingQueueKey, "7"))
		_, err := q.Reserve(ctx, PendingQueueKey, ProcessingQueueKey, 50*time.Millisecond)
		require.NoError(t, err)

		// Before the deadline nothing moves.
		moved, err := q.RequeueExpired(ctx, ProcessingQueueKey, PendingQueueKey, time.Now())
		require.NoError(t, err)
		assert.Empty(t, moved)

		// Past the deadline the job is back in pending.
		moved, err = q.RequeueExpired(ctx, ProcessingQueueKey, PendingQueueKey, time.Now().Add(time.Second))
		require.NoError(t, err)
		assert.Equal(t, []string{"7"}, moved)

		job, err := q.Reserve(ctx, PendingQueueKey, ProcessingQueueKey, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "7", job)
	})

	t.Run("acked job is not requeued", func(t *testing.T) {
		q := NewRedisQueue(newTestRedis(t))

		require.NoError(t, q.Enqueue(ctx, PendingQueueKey, "9"))
		job, err := q.Reserve(ctx, PendingQueueKey, ProcessingQueueKey, 50*time.Millisecond)
		require.NoError(t, err)
		require.NoError(t, q.Ack(ctx, ProcessingQueueKey, job))

		moved, err := q.RequeueExpired(ctx, ProcessingQueueKey, PendingQueueKey, time.Now().Add(time.Second))
		require.NoError(t, err)
		assert.Empty(t, moved)
	})
}

func TestMetricsService(t *testing.T) {
	ctx := context.Background()

	t.Run("queue depth", func(t *testing.T) {
		client := newTestRedis(t)
		q := NewRedisQueue(client)
		svc := NewMetricsService(client)

		require.NoError(t, q.Enqueue(ctx, PendingQueueKey, "1"))
		require.NoError(t, q.Enqueue(ctx, PendingQueueKey, "2"))
		_, err := q.Reserve(ctx, PendingQueueKey, ProcessingQueueKey, time.Minute)
		require.NoError(t, err)

		m, err := svc.Queue(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), m.Pending)
		assert.Equal(t, int64(1), m.Processing)
		assert.Equal(t, int64(0), m.ExpiredCandidate)
	})

	t.Run("worker heartbeats round trip", func(t *testing.T) {
		client := newTestRedis(t)
		svc := NewMetricsService(client)

		require.NoError(t, SaveHeartbeat(ctx, client, WorkerHeartbeat{
			WorkerID: "w-1", Hostname: "host-a", Concurrency: 4, Status: "idle",
		}))
		require.NoError(t, SaveHeartbeat(ctx, client, WorkerHeartbeat{
			WorkerID: "w-2", Hostname: "host-b", Concurrency: 2, Status: "busy",
		}))

		workers, err := svc.Workers(ctx)
		require.NoError(t, err)
		assert.Len(t, workers, 2)

		hb, err := svc.WorkerByID(ctx, "w-1")
		require.NoError(t, err)
		assert.Equal(t, "host-a", hb.Hostname)
		assert.Equal(t, 4, hb.Concurrency)

		_, err = svc.WorkerByID(ctx, "w-404")
		assert.Error(t, err)
	})
}
