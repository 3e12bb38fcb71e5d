package main

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// startRedisDockerContainer runs a disposable redis server and returns its host and port.
func startRedisDockerContainer(t *testing.T) (string, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("Docker is not available: %v", err)
	}
	if err = pool.Client.Ping(); err != nil {
		t.Skipf("Could not connect to Docker: %v", err)
	}

	resource, err := pool.Run("redis", "7.0.10-alpine", nil)
	if err != nil {
		t.Fatalf("Failed to start redis: %+v", err)
	}
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Failed to purge resource: %+v", err)
		}
	})

	port := resource.GetPort("6379/tcp")
	err = pool.Retry(func() error {
		client := redis.NewClient(&redis.Options{Addr: net.JoinHostPort("localhost", port)})
		defer client.Close()
		return client.Ping(context.Background()).Err()
	})
	if err != nil {
		t.Fatalf("Failed to ping Redis: %+v", err)
	}
	return "localhost", port
}

func TestRedisQueue(t *testing.T) {
	host, port := startRedisDockerContainer(t)
	client, err := GetRedisClient(&RedisConfig{Host: host, Port: port, ReadTimeout: 5 * time.Second})
	require.NoError(t, err)
	defer client.Close()
	q := NewRedisQueue(client, time.Second)
	ctx := context.Background()

	t.Run("Pop Empty Queue", func(t *testing.T) {
		_, _, err := q.Pop(ctx, CreateQueue, UpdateQueue, DeleteQueue)
		assert.ErrorIs(t, err, ErrQueueEmpty)
	})

	t.Run("Push Then Pop", func(t *testing.T) {
		book := Book{ID: 7, Title: "queued", Author: "a", Description: "d", Rating: 3}
		require.NoError(t, q.Push(ctx, UpdateQueue, book))
		qid, got, err := q.Pop(ctx, CreateQueue, UpdateQueue, DeleteQueue)
		require.NoError(t, err)
		assert.Equal(t, UpdateQueue, qid)
		assert.Equal(t, book, got)
	})

	t.Run("Fifo Order", func(t *testing.T) {
		require.NoError(t, q.Push(ctx, CreateQueue, Book{ID: 1}))
		require.NoError(t, q.Push(ctx, CreateQueue, Book{ID: 2}))
		_, first, err := q.Pop(ctx, CreateQueue)
		require.NoError(t, err)
		_, second, err := q.Pop(ctx, CreateQueue)
		require.NoError(t, err)
		assert.Equal(t, int64(1), first.ID)
		assert.Equal(t, int64(2), second.ID)
	})
}

func TestGetRedisClient_Unreachable(t *testing.T) {
	_, err := GetRedisClient(&RedisConfig{Host: "127.0.0.1", Port: "1", DialTimeout: 100 * time.Millisecond})
	assert.Error(t, err)
}

// eventsQueuer serves a fixed list of events then reports an empty queue.
type eventsQueuer struct {
	mu     sync.Mutex
	events []struct {
		qid  string
		book Book
		err  error
	}
}

func (eq *eventsQueuer) Push(_ context.Context, qid string, book Book) error {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	eq.events = append(eq.events, struct {
		qid  string
		book Book
		err  error
	}{qid, book, nil})
	return nil
}

func (eq *eventsQueuer) Pop(ctx context.Context, _ ...string) (string, Book, error) {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	if len(eq.events) == 0 {
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Millisecond):
		}
		return "", Book{}, ErrQueueEmpty
	}
	e := eq.events[0]
	eq.events = eq.events[1:]
	return e.qid, e.book, e.err
}

func (eq *eventsQueuer) pending() int {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	return len(eq.events)
}

// TestMirrorConsumer ensures each queue id is applied onto the mirror.
func TestMirrorConsumer(t *testing.T) {
	q := &eventsQueuer{}
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, CreateQueue, Book{ID: 1, Title: "one"}))
	require.NoError(t, q.Push(ctx, CreateQueue, Book{ID: 2, Title: "two"}))
	require.NoError(t, q.Push(ctx, UpdateQueue, Book{ID: 1, Title: "one bis"}))
	require.NoError(t, q.Push(ctx, "books.unknown", Book{ID: 3}))
	require.NoError(t, q.Push(ctx, DeleteQueue, Book{ID: 2}))

	mirror := NewMockBookMirror()
	consumer := NewMirrorConsumer(zap.NewNop(), q, mirror)
	cctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- consumer.Consume(cctx, CreateQueue, UpdateQueue, DeleteQueue) }()

	expected := []Book{{ID: 1, Title: "one bis"}}
	assert.Eventually(t, func() bool {
		books, err := mirror.GetAll(ctx)
		return err == nil && q.pending() == 0 && assert.ObjectsAreEqual(expected, books)
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancellation")
	}
}

// TestMirrorConsumer_MirrorFailure ensures a failing mirror does not stop the consumer.
func TestMirrorConsumer_MirrorFailure(t *testing.T) {
	q := &eventsQueuer{}
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, CreateQueue, Book{ID: 1}))
	require.NoError(t, q.Push(ctx, DeleteQueue, Book{ID: 1}))

	mirror := NewMockBookMirror()
	mirror.err = errors.New("disk full")
	consumer := NewMirrorConsumer(zap.NewNop(), q, mirror)
	cctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- consumer.Consume(cctx, CreateQueue, DeleteQueue) }()

	assert.Eventually(t, func() bool { return q.pending() == 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
