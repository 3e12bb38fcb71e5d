package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Predefinied Queue IDs.
const (
	CreateQueue = "books.creation"
	UpdateQueue = "books.updating"
	DeleteQueue = "books.deletion"
)

// ErrQueueEmpty is returned by Pop when nothing arrived before the timeout.
var ErrQueueEmpty = errors.New("queue: no item before timeout")

// Ensure *redisQueue implements Queuer.
var _ Queuer = (*redisQueue)(nil)

// Queuer describes a queue of book change events.
type Queuer interface {
	Push(ctx context.Context, qid string, book Book) error
	Pop(ctx context.Context, qids ...string) (string, Book, error)
}

// redisQueue represents a queue which implements the Queuer interface.
type redisQueue struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisQueue provides a redis list based queue. Pop blocks at most
// timeout so consumers get a chance to observe their context.
func NewRedisQueue(client *redis.Client, timeout time.Duration) Queuer {
	return &redisQueue{client: client, timeout: timeout}
}

// Push enqueues a book onto the queue identified by qid.
func (q *redisQueue) Push(ctx context.Context, qid string, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, qid, bookBytes).Err()
}

// Pop returns the first dequeued book from the list of queue ids.
func (q *redisQueue) Pop(ctx context.Context, qids ...string) (string, Book, error) {
	var book Book
	var qid string
	infos, err := q.client.BLPop(ctx, q.timeout, qids...).Result()
	if errors.Is(err, redis.Nil) {
		return qid, book, ErrQueueEmpty
	}
	if err != nil {
		return qid, book, err
	}

	if err = json.Unmarshal([]byte(infos[1]), &book); err != nil {
		return qid, book, err
	}
	qid = infos[0]
	return qid, book, nil
}
