package main

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// popRetryDelay is the pause after a failed pop call.
const popRetryDelay = time.Second

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

type mirrorConsumer struct {
	logger *zap.Logger
	queue  Queuer
	mirror BookMirror
}

// NewMirrorConsumer provides a consumer which replays book changes onto the mirror.
func NewMirrorConsumer(logger *zap.Logger, q Queuer, mirror BookMirror) Consumer {
	return &mirrorConsumer{logger, q, mirror}
}

// Consume pops events until ctx is done. Failures are logged and
// the event is dropped, the mirror is a best effort copy.
func (mc *mirrorConsumer) Consume(ctx context.Context, qids ...string) error {
	for {
		qid, book, err := mc.queue.Pop(ctx, qids...)
		if ctx.Err() != nil {
			mc.logger.Info("consumer: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}

		if errors.Is(err, ErrQueueEmpty) {
			continue
		}

		if err != nil {
			mc.logger.Error("consumer: error on queue pop call", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(popRetryDelay):
			}
			continue
		}

		switch qid {
		case CreateQueue, UpdateQueue:
			if err = mc.mirror.Put(ctx, book); err != nil {
				mc.logger.Error("consumer: failed to mirror book", zap.String("qid", qid), zap.Int64("book.id", book.ID), zap.Error(err))
			}
		case DeleteQueue:
			if err = mc.mirror.Remove(ctx, book.ID); err != nil {
				mc.logger.Error("consumer: failed to remove mirrored book", zap.Int64("book.id", book.ID), zap.Error(err))
			}
		default:
			mc.logger.Warn("consumer: received book on unknown queue id", zap.String("qid", qid), zap.Any("book", book))
		}
	}
}
