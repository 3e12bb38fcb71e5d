package main

import (
	"context"

	"go.uber.org/zap"
)

type BookServiceProvider interface {
	List(ctx context.Context, page Page) ([]Book, error)
	Create(ctx context.Context, book Book) (Book, error)
	Update(ctx context.Context, id int64, book Book) (Book, error)
	Delete(ctx context.Context, id int64) (Book, error)
}

type BookService struct {
	logger  *zap.Logger
	config  *Config
	storage BookStorage
	queue   Queuer
}

// NewBookService provides the book service. The queue is optional, when
// set every committed change is published onto it.
func NewBookService(logger *zap.Logger, config *Config, storage BookStorage, queue Queuer) BookServiceProvider {
	return &BookService{
		logger:  logger,
		config:  config,
		storage: storage,
		queue:   queue,
	}
}

func (bs *BookService) List(ctx context.Context, page Page) ([]Book, error) {
	return bs.storage.GetAll(ctx, page)
}

func (bs *BookService) Create(ctx context.Context, book Book) (Book, error) {
	book, err := bs.storage.Add(ctx, book)
	if err != nil {
		return book, err
	}
	bs.publish(ctx, CreateQueue, book)
	return book, nil
}

func (bs *BookService) Update(ctx context.Context, id int64, book Book) (Book, error) {
	book, err := bs.storage.Update(ctx, id, book)
	if err != nil {
		return book, err
	}
	bs.publish(ctx, UpdateQueue, book)
	return book, nil
}

func (bs *BookService) Delete(ctx context.Context, id int64) (Book, error) {
	book, err := bs.storage.Delete(ctx, id)
	if err != nil {
		return book, err
	}
	bs.publish(ctx, DeleteQueue, Book{ID: id})
	return book, nil
}

func (bs *BookService) publish(ctx context.Context, qid string, book Book) {
	if bs.queue == nil {
		return
	}
	if err := bs.queue.Push(ctx, qid, book); err != nil {
		bs.logger.Error("service: failed to push book to queue", zap.String("qid", qid), zap.Int64("book.id", book.ID), zap.Error(err))
	}
}
