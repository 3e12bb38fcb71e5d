package main

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// This file contains mocks definitions needed to perform unit tests.

type MockBookStorage struct {
	GetAllFunc func(ctx context.Context, page Page) ([]Book, error)
	AddFunc    func(ctx context.Context, book Book) (Book, error)
	UpdateFunc func(ctx context.Context, id int64, book Book) (Book, error)
	DeleteFunc func(ctx context.Context, id int64) (Book, error)
}

// GetAll mocks the behavior of retrieving books by the repository.
func (m *MockBookStorage) GetAll(ctx context.Context, page Page) ([]Book, error) {
	return m.GetAllFunc(ctx, page)
}

// Add mocks the behavior of book creation by the repository.
func (m *MockBookStorage) Add(ctx context.Context, book Book) (Book, error) {
	return m.AddFunc(ctx, book)
}

// Update mocks the behavior of updating a book by the repository.
func (m *MockBookStorage) Update(ctx context.Context, id int64, book Book) (Book, error) {
	return m.UpdateFunc(ctx, id, book)
}

// Delete mocks the behavior of deleting a book by the repository.
func (m *MockBookStorage) Delete(ctx context.Context, id int64) (Book, error) {
	return m.DeleteFunc(ctx, id)
}

// MockQueuer records pushed events and replays the configured pops.
type MockQueuer struct {
	PushFunc func(ctx context.Context, qid string, book Book) error
	PopFunc  func(ctx context.Context, qids ...string) (string, Book, error)
}

func (mq *MockQueuer) Push(ctx context.Context, qid string, book Book) error {
	return mq.PushFunc(ctx, qid, book)
}

func (mq *MockQueuer) Pop(ctx context.Context, qids ...string) (string, Book, error) {
	return mq.PopFunc(ctx, qids...)
}

// MockBookMirror is an in-memory BookMirror.
type MockBookMirror struct {
	mu    sync.Mutex
	books map[int64]Book
	err   error
}

func NewMockBookMirror() *MockBookMirror {
	return &MockBookMirror{books: make(map[int64]Book)}
}

func (mm *MockBookMirror) Put(_ context.Context, book Book) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if mm.err != nil {
		return mm.err
	}
	mm.books[book.ID] = book
	return nil
}

func (mm *MockBookMirror) Remove(_ context.Context, id int64) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if mm.err != nil {
		return mm.err
	}
	delete(mm.books, id)
	return nil
}

func (mm *MockBookMirror) GetAll(_ context.Context) ([]Book, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if mm.err != nil {
		return nil, mm.err
	}
	books := []Book{}
	for _, b := range mm.books {
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}

// newTestAPIHandler builds an APIHandler around the given storage with fixed clock and ids.
func newTestAPIHandler(config *Config, storage BookStorage, queue Queuer, mirror BookMirror) *APIHandler {
	if config == nil {
		config = &Config{}
	}
	clock := NewMockClocker()
	bs := NewBookService(zap.NewNop(), config, storage, queue)
	return NewAPIHandler(zap.NewNop(), config, &Statistics{started: clock.Now()}, clock, NewMockUIDHandler("abc", false), bs, mirror)
}
