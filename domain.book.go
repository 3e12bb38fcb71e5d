package main

import (
	"context"
	"errors"
	"fmt"
)

// ErrBookNotFound is wrapped by every lookup failure on a missing book.
var ErrBookNotFound = errors.New("book not found")

// Book represents a book record as stored in the books table.
type Book struct {
	ID          int64  `json:"id" db:"id"`
	Title       string `json:"title" db:"title"`
	Author      string `json:"author" db:"author"`
	Description string `json:"description" db:"description"`
	Rating      int    `json:"rating" db:"rating"`
}

// BookPayload is the body of a book creation or update request. Fields
// are pointers so a missing field can be told apart from a zero value.
type BookPayload struct {
	Title       *string `json:"title" validate:"required,min=1,max=100"`
	Author      *string `json:"author" validate:"required,max=100"`
	Description *string `json:"description" validate:"required,max=100"`
	Rating      *int    `json:"rating" validate:"required,gt=-1,lt=101"`
}

// Book converts a validated payload into a book without id.
func (p BookPayload) Book() Book {
	var book Book
	if p.Title != nil {
		book.Title = *p.Title
	}
	if p.Author != nil {
		book.Author = *p.Author
	}
	if p.Description != nil {
		book.Description = *p.Description
	}
	if p.Rating != nil {
		book.Rating = *p.Rating
	}
	return book
}

// Page restricts a listing. Zero values mean no restriction.
type Page struct {
	Skip  int
	Limit int
}

// BookNotFoundError reports the id of a book which does not exist.
type BookNotFoundError struct {
	ID int64
}

func (e *BookNotFoundError) Error() string {
	return fmt.Sprintf("ID %d: Does not exist", e.ID)
}

func (e *BookNotFoundError) Unwrap() error {
	return ErrBookNotFound
}

// BookStorage defines possible operations on book entity.
type BookStorage interface {
	GetAll(ctx context.Context, page Page) ([]Book, error)
	Add(ctx context.Context, book Book) (Book, error)
	Update(ctx context.Context, id int64, book Book) (Book, error)
	Delete(ctx context.Context, id int64) (Book, error)
}

// BookMirror keeps a secondary copy of the books table.
type BookMirror interface {
	Put(ctx context.Context, book Book) error
	Remove(ctx context.Context, id int64) error
	GetAll(ctx context.Context) ([]Book, error)
}
