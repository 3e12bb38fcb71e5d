package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS books (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT    NOT NULL,
	author      TEXT    NOT NULL,
	description TEXT    NOT NULL,
	rating      INTEGER NOT NULL
)`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS books (
	id          BIGSERIAL PRIMARY KEY,
	title       TEXT      NOT NULL,
	author      TEXT      NOT NULL,
	description TEXT      NOT NULL,
	rating      INTEGER   NOT NULL
)`

// OpenBookDatabase connects to the configured database and makes sure the
// books table exists. It is safe to call on an already initialized database.
func OpenBookDatabase(config *DatabaseConfig) (*sqlx.DB, error) {
	var schema string
	switch config.Driver {
	case DriverSQLite:
		schema = sqliteSchema
	case DriverPostgres:
		schema = postgresSchema
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	dsn := config.DSN
	if config.Driver == DriverSQLite {
		dsn = sqliteDSN(config)
	}

	db, err := sqlx.Open(config.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open the database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	if config.Driver == DriverSQLite {
		// sqlite only supports one writer at a time.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(config.MaxOpenConns)
		db.SetMaxIdleConns(config.MaxIdleConns)
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply the books schema: %w", err)
	}
	return db, nil
}

// sqliteDSN adds the connection pragmas to the dsn. The driver applies
// them to every new connection of the pool.
func sqliteDSN(config *DatabaseConfig) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_foreign_keys", "on")
	if config.BusyTimeout > 0 {
		params.Set("_busy_timeout", strconv.FormatInt(config.BusyTimeout.Milliseconds(), 10))
	}

	sep := "?"
	if strings.Contains(config.DSN, "?") {
		sep = "&"
	}
	return config.DSN + sep + params.Encode()
}

type sqlBookStorage struct {
	logger *zap.Logger
	db     *sqlx.DB
}

// NewSQLBookStorage provides an instance of sql-based book storage.
func NewSQLBookStorage(logger *zap.Logger, db *sqlx.DB) BookStorage {
	return &sqlBookStorage{
		logger: logger,
		db:     db,
	}
}

// GetAll retrieves books ordered by id, restricted to the given page.
func (bs *sqlBookStorage) GetAll(ctx context.Context, page Page) ([]Book, error) {
	var books []Book
	err := bs.withSession(ctx, func(s *Session) error {
		var err error
		books, err = s.selectBooks(ctx, page)
		return err
	})
	return books, err
}

// Add inserts a new book record and returns it with its assigned id.
func (bs *sqlBookStorage) Add(ctx context.Context, book Book) (Book, error) {
	err := bs.withSession(ctx, func(s *Session) error {
		id, err := s.insertBook(ctx, book)
		book.ID = id
		return err
	})
	return book, err
}

// Update overwrites all fields of an existing book. It fails with
// a *BookNotFoundError when no book has the given id.
func (bs *sqlBookStorage) Update(ctx context.Context, id int64, book Book) (Book, error) {
	err := bs.withSession(ctx, func(s *Session) error {
		if _, err := s.selectBook(ctx, id); err != nil {
			return err
		}
		book.ID = id
		return s.updateBook(ctx, book)
	})
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// Delete removes an existing book and returns its last state. It fails
// with a *BookNotFoundError when no book has the given id.
func (bs *sqlBookStorage) Delete(ctx context.Context, id int64) (Book, error) {
	var book Book
	err := bs.withSession(ctx, func(s *Session) error {
		var err error
		if book, err = s.selectBook(ctx, id); err != nil {
			return err
		}
		return s.deleteBook(ctx, id)
	})
	return book, err
}

const bookColumns = "id, title, author, description, rating"

func (s *Session) selectBooks(ctx context.Context, page Page) ([]Book, error) {
	query := "SELECT " + bookColumns + " FROM books ORDER BY id"
	var args []interface{}
	if page.Skip > 0 || page.Limit > 0 {
		limit := int64(page.Limit)
		if limit <= 0 {
			limit = math.MaxInt64
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, page.Skip)
	}

	books := []Book{}
	if err := s.tx.SelectContext(ctx, &books, s.tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select books: %w", err)
	}
	return books, nil
}

func (s *Session) selectBook(ctx context.Context, id int64) (Book, error) {
	var book Book
	query := s.tx.Rebind("SELECT " + bookColumns + " FROM books WHERE id = ?")
	err := s.tx.GetContext(ctx, &book, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return book, &BookNotFoundError{ID: id}
	}
	if err != nil {
		return book, fmt.Errorf("select book %d: %w", id, err)
	}
	return book, nil
}

func (s *Session) insertBook(ctx context.Context, book Book) (int64, error) {
	var id int64
	query := s.tx.Rebind(strings.Join([]string{
		"INSERT INTO books (title, author, description, rating)",
		"VALUES (?, ?, ?, ?) RETURNING id",
	}, " "))
	err := s.tx.QueryRowxContext(ctx, query, book.Title, book.Author, book.Description, book.Rating).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert book: %w", err)
	}
	return id, nil
}

func (s *Session) updateBook(ctx context.Context, book Book) error {
	query := s.tx.Rebind("UPDATE books SET title = ?, author = ?, description = ?, rating = ? WHERE id = ?")
	if _, err := s.tx.ExecContext(ctx, query, book.Title, book.Author, book.Description, book.Rating, book.ID); err != nil {
		return fmt.Errorf("update book %d: %w", book.ID, err)
	}
	return nil
}

func (s *Session) deleteBook(ctx context.Context, id int64) error {
	if _, err := s.tx.ExecContext(ctx, s.tx.Rebind("DELETE FROM books WHERE id = ?"), id); err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	return nil
}
