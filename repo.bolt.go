package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

type boltBookMirror struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *BoltDBConfig) (*bolt.DB, error) {
	db, err := bolt.Open(config.FilePath, 0o600, &bolt.Options{Timeout: config.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltBookMirror provides an instance of bolt-based book mirror.
func NewBoltBookMirror(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) *boltBookMirror {
	return &boltBookMirror{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// Close shuts down the bolt-based book mirror.
func (bm *boltBookMirror) Close() error {
	return bm.client.Close()
}

// bookKey encodes ids in big endian so the cursor walks books in id order.
func bookKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

// Put inserts or replaces a book record.
func (bm *boltBookMirror) Put(_ context.Context, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return bm.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bm.config.BucketName)).Put(bookKey(book.ID), bookBytes)
	})
}

// Remove deletes a book record. Removing a missing record is not an error.
func (bm *boltBookMirror) Remove(_ context.Context, id int64) error {
	return bm.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bm.config.BucketName)).Delete(bookKey(id))
	})
}

// GetAll retrieves the list of all mirrored books ordered by id.
func (bm *boltBookMirror) GetAll(_ context.Context) ([]Book, error) {
	tx, err := bm.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c := tx.Bucket([]byte(bm.config.BucketName)).Cursor()

	books := []Book{}
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var book Book
		if err = json.Unmarshal(v, &book); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}
