package reader

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const sessionBucketName = "sessions"

// ErrSessionNotFound is returned when no session has the requested ID
var ErrSessionNotFound = errors.New("session not found")

// DB defines the interface for session log storage
type DB interface {
	// SaveSessionLog saves a session log entry
	SaveSessionLog(log *SessionLog) error

	// GetSessionLog retrieves a session log entry by ID
	GetSessionLog(id string) (*SessionLog, error)

	// ListSessionLogs returns all session log entries, oldest first
	ListSessionLogs() ([]*SessionLog, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sessionBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveSessionLog saves a session log entry
func (b *BoltDB) SaveSessionLog(log *SessionLog) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucketName))
		data, err := json.Marshal(log)
		if err != nil {
			return fmt.Errorf("marshaling session log: %w", err)
		}
		return bucket.Put([]byte(log.ID), data)
	})
}

// GetSessionLog retrieves a session log entry by ID
func (b *BoltDB) GetSessionLog(id string) (*SessionLog, error) {
	var log *SessionLog
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return json.Unmarshal(data, &log)
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

// ListSessionLogs returns all session log entries, oldest first
func (b *BoltDB) ListSessionLogs() ([]*SessionLog, error) {
	logs := make([]*SessionLog, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var log SessionLog
			if err := json.Unmarshal(v, &log); err != nil {
				return fmt.Errorf("unmarshaling session log: %w", err)
			}
			logs = append(logs, &log)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CreatedAt.Before(logs[j].CreatedAt)
	})
	return logs, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
