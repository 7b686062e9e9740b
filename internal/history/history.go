// Package history keeps a bbolt log of download requests and how they turned out. Only metadata is stored, never
// media.
package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var Buckets = struct {
	Metadata []byte
	Records  []byte
}{
	Metadata: []byte("__metadata__"),
	Records:  []byte("records"),
}

var MetadataKeys = struct {
	Version []byte
}{
	Version: []byte("version"),
}

const currentVersion = 1

type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

type Record struct {
	ID        string        `json:"id"`
	Site      string        `json:"site"`
	URL       string        `json:"url"`
	Content   string        `json:"content"`
	Quality   string        `json:"quality,omitempty"`
	Extractor string        `json:"extractor,omitempty"`
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}

type Store interface {
	Put(record *Record) error
	// List returns up to limit records, most recent first. A limit of 0 or less means all of them.
	List(limit int) ([]Record, error)
	Close() error
}

type database struct {
	*bbolt.DB
}

// Open opens, creating if necessary, the history database at path.
func Open(path string) (_ Store, err error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history %v: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) (err error) {
		// Ensure buckets exist
		var metadata *bbolt.Bucket
		if metadata, err = tx.CreateBucketIfNotExists(Buckets.Metadata); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(Buckets.Records); err != nil {
			return err
		}

		var version int
		if versionBytes := metadata.Get(MetadataKeys.Version); versionBytes == nil {
			version = 0
		} else if err = json.Unmarshal(versionBytes, &version); err != nil {
			return err
		}
		if version > currentVersion {
			return fmt.Errorf("history version %d is newer than supported version %d", version, currentVersion)
		}

		if versionBytes, err := json.Marshal(currentVersion); err != nil {
			return err
		} else if err = metadata.Put(MetadataKeys.Version, versionBytes); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &database{db}, nil
}

// Put appends a record. Keys are sequence numbers, so iteration order is insertion order.
func (d *database) Put(record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return d.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(Buckets.Records)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bucket.Put(key, data)
	})
}

func (d *database) List(limit int) (records []Record, err error) {
	err = d.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(Buckets.Records).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// NilStore discards everything.
type NilStore struct{}

func (NilStore) Put(*Record) error {
	return nil
}

func (NilStore) List(int) ([]Record, error) {
	return nil, nil
}

func (NilStore) Close() error {
	return nil
}
