package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// BoltStore keeps entries of one name in a bucket of a bolt database.
type BoltStore struct {
	db     *bbolt.DB
	bucket []byte
	ttl    time.Duration
	now    func() time.Time
}

type boltEntry struct {
	Data      []byte `json:"data"`
	ExpiresAt int64  `json:"expires_at"`
}

func OpenBoltStore(file, name string, ttl time.Duration) (*BoltStore, error) {
	err := os.MkdirAll(filepath.Dir(file), 0777)
	if err != nil {
		return nil, fmt.Errorf("bolt cache: %w", err)
	}
	db, err := bbolt.Open(file, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt cache: %w", err)
	}

	bucket := []byte(name)
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt cache: %w", err)
	}

	return &BoltStore{db: db, bucket: bucket, ttl: ttl, now: time.Now}, nil
}

func (s *BoltStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.ttl <= 0 {
		return nil, false, nil
	}
	var (
		entry boltEntry
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(s.bucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &entry)
	})
	if err != nil {
		return nil, false, fmt.Errorf("bolt cache get: %w", err)
	}
	if !found || s.now().Unix() > entry.ExpiresAt {
		return nil, false, nil
	}
	return entry.Data, true, nil
}

func (s *BoltStore) Set(ctx context.Context, key string, value []byte) error {
	if s.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(boltEntry{
		Data:      value,
		ExpiresAt: s.now().Add(s.ttl).Unix(),
	})
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("bolt cache set: %w", err)
	}
	return nil
}

func (s *BoltStore) Prune(ctx context.Context) error {
	now := s.now().Unix()
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)

		var expired [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var entry boltEntry
			if json.Unmarshal(v, &entry) != nil || now > entry.ExpiresAt {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range expired {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bolt cache prune: %w", err)
	}
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
