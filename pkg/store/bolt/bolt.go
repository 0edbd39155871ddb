package bolt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/google/uuid"
	"github.com/igolaizola/sigrelay/pkg/signal"
	"github.com/igolaizola/sigrelay/pkg/store"
)

var bucket = []byte("signals")

// Fixed width so keys sort by time
const keyLayout = "2006-01-02T15:04:05.000000000Z"

func New(path string) (*Store, error) {
	// It will be created if it doesn't exist.
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt: couldn't open bolt db %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return err
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt: couldn't create bucket: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

type Store struct {
	db  *bolt.DB
	now func() time.Time
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Save(sig *signal.Signal) (*store.Entry, error) {
	received := s.now().UTC()
	e := &store.Entry{
		ID:       fmt.Sprintf("%s_%s", received.Format(keyLayout), uuid.NewString()[:8]),
		Received: received,
		Signal:   sig,
	}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		byt, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("couldn't encode: %w", err)
		}
		return b.Put([]byte(e.ID), byt)
	}); err != nil {
		return nil, fmt.Errorf("bolt: couldn't put %s: %w", e.ID, err)
	}
	return e, nil
}

func (s *Store) List(from time.Time, to time.Time) ([]*store.Entry, error) {
	var entries []*store.Entry
	if err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()

		// Time range, ids carry a suffix after the time
		min := []byte(from.UTC().Format(keyLayout))
		max := []byte(to.UTC().Format(keyLayout) + "\xff")

		for k, v := c.Seek(min); k != nil && bytes.Compare(k, max) <= 0; k, v = c.Next() {
			var e store.Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("couldn't decode %s: %w", k, err)
			}
			if e.Received.Before(from) || e.Received.After(to) {
				continue
			}
			entries = append(entries, &e)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("bolt: couldn't query: %w", err)
	}
	return entries, nil
}
