package inmem

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/igolaizola/sigrelay/pkg/signal"
	"github.com/igolaizola/sigrelay/pkg/store"
)

type Store struct {
	entries sync.Map
	now     func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

func (s *Store) Save(sig *signal.Signal) (*store.Entry, error) {
	e := &store.Entry{
		ID:       uuid.NewString(),
		Received: s.now().UTC(),
		Signal:   sig,
	}
	s.entries.Store(e.ID, e)
	return e, nil
}

func (s *Store) List(from time.Time, to time.Time) ([]*store.Entry, error) {
	var entries []*store.Entry
	s.entries.Range(func(key interface{}, value interface{}) bool {
		e := value.(*store.Entry)
		if e.Received.Before(from) {
			return true
		}
		if e.Received.After(to) {
			return true
		}
		entries = append(entries, e)
		return true
	})
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Received.Before(entries[j].Received)
	})
	return entries, nil
}

func (s *Store) Close() error {
	return nil
}
