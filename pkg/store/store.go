package store

import (
	"time"

	"github.com/igolaizola/sigrelay/pkg/signal"
)

// Entry is a stored signal.
type Entry struct {
	ID       string         `json:"id"`
	Received time.Time      `json:"received"`
	Signal   *signal.Signal `json:"signal"`
}

type Store interface {
	Save(*signal.Signal) (*Entry, error)
	List(from time.Time, to time.Time) ([]*Entry, error)
	Close() error
}
