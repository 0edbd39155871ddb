// Package file stores every signal as a document in a directory.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/igolaizola/sigrelay/pkg/signal"
	"github.com/igolaizola/sigrelay/pkg/store"
	"gopkg.in/yaml.v3"
)

const (
	prefix     = "signal_"
	nameLayout = "20060102150405"
)

type Store struct {
	dir    string
	ext    string
	encode func(*signal.Signal) ([]byte, error)
	decode func([]byte, *signal.Signal) error
	now    func() time.Time
}

// New creates a store writing signals to dir, encoded as "json" or "yaml".
func New(dir, format string) (*Store, error) {
	s := &Store{dir: dir, now: time.Now}
	switch format {
	case "", "json":
		s.ext = ".json"
		s.encode = func(sig *signal.Signal) ([]byte, error) {
			return json.MarshalIndent(sig, "", "    ")
		}
		s.decode = func(b []byte, sig *signal.Signal) error {
			return json.Unmarshal(b, sig)
		}
	case "yaml", "yml":
		s.ext = ".yaml"
		s.encode = func(sig *signal.Signal) ([]byte, error) {
			return yaml.Marshal(sig)
		}
		s.decode = func(b []byte, sig *signal.Signal) error {
			return yaml.Unmarshal(b, sig)
		}
	default:
		return nil, fmt.Errorf("file: unknown format %q", format)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("file: couldn't create directory %s: %w", dir, err)
	}
	return s, nil
}

func (s *Store) Save(sig *signal.Signal) (*store.Entry, error) {
	byt, err := s.encode(sig)
	if err != nil {
		return nil, fmt.Errorf("file: couldn't encode signal: %w", err)
	}
	received := s.now()
	id := prefix + received.Format(nameLayout)
	f, err := os.OpenFile(filepath.Join(s.dir, id+s.ext), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		// Several signals in the same second
		id = fmt.Sprintf("%s_%s", id, uuid.NewString()[:8])
		f, err = os.OpenFile(filepath.Join(s.dir, id+s.ext), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	}
	if err != nil {
		return nil, fmt.Errorf("file: couldn't create %s: %w", id, err)
	}
	if _, err := f.Write(byt); err != nil {
		f.Close()
		return nil, fmt.Errorf("file: couldn't write %s: %w", id, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("file: couldn't close %s: %w", id, err)
	}
	return &store.Entry{ID: id, Received: received, Signal: sig}, nil
}

// Path returns the file path of a stored signal.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id+s.ext)
}

// List reads the signals stored between from and to. The time of each entry
// comes from its file name, so it has second precision.
func (s *Store) List(from time.Time, to time.Time) ([]*store.Entry, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("file: couldn't read directory %s: %w", s.dir, err)
	}
	var entries []*store.Entry
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasPrefix(name, prefix) || filepath.Ext(name) != s.ext {
			continue
		}
		id := strings.TrimSuffix(name, s.ext)
		ts := strings.TrimPrefix(id, prefix)
		if len(ts) < len(nameLayout) {
			continue
		}
		received, err := time.ParseInLocation(nameLayout, ts[:len(nameLayout)], time.Local)
		if err != nil {
			continue
		}
		if received.Before(from.Truncate(time.Second)) || received.After(to) {
			continue
		}
		byt, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("file: couldn't read %s: %w", name, err)
		}
		var sig signal.Signal
		if err := s.decode(byt, &sig); err != nil {
			return nil, fmt.Errorf("file: couldn't decode %s: %w", name, err)
		}
		entries = append(entries, &store.Entry{ID: id, Received: received, Signal: &sig})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Received.Before(entries[j].Received)
	})
	return entries, nil
}

func (s *Store) Close() error {
	return nil
}
