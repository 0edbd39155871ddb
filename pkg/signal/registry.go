package signal

import (
	"errors"
	"fmt"
	"regexp"
)

// ExtractFunc turns the capture groups of a matched format into a signal.
// The full message text is passed for fields that live outside the match.
type ExtractFunc func(text string, m *RawMatch) (*Signal, error)

// Format pairs a vendor message pattern with its extractor.
type Format struct {
	// Name identifies the format internally, e.g. "anna_signal"
	Name string
	// Label is the human readable source stored in the signal
	Label   string
	Pattern *regexp.Regexp
	Extract ExtractFunc
}

// RawMatch holds the capture groups of a format match, without the full match.
type RawMatch struct {
	Format string
	Groups []string
}

// Group returns capture group i (1-based) or an empty string.
func (m *RawMatch) Group(i int) string {
	if i < 1 || i > len(m.Groups) {
		return ""
	}
	return m.Groups[i-1]
}

func (f Format) Match(text string) (*RawMatch, bool) {
	groups := f.Pattern.FindStringSubmatch(text)
	if groups == nil {
		return nil, false
	}
	return &RawMatch{
		Format: f.Name,
		Groups: groups[1:],
	}, true
}

// Registry is an ordered, immutable list of formats. Narrower formats must
// be registered before broader ones that could match the same text.
type Registry struct {
	formats []Format
}

func NewRegistry(formats ...Format) (*Registry, error) {
	if len(formats) == 0 {
		return nil, errors.New("signal: registry needs at least one format")
	}
	seen := make(map[string]bool)
	list := make([]Format, 0, len(formats))
	for i, f := range formats {
		if f.Name == "" {
			return nil, fmt.Errorf("signal: format %d has no name", i)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("signal: duplicated format %s", f.Name)
		}
		if f.Pattern == nil {
			return nil, fmt.Errorf("signal: format %s has no pattern", f.Name)
		}
		if f.Extract == nil {
			return nil, fmt.Errorf("signal: format %s has no extractor", f.Name)
		}
		if f.Label == "" {
			f.Label = f.Name
		}
		seen[f.Name] = true
		list = append(list, f)
	}
	return &Registry{formats: list}, nil
}

// Formats returns a copy of the registered formats in evaluation order.
func (r *Registry) Formats() []Format {
	return append([]Format(nil), r.formats...)
}

func (r *Registry) Len() int {
	return len(r.formats)
}
