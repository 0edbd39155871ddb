package signal

import (
	"errors"
	"fmt"
)

// ErrNoMatch is returned when no format recognizes a message.
// Malformed matches also satisfy errors.Is(err, ErrNoMatch).
var ErrNoMatch = errors.New("signal: no format matched")

// MalformedError reports a format that matched the message shape but one of
// its fields couldn't be parsed.
type MalformedError struct {
	Format string
	Field  string
	Value  string
	Err    error
}

func Malformed(field, value string, err error) *MalformedError {
	return &MalformedError{Field: field, Value: value, Err: err}
}

func (e *MalformedError) Error() string {
	msg := fmt.Sprintf("signal: %s matched but couldn't parse %s %q", e.Format, e.Field, e.Value)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrNoMatch
}

// Engine tries every format of a registry in order and returns the first
// extracted signal. It holds no state besides the registry.
type Engine struct {
	registry *Registry
}

func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

func (e *Engine) Parse(text string) (*Signal, error) {
	return e.Extract(text)
}

func (e *Engine) Extract(text string) (*Signal, error) {
	for _, f := range e.registry.formats {
		m, ok := f.Match(text)
		if !ok {
			continue
		}
		return extract(f, text, m)
	}
	return nil, ErrNoMatch
}

func extract(f Format, text string, m *RawMatch) (sig *Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig = nil
			err = &MalformedError{Format: f.Name, Field: "message", Err: fmt.Errorf("extractor panic: %v", r)}
		}
	}()
	sig, err = f.Extract(text, m)
	if err != nil {
		var merr *MalformedError
		if !errors.As(err, &merr) {
			merr = &MalformedError{Field: "message", Err: err}
		}
		if merr.Format == "" {
			merr.Format = f.Name
		}
		return nil, merr
	}
	if sig == nil {
		return nil, &MalformedError{Format: f.Name, Field: "message", Err: errors.New("extractor returned no signal")}
	}
	if sig.Direction != Buy && sig.Direction != Sell {
		return nil, &MalformedError{Format: f.Name, Field: "direction", Value: string(sig.Direction)}
	}
	sig.Source = f.Label
	return sig, nil
}
