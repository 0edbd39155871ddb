package json

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/igolaizola/sigrelay/pkg/signal"
)

// Parser reads signals that are already normalized, e.g. relayed by another
// sigrelay instance.
type Parser struct{}

func (p Parser) Parse(text string) (*signal.Signal, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return nil, signal.ErrNoMatch
	}
	var s signal.Signal
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return nil, &signal.MalformedError{Format: "json", Field: "message", Value: text, Err: fmt.Errorf("json: couldn't parse signal: %w", err)}
	}
	if s.Source == "" {
		s.Source = "json"
	}
	if s.CurrencyPair == "" {
		return nil, &signal.MalformedError{Format: "json", Field: "currency_pair"}
	}
	return &s, nil
}
