package parser

import (
	"errors"
	"fmt"

	"github.com/igolaizola/sigrelay/pkg/signal"
	"github.com/igolaizola/sigrelay/pkg/signal/formats"
	"github.com/igolaizola/sigrelay/pkg/signal/parser/json"
)

var ErrNotFound = errors.New("parser: not found")

// NewParser returns the parser registered with the given name. Formats
// restricts the "formats" parser to a subset of the known formats.
func NewParser(name string, names ...string) (signal.Parser, error) {
	switch name {
	case "json":
		return json.Parser{}, nil
	case "", "formats":
		registry, err := formats.Default(names...)
		if err != nil {
			return nil, fmt.Errorf("parser: couldn't create registry: %w", err)
		}
		return signal.NewEngine(registry), nil
	default:
		return nil, ErrNotFound
	}
}
