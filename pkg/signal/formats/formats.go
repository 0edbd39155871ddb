// Package formats defines the vendor message formats known by sigrelay.
package formats

import (
	"regexp"

	"github.com/igolaizola/sigrelay/pkg/signal"
)

// Number of retry levels projected for formats that only announce the entry.
const projectedLevels = 2

const (
	AnnaSignal      = "anna_signal"
	PocketOptionOTC = "pocket_option_otc"
	ConfirmedEntry  = "confirmed_entry"
	CurrencyFlags   = "currency_flags"
)

var (
	// The direction is the word after a DIRECTION label, or the last
	// direction word of the message when there is no label.
	annaPattern = regexp.MustCompile(`(?is)CURRENCY\s+PAIR:\s*([\w/ \t-]+)` +
		`.*?EXPIRATION:\s*(\w+)` +
		`.*?TIME\s*\(UTC\s*[+-]\s*\d{1,2}(?::\d{2})?\)\s*:\s*(\d{2}:\d{2}(?::\d{2})?)` +
		`(?:.*\bDIRECTION:\s*(?:[^\w\s]+\s*)?(call|put|buy|sell)\b|.*\b(call|put|buy|sell)\b)`)

	pocketPattern = regexp.MustCompile(`(?is)\bPair:\s*([\w/]+(?:-OTC)?)` +
		`.*?Expiration:\s*(\d+\s*Minutes?)\b` +
		`.*?Entry\s+Time:\s*(\d{2}:\d{2}(?::\d{2})?)` +
		`.*?Signal\s+Direction:\s*(?:[^\w\s]+\s*)?(call|put|buy|sell)\b`)
	pocketLevels = regexp.MustCompile(`(?i)\bLevel\s*\d+\s*(?:[—–-]+\s*)?At\s*(\d{1,2}:\d{2}(?::\d{2})?)`)

	confirmedPattern = regexp.MustCompile(`(?is)\bAsset:[ \t]*([\w/ \t-]+)` +
		`.*?\bTime:\s*(\d{2}:\d{2}(?::\d{2})?)` +
		`.*?Expiration:\s*(\d+\s*Minutes?)\b` +
		`.*?Direction:\s*🔴\x{FE0F}?\s*(call|put)\b`)
	confirmedLevels = regexp.MustCompile(`(?i)\b(?:Martingale|Level)\s*\d+\s*(?:[—–:-]+\s*)?at\s*(\d{1,2}:\d{2}(?::\d{2})?)`)

	flagsPattern = regexp.MustCompile(`(?is)\b([a-z]{3,}/[a-z]{3,}(?:-OTC)?)\b` +
		`.*?\bExpiration:?\s*(\d+\s*M(?:in(?:ute)?s?)?)\b` +
		`.*?\bEntry\s+at:?\s*(\d{2}:\d{2}(?::\d{2})?)` +
		`.*?(🟩\x{FE0F}?\s*BUY|🟥\x{FE0F}?\s*SELL)`)
)

// All returns the known formats, narrowest first.
func All() []signal.Format {
	return []signal.Format{
		{Name: AnnaSignal, Label: "Anna Signal", Pattern: annaPattern, Extract: extractAnna},
		{Name: PocketOptionOTC, Label: "Pocket Option OTC", Pattern: pocketPattern, Extract: extractPocket},
		{Name: ConfirmedEntry, Label: "Confirmed Entry", Pattern: confirmedPattern, Extract: extractConfirmed},
		{Name: CurrencyFlags, Label: "Currency Flags", Pattern: flagsPattern, Extract: extractFlags},
	}
}

// Default builds a registry with every known format, or only the named ones.
func Default(names ...string) (*signal.Registry, error) {
	all := All()
	if len(names) == 0 {
		return signal.NewRegistry(all...)
	}
	known := make(map[string]bool, len(all))
	for _, f := range all {
		known[f.Name] = true
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		if !known[n] {
			return nil, &UnknownError{Name: n}
		}
		wanted[n] = true
	}
	// Evaluation order doesn't depend on the order names were given
	var selected []signal.Format
	for _, f := range all {
		if wanted[f.Name] {
			selected = append(selected, f)
		}
	}
	return signal.NewRegistry(selected...)
}

func Names() []string {
	var names []string
	for _, f := range All() {
		names = append(names, f.Name)
	}
	return names
}

type UnknownError struct {
	Name string
}

func (e *UnknownError) Error() string {
	return "formats: unknown format " + e.Name
}

// fields parses the four fields every format carries. The returned clock
// keeps the seconds of the message for retry projection.
func fields(pair, expiration, entry, direction string) (*signal.Signal, signal.Clock, error) {
	exp, err := signal.ParseExpiration(expiration)
	if err != nil {
		return nil, 0, signal.Malformed("expiration", expiration, err)
	}
	at, err := signal.ParseClock(entry)
	if err != nil {
		return nil, 0, signal.Malformed("entry_time", entry, err)
	}
	dir, err := signal.ParseDirection(direction)
	if err != nil {
		return nil, 0, signal.Malformed("direction", direction, err)
	}
	return &signal.Signal{
		CurrencyPair: signal.NormalizePair(pair),
		Expiration:   exp,
		EntryTime:    at.Truncate(),
		Direction:    dir,
	}, at, nil
}

func extractAnna(_ string, m *signal.RawMatch) (*signal.Signal, error) {
	direction := m.Group(4)
	if direction == "" {
		direction = m.Group(5)
	}
	sig, entry, err := fields(m.Group(1), m.Group(2), m.Group(3), direction)
	if err != nil {
		return nil, err
	}
	sig.Martingale = signal.Project(entry, sig.Expiration, projectedLevels)
	return sig, nil
}

func extractPocket(text string, m *signal.RawMatch) (*signal.Signal, error) {
	sig, _, err := fields(m.Group(1), m.Group(2), m.Group(3), m.Group(4))
	if err != nil {
		return nil, err
	}
	if sig.Martingale, err = signal.ExtractLevels(pocketLevels, text); err != nil {
		return nil, err
	}
	return sig, nil
}

func extractConfirmed(text string, m *signal.RawMatch) (*signal.Signal, error) {
	sig, _, err := fields(m.Group(1), m.Group(3), m.Group(2), m.Group(4))
	if err != nil {
		return nil, err
	}
	if sig.Martingale, err = signal.ExtractLevels(confirmedLevels, text); err != nil {
		return nil, err
	}
	return sig, nil
}

func extractFlags(_ string, m *signal.RawMatch) (*signal.Signal, error) {
	sig, entry, err := fields(m.Group(1), m.Group(2), m.Group(3), m.Group(4))
	if err != nil {
		return nil, err
	}
	sig.Martingale = signal.Project(entry, sig.Expiration, projectedLevels)
	return sig, nil
}
