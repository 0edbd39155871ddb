package signal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	otcSuffix    = regexp.MustCompile(`(?i)[\s_-]*\(?otc\)?$`)
	leadingInt   = regexp.MustCompile(`^\d+`)
	variationSel = strings.NewReplacer("\uFE0F", "", "\uFE0E", "")
	markerSpacer = strings.NewReplacer("🟩", " 🟩 ", "🟥", " 🟥 ", "🔴", " 🔴 ")
)

// NormalizePair strips exchange-type markers such as "-OTC" and trims whitespace.
func NormalizePair(pair string) string {
	pair = strings.TrimSpace(pair)
	pair = otcSuffix.ReplaceAllString(pair, "")
	return strings.TrimSpace(pair)
}

// ParseExpiration returns the leading integer of "5M", "5 Minute" or "5 minutes".
func ParseExpiration(s string) (int, error) {
	s = strings.TrimSpace(s)
	digits := leadingInt.FindString(s)
	if digits == "" {
		return 0, fmt.Errorf("signal: expiration %q doesn't start with a number", s)
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("signal: invalid expiration %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("signal: expiration must be positive: %q", s)
	}
	return n, nil
}

var directionWords = map[string]Direction{
	"call": Buy,
	"put":  Sell,
	"buy":  Buy,
	"sell": Sell,
	"🟩":    Buy,
	"🟥":    Sell,
}

// Markers that decorate a direction without carrying one.
var directionMarkers = map[string]bool{
	"🔴": true,
}

// ParseDirection maps any known direction vocabulary onto BUY or SELL.
// Every token must be known and all of them must agree.
func ParseDirection(s string) (Direction, error) {
	var dir Direction
	for _, tok := range strings.Fields(strings.ToLower(markerSpacer.Replace(variationSel.Replace(s)))) {
		if directionMarkers[tok] {
			continue
		}
		d, ok := directionWords[tok]
		if !ok {
			return "", fmt.Errorf("signal: unknown direction %q", s)
		}
		if dir != "" && dir != d {
			return "", fmt.Errorf("signal: conflicting direction %q", s)
		}
		dir = d
	}
	if dir == "" {
		return "", fmt.Errorf("signal: missing direction %q", s)
	}
	return dir, nil
}
