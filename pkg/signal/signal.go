package signal

import (
	"fmt"
	"strconv"
	"strings"
)

type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Signal is the normalized record every message format converges to.
type Signal struct {
	Source       string
	CurrencyPair string
	// Expiration in minutes
	Expiration int
	EntryTime  Clock
	Direction  Direction
	// Martingale holds retry times, index 0 is level_1
	Martingale []Clock
}

type Parser interface {
	Parse(text string) (*Signal, error)
}

const secondsPerDay = 24 * 60 * 60

// Clock is a time of day in seconds since midnight. No date is tracked.
type Clock int

func NewClock(hour, minute, second int) (Clock, error) {
	if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("signal: invalid hour %d", hour)
	}
	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("signal: invalid minute %d", minute)
	}
	if second < 0 || second > 59 {
		return 0, fmt.Errorf("signal: invalid second %d", second)
	}
	return Clock(hour*3600 + minute*60 + second), nil
}

// ParseClock parses HH:MM or HH:MM:SS.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("signal: invalid time %q", s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("signal: invalid time %q: %w", s, err)
		}
		nums[i] = n
	}
	c, err := NewClock(nums[0], nums[1], nums[2])
	if err != nil {
		return 0, fmt.Errorf("signal: invalid time %q: %w", s, err)
	}
	return c, nil
}

// Add moves the clock forward by the given minutes, wrapping past midnight.
func (c Clock) Add(minutes int) Clock {
	// Whole days don't move the clock and reducing first avoids overflow
	minutes %= secondsPerDay / 60
	v := (int(c) + minutes*60) % secondsPerDay
	if v < 0 {
		v += secondsPerDay
	}
	return Clock(v)
}

// Truncate drops the seconds.
func (c Clock) Truncate() Clock {
	return c - Clock(c.Second())
}

func (c Clock) Hour() int   { return int(c) / 3600 }
func (c Clock) Minute() int { return int(c) % 3600 / 60 }
func (c Clock) Second() int { return int(c) % 60 }

// String renders HH:MM, seconds are dropped.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Levels returns the martingale levels keyed by their label.
func (s *Signal) Levels() map[string]string {
	levels := make(map[string]string, len(s.Martingale))
	for i, c := range s.Martingale {
		levels[LevelName(i+1)] = c.String()
	}
	return levels
}

func LevelName(n int) string {
	return fmt.Sprintf("level_%d", n)
}

// ExpirationString renders the expiration as "<N>M".
func (s *Signal) ExpirationString() string {
	return fmt.Sprintf("%dM", s.Expiration)
}

func (s *Signal) String() string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "%s %s %s %s %s", s.Source, s.CurrencyPair, s.Direction, s.EntryTime, s.ExpirationString())
	for i, c := range s.Martingale {
		fmt.Fprintf(sb, " %s=%s", LevelName(i+1), c)
	}
	return sb.String()
}
