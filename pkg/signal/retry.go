package signal

import (
	"fmt"
	"regexp"
)

// Project schedules sequential retry windows of fixed length: each level
// starts when the previous one expires, the first one when the entry does.
func Project(entry Clock, expiration, levels int) []Clock {
	if levels <= 0 {
		return nil
	}
	out := make([]Clock, 0, levels)
	prev := entry
	for i := 0; i < levels; i++ {
		prev = prev.Add(expiration)
		out = append(out, prev.Truncate())
	}
	return out
}

// ExtractLevels returns every retry time announced in the text, in order of
// appearance. The first capture group of re must hold the time.
func ExtractLevels(re *regexp.Regexp, text string) ([]Clock, error) {
	var out []Clock
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if len(m) < 2 {
			return nil, fmt.Errorf("signal: level pattern %s has no capture group", re)
		}
		c, err := ParseClock(m[1])
		if err != nil {
			return nil, Malformed("martingale", m[1], err)
		}
		out = append(out, c.Truncate())
	}
	return out, nil
}
