package signal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// record is the wire shape of a signal. Field order is the document key order.
type record struct {
	Source           string            `json:"source" yaml:"source"`
	CurrencyPair     string            `json:"currency_pair" yaml:"currency_pair"`
	Expiration       string            `json:"expiration" yaml:"expiration"`
	EntryTime        string            `json:"entry_time" yaml:"entry_time"`
	Direction        string            `json:"direction" yaml:"direction"`
	MartingaleLevels map[string]string `json:"martingale_levels" yaml:"martingale_levels"`
}

func (s *Signal) pairs() [][2]string {
	return [][2]string{
		{"source", s.Source},
		{"currency_pair", s.CurrencyPair},
		{"expiration", s.ExpirationString()},
		{"entry_time", s.EntryTime.String()},
		{"direction", string(s.Direction)},
	}
}

// MarshalJSON writes keys in a fixed order and levels as level_1..level_n.
func (s Signal) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, kv := range s.pairs() {
		if err := writeJSONPair(&buf, kv[0], kv[1]); err != nil {
			return nil, err
		}
		buf.WriteByte(',')
	}
	buf.WriteString(`"martingale_levels":{`)
	for i, c := range s.Martingale {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONPair(&buf, LevelName(i+1), c.String()); err != nil {
			return nil, err
		}
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

func writeJSONPair(buf *bytes.Buffer, key, value string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

func (s *Signal) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("signal: couldn't decode json: %w", err)
	}
	return s.fromRecord(&r)
}

// MarshalYAML builds an ordered mapping node.
func (s Signal) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, kv := range s.pairs() {
		node.Content = append(node.Content, scalar(kv[0]), scalar(kv[1]))
	}
	levels := &yaml.Node{Kind: yaml.MappingNode}
	if len(s.Martingale) == 0 {
		levels.Style = yaml.FlowStyle
	}
	for i, c := range s.Martingale {
		levels.Content = append(levels.Content, scalar(LevelName(i+1)), scalar(c.String()))
	}
	node.Content = append(node.Content, scalar("martingale_levels"), levels)
	return node, nil
}

func scalar(v string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
	// 14:05 would otherwise be read back as a sexagesimal number by YAML 1.1 readers
	if strings.Contains(v, ":") {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}

func (s *Signal) UnmarshalYAML(node *yaml.Node) error {
	var r record
	if err := node.Decode(&r); err != nil {
		return fmt.Errorf("signal: couldn't decode yaml: %w", err)
	}
	return s.fromRecord(&r)
}

func (s *Signal) fromRecord(r *record) error {
	exp, err := ParseExpiration(r.Expiration)
	if err != nil {
		return err
	}
	entry, err := ParseClock(r.EntryTime)
	if err != nil {
		return err
	}
	dir := Direction(strings.ToUpper(strings.TrimSpace(r.Direction)))
	if dir != Buy && dir != Sell {
		return fmt.Errorf("signal: invalid direction %q", r.Direction)
	}
	levels := make([]Clock, len(r.MartingaleLevels))
	seen := make([]bool, len(levels))
	for k, v := range r.MartingaleLevels {
		n, err := strconv.Atoi(strings.TrimPrefix(k, "level_"))
		if err != nil || !strings.HasPrefix(k, "level_") {
			return fmt.Errorf("signal: invalid martingale level %q", k)
		}
		if n < 1 || n > len(levels) || seen[n-1] {
			return fmt.Errorf("signal: martingale levels aren't contiguous: %q", k)
		}
		c, err := ParseClock(v)
		if err != nil {
			return err
		}
		levels[n-1] = c.Truncate()
		seen[n-1] = true
	}
	*s = Signal{
		Source:       r.Source,
		CurrencyPair: r.CurrencyPair,
		Expiration:   exp,
		EntryTime:    entry.Truncate(),
		Direction:    dir,
	}
	if len(levels) > 0 {
		s.Martingale = levels
	}
	return nil
}
