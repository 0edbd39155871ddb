package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/igolaizola/sigrelay/pkg/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSignal(t *testing.T) *signal.Signal {
	t.Helper()
	entry, err := signal.ParseClock("09:58")
	require.NoError(t, err)
	l1, err := signal.ParseClock("10:01")
	require.NoError(t, err)
	return &signal.Signal{
		Source:       "Pocket Option OTC",
		CurrencyPair: "GBP/JPY",
		Expiration:   3,
		EntryTime:    entry,
		Direction:    signal.Sell,
		Martingale:   []signal.Clock{l1},
	}
}

func TestSaveJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "signals")
	s, err := New(dir, "json")
	require.NoError(t, err)
	now := time.Date(2024, 3, 1, 9, 58, 12, 0, time.Local)
	s.now = func() time.Time { return now }

	e, err := s.Save(testSignal(t))
	require.NoError(t, err)
	assert.Equal(t, "signal_20240301095812", e.ID)

	byt, err := os.ReadFile(filepath.Join(dir, "signal_20240301095812.json"))
	require.NoError(t, err)
	want := `{
    "source": "Pocket Option OTC",
    "currency_pair": "GBP/JPY",
    "expiration": "3M",
    "entry_time": "09:58",
    "direction": "SELL",
    "martingale_levels": {
        "level_1": "10:01"
    }
}`
	assert.Equal(t, want, string(byt))
}

func TestSaveCollision(t *testing.T) {
	s, err := New(t.TempDir(), "json")
	require.NoError(t, err)
	now := time.Date(2024, 3, 1, 9, 58, 12, 0, time.Local)
	s.now = func() time.Time { return now }

	first, err := s.Save(testSignal(t))
	require.NoError(t, err)
	second, err := s.Save(testSignal(t))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Regexp(t, `^signal_20240301095812_[0-9a-f]{8}$`, second.ID)
	assert.FileExists(t, s.Path(second.ID))
}

func TestList(t *testing.T) {
	for _, format := range []string{"json", "yaml"} {
		format := format
		t.Run(format, func(t *testing.T) {
			s, err := New(t.TempDir(), format)
			require.NoError(t, err)
			base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
			for i := 0; i < 3; i++ {
				at := base.Add(time.Duration(i) * time.Hour)
				s.now = func() time.Time { return at }
				_, err := s.Save(testSignal(t))
				require.NoError(t, err)
			}
			require.NoError(t, os.WriteFile(filepath.Join(s.dir, "notes.txt"), []byte("x"), 0644))

			entries, err := s.List(base.Add(30*time.Minute), base.Add(3*time.Hour))
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.True(t, entries[0].Received.Equal(base.Add(time.Hour)))
			assert.True(t, entries[1].Received.Equal(base.Add(2*time.Hour)))
			assert.Equal(t, testSignal(t), entries[0].Signal)
		})
	}
}

func TestUnknownFormat(t *testing.T) {
	_, err := New(t.TempDir(), "xml")
	assert.Error(t, err)
}
