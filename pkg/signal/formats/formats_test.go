package formats

import (
	"errors"
	"testing"

	"github.com/igolaizola/sigrelay/pkg/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type want struct {
	source     string
	pair       string
	expiration string
	entry      string
	direction  signal.Direction
	levels     map[string]string
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		msg     string
		want    *want
		wantErr bool
	}{
		{
			name: "anna signal",
			msg: `🚀 NEW SIGNAL 🚀
CURRENCY PAIR: EUR/USD-OTC
EXPIRATION: 5M
TIME (UTC-03:00): 14:00:00
DIRECTION: call 🟢`,
			want: &want{
				source:     "Anna Signal",
				pair:       "EUR/USD",
				expiration: "5M",
				entry:      "14:00",
				direction:  signal.Buy,
				levels:     map[string]string{"level_1": "14:05", "level_2": "14:10"},
			},
		},
		{
			name: "anna signal lower case with seconds",
			msg: `currency pair: gbp/usd-otc
some promo text in between

expiration: 3 minutes
time (utc+01:00): 10:59:30
👉 PUT`,
			want: &want{
				source:     "Anna Signal",
				pair:       "gbp/usd",
				expiration: "3M",
				entry:      "10:59",
				direction:  signal.Sell,
				levels:     map[string]string{"level_1": "11:02", "level_2": "11:05"},
			},
		},
		{
			name: "anna signal wraps midnight",
			msg: `CURRENCY PAIR: USD/JPY-OTC
EXPIRATION: 5M
TIME (UTC-03:00): 23:58:00
SELL`,
			want: &want{
				source:     "Anna Signal",
				pair:       "USD/JPY",
				expiration: "5M",
				entry:      "23:58",
				direction:  signal.Sell,
				levels:     map[string]string{"level_1": "00:03", "level_2": "00:08"},
			},
		},
		{
			name: "anna signal labeled direction after promo word",
			msg: `CURRENCY PAIR: EUR/USD-OTC
EXPIRATION: 5M
TIME (UTC-03:00): 14:00:00
Buy with 1% only
DIRECTION: put`,
			want: &want{
				source:     "Anna Signal",
				pair:       "EUR/USD",
				expiration: "5M",
				entry:      "14:00",
				direction:  signal.Sell,
				levels:     map[string]string{"level_1": "14:05", "level_2": "14:10"},
			},
		},
		{
			name: "anna signal unlabeled direction takes the last word",
			msg: `CURRENCY PAIR: EUR/USD-OTC
EXPIRATION: 5M
TIME (UTC-03:00): 14:00:00
Don't buy before the time
SELL`,
			want: &want{
				source:     "Anna Signal",
				pair:       "EUR/USD",
				expiration: "5M",
				entry:      "14:00",
				direction:  signal.Sell,
				levels:     map[string]string{"level_1": "14:05", "level_2": "14:10"},
			},
		},
		{
			name: "anna signal pair with spaces",
			msg: `CURRENCY PAIR: EUR USD OTC
EXPIRATION: 5M
TIME (UTC-03:00): 14:00:00
DIRECTION: call`,
			want: &want{
				source:     "Anna Signal",
				pair:       "EUR USD",
				expiration: "5M",
				entry:      "14:00",
				direction:  signal.Buy,
				levels:     map[string]string{"level_1": "14:05", "level_2": "14:10"},
			},
		},
		{
			name: "anna signal huge expiration",
			msg: `CURRENCY PAIR: EUR/USD-OTC
EXPIRATION: 153722867280912931M
TIME (UTC-03:00): 14:00:00
call`,
			want: &want{
				source:     "Anna Signal",
				pair:       "EUR/USD",
				expiration: "153722867280912931M",
				entry:      "14:00",
				direction:  signal.Buy,
				levels:     map[string]string{"level_1": "05:31", "level_2": "21:02"},
			},
		},
		{
			name: "anna signal malformed expiration",
			msg: `CURRENCY PAIR: EUR/USD-OTC
EXPIRATION: M5
TIME (UTC-03:00): 14:00:00
call`,
			wantErr: true,
		},
		{
			name: "anna signal invalid time",
			msg: `CURRENCY PAIR: EUR/USD-OTC
EXPIRATION: 5M
TIME (UTC-03:00): 25:00:00
call`,
			wantErr: true,
		},
		{
			name: "pocket option otc",
			msg: `📊 Pair: GBP/JPY-OTC
⏳ Expiration: 3 Minute
⏰ Entry Time: 09:58
📉 Signal Direction: SELL

Martingale plan:
Level 1 — At 10:01
Level 2 — At 10:04`,
			want: &want{
				source:     "Pocket Option OTC",
				pair:       "GBP/JPY",
				expiration: "3M",
				entry:      "09:58",
				direction:  signal.Sell,
				levels:     map[string]string{"level_1": "10:01", "level_2": "10:04"},
			},
		},
		{
			name: "pocket option otc without levels",
			msg: `Pair: EUR/JPY-OTC
Expiration: 1 Minute
Entry Time: 12:30:15
Signal Direction: 🟩 Buy`,
			want: &want{
				source:     "Pocket Option OTC",
				pair:       "EUR/JPY",
				expiration: "1M",
				entry:      "12:30",
				direction:  signal.Buy,
				levels:     map[string]string{},
			},
		},
		{
			name: "pocket option otc invalid level time",
			msg: `Pair: EUR/JPY-OTC
Expiration: 1 Minute
Entry Time: 12:30
Signal Direction: buy
Level 1 - At 12:99`,
			wantErr: true,
		},
		{
			name: "confirmed entry",
			msg: `✅ CONFIRMED ENTRY ✅
🌍 Asset: EUR USD
⏰ Time: 11:00
⌛ Expiration: 2 minute
Direction: 🔴 put`,
			want: &want{
				source:     "Confirmed Entry",
				pair:       "EUR USD",
				expiration: "2M",
				entry:      "11:00",
				direction:  signal.Sell,
				levels:     map[string]string{},
			},
		},
		{
			name: "confirmed entry with martingales",
			msg: `Asset: AUD/JPY-OTC 🇦🇺🇯🇵
Time: 16:40
Expiration: 5 minutes
Direction: 🔴 CALL

Martingale 1 at 16:45
Martingale 2 at 16:50
Martingale 3 at 16:55`,
			want: &want{
				source:     "Confirmed Entry",
				pair:       "AUD/JPY",
				expiration: "5M",
				entry:      "16:40",
				direction:  signal.Buy,
				levels:     map[string]string{"level_1": "16:45", "level_2": "16:50", "level_3": "16:55"},
			},
		},
		{
			name: "currency flags",
			msg: `🇦🇺 AUD/CAD 🇨🇦
⏳ Expiration 4M
📍 Entry at 08:00
🟩 BUY`,
			want: &want{
				source:     "Currency Flags",
				pair:       "AUD/CAD",
				expiration: "4M",
				entry:      "08:00",
				direction:  signal.Buy,
				levels:     map[string]string{"level_1": "08:04", "level_2": "08:08"},
			},
		},
		{
			name: "currency flags after a date",
			msg: `📅 16/10
🇦🇺 AUD/CAD 🇨🇦
⏳ Expiration 4M
📍 Entry at 08:00
🟩 BUY`,
			want: &want{
				source:     "Currency Flags",
				pair:       "AUD/CAD",
				expiration: "4M",
				entry:      "08:00",
				direction:  signal.Buy,
				levels:     map[string]string{"level_1": "08:04", "level_2": "08:08"},
			},
		},
		{
			name: "currency flags sell otc",
			msg: `💰 nzd/usd-otc
expiration 2m
entry at 23:59
🟥 SELL
good luck`,
			want: &want{
				source:     "Currency Flags",
				pair:       "nzd/usd",
				expiration: "2M",
				entry:      "23:59",
				direction:  signal.Sell,
				levels:     map[string]string{"level_1": "00:01", "level_2": "00:03"},
			},
		},
		{
			name:    "no signal",
			msg:     "Good morning traders! Today we will have 10 signals, stay tuned 🔥",
			wantErr: true,
		},
		{
			name:    "partial signal",
			msg:     "Pair: EUR/USD-OTC\nExpiration: 5 Minute",
			wantErr: true,
		},
		{
			name:    "empty",
			msg:     "",
			wantErr: true,
		},
	}

	registry, err := Default()
	require.NoError(t, err)
	engine := signal.NewEngine(registry)

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			sig, err := engine.Extract(tt.msg)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, signal.ErrNoMatch)
				assert.Nil(t, sig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.source, sig.Source)
			assert.Equal(t, tt.want.pair, sig.CurrencyPair)
			assert.Equal(t, tt.want.expiration, sig.ExpirationString())
			assert.Equal(t, tt.want.entry, sig.EntryTime.String())
			assert.Zero(t, sig.EntryTime.Second())
			assert.Equal(t, tt.want.direction, sig.Direction)
			assert.Equal(t, tt.want.levels, sig.Levels())
		})
	}
}

func TestMalformedReportsFormat(t *testing.T) {
	registry, err := Default()
	require.NoError(t, err)
	_, err = signal.NewEngine(registry).Extract(`CURRENCY PAIR: EUR/USD-OTC
EXPIRATION: M5
TIME (UTC-03:00): 14:00:00
call`)
	var merr *signal.MalformedError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, AnnaSignal, merr.Format)
	assert.Equal(t, "expiration", merr.Field)
	assert.Equal(t, "M5", merr.Value)
}

func TestIdempotent(t *testing.T) {
	registry, err := Default()
	require.NoError(t, err)
	engine := signal.NewEngine(registry)
	msg := "CURRENCY PAIR: EUR/USD-OTC\nEXPIRATION: 5M\nTIME (UTC-03:00): 14:00:00\ncall"
	first, err := engine.Extract(msg)
	require.NoError(t, err)
	second, err := engine.Extract(msg)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDirectionIsCanonical(t *testing.T) {
	registry, err := Default()
	require.NoError(t, err)
	engine := signal.NewEngine(registry)
	msgs := []string{}
	for _, w := range []string{"call", "put", "buy", "sell", "CALL", "Put"} {
		msgs = append(msgs, "CURRENCY PAIR: EUR/USD-OTC\nEXPIRATION: 5M\nTIME (UTC-03:00): 14:00:00\n"+w)
		msgs = append(msgs, "Pair: EUR/USD-OTC\nExpiration: 5 Minute\nEntry Time: 14:00\nSignal Direction: "+w)
	}
	for _, w := range []string{"call", "put", "CALL", "PUT"} {
		msgs = append(msgs, "Asset: EUR USD\nTime: 14:00\nExpiration: 5 minute\nDirection: 🔴 "+w)
	}
	for _, w := range []string{"🟩 BUY", "🟥 SELL", "🟩 buy", "🟥 sell"} {
		msgs = append(msgs, "EUR/USD\nExpiration 5M\nEntry at 14:00\n"+w)
	}
	for _, msg := range msgs {
		sig, err := engine.Extract(msg)
		require.NoError(t, err, msg)
		assert.Contains(t, []signal.Direction{signal.Buy, signal.Sell}, sig.Direction, msg)
	}
}

func TestDefaultSubset(t *testing.T) {
	registry, err := Default(CurrencyFlags, PocketOptionOTC)
	require.NoError(t, err)
	formats := registry.Formats()
	require.Len(t, formats, 2)
	assert.Equal(t, PocketOptionOTC, formats[0].Name)
	assert.Equal(t, CurrencyFlags, formats[1].Name)

	// Without the anna format a labeled message isn't recognized
	_, err = signal.NewEngine(registry).Extract("CURRENCY PAIR: EUR/USD-OTC\nEXPIRATION: 5M\nTIME (UTC-03:00): 14:00:00\ncall")
	assert.ErrorIs(t, err, signal.ErrNoMatch)

	_, err = Default("unknown")
	var uerr *UnknownError
	assert.True(t, errors.As(err, &uerr))
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{AnnaSignal, PocketOptionOTC, ConfirmedEntry, CurrencyFlags}, Names())
}
