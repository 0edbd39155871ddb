package sigrelay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/igolaizola/sigrelay/pkg/logger"
	"github.com/igolaizola/sigrelay/pkg/metrics"
	"github.com/igolaizola/sigrelay/pkg/mtproto"
	"github.com/igolaizola/sigrelay/pkg/signal"
	"github.com/igolaizola/sigrelay/pkg/signal/parser"
	"github.com/igolaizola/sigrelay/pkg/store"
	"github.com/igolaizola/sigrelay/pkg/store/bolt"
	"github.com/igolaizola/sigrelay/pkg/store/file"
	"github.com/igolaizola/sigrelay/pkg/store/inmem"
	"github.com/igolaizola/sigrelay/pkg/telegram"
	"github.com/igolaizola/sigrelay/pkg/trim"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var version = "v241016a"

type Config struct {
	Parser        string
	Formats       []string
	DropLastWords int

	// Store is one of "file", "bolt" or "memory"
	Store        string
	Output       string
	OutputFormat string
	DBPath       string

	TelegramToken string
	ControlChat   int
	SignalChat    int64

	APIID    int
	APIHash  string
	Phone    string
	Password string
	Session  string
	Channel  int64

	MetricsAddr string
	Log         logger.Config
}

type Bot struct {
	ctx         context.Context
	cancel      context.CancelFunc
	log         func(v ...interface{})
	logger      zerolog.Logger
	parser      signal.Parser
	trim        trim.Policy
	store       store.Store
	tgbot       *telegram.Bot
	listener    *mtproto.Listener
	metricsAddr string
	codes       chan string
	stdin       io.Reader

	lock     sync.Mutex
	received int
	parsed   int
	rejected int
	last     *store.Entry
}

func NewBot(cfg Config) (*Bot, error) {
	if cfg.TelegramToken == "" && cfg.APIID == 0 {
		return nil, errors.New("sigrelay: no message source configured")
	}
	l := logger.New(cfg.Log)

	p, err := parser.NewParser(cfg.Parser, cfg.Formats...)
	if err != nil {
		return nil, fmt.Errorf("sigrelay: couldn't create parser: %w", err)
	}
	st, err := NewStore(cfg.Store, cfg.Output, cfg.OutputFormat, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	b := newBot(l, p, trim.Policy{DropLastWords: cfg.DropLastWords}, st)
	b.metricsAddr = cfg.MetricsAddr

	if cfg.TelegramToken != "" {
		tgbot, err := telegram.New(cfg.TelegramToken, cfg.ControlChat, l)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("sigrelay: couldn't create telegram bot: %w", err)
		}
		b.tgbot = tgbot
		b.log = tgbot.Print
		if cfg.SignalChat != 0 {
			tgbot.HandleChat(cfg.SignalChat, false, b.handle)
		}
		b.commands()
	}
	if cfg.APIID != 0 {
		b.listener = mtproto.New(mtproto.Config{
			ID:       cfg.APIID,
			Hash:     cfg.APIHash,
			Phone:    cfg.Phone,
			Password: cfg.Password,
			Session:  cfg.Session,
			FromID:   cfg.Channel,
		}, b.log, b.handle, b.code)
	}
	return b, nil
}

func newBot(l zerolog.Logger, p signal.Parser, policy trim.Policy, st store.Store) *Bot {
	return &Bot{
		ctx:    context.TODO(),
		log:    logger.Print(l),
		logger: l,
		parser: p,
		trim:   policy,
		store:  st,
		codes:  make(chan string, 1),
		stdin:  os.Stdin,
	}
}

// NewStore creates the signal store of the given kind.
func NewStore(kind, dir, format, dbPath string) (store.Store, error) {
	switch kind {
	case "", "file":
		s, err := file.New(dir, format)
		if err != nil {
			return nil, fmt.Errorf("sigrelay: couldn't create file store: %w", err)
		}
		return s, nil
	case "bolt":
		s, err := bolt.New(dbPath)
		if err != nil {
			return nil, fmt.Errorf("sigrelay: couldn't create db: %w", err)
		}
		return s, nil
	case "memory":
		return inmem.New(), nil
	default:
		return nil, fmt.Errorf("sigrelay: unknown store %q", kind)
	}
}

func (b *Bot) commands() {
	b.tgbot.HandleCommand("status", func(_ string) {
		b.log(b.status())
	})
	b.tgbot.HandleCommand("last", func(_ string) {
		to := time.Now()
		entries, err := b.store.List(to.Add(-24*time.Hour), to)
		if err != nil {
			b.log(err)
			return
		}
		if len(entries) == 0 {
			b.log("no signals in the last 24h")
			return
		}
		sb := &strings.Builder{}
		if len(entries) > 10 {
			entries = entries[len(entries)-10:]
		}
		for _, e := range entries {
			fmt.Fprintf(sb, "%s %s\n", e.Received.Local().Format("15:04:05"), e.Signal)
		}
		b.log(sb.String())
	})
	b.tgbot.HandleCommand("code", func(msg string) {
		select {
		case b.codes <- msg:
		default:
			b.log("login code not requested")
		}
	})
	b.tgbot.HandleCommand("shutdown", func(_ string) {
		b.log("shutting down")
		b.shutdown()
	})
}

func (b *Bot) Run(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)
	defer b.cancel()
	defer b.store.Close()

	g, gctx := errgroup.WithContext(b.ctx)
	if b.tgbot != nil {
		g.Go(func() error {
			return b.tgbot.Run(gctx)
		})
	}
	if b.listener != nil {
		g.Go(func() error {
			return b.listener.Listen(gctx)
		})
	}
	if b.metricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, b.metricsAddr)
		})
	}
	b.log(fmt.Sprintf("🤖 sigrelay running\n- version: %s", version))
	defer b.logger.Info().Msg("🛑 sigrelay stopped")
	return g.Wait()
}

func (b *Bot) handle(text string) {
	_, _ = b.process(text)
}

// process turns a message into a stored signal. Rejections are logged and
// never interrupt the message loop.
func (b *Bot) process(text string) (*store.Entry, error) {
	metrics.MessagesTotal.Inc()
	b.lock.Lock()
	b.received++
	b.lock.Unlock()

	kept, dropped := b.trim.Apply(text)
	if dropped != "" {
		b.logger.Debug().Str("dropped", dropped).Msg("trailing words ignored")
	}

	sig, err := b.parser.Parse(kept)
	if err != nil {
		b.reject(err)
		return nil, err
	}
	e, err := b.store.Save(sig)
	if err != nil {
		metrics.RejectedTotal.WithLabelValues(metrics.ReasonStore).Inc()
		err = fmt.Errorf("sigrelay: couldn't save signal: %w", err)
		b.log(err)
		return nil, err
	}
	metrics.SignalsTotal.WithLabelValues(sig.Source).Inc()
	b.lock.Lock()
	b.parsed++
	b.last = e
	b.lock.Unlock()
	b.log(fmt.Sprintf("💾 signal saved %s: %s", e.ID, sig))
	return e, nil
}

func (b *Bot) reject(err error) {
	b.lock.Lock()
	b.rejected++
	b.lock.Unlock()
	var merr *signal.MalformedError
	switch {
	case errors.As(err, &merr):
		metrics.RejectedTotal.WithLabelValues(metrics.ReasonMalformed).Inc()
		b.log(fmt.Sprintf("⚠️ %v", err))
	case errors.Is(err, signal.ErrNoMatch):
		metrics.RejectedTotal.WithLabelValues(metrics.ReasonNoMatch).Inc()
		b.logger.Debug().Msg("no signal matched")
	default:
		metrics.RejectedTotal.WithLabelValues(metrics.ReasonMalformed).Inc()
		b.log(err)
	}
}

func (b *Bot) status() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "📨 messages: %d\n✅ signals: %d\n❌ rejected: %d", b.received, b.parsed, b.rejected)
	if b.last != nil {
		fmt.Fprintf(sb, "\n🕒 last: %s %s", b.last.Received.Local().Format("15:04:05"), b.last.Signal)
	}
	return sb.String()
}

// code waits for the mtproto login code, from the control chat when there
// is one or from stdin otherwise.
func (b *Bot) code(ctx context.Context) (string, error) {
	if b.tgbot != nil {
		b.log("🔑 send the telegram login code with /code, separate the digits with spaces")
	} else {
		fmt.Print("Enter telegram login code: ")
		go func() {
			line, err := bufio.NewReader(b.stdin).ReadString('\n')
			if err != nil && line == "" {
				return
			}
			select {
			case b.codes <- line:
			default:
			}
		}()
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case code := <-b.codes:
		return strings.TrimSpace(code), nil
	}
}

func (b *Bot) shutdown() {
	if b.cancel != nil {
		b.cancel()
	}
}
