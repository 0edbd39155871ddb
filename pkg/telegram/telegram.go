package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/igolaizola/sigrelay/pkg/logger"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	tb "gopkg.in/tucnak/telebot.v2"
)

type Bot struct {
	bot      *tb.Bot
	chat     *tb.Chat
	boot     time.Time
	messages chan string
	limiter  *rate.Limiter
	log      zerolog.Logger
}

func New(token string, chatID int, log zerolog.Logger) (*Bot, error) {
	b, err := tb.NewBot(tb.Settings{
		Token:  token,
		Poller: &tb.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: couldn't create bot: %w", err)
	}
	chat, err := b.ChatByID(strconv.Itoa(chatID))
	if err != nil {
		return nil, fmt.Errorf("telegram: couldn't create chat %d: %w", chatID, err)
	}
	bot := &Bot{
		bot:      b,
		chat:     chat,
		boot:     time.Now(),
		messages: make(chan string, 100),
		// Telegram allows about 20 messages per minute in a group
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 5),
		log:     log.With().Str("component", "telegram").Logger(),
	}
	return bot, nil
}

// HandleChat calls handler with every text message or channel post of the
// given chat.
func (b *Bot) HandleChat(chatID int64, skipReply bool, handler func(string)) {
	h := func(m *tb.Message) {
		if m.Chat == nil || m.Chat.ID != chatID {
			return
		}
		if m.Time().Before(b.boot) {
			return
		}
		if m.IsReply() && skipReply {
			return
		}
		text := m.Text
		if text == "" {
			text = m.Caption
		}
		if text == "" {
			return
		}
		handler(text)
	}
	b.bot.Handle(tb.OnText, h)
	b.bot.Handle(tb.OnChannelPost, h)
	b.bot.Handle(tb.OnPhoto, h)
}

func (b *Bot) HandleCommand(command string, handler func(string)) {
	b.bot.Handle(fmt.Sprintf("/%s", command), func(m *tb.Message) {
		if m.Chat.ID != b.chat.ID {
			return
		}
		if m.Time().Before(b.boot) {
			return
		}
		handler(m.Payload)
	})
}

func (b *Bot) Run(ctx context.Context) error {
	go b.bot.Start()
	defer b.bot.Stop()
	defer b.bot.Send(b.chat, "🛑 bot stopping")
	var msg string
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg = <-b.messages:
		}
		if err := b.limiter.Wait(ctx); err != nil {
			return nil
		}
		opts := tb.ModeDefault
		if strings.Contains(msg, "`") {
			opts = tb.ModeMarkdown
		}
		if _, err := b.bot.Send(b.chat, msg, opts); err != nil {
			b.log.Error().Err(err).Msg("couldn't send message")
		}
	}
}

// Print logs the message and mirrors it to the control chat. Messages are
// dropped from the chat, not from the log, when the queue is full.
func (b *Bot) Print(v ...interface{}) {
	logger.Print(b.log)(v...)
	msg := strings.TrimSpace(fmt.Sprintln(v...))
	select {
	case b.messages <- msg:
	default:
		b.log.Warn().Msg("message queue full, chat message dropped")
	}
}
