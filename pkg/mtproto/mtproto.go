package mtproto

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

type Config struct {
	ID       int
	Hash     string
	Phone    string
	Password string
	Session  string
	// FromID is the chat to listen to, bot API ids like -100123 are accepted
	FromID int64
}

// Listener reads messages as a Telegram user, which allows listening to
// channels where a bot can't be added.
type Listener struct {
	cfg      Config
	fromID   int64
	log      func(v ...interface{})
	callback func(string)
	code     func(context.Context) (string, error)
}

func New(cfg Config, log func(v ...interface{}), callback func(string), code func(context.Context) (string, error)) *Listener {
	return &Listener{
		cfg:      cfg,
		fromID:   NormalizeID(cfg.FromID),
		log:      log,
		callback: callback,
		code:     code,
	}
}

func (l *Listener) Listen(ctx context.Context) error {
	codePrompt := func(ctx context.Context, sentCode *tg.AuthSentCode) (string, error) {
		code, err := l.code(ctx)
		if err != nil {
			return "", err
		}
		return CleanCode(code), nil
	}

	// This will setup and perform authentication flow.
	var user auth.UserAuthenticator = auth.CodeOnly(l.cfg.Phone, auth.CodeAuthenticatorFunc(codePrompt))
	if l.cfg.Password != "" {
		user = auth.Constant(l.cfg.Phone, l.cfg.Password, auth.CodeAuthenticatorFunc(codePrompt))
	}
	flow := auth.NewFlow(user, auth.SendCodeOptions{})

	dispatcher := tg.NewUpdateDispatcher()

	client := telegram.NewClient(l.cfg.ID, l.cfg.Hash, telegram.Options{
		SessionStorage: &session.FileStorage{
			Path: l.cfg.Session,
		},
		UpdateHandler: dispatcher,
	})

	return client.Run(ctx, func(ctx context.Context) error {
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("mtproto: couldn't authenticate: %w", err)
		}
		// Setting up handlers for incoming messages.
		dispatcher.OnNewMessage(func(ctx context.Context, entities tg.Entities, u *tg.UpdateNewMessage) error {
			l.handle(u.Message)
			return nil
		})
		dispatcher.OnNewChannelMessage(func(ctx context.Context, entities tg.Entities, u *tg.UpdateNewChannelMessage) error {
			l.handle(u.Message)
			return nil
		})
		l.log("👂 listening for mtproto messages")
		<-ctx.Done()
		return nil
	})
}

func (l *Listener) handle(msg tg.MessageClass) {
	m, ok := msg.(*tg.Message)
	if !ok || m.Out {
		// Outgoing message, not interesting.
		return
	}
	peerID, err := fromPeer(m.PeerID)
	if err != nil {
		l.log(err)
		return
	}
	if peerID != l.fromID {
		return
	}
	if m.Message == "" {
		return
	}
	l.callback(m.Message)
}

func fromPeer(p tg.PeerClass) (id int64, err error) {
	switch v := p.(type) {
	case *tg.PeerUser:
		return v.UserID, nil
	case *tg.PeerChannel:
		return v.ChannelID, nil
	case *tg.PeerChat:
		return v.ChatID, nil
	}
	return 0, fmt.Errorf("mtproto: invalid peer: %T", p)
}

// NormalizeID converts bot API chat ids (-100<channel>, -<chat>) to raw
// MTProto peer ids.
func NormalizeID(id int64) int64 {
	if id >= 0 {
		return id
	}
	s := strconv.FormatInt(-id, 10)
	if strings.HasPrefix(s, "100") && len(s) > 3 {
		if v, err := strconv.ParseInt(s[3:], 10, 64); err == nil {
			return v
		}
	}
	return -id
}

// CleanCode removes separators from a login code. Telegram expires codes
// that are sent verbatim through a chat, so they are usually typed spaced.
func CleanCode(code string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, code)
}
