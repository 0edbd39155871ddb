package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/igolaizola/sigrelay"
	"github.com/igolaizola/sigrelay/pkg/logger"
	sig "github.com/igolaizola/sigrelay/pkg/signal"
	"github.com/igolaizola/sigrelay/pkg/signal/formats"
	"github.com/igolaizola/sigrelay/pkg/signal/parser"
	"github.com/igolaizola/sigrelay/pkg/trim"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

func main() {
	// Create signal based context
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		select {
		case <-c:
			cancel()
		case <-ctx.Done():
			cancel()
		}
		signal.Stop(c)
	}()

	// Values from a .env file are read as environment variables
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatal(err)
	}

	// Launch command
	cmd := newCommand()
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *ffcli.Command {
	fs := flag.NewFlagSet("sigrelay", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "sigrelay [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newRunCommand(),
			newParseCommand(os.Stdin, os.Stdout, os.Stderr),
			newFormatsCommand(os.Stdout),
		},
	}
}

func newRunCommand() *ffcli.Command {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	var cfg sigrelay.Config
	fs.StringVar(&cfg.Parser, "parser", "formats", "parser name (formats, json)")
	formatList := fs.String("formats", "", "comma separated formats to enable, all by default")
	fs.IntVar(&cfg.DropLastWords, "drop-last-words", 0, "trailing words of each message to ignore")

	fs.StringVar(&cfg.Store, "store", "file", "signal store (file, bolt, memory)")
	fs.StringVar(&cfg.Output, "output", "signals", "output directory for the file store")
	fs.StringVar(&cfg.OutputFormat, "output-format", "json", "file store format (json, yaml)")
	fs.StringVar(&cfg.DBPath, "db", "sigrelay.db", "database path for the bolt store")
	dry := fs.Bool("dry", false, "enable dry mode, signals are kept in memory")

	fs.StringVar(&cfg.TelegramToken, "telegram-token", "", "telegram bot token")
	fs.IntVar(&cfg.ControlChat, "telegram-control-chat", 0, "telegram chat id for logs and commands")
	fs.Int64Var(&cfg.SignalChat, "telegram-signal-chat", 0, "telegram chat id where the bot reads signals")

	fs.IntVar(&cfg.APIID, "api-id", 0, "telegram api id for the user client")
	fs.StringVar(&cfg.APIHash, "api-hash", "", "telegram api hash for the user client")
	fs.StringVar(&cfg.Phone, "phone", "", "phone number of the telegram user")
	fs.StringVar(&cfg.Password, "password", "", "two-step verification password (optional)")
	fs.StringVar(&cfg.Session, "session", "sigrelay.session", "user client session file")
	fs.Int64Var(&cfg.Channel, "channel", 0, "chat or channel id the user client reads signals from")

	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "prometheus metrics address, e.g. :9090 (optional)")
	fs.StringVar(&cfg.Log.Level, "log-level", "info", "log level")
	fs.StringVar(&cfg.Log.File, "log-file", "", "rotated log file (optional)")

	return &ffcli.Command{
		Name:       "run",
		ShortUsage: "sigrelay run [flags]",
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ff.PlainParser),
			ff.WithEnvVarPrefix("SIGRELAY"),
		},
		ShortHelp: "listen to telegram and save the signals",
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			cfg.Formats = splitList(*formatList)
			if *dry {
				cfg.Store = "memory"
			}
			if cfg.TelegramToken != "" && cfg.ControlChat == 0 {
				return errors.New("missing telegram control chat")
			}
			if cfg.APIID != 0 {
				if cfg.APIHash == "" {
					return errors.New("missing telegram api hash")
				}
				if cfg.Phone == "" {
					return errors.New("missing telegram phone")
				}
				if cfg.Channel == 0 {
					return errors.New("missing telegram channel")
				}
			}
			if cfg.TelegramToken != "" && cfg.APIID == 0 && cfg.SignalChat == 0 {
				return errors.New("missing telegram signal chat")
			}
			bot, err := sigrelay.NewBot(cfg)
			if err != nil {
				return err
			}
			return bot.Run(ctx)
		},
	}
}

func newParseCommand(stdin io.Reader, stdout, stderr io.Writer) *ffcli.Command {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	name := fs.String("parser", "formats", "parser name (formats, json)")
	formatList := fs.String("formats", "", "comma separated formats to enable, all by default")
	drop := fs.Int("drop-last-words", 0, "trailing words of each message to ignore")
	output := fs.String("output-format", "json", "output format (json, yaml)")

	return &ffcli.Command{
		Name:       "parse",
		ShortUsage: "sigrelay parse [flags] [file...]",
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ff.PlainParser),
			ff.WithEnvVarPrefix("SIGRELAY"),
		},
		ShortHelp: "parse messages from files or stdin and print the signals",
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			p, err := parser.NewParser(*name, splitList(*formatList)...)
			if err != nil {
				return err
			}
			encode, err := encoder(*output)
			if err != nil {
				return err
			}
			l := logger.Print(logger.NewWithWriter(zerolog.ConsoleWriter{Out: stderr, NoColor: true}, zerolog.InfoLevel))
			policy := trim.Policy{DropLastWords: *drop}

			inputs := args
			if len(inputs) == 0 {
				inputs = []string{"-"}
			}
			var found int
			for _, in := range inputs {
				text, err := read(in, stdin)
				if err != nil {
					return err
				}
				kept, _ := policy.Apply(text)
				s, err := p.Parse(kept)
				if err != nil {
					l(fmt.Errorf("%s: %w", in, err))
					continue
				}
				byt, err := encode(s)
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, string(byt))
				found++
			}
			if found == 0 {
				return errors.New("no signal found")
			}
			return nil
		},
	}
}

func newFormatsCommand(stdout io.Writer) *ffcli.Command {
	fs := flag.NewFlagSet("formats", flag.ExitOnError)
	return &ffcli.Command{
		Name:       "formats",
		ShortUsage: "sigrelay formats",
		ShortHelp:  "list the known message formats in evaluation order",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			for _, f := range formats.All() {
				fmt.Fprintf(w, "%s\t%s\n", f.Name, f.Label)
			}
			return w.Flush()
		},
	}
}

func encoder(format string) (func(*sig.Signal) ([]byte, error), error) {
	switch format {
	case "", "json":
		return func(s *sig.Signal) ([]byte, error) {
			return json.MarshalIndent(s, "", "    ")
		}, nil
	case "yaml", "yml":
		return func(s *sig.Signal) ([]byte, error) {
			return yaml.Marshal(s)
		}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

func read(name string, stdin io.Reader) (string, error) {
	if name == "-" {
		byt, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("couldn't read stdin: %w", err)
		}
		return string(byt), nil
	}
	byt, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("couldn't read %s: %w", name, err)
	}
	return string(byt), nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
