package serve

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/sync/errgroup"

	"github.com/birr-rates/birrbot/bot"
	"github.com/birr-rates/birrbot/cmd/env"
	"github.com/birr-rates/birrbot/convert"
	"github.com/birr-rates/birrbot/provider/binance"
	"github.com/birr-rates/birrbot/provider/coingecko"
	"github.com/birr-rates/birrbot/provider/currencies"
	"github.com/birr-rates/birrbot/server"
	"github.com/birr-rates/birrbot/server/config"
	"github.com/birr-rates/birrbot/storage/memory"

	"github.com/birr-rates/birrbot/ingest"
)

// serveCfg wraps the serve configuration
type serveCfg struct {
	config *config.Config

	configPath    string
	telegramToken string
	noBot         bool
}

// NewServeCmd creates the serve subcommand
func NewServeCmd() *ffcli.Command {
	cfg := &serveCfg{
		config: config.DefaultConfig(),
	}

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "serve [flags]",
		LongHelp:   "Serves the birrbot backend, using an in-memory datastore",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *serveCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.config.ListenAddress,
		"listen",
		config.DefaultListenAddress,
		"the IP:PORT URL for the server",
	)

	fs.StringVar(
		&c.configPath,
		"config",
		"",
		"the path to the server TOML configuration, if any",
	)

	fs.StringVar(
		&c.telegramToken,
		"telegram-token",
		"",
		"the Telegram bot API token",
	)

	fs.BoolVar(
		&c.noBot,
		"no-bot",
		false,
		"disable the Telegram bot, serve the HTTP API only",
	)
}

// exec executes the server serve command
func (c *serveCfg) exec(ctx context.Context, _ []string) error {
	// Read the server configuration, if any
	if c.configPath != "" {
		serverCfg, err := config.Read(c.configPath)
		if err != nil {
			return fmt.Errorf("unable to read server config, %w", err)
		}

		c.config = serverCfg
	}

	// Create a new logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Warn("unable to load .env file")
	}

	// Create an in-memory store
	store := memory.NewStorage()

	// Create the ingestion service
	orchestrator := ingest.New(store, ingest.WithLogger(logger))
	for _, provider := range defaultProviders() {
		if err := orchestrator.Register(provider); err != nil {
			return fmt.Errorf("unable to register provider: %w", err)
		}
	}

	// Create the server instance
	s, err := server.New(
		store,
		server.WithLogger(logger),
		server.WithConfig(c.config),
	)
	if err != nil {
		return fmt.Errorf("unable to create server, %w", err)
	}

	runCtx, cancelFn := signal.NotifyContext(
		ctx,
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)

	defer cancelFn()

	group, gCtx := errgroup.WithContext(runCtx)

	// Start the HTTP server
	group.Go(func() error {
		return s.Serve(gCtx)
	})

	// Start the ingestion service
	group.Go(func() error {
		return orchestrator.Start(gCtx)
	})

	// Start the Telegram bot, if enabled
	if !c.noBot {
		token := c.telegramToken
		if token == "" {
			token = os.Getenv(env.Prefix + env.TelegramTokenSuffix)
		}

		var (
			p2pClient = binance.NewClient(
				currencies.USDT,
				currencies.ETB,
				time.Second*30,
			)
			coinClient = coingecko.NewClient(time.Second * 30)
			converter  = convert.NewConverter(coinClient)
		)

		b, err := bot.New(
			bot.Config{Token: token},
			p2pClient,
			coinClient,
			converter,
			store,
			bot.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("unable to create bot, %w", err)
		}

		group.Go(func() error {
			return b.Start(gCtx)
		})
	}

	return group.Wait()
}
