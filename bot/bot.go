package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"github.com/birr-rates/birrbot/convert"
	"github.com/birr-rates/birrbot/provider/coingecko"
	"github.com/birr-rates/birrbot/provider/currencies"
	"github.com/birr-rates/birrbot/quote"
	"github.com/birr-rates/birrbot/storage"
	"github.com/birr-rates/birrbot/storage/types"
)

var errMissingToken = errors.New("missing bot token")

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// OfferSource fetches current P2P offers for the bot's trading pair
type OfferSource interface {
	FetchOffers(ctx context.Context, side types.RateType, amount decimal.Decimal) ([]quote.Offer, error)
}

// CoinSource fetches coin market profiles
type CoinSource interface {
	CoinProfile(ctx context.Context, symbol string) (*coingecko.CoinProfile, error)
}

// Converter converts amounts between assets
type Converter interface {
	Convert(ctx context.Context, req convert.Request) (*convert.Result, error)
}

// Config is the bot configuration
type Config struct {
	Token string

	Asset types.Currency // traded asset, defaults to USDT
	Fiat  types.Currency // quote fiat, defaults to ETB

	PollTimeout    time.Duration // long-poll timeout, defaults to 10s
	RequestTimeout time.Duration // per-command upstream budget, defaults to 30s
}

// Bot is the Telegram command surface
type Bot struct {
	tb     *tele.Bot
	logger *slog.Logger

	offers    OfferSource
	coins     CoinSource
	converter Converter
	store     storage.Storage

	policy quote.ReliabilityPolicy

	asset types.Currency
	fiat  types.Currency

	requestTimeout time.Duration
}

type Option func(b *Bot)

// WithLogger specifies the logger for the bot
func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = l
	}
}

// WithReliabilityPolicy overrides the offer reliability policy used
// by the sell quote command
func WithReliabilityPolicy(p quote.ReliabilityPolicy) Option {
	return func(b *Bot) {
		b.policy = p
	}
}

// New creates the bot and registers its command handlers
func New(
	cfg Config,
	offers OfferSource,
	coins CoinSource,
	converter Converter,
	store storage.Storage,
	opts ...Option,
) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errMissingToken
	}

	if cfg.Asset == "" {
		cfg.Asset = currencies.USDT
	}

	if cfg.Fiat == "" {
		cfg.Fiat = currencies.ETB
	}

	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second * 10
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = time.Second * 30
	}

	tb, err := tele.NewBot(tele.Settings{
		Token: cfg.Token,
		Poller: &tele.LongPoller{
			Timeout: cfg.PollTimeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create telegram bot: %w", err)
	}

	b := &Bot{
		tb:             tb,
		logger:         noopLogger,
		offers:         offers,
		coins:          coins,
		converter:      converter,
		store:          store,
		policy:         quote.DefaultFilter(),
		asset:          cfg.Asset,
		fiat:           cfg.Fiat,
		requestTimeout: cfg.RequestTimeout,
	}

	// Apply the options
	for _, opt := range opts {
		opt(b)
	}

	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerHandlers() {
	b.tb.Handle("/start", b.handleStart)
	b.tb.Handle("/help", b.handleStart)
	b.tb.Handle("/p2p", b.handleP2P)
	b.tb.Handle("/p2p_amount", b.handleP2PAmount)
	b.tb.Handle("/sell", b.handleSell)
	b.tb.Handle("/convert", b.handleConvert)
	b.tb.Handle("/coin", b.handleCoin)

	b.tb.Handle(tele.OnQuery, b.handleInline)
}

// Start starts the bot's update polling loop [BLOCKING]
func (b *Bot) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		b.logger.Info("bot to be shutdown")
		b.tb.Stop()
	}()

	b.logger.Info(
		"bot started",
		"pair", fmt.Sprintf("%s/%s", b.asset, b.fiat),
	)

	b.tb.Start()

	b.logger.Info("bot shut down")

	return nil
}

// requestCtx derives the per-command upstream context
func (b *Bot) requestCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.requestTimeout)
}
