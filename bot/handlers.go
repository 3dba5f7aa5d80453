package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"github.com/birr-rates/birrbot/convert"
	"github.com/birr-rates/birrbot/provider/binance"
	"github.com/birr-rates/birrbot/provider/coingecko"
	"github.com/birr-rates/birrbot/quote"
	"github.com/birr-rates/birrbot/storage/types"
)

const topOffersShown = 10

func (b *Bot) handleStart(c tele.Context) error {
	message := fmt.Sprintf(
		"Hello! I track Binance P2P %s/%s rates and CoinGecko prices.\n\n"+
			"Commands:\n"+
			"/p2p - top 10 P2P offers for buying %s\n"+
			"/p2p_amount <amount> <%s|%s> - offers matching a trade size\n"+
			"/sell <amount> - blended quote for selling %s\n"+
			"/convert <amount> <from> <to> - convert between assets\n"+
			"/coin <symbol> - coin market summary",
		b.asset, b.fiat,
		b.asset,
		b.fiat, b.asset,
		b.asset,
	)

	return c.Send(message)
}

func (b *Bot) handleP2P(c tele.Context) error {
	ctx, cancel := b.requestCtx()
	defer cancel()

	offers, err := b.offers.FetchOffers(ctx, types.RateTypeBUY, decimal.Zero)
	if err != nil {
		b.logger.Error(
			"unable to fetch P2P offers",
			"err", err,
		)

		return c.Send("Sorry, I could not fetch the P2P rates right now. Please try again later.")
	}

	title := fmt.Sprintf("Top P2P offers (buy %s)", b.asset)

	return c.Send(
		buildOffersMessage(title, b.fiat, offers),
		tele.ModeMarkdown,
	)
}

func (b *Bot) handleP2PAmount(c tele.Context) error {
	amount, currency, err := parseAmountCurrency(c.Args(), b.fiat, b.asset)
	if err != nil {
		return c.Send(fmt.Sprintf(
			"Please provide an amount and currency. Example: `/p2p_amount 5000 %s` or `/p2p_amount 50 %s`",
			b.fiat, b.asset,
		), tele.ModeMarkdown)
	}

	ctx, cancel := b.requestCtx()
	defer cancel()

	fiatAmount := amount

	// The search endpoint filters by fiat volume; an asset amount
	// is translated using the best current offer first
	if currency == b.asset {
		general, err := b.offers.FetchOffers(ctx, types.RateTypeBUY, decimal.Zero)
		if err != nil || len(general) == 0 {
			return c.Send("Could not get a base rate for the conversion. Please try again later.")
		}

		fiatAmount = amount.Mul(general[0].Price)
	}

	offers, err := b.offers.FetchOffers(ctx, types.RateTypeBUY, fiatAmount)
	if err != nil {
		return c.Send(fmt.Sprintf(
			"No P2P offers found for %s %s.",
			formatAmount(amount), currency,
		))
	}

	title := fmt.Sprintf(
		"Top P2P offers for %s %s",
		formatAmount(amount), currency,
	)

	return c.Send(
		buildOffersMessage(title, b.fiat, offers),
		tele.ModeMarkdown,
	)
}

func (b *Bot) handleSell(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Send(
			"Please provide an amount to sell. Example: `/sell 120`",
			tele.ModeMarkdown,
		)
	}

	amount, err := decimal.NewFromString(args[0])
	if err != nil || amount.Sign() <= 0 {
		return c.Send("Invalid amount. Please provide a positive number.")
	}

	ctx, cancel := b.requestCtx()
	defer cancel()

	offers, err := b.offers.FetchOffers(ctx, types.RateTypeSELL, decimal.Zero)
	if err != nil {
		b.logger.Error(
			"unable to fetch P2P offers",
			"err", err,
		)

		return c.Send("Sorry, I could not fetch the P2P offers right now. Please try again later.")
	}

	result, err := quote.ComputeSellQuote(
		quote.Request{
			Amount: amount,
			Base:   b.asset,
			Quote:  b.fiat,
		},
		offers,
		b.policy,
	)
	if err != nil {
		var liqErr *quote.InsufficientLiquidityError

		switch {
		case errors.As(err, &liqErr):
			return c.Send(
				buildPartialQuoteMessage(amount, b.asset, b.fiat, liqErr),
				tele.ModeMarkdown,
			)
		case errors.Is(err, quote.ErrInvalidRequest):
			return c.Send("Invalid amount. Please provide a positive number.")
		default:
			return c.Send("Sorry, I could not compute a quote right now.")
		}
	}

	return c.Send(
		buildQuoteMessage(amount, b.asset, b.fiat, result),
		tele.ModeMarkdown,
	)
}

func (b *Bot) handleConvert(c tele.Context) error {
	amount, from, to, err := parseConvertArgs(c.Args())
	if err != nil {
		return c.Send(
			"Invalid format. Example: `/convert 1 BTC to ETH` or `/convert 100 USDT TON`",
			tele.ModeMarkdown,
		)
	}

	ctx, cancel := b.requestCtx()
	defer cancel()

	result, err := b.converter.Convert(ctx, convert.Request{
		Amount: amount,
		From:   from,
		To:     to,
	})
	if err != nil {
		switch {
		case errors.Is(err, convert.ErrInvalidRequest):
			return c.Send("Invalid amount. Please provide a positive number.")
		case errors.Is(err, convert.ErrRateUnavailable):
			return c.Send(fmt.Sprintf(
				"Could not find a conversion rate for %s/%s. Please check the symbols.",
				from, to,
			))
		default:
			b.logger.Error(
				"unable to convert",
				"err", err,
			)

			return c.Send("There was an error fetching the conversion rate. Please try again later.")
		}
	}

	return c.Send(fmt.Sprintf(
		"%s %s is equal to %s %s",
		formatAmount(amount), from,
		formatAmount(result.Amount), to,
	))
}

func (b *Bot) handleCoin(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Send("Please provide a coin symbol. Example: `/coin BTC`", tele.ModeMarkdown)
	}

	ctx, cancel := b.requestCtx()
	defer cancel()

	profile, err := b.coins.CoinProfile(ctx, args[0])
	if err != nil {
		if errors.Is(err, coingecko.ErrCoinNotFound) {
			return c.Send("Could not find information for that coin. Please check the symbol.")
		}

		b.logger.Error(
			"unable to fetch coin profile",
			"err", err,
		)

		return c.Send("There was an error fetching the coin data. Please try again later.")
	}

	return c.Send(buildCoinMessage(profile), tele.ModeMarkdown)
}

// handleInline answers inline queries with the latest stored P2P
// snapshot, so any chat can pull the current rate
func (b *Bot) handleInline(c tele.Context) error {
	ctx, cancel := b.requestCtx()
	defer cancel()

	var (
		source  = binance.Source
		results = make(tele.Results, 0, 2)
	)

	for _, rateType := range []types.RateType{types.RateTypeBUY, types.RateTypeSELL} {
		rt := rateType

		rate, err := b.store.LatestRate(ctx, &types.RateQuery{
			Base:     b.asset,
			Target:   b.fiat,
			RateType: &rt,
			Source:   &source,
		})
		if err != nil {
			continue
		}

		text := fmt.Sprintf(
			"%s %s/%s: %s (Binance P2P, as of %s UTC)",
			rateType,
			b.asset, b.fiat,
			formatAmount(rate.Value),
			rate.AsOf.Format("15:04"),
		)

		result := &tele.ArticleResult{
			Title: fmt.Sprintf("%s %s/%s rate", rateType, b.asset, b.fiat),
			Text:  text,
		}
		result.SetResultID(strings.ToLower(rateType.String()))

		results = append(results, result)
	}

	return c.Answer(&tele.QueryResponse{
		Results:   results,
		CacheTime: 30,
	})
}
