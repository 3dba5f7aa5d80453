package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/birr-rates/birrbot/provider/coingecko"
	"github.com/birr-rates/birrbot/quote"
	"github.com/birr-rates/birrbot/storage/types"
)

var errInvalidArgs = errors.New("invalid arguments")

// formatAmount renders a decimal with thousands separators and two
// decimal places, e.g. 17260 -> "17,260.00"
func formatAmount(d decimal.Decimal) string {
	var (
		fixed    = d.StringFixed(2)
		negative = strings.HasPrefix(fixed, "-")
	)

	if negative {
		fixed = fixed[1:]
	}

	whole, frac, _ := strings.Cut(fixed, ".")

	var sb strings.Builder

	if negative {
		sb.WriteByte('-')
	}

	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			sb.WriteByte(',')
		}

		sb.WriteRune(r)
	}

	sb.WriteByte('.')
	sb.WriteString(frac)

	return sb.String()
}

// buildOffersMessage renders the top offers as a Markdown listing
func buildOffersMessage(title string, fiat types.Currency, offers []quote.Offer) string {
	if len(offers) > topOffersShown {
		offers = offers[:topOffersShown]
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "--- *%s* ---\n\n", title)

	for i, offer := range offers {
		fmt.Fprintf(
			&sb,
			"*%d. %s*\n"+
				"  `Rate:` %s %s\n"+
				"  `Limits:` %s - %s %s\n"+
				"  `Orders:` %d (%.2f%%)\n\n",
			i+1, offer.Merchant.Name,
			formatAmount(offer.Price), fiat,
			formatAmount(offer.MinLimit), formatAmount(offer.MaxLimit), fiat,
			offer.Merchant.MonthOrders, offer.Merchant.CompletionRate*100,
		)
	}

	return sb.String()
}

// buildQuoteMessage renders a fully-filled sell quote
func buildQuoteMessage(
	amount decimal.Decimal,
	asset, fiat types.Currency,
	result *quote.Result,
) string {
	var sb strings.Builder

	fmt.Fprintf(
		&sb,
		"Selling *%s %s* across %d offer(s):\n\n",
		formatAmount(amount), asset, len(result.Fills),
	)

	for _, fill := range result.Fills {
		fmt.Fprintf(
			&sb,
			"  %s %s @ %s (%s)\n",
			formatAmount(fill.Amount), asset,
			formatAmount(fill.Offer.Price),
			fill.Offer.Merchant.Name,
		)
	}

	fmt.Fprintf(
		&sb,
		"\n`Total:` *%s %s*\n`Blended rate:` %s %s/%s",
		formatAmount(result.EffectiveTotal), fiat,
		formatAmount(result.RateUsed), fiat, asset,
	)

	return sb.String()
}

// buildPartialQuoteMessage renders a partially-filled quote with a
// liquidity warning
func buildPartialQuoteMessage(
	amount decimal.Decimal,
	asset, fiat types.Currency,
	liqErr *quote.InsufficientLiquidityError,
) string {
	if liqErr.Filled.Sign() == 0 {
		return fmt.Sprintf(
			"No reliable offers can fill %s %s right now. Try a smaller amount.",
			formatAmount(amount), asset,
		)
	}

	return fmt.Sprintf(
		"Only *%s %s* of %s %s can be filled reliably right now, for *%s %s*. "+
			"Reduce the amount by %s %s for a full quote.",
		formatAmount(liqErr.Filled), asset,
		formatAmount(amount), asset,
		formatAmount(liqErr.PartialTotal), fiat,
		formatAmount(liqErr.Remaining), asset,
	)
}

// buildCoinMessage renders a coin market summary
func buildCoinMessage(profile *coingecko.CoinProfile) string {
	return fmt.Sprintf(
		"--- *%s (%s)* ---\n"+
			"  `Current Price:` $%s\n"+
			"  `Market Cap:` $%s\n"+
			"  `24h Change:` %s%%\n"+
			"  _Data provided by CoinGecko._",
		profile.Name, profile.Symbol,
		formatAmount(profile.PriceUSD),
		formatAmount(profile.MarketCapUSD),
		profile.Change24h.StringFixed(2),
	)
}

// parseAmountCurrency parses "<amount> <currency>" command arguments,
// where currency must be one of the two allowed units
func parseAmountCurrency(
	args []string,
	fiat, asset types.Currency,
) (decimal.Decimal, types.Currency, error) {
	if len(args) < 2 {
		return decimal.Zero, "", errInvalidArgs
	}

	amount, err := decimal.NewFromString(args[0])
	if err != nil || amount.Sign() <= 0 {
		return decimal.Zero, "", errInvalidArgs
	}

	currency := types.Currency(strings.ToUpper(strings.TrimSpace(args[1])))
	if currency != fiat && currency != asset {
		return decimal.Zero, "", errInvalidArgs
	}

	return amount, currency, nil
}

// parseConvertArgs parses "<amount> <from> [to] <to>" command
// arguments, tolerating a literal "to" between the assets
func parseConvertArgs(args []string) (decimal.Decimal, types.Currency, types.Currency, error) {
	// Drop a literal "to" connector
	filtered := make([]string, 0, len(args))

	for _, arg := range args {
		if strings.EqualFold(arg, "to") {
			continue
		}

		filtered = append(filtered, arg)
	}

	if len(filtered) != 3 {
		return decimal.Zero, "", "", errInvalidArgs
	}

	amount, err := decimal.NewFromString(filtered[0])
	if err != nil || amount.Sign() <= 0 {
		return decimal.Zero, "", "", errInvalidArgs
	}

	var (
		from = types.Currency(strings.ToUpper(strings.TrimSpace(filtered[1])))
		to   = types.Currency(strings.ToUpper(strings.TrimSpace(filtered[2])))
	)

	if from == "" || to == "" {
		return decimal.Zero, "", "", errInvalidArgs
	}

	return amount, from, to, nil
}
