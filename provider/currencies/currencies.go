package currencies

import "github.com/birr-rates/birrbot/storage/types"

var (
	ETB types.Currency = "ETB"
	USD types.Currency = "USD"
	EUR types.Currency = "EUR"
	GBP types.Currency = "GBP"

	USDT types.Currency = "USDT"
	BTC  types.Currency = "BTC"
	ETH  types.Currency = "ETH"
)
