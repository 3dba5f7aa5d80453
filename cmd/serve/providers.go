package serve

import (
	"time"

	"github.com/birr-rates/birrbot/ingest"
	"github.com/birr-rates/birrbot/provider/binance"
	"github.com/birr-rates/birrbot/provider/currencies"
	"github.com/birr-rates/birrbot/provider/nbe"
)

// defaultProviders returns the default ingestion providers
func defaultProviders() []ingest.Provider {
	var (
		// Median Binance P2P USDT/ETB rate
		binanceP2PProvider = binance.NewClient(
			currencies.USDT,
			currencies.ETB,
			time.Second*30,
		)

		// Official NBE reference rates
		nbeProvider = nbe.NewProvider("", time.Second*30)
	)

	return []ingest.Provider{
		binanceP2PProvider,
		nbeProvider,
	}
}
