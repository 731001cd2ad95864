package binance

import (
	"os"
	"time"

	"github.com/drakos74/level-trader/internal/account"
	"github.com/drakos74/level-trader/internal/model"
	ctime "github.com/drakos74/level-trader/internal/time"
	"github.com/rs/zerolog/log"
)

const (
	Name = "binance"
	// Interval is the kline resolution requested from the exchange.
	Interval = "1m"
	// Limit is the maximum number of klines per request.
	Limit = 1500
)

// Config are the polling settings of the source.
type Config struct {
	Symbol string         `json:"symbol"`
	Poll   ctime.Duration `json:"poll"`
	// Rate is the minimum time between two requests.
	Rate       ctime.Duration `json:"rate"`
	MaxElapsed ctime.Duration `json:"max_elapsed"`
	// Window is the number of 1m bars kept, backfilled beyond a single request when needed.
	Window int `json:"window"`
}

// DefaultConfig returns the default polling settings for the symbol.
func DefaultConfig(symbol string) Config {
	return Config{
		Symbol:     symbol,
		Poll:       ctime.Of(5 * time.Second),
		Rate:       ctime.Of(time.Second),
		MaxElapsed: ctime.Of(2 * time.Minute),
		Window:     model.SnapshotBars,
	}
}

// exchangeConfig reads the api key and secret of the user from the environment.
// The klines endpoint is public, so missing secrets are only logged.
func exchangeConfig(user string) account.Secret {
	format := account.NewFormat(user, Name)
	secret := account.Secret{
		Key:    os.Getenv(format.Key()),
		Secret: os.Getenv(format.Secret()),
	}
	if secret.Empty() {
		log.Warn().Str("key", format.Key()).Msg("no api secret found, using public access")
	}
	return secret
}
