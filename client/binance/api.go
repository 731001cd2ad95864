package binance

import (
	"context"
	"fmt"
	"strconv"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/drakos74/level-trader/internal/account"
	"github.com/drakos74/level-trader/internal/model"
)

type exchange interface {
	// Klines returns the latest klines, or the ones opened up to endTime when it is positive.
	Klines(ctx context.Context, symbol, interval string, limit int, endTime int64) ([]*futures.Kline, error)
}

type futuresAPI struct {
	client *futures.Client
}

func newFuturesAPI(secret account.Secret) *futuresAPI {
	return &futuresAPI{client: binance.NewFuturesClient(secret.Key, secret.Secret)}
}

func (f *futuresAPI) Klines(ctx context.Context, symbol, interval string, limit int, endTime int64) ([]*futures.Kline, error) {
	service := f.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit)
	if endTime > 0 {
		service = service.EndTime(endTime)
	}
	return service.Do(ctx)
}

func convert(k *futures.Kline) (model.Kline, error) {
	values := make([]float64, 5)
	for i, s := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Kline{}, fmt.Errorf("could not parse kline value '%s': %w", s, err)
		}
		values[i] = v
	}
	kline := model.Kline{
		Time:   k.OpenTime,
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}
	return kline, kline.Validate()
}
