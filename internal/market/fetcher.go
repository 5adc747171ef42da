package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Fetcher supplies historical candle data for a symbol/timeframe. Retries
// belong here, not in the decision pipeline.
type Fetcher interface {
	GetHistoricalData(ctx context.Context, symbol string, tf Timeframe, limit int) ([]Kline, error)
}

// BinanceFetcher fetches klines from the Binance spot REST API
type BinanceFetcher struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
}

// NewBinanceFetcher creates a fetcher against the given base URL, or the
// production endpoint when empty.
func NewBinanceFetcher(baseURL string) *BinanceFetcher {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &BinanceFetcher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
	}
}

// GetHistoricalData fetches up to limit candles, retrying transient
// failures with exponential backoff.
func (f *BinanceFetcher) GetHistoricalData(ctx context.Context, symbol string, tf Timeframe, limit int) ([]Kline, error) {
	if !tf.IsValid() {
		return nil, fmt.Errorf("unsupported timeframe %q", tf)
	}

	var klines []Kline
	operation := func() error {
		var err error
		klines, err = f.fetchKlines(ctx, symbol, tf, limit)
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.maxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, fmt.Errorf("fetching %s %s klines: %w", symbol, tf, err)
	}
	return klines, nil
}

func (f *BinanceFetcher) fetchKlines(ctx context.Context, symbol string, tf Timeframe, limit int) ([]Kline, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", string(tf))
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", f.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(fmt.Errorf("API error %d: %s", resp.StatusCode, string(body)))
		}
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var rawKlines [][]interface{}
	if err := json.Unmarshal(body, &rawKlines); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("parsing klines: %w", err))
	}

	klines := make([]Kline, len(rawKlines))
	for i, raw := range rawKlines {
		if len(raw) < 7 {
			return nil, backoff.Permanent(fmt.Errorf("malformed kline row %d", i))
		}
		klines[i] = Kline{
			OpenTime:  asInt64(raw[0]),
			Open:      parseFloat(raw[1]),
			High:      parseFloat(raw[2]),
			Low:       parseFloat(raw[3]),
			Close:     parseFloat(raw[4]),
			Volume:    parseFloat(raw[5]),
			CloseTime: asInt64(raw[6]),
		}
	}
	return klines, nil
}

func parseFloat(v interface{}) float64 {
	switch val := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	case float64:
		return val
	default:
		return 0
	}
}

func asInt64(v interface{}) int64 {
	if f, ok := v.(float64); ok {
		return int64(f)
	}
	return 0
}
