// Package market holds the OHLCV data model and the external market-data
// collaborators: the fetcher, the indicator calculator and the regime
// detector. Everything downstream of this package consumes candles and
// derived indicator values, never raw exchange payloads.
package market

import (
	"errors"
	"time"
)

// ErrInsufficientData indicates a series is too short for the requested
// computation.
var ErrInsufficientData = errors.New("insufficient candle data")

// Kline represents a single OHLCV candle
type Kline struct {
	OpenTime  int64   `json:"openTime"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"closeTime"`
}

// CloseAt returns the candle close time as time.Time
func (k Kline) CloseAt() time.Time {
	return time.UnixMilli(k.CloseTime)
}

// IsBullish reports whether the candle closed above its open
func (k Kline) IsBullish() bool {
	return k.Close > k.Open
}

// Range returns the high-low distance of the candle
func (k Kline) Range() float64 {
	return k.High - k.Low
}

// LastClose returns the close of the most recent candle, or 0 for an empty
// series.
func LastClose(klines []Kline) float64 {
	if len(klines) == 0 {
		return 0
	}
	return klines[len(klines)-1].Close
}

// LastCloseTime returns the close timestamp of the most recent candle
func LastCloseTime(klines []Kline) int64 {
	if len(klines) == 0 {
		return 0
	}
	return klines[len(klines)-1].CloseTime
}

// HighestHigh returns the highest high over the last n candles
func HighestHigh(klines []Kline, n int) float64 {
	if len(klines) == 0 {
		return 0
	}
	start := len(klines) - n
	if start < 0 {
		start = 0
	}
	highest := klines[start].High
	for _, k := range klines[start:] {
		if k.High > highest {
			highest = k.High
		}
	}
	return highest
}

// LowestLow returns the lowest low over the last n candles
func LowestLow(klines []Kline, n int) float64 {
	if len(klines) == 0 {
		return 0
	}
	start := len(klines) - n
	if start < 0 {
		start = 0
	}
	lowest := klines[start].Low
	for _, k := range klines[start:] {
		if k.Low < lowest {
			lowest = k.Low
		}
	}
	return lowest
}
