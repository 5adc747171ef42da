package market

import "time"

// Timeframe represents a chart interval
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// SupportedTimeframes lists all intervals the engine accepts, ascending
var SupportedTimeframes = []Timeframe{TF1m, TF5m, TF15m, TF1h, TF4h, TF1d}

// IsValid reports whether the timeframe is one of the supported intervals
func (tf Timeframe) IsValid() bool {
	for _, s := range SupportedTimeframes {
		if tf == s {
			return true
		}
	}
	return false
}

// Duration returns the candle duration of the timeframe
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1m:
		return time.Minute
	case TF5m:
		return 5 * time.Minute
	case TF15m:
		return 15 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	case TF1d:
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// Rank orders timeframes from lowest (0) to highest. Used to find the
// highest configured timeframe for HTF checks.
func (tf Timeframe) Rank() int {
	for i, s := range SupportedTimeframes {
		if tf == s {
			return i
		}
	}
	return -1
}

// HighestTimeframe returns the highest-ranked timeframe in the slice
func HighestTimeframe(tfs []Timeframe) Timeframe {
	if len(tfs) == 0 {
		return ""
	}
	highest := tfs[0]
	for _, tf := range tfs[1:] {
		if tf.Rank() > highest.Rank() {
			highest = tf
		}
	}
	return highest
}
