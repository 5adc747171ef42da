package analysis

import (
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
)

// VolumeAnalyzer confirms moves by comparing recent volume against its
// rolling average and checking it pushes in the candle's direction.
type VolumeAnalyzer struct {
	confirmRatio float64 // volume ratio needed to confirm a move
}

// NewVolumeAnalyzer creates a volume analyzer. A ratio of 1.2 means the
// last candle needs 20% above-average volume to count as confirmation.
func NewVolumeAnalyzer(confirmRatio float64) *VolumeAnalyzer {
	if confirmRatio <= 0 {
		confirmRatio = 1.2
	}
	return &VolumeAnalyzer{confirmRatio: confirmRatio}
}

// Kind returns KindVolume
func (va *VolumeAnalyzer) Kind() Kind { return KindVolume }

// Analyze writes the volume slot on the context
func (va *VolumeAnalyzer) Analyze(ctx *Context) error {
	if len(ctx.Klines) < 21 {
		return ctx.SetVolume(&VolumeResult{
			ResultMeta: ResultMeta{Status: StatusInsufficientData, Direction: Neutral},
		})
	}

	ratio := 0.0
	if ctx.Indicators != nil && ctx.Indicators.VolumeRatio > 0 {
		ratio = ctx.Indicators.VolumeRatio
	} else {
		avg := market.CalculateVolumeSMA(ctx.Klines, 20)
		if avg > 0 {
			ratio = ctx.Klines[len(ctx.Klines)-1].Volume / avg
		}
	}

	last := ctx.Klines[len(ctx.Klines)-1]
	result := &VolumeResult{
		ResultMeta:  ResultMeta{Status: StatusOK, Direction: Neutral},
		VolumeRatio: ratio,
		Confirmed:   ratio >= va.confirmRatio,
	}

	if result.Confirmed {
		if last.IsBullish() {
			result.Direction = Bullish
		} else {
			result.Direction = Bearish
		}
	}

	switch {
	case ratio >= 2.0:
		result.Strength = 3.0
	case ratio >= va.confirmRatio:
		result.Strength = 1.5 + (ratio-va.confirmRatio)/(2.0-va.confirmRatio)*1.5
	default:
		result.Strength = ratio / va.confirmRatio * 1.5
	}

	return ctx.SetVolume(result)
}
