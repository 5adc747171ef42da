package analysis

import (
	"math"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
)

// harmonicSpec holds the Fibonacci ratio windows for one pattern type.
// Ratios follow the standard XABCD retracement definitions.
type harmonicSpec struct {
	patternType HarmonicPatternType
	abMin, abMax float64 // AB retracement of XA
	bcMin, bcMax float64 // BC retracement of AB
	cdMin, cdMax float64 // CD extension of BC
	xdMin, xdMax float64 // AD retracement/extension of XA
}

var harmonicSpecs = []harmonicSpec{
	{HarmonicGartley, 0.598, 0.638, 0.382, 0.886, 1.13, 1.618, 0.766, 0.806},
	{HarmonicBat, 0.382, 0.50, 0.382, 0.886, 1.618, 2.618, 0.866, 0.906},
	{HarmonicButterfly, 0.766, 0.806, 0.382, 0.886, 1.618, 2.24, 1.27, 1.618},
	{HarmonicCrab, 0.382, 0.618, 0.382, 0.886, 2.618, 3.618, 1.598, 1.638},
}

// HarmonicAnalyzer detects XABCD harmonic structures from swing pivots
type HarmonicAnalyzer struct {
	swingLookback int
	maxPivots     int
}

// NewHarmonicAnalyzer creates a harmonic pattern analyzer
func NewHarmonicAnalyzer() *HarmonicAnalyzer {
	return &HarmonicAnalyzer{swingLookback: 3, maxPivots: 20}
}

// Kind returns KindHarmonic
func (ha *HarmonicAnalyzer) Kind() Kind { return KindHarmonic }

type pivot struct {
	price float64
	high  bool
}

// Analyze writes the harmonic slot on the context
func (ha *HarmonicAnalyzer) Analyze(ctx *Context) error {
	if len(ctx.Klines) < 40 {
		return ctx.SetHarmonic(&HarmonicResult{
			ResultMeta: ResultMeta{Status: StatusInsufficientData, Direction: Neutral},
		})
	}

	pivots := ha.findPivots(ctx.Klines)
	patterns := ha.matchPatterns(pivots)

	result := &HarmonicResult{
		ResultMeta: ResultMeta{Status: StatusOK, Direction: Neutral},
		Patterns:   patterns,
	}

	best := 0.0
	for _, p := range patterns {
		if p.Confidence > best {
			best = p.Confidence
			result.Direction = p.Direction
		}
	}
	result.Strength = best * 3

	return ctx.SetHarmonic(result)
}

// findPivots extracts alternating swing highs/lows, newest last
func (ha *HarmonicAnalyzer) findPivots(klines []market.Kline) []pivot {
	var pivots []pivot
	lb := ha.swingLookback
	for i := lb; i < len(klines)-lb; i++ {
		isHigh, isLow := true, true
		for j := i - lb; j <= i+lb; j++ {
			if j == i {
				continue
			}
			if klines[j].High >= klines[i].High {
				isHigh = false
			}
			if klines[j].Low <= klines[i].Low {
				isLow = false
			}
		}
		if isHigh {
			pivots = appendPivot(pivots, pivot{price: klines[i].High, high: true})
		} else if isLow {
			pivots = appendPivot(pivots, pivot{price: klines[i].Low, high: false})
		}
	}
	if len(pivots) > ha.maxPivots {
		pivots = pivots[len(pivots)-ha.maxPivots:]
	}
	return pivots
}

// appendPivot keeps the pivot sequence alternating; consecutive pivots of
// the same kind collapse to the more extreme one.
func appendPivot(pivots []pivot, p pivot) []pivot {
	if len(pivots) > 0 && pivots[len(pivots)-1].high == p.high {
		last := pivots[len(pivots)-1]
		if (p.high && p.price > last.price) || (!p.high && p.price < last.price) {
			pivots[len(pivots)-1] = p
		}
		return pivots
	}
	return append(pivots, p)
}

// matchPatterns slides a 5-pivot window over recent structure and tests
// each XABCD candidate against the ratio tables.
func (ha *HarmonicAnalyzer) matchPatterns(pivots []pivot) []HarmonicPattern {
	var patterns []HarmonicPattern
	if len(pivots) < 5 {
		return patterns
	}

	for i := len(pivots) - 5; i >= 0 && i >= len(pivots)-8; i-- {
		x, a, b, c, d := pivots[i], pivots[i+1], pivots[i+2], pivots[i+3], pivots[i+4]

		xa := math.Abs(a.price - x.price)
		ab := math.Abs(b.price - a.price)
		bc := math.Abs(c.price - b.price)
		cd := math.Abs(d.price - c.price)
		xd := math.Abs(d.price - x.price)
		if xa == 0 || ab == 0 || bc == 0 {
			continue
		}

		abRatio := ab / xa
		bcRatio := bc / ab
		cdRatio := cd / bc
		xdRatio := xd / xa

		// Bullish structure bottoms at D (X high start means bearish XA leg)
		dir := Bullish
		if d.high {
			dir = Bearish
		}

		for _, spec := range harmonicSpecs {
			conf := ratioFit(abRatio, spec.abMin, spec.abMax) *
				ratioFit(bcRatio, spec.bcMin, spec.bcMax) *
				ratioFit(cdRatio, spec.cdMin, spec.cdMax) *
				ratioFit(xdRatio, spec.xdMin, spec.xdMax)
			if conf < 0.3 {
				continue
			}
			patterns = append(patterns, HarmonicPattern{
				Type:       spec.patternType,
				Direction:  dir,
				PointX:     x.price,
				PointD:     d.price,
				Confidence: conf,
			})
		}
	}
	return patterns
}

// ratioFit scores how well a measured ratio sits inside its window, with
// a soft 10% tolerance band outside it.
func ratioFit(ratio, lo, hi float64) float64 {
	if ratio >= lo && ratio <= hi {
		return 1.0
	}
	tolerance := (hi - lo) * 0.5
	if tolerance < lo*0.1 {
		tolerance = lo * 0.1
	}
	var miss float64
	if ratio < lo {
		miss = lo - ratio
	} else {
		miss = ratio - hi
	}
	if miss >= tolerance {
		return 0
	}
	return 1 - miss/tolerance
}
