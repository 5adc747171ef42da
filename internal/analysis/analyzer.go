package analysis

import (
	"fmt"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/logging"
)

// Kind enumerates the fixed set of analyzer kinds
type Kind string

const (
	KindTrend             Kind = "trend"
	KindMomentum          Kind = "momentum"
	KindVolume            Kind = "volume"
	KindPatterns          Kind = "patterns"
	KindSupportResistance Kind = "support_resistance"
	KindVolatility        Kind = "volatility"
	KindHarmonic          Kind = "harmonic"
	KindChannel           Kind = "channel"
	KindCyclical          Kind = "cyclical"
	KindHTF               Kind = "htf"
)

// AllKinds lists every analyzer kind in scoring order
var AllKinds = []Kind{
	KindTrend, KindMomentum, KindVolume, KindPatterns, KindSupportResistance,
	KindVolatility, KindHarmonic, KindChannel, KindCyclical, KindHTF,
}

// MandatoryKinds are the analyzers the pipeline cannot score without
var MandatoryKinds = []Kind{KindTrend, KindMomentum, KindVolume}

// Analyzer produces one directional opinion from a technical-analysis
// method. Analyze must write exactly one result into the context's slot for
// the analyzer's kind; a returned error is converted into an error-status
// record by the registry, never propagated as a crash.
type Analyzer interface {
	Kind() Kind
	Analyze(ctx *Context) error
}

// Registry holds the enabled analyzers and runs them against a context
type Registry struct {
	analyzers []Analyzer
	logger    *logging.Logger
}

// NewRegistry creates a registry with the given analyzers. Registration
// order is execution order.
func NewRegistry(logger *logging.Logger, analyzers ...Analyzer) (*Registry, error) {
	seen := make(map[Kind]bool, len(analyzers))
	for _, a := range analyzers {
		if seen[a.Kind()] {
			return nil, fmt.Errorf("duplicate analyzer kind %q", a.Kind())
		}
		seen[a.Kind()] = true
	}
	return &Registry{
		analyzers: analyzers,
		logger:    logger.WithComponent("analysis"),
	}, nil
}

// Kinds returns the registered analyzer kinds in execution order
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, len(r.analyzers))
	for i, a := range r.analyzers {
		kinds[i] = a.Kind()
	}
	return kinds
}

// RunAll executes every registered analyzer against the context. Analyzer
// failures become error-status records; the pipeline keeps going.
func (r *Registry) RunAll(ctx *Context) {
	for _, a := range r.analyzers {
		if err := a.Analyze(ctx); err != nil {
			r.logger.Warn("analyzer failed",
				"kind", a.Kind(), "symbol", ctx.Symbol, "timeframe", ctx.Timeframe, "error", err)
			ctx.setErrorRecord(a.Kind(), err)
		}
	}
}
