package regime

import (
	"time"

	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// Snapshot is one recorded classification.
type Snapshot struct {
	Regime     models.Regime `json:"regime"`
	Confidence float64       `json:"confidence"`
	Timestamp  time.Time     `json:"timestamp"`
}

// History is a bounded ring buffer of regime snapshots. It exists only
// to detect transitions between consecutive classifications on the same
// instrument stream and assumes callers push snapshots sequentially.
type History struct {
	entries []Snapshot
	max     int
}

// MaxHistoryEntries bounds the ring buffer.
const MaxHistoryEntries = 50

func NewHistory() *History {
	return &History{max: MaxHistoryEntries}
}

// Push records a classification, evicting the oldest entry at capacity.
func (h *History) Push(regime models.Regime, confidence float64, at time.Time) {
	h.entries = append(h.entries, Snapshot{Regime: regime, Confidence: confidence, Timestamp: at})
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
}

// Len returns the number of recorded snapshots.
func (h *History) Len() int { return len(h.entries) }

// Last returns the most recent snapshot, if any.
func (h *History) Last() (Snapshot, bool) {
	if len(h.entries) == 0 {
		return Snapshot{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Transition compares the two newest snapshots and reports a regime
// change between them. High-significance transitions are the ones that
// flip the trading posture: range/calm into a trend or a break, an
// accumulation resolving upward, a distribution resolving downward, or
// a trend reversing outright.
func (h *History) Transition() *models.RegimeTransition {
	if len(h.entries) < 2 {
		return nil
	}
	prev := h.entries[len(h.entries)-2]
	curr := h.entries[len(h.entries)-1]
	if prev.Regime == curr.Regime {
		return nil
	}

	significance := "medium"
	if highSignificance[transitionKey{prev.Regime, curr.Regime}] {
		significance = "high"
	}
	return &models.RegimeTransition{From: prev.Regime, To: curr.Regime, Significance: significance}
}

type transitionKey struct {
	from models.Regime
	to   models.Regime
}

var highSignificance = map[transitionKey]bool{
	{models.RegimeRanging, models.RegimeTrendingBullish}:         true,
	{models.RegimeRanging, models.RegimeTrendingBearish}:         true,
	{models.RegimeRanging, models.RegimeBreakout}:                true,
	{models.RegimeRanging, models.RegimeBreakdown}:               true,
	{models.RegimeCalm, models.RegimeBreakout}:                   true,
	{models.RegimeCalm, models.RegimeBreakdown}:                  true,
	{models.RegimeAccumulation, models.RegimeBreakout}:           true,
	{models.RegimeAccumulation, models.RegimeTrendingBullish}:    true,
	{models.RegimeDistribution, models.RegimeBreakdown}:          true,
	{models.RegimeDistribution, models.RegimeTrendingBearish}:    true,
	{models.RegimeTrendingBullish, models.RegimeTrendingBearish}: true,
	{models.RegimeTrendingBearish, models.RegimeTrendingBullish}: true,
}
