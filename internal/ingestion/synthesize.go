package ingestion

import (
	"math/rand"
	"time"

	"github.com/yash/flightinsight/pkg/models"
)

// Synthesizer spreads snapshot rows over a historical window. The upstream
// sources only answer "now", so 7 and 30 day views are approximations.
// A fixed Now and a seeded Rand make the output reproducible.
type Synthesizer struct {
	Now  func() time.Time
	Rand *rand.Rand
}

// NewSynthesizer returns a Synthesizer on the wall clock with a time-seeded
// random source.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{
		Now:  time.Now,
		Rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Apply returns a new table whose timestamps fall in (now-window, now].
// Last24Hours passes the table through unchanged. The input is not modified.
func (s *Synthesizer) Apply(t models.Table, tr models.TimeRange) models.Table {
	if !tr.NeedsSynthesis() || t.Empty() {
		return t
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	rng := s.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	base := now()
	window := float64(tr.Window())

	out := t
	out.Records = make([]models.Record, len(t.Records))
	for i, r := range t.Records {
		offset := time.Duration(rng.Float64() * window)
		out.Records[i] = r.WithTimestamp(base.Add(-offset))
	}
	out.Synthesized = true
	return out
}
