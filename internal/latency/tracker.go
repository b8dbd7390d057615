package latency

import (
	"sync"
	"time"
)

const DefaultReportEvery = 1000

// Summary is a snapshot of the running means. Averages are cumulative over
// the whole run; early outliers keep biasing later values.
type Summary struct {
	Events             int64
	TotalLatency       time.Duration
	AverageLatency     time.Duration
	Translations       int64
	TotalTranslation   time.Duration
	AverageTranslation time.Duration
}

// Tracker accumulates per-event latency and translation call durations.
// It is safe for concurrent use.
type Tracker struct {
	reportEvery int64

	mu      sync.Mutex
	summary Summary
}

func NewTracker(reportEvery int) *Tracker {
	if reportEvery <= 0 {
		reportEvery = DefaultReportEvery
	}
	return &Tracker{reportEvery: int64(reportEvery)}
}

func (t *Tracker) Record(d time.Duration) Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.Events++
	t.summary.TotalLatency += d
	t.summary.AverageLatency = t.summary.TotalLatency / time.Duration(t.summary.Events)
	return t.summary
}

func (t *Tracker) RecordTranslation(d time.Duration) Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.Translations++
	t.summary.TotalTranslation += d
	t.summary.AverageTranslation = t.summary.TotalTranslation / time.Duration(t.summary.Translations)
	return t.summary
}

// MaybeReport returns the current summary when the event count is a
// non-zero multiple of the report interval.
func (t *Tracker) MaybeReport() (Summary, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.summary.Events == 0 || t.summary.Events%t.reportEvery != 0 {
		return Summary{}, false
	}
	return t.summary, true
}

func (t *Tracker) Snapshot() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summary
}
