package heuristics

import (
	"fmt"
	"sync"
	"time"

	"github.com/axlrose023/fraud-checker/pkg/models"
)

const (
	similarityPurgeEvery = 256
	behaviorMetricsCount = 5
)

type behaviorSnapshot struct {
	timestamp      time.Time
	maxScrollY     int
	scrollCount    int
	keydownCount   int
	mouseMoveCount int
	touchCount     int
}

func (s behaviorSnapshot) metrics() [behaviorMetricsCount]int {
	return [behaviorMetricsCount]int{
		s.maxScrollY, s.scrollCount, s.keydownCount, s.mouseMoveCount, s.touchCount,
	}
}

// SimilarityDetector flags fingerprints whose behavioral metrics repeat
// almost exactly across requests. Humans are noisy; replayed or scripted
// sessions are not.
type SimilarityDetector struct {
	historySize         int
	window              time.Duration
	tolerancePct        float64
	matchRatio          float64
	warnThreshold       int
	warnWeight          int
	suspiciousThreshold int
	suspiciousWeight    int

	mu      sync.Mutex
	history map[string][]behaviorSnapshot
	calls   int
	now     func() time.Time
}

// SimilarityConfig carries the detector tuning knobs.
type SimilarityConfig struct {
	HistorySize         int
	WindowSeconds       int
	TolerancePct        float64
	MatchRatio          float64
	WarnThreshold       int
	WarnWeight          int
	SuspiciousThreshold int
	SuspiciousWeight    int
}

// NewSimilarityDetector builds a detector from configuration.
func NewSimilarityDetector(cfg SimilarityConfig) *SimilarityDetector {
	return &SimilarityDetector{
		historySize:         cfg.HistorySize,
		window:              time.Duration(cfg.WindowSeconds) * time.Second,
		tolerancePct:        cfg.TolerancePct,
		matchRatio:          cfg.MatchRatio,
		warnThreshold:       cfg.WarnThreshold,
		warnWeight:          cfg.WarnWeight,
		suspiciousThreshold: cfg.SuspiciousThreshold,
		suspiciousWeight:    cfg.SuspiciousWeight,
		history:             make(map[string][]behaviorSnapshot),
		now:                 time.Now,
	}
}

// valuesAreSimilar: both zero counts as similar; otherwise the relative
// difference against the larger value must stay within tolerance.
func valuesAreSimilar(a, b int, tolerance float64) bool {
	if a == 0 && b == 0 {
		return true
	}
	reference := a
	if b > reference {
		reference = b
	}
	if reference < 1 {
		reference = 1
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return float64(diff)/float64(reference) <= tolerance
}

func (d *SimilarityDetector) isSimilar(current, past behaviorSnapshot) bool {
	cm, pm := current.metrics(), past.metrics()
	matching := 0
	for i := 0; i < behaviorMetricsCount; i++ {
		if valuesAreSimilar(cm[i], pm[i], d.tolerancePct) {
			matching++
		}
	}
	return float64(matching)/float64(behaviorMetricsCount) >= d.matchRatio
}

// RecordAndCheck evicts stale snapshots for the fingerprint, counts how many
// of the remaining ones are similar to the current behavior, appends the
// current snapshot, and returns at most one signal.
func (d *SimilarityDetector) RecordAndCheck(fingerprintID string, behavior *models.BehaviorSignals) []models.FraudSignal {
	if fingerprintID == "" || behavior == nil {
		return nil
	}

	now := d.now()
	snapshot := behaviorSnapshot{
		timestamp:      now,
		maxScrollY:     intOrZero(behavior.MaxScrollY),
		scrollCount:    intOrZero(behavior.ScrollCount),
		keydownCount:   intOrZero(behavior.KeydownCount),
		mouseMoveCount: intOrZero(behavior.MouseMoveCount),
		touchCount:     intOrZero(behavior.TouchCount),
	}
	cutoff := now.Add(-d.window)

	d.mu.Lock()
	d.calls++
	if d.calls >= similarityPurgeEvery {
		d.calls = 0
		d.purgeStale(cutoff)
	}

	history := d.history[fingerprintID]
	for len(history) > 0 && history[0].timestamp.Before(cutoff) {
		history = history[1:]
	}

	similarCount := 0
	for _, past := range history {
		if d.isSimilar(snapshot, past) {
			similarCount++
		}
	}

	history = append(history, snapshot)
	if d.historySize > 0 && len(history) > d.historySize {
		history = history[len(history)-d.historySize:]
	}
	d.history[fingerprintID] = history
	d.mu.Unlock()

	if similarCount >= d.suspiciousThreshold {
		return []models.FraudSignal{NewSignal(
			"BEHAVIOR_SIMILARITY_SUSPICIOUS",
			d.suspiciousWeight,
			fmt.Sprintf("Fingerprint produced %d behaviorally similar requests. Human behavior is rarely this consistent.", similarCount),
		)}
	}
	if similarCount >= d.warnThreshold {
		return []models.FraudSignal{NewSignal(
			"BEHAVIOR_SIMILARITY_WARN",
			d.warnWeight,
			fmt.Sprintf("Fingerprint produced %d behaviorally similar requests, suggesting automated activity.", similarCount),
		)}
	}
	return nil
}

// Caller holds the lock.
func (d *SimilarityDetector) purgeStale(cutoff time.Time) {
	for fp, snaps := range d.history {
		if len(snaps) == 0 || snaps[len(snaps)-1].timestamp.Before(cutoff) {
			delete(d.history, fp)
		}
	}
}
