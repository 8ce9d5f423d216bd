package heuristics

import (
	"fmt"
	"sync"
	"time"

	"github.com/axlrose023/fraud-checker/pkg/models"
)

const velocityPurgeEvery = 512

type velocityThreshold struct {
	count  int
	weight int
	code   string
}

// VelocityTracker is an in-memory sliding-window counter per fingerprint.
// It returns escalating signals when a single device fingerprint submits too
// many checks inside the configured window. Windows use the monotonic clock
// carried by time.Time, so wall-clock adjustments cannot skew them.
type VelocityTracker struct {
	window     time.Duration
	thresholds []velocityThreshold // ordered highest count first

	mu     sync.Mutex
	events map[string][]time.Time
	calls  int
	now    func() time.Time
}

// VelocityConfig carries the per-threshold counts and weights.
type VelocityConfig struct {
	WindowSeconds       int
	WarnThreshold       int
	WarnWeight          int
	SuspiciousThreshold int
	SuspiciousWeight    int
	CriticalThreshold   int
	CriticalWeight      int
}

// NewVelocityTracker builds a tracker from configuration.
func NewVelocityTracker(cfg VelocityConfig) *VelocityTracker {
	thresholds := []velocityThreshold{
		{cfg.CriticalThreshold, cfg.CriticalWeight, "FINGERPRINT_VELOCITY_CRITICAL"},
		{cfg.SuspiciousThreshold, cfg.SuspiciousWeight, "FINGERPRINT_VELOCITY_SUSPICIOUS"},
		{cfg.WarnThreshold, cfg.WarnWeight, "FINGERPRINT_VELOCITY_WARN"},
	}
	// Keep descending order even if configured thresholds are inverted.
	for i := 0; i < len(thresholds); i++ {
		for j := i + 1; j < len(thresholds); j++ {
			if thresholds[j].count > thresholds[i].count {
				thresholds[i], thresholds[j] = thresholds[j], thresholds[i]
			}
		}
	}
	return &VelocityTracker{
		window:     time.Duration(cfg.WindowSeconds) * time.Second,
		thresholds: thresholds,
		events:     make(map[string][]time.Time),
		now:        time.Now,
	}
}

// RecordAndCheck appends the current instant to the fingerprint's window and
// returns at most one signal for the highest threshold reached.
func (t *VelocityTracker) RecordAndCheck(fingerprintID string) []models.FraudSignal {
	if fingerprintID == "" {
		return nil
	}

	now := t.now()
	cutoff := now.Add(-t.window)

	t.mu.Lock()
	t.calls++
	if t.calls >= velocityPurgeEvery {
		t.calls = 0
		t.purgeStale(cutoff)
	}

	events := t.events[fingerprintID]
	for len(events) > 0 && events[0].Before(cutoff) {
		events = events[1:]
	}
	events = append(events, now)
	t.events[fingerprintID] = events
	count := len(events)
	t.mu.Unlock()

	for _, threshold := range t.thresholds {
		if count >= threshold.count {
			return []models.FraudSignal{NewSignal(
				threshold.code,
				threshold.weight,
				fmt.Sprintf("Fingerprint submitted %d requests in the last %d minutes.",
					count, int(t.window.Minutes())),
			)}
		}
	}
	return nil
}

// purgeStale drops keys whose newest event has already left the window.
// Caller holds the lock.
func (t *VelocityTracker) purgeStale(cutoff time.Time) {
	for fp, events := range t.events {
		if len(events) == 0 || events[len(events)-1].Before(cutoff) {
			delete(t.events, fp)
		}
	}
}
