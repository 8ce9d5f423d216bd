package heuristics

import (
	"time"

	"github.com/axlrose023/fraud-checker/pkg/models"
)

const (
	maxFutureSkew  = 2 * time.Minute
	maxSnapshotAge = 10 * time.Minute
)

// TimestampRule sanity-checks the client-reported collection time against the
// server clock. Skewed-future timestamps suggest a broken or spoofed clock;
// stale snapshots suggest replay.
type TimestampRule struct{}

func (TimestampRule) Collect(payload *models.FraudCheckRequest, d Derived) []models.FraudSignal {
	if payload.CollectedAt == nil || payload.CollectedAt.IsZero() {
		return nil
	}

	collectedAt := payload.CollectedAt.Time

	if collectedAt.After(d.Now.Add(maxFutureSkew)) {
		return []models.FraudSignal{NewSignal(
			"CLIENT_TIMESTAMP_IN_FUTURE", 12,
			"Client snapshot timestamp is too far in the future.",
		)}
	}

	if d.Now.Sub(collectedAt) > maxSnapshotAge {
		return []models.FraudSignal{NewSignal(
			"STALE_CLIENT_SNAPSHOT", 18,
			"Client snapshot looks stale and may be replayed.",
		)}
	}

	return nil
}
