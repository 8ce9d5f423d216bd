package heuristics

import "github.com/axlrose023/fraud-checker/pkg/models"

// IPRule flags a client that reports a different IP than the one it actually
// connected from. Both sides are normalized; either being absent yields no
// signal.
type IPRule struct{}

func (IPRule) Collect(payload *models.FraudCheckRequest, d Derived) []models.FraudSignal {
	reported := NormalizeIP(payload.ClientReportedIP)
	actual := NormalizeIP(d.RequestIP)

	if reported != "" && actual != "" && reported != actual {
		return []models.FraudSignal{NewSignal(
			"CLIENT_IP_MISMATCH", 30,
			"Client-reported IP differs from request source IP.",
		)}
	}
	return nil
}
