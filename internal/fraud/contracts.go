package fraud

import (
	"context"

	"github.com/axlrose023/fraud-checker/pkg/models"
)

// IpGeoResolver resolves a request IP into geolocation context. A nil result
// means "no data" (resolver disabled, lookup failed, or IP unknown); the geo
// rules then stay silent.
type IpGeoResolver interface {
	Resolve(ctx context.Context, ip string) *models.IpGeoResult
}

// VerificationResult is the outcome of a captcha provider siteverify call.
// Transport failures are mapped into error codes, never into Go errors: a
// failed provider is a failed verification.
type VerificationResult struct {
	Success    bool
	ErrorCodes []string
	Hostname   string
	Action     string
}

// CaptchaVerifier is the provider contract consumed by the verify flow.
type CaptchaVerifier interface {
	IsConfigured() bool
	Provider() string
	SiteKey() string
	Verify(ctx context.Context, token, remoteIP string) VerificationResult
}

// AuditSink appends one audit record per check and per verify result.
// Best-effort: the caller logs and swallows errors.
type AuditSink interface {
	Append(ctx context.Context, entry models.FraudCheckLog) error
}

// DecisionEvent is pushed to live stream subscribers after every evaluation.
type DecisionEvent struct {
	Type            string          `json:"type"`
	EventID         string          `json:"event_id"`
	FingerprintID   string          `json:"fingerprint_id"`
	RequestIP       string          `json:"request_ip,omitempty"`
	Decision        models.Decision `json:"decision"`
	RiskScore       int             `json:"risk_score"`
	SignalCount     int             `json:"signal_count"`
	CaptchaRequired bool            `json:"captcha_required"`
	EvaluatedAt     models.FlexTime `json:"evaluated_at"`
}

// DecisionBroadcaster fans a decision event out to stream subscribers.
type DecisionBroadcaster interface {
	BroadcastDecision(event DecisionEvent)
}
