package fraud

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axlrose023/fraud-checker/internal/config"
	"github.com/axlrose023/fraud-checker/pkg/models"
)

// ─── Test doubles ───────────────────────────────────────────────────

type stubGeo struct {
	result *models.IpGeoResult
}

func (s stubGeo) Resolve(ctx context.Context, ip string) *models.IpGeoResult {
	return s.result
}

type stubVerifier struct {
	configured bool
	result     VerificationResult
}

func (v stubVerifier) IsConfigured() bool { return v.configured }
func (v stubVerifier) Provider() string   { return "turnstile" }
func (v stubVerifier) SiteKey() string    { return "site-key-1" }
func (v stubVerifier) Verify(ctx context.Context, token, remoteIP string) VerificationResult {
	return v.result
}

type memorySink struct {
	entries []models.FraudCheckLog
}

func (s *memorySink) Append(ctx context.Context, entry models.FraudCheckLog) error {
	s.entries = append(s.entries, entry)
	return nil
}

type captureBroadcaster struct {
	events []DecisionEvent
}

func (b *captureBroadcaster) BroadcastDecision(event DecisionEvent) {
	b.events = append(b.events, event)
}

// ─── Fixtures ───────────────────────────────────────────────────────

func testFraudConfig() config.FraudConfig {
	return config.FraudConfig{
		BlockScoreThreshold:  70,
		ReviewScoreThreshold: 30,

		RateLimitWindowSeconds:    60,
		RateLimitMaxRequestsPerIP: 30,

		TurnstileChallengeTTLSeconds: 300,
		TurnstileMaxAttempts:         5,

		FingerprintVelocityWindowSeconds:       600,
		FingerprintVelocityWarnThreshold:       5,
		FingerprintVelocityWarnWeight:          10,
		FingerprintVelocitySuspiciousThreshold: 12,
		FingerprintVelocitySuspiciousWeight:    25,
		FingerprintVelocityCriticalThreshold:   30,
		FingerprintVelocityCriticalWeight:      45,

		BehaviorSimilarityHistorySize:         10,
		BehaviorSimilarityWindowSeconds:       1800,
		BehaviorSimilarityTolerancePct:        0.1,
		BehaviorSimilarityMatchRatio:          0.8,
		BehaviorSimilarityWarnThreshold:       2,
		BehaviorSimilarityWarnWeight:          12,
		BehaviorSimilaritySuspiciousThreshold: 4,
		BehaviorSimilaritySuspiciousWeight:    25,
	}
}

const desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func cleanPayload() *models.FraudCheckRequest {
	now := models.NewFlexTime(time.Now().UTC())
	return &models.FraudCheckRequest{
		Navigator: models.NavigatorSignals{
			UserAgent:           desktopUA,
			Language:            "en-US",
			Languages:           []string{"en-US", "en"},
			Platform:            "Win32",
			Webdriver:           boolPtr(false),
			HardwareConcurrency: intPtr(8),
			DeviceMemory:        floatPtr(8),
			MaxTouchPoints:      intPtr(0),
			PluginsCount:        intPtr(3),
		},
		Screen: models.ScreenSignals{
			Width: 1920, Height: 1080,
			AvailWidth: intPtr(1920), AvailHeight: intPtr(1040),
			ColorDepth: intPtr(24), PixelRatio: floatPtr(1),
		},
		Viewport: models.ViewportSignals{Width: 1280, Height: 800},
		Behavior: &models.BehaviorSignals{
			TimeOnPageMS:   intPtr(15000),
			MaxScrollY:     intPtr(640),
			ScrollCount:    intPtr(7),
			DocumentHeight: intPtr(2400),
			KeydownCount:   intPtr(24),
			MouseMoveCount: intPtr(180),
			TouchCount:     intPtr(0),
		},
		CollectedAt: &now,
	}
}

func matchingHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      desktopUA,
		"Accept-Language": "en-US,en;q=0.9",
	}
}

// ─── Scenarios ──────────────────────────────────────────────────────

func TestService_CleanDesktopIsAllowed(t *testing.T) {
	sink := &memorySink{}
	broadcaster := &captureBroadcaster{}
	svc := NewService(testFraudConfig(), nil, stubVerifier{}, sink, broadcaster)

	resp := svc.Check(context.Background(), cleanPayload(), "203.0.113.9", matchingHeaders(), "https://shop.example")

	assert.Equal(t, models.DecisionAllow, resp.Decision)
	assert.Equal(t, 0, resp.RiskScore)
	assert.Empty(t, resp.Signals)
	assert.False(t, resp.CaptchaRequired)
	assert.Len(t, resp.FingerprintID, 24)
	assert.Equal(t, "203.0.113.9", resp.RequestIP)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, models.DecisionAllow, sink.entries[0].Decision)
	assert.NotEmpty(t, sink.entries[0].RequestPayload)

	require.Len(t, broadcaster.events, 1)
	assert.Equal(t, "fraud_decision", broadcaster.events[0].Type)
	assert.NotEmpty(t, broadcaster.events[0].EventID)
}

func TestService_AutomationIsBlocked(t *testing.T) {
	svc := NewService(testFraudConfig(), nil, stubVerifier{configured: true}, nil, nil)

	payload := cleanPayload()
	payload.Navigator.UserAgent = "curl/8.5.0"
	payload.Navigator.Webdriver = boolPtr(true)

	resp := svc.Check(context.Background(), payload, "203.0.113.9", nil, "")

	assert.Equal(t, models.DecisionBlock, resp.Decision)
	assert.Equal(t, 100, resp.RiskScore)
	// Block verdicts never get a captcha escape hatch.
	assert.False(t, resp.CaptchaRequired)
	assert.Empty(t, resp.ChallengeID)
}

func TestService_ReviewIssuesChallenge(t *testing.T) {
	verifier := stubVerifier{configured: true}
	svc := NewService(testFraudConfig(), stubGeo{result: &models.IpGeoResult{CountryISO: "US"}}, verifier, nil, nil)

	payload := cleanPayload()
	payload.Location = &models.LocationSignals{CountryISO: "DE"}

	resp := svc.Check(context.Background(), payload, "203.0.113.9", matchingHeaders(), "https://shop.example")

	assert.Equal(t, models.DecisionReview, resp.Decision)
	assert.Equal(t, 35, resp.RiskScore)
	assert.Equal(t, "US", resp.IPCountryISO)
	assert.True(t, resp.CaptchaRequired)
	assert.Equal(t, "turnstile", resp.CaptchaProvider)
	assert.Equal(t, "site-key-1", resp.CaptchaSiteKey)
	require.NotEmpty(t, resp.ChallengeID)

	challenge := svc.Challenges().Get(resp.ChallengeID)
	require.NotNil(t, challenge)
	// The snapshot predates the captcha fields.
	assert.False(t, challenge.Response.CaptchaRequired)
	assert.Equal(t, models.DecisionReview, challenge.Response.Decision)
}

func TestService_ReviewWithoutVerifierSkipsChallenge(t *testing.T) {
	svc := NewService(testFraudConfig(), stubGeo{result: &models.IpGeoResult{CountryISO: "US"}}, stubVerifier{configured: false}, nil, nil)

	payload := cleanPayload()
	payload.Location = &models.LocationSignals{CountryISO: "DE"}

	resp := svc.Check(context.Background(), payload, "203.0.113.9", matchingHeaders(), "")

	assert.Equal(t, models.DecisionReview, resp.Decision)
	assert.False(t, resp.CaptchaRequired)
	assert.Empty(t, resp.ChallengeID)
}

func TestService_GeoDisabledMeansNoGeoSignals(t *testing.T) {
	svc := NewService(testFraudConfig(), nil, stubVerifier{}, nil, nil)

	payload := cleanPayload()
	payload.Location = &models.LocationSignals{CountryISO: "DE"}

	resp := svc.Check(context.Background(), payload, "203.0.113.9", matchingHeaders(), "")

	assert.Equal(t, models.DecisionAllow, resp.Decision)
	assert.Empty(t, resp.Signals)
	assert.Empty(t, resp.IPCountryISO)
}

func TestService_RateLimitShortCircuits(t *testing.T) {
	cfg := testFraudConfig()
	cfg.RateLimitMaxRequestsPerIP = 2
	sink := &memorySink{}
	svc := NewService(cfg, nil, stubVerifier{}, sink, nil)

	svc.Check(context.Background(), cleanPayload(), "203.0.113.9", matchingHeaders(), "")
	svc.Check(context.Background(), cleanPayload(), "203.0.113.9", matchingHeaders(), "")
	resp := svc.Check(context.Background(), cleanPayload(), "203.0.113.9", matchingHeaders(), "")

	assert.Equal(t, models.DecisionBlock, resp.Decision)
	assert.Equal(t, 100, resp.RiskScore)
	require.Len(t, resp.Signals, 1)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", resp.Signals[0].Code)
	// The limited request is still audited.
	assert.Len(t, sink.entries, 3)

	// Another IP is unaffected.
	other := svc.Check(context.Background(), cleanPayload(), "198.51.100.7", matchingHeaders(), "")
	assert.Equal(t, models.DecisionAllow, other.Decision)
}

func TestService_VerifyCaptchaSuccessUpgradesToAllow(t *testing.T) {
	verifier := stubVerifier{configured: true, result: VerificationResult{Success: true}}
	sink := &memorySink{}
	svc := NewService(testFraudConfig(), stubGeo{result: &models.IpGeoResult{CountryISO: "US"}}, verifier, sink, nil)

	payload := cleanPayload()
	payload.Location = &models.LocationSignals{CountryISO: "DE"}
	checkResp := svc.Check(context.Background(), payload, "203.0.113.9", matchingHeaders(), "https://shop.example")
	require.NotEmpty(t, checkResp.ChallengeID)

	req := models.CaptchaVerifyRequest{ChallengeID: checkResp.ChallengeID, CaptchaToken: "tok-1234567890123456"}
	resp, verifyErr := svc.VerifyCaptcha(context.Background(), req, "203.0.113.9", "https://shop.example")
	require.Nil(t, verifyErr)

	assert.Equal(t, models.DecisionAllow, resp.Decision)
	assert.Equal(t, 35, resp.RiskScore) // original score is preserved
	assert.True(t, resp.CaptchaVerified)
	assert.False(t, resp.CaptchaRequired)
	assert.Empty(t, resp.CaptchaErrorCodes)
	assert.Equal(t, checkResp.ChallengeID, resp.ChallengeID)
	assert.Equal(t, checkResp.FingerprintID, resp.FingerprintID)

	// The challenge is single-use.
	_, verifyErr = svc.VerifyCaptcha(context.Background(), req, "203.0.113.9", "https://shop.example")
	require.NotNil(t, verifyErr)
	assert.Equal(t, 404, verifyErr.Status)
	assert.Equal(t, "captcha_challenge_not_found", verifyErr.Code)
}

func TestService_VerifyCaptchaFailureKeepsVerdict(t *testing.T) {
	verifier := stubVerifier{
		configured: true,
		result:     VerificationResult{Success: false, ErrorCodes: []string{"invalid-input-response"}},
	}
	svc := NewService(testFraudConfig(), stubGeo{result: &models.IpGeoResult{CountryISO: "US"}}, verifier, nil, nil)

	payload := cleanPayload()
	payload.Location = &models.LocationSignals{CountryISO: "DE"}
	checkResp := svc.Check(context.Background(), payload, "203.0.113.9", matchingHeaders(), "")

	req := models.CaptchaVerifyRequest{ChallengeID: checkResp.ChallengeID, CaptchaToken: "tok-1234567890123456"}
	resp, verifyErr := svc.VerifyCaptcha(context.Background(), req, "203.0.113.9", "")
	require.Nil(t, verifyErr)

	assert.Equal(t, models.DecisionReview, resp.Decision)
	assert.True(t, resp.CaptchaRequired)
	assert.False(t, resp.CaptchaVerified)
	assert.Equal(t, []string{"invalid-input-response"}, resp.CaptchaErrorCodes)

	// The challenge survives for a retry.
	assert.NotNil(t, svc.Challenges().Get(checkResp.ChallengeID))
}

func TestService_VerifyCaptchaBindingChecks(t *testing.T) {
	verifier := stubVerifier{configured: true, result: VerificationResult{Success: true}}
	svc := NewService(testFraudConfig(), stubGeo{result: &models.IpGeoResult{CountryISO: "US"}}, verifier, nil, nil)

	payload := cleanPayload()
	payload.Location = &models.LocationSignals{CountryISO: "DE"}
	checkResp := svc.Check(context.Background(), payload, "203.0.113.9", matchingHeaders(), "https://shop.example")
	req := models.CaptchaVerifyRequest{ChallengeID: checkResp.ChallengeID, CaptchaToken: "tok-1234567890123456"}

	// Wrong IP.
	_, verifyErr := svc.VerifyCaptcha(context.Background(), req, "198.51.100.7", "https://shop.example")
	require.NotNil(t, verifyErr)
	assert.Equal(t, 400, verifyErr.Status)
	assert.Equal(t, "captcha_challenge_ip_mismatch", verifyErr.Code)

	// Missing origin.
	_, verifyErr = svc.VerifyCaptcha(context.Background(), req, "203.0.113.9", "")
	require.NotNil(t, verifyErr)
	assert.Equal(t, "captcha_challenge_origin_missing", verifyErr.Code)

	// Wrong origin.
	_, verifyErr = svc.VerifyCaptcha(context.Background(), req, "203.0.113.9", "https://evil.example")
	require.NotNil(t, verifyErr)
	assert.Equal(t, "captcha_challenge_origin_mismatch", verifyErr.Code)

	// A failed binding check never burns the challenge.
	require.NotNil(t, svc.Challenges().Get(checkResp.ChallengeID))

	// Origin comparison is case-insensitive.
	resp, verifyErr := svc.VerifyCaptcha(context.Background(), req, "203.0.113.9", "HTTPS://SHOP.EXAMPLE")
	require.Nil(t, verifyErr)
	assert.Equal(t, models.DecisionAllow, resp.Decision)
}

func TestService_VerifyCaptchaUnknownChallenge(t *testing.T) {
	svc := NewService(testFraudConfig(), nil, stubVerifier{configured: true}, nil, nil)

	req := models.CaptchaVerifyRequest{ChallengeID: "nope-nope-nope-nope", CaptchaToken: "tok-1234567890123456"}
	_, verifyErr := svc.VerifyCaptcha(context.Background(), req, "203.0.113.9", "")
	require.NotNil(t, verifyErr)
	assert.Equal(t, 404, verifyErr.Status)
	assert.Equal(t, "captcha_challenge_not_found", verifyErr.Code)
}

func TestService_FingerprintVelocityEscalates(t *testing.T) {
	cfg := testFraudConfig()
	cfg.RateLimitMaxRequestsPerIP = 1000
	svc := NewService(cfg, nil, stubVerifier{}, nil, nil)

	// The same device fingerprint hammering the endpoint accumulates
	// velocity weight even though each payload is individually clean.
	var last models.FraudCheckResponse
	for i := 0; i < 5; i++ {
		last = svc.Check(context.Background(), cleanPayload(), "203.0.113.9", matchingHeaders(), "")
	}

	found := false
	for _, s := range last.Signals {
		if s.Code == "FINGERPRINT_VELOCITY_WARN" {
			found = true
		}
	}
	assert.True(t, found, "expected FINGERPRINT_VELOCITY_WARN on the 5th request, got %+v", last.Signals)
}
