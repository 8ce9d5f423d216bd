package fraud

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/axlrose023/fraud-checker/internal/config"
	"github.com/axlrose023/fraud-checker/internal/heuristics"
	"github.com/axlrose023/fraud-checker/pkg/models"
)

// VerifyError is a protocol-level verify failure: a missing challenge or a
// binding mismatch. It maps directly onto an HTTP status plus machine code.
type VerifyError struct {
	Status int
	Code   string
}

func (e *VerifyError) Error() string {
	return e.Code
}

// Service is the scoring orchestrator. One request flows through:
// rate limit → stateless rule pack → IP-geo + geo rules → velocity →
// behavior similarity → score → decision → optional challenge → audit.
// All shared state lives in the limiter, trackers, and challenge store;
// external calls (geo, captcha, audit) happen outside any lock.
type Service struct {
	cfg config.FraudConfig

	rules   []heuristics.Rule
	geoRule heuristics.GeoRule

	limiter    *IPRateLimiter
	velocity   *heuristics.VelocityTracker
	similarity *heuristics.SimilarityDetector
	challenges *ChallengeStore

	geo         IpGeoResolver
	verifier    CaptchaVerifier
	audit       AuditSink
	broadcaster DecisionBroadcaster

	wallNow func() time.Time
}

// NewService wires the orchestrator. geo, verifier, audit, and broadcaster
// may each be nil; the matching pipeline step is then skipped.
func NewService(
	cfg config.FraudConfig,
	geo IpGeoResolver,
	verifier CaptchaVerifier,
	audit AuditSink,
	broadcaster DecisionBroadcaster,
) *Service {
	return &Service{
		cfg:     cfg,
		rules:   heuristics.ClientRules(),
		limiter: NewIPRateLimiter(cfg.RateLimitWindowSeconds, cfg.RateLimitMaxRequestsPerIP),
		velocity: heuristics.NewVelocityTracker(heuristics.VelocityConfig{
			WindowSeconds:       cfg.FingerprintVelocityWindowSeconds,
			WarnThreshold:       cfg.FingerprintVelocityWarnThreshold,
			WarnWeight:          cfg.FingerprintVelocityWarnWeight,
			SuspiciousThreshold: cfg.FingerprintVelocitySuspiciousThreshold,
			SuspiciousWeight:    cfg.FingerprintVelocitySuspiciousWeight,
			CriticalThreshold:   cfg.FingerprintVelocityCriticalThreshold,
			CriticalWeight:      cfg.FingerprintVelocityCriticalWeight,
		}),
		similarity: heuristics.NewSimilarityDetector(heuristics.SimilarityConfig{
			HistorySize:         cfg.BehaviorSimilarityHistorySize,
			WindowSeconds:       cfg.BehaviorSimilarityWindowSeconds,
			TolerancePct:        cfg.BehaviorSimilarityTolerancePct,
			MatchRatio:          cfg.BehaviorSimilarityMatchRatio,
			WarnThreshold:       cfg.BehaviorSimilarityWarnThreshold,
			WarnWeight:          cfg.BehaviorSimilarityWarnWeight,
			SuspiciousThreshold: cfg.BehaviorSimilaritySuspiciousThreshold,
			SuspiciousWeight:    cfg.BehaviorSimilaritySuspiciousWeight,
		}),
		challenges:  NewChallengeStore(cfg.TurnstileChallengeTTLSeconds, cfg.TurnstileMaxAttempts),
		geo:         geo,
		verifier:    verifier,
		audit:       audit,
		broadcaster: broadcaster,
		wallNow:     time.Now,
	}
}

// Challenges exposes the store for tests and diagnostics.
func (s *Service) Challenges() *ChallengeStore {
	return s.challenges
}

// Check runs the full scoring pipeline for one telemetry payload.
func (s *Service) Check(
	ctx context.Context,
	payload *models.FraudCheckRequest,
	requestIP string,
	headers map[string]string,
	origin string,
) models.FraudCheckResponse {
	fingerprintID := heuristics.BuildFingerprint(payload)
	now := s.wallNow().UTC()

	if !s.limiter.Allow(requestIP) {
		response := s.rateLimitedResponse(fingerprintID, requestIP, now)
		s.appendAudit(ctx, payload, origin, response)
		s.broadcast(response)
		return response
	}

	derived := heuristics.NewDerived(payload, requestIP, heuristics.NormalizeHeaders(headers), now)

	signals := make([]models.FraudSignal, 0, 8)
	for _, rule := range s.rules {
		signals = append(signals, rule.Collect(payload, derived)...)
	}

	if requestIP != "" && s.geo != nil {
		derived.IPGeo = s.geo.Resolve(ctx, requestIP)
	}
	signals = append(signals, s.geoRule.Collect(payload, derived)...)

	signals = append(signals, s.velocity.RecordAndCheck(fingerprintID)...)
	signals = append(signals, s.similarity.RecordAndCheck(fingerprintID, payload.Behavior)...)

	score := heuristics.SumWeights(signals)
	decision := heuristics.DecisionForScore(score, s.cfg.BlockScoreThreshold, s.cfg.ReviewScoreThreshold)

	response := models.FraudCheckResponse{
		Decision:          decision,
		RiskScore:         score,
		FingerprintID:     fingerprintID,
		RequestIP:         requestIP,
		Signals:           signals,
		CaptchaErrorCodes: []string{},
		EvaluatedAt:       models.NewFlexTime(now),
	}
	if derived.IPGeo != nil {
		response.IPCountryISO = derived.IPGeo.CountryISO
	}

	if decision == models.DecisionReview && s.verifier != nil && s.verifier.IsConfigured() && s.challenges.TTL() > 0 {
		challengeID, err := s.challenges.Create(response, requestIP, origin)
		if err != nil {
			log.Printf("Failed to create captcha challenge: %v", err)
		} else {
			response.CaptchaRequired = true
			response.CaptchaProvider = s.verifier.Provider()
			response.CaptchaSiteKey = s.verifier.SiteKey()
			response.ChallengeID = challengeID
		}
	}

	s.appendAudit(ctx, payload, origin, response)
	s.broadcast(response)
	return response
}

// VerifyCaptcha completes a pending challenge. On provider success the stored
// verdict is upgraded to allow and the challenge consumed; on failure the
// original verdict is re-emitted with the provider's error codes.
func (s *Service) VerifyCaptcha(
	ctx context.Context,
	req models.CaptchaVerifyRequest,
	requestIP string,
	origin string,
) (models.FraudCheckResponse, *VerifyError) {
	challenge := s.challenges.Get(req.ChallengeID)
	if challenge == nil {
		return models.FraudCheckResponse{}, &VerifyError{Status: 404, Code: "captcha_challenge_not_found"}
	}

	now := s.wallNow().UTC()

	// Verify shares the check limiter; a denied attempt does not touch the
	// challenge attempt counter.
	if !s.limiter.Allow(requestIP) {
		response := s.rateLimitedResponse(challenge.Response.FingerprintID, requestIP, now)
		s.appendAudit(ctx, nil, origin, response)
		s.broadcast(response)
		return response, nil
	}

	if challenge.RequestIP != "" {
		if requestIP == "" {
			return models.FraudCheckResponse{}, &VerifyError{Status: 400, Code: "captcha_challenge_ip_missing"}
		}
		if challenge.RequestIP != requestIP {
			return models.FraudCheckResponse{}, &VerifyError{Status: 400, Code: "captcha_challenge_ip_mismatch"}
		}
	}
	if challenge.Origin != "" {
		if origin == "" {
			return models.FraudCheckResponse{}, &VerifyError{Status: 400, Code: "captcha_challenge_origin_missing"}
		}
		if normalizeOrigin(challenge.Origin) != normalizeOrigin(origin) {
			return models.FraudCheckResponse{}, &VerifyError{Status: 400, Code: "captcha_challenge_origin_mismatch"}
		}
	}

	verification := s.verifier.Verify(ctx, req.CaptchaToken, requestIP)

	if verification.Success {
		consumed := s.challenges.Consume(req.ChallengeID)
		if consumed == nil {
			return models.FraudCheckResponse{}, &VerifyError{Status: 404, Code: "captcha_challenge_not_found"}
		}

		base := consumed.Response
		response := models.FraudCheckResponse{
			Decision:          models.DecisionAllow,
			RiskScore:         base.RiskScore,
			FingerprintID:     base.FingerprintID,
			RequestIP:         requestIP,
			IPCountryISO:      base.IPCountryISO,
			Signals:           base.Signals,
			CaptchaRequired:   false,
			CaptchaVerified:   true,
			CaptchaProvider:   s.verifier.Provider(),
			CaptchaSiteKey:    s.verifier.SiteKey(),
			CaptchaErrorCodes: []string{},
			ChallengeID:       req.ChallengeID,
			EvaluatedAt:       models.NewFlexTime(now),
		}
		s.appendAudit(ctx, nil, origin, response)
		s.broadcast(response)
		return response, nil
	}

	s.challenges.IncrementAttempts(req.ChallengeID)

	base := challenge.Response
	errorCodes := verification.ErrorCodes
	if errorCodes == nil {
		errorCodes = []string{}
	}
	response := models.FraudCheckResponse{
		Decision:          base.Decision,
		RiskScore:         base.RiskScore,
		FingerprintID:     base.FingerprintID,
		RequestIP:         requestIP,
		IPCountryISO:      base.IPCountryISO,
		Signals:           base.Signals,
		CaptchaRequired:   true,
		CaptchaVerified:   false,
		CaptchaProvider:   s.verifier.Provider(),
		CaptchaSiteKey:    s.verifier.SiteKey(),
		CaptchaErrorCodes: errorCodes,
		ChallengeID:       req.ChallengeID,
		EvaluatedAt:       models.NewFlexTime(now),
	}
	s.appendAudit(ctx, nil, origin, response)
	s.broadcast(response)
	return response, nil
}

func (s *Service) rateLimitedResponse(fingerprintID, requestIP string, now time.Time) models.FraudCheckResponse {
	return models.FraudCheckResponse{
		Decision:      models.DecisionBlock,
		RiskScore:     100,
		FingerprintID: fingerprintID,
		RequestIP:     requestIP,
		Signals: []models.FraudSignal{heuristics.NewSignal(
			"RATE_LIMIT_EXCEEDED", 100,
			"Too many requests from this IP in a short time.",
		)},
		CaptchaErrorCodes: []string{},
		EvaluatedAt:       models.NewFlexTime(now),
	}
}

// appendAudit writes one audit row. Failures are logged and swallowed; they
// never affect the response.
func (s *Service) appendAudit(ctx context.Context, payload *models.FraudCheckRequest, origin string, response models.FraudCheckResponse) {
	if s.audit == nil {
		return
	}

	requestPayload := json.RawMessage("{}")
	if payload != nil {
		if body, err := json.Marshal(payload); err == nil {
			requestPayload = body
		}
	}

	entry := models.FraudCheckLog{
		RequestIP:       response.RequestIP,
		IPCountryISO:    response.IPCountryISO,
		FingerprintID:   response.FingerprintID,
		Origin:          origin,
		RequestPayload:  requestPayload,
		Decision:        response.Decision,
		RiskScore:       response.RiskScore,
		Signals:         response.Signals,
		CaptchaRequired: response.CaptchaRequired,
		CaptchaVerified: response.CaptchaVerified,
		ChallengeID:     response.ChallengeID,
		CreatedAt:       response.EvaluatedAt.Time,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		log.Printf("Failed to append fraud audit log: %v", err)
	}
}

func (s *Service) broadcast(response models.FraudCheckResponse) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastDecision(DecisionEvent{
		Type:            "fraud_decision",
		EventID:         uuid.New().String(),
		FingerprintID:   response.FingerprintID,
		RequestIP:       response.RequestIP,
		Decision:        response.Decision,
		RiskScore:       response.RiskScore,
		SignalCount:     len(response.Signals),
		CaptchaRequired: response.CaptchaRequired,
		EvaluatedAt:     response.EvaluatedAt,
	})
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimSpace(origin))
}
