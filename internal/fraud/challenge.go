package fraud

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/axlrose023/fraud-checker/pkg/models"
)

// CaptchaChallenge binds a pending review verdict to the requester: a deep
// snapshot of the response at issue time plus the IP/origin it must be
// completed from.
type CaptchaChallenge struct {
	Response  models.FraudCheckResponse
	RequestIP string
	Origin    string
	ExpiresAt time.Time
	Attempts  int
}

// ChallengeStore holds short-lived captcha challenges keyed by challenge_id,
// enabling the two-step flow: /fraud/check issues a challenge_id, and
// /fraud/captcha/verify finalizes the decision without re-running the rules.
//
// Per-process memory store. Multi-replica deployments would need Redis here.
type ChallengeStore struct {
	ttl         time.Duration
	maxAttempts int

	mu    sync.Mutex
	items map[string]*CaptchaChallenge
	now   func() time.Time
}

// NewChallengeStore clamps ttlSeconds and maxAttempts to at least 1.
func NewChallengeStore(ttlSeconds, maxAttempts int) *ChallengeStore {
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ChallengeStore{
		ttl:         time.Duration(ttlSeconds) * time.Second,
		maxAttempts: maxAttempts,
		items:       make(map[string]*CaptchaChallenge),
		now:         time.Now,
	}
}

// TTL returns the configured challenge lifetime.
func (s *ChallengeStore) TTL() time.Duration {
	return s.ttl
}

// An entry is logically absent once expired or attempts-exhausted.
func (s *ChallengeStore) isExpired(item *CaptchaChallenge, now time.Time) bool {
	return !item.ExpiresAt.After(now) || item.Attempts >= s.maxAttempts
}

// Caller holds the lock.
func (s *ChallengeStore) purgeExpired(now time.Time) {
	for id, item := range s.items {
		if s.isExpired(item, now) {
			delete(s.items, id)
		}
	}
}

// Create stores a deep copy of the response under a fresh cryptographic
// URL-safe token and returns the token.
func (s *ChallengeStore) Create(response models.FraudCheckResponse, requestIP, origin string) (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate challenge id: %w", err)
	}
	challengeID := base64.RawURLEncoding.EncodeToString(raw)

	now := s.now()
	item := &CaptchaChallenge{
		Response:  response.Clone(),
		RequestIP: requestIP,
		Origin:    origin,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.purgeExpired(now)
	s.items[challengeID] = item
	s.mu.Unlock()

	return challengeID, nil
}

// Get returns the live challenge or nil, removing entries that turned stale.
func (s *ChallengeStore) Get(challengeID string) *CaptchaChallenge {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[challengeID]
	if !ok {
		return nil
	}
	if s.isExpired(item, now) {
		delete(s.items, challengeID)
		return nil
	}
	copied := *item
	return &copied
}

// IncrementAttempts bumps the failure counter and reports the new count.
// The entry is removed once attempts reach the maximum.
func (s *ChallengeStore) IncrementAttempts(challengeID string) (int, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[challengeID]
	if !ok {
		return 0, false
	}
	if s.isExpired(item, now) {
		delete(s.items, challengeID)
		return 0, false
	}
	item.Attempts++
	if s.isExpired(item, now) {
		delete(s.items, challengeID)
	}
	return item.Attempts, true
}

// Consume removes and returns a live challenge (single-use).
func (s *ChallengeStore) Consume(challengeID string) *CaptchaChallenge {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[challengeID]
	if !ok {
		return nil
	}
	delete(s.items, challengeID)
	if s.isExpired(item, now) {
		return nil
	}
	return item
}
