package fraud

import (
	"testing"
	"time"

	"github.com/axlrose023/fraud-checker/pkg/models"
)

func reviewResponse() models.FraudCheckResponse {
	return models.FraudCheckResponse{
		Decision:      models.DecisionReview,
		RiskScore:     45,
		FingerprintID: "abc123",
		Signals: []models.FraudSignal{
			{Code: "IP_COUNTRY_MISMATCH", Severity: models.SeverityHigh, Weight: 35, Message: "m"},
		},
		CaptchaErrorCodes: []string{},
	}
}

func TestChallengeStore_CreateAndGet(t *testing.T) {
	store := NewChallengeStore(300, 5)

	id, err := store.Create(reviewResponse(), "203.0.113.9", "https://shop.example")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(id) != 32 {
		t.Errorf("Expected a 32-char URL-safe token. Got %d: %s", len(id), id)
	}

	challenge := store.Get(id)
	if challenge == nil {
		t.Fatal("Challenge must be retrievable after create")
	}
	if challenge.RequestIP != "203.0.113.9" || challenge.Origin != "https://shop.example" {
		t.Errorf("Binding fields not stored: %+v", challenge)
	}
	if challenge.Response.Decision != models.DecisionReview || challenge.Response.RiskScore != 45 {
		t.Errorf("Snapshot verdict not stored: %+v", challenge.Response)
	}

	if store.Get("does-not-exist") != nil {
		t.Error("Unknown id must return nil")
	}
}

func TestChallengeStore_SnapshotDoesNotAliasCaller(t *testing.T) {
	store := NewChallengeStore(300, 5)
	response := reviewResponse()

	id, err := store.Create(response, "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Mutating the caller's signals after create must not leak into the store.
	response.Signals[0].Code = "MUTATED"
	challenge := store.Get(id)
	if challenge.Response.Signals[0].Code != "IP_COUNTRY_MISMATCH" {
		t.Error("Stored snapshot must be a deep copy of the response")
	}
}

func TestChallengeStore_ConsumeIsSingleUse(t *testing.T) {
	store := NewChallengeStore(300, 5)
	id, _ := store.Create(reviewResponse(), "", "")

	if store.Consume(id) == nil {
		t.Fatal("First consume must return the challenge")
	}
	if store.Consume(id) != nil {
		t.Error("Second consume must return nil")
	}
	if store.Get(id) != nil {
		t.Error("Consumed challenge must be gone")
	}
}

func TestChallengeStore_TTLExpiry(t *testing.T) {
	store := NewChallengeStore(300, 5)
	clock := time.Now()
	store.now = func() time.Time { return clock }

	id, _ := store.Create(reviewResponse(), "", "")

	clock = clock.Add(299 * time.Second)
	if store.Get(id) == nil {
		t.Fatal("Challenge must still be live just before the TTL")
	}

	clock = clock.Add(2 * time.Second)
	if store.Get(id) != nil {
		t.Error("Challenge must expire after the TTL")
	}
}

func TestChallengeStore_AttemptsExhaustChallenge(t *testing.T) {
	store := NewChallengeStore(300, 3)
	id, _ := store.Create(reviewResponse(), "", "")

	for i := 1; i <= 2; i++ {
		count, ok := store.IncrementAttempts(id)
		if !ok || count != i {
			t.Fatalf("Attempt %d: got (%d, %v)", i, count, ok)
		}
		if store.Get(id) == nil {
			t.Fatalf("Challenge must survive attempt %d of 3", i)
		}
	}

	// The third failed attempt removes the challenge.
	count, ok := store.IncrementAttempts(id)
	if !ok || count != 3 {
		t.Fatalf("Attempt 3: got (%d, %v)", count, ok)
	}
	if store.Get(id) != nil {
		t.Error("Challenge must be removed after max attempts")
	}
	if _, ok := store.IncrementAttempts(id); ok {
		t.Error("Incrementing a removed challenge must report ok=false")
	}
}

func TestChallengeStore_ClampsConfig(t *testing.T) {
	store := NewChallengeStore(0, 0)
	if store.TTL() != time.Second {
		t.Errorf("TTL must clamp to 1s. Got: %s", store.TTL())
	}
}
