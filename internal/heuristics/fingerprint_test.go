package heuristics

import (
	"testing"

	"github.com/axlrose023/fraud-checker/pkg/models"
)

func fingerprintPayload() *models.FraudCheckRequest {
	return &models.FraudCheckRequest{
		Navigator: models.NavigatorSignals{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Language:  "en-US",
			Languages: []string{"en-US", "en"},
			Platform:  "Win32",
		},
		Screen:   models.ScreenSignals{Width: 1920, Height: 1080},
		Viewport: models.ViewportSignals{Width: 1280, Height: 800},
	}
}

func TestBuildFingerprint_Deterministic(t *testing.T) {
	a := BuildFingerprint(fingerprintPayload())
	b := BuildFingerprint(fingerprintPayload())

	if a != b {
		t.Errorf("Identical payloads must hash identically. Got %s and %s", a, b)
	}
	if len(a) != 24 {
		t.Errorf("Fingerprint must be 24 hex chars. Got %d: %s", len(a), a)
	}
}

func TestBuildFingerprint_SensitiveToIdentityFields(t *testing.T) {
	base := BuildFingerprint(fingerprintPayload())

	changed := fingerprintPayload()
	changed.Navigator.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36"
	if BuildFingerprint(changed) == base {
		t.Error("Changing the user agent must change the fingerprint")
	}

	changed = fingerprintPayload()
	changed.Screen.Width = 1440
	if BuildFingerprint(changed) == base {
		t.Error("Changing screen geometry must change the fingerprint")
	}
}

func TestBuildFingerprint_IgnoresVolatileFields(t *testing.T) {
	// Behavior counters, timestamps and IPs vary per request and must not
	// perturb the device identity.
	base := BuildFingerprint(fingerprintPayload())

	withVolatile := fingerprintPayload()
	ms := 4200
	withVolatile.Behavior = &models.BehaviorSignals{TimeOnPageMS: &ms}
	withVolatile.ClientReportedIP = "203.0.113.9"
	withVolatile.SessionID = "abc"

	if BuildFingerprint(withVolatile) != base {
		t.Error("Volatile per-request fields must not affect the fingerprint")
	}
}

func TestBuildFingerprint_NilAndEmptyLanguagesEqual(t *testing.T) {
	withNil := fingerprintPayload()
	withNil.Navigator.Languages = nil
	withEmpty := fingerprintPayload()
	withEmpty.Navigator.Languages = []string{}

	if BuildFingerprint(withNil) != BuildFingerprint(withEmpty) {
		t.Error("nil and empty languages must canonicalize identically")
	}
}
