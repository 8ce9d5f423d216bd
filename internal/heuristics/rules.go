package heuristics

import (
	"strings"
	"time"

	"github.com/axlrose023/fraud-checker/pkg/models"
)

// Derived carries per-request inputs computed once and shared by every rule:
// lowercased UA/platform, mobile classification, normalized headers, the
// resolved request IP, the evaluation instant, and (for the geo rule) the
// IP-geolocation result.
type Derived struct {
	UA          string
	Platform    string
	IsMobileUA  bool
	IsDesktopUA bool
	Headers     map[string]string
	RequestIP   string
	Now         time.Time
	IPGeo       *models.IpGeoResult
}

// NewDerived computes the shared rule inputs from the payload and request
// context. Headers must already be key-lowercased (NormalizeHeaders).
func NewDerived(payload *models.FraudCheckRequest, requestIP string, headers map[string]string, now time.Time) Derived {
	ua := strings.ToLower(payload.Navigator.UserAgent)
	mobile := HasMobileUA(ua)
	return Derived{
		UA:          ua,
		Platform:    strings.ToLower(payload.Navigator.Platform),
		IsMobileUA:  mobile,
		IsDesktopUA: !mobile,
		Headers:     headers,
		RequestIP:   requestIP,
		Now:         now,
	}
}

// Rule is a single signal producer. Rules are pure: they read the payload and
// derived inputs and emit zero or more signals, never mutating either.
type Rule interface {
	Collect(payload *models.FraudCheckRequest, d Derived) []models.FraudSignal
}

// ClientRules returns the stateless rule pack in its fixed evaluation order.
// Signal ordering inside a response follows this order; new rules append.
func ClientRules() []Rule {
	return []Rule{
		AutomationRule{},
		DeviceRule{},
		LocaleRule{},
		HeadersRule{},
		TimestampRule{},
		SystemRule{},
		IPRule{},
		BehaviorRule{},
	}
}
