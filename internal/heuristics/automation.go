package heuristics

import "github.com/axlrose023/fraud-checker/pkg/models"

// AutomationRule flags webdriver-enabled browsers and automation/bot
// User-Agent markers. A strong bot marker (raw HTTP client) dominates: the
// rule returns early so the weaker generic bot marker is not stacked on top.
type AutomationRule struct{}

func (AutomationRule) Collect(payload *models.FraudCheckRequest, d Derived) []models.FraudSignal {
	var signals []models.FraudSignal

	if payload.Navigator.Webdriver != nil && *payload.Navigator.Webdriver {
		signals = append(signals, NewSignal(
			"WEBDRIVER_ENABLED", 70,
			"Browser reports webdriver-enabled automation.",
		))
	}

	if containsAny(d.UA, automationMarkers) {
		signals = append(signals, NewSignal(
			"AUTOMATION_UA_MARKER", 55,
			"User-Agent contains known automation markers.",
		))
	}

	if containsAny(d.UA, strongBotUAMarkers) {
		signals = append(signals, NewSignal(
			"STRONG_BOT_UA_MARKER", 85,
			"User-Agent matches strong non-browser bot signatures.",
		))
		return signals
	}

	if containsAny(d.UA, botUAMarkers) {
		signals = append(signals, NewSignal(
			"BOT_UA_MARKER", 45,
			"User-Agent contains crawler/bot keywords.",
		))
	}

	return signals
}
