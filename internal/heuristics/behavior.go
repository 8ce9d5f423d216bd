package heuristics

import "github.com/axlrose023/fraud-checker/pkg/models"

const (
	minTimeOnPageMS      = 3000
	minInteractionEvents = 3
	minScrollableHeight  = 1200
)

// BehaviorRule evaluates the per-request interaction counters: instant
// submissions, zero scrolling on pages that need it, and the total absence of
// human input events.
type BehaviorRule struct{}

func (BehaviorRule) Collect(payload *models.FraudCheckRequest, d Derived) []models.FraudSignal {
	bhv := payload.Behavior
	if bhv == nil {
		return nil
	}

	var signals []models.FraudSignal

	if bhv.TimeOnPageMS != nil && *bhv.TimeOnPageMS < minTimeOnPageMS {
		signals = append(signals, NewSignal(
			"TOO_FAST_SUBMISSION", 25,
			"Page was submitted too quickly (under 3 seconds).",
		))
	}

	if bhv.ScrollCount != nil && bhv.DocumentHeight != nil &&
		*bhv.ScrollCount == 0 && *bhv.DocumentHeight > minScrollableHeight &&
		*bhv.DocumentHeight > payload.Viewport.Height+200 {
		signals = append(signals, NewSignal(
			"NO_SCROLL_BEFORE_SUBMIT", 18,
			"No scroll detected on a page that requires scrolling.",
		))
	}

	interactions := intOrZero(bhv.KeydownCount) + intOrZero(bhv.MouseMoveCount) + intOrZero(bhv.TouchCount)
	if interactions < minInteractionEvents {
		signals = append(signals, NewSignal(
			"NO_HUMAN_INTERACTION", 30,
			"No keyboard, mouse, or touch events detected.",
		))
	}

	return signals
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
