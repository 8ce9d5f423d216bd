package heuristics

import "github.com/axlrose023/fraud-checker/pkg/models"

// LocaleRule cross-checks navigator.language against navigator.languages and
// the reported timezone against the reported UTC offset. Unknown timezones
// yield no signal.
type LocaleRule struct{}

func (LocaleRule) Collect(payload *models.FraudCheckRequest, d Derived) []models.FraudSignal {
	var signals []models.FraudSignal

	language := payload.Navigator.Language
	languages := payload.Navigator.Languages

	if language == "" && len(languages) == 0 {
		signals = append(signals, NewSignal(
			"MISSING_LANGUAGE_DATA", 10,
			"Browser language signals are missing.",
		))
	}

	if language != "" && len(languages) > 0 {
		base := LanguageBase(language)
		found := false
		for _, item := range languages {
			if LanguageBase(item) == base {
				found = true
				break
			}
		}
		if !found {
			signals = append(signals, NewSignal(
				"LANGUAGE_MISMATCH", 10,
				"navigator.language is inconsistent with navigator.languages.",
			))
		}
	}

	location := payload.Location
	if location == nil || location.Timezone == "" || location.UTCOffsetMinutes == nil {
		return signals
	}

	at := d.Now
	if payload.CollectedAt != nil && !payload.CollectedAt.IsZero() {
		at = payload.CollectedAt.Time
	}
	expected, ok := TimezoneOffsetMinutes(location.Timezone, at)
	if !ok {
		return signals
	}

	if abs(expected-*location.UTCOffsetMinutes) > 60 {
		signals = append(signals, NewSignal(
			"TIMEZONE_OFFSET_MISMATCH", 20,
			"Reported timezone and UTC offset are inconsistent.",
		))
	}

	return signals
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
