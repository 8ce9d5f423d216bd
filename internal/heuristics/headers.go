package heuristics

import (
	"strings"

	"github.com/axlrose023/fraud-checker/pkg/models"
)

// HeadersRule compares what the transport layer says (User-Agent,
// Accept-Language, sec-ch-ua*) with what the payload claims. Header keys in
// Derived are lowercased.
type HeadersRule struct{}

func (HeadersRule) Collect(payload *models.FraudCheckRequest, d Derived) []models.FraudSignal {
	var signals []models.FraudSignal

	headerUA := d.Headers["user-agent"]
	if headerUA != "" && NormalizeText(headerUA) != NormalizeText(payload.Navigator.UserAgent) {
		signals = append(signals, NewSignal(
			"UA_HEADER_PAYLOAD_MISMATCH", 40,
			"Request User-Agent does not match payload user_agent.",
		))
	}

	acceptLanguage := d.Headers["accept-language"]
	if acceptLanguage != "" && payload.Navigator.Language != "" {
		primary := ExtractPrimaryLanguage(acceptLanguage)
		if primary != "" && LanguageBase(primary) != LanguageBase(payload.Navigator.Language) {
			signals = append(signals, NewSignal(
				"ACCEPT_LANGUAGE_MISMATCH", 15,
				"Request Accept-Language does not match payload language.",
			))
		}
	}

	if acceptLanguage != "" && len(payload.Navigator.Languages) > 0 {
		headerBases := make(map[string]struct{})
		for _, item := range ParseAcceptLanguage(acceptLanguage) {
			headerBases[LanguageBase(item)] = struct{}{}
		}
		payloadBases := make(map[string]struct{})
		for _, item := range payload.Navigator.Languages {
			payloadBases[LanguageBase(item)] = struct{}{}
		}
		if len(headerBases) > 0 && len(payloadBases) > 0 && !setsIntersect(headerBases, payloadBases) {
			signals = append(signals, NewSignal(
				"ACCEPT_LANGUAGE_LIST_MISMATCH", 8,
				"Accept-Language header is inconsistent with navigator.languages.",
			))
		}
	}

	hints := payload.ClientHints
	if hints != nil && hints.Mobile != nil {
		headerMobile := d.Headers["sec-ch-ua-mobile"]
		if headerMobile == "?0" || headerMobile == "?1" {
			if (headerMobile == "?1") != *hints.Mobile {
				signals = append(signals, NewSignal(
					"CH_MOBILE_MISMATCH", 20,
					"sec-ch-ua-mobile header does not match payload client hints.",
				))
			}
		}
	}

	if hints != nil && hints.Platform != "" {
		if headerPlatform := d.Headers["sec-ch-ua-platform"]; headerPlatform != "" {
			normalizedHeader := NormalizeText(trimQuotes(headerPlatform))
			if normalizedHeader != NormalizeText(hints.Platform) {
				signals = append(signals, NewSignal(
					"CH_PLATFORM_MISMATCH", 15,
					"sec-ch-ua-platform header does not match payload client hints.",
				))
			}
		}
	}

	headerChUA := d.Headers["sec-ch-ua"]
	if hints != nil && len(hints.Brands) > 0 {
		payloadBrands := make(map[string]struct{})
		for _, item := range hints.Brands {
			if item != "" {
				payloadBrands[NormalizeBrand(item)] = struct{}{}
			}
		}
		headerBrands := make(map[string]struct{})
		for item := range ParseSecChUABrands(headerChUA) {
			headerBrands[NormalizeBrand(item)] = struct{}{}
		}

		if len(payloadBrands) > 0 && len(headerBrands) > 0 {
			similarity := JaccardSimilarity(payloadBrands, headerBrands)
			if similarity < 0.5 {
				signals = append(signals, NewSignal(
					"CH_BRANDS_MISMATCH", 25,
					"sec-ch-ua brands do not match payload client hints brands.",
				))
			} else if similarity < 1.0 {
				signals = append(signals, NewSignal(
					"CH_BRANDS_PARTIAL_MISMATCH", 10,
					"sec-ch-ua brands partially mismatch payload client hints brands.",
				))
			}
		}
	}

	if IsChromiumUA(d.UA) && headerChUA == "" && hints != nil {
		signals = append(signals, NewSignal(
			"CH_HEADERS_MISSING", 8,
			"User-AgentData is present but sec-ch-ua headers are missing.",
		))
	}

	return signals
}

func setsIntersect(left, right map[string]struct{}) bool {
	for item := range left {
		if _, ok := right[item]; ok {
			return true
		}
	}
	return false
}

func trimQuotes(value string) string {
	return strings.Trim(strings.TrimSpace(value), `"`)
}
