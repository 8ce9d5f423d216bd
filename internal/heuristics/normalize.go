package heuristics

import (
	"net/netip"
	"regexp"
	"strings"
	"time"
)

// NormalizeIP takes the first comma-separated token (X-Forwarded-For style),
// trims it and returns the canonical textual form of the address, or "" when
// it does not parse as IPv4/IPv6.
func NormalizeIP(value string) string {
	if value == "" {
		return ""
	}
	candidate := value
	if idx := strings.Index(candidate, ","); idx >= 0 {
		candidate = candidate[:idx]
	}
	candidate = strings.TrimSpace(candidate)
	addr, err := netip.ParseAddr(candidate)
	if err != nil {
		return ""
	}
	return addr.String()
}

// NormalizeHeaders lowercases all keys into a new map. Header access inside
// the rule pack is case-insensitive.
func NormalizeHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[strings.ToLower(k)] = v
	}
	return out
}

// NormalizeText collapses whitespace runs, trims, and lowercases.
func NormalizeText(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

// LanguageBase strips the region subtag: "en-US" → "en".
func LanguageBase(language string) string {
	if idx := strings.Index(language, "-"); idx >= 0 {
		language = language[:idx]
	}
	return strings.ToLower(language)
}

// ExtractPrimaryLanguage returns the first Accept-Language entry without its
// quality parameters.
func ExtractPrimaryLanguage(acceptLanguage string) string {
	first := acceptLanguage
	if idx := strings.Index(first, ","); idx >= 0 {
		first = first[:idx]
	}
	first = strings.TrimSpace(first)
	if first == "" {
		return ""
	}
	if idx := strings.Index(first, ";"); idx >= 0 {
		first = first[:idx]
	}
	return strings.TrimSpace(first)
}

// ParseAcceptLanguage splits an Accept-Language header into its language
// tokens, preserving order and dropping quality parameters.
func ParseAcceptLanguage(header string) []string {
	if header == "" {
		return nil
	}
	var languages []string
	for _, token := range strings.Split(header, ",") {
		value := strings.TrimSpace(token)
		if value == "" {
			continue
		}
		if idx := strings.Index(value, ";"); idx >= 0 {
			value = strings.TrimSpace(value[:idx])
		}
		if value != "" {
			languages = append(languages, value)
		}
	}
	return languages
}

var secChUABrandRe = regexp.MustCompile(`"([^"]+)"\s*;\s*v\s*=\s*"?(\d+)"?`)

// ParseSecChUABrands extracts quoted brand names from a sec-ch-ua header
// value, e.g. `"Chromium";v="120", "Google Chrome";v="120"`.
func ParseSecChUABrands(value string) map[string]struct{} {
	brands := make(map[string]struct{})
	if value == "" {
		return brands
	}
	for _, match := range secChUABrandRe.FindAllStringSubmatch(value, -1) {
		brand := strings.TrimSpace(match[1])
		if brand != "" {
			brands[brand] = struct{}{}
		}
	}
	return brands
}

// NormalizeBrand collapses whitespace and lowercases a brand name so that
// payload brands and header brands compare structurally.
func NormalizeBrand(value string) string {
	return NormalizeText(value)
}

// JaccardSimilarity of two sets; two empty sets are defined as identical.
func JaccardSimilarity(left, right map[string]struct{}) float64 {
	if len(left) == 0 && len(right) == 0 {
		return 1.0
	}
	intersection := 0
	for item := range left {
		if _, ok := right[item]; ok {
			intersection++
		}
	}
	union := len(left) + len(right) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

// TimezoneOffsetMinutes returns the UTC offset of an IANA timezone at the
// given instant, or ok=false for unknown zones.
func TimezoneOffsetMinutes(name string, at time.Time) (int, bool) {
	loc, err := time.LoadLocation(name)
	if err != nil || name == "" {
		return 0, false
	}
	_, offsetSeconds := at.In(loc).Zone()
	return offsetSeconds / 60, true
}
