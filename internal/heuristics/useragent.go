package heuristics

import "strings"

// User-Agent marker lists. All classifiers expect an already-lowercased UA
// string; the orchestrator lowercases once per request.

var mobileUAMarkers = []string{"android", "iphone", "ipad", "ipod", "mobile"}

var automationMarkers = []string{
	"headless",
	"phantomjs",
	"puppeteer",
	"playwright",
	"selenium",
	"webdriver",
}

var botUAMarkers = []string{"bot", "crawler", "spider", "scrapy", "curl", "wget"}

// Strong markers identify raw HTTP clients rather than browsers. A hit here
// dominates the check with a single high-weight signal.
var strongBotUAMarkers = []string{
	"curl/",
	"wget/",
	"python-requests",
	"go-http-client",
	"httpclient",
}

func containsAny(value string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(value, marker) {
			return true
		}
	}
	return false
}

// HasMobileUA reports whether the UA claims a mobile device.
func HasMobileUA(ua string) bool {
	return containsAny(ua, mobileUAMarkers)
}

func isAndroidUA(ua string) bool {
	return strings.Contains(ua, "android")
}

func isIOSUA(ua string) bool {
	return strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ipod")
}

func isDesktopMacUA(ua string) bool {
	return strings.Contains(ua, "macintosh")
}

// IsChromiumUA reports whether the UA belongs to the Chromium family,
// which is expected to send sec-ch-ua client hint headers.
func IsChromiumUA(ua string) bool {
	return containsAny(ua, []string{"chrome/", "chromium", "crios", "edg/", "opr/"})
}

// IsTabletUA treats iPads, explicit tablets, and Android without the mobile
// token as tablets.
func IsTabletUA(ua string) bool {
	if strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet") {
		return true
	}
	return strings.Contains(ua, "android") && !strings.Contains(ua, "mobile")
}

// Platform families are coarse buckets derived independently from the UA
// string, navigator.platform, and sec-ch-ua-platform. Disagreements between
// the three sources produce signals.

func platformFamilyFromUserAgent(ua string) string {
	switch {
	case strings.Contains(ua, "android"):
		return "android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ipod"):
		return "apple"
	case strings.Contains(ua, "windows"):
		return "windows"
	case strings.Contains(ua, "macintosh"):
		return "apple"
	case strings.Contains(ua, "cros"):
		return "chromeos"
	case strings.Contains(ua, "linux"):
		return "linux"
	}
	return ""
}

func platformFamilyFromNavigator(platform string) string {
	marker := strings.ToLower(platform)
	if marker == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(marker, "win"):
		return "windows"
	case strings.Contains(marker, "android"):
		return "android"
	case strings.Contains(marker, "cros"):
		return "chromeos"
	case strings.Contains(marker, "linux"), strings.Contains(marker, "x11"):
		return "linux"
	case strings.Contains(marker, "mac"), strings.Contains(marker, "iphone"),
		strings.Contains(marker, "ipad"), strings.Contains(marker, "ipod"):
		return "apple"
	}
	return ""
}

func platformFamilyFromClientHints(platform string) string {
	marker := strings.ToLower(strings.Trim(strings.TrimSpace(platform), `"`))
	switch marker {
	case "windows":
		return "windows"
	case "android":
		return "android"
	case "ios", "macos":
		return "apple"
	case "linux":
		return "linux"
	case "chrome os", "chromeos", "cros":
		return "chromeos"
	}
	return ""
}
