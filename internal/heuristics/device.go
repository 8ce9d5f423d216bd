package heuristics

import (
	"strings"

	"github.com/axlrose023/fraud-checker/pkg/models"
)

// Viewport may legitimately exceed the reported screen a little (browser
// zoom, OS scaling). Signals only fire past these tolerances.
const (
	viewportWidthTolerance       = 120
	viewportHeightTolerance      = 160
	viewportAvailWidthTolerance  = 240
	viewportAvailHeightTolerance = 320
	availOverScreenTolerance     = 20
)

var androidPlatformMarkers = []string{"android", "linux"}
var iosPlatformMarkers = []string{"iphone", "ipad", "ipod", "macintel"}

// DeviceRule cross-checks the claimed device class against screen/viewport
// geometry, touch capability, and the three platform-family sources.
type DeviceRule struct{}

func (DeviceRule) Collect(payload *models.FraudCheckRequest, d Derived) []models.FraudSignal {
	var signals []models.FraudSignal

	tabletUA := IsTabletUA(d.UA)
	maxWidth := payload.Viewport.Width
	if payload.Screen.Width > maxWidth {
		maxWidth = payload.Screen.Width
	}
	if d.IsMobileUA && !tabletUA && maxWidth >= 1280 {
		signals = append(signals, NewSignal(
			"MOBILE_UA_DESKTOP_VIEWPORT", 30,
			"Mobile User-Agent with desktop-sized viewport/screen.",
		))
	}

	hints := payload.ClientHints
	if hints != nil && hints.Mobile != nil && *hints.Mobile != (d.IsMobileUA && !tabletUA) {
		signals = append(signals, NewSignal(
			"UA_CLIENT_HINTS_MISMATCH", 20,
			"Client hints mobile flag is inconsistent with User-Agent.",
		))
	}

	if hints != nil && hints.Platform != "" {
		uaFamily := platformFamilyFromUserAgent(d.UA)
		chFamily := platformFamilyFromClientHints(hints.Platform)
		if uaFamily != "" && chFamily != "" && uaFamily != chFamily {
			signals = append(signals, NewSignal(
				"UA_CH_PLATFORM_MISMATCH", 20,
				"Client hints platform is inconsistent with User-Agent platform.",
			))
		}

		// Android webviews commonly report navigator.platform as a bare
		// Linux string; that combination is exempt.
		navFamily := platformFamilyFromNavigator(d.Platform)
		exempt := uaFamily == "android" && navFamily == "linux" && chFamily == "android"
		if navFamily != "" && chFamily != "" && !exempt && navFamily != chFamily {
			signals = append(signals, NewSignal(
				"NAV_CH_PLATFORM_MISMATCH", 15,
				"Client hints platform is inconsistent with navigator.platform.",
			))
		}
	}

	if payload.Viewport.Width > payload.Screen.Width+viewportWidthTolerance {
		signals = append(signals, NewSignal(
			"VIEWPORT_EXCEEDS_SCREEN_WIDTH", 15,
			"Viewport width significantly exceeds screen width.",
		))
	}
	if payload.Viewport.Height > payload.Screen.Height+viewportHeightTolerance {
		signals = append(signals, NewSignal(
			"VIEWPORT_EXCEEDS_SCREEN_HEIGHT", 12,
			"Viewport height significantly exceeds screen height.",
		))
	}
	if payload.Screen.AvailWidth != nil && payload.Viewport.Width > *payload.Screen.AvailWidth+viewportAvailWidthTolerance {
		signals = append(signals, NewSignal(
			"VIEWPORT_EXCEEDS_SCREEN_AVAIL_WIDTH", 8,
			"Viewport width significantly exceeds screen.availWidth.",
		))
	}
	if payload.Screen.AvailHeight != nil && payload.Viewport.Height > *payload.Screen.AvailHeight+viewportAvailHeightTolerance {
		signals = append(signals, NewSignal(
			"VIEWPORT_EXCEEDS_SCREEN_AVAIL_HEIGHT", 8,
			"Viewport height significantly exceeds screen.availHeight.",
		))
	}

	if payload.Screen.AvailWidth != nil && *payload.Screen.AvailWidth > payload.Screen.Width+availOverScreenTolerance {
		signals = append(signals, NewSignal(
			"SCREEN_AVAIL_WIDTH_INVALID", 12,
			"screen.availWidth is larger than screen.width.",
		))
	}
	if payload.Screen.AvailHeight != nil && *payload.Screen.AvailHeight > payload.Screen.Height+availOverScreenTolerance {
		signals = append(signals, NewSignal(
			"SCREEN_AVAIL_HEIGHT_INVALID", 12,
			"screen.availHeight is larger than screen.height.",
		))
	}

	if payload.Screen.PixelRatio != nil && *payload.Screen.PixelRatio > 5 {
		signals = append(signals, NewSignal(
			"UNUSUAL_PIXEL_RATIO", 10,
			"Reported device pixel ratio is unusually high.",
		))
	}

	if d.IsMobileUA && payload.Navigator.MaxTouchPoints != nil && *payload.Navigator.MaxTouchPoints == 0 {
		signals = append(signals, NewSignal(
			"MOBILE_UA_ZERO_TOUCH_POINTS", 15,
			"Mobile User-Agent reports zero touch points.",
		))
	}
	if !d.IsMobileUA && payload.Navigator.MaxTouchPoints != nil && *payload.Navigator.MaxTouchPoints >= 10 {
		signals = append(signals, NewSignal(
			"DESKTOP_UA_HIGH_TOUCH_POINTS", 8,
			"Desktop User-Agent reports unusually high touch points.",
		))
	}

	if !d.IsMobileUA && payload.Viewport.Width <= 420 && payload.Viewport.Height <= 420 {
		signals = append(signals, NewSignal(
			"TINY_VIEWPORT_DESKTOP", 6,
			"Desktop-like UA with an unusually small viewport.",
		))
	}

	signals = append(signals, uaPlatformMismatches(d.UA, d.Platform)...)

	return signals
}

// uaPlatformMismatches compares the family claimed by the UA string against
// navigator.platform, one signal per disagreeing family.
func uaPlatformMismatches(ua, platform string) []models.FraudSignal {
	if platform == "" {
		return nil
	}
	var signals []models.FraudSignal

	if isAndroidUA(ua) && !containsAny(platform, androidPlatformMarkers) {
		signals = append(signals, NewSignal(
			"UA_PLATFORM_MISMATCH_ANDROID", 15,
			"UA claims Android but navigator.platform differs.",
		))
	}
	if isIOSUA(ua) && !containsAny(platform, iosPlatformMarkers) {
		signals = append(signals, NewSignal(
			"UA_PLATFORM_MISMATCH_IOS", 15,
			"UA claims iOS but navigator.platform differs.",
		))
	}
	if strings.Contains(ua, "windows") && !strings.Contains(platform, "win") {
		signals = append(signals, NewSignal(
			"UA_PLATFORM_MISMATCH_WINDOWS", 15,
			"UA claims Windows but navigator.platform differs.",
		))
	}
	if isDesktopMacUA(ua) && !strings.Contains(platform, "mac") {
		signals = append(signals, NewSignal(
			"UA_PLATFORM_MISMATCH_MAC", 15,
			"UA claims desktop macOS but navigator.platform differs.",
		))
	}
	if strings.Contains(ua, "linux") && !isAndroidUA(ua) &&
		!strings.Contains(platform, "linux") && !strings.Contains(platform, "x11") {
		signals = append(signals, NewSignal(
			"UA_PLATFORM_MISMATCH_LINUX", 15,
			"UA claims Linux but navigator.platform differs.",
		))
	}

	return signals
}
