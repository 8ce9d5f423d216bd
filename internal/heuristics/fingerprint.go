package heuristics

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/axlrose023/fraud-checker/pkg/models"
)

// BuildFingerprint derives the deterministic device/browser fingerprint: the
// first 24 hex characters of SHA-256 over a canonical JSON encoding of the
// identity-bearing payload fields. Maps marshal with lexicographically sorted
// keys and compact separators, so identical configurations always hash
// identically. The fingerprint identifies a configuration, not a user.
func BuildFingerprint(payload *models.FraudCheckRequest) string {
	languages := payload.Navigator.Languages
	if languages == nil {
		languages = []string{}
	}

	snapshot := map[string]any{
		"ua":        payload.Navigator.UserAgent,
		"platform":  nullable(payload.Navigator.Platform),
		"language":  nullable(payload.Navigator.Language),
		"languages": languages,
		"screen": map[string]any{
			"width":        payload.Screen.Width,
			"height":       payload.Screen.Height,
			"avail_width":  payload.Screen.AvailWidth,
			"avail_height": payload.Screen.AvailHeight,
			"color_depth":  payload.Screen.ColorDepth,
			"pixel_ratio":  payload.Screen.PixelRatio,
		},
		"viewport": map[string]any{
			"width":  payload.Viewport.Width,
			"height": payload.Viewport.Height,
		},
		"webgl": webglSnapshot(payload.WebGL),
		"hints": hintsSnapshot(payload.ClientHints),
	}

	// Map marshaling cannot fail for these value types.
	body, _ := json.Marshal(snapshot)
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])[:24]
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func webglSnapshot(webgl *models.WebGLSignals) any {
	if webgl == nil {
		return nil
	}
	return map[string]any{
		"vendor":   nullable(webgl.Vendor),
		"renderer": nullable(webgl.Renderer),
	}
}

func hintsSnapshot(hints *models.ClientHintsSignals) any {
	if hints == nil {
		return nil
	}
	brands := hints.Brands
	if brands == nil {
		brands = []string{}
	}
	return map[string]any{
		"mobile":   hints.Mobile,
		"platform": nullable(hints.Platform),
		"brands":   brands,
	}
}
