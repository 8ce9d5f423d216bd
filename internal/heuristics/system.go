package heuristics

import (
	"strings"

	"github.com/axlrose023/fraud-checker/pkg/models"
)

var softwareRendererMarkers = []string{"swiftshader", "llvmpipe", "software"}

// SystemRule inspects hardware-shaped fields: CPU cores, device memory,
// plugin counts, and software WebGL renderers typical of virtualized or
// headless environments.
type SystemRule struct{}

func (SystemRule) Collect(payload *models.FraudCheckRequest, d Derived) []models.FraudSignal {
	var signals []models.FraudSignal

	if payload.Navigator.HardwareConcurrency != nil && *payload.Navigator.HardwareConcurrency <= 1 {
		signals = append(signals, NewSignal(
			"LOW_CPU_CORE_COUNT", 8,
			"Very low CPU core count for modern browsers.",
		))
	}

	if d.IsDesktopUA && payload.Navigator.DeviceMemory != nil && *payload.Navigator.DeviceMemory <= 0.5 {
		signals = append(signals, NewSignal(
			"LOW_DEVICE_MEMORY_DESKTOP", 10,
			"Desktop-like browser with very low device memory.",
		))
	}

	if d.IsDesktopUA && payload.Navigator.PluginsCount != nil &&
		*payload.Navigator.PluginsCount == 0 && IsChromiumUA(d.UA) {
		signals = append(signals, NewSignal(
			"ZERO_PLUGINS_DESKTOP", 12,
			"Desktop browser reports zero plugins.",
		))
	}

	if payload.WebGL != nil && payload.WebGL.Renderer != "" {
		renderer := strings.ToLower(payload.WebGL.Renderer)
		if containsAny(renderer, softwareRendererMarkers) {
			signals = append(signals, NewSignal(
				"SOFTWARE_WEBGL_RENDERER", 25,
				"WebGL renderer indicates software rendering/emulation.",
			))
		}
	}

	return signals
}
