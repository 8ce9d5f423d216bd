package models

// Decision is the final verdict of a fraud check.
type Decision string

const (
	DecisionAllow  Decision = "allow"
	DecisionReview Decision = "review"
	DecisionBlock  Decision = "block"
)

// Severity buckets a signal weight into an operator-facing level.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// NavigatorSignals mirrors the browser navigator object as collected client-side.
type NavigatorSignals struct {
	UserAgent           string   `json:"user_agent" binding:"required,min=10,max=2048"`
	Language            string   `json:"language,omitempty" binding:"omitempty,max=32"`
	Languages           []string `json:"languages" binding:"max=20"`
	Platform            string   `json:"platform,omitempty" binding:"omitempty,max=128"`
	Webdriver           *bool    `json:"webdriver,omitempty"`
	HardwareConcurrency *int     `json:"hardware_concurrency,omitempty" binding:"omitnil,gte=1,lte=256"`
	DeviceMemory        *float64 `json:"device_memory,omitempty" binding:"omitnil,gte=0.25,lte=128"`
	MaxTouchPoints      *int     `json:"max_touch_points,omitempty" binding:"omitnil,gte=0,lte=64"`
	CookieEnabled       *bool    `json:"cookie_enabled,omitempty"`
	PluginsCount        *int     `json:"plugins_count,omitempty" binding:"omitnil,gte=0,lte=200"`
}

// ScreenSignals mirrors window.screen.
type ScreenSignals struct {
	Width       int      `json:"width" binding:"required,gte=1,lte=10000"`
	Height      int      `json:"height" binding:"required,gte=1,lte=10000"`
	AvailWidth  *int     `json:"avail_width,omitempty" binding:"omitnil,gte=1,lte=10000"`
	AvailHeight *int     `json:"avail_height,omitempty" binding:"omitnil,gte=1,lte=10000"`
	ColorDepth  *int     `json:"color_depth,omitempty" binding:"omitnil,gte=1,lte=64"`
	PixelRatio  *float64 `json:"pixel_ratio,omitempty" binding:"omitnil,gte=0.1,lte=10"`
}

// ViewportSignals is the inner window size.
type ViewportSignals struct {
	Width  int `json:"width" binding:"required,gte=1,lte=10000"`
	Height int `json:"height" binding:"required,gte=1,lte=10000"`
}

// WebGLSignals carries the unmasked WebGL vendor/renderer strings when the
// debug extension is available.
type WebGLSignals struct {
	Vendor   string `json:"vendor,omitempty" binding:"omitempty,max=256"`
	Renderer string `json:"renderer,omitempty" binding:"omitempty,max=512"`
}

// LocationSignals is the client-reported locale/geolocation snapshot.
type LocationSignals struct {
	CountryISO       string   `json:"country_iso,omitempty" binding:"omitempty,len=2,uppercase,alpha"`
	Timezone         string   `json:"timezone,omitempty" binding:"omitempty,max=128"`
	UTCOffsetMinutes *int     `json:"utc_offset_minutes,omitempty" binding:"omitnil,gte=-840,lte=840"`
	Latitude         *float64 `json:"latitude,omitempty" binding:"omitnil,gte=-90,lte=90"`
	Longitude        *float64 `json:"longitude,omitempty" binding:"omitnil,gte=-180,lte=180"`
	AccuracyMeters   *float64 `json:"accuracy_meters,omitempty" binding:"omitnil,gte=0,lte=50000"`
}

// ClientHintsSignals mirrors navigator.userAgentData.
type ClientHintsSignals struct {
	Mobile   *bool    `json:"mobile,omitempty"`
	Platform string   `json:"platform,omitempty" binding:"omitempty,max=64"`
	Brands   []string `json:"brands" binding:"max=20"`
}

// BehaviorSignals are the passive interaction counters accumulated by the
// collector script between page load and submission.
type BehaviorSignals struct {
	TimeOnPageMS   *int `json:"time_on_page_ms,omitempty" binding:"omitnil,gte=0,lte=3600000"`
	MaxScrollY     *int `json:"max_scroll_y,omitempty" binding:"omitnil,gte=0,lte=100000"`
	ScrollCount    *int `json:"scroll_count,omitempty" binding:"omitnil,gte=0,lte=100000"`
	DocumentHeight *int `json:"document_height,omitempty" binding:"omitnil,gte=0,lte=100000"`
	KeydownCount   *int `json:"keydown_count,omitempty" binding:"omitnil,gte=0,lte=100000"`
	MouseMoveCount *int `json:"mouse_move_count,omitempty" binding:"omitnil,gte=0,lte=1000000"`
	TouchCount     *int `json:"touch_count,omitempty" binding:"omitnil,gte=0,lte=100000"`
}

// FraudCheckRequest is the full telemetry payload evaluated by the scoring
// pipeline. Unknown fields are rejected at decode time (see the JSON decoder
// setup in cmd/engine).
type FraudCheckRequest struct {
	EventID          string              `json:"event_id,omitempty" binding:"omitempty,max=128"`
	SessionID        string              `json:"session_id,omitempty" binding:"omitempty,max=128"`
	ClientReportedIP string              `json:"client_reported_ip,omitempty" binding:"omitempty,max=64"`
	Navigator        NavigatorSignals    `json:"navigator" binding:"required"`
	Screen           ScreenSignals       `json:"screen" binding:"required"`
	Viewport         ViewportSignals     `json:"viewport" binding:"required"`
	WebGL            *WebGLSignals       `json:"webgl,omitempty"`
	Location         *LocationSignals    `json:"location,omitempty"`
	ClientHints      *ClientHintsSignals `json:"client_hints,omitempty"`
	Behavior         *BehaviorSignals    `json:"behavior,omitempty"`
	CollectedAt      *FlexTime           `json:"collected_at,omitempty"`
}

// CaptchaVerifyRequest is the second step of the two-step flow: the client
// exchanges a solved captcha token for an upgraded verdict.
type CaptchaVerifyRequest struct {
	ChallengeID  string `json:"challenge_id" binding:"required,min=16,max=256"`
	CaptchaToken string `json:"captcha_token" binding:"required,min=16,max=8192"`
}

// FraudSignal is a single weighted piece of evidence contributing to the risk
// score. Codes are the stable vocabulary; messages are for humans.
type FraudSignal struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Weight   int      `json:"weight"`
	Message  string   `json:"message"`
}

// FraudCheckResponse is the verdict returned by /fraud/check and
// /fraud/captcha/verify.
type FraudCheckResponse struct {
	Decision      Decision      `json:"decision"`
	RiskScore     int           `json:"risk_score"`
	FingerprintID string        `json:"fingerprint_id"`
	RequestIP     string        `json:"request_ip,omitempty"`
	IPCountryISO  string        `json:"ip_country_iso,omitempty"`
	Signals       []FraudSignal `json:"signals"`

	CaptchaRequired   bool     `json:"captcha_required"`
	CaptchaVerified   bool     `json:"captcha_verified"`
	CaptchaProvider   string   `json:"captcha_provider,omitempty"`
	CaptchaSiteKey    string   `json:"captcha_site_key,omitempty"`
	CaptchaErrorCodes []string `json:"captcha_error_codes"`
	ChallengeID       string   `json:"challenge_id,omitempty"`

	EvaluatedAt FlexTime `json:"evaluated_at"`
}

// Clone returns a deep copy. Challenge snapshots must not alias the live
// response: captcha fields are attached after the snapshot is taken.
func (r FraudCheckResponse) Clone() FraudCheckResponse {
	out := r
	out.Signals = make([]FraudSignal, len(r.Signals))
	copy(out.Signals, r.Signals)
	out.CaptchaErrorCodes = make([]string, len(r.CaptchaErrorCodes))
	copy(out.CaptchaErrorCodes, r.CaptchaErrorCodes)
	return out
}

// IpGeoResult is the contract returned by the IP-geolocation resolver.
type IpGeoResult struct {
	CountryISO       string   `json:"country_iso,omitempty"`
	IsHosting        bool     `json:"is_hosting"`
	Timezone         string   `json:"timezone,omitempty"`
	UTCOffsetMinutes *int     `json:"utc_offset_minutes,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
}
