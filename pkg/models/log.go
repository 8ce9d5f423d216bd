package models

import (
	"encoding/json"
	"time"
)

// FraudCheckLog is one audit row: the evaluated request plus its verdict.
// Written best-effort after every check and verify; failures never affect the
// HTTP response.
type FraudCheckLog struct {
	ID              int64           `json:"id"`
	RequestIP       string          `json:"request_ip,omitempty"`
	IPCountryISO    string          `json:"ip_country_iso,omitempty"`
	FingerprintID   string          `json:"fingerprint_id"`
	Origin          string          `json:"origin,omitempty"`
	RequestPayload  json.RawMessage `json:"request_payload"`
	Decision        Decision        `json:"decision"`
	RiskScore       int             `json:"risk_score"`
	Signals         []FraudSignal   `json:"signals"`
	CaptchaRequired bool            `json:"captcha_required"`
	CaptchaVerified bool            `json:"captcha_verified"`
	ChallengeID     string          `json:"challenge_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// FraudCheckLogList is the paginated /fraud/logs response.
type FraudCheckLogList struct {
	Items    []FraudCheckLog `json:"items"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}
