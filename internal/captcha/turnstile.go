package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/axlrose023/fraud-checker/internal/config"
	"github.com/axlrose023/fraud-checker/internal/fraud"
)

// Turnstile verifies Cloudflare Turnstile tokens against the siteverify
// endpoint. Transport and decode failures are reported as synthetic error
// codes (turnstile_network_error, turnstile_http_<status>) so the verify
// flow always gets a VerificationResult, never a Go error.
type Turnstile struct {
	siteKey   string
	secretKey string
	verifyURL string
	http      *http.Client
}

// NewTurnstile builds a verifier from configuration. An unconfigured
// verifier still satisfies the contract; Verify then fails closed with
// turnstile_not_configured.
func NewTurnstile(cfg config.FraudConfig) *Turnstile {
	timeout := time.Duration(cfg.TurnstileTimeoutSeconds * float64(time.Second))
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Turnstile{
		siteKey:   cfg.TurnstileSiteKey,
		secretKey: cfg.TurnstileSecretKey,
		verifyURL: cfg.TurnstileVerifyURL,
		http:      &http.Client{Timeout: timeout},
	}
}

func (t *Turnstile) Provider() string {
	return "turnstile"
}

func (t *Turnstile) SiteKey() string {
	return t.siteKey
}

func (t *Turnstile) IsConfigured() bool {
	return t.siteKey != "" && t.secretKey != ""
}

// siteverifyResponse tolerates both the documented "error-codes" key and the
// snake_case variant some proxies rewrite it to.
type siteverifyResponse struct {
	Success    bool            `json:"success"`
	ErrorCodes json.RawMessage `json:"error-codes"`
	ErrCodes   json.RawMessage `json:"error_codes"`
	Hostname   string          `json:"hostname"`
	Action     string          `json:"action"`
}

// Verify posts the token to siteverify and maps the outcome.
func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) fraud.VerificationResult {
	if !t.IsConfigured() {
		return fraud.VerificationResult{ErrorCodes: []string{"turnstile_not_configured"}}
	}

	form := url.Values{}
	form.Set("secret", t.secretKey)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fraud.VerificationResult{ErrorCodes: []string{"turnstile_network_error"}}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.http.Do(req)
	if err != nil {
		log.Printf("Turnstile siteverify request failed: %v", err)
		return fraud.VerificationResult{ErrorCodes: []string{"turnstile_network_error"}}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fraud.VerificationResult{ErrorCodes: []string{"turnstile_network_error"}}
	}

	var parsed siteverifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fraud.VerificationResult{
			ErrorCodes: []string{fmt.Sprintf("turnstile_http_%d", resp.StatusCode)},
		}
	}

	codes := decodeErrorCodes(parsed.ErrorCodes)
	if codes == nil {
		codes = decodeErrorCodes(parsed.ErrCodes)
	}
	if codes == nil {
		codes = []string{}
	}
	if !parsed.Success && len(codes) == 0 && resp.StatusCode != http.StatusOK {
		codes = []string{fmt.Sprintf("turnstile_http_%d", resp.StatusCode)}
	}

	return fraud.VerificationResult{
		Success:    parsed.Success,
		ErrorCodes: codes,
		Hostname:   parsed.Hostname,
		Action:     parsed.Action,
	}
}

// decodeErrorCodes accepts either a JSON array of strings or a bare string.
func decodeErrorCodes(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	return nil
}
