package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/axlrose023/fraud-checker/internal/config"
	"github.com/axlrose023/fraud-checker/pkg/models"
)

// hostingMarkers flag datacenter/VPN/proxy address space by substring match
// against the lowercased org string of the geolocation provider.
var hostingMarkers = []string{
	"hosting", "data center", "datacenter", "cloud", "colo", "vpn", "proxy",
}

const geoCacheMaxEntries = 4096

type cacheEntry struct {
	result    *models.IpGeoResult
	expiresAt time.Time
}

// Client resolves request IPs against an ipapi.co-compatible endpoint
// (GET {base}/{ip}/json/). Lookups are best-effort: any transport, decode,
// or provider error yields a nil result and the caller scores without geo
// context. Successful results are cached per IP with a TTL; failures are not,
// so a flapping provider gets retried on the next request.
type Client struct {
	baseURL  string
	cacheTTL time.Duration
	http     *http.Client

	mu    sync.Mutex
	cache map[string]cacheEntry
	now   func() time.Time
}

// NewClient builds a resolver from configuration. Returns nil when
// geolocation is disabled; the scoring pipeline treats a nil resolver as
// "no geo data".
func NewClient(cfg config.FraudConfig) *Client {
	if !cfg.IPGeolocationEnabled {
		return nil
	}
	timeout := time.Duration(cfg.IPGeolocationTimeoutSeconds * float64(time.Second))
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.IPGeolocationBaseURL, "/"),
		cacheTTL: time.Duration(cfg.IPGeolocationCacheTTLSeconds) * time.Second,
		http:     &http.Client{Timeout: timeout},
		cache:    make(map[string]cacheEntry),
		now:      time.Now,
	}
}

// providerResponse is the subset of the ipapi.co payload we consume.
// Coordinates arrive as numbers or as quoted strings depending on the
// provider, so they are coerced per field rather than typed strictly.
type providerResponse struct {
	Error       bool   `json:"error"`
	CountryCode string `json:"country_code"`
	Org         string `json:"org"`
	Timezone    string `json:"timezone"`
	UTCOffset   string `json:"utc_offset"`
	Latitude    any    `json:"latitude"`
	Longitude   any    `json:"longitude"`
}

// Resolve returns geolocation context for ip, or nil when unavailable.
func (c *Client) Resolve(ctx context.Context, ip string) *models.IpGeoResult {
	if c == nil || ip == "" {
		return nil
	}

	now := c.now()

	if c.cacheTTL > 0 {
		c.mu.Lock()
		if entry, ok := c.cache[ip]; ok && entry.expiresAt.After(now) {
			c.mu.Unlock()
			return entry.result
		}
		c.mu.Unlock()
	}

	result := c.lookup(ctx, ip)

	if result != nil && c.cacheTTL > 0 {
		c.mu.Lock()
		c.evictLocked(now)
		c.cache[ip] = cacheEntry{result: result, expiresAt: now.Add(c.cacheTTL)}
		c.mu.Unlock()
	}

	return result
}

// Caller holds the lock. Expired entries go first; if the cache is still at
// capacity, the single oldest entry is dropped.
func (c *Client) evictLocked(now time.Time) {
	if len(c.cache) < geoCacheMaxEntries {
		return
	}
	for ip, entry := range c.cache {
		if !entry.expiresAt.After(now) {
			delete(c.cache, ip)
		}
	}
	if len(c.cache) < geoCacheMaxEntries {
		return
	}
	var oldestIP string
	var oldestAt time.Time
	for ip, entry := range c.cache {
		if oldestIP == "" || entry.expiresAt.Before(oldestAt) {
			oldestIP = ip
			oldestAt = entry.expiresAt
		}
	}
	if oldestIP != "" {
		delete(c.cache, oldestIP)
	}
}

func (c *Client) lookup(ctx context.Context, ip string) *models.IpGeoResult {
	url := fmt.Sprintf("%s/%s/json/", c.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("IP geolocation lookup failed for %s: %v", ip, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("IP geolocation lookup for %s returned HTTP %d", ip, resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil
	}

	var parsed providerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Printf("IP geolocation response for %s is not valid JSON: %v", ip, err)
		return nil
	}
	if parsed.Error {
		return nil
	}

	result := &models.IpGeoResult{
		CountryISO: strings.ToUpper(strings.TrimSpace(parsed.CountryCode)),
		IsHosting:  looksLikeHostingProvider(parsed.Org),
		Timezone:   strings.TrimSpace(parsed.Timezone),
	}
	if offset, ok := parseUTCOffset(parsed.UTCOffset); ok {
		result.UTCOffsetMinutes = &offset
	}
	if lat, ok := coerceFloat(parsed.Latitude); ok {
		result.Latitude = &lat
	}
	if lon, ok := coerceFloat(parsed.Longitude); ok {
		result.Longitude = &lon
	}
	return result
}

// coerceFloat accepts the coordinate shapes seen in the wild: a JSON number
// or a numeric string. Anything else means "no coordinate".
func coerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func looksLikeHostingProvider(org string) bool {
	lowered := strings.ToLower(org)
	for _, marker := range hostingMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// parseUTCOffset converts the provider's "+HHMM"/"-HHMM" form into signed
// minutes. Anything outside the valid offset range is rejected.
func parseUTCOffset(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if len(s) != 5 || (s[0] != '+' && s[0] != '-') {
		return 0, false
	}
	hours, err := strconv.Atoi(s[1:3])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(s[3:5])
	if err != nil {
		return 0, false
	}
	if hours > 14 || minutes >= 60 {
		return 0, false
	}
	total := hours*60 + minutes
	if s[0] == '-' {
		total = -total
	}
	return total, true
}
