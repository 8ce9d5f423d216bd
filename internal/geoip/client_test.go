package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axlrose023/fraud-checker/internal/config"
)

func geoConfig(baseURL string) config.FraudConfig {
	return config.FraudConfig{
		IPGeolocationEnabled:         true,
		IPGeolocationBaseURL:         baseURL,
		IPGeolocationTimeoutSeconds:  2,
		IPGeolocationCacheTTLSeconds: 3600,
	}
}

func TestNewClient_DisabledReturnsNil(t *testing.T) {
	cfg := geoConfig("https://ipapi.co")
	cfg.IPGeolocationEnabled = false
	assert.Nil(t, NewClient(cfg))
}

func TestClient_ResolveParsesProviderResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/203.0.113.9/json/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"country_code": "de",
			"org": "Hetzner Online Hosting GmbH",
			"timezone": "Europe/Berlin",
			"utc_offset": "+0200",
			"latitude": 52.52,
			"longitude": 13.405
		}`))
	}))
	defer server.Close()

	client := NewClient(geoConfig(server.URL))
	result := client.Resolve(context.Background(), "203.0.113.9")

	require.NotNil(t, result)
	assert.Equal(t, "DE", result.CountryISO)
	assert.True(t, result.IsHosting)
	assert.Equal(t, "Europe/Berlin", result.Timezone)
	require.NotNil(t, result.UTCOffsetMinutes)
	assert.Equal(t, 120, *result.UTCOffsetMinutes)
	require.NotNil(t, result.Latitude)
	assert.InDelta(t, 52.52, *result.Latitude, 0.001)
}

func TestClient_ResolveToleratesStringCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"country_code": "FR",
			"timezone": "Europe/Paris",
			"latitude": "48.8566",
			"longitude": "not-a-number"
		}`))
	}))
	defer server.Close()

	client := NewClient(geoConfig(server.URL))
	result := client.Resolve(context.Background(), "203.0.113.9")

	require.NotNil(t, result, "a malformed coordinate must not discard the whole result")
	assert.Equal(t, "FR", result.CountryISO)
	assert.Equal(t, "Europe/Paris", result.Timezone)
	require.NotNil(t, result.Latitude)
	assert.InDelta(t, 48.8566, *result.Latitude, 0.001)
	assert.Nil(t, result.Longitude)
}

func TestClient_ProviderErrorYieldsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error": true, "reason": "Reserved IP Address"}`))
	}))
	defer server.Close()

	client := NewClient(geoConfig(server.URL))
	assert.Nil(t, client.Resolve(context.Background(), "10.0.0.1"))
}

func TestClient_HTTPErrorYieldsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(geoConfig(server.URL))
	assert.Nil(t, client.Resolve(context.Background(), "203.0.113.9"))
}

func TestClient_CachesSuccessfulLookups(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"country_code": "US", "utc_offset": "-0500"}`))
	}))
	defer server.Close()

	client := NewClient(geoConfig(server.URL))
	first := client.Resolve(context.Background(), "203.0.113.9")
	second := client.Resolve(context.Background(), "203.0.113.9")

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "second lookup must be served from cache")
	require.NotNil(t, first.UTCOffsetMinutes)
	assert.Equal(t, -300, *first.UTCOffsetMinutes)
}

func TestClient_EmptyIPIsNil(t *testing.T) {
	client := NewClient(geoConfig("http://127.0.0.1:1"))
	assert.Nil(t, client.Resolve(context.Background(), ""))
}

func TestParseUTCOffset(t *testing.T) {
	cases := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"+0200", 120, true},
		{"-0500", -300, true},
		{"+0000", 0, true},
		{"+1400", 840, true},
		{"-1030", -630, true},
		{"+1500", 0, false}, // beyond the valid offset range
		{"+0260", 0, false}, // invalid minutes
		{"0200", 0, false},  // missing sign
		{"+2:00", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseUTCOffset(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("parseUTCOffset(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestLooksLikeHostingProvider(t *testing.T) {
	cases := []struct {
		org  string
		want bool
	}{
		{"Hetzner Online GmbH Datacenter", true},
		{"Amazon Cloud Services", true},
		{"NordVPN", true},
		{"Deutsche Telekom AG", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := looksLikeHostingProvider(tc.org); got != tc.want {
			t.Errorf("looksLikeHostingProvider(%q) = %v, want %v", tc.org, got, tc.want)
		}
	}
}
