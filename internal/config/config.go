package config

import (
	"os"
	"strconv"
	"strings"
)

// Configuration is read from the environment with prefix APP__ and nested
// delimiter __ (APP__FRAUD__BLOCK_SCORE_THRESHOLD and friends). The database
// DSN is the conventional DATABASE_URL. Secrets have no fallback defaults.

const envPrefix = "APP__"

type APIConfig struct {
	Title        string
	Version      string
	Host         string
	Port         int
	AllowedHosts []string
	APIKey       string
}

type FraudConfig struct {
	BlockScoreThreshold  int
	ReviewScoreThreshold int
	TrustForwardedIP     bool

	RateLimitWindowSeconds    int
	RateLimitMaxRequestsPerIP int

	IPGeolocationEnabled         bool
	IPGeolocationBaseURL         string
	IPGeolocationTimeoutSeconds  float64
	IPGeolocationCacheTTLSeconds int

	TurnstileSiteKey             string
	TurnstileSecretKey           string
	TurnstileVerifyURL           string
	TurnstileJSURL               string
	TurnstileTimeoutSeconds      float64
	TurnstileChallengeTTLSeconds int
	TurnstileMaxAttempts         int

	FingerprintVelocityWindowSeconds       int
	FingerprintVelocityWarnThreshold       int
	FingerprintVelocityWarnWeight          int
	FingerprintVelocitySuspiciousThreshold int
	FingerprintVelocitySuspiciousWeight    int
	FingerprintVelocityCriticalThreshold   int
	FingerprintVelocityCriticalWeight      int

	BehaviorSimilarityHistorySize         int
	BehaviorSimilarityWindowSeconds       int
	BehaviorSimilarityTolerancePct        float64
	BehaviorSimilarityMatchRatio          float64
	BehaviorSimilarityWarnThreshold       int
	BehaviorSimilarityWarnWeight          int
	BehaviorSimilaritySuspiciousThreshold int
	BehaviorSimilaritySuspiciousWeight    int
}

type Config struct {
	Env         string
	API         APIConfig
	Fraud       FraudConfig
	DatabaseURL string
}

// Load builds the configuration from the current environment.
func Load() Config {
	return Config{
		Env: getStr("ENV", "local"),
		API: APIConfig{
			Title:        getStr("API__TITLE", "Fraud Checker API"),
			Version:      getStr("API__VERSION", "1.0.0"),
			Host:         getStr("API__HOST", "0.0.0.0"),
			Port:         getInt("API__PORT", 8000),
			AllowedHosts: getList("API__ALLOWED_HOSTS"),
			APIKey:       getStr("API__API_KEY", ""),
		},
		Fraud: FraudConfig{
			BlockScoreThreshold:  getInt("FRAUD__BLOCK_SCORE_THRESHOLD", 70),
			ReviewScoreThreshold: getInt("FRAUD__REVIEW_SCORE_THRESHOLD", 30),
			TrustForwardedIP:     getBool("FRAUD__TRUST_FORWARDED_IP", false),

			RateLimitWindowSeconds:    getInt("FRAUD__RATE_LIMIT_WINDOW_SECONDS", 60),
			RateLimitMaxRequestsPerIP: getInt("FRAUD__RATE_LIMIT_MAX_REQUESTS_PER_IP", 30),

			IPGeolocationEnabled:         getBool("FRAUD__IP_GEOLOCATION_ENABLED", true),
			IPGeolocationBaseURL:         getStr("FRAUD__IP_GEOLOCATION_BASE_URL", "https://ipapi.co"),
			IPGeolocationTimeoutSeconds:  getFloat("FRAUD__IP_GEOLOCATION_TIMEOUT_SECONDS", 2.0),
			IPGeolocationCacheTTLSeconds: getInt("FRAUD__IP_GEOLOCATION_CACHE_TTL_SECONDS", 3600),

			TurnstileSiteKey:             getStr("FRAUD__TURNSTILE_SITE_KEY", ""),
			TurnstileSecretKey:           getStr("FRAUD__TURNSTILE_SECRET_KEY", ""),
			TurnstileVerifyURL:           getStr("FRAUD__TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),
			TurnstileJSURL:               getStr("FRAUD__TURNSTILE_JS_URL", "https://challenges.cloudflare.com/turnstile/v0/api.js?render=explicit"),
			TurnstileTimeoutSeconds:      getFloat("FRAUD__TURNSTILE_TIMEOUT_SECONDS", 5.0),
			TurnstileChallengeTTLSeconds: getInt("FRAUD__TURNSTILE_CHALLENGE_TTL_SECONDS", 300),
			TurnstileMaxAttempts:         getInt("FRAUD__TURNSTILE_MAX_ATTEMPTS", 5),

			FingerprintVelocityWindowSeconds:       getInt("FRAUD__FINGERPRINT_VELOCITY_WINDOW_SECONDS", 600),
			FingerprintVelocityWarnThreshold:       getInt("FRAUD__FINGERPRINT_VELOCITY_WARN_THRESHOLD", 5),
			FingerprintVelocityWarnWeight:          getInt("FRAUD__FINGERPRINT_VELOCITY_WARN_WEIGHT", 10),
			FingerprintVelocitySuspiciousThreshold: getInt("FRAUD__FINGERPRINT_VELOCITY_SUSPICIOUS_THRESHOLD", 12),
			FingerprintVelocitySuspiciousWeight:    getInt("FRAUD__FINGERPRINT_VELOCITY_SUSPICIOUS_WEIGHT", 25),
			FingerprintVelocityCriticalThreshold:   getInt("FRAUD__FINGERPRINT_VELOCITY_CRITICAL_THRESHOLD", 30),
			FingerprintVelocityCriticalWeight:      getInt("FRAUD__FINGERPRINT_VELOCITY_CRITICAL_WEIGHT", 45),

			BehaviorSimilarityHistorySize:         getInt("FRAUD__BEHAVIOR_SIMILARITY_HISTORY_SIZE", 10),
			BehaviorSimilarityWindowSeconds:       getInt("FRAUD__BEHAVIOR_SIMILARITY_WINDOW_SECONDS", 1800),
			BehaviorSimilarityTolerancePct:        getFloat("FRAUD__BEHAVIOR_SIMILARITY_TOLERANCE_PCT", 0.1),
			BehaviorSimilarityMatchRatio:          getFloat("FRAUD__BEHAVIOR_SIMILARITY_MATCH_RATIO", 0.8),
			BehaviorSimilarityWarnThreshold:       getInt("FRAUD__BEHAVIOR_SIMILARITY_WARN_THRESHOLD", 2),
			BehaviorSimilarityWarnWeight:          getInt("FRAUD__BEHAVIOR_SIMILARITY_WARN_WEIGHT", 12),
			BehaviorSimilaritySuspiciousThreshold: getInt("FRAUD__BEHAVIOR_SIMILARITY_SUSPICIOUS_THRESHOLD", 4),
			BehaviorSimilaritySuspiciousWeight:    getInt("FRAUD__BEHAVIOR_SIMILARITY_SUSPICIOUS_WEIGHT", 25),
		},
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
}

func getStr(key, fallback string) string {
	if val := os.Getenv(envPrefix + key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(envPrefix + key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if val := os.Getenv(envPrefix + key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	val := os.Getenv(envPrefix + key)
	if val == "" {
		return fallback
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

func getList(key string) []string {
	val := os.Getenv(envPrefix + key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
