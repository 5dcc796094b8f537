// Package config builds an immutable configuration snapshot eagerly at
// startup from environment variables, following the teacher's
// internal/config convention of typed accessors over os.Getenv rather
// than a reflection-based decoder.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/arbengine/arbengine/internal/errkind"
)

// Config is the fully-resolved, read-only process configuration. It is
// built once in main and passed explicitly into constructors; no
// package-level singleton is kept.
type Config struct {
	LogLevel            string
	RequireSecrets      bool
	SecretsCacheTTL     time.Duration
	EnabledServices     []string
	FrictionPackPaths   []string
	AllowedOrigins      []string

	VenueA VenueAConfig
	VenueB VenueBConfig

	PostgresDSN string
	RedisAddr   string

	MinJaccard           float64
	TimeWindowTolerance  time.Duration
	LLMMinScore          float64
	LLMPrimaryRPM        int
	LLMFallbackRPM       int
	LLMPrimaryBaseURL    string
	LLMPrimaryModel      string
	LLMPrimaryCostPerTok float64
	LLMFallbackBaseURL   string
	LLMFallbackModel     string
	LLMFallbackCostPerTok float64

	MinEdgeCents         float64
	MinHedgeProbability  float64
	LeadLagWindowMinutes int
	LeadLagBarSeconds    int
	LeadLagMaxLagBars    int
	StabilityWindow      int
	MinCorrelation       float64

	HedgeCompletionBudget time.Duration
	MaxExecutionAttempts  int
	OrderExpirySeconds    int
	TokenRefreshSlack     time.Duration

	VenueCapUSD         float64
	PerContractLimitUSD float64
	MaxConcurrentPairs  int

	HTTPRequestTimeout time.Duration

	APIAddr     string
	MetricsAddr string
}

// VenueAConfig holds venue A (signed-order CLOB) credentials and
// endpoints.
type VenueAConfig struct {
	BaseURL       string
	WSURL         string
	PrivateKeyHex string
	ChainID       int64
}

// VenueBConfig holds venue B (session-token) credentials and
// endpoints.
type VenueBConfig struct {
	BaseURL  string
	WSURL    string
	Email    string
	Password string
}

// Load builds a Config from the process environment. It returns an
// error classified as fatal config when REQUIRE_SECRETS is set and a
// required secret is missing.
func Load() (Config, error) {
	c := Config{
		LogLevel:              getenv("LOG_LEVEL", "info"),
		RequireSecrets:        getenvBool("REQUIRE_SECRETS", false),
		SecretsCacheTTL:       getenvDuration("SECRETS_CACHE_TTL_SECONDS", 300*time.Second, true),
		EnabledServices:       getenvList("ENABLED_SERVICES", []string{"ingest", "match", "signal", "execute"}),
		FrictionPackPaths:     getenvList("FRICTION_PACK_PATHS", nil),
		AllowedOrigins:        getenvList("ALLOWED_ORIGINS", []string{"*"}),
		PostgresDSN:           getenv("POSTGRES_DSN", ""),
		RedisAddr:             getenv("REDIS_ADDR", "localhost:6379"),
		MinJaccard:            getenvFloat("MATCHING_MIN_JACCARD", 0.3),
		TimeWindowTolerance:   getenvDuration("MATCHING_TIME_WINDOW_TOLERANCE_HOURS", 24*time.Hour, false) ,
		LLMMinScore:           getenvFloat("LLM_MIN_SCORE", 0.92),
		LLMPrimaryRPM:         getenvInt("LLM_PRIMARY_RPM", 60),
		LLMFallbackRPM:        getenvInt("LLM_FALLBACK_RPM", 500),
		LLMPrimaryBaseURL:     getenv("LLM_PRIMARY_BASE_URL", ""),
		LLMPrimaryModel:       getenv("LLM_PRIMARY_MODEL", "gpt-4o-mini"),
		LLMPrimaryCostPerTok:  getenvFloat("LLM_PRIMARY_COST_PER_TOKEN", 0.000002),
		LLMFallbackBaseURL:    getenv("LLM_FALLBACK_BASE_URL", ""),
		LLMFallbackModel:      getenv("LLM_FALLBACK_MODEL", "gpt-3.5-turbo"),
		LLMFallbackCostPerTok: getenvFloat("LLM_FALLBACK_COST_PER_TOKEN", 0.0000005),
		MinEdgeCents:          getenvFloat("SIGNAL_MIN_EDGE_CENTS", 2.5),
		MinHedgeProbability:   getenvFloat("SIGNAL_MIN_HEDGE_PROBABILITY", 0.99),
		LeadLagWindowMinutes:  getenvInt("LEADLAG_WINDOW_MINUTES", 10),
		LeadLagBarSeconds:     getenvInt("LEADLAG_BAR_INTERVAL_SECONDS", 5),
		LeadLagMaxLagBars:     getenvInt("LEADLAG_MAX_LAG_BARS", 12),
		StabilityWindow:       getenvInt("LEADLAG_STABILITY_WINDOW", 4),
		MinCorrelation:        getenvFloat("LEADLAG_MIN_CORRELATION", 0.3),
		HedgeCompletionBudget: getenvDurationMillis("EXEC_HEDGE_COMPLETION_MS", 250*time.Millisecond),
		MaxExecutionAttempts:  getenvInt("EXEC_MAX_ATTEMPTS", 2),
		OrderExpirySeconds:    getenvInt("VENUE_A_ORDER_EXPIRY_SECONDS", 120),
		TokenRefreshSlack:     getenvDuration("VENUE_B_TOKEN_REFRESH_SLACK_SECONDS", 60*time.Second, true),
		VenueCapUSD:           getenvFloat("RISK_VENUE_CAP_USD", 5000),
		PerContractLimitUSD:   getenvFloat("RISK_PER_CONTRACT_LIMIT_USD", 250),
		MaxConcurrentPairs:    getenvInt("RISK_MAX_CONCURRENT_PAIRS", 5),
		HTTPRequestTimeout:    getenvDuration("HTTP_REQUEST_TIMEOUT_SECONDS", 10*time.Second, true),
		APIAddr:               getenv("API_ADDR", ":8081"),
		MetricsAddr:           getenv("METRICS_ADDR", ":9090"),
		VenueA: VenueAConfig{
			BaseURL:       getenv("VENUE_A_BASE_URL", ""),
			WSURL:         getenv("VENUE_A_WS_URL", ""),
			PrivateKeyHex: os.Getenv("VENUE_A_PRIVATE_KEY"),
			ChainID:       int64(getenvInt("VENUE_A_CHAIN_ID", 137)),
		},
		VenueB: VenueBConfig{
			BaseURL:  getenv("VENUE_B_BASE_URL", ""),
			WSURL:    getenv("VENUE_B_WS_URL", ""),
			Email:    os.Getenv("VENUE_B_EMAIL"),
			Password: os.Getenv("VENUE_B_PASSWORD"),
		},
	}

	if c.RequireSecrets {
		missing := []string{}
		if c.VenueA.PrivateKeyHex == "" {
			missing = append(missing, "VENUE_A_PRIVATE_KEY")
		}
		if c.VenueB.Email == "" || c.VenueB.Password == "" {
			missing = append(missing, "VENUE_B_EMAIL/VENUE_B_PASSWORD")
		}
		if len(missing) > 0 {
			return Config{}, errkind.New(errkind.KindFatalConfig, fmt.Errorf("missing required secrets: %s", strings.Join(missing, ", ")))
		}
	}

	return c, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// getenvDuration reads a duration. When seconds is true, the env value
// is interpreted as whole seconds; otherwise it's treated as hours,
// matching how each individual knob is documented in the config
// surface.
func getenvDuration(key string, def time.Duration, seconds bool) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if seconds {
		return time.Duration(n) * time.Second
	}
	return time.Duration(n) * time.Hour
}

func getenvDurationMillis(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(n) * time.Millisecond
}

func getenvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
