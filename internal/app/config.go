package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cathcr/cathcr/internal/transcription"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	SentryDSN   string
	LogLevel    string

	// JWT Authentication (HS256 secret shared with the Supabase project)
	JWTSecret string

	// Transcription backends
	HuggingFaceAPIKey   string
	HuggingFaceURL      string
	OpenAIAPIKey        string
	WhisperModel        string
	LocalWhisperEnabled bool
	LocalWhisperURL     string

	// Fallback chain order for server-side backends. The local backend
	// never joins the primary chain regardless of this list.
	FallbackChain  []transcription.Backend
	BackendTimeout time.Duration

	// Batch reprocessing
	BatchGroupSize  int
	BatchGroupDelay time.Duration

	// Health monitoring
	HealthProbeInterval time.Duration
	HealthProbeTimeout  time.Duration

	// Categorization
	CategorizeModel string

	// Push notifications (APNs)
	APNsKeyPath    string
	APNsKeyID      string
	APNsTeamID     string
	APNsBundleID   string
	APNsProduction bool

	// Ops alerts
	DiscordWebhookURL string

	// Capture retention; zero disables the cleanup job.
	RetentionWindow time.Duration
}

func LoadConfigFromEnv() Config {
	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		SentryDSN:   getenv("SENTRY_DSN", ""),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		JWTSecret: os.Getenv("JWT_SECRET"), // Required - no fallback for security

		HuggingFaceAPIKey:   getenv("HUGGINGFACE_API_KEY", ""),
		HuggingFaceURL:      getenv("HUGGINGFACE_URL", ""),
		OpenAIAPIKey:        getenv("OPENAI_API_KEY", ""),
		WhisperModel:        getenv("OPENAI_WHISPER_MODEL", "whisper-1"),
		LocalWhisperEnabled: getenvBool("LOCAL_WHISPER_ENABLED", false),
		LocalWhisperURL:     getenv("LOCAL_WHISPER_URL", ""),

		FallbackChain:  parseFallbackChain(getenv("TRANSCRIPTION_FALLBACK_CHAIN", "hosted_open_model,commercial_api")),
		BackendTimeout: getenvDuration("BACKEND_TIMEOUT", 30*time.Second),

		BatchGroupSize:  getenvInt("BATCH_GROUP_SIZE", transcription.DefaultGroupSize),
		BatchGroupDelay: getenvDuration("BATCH_GROUP_DELAY", transcription.DefaultGroupDelay),

		HealthProbeInterval: getenvDuration("HEALTH_PROBE_INTERVAL", 60*time.Second),
		HealthProbeTimeout:  getenvDuration("HEALTH_PROBE_TIMEOUT", 5*time.Second),

		CategorizeModel: getenv("CATEGORIZE_MODEL", "gpt-4o-mini"),

		APNsKeyPath:    getenv("APNS_KEY_PATH", ""),
		APNsKeyID:      getenv("APNS_KEY_ID", ""),
		APNsTeamID:     getenv("APNS_TEAM_ID", ""),
		APNsBundleID:   getenv("APNS_BUNDLE_ID", ""),
		APNsProduction: getenvBool("APNS_PRODUCTION", false),

		DiscordWebhookURL: getenv("DISCORD_WEBHOOK_URL", ""),

		RetentionWindow: getenvDuration("CAPTURE_RETENTION", 0),
	}
}

// parseFallbackChain turns a comma-separated backend list into ordered
// Backend values, dropping anything unrecognized.
func parseFallbackChain(s string) []transcription.Backend {
	known := map[transcription.Backend]bool{
		transcription.BackendWebSpeech:            true,
		transcription.BackendHostedOpenModel:      true,
		transcription.BackendCommercialAPI:        true,
		transcription.BackendLocalHighPerformance: true,
	}
	var chain []transcription.Backend
	for _, part := range strings.Split(s, ",") {
		b := transcription.Backend(strings.TrimSpace(part))
		if known[b] {
			chain = append(chain, b)
		}
	}
	return chain
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
