package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig is everything the server reads from the environment.
type AppConfig struct {
	Port     string
	GinMode  string
	LogLevel string

	PostgresURI string
	MongoURI    string
	MongoDB     string
	RedisAddr   string
	RabbitURI   string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	GeminiAPIKey    string
	GeminiLiveModel string
	GeminiBaseURL   string
	EmbeddingModel  string

	VertexProject  string
	VertexLocation string
	VertexModel    string

	GCSBucket string

	CORSOrigins []string

	QuestionDelay     time.Duration
	HeartbeatInterval time.Duration
	EventLogTTL       time.Duration

	TokenRatePerMinute int
	TranscribeWorkers  int
}

// Load reads AppConfig from the environment. Call godotenv.Load first if a
// .env file should be honoured.
func Load() AppConfig {
	return AppConfig{
		Port:     envOr("PORT", "8080"),
		GinMode:  envOr("GIN_MODE", "release"),
		LogLevel: os.Getenv("LOG_LEVEL"),

		PostgresURI: os.Getenv("POSTGRES_URI"),
		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDB:     envOr("MONGO_DB", "applymint"),
		RedisAddr:   firstEnv("REDIS_ADDR", "REDIS_URI", "REDIS_URL"),
		RabbitURI:   os.Getenv("RABBITMQ_URI"),

		JWTSecret:   os.Getenv("SUPABASE_JWT_SECRET"),
		JWTIssuer:   os.Getenv("SUPABASE_JWT_ISSUER"),
		JWTAudience: os.Getenv("SUPABASE_JWT_AUDIENCE"),

		GeminiAPIKey:    firstEnv("GEMINI_API_KEY", "GOOGLE_GENERATIVE_AI_API_KEY"),
		GeminiLiveModel: envOr("GEMINI_LIVE_MODEL", "models/gemini-2.0-flash-live-001"),
		GeminiBaseURL:   envOr("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		EmbeddingModel:  os.Getenv("GEMINI_EMBEDDING_MODEL"),

		VertexProject:  os.Getenv("VERTEX_PROJECT_ID"),
		VertexLocation: envOr("VERTEX_LOCATION", "us-central1"),
		VertexModel:    envOr("VERTEX_MODEL", "gemini-1.5-flash"),

		GCSBucket: os.Getenv("GCS_BUCKET"),

		CORSOrigins: splitList(envOr("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		QuestionDelay:     envDuration("STREAM_QUESTION_DELAY", 2*time.Second),
		HeartbeatInterval: envDuration("STREAM_HEARTBEAT_INTERVAL", 30*time.Second),
		EventLogTTL:       envDuration("EVENT_LOG_TTL", 7*24*time.Hour),

		TokenRatePerMinute: envInt("TOKEN_RATE_PER_MINUTE", 10),
		TranscribeWorkers:  envInt("TRANSCRIBE_WORKERS", 3),
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// envDuration accepts Go durations ("2s") or plain seconds ("30").
func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
