package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Queue    QueueConfig
	Silence  SilenceConfig
	Render   RenderConfig
	STT      STTConfig
	LLM      LLMConfig
	Editor   EditorConfig
	Tracing  TracingConfig
	Webhook  WebhookConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	MetricsPort     int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	JWTSecret       string
	RateLimitRPS    int
	RateLimitBurst  int
}

// WebhookConfig holds callback notification configuration. An empty URL
// disables webhook delivery.
type WebhookConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

// TracingConfig holds distributed tracing configuration
type TracingConfig struct {
	Enabled           bool
	CollectorEndpoint string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// SilenceConfig holds the tunables of the silence-boundary detection engine.
// Defaults reproduce the reference behavior; changing them changes which
// frames count as speech and therefore where sentences are cut.
type SilenceConfig struct {
	SpeechPercentile   float64 // percentile of RMS dB used as the speech level
	SilenceOffsetDB    float64 // dB below speech level considered silence
	ClipDeviationDB    float64 // local-vs-global deviation that triggers the video-level fallback
	PaddingSeconds     float64 // pad applied outward around detected speech
	FrameLength        int     // analysis frame length in samples
	HopLength          int     // analysis hop length in samples
	AnalysisSampleRate int     // audio is resampled to this rate before framing
}

// RenderConfig holds rendering configuration
type RenderConfig struct {
	FFmpegPath          string
	FFprobePath         string
	MeltPath            string
	TempDir             string
	ProxyHeight         int
	VideoCodec          string
	VideoPreset         string
	AudioCodec          string
	OverlayPolicy       string
	OverlayWindowFrames int
}

// STTConfig holds speech-to-text provider configuration
type STTConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	ModelID  string
	Timeout  time.Duration
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	ImageModel  string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// EditorConfig holds pipeline worker configuration
type EditorConfig struct {
	WorkerCount   int
	MaxConcurrent int
	CacheTTL      time.Duration
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")
	viper.SetDefault("server.jwtSecret", "")
	viper.SetDefault("server.metricsPort", 9090)
	viper.SetDefault("server.rateLimitRPS", 10)
	viper.SetDefault("server.rateLimitBurst", 20)

	// Webhook defaults
	viper.SetDefault("webhook.url", "")
	viper.SetDefault("webhook.secret", "")
	viper.SetDefault("webhook.timeout", "30s")

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.collectorEndpoint", "http://localhost:14268/api/traces")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "talkcut")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxConns", 25)
	viper.SetDefault("database.minConns", 5)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Storage defaults
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.accessKeyID", "minioadmin")
	viper.SetDefault("storage.secretAccessKey", "minioadmin")
	viper.SetDefault("storage.bucketName", "talkcut")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.useSSL", false)

	// Queue defaults
	viper.SetDefault("queue.host", "localhost")
	viper.SetDefault("queue.port", 5672)
	viper.SetDefault("queue.user", "guest")
	viper.SetDefault("queue.password", "guest")
	viper.SetDefault("queue.vhost", "/")

	// Silence detection defaults
	viper.SetDefault("silence.speechPercentile", 85.0)
	viper.SetDefault("silence.silenceOffsetDB", 15.0)
	viper.SetDefault("silence.clipDeviationDB", 5.0)
	viper.SetDefault("silence.paddingSeconds", 0.02)
	viper.SetDefault("silence.frameLength", 512)
	viper.SetDefault("silence.hopLength", 256)
	viper.SetDefault("silence.analysisSampleRate", 22050)

	// Render defaults
	viper.SetDefault("render.ffmpegPath", "ffmpeg")
	viper.SetDefault("render.ffprobePath", "ffprobe")
	viper.SetDefault("render.meltPath", "melt")
	viper.SetDefault("render.tempDir", "/tmp/talkcut")
	viper.SetDefault("render.proxyHeight", 240)
	viper.SetDefault("render.videoCodec", "libx264")
	viper.SetDefault("render.videoPreset", "fast")
	viper.SetDefault("render.audioCodec", "pcm_s16le")
	viper.SetDefault("render.overlayPolicy", "sentence-span")
	viper.SetDefault("render.overlayWindowFrames", 120)

	// STT defaults
	viper.SetDefault("stt.provider", "elevenlabs")
	viper.SetDefault("stt.baseURL", "https://api.elevenlabs.io")
	viper.SetDefault("stt.modelID", "scribe_v1")
	viper.SetDefault("stt.timeout", "10m")

	// LLM defaults
	viper.SetDefault("llm.baseURL", "https://openrouter.ai/api/v1")
	viper.SetDefault("llm.model", "anthropic/claude-sonnet-4.5")
	viper.SetDefault("llm.imageModel", "google/gemini-2.5-flash-image")
	viper.SetDefault("llm.temperature", 0.3)
	viper.SetDefault("llm.maxTokens", 4000)
	viper.SetDefault("llm.timeout", "90s")

	// Editor defaults
	viper.SetDefault("editor.workerCount", 2)
	viper.SetDefault("editor.maxConcurrent", 4)
	viper.SetDefault("editor.cacheTTL", "24h")
}
