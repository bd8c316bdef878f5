package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"demovoice-server/pkg/errors"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config represents the complete application configuration
type Config struct {
	HTTP       HTTPConfig       `json:"http"`
	Logging    LoggingConfig    `json:"logging"`
	Generation GenerationConfig `json:"generation"`
	Speech     SpeechConfig     `json:"speech"`
	Recording  RecordingConfig  `json:"recording"`
	Messaging  MessagingConfig  `json:"messaging"`
}

// HTTPConfig holds the HTTP server configuration
type HTTPConfig struct {
	Port          int           `json:"port" env:"HTTP_PORT" default:"8080"`
	ReadTimeout   time.Duration `json:"read_timeout" env:"HTTP_READ_TIMEOUT" default:"30s"`
	WriteTimeout  time.Duration `json:"write_timeout" env:"HTTP_WRITE_TIMEOUT" default:"120s"`
	EnableMetrics bool          `json:"enable_metrics" env:"HTTP_ENABLE_METRICS" default:"true"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level" env:"LOG_LEVEL" default:"info"`
	Format string `json:"format" env:"LOG_FORMAT" default:"text"`
}

// GenerationConfig holds text-generation (Gemini) configuration
type GenerationConfig struct {
	APIKey  string        `json:"-" env:"GEMINI_API_KEY"`
	Model   string        `json:"model" env:"GENERATION_MODEL" default:"gemini-2.5-flash-lite"`
	Timeout time.Duration `json:"timeout" env:"GENERATION_TIMEOUT" default:"60s"`
}

// SpeechConfig holds speech-synthesis (Deepgram TTS) configuration
type SpeechConfig struct {
	APIKey     string `json:"-" env:"DEEPGRAM_API_KEY"`
	VoiceModel string `json:"voice_model" env:"SPEECH_VOICE_MODEL" default:"aura-2-odysseus-en"`
	Encoding   string `json:"encoding" env:"SPEECH_ENCODING" default:"mp3"`
	BitRate    int    `json:"bit_rate" env:"SPEECH_BIT_RATE" default:"32000"`

	// Chunking and retry policy
	ChunkSize      int           `json:"chunk_size" env:"SPEECH_CHUNK_SIZE" default:"1500"`
	MaxRetries     int           `json:"max_retries" env:"SPEECH_MAX_RETRIES" default:"3"`
	RetryDelay     time.Duration `json:"retry_delay" env:"SPEECH_RETRY_DELAY" default:"2s"`
	ConnectTimeout time.Duration `json:"connect_timeout" env:"SPEECH_CONNECT_TIMEOUT" default:"10s"`
	ReadTimeout    time.Duration `json:"read_timeout" env:"SPEECH_READ_TIMEOUT" default:"45s"`
	ProbeTimeout   time.Duration `json:"probe_timeout" env:"SPEECH_PROBE_TIMEOUT" default:"5s"`
}

// RecordingConfig holds output file configuration
type RecordingConfig struct {
	OutputDir string `json:"output_dir" env:"RECORDINGS_DIR" default:"./recordings"`
}

// MessagingConfig holds AMQP result-publishing configuration
type MessagingConfig struct {
	URL       string `json:"-" env:"AMQP_URL"`
	QueueName string `json:"queue_name" env:"AMQP_QUEUE_NAME"`
}

// Enabled reports whether AMQP publishing is configured
func (m *MessagingConfig) Enabled() bool {
	return m.URL != "" && m.QueueName != ""
}

// Load loads the application configuration from environment variables,
// attempting to locate a .env file first
func Load(logger *logrus.Logger) (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		logger.WithError(err).Warn("Failed to get current working directory")
		wd = "unknown"
	}

	// Define possible locations for .env file
	possibleEnvFiles := []string{
		".env",
		"../.env",
		filepath.Join(wd, ".env"),
	}

	var loadedFrom string
	for _, envFile := range possibleEnvFiles {
		if _, statErr := os.Stat(envFile); statErr == nil {
			if loadErr := godotenv.Load(envFile); loadErr == nil {
				loadedFrom, _ = filepath.Abs(envFile)
				break
			}
		}
	}

	if loadedFrom != "" {
		logger.WithFields(logrus.Fields{
			"working_dir": wd,
			"path":        loadedFrom,
		}).Info("Successfully loaded .env file")
	} else {
		logger.WithField("working_dir", wd).Warn("No .env file found, using environment variables only")
	}

	config := &Config{}

	loadHTTPConfig(&config.HTTP)
	loadLoggingConfig(&config.Logging)
	loadGenerationConfig(&config.Generation)
	loadSpeechConfig(&config.Speech)
	loadRecordingConfig(&config.Recording)
	loadMessagingConfig(&config.Messaging)

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return config, nil
}

// Validate checks configuration invariants that would otherwise surface
// as obscure runtime failures
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return errors.New("HTTP port must be between 1 and 65535").WithField("port", c.HTTP.Port)
	}
	if c.Speech.ChunkSize <= 0 {
		return errors.New("speech chunk size must be positive").WithField("chunk_size", c.Speech.ChunkSize)
	}
	if c.Speech.MaxRetries <= 0 {
		return errors.New("speech max retries must be positive").WithField("max_retries", c.Speech.MaxRetries)
	}
	if c.Recording.OutputDir == "" {
		return errors.New("recordings output directory must not be empty")
	}
	return nil
}

func loadHTTPConfig(cfg *HTTPConfig) {
	cfg.Port = getEnvInt("HTTP_PORT", 8080)
	cfg.ReadTimeout = getEnvDuration("HTTP_READ_TIMEOUT", 30*time.Second)
	cfg.WriteTimeout = getEnvDuration("HTTP_WRITE_TIMEOUT", 120*time.Second)
	cfg.EnableMetrics = getEnvBool("HTTP_ENABLE_METRICS", true)
}

func loadLoggingConfig(cfg *LoggingConfig) {
	cfg.Level = getEnv("LOG_LEVEL", "info")
	cfg.Format = getEnv("LOG_FORMAT", "text")
}

func loadGenerationConfig(cfg *GenerationConfig) {
	cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	cfg.Model = getEnv("GENERATION_MODEL", "gemini-2.5-flash-lite")
	cfg.Timeout = getEnvDuration("GENERATION_TIMEOUT", 60*time.Second)
}

func loadSpeechConfig(cfg *SpeechConfig) {
	cfg.APIKey = os.Getenv("DEEPGRAM_API_KEY")
	cfg.VoiceModel = getEnv("SPEECH_VOICE_MODEL", "aura-2-odysseus-en")
	cfg.Encoding = getEnv("SPEECH_ENCODING", "mp3")
	cfg.BitRate = getEnvInt("SPEECH_BIT_RATE", 32000)
	cfg.ChunkSize = getEnvInt("SPEECH_CHUNK_SIZE", 1500)
	cfg.MaxRetries = getEnvInt("SPEECH_MAX_RETRIES", 3)
	cfg.RetryDelay = getEnvDuration("SPEECH_RETRY_DELAY", 2*time.Second)
	cfg.ConnectTimeout = getEnvDuration("SPEECH_CONNECT_TIMEOUT", 10*time.Second)
	cfg.ReadTimeout = getEnvDuration("SPEECH_READ_TIMEOUT", 45*time.Second)
	cfg.ProbeTimeout = getEnvDuration("SPEECH_PROBE_TIMEOUT", 5*time.Second)
}

func loadRecordingConfig(cfg *RecordingConfig) {
	cfg.OutputDir = getEnv("RECORDINGS_DIR", "./recordings")
}

func loadMessagingConfig(cfg *MessagingConfig) {
	cfg.URL = os.Getenv("AMQP_URL")
	cfg.QueueName = os.Getenv("AMQP_QUEUE_NAME")
}

// Helper function to get an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Helper function to get a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	switch strings.ToLower(value) {
	case "true", "yes", "1", "on":
		return true
	case "false", "no", "0", "off":
		return false
	default:
		return defaultValue
	}
}

// Helper function to get an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// Helper function to get a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
