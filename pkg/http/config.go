package http

import "time"

// Config holds the HTTP server configuration
type Config struct {
	// Port is the HTTP server port
	Port int `json:"port" env:"HTTP_PORT" default:"8080"`

	// EnableMetrics determines if the metrics endpoint should be enabled
	EnableMetrics bool `json:"enable_metrics" env:"HTTP_ENABLE_METRICS" default:"true"`

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration `json:"read_timeout" env:"HTTP_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Pipeline runs block the handler, so this must cover a full
	// generation plus synthesis pass.
	WriteTimeout time.Duration `json:"write_timeout" env:"HTTP_WRITE_TIMEOUT" default:"120s"`

	// ShutdownTimeout is the maximum duration to wait for the server to shutdown
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" default:"5s"`
}

// DefaultConfig returns default configuration for the HTTP server
func DefaultConfig() *Config {
	return &Config{
		Port:            8080,
		EnableMetrics:   true,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    120 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}
