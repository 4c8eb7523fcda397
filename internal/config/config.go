package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	AI            AIConfig            `yaml:"ai"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Synthesis     SynthesisConfig     `yaml:"synthesis"`
	Assistant     AssistantConfig     `yaml:"assistant"`
	Log           LogConfig           `yaml:"log"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
	Security      SecurityConfig      `yaml:"security"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type AIConfig struct {
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
}

// OpenRouterConfig points the generation/sentiment client at any
// chat-completions compatible endpoint.
type OpenRouterConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

type TranscriptionConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
}

type SynthesisConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	DefaultVoice string        `yaml:"default_voice"`
	Volume       string        `yaml:"volume"`
	Timeout      time.Duration `yaml:"timeout"`
}

// AssistantConfig holds the behavior knobs of the answering pipeline.
// The two thinking-phrase probabilities are intentionally separate: the
// call path and the message path inject at different rates.
type AssistantConfig struct {
	ThinkingProbabilityCall    float64 `yaml:"thinking_probability_call"`
	ThinkingProbabilityMessage float64 `yaml:"thinking_probability_message"`
	DefaultGreeting            string  `yaml:"default_greeting"`
	Dialect                    string  `yaml:"dialect"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json, text
	Output     string `yaml:"output"` // stdout, file, both
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"` // MB
	MaxAge     int    `yaml:"max_age"`  // days
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

type MonitoringConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MetricsPath string        `yaml:"metrics_path"`
	Tracing     TracingConfig `yaml:"tracing"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"` // OTLP gRPC endpoint, e.g. otel-collector:4317
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
	ServiceName string  `yaml:"service_name"`
}

type SecurityConfig struct {
	CORS         CORSConfig         `yaml:"cors"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

type RateLimitingConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

func Load() *Config {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(err)
	}
	return &config
}

// GetDefaultConfig returns the built-in defaults.
func GetDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Password:        "password",
			Name:            "wakeel",
			MaxOpenConns:    100,
			MaxIdleConns:    10,
			ConnMaxLifetime: 3600 * time.Second,
		},
		AI: AIConfig{
			OpenRouter: OpenRouterConfig{
				BaseURL:     "https://openrouter.ai/api/v1",
				Model:       "anthropic/claude-3-sonnet",
				Temperature: 0.8,
				MaxTokens:   500,
				Timeout:     30 * time.Second,
			},
		},
		Transcription: TranscriptionConfig{
			BaseURL:  "http://localhost:9100",
			Language: "ar",
			Timeout:  20 * time.Second,
		},
		Synthesis: SynthesisConfig{
			BaseURL:      "http://localhost:9200",
			DefaultVoice: "ar-EG-SalmaNeural",
			Volume:       "+0%",
			Timeout:      20 * time.Second,
		},
		Assistant: AssistantConfig{
			ThinkingProbabilityCall:    0.2,
			ThinkingProbabilityMessage: 0.3,
			DefaultGreeting:            "مرحباً",
			Dialect:                    "مصرية عامية",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			Output:     "both",
			FilePath:   "./logs/wakeel.log",
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
			Compress:   true,
		},
		Monitoring: MonitoringConfig{
			Enabled:     true,
			MetricsPath: "/metrics",
			Tracing: TracingConfig{
				Enabled:     false,
				Endpoint:    "http://localhost:4317",
				Insecure:    true,
				SampleRatio: 0.1,
				ServiceName: "wakeel",
			},
		},
		Security: SecurityConfig{
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE"},
				AllowedHeaders: []string{"*"},
			},
			RateLimiting: RateLimitingConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             20,
			},
		},
	}
}
