package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server" envconfig:"SERVER"`
	Security    SecurityConfig    `yaml:"security" envconfig:"SECURITY"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	WebSocket   WebSocketConfig   `yaml:"websocket" envconfig:"WEBSOCKET"`
	Sessions    SessionsConfig    `yaml:"sessions" envconfig:"SESSIONS"`
	Inference   InferenceConfig   `yaml:"inference" envconfig:"INFERENCE"`
	Export      ExportConfig      `yaml:"export" envconfig:"EXPORT"`
	Recognition RecognitionConfig `yaml:"recognition" envconfig:"RECOGNITION"`
	Sheets      SheetsConfig      `yaml:"sheets" envconfig:"SHEETS"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"90s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"75s"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"20971520"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"20"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"40"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// SessionsConfig bounds the in-memory session store
type SessionsConfig struct {
	MaxSessions   int           `yaml:"max_sessions" envconfig:"MAX_SESSIONS" default:"1000"`
	IdleTTL       time.Duration `yaml:"idle_ttl" envconfig:"IDLE_TTL" default:"2h"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SWEEP_INTERVAL" default:"5m"`
}

// InferenceConfig controls how recognized text is split into columns
type InferenceConfig struct {
	// Overflow is "merge" (mode column count, extras joined into the last
	// column) or "widen" (maximum column count, short rows padded)
	Overflow           string `yaml:"overflow" envconfig:"OVERFLOW" default:"merge"`
	HeaderFromFirstRow bool   `yaml:"header_from_first_row" envconfig:"HEADER_FROM_FIRST_ROW" default:"true"`
	CurrencySymbol     string `yaml:"currency_symbol" envconfig:"CURRENCY_SYMBOL" default:"$"`
	Delimiter          string `yaml:"delimiter" envconfig:"DELIMITER"`
}

// ExportConfig controls workbook naming and layout
type ExportConfig struct {
	BaseName        string `yaml:"base_name" envconfig:"BASE_NAME" default:"extracted_text"`
	SheetName       string `yaml:"sheet_name" envconfig:"SHEET_NAME" default:"Extracted Data"`
	IncludeMetadata bool   `yaml:"include_metadata" envconfig:"INCLUDE_METADATA" default:"true"`
	OutputDir       string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"."`
}

// RecognitionConfig configures the OCR and vision collaborators
type RecognitionConfig struct {
	Language      string        `yaml:"language" envconfig:"LANGUAGE" default:"eng"`
	VisionBaseURL string        `yaml:"vision_base_url" envconfig:"VISION_BASE_URL" default:"https://api.openai.com/v1"`
	VisionModel   string        `yaml:"vision_model" envconfig:"VISION_MODEL" default:"gpt-4o-mini"`
	VisionAPIKey  string        `yaml:"vision_api_key" envconfig:"VISION_API_KEY"`
	Timeout       time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"60s"`
}

// SheetsConfig configures the Google Sheets write target
type SheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	DefaultMode     string `yaml:"default_mode" envconfig:"DEFAULT_MODE" default:"append"`
}

// TelemetryConfig selects OpenTelemetry exporters
type TelemetryConfig struct {
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1.0"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envSet reports whether IMG2XLSX_<key> is present in the environment
func envSet(key string) bool {
	_, ok := os.LookupEnv(EnvPrefix + "_" + key)
	return ok
}

// mergeConfigs merges file config with env config. A value from the file is
// used unless the matching variable was set explicitly.
func mergeConfigs(fileConfig, envConfig Config) Config {
	str := func(dst *string, src, key string) {
		if src != "" && !envSet(key) {
			*dst = src
		}
	}
	dur := func(dst *time.Duration, src time.Duration, key string) {
		if src != 0 && !envSet(key) {
			*dst = src
		}
	}
	num := func(dst *int, src int, key string) {
		if src != 0 && !envSet(key) {
			*dst = src
		}
	}

	// Server config
	num(&envConfig.Server.Port, fileConfig.Server.Port, "SERVER_PORT")
	dur(&envConfig.Server.ReadTimeout, fileConfig.Server.ReadTimeout, "SERVER_READ_TIMEOUT")
	dur(&envConfig.Server.WriteTimeout, fileConfig.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT")
	dur(&envConfig.Server.IdleTimeout, fileConfig.Server.IdleTimeout, "SERVER_IDLE_TIMEOUT")
	dur(&envConfig.Server.ShutdownTimeout, fileConfig.Server.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT")
	dur(&envConfig.Server.RequestTimeout, fileConfig.Server.RequestTimeout, "SERVER_REQUEST_TIMEOUT")
	if fileConfig.Server.MaxUploadBytes > 0 && !envSet("SERVER_MAX_UPLOAD_BYTES") {
		envConfig.Server.MaxUploadBytes = fileConfig.Server.MaxUploadBytes
	}

	// Security config
	if len(fileConfig.Security.AllowedOrigins) > 0 && !envSet("SECURITY_ALLOWED_ORIGINS") {
		envConfig.Security.AllowedOrigins = fileConfig.Security.AllowedOrigins
	}
	if fileConfig.Security.RateLimit.RPS > 0 && !envSet("SECURITY_RATE_LIMIT_RPS") {
		envConfig.Security.RateLimit.RPS = fileConfig.Security.RateLimit.RPS
	}
	num(&envConfig.Security.RateLimit.Burst, fileConfig.Security.RateLimit.Burst, "SECURITY_RATE_LIMIT_BURST")

	// Logging config
	str(&envConfig.Logging.Level, fileConfig.Logging.Level, "LOGGING_LEVEL")
	str(&envConfig.Logging.Output, fileConfig.Logging.Output, "LOGGING_OUTPUT")
	str(&envConfig.Logging.FilePath, fileConfig.Logging.FilePath, "LOGGING_FILE_PATH")

	// Sessions config
	num(&envConfig.Sessions.MaxSessions, fileConfig.Sessions.MaxSessions, "SESSIONS_MAX_SESSIONS")
	dur(&envConfig.Sessions.IdleTTL, fileConfig.Sessions.IdleTTL, "SESSIONS_IDLE_TTL")
	dur(&envConfig.Sessions.SweepInterval, fileConfig.Sessions.SweepInterval, "SESSIONS_SWEEP_INTERVAL")

	// Inference config
	str(&envConfig.Inference.Overflow, fileConfig.Inference.Overflow, "INFERENCE_OVERFLOW")
	str(&envConfig.Inference.CurrencySymbol, fileConfig.Inference.CurrencySymbol, "INFERENCE_CURRENCY_SYMBOL")
	str(&envConfig.Inference.Delimiter, fileConfig.Inference.Delimiter, "INFERENCE_DELIMITER")

	// Export config
	str(&envConfig.Export.BaseName, fileConfig.Export.BaseName, "EXPORT_BASE_NAME")
	str(&envConfig.Export.SheetName, fileConfig.Export.SheetName, "EXPORT_SHEET_NAME")
	str(&envConfig.Export.OutputDir, fileConfig.Export.OutputDir, "EXPORT_OUTPUT_DIR")

	// Recognition config
	str(&envConfig.Recognition.Language, fileConfig.Recognition.Language, "RECOGNITION_LANGUAGE")
	str(&envConfig.Recognition.VisionBaseURL, fileConfig.Recognition.VisionBaseURL, "RECOGNITION_VISION_BASE_URL")
	str(&envConfig.Recognition.VisionModel, fileConfig.Recognition.VisionModel, "RECOGNITION_VISION_MODEL")
	str(&envConfig.Recognition.VisionAPIKey, fileConfig.Recognition.VisionAPIKey, "RECOGNITION_VISION_API_KEY")
	dur(&envConfig.Recognition.Timeout, fileConfig.Recognition.Timeout, "RECOGNITION_TIMEOUT")

	// Sheets config
	str(&envConfig.Sheets.CredentialsFile, fileConfig.Sheets.CredentialsFile, "SHEETS_CREDENTIALS_FILE")
	str(&envConfig.Sheets.DefaultMode, fileConfig.Sheets.DefaultMode, "SHEETS_DEFAULT_MODE")

	// Telemetry config
	str(&envConfig.Telemetry.MetricExporter, fileConfig.Telemetry.MetricExporter, "TELEMETRY_METRIC_EXPORTER")
	str(&envConfig.Telemetry.TraceExporter, fileConfig.Telemetry.TraceExporter, "TELEMETRY_TRACE_EXPORTER")
	str(&envConfig.Telemetry.Environment, fileConfig.Telemetry.Environment, "TELEMETRY_ENVIRONMENT")

	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive")
	}

	if c.Sessions.MaxSessions <= 0 {
		return fmt.Errorf("max sessions must be positive")
	}
	if c.Sessions.IdleTTL <= 0 || c.Sessions.SweepInterval <= 0 {
		return fmt.Errorf("session idle ttl and sweep interval must be positive")
	}

	switch strings.ToLower(c.Inference.Overflow) {
	case "merge", "widen":
		c.Inference.Overflow = strings.ToLower(c.Inference.Overflow)
	default:
		return fmt.Errorf("unknown overflow policy %q", c.Inference.Overflow)
	}

	switch strings.ToLower(c.Sheets.DefaultMode) {
	case "append", "overwrite":
		c.Sheets.DefaultMode = strings.ToLower(c.Sheets.DefaultMode)
	default:
		return fmt.Errorf("unknown sheets mode %q", c.Sheets.DefaultMode)
	}

	if strings.TrimSpace(c.Export.SheetName) == "" {
		return fmt.Errorf("export sheet name must not be empty")
	}

	switch c.Telemetry.MetricExporter {
	case "prometheus", "none":
	default:
		return fmt.Errorf("unsupported metric exporter: %s", c.Telemetry.MetricExporter)
	}
	switch c.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Telemetry.TraceExporter)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("sample ratio must be within [0, 1]")
	}

	// Logs are always JSON
	c.Logging.Format = "json"

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  75 * time.Second,
			MaxUploadBytes:  DefaultMaxUploadBytes,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   40,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Sessions: SessionsConfig{
			MaxSessions:   1000,
			IdleTTL:       2 * time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		Inference: InferenceConfig{
			Overflow:           "merge",
			HeaderFromFirstRow: true,
			CurrencySymbol:     "$",
		},
		Export: ExportConfig{
			BaseName:        DefaultBaseName,
			SheetName:       DefaultSheetName,
			IncludeMetadata: true,
			OutputDir:       ".",
		},
		Recognition: RecognitionConfig{
			Language:      "eng",
			VisionBaseURL: "https://api.openai.com/v1",
			VisionModel:   "gpt-4o-mini",
			Timeout:       60 * time.Second,
		},
		Sheets: SheetsConfig{
			DefaultMode: "append",
		},
		Telemetry: TelemetryConfig{
			MetricExporter: "prometheus",
			TraceExporter:  "none",
			SampleRatio:    1.0,
			Environment:    "development",
		},
	}
}
