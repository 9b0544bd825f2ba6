package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      App      `mapstructure:"app"`
	AI       AI       `mapstructure:"ai"`
	Pipeline Pipeline `mapstructure:"pipeline"`
	Storage  Storage  `mapstructure:"storage"`
	Video    Video    `mapstructure:"video"`
	Server   Server   `mapstructure:"server"`
	Logging  Logging  `mapstructure:"logging"`
	CLI      CLI      `mapstructure:"cli"`
}

// App holds general application configuration
type App struct {
	Debug   bool   `mapstructure:"debug"`
	DataDir string `mapstructure:"data_dir"`
}

// AI holds AI/LLM configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	TextModel   string  `mapstructure:"text_model"`
	ImageModel  string  `mapstructure:"image_model"`
	VideoModel  string  `mapstructure:"video_model"`
	Timeout     string  `mapstructure:"timeout"`
	Temperature float32 `mapstructure:"temperature"`
}

// Pipeline holds generation pipeline tuning
type Pipeline struct {
	RetryAttempts       int    `mapstructure:"retry_attempts"`
	RetryBaseDelay      string `mapstructure:"retry_base_delay"`
	ImageAspectRatio    string `mapstructure:"image_aspect_ratio"`
	VideoAspectRatio    string `mapstructure:"video_aspect_ratio"`
	ReferenceLimit      int    `mapstructure:"reference_limit"`
	DraftReferenceLimit int    `mapstructure:"draft_reference_limit"`
	ReferenceFetchLimit int    `mapstructure:"reference_fetch_limit"`
	DecorationLimit     int    `mapstructure:"decoration_limit"`
	AnalysisLimit       int    `mapstructure:"analysis_limit"`
	HistoryLimit        int    `mapstructure:"history_limit"`
	MaxReferences       int    `mapstructure:"max_references"`
}

// Storage selects and configures the binary asset backend
type Storage struct {
	Backend string   `mapstructure:"backend"` // fs or s3
	S3      S3Config `mapstructure:"s3"`
}

// S3Config holds S3-compatible object storage settings
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// Video holds video generation polling settings
type Video struct {
	PollInterval string `mapstructure:"poll_interval"`
}

// Server holds preview server settings
type Server struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// Logging holds logging configuration
type Logging struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

// CLI holds CLI-specific configuration
type CLI struct {
	Editor string `mapstructure:"editor"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".ghostwriter")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", "~/.ghostwriter")

	viper.SetDefault("ai.gemini.text_model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.image_model", "imagen-4.0-generate-001")
	viper.SetDefault("ai.gemini.video_model", "veo-3.0-fast-generate-001")
	viper.SetDefault("ai.gemini.timeout", "120s")
	viper.SetDefault("ai.gemini.temperature", 0.7)

	viper.SetDefault("pipeline.retry_attempts", 3)
	viper.SetDefault("pipeline.retry_base_delay", "1s")
	viper.SetDefault("pipeline.image_aspect_ratio", "16:9")
	viper.SetDefault("pipeline.video_aspect_ratio", "16:9")
	viper.SetDefault("pipeline.reference_limit", 15000)
	viper.SetDefault("pipeline.draft_reference_limit", 8000)
	viper.SetDefault("pipeline.decoration_limit", 10000)
	viper.SetDefault("pipeline.analysis_limit", 5000)
	viper.SetDefault("pipeline.history_limit", 50)
	viper.SetDefault("pipeline.max_references", 7)
	viper.SetDefault("pipeline.reference_fetch_limit", 15000)

	viper.SetDefault("storage.backend", "fs")
	viper.SetDefault("storage.s3.region", "auto")
	viper.SetDefault("storage.s3.prefix", "articles")

	viper.SetDefault("video.poll_interval", "10s")

	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output", "stderr")
	viper.SetDefault("logging.file_path", "~/.ghostwriter/logs/ghostwriter.log")

	viper.SetDefault("cli.editor", os.Getenv("EDITOR"))
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
		"GOOGLE_API_KEY",
	})

	bindEnvKeys("storage.s3.access_key", []string{
		"S3_ACCESS_KEY",
		"AWS_ACCESS_KEY_ID",
	})

	bindEnvKeys("storage.s3.secret_key", []string{
		"S3_SECRET_KEY",
		"AWS_SECRET_ACCESS_KEY",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"GHOSTWRITER_DEBUG",
	})

	bindEnvKeys("app.data_dir", []string{
		"GHOSTWRITER_DATA_DIR",
	})

	bindEnvKeys("cli.editor", []string{
		"EDITOR",
		"VISUAL",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}
	if config.Logging.FilePath != "" {
		config.Logging.FilePath = expandPath(config.Logging.FilePath)
	}
	if config.App.Debug {
		config.Logging.Level = "debug"
	}

	durations := map[string]string{
		"ai.gemini.timeout":         config.AI.Gemini.Timeout,
		"pipeline.retry_base_delay": config.Pipeline.RetryBaseDelay,
		"video.poll_interval":       config.Video.PollInterval,
		"server.read_timeout":       config.Server.ReadTimeout,
		"server.write_timeout":      config.Server.WriteTimeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

var aspectRatioPattern = regexp.MustCompile(`^\d+:\d+$`)

// validateConfig checks value sanity. The API key is checked by the
// commands that call Gemini so history browsing works without one.
func validateConfig(config *Config) error {
	var errors []string

	if config.Pipeline.RetryAttempts < 1 {
		errors = append(errors, fmt.Sprintf("pipeline.retry_attempts must be at least 1, got %d", config.Pipeline.RetryAttempts))
	}
	if config.Pipeline.HistoryLimit < 1 {
		errors = append(errors, fmt.Sprintf("pipeline.history_limit must be at least 1, got %d", config.Pipeline.HistoryLimit))
	}
	if config.Pipeline.MaxReferences < 1 {
		errors = append(errors, fmt.Sprintf("pipeline.max_references must be at least 1, got %d", config.Pipeline.MaxReferences))
	}
	for key, ratio := range map[string]string{
		"pipeline.image_aspect_ratio": config.Pipeline.ImageAspectRatio,
		"pipeline.video_aspect_ratio": config.Pipeline.VideoAspectRatio,
	} {
		if !aspectRatioPattern.MatchString(ratio) {
			errors = append(errors, fmt.Sprintf("%s must look like 16:9, got %q", key, ratio))
		}
	}

	switch config.Storage.Backend {
	case "fs":
	case "s3":
		if config.Storage.S3.Bucket == "" {
			errors = append(errors, "storage.s3.bucket is required when storage.backend is s3")
		}
		if config.Storage.S3.AccessKey == "" || config.Storage.S3.SecretKey == "" {
			errors = append(errors, "S3 storage requires an access key and secret key. Set S3_ACCESS_KEY and S3_SECRET_KEY")
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown storage backend: %s. Supported: fs, s3", config.Storage.Backend))
	}

	switch config.Logging.Format {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("Unknown logging format: %s. Supported: text, json", config.Logging.Format))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// HasValidGeminiKey returns true if a real-looking Gemini key is configured
func HasValidGeminiKey() bool {
	return isValidAPIKey(Get().AI.Gemini.APIKey)
}

// ParseDuration parses a validated duration string, falling back when empty.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// isValidAPIKey checks if an API key is valid (not empty and not a placeholder)
func isValidAPIKey(apiKey string) bool {
	if apiKey == "" {
		return false
	}

	placeholders := []string{
		"your-api-key", "your-gemini-key", "your-gemini-api-key",
		"YOUR_API_KEY", "PLACEHOLDER", "TODO", "CHANGE_ME",
	}

	for _, placeholder := range placeholders {
		if apiKey == placeholder {
			return false
		}
	}

	return true
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
