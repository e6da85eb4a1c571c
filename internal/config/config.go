package config

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

var (
	instance *Config
	once     sync.Once
	mu       sync.RWMutex
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Decisions  DecisionsConfig  `mapstructure:"decisions"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"required,min=1,max=65535"`
}

// ExtractionConfig contains text extraction and OCR settings
type ExtractionConfig struct {
	// DefaultOCRLangs is used when a request does not name OCR languages.
	// An empty value disables the OCR fallback entirely.
	DefaultOCRLangs string `mapstructure:"default_ocr_langs"`

	// MaxPagesOCR skips OCR for documents above this page count.
	// Zero means no ceiling.
	MaxPagesOCR int `mapstructure:"max_pages_ocr"`

	// MaxConcurrent bounds how many extractions may run at once.
	MaxConcurrent int `mapstructure:"max_concurrent"`

	// OCREngine selects the OCR backend: "ocrmypdf" or "tesseract".
	OCREngine string `mapstructure:"ocr_engine"`

	// Paths of the external binaries the adapters shell out to.
	PdftotextPath string `mapstructure:"pdftotext_path"`
	OcrmypdfPath  string `mapstructure:"ocrmypdf_path"`
	PdftoppmPath  string `mapstructure:"pdftoppm_path"`
}

// ArchiveConfig contains archive filesystem settings
type ArchiveConfig struct {
	Root     string `mapstructure:"root" validate:"required"`
	CacheTTL int    `mapstructure:"cache_ttl"` // seconds
	Shards   int    `mapstructure:"cache_shards"`
}

// DecisionsConfig contains decision resolver settings
type DecisionsConfig struct {
	CallbackTimeout int `mapstructure:"callback_timeout"` // seconds
	PreviewLimit    int `mapstructure:"preview_limit"`    // runes shown to the human
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Get returns the singleton configuration instance
func Get() *Config {
	once.Do(func() {
		if instance == nil {
			instance = &Config{}
		}
	})
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// Load initializes and loads configuration from file and environment variables
func Load(configPath string) error {
	mu.Lock()
	defer mu.Unlock()

	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()

	// Set default values
	setDefaults()

	// Load from file if provided
	if configPath != "" {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables
	bindEnvVars()

	// Unmarshal configuration
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	instance = cfg
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)

	// Extraction defaults
	viper.SetDefault("extraction.default_ocr_langs", "deu+eng+rus")
	viper.SetDefault("extraction.max_pages_ocr", 0)
	viper.SetDefault("extraction.max_concurrent", 4)
	viper.SetDefault("extraction.ocr_engine", "ocrmypdf")
	viper.SetDefault("extraction.pdftotext_path", "pdftotext")
	viper.SetDefault("extraction.ocrmypdf_path", "ocrmypdf")
	viper.SetDefault("extraction.pdftoppm_path", "pdftoppm")

	// Archive defaults
	viper.SetDefault("archive.root", "/data/archive")
	viper.SetDefault("archive.cache_ttl", 60)
	viper.SetDefault("archive.cache_shards", 4)

	// Decisions defaults
	viper.SetDefault("decisions.callback_timeout", 30)
	viper.SetDefault("decisions.preview_limit", 1000)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.development", true)
}

// bindEnvVars binds environment variables to viper keys
func bindEnvVars() {
	// Server
	viper.BindEnv("server.host", "APP_SERVER_HOST")
	viper.BindEnv("server.port", "APP_SERVER_PORT")

	// Extraction
	viper.BindEnv("extraction.default_ocr_langs", "APP_EXTRACTION_DEFAULT_OCR_LANGS")
	viper.BindEnv("extraction.max_pages_ocr", "APP_EXTRACTION_MAX_PAGES_OCR")
	viper.BindEnv("extraction.max_concurrent", "APP_EXTRACTION_MAX_CONCURRENT")
	viper.BindEnv("extraction.ocr_engine", "APP_EXTRACTION_OCR_ENGINE")
	viper.BindEnv("extraction.pdftotext_path", "APP_EXTRACTION_PDFTOTEXT_PATH")
	viper.BindEnv("extraction.ocrmypdf_path", "APP_EXTRACTION_OCRMYPDF_PATH")
	viper.BindEnv("extraction.pdftoppm_path", "APP_EXTRACTION_PDFTOPPM_PATH")

	// Archive
	viper.BindEnv("archive.root", "APP_ARCHIVE_ROOT")
	viper.BindEnv("archive.cache_ttl", "APP_ARCHIVE_CACHE_TTL")
	viper.BindEnv("archive.cache_shards", "APP_ARCHIVE_CACHE_SHARDS")

	// Decisions
	viper.BindEnv("decisions.callback_timeout", "APP_DECISIONS_CALLBACK_TIMEOUT")
	viper.BindEnv("decisions.preview_limit", "APP_DECISIONS_PREVIEW_LIMIT")

	// Logging
	viper.BindEnv("logging.level", "APP_LOGGING_LEVEL")
	viper.BindEnv("logging.development", "APP_LOGGING_DEVELOPMENT")
}

// validate performs validation on the configuration
func validate(cfg *Config) error {
	// Validate Server
	if cfg.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	// Validate Extraction
	if cfg.Extraction.MaxPagesOCR < 0 {
		return fmt.Errorf("extraction.max_pages_ocr must be non-negative")
	}
	if cfg.Extraction.MaxConcurrent < 1 {
		return fmt.Errorf("extraction.max_concurrent must be at least 1")
	}
	switch cfg.Extraction.OCREngine {
	case "ocrmypdf", "tesseract":
	default:
		return fmt.Errorf("extraction.ocr_engine must be %q or %q", "ocrmypdf", "tesseract")
	}

	// Validate Archive
	if cfg.Archive.Root == "" {
		return fmt.Errorf("archive.root is required")
	}
	if cfg.Archive.CacheTTL < 0 {
		return fmt.Errorf("archive.cache_ttl must be non-negative")
	}
	if cfg.Archive.Shards < 1 {
		return fmt.Errorf("archive.cache_shards must be at least 1")
	}

	// Validate Decisions
	if cfg.Decisions.CallbackTimeout < 1 {
		return fmt.Errorf("decisions.callback_timeout must be at least 1 second")
	}
	if cfg.Decisions.PreviewLimit < 0 {
		return fmt.Errorf("decisions.preview_limit must be non-negative")
	}

	return nil
}

// Reload reloads the configuration (thread-safe)
func Reload(configPath string) error {
	mu.Lock()
	defer mu.Unlock()

	// Reset instance to allow reload
	instance = nil
	once = sync.Once{}

	return Load(configPath)
}
