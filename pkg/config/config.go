package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cultiflow/cultivoice/pkg/constants"
	"github.com/cultiflow/cultivoice/pkg/logger"
	"github.com/cultiflow/cultivoice/pkg/utils"
)

// GhanaNLPBaseURL is the default endpoint for GhanaNLP speech and
// translation services.
const GhanaNLPBaseURL = "https://translation-api.ghananlp.org"

// Config main configuration structure
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	QA         QAConfig         `mapstructure:"qa"`
	Log        logger.LogConfig `mapstructure:"log"`
	Services   ServicesConfig   `mapstructure:"services"`
	Recordings RecordingsConfig `mapstructure:"recordings"`
}

// AppConfig application configuration
type AppConfig struct {
	Name           string `env:"APP_NAME"`
	Desc           string `env:"APP_DESC"`
	Mode           string `env:"MODE"`
	Extension      string `env:"EXTENSION"`       // dialplan extension the assistant answers on
	SpeechLanguage string `env:"SPEECH_LANGUAGE"` // language spoken on the call (tw, en, ...)
	LookupLanguage string `env:"LOOKUP_LANGUAGE"` // language the stored answers are keyed in
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER"`
	DSN    string `env:"DSN"`
}

// QAConfig answer store configuration
type QAConfig struct {
	Backend       string `env:"QA_BACKEND"`     // database, memory, composite
	FuzzyOrder    string `env:"QA_FUZZY_ORDER"` // recent, popular, specific
	MinFuzzyWords int    `env:"QA_MIN_FUZZY_WORDS"`
	MirrorDSN     string `env:"QA_MIRROR_DSN"` // embedded mirror for the composite backend
}

// RecordingsConfig call artifact configuration
type RecordingsConfig struct {
	Dir          string `env:"RECORDINGS_DIR"`
	FallbackClip string `env:"FALLBACK_CLIP"` // apology clip primed over the output path each turn
}

// ServicesConfig services configuration
type ServicesConfig struct {
	STT       STTConfig       `mapstructure:"stt"`
	TTS       TTSConfig       `mapstructure:"tts"`
	Translate TranslateConfig `mapstructure:"translate"`
}

// STTConfig speech recognition service configuration
type STTConfig struct {
	Provider   string        `env:"STT_PROVIDER"` // ghananlp, openai, google, tencent, aws, deepgram
	APIKey     string        `env:"STT_API_KEY"`
	BaseURL    string        `env:"STT_BASE_URL"`
	Model      string        `env:"STT_MODEL"`
	Language   string        `env:"STT_LANGUAGE"`
	AppID      string        `env:"STT_APP_ID"`     // tencent
	SecretID   string        `env:"STT_SECRET_ID"`  // tencent
	SecretKey  string        `env:"STT_SECRET_KEY"` // tencent
	Region     string        `env:"STT_REGION"`     // aws, tencent
	Timeout    time.Duration `env:"STT_TIMEOUT"`
	MaxRetries int           `env:"STT_MAX_RETRIES"`
}

// TTSConfig speech synthesis service configuration
type TTSConfig struct {
	Provider   string        `env:"TTS_PROVIDER"` // ghananlp, openai, google, polly
	APIKey     string        `env:"TTS_API_KEY"`
	BaseURL    string        `env:"TTS_BASE_URL"`
	Model      string        `env:"TTS_MODEL"`
	Voice      string        `env:"TTS_VOICE"`
	Language   string        `env:"TTS_LANGUAGE"`
	Region     string        `env:"TTS_REGION"` // polly
	SampleRate int           `env:"TTS_SAMPLE_RATE"`
	Speed      float64       `env:"TTS_SPEED"` // speaking rate, openai and google only
	Timeout    time.Duration `env:"TTS_TIMEOUT"`
	MaxRetries int           `env:"TTS_MAX_RETRIES"`
}

// TranslateConfig translation service configuration
type TranslateConfig struct {
	APIKey  string        `env:"TRANSLATE_API_KEY"`
	BaseURL string        `env:"TRANSLATE_BASE_URL"`
	Timeout time.Duration `env:"TRANSLATE_TIMEOUT"`
}

// ConfigError describes a configuration field that failed validation
type ConfigError struct {
	Field   string
	Value   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("config: %s %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config: %s=%q %s", e.Field, e.Value, e.Message)
}

var GlobalConfig *Config

func Load() error {
	// 1. Load .env file based on environment (don't error if it doesn't exist, use default values)
	env := os.Getenv("APP_ENV")
	err := utils.LoadEnv(env)
	if err != nil {
		// Only log when .env file doesn't exist, don't affect startup
		log.Printf("Note: .env file not found or failed to load: %v (using default values)", err)
	}

	// A single GhanaNLP subscription key drives recognition, synthesis
	// and translation unless a service-specific key overrides it.
	ghanaKey := getStringOrDefault("GHANANLP_API_KEY", utils.GetEnv("GHANA_NLP_API_KEY"))

	recordingsDir := getStringOrDefault("RECORDINGS_DIR", "./recordings")

	// 2. Load global configuration
	GlobalConfig = &Config{
		App: AppConfig{
			Name:           getStringOrDefault("APP_NAME", "CultiVoice"),
			Desc:           getStringOrDefault("APP_DESC", "Cultiflow voice assistant"),
			Mode:           getStringOrDefault("MODE", "development"),
			Extension:      getStringOrDefault("EXTENSION", "1002"),
			SpeechLanguage: getStringOrDefault("SPEECH_LANGUAGE", constants.LANG_TWI),
			LookupLanguage: getStringOrDefault("LOOKUP_LANGUAGE", constants.LANG_ENGLISH),
		},
		Database: DatabaseConfig{
			Driver: getStringOrDefault("DB_DRIVER", "sqlite"),
			DSN:    getStringOrDefault("DSN", "./cultivoice.db"),
		},
		QA: QAConfig{
			Backend:       getStringOrDefault("QA_BACKEND", "database"),
			FuzzyOrder:    getStringOrDefault("QA_FUZZY_ORDER", "recent"),
			MinFuzzyWords: getIntOrDefault("QA_MIN_FUZZY_WORDS", 2),
			MirrorDSN:     getStringOrDefault("QA_MIRROR_DSN", ""),
		},
		Log: logger.LogConfig{
			Level:      getStringOrDefault("LOG_LEVEL", "info"),
			Filename:   getStringOrDefault("LOG_FILENAME", "./logs/app.log"),
			MaxSize:    getIntOrDefault("LOG_MAX_SIZE", 100),
			MaxAge:     getIntOrDefault("LOG_MAX_AGE", 30),
			MaxBackups: getIntOrDefault("LOG_MAX_BACKUPS", 5),
			Daily:      getBoolOrDefault("LOG_DAILY", true),
		},
		Services: loadServicesConfig(ghanaKey),
		Recordings: RecordingsConfig{
			Dir:          recordingsDir,
			FallbackClip: getStringOrDefault("FALLBACK_CLIP", filepath.Join(recordingsDir, constants.FILE_FALLBACK_WAV)),
		},
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate database configuration
	if c.Database.DSN == "" {
		return &ConfigError{Field: "DSN", Message: "is required"}
	}

	// Validate answer store configuration
	switch c.QA.Backend {
	case "database", "memory", "composite":
	default:
		return &ConfigError{Field: "QA_BACKEND", Value: c.QA.Backend, Message: "must be database, memory or composite"}
	}
	switch c.QA.FuzzyOrder {
	case "recent", "popular", "specific":
	default:
		return &ConfigError{Field: "QA_FUZZY_ORDER", Value: c.QA.FuzzyOrder, Message: "must be recent, popular or specific"}
	}

	// Validate language configuration
	if c.App.SpeechLanguage == "" {
		return &ConfigError{Field: "SPEECH_LANGUAGE", Message: "is required"}
	}
	if c.App.LookupLanguage == "" {
		return &ConfigError{Field: "LOOKUP_LANGUAGE", Message: "is required"}
	}

	// Providers accept speaking rates between quarter and quadruple speed
	if s := c.Services.TTS.Speed; s < 0.25 || s > 4.0 {
		return &ConfigError{Field: "TTS_SPEED", Value: fmt.Sprintf("%g", s), Message: "must be between 0.25 and 4.0"}
	}
	return nil
}

// NeedsTranslation reports whether the call language differs from the
// language the answer store is keyed in.
func (c *Config) NeedsTranslation() bool {
	return c.App.SpeechLanguage != c.App.LookupLanguage
}

// loadServicesConfig loads speech service configuration
func loadServicesConfig(ghanaKey string) ServicesConfig {
	mode := getStringOrDefault("MODE", "development")

	// Production keeps short timeouts and leans on retries; development
	// waits longer so a slow link does not mask real failures.
	defaultTimeout := 60 * time.Second
	defaultRetries := 1
	if mode == "production" {
		defaultTimeout = 30 * time.Second
		defaultRetries = 3
	}

	// Only the GhanaNLP provider gets the GhanaNLP endpoint by default,
	// other providers deal in their SDK defaults unless overridden.
	sttProvider := getStringOrDefault("STT_PROVIDER", "ghananlp")
	sttBase := utils.GetEnv("STT_BASE_URL")
	if sttBase == "" && sttProvider == "ghananlp" {
		sttBase = GhanaNLPBaseURL
	}
	ttsProvider := getStringOrDefault("TTS_PROVIDER", "ghananlp")
	ttsBase := utils.GetEnv("TTS_BASE_URL")
	if ttsBase == "" && ttsProvider == "ghananlp" {
		ttsBase = GhanaNLPBaseURL
	}

	return ServicesConfig{
		STT: STTConfig{
			Provider:   sttProvider,
			APIKey:     getStringOrDefault("STT_API_KEY", ghanaKey),
			BaseURL:    sttBase,
			Model:      getStringOrDefault("STT_MODEL", ""),
			Language:   getStringOrDefault("STT_LANGUAGE", constants.LANG_TWI),
			AppID:      getStringOrDefault("STT_APP_ID", ""),
			SecretID:   getStringOrDefault("STT_SECRET_ID", ""),
			SecretKey:  getStringOrDefault("STT_SECRET_KEY", ""),
			Region:     getStringOrDefault("STT_REGION", "us-east-1"),
			Timeout:    parseDuration(getStringOrDefault("STT_TIMEOUT", ""), defaultTimeout),
			MaxRetries: getIntOrDefault("STT_MAX_RETRIES", defaultRetries),
		},
		TTS: TTSConfig{
			Provider:   ttsProvider,
			APIKey:     getStringOrDefault("TTS_API_KEY", ghanaKey),
			BaseURL:    ttsBase,
			Model:      getStringOrDefault("TTS_MODEL", "tts-1"),
			Voice:      getStringOrDefault("TTS_VOICE", ""),
			Language:   getStringOrDefault("TTS_LANGUAGE", constants.LANG_TWI),
			Region:     getStringOrDefault("TTS_REGION", "us-east-1"),
			SampleRate: getIntOrDefault("TTS_SAMPLE_RATE", constants.AUDIO_SAMPLE_RATE),
			Speed:      getFloatOrDefault("TTS_SPEED", 1.0),
			Timeout:    parseDuration(getStringOrDefault("TTS_TIMEOUT", ""), defaultTimeout),
			MaxRetries: getIntOrDefault("TTS_MAX_RETRIES", defaultRetries),
		},
		Translate: TranslateConfig{
			APIKey:  getStringOrDefault("TRANSLATE_API_KEY", ghanaKey),
			BaseURL: getStringOrDefault("TRANSLATE_BASE_URL", GhanaNLPBaseURL),
			Timeout: parseDuration(getStringOrDefault("TRANSLATE_TIMEOUT", ""), 15*time.Second),
		},
	}
}

// getStringOrDefault gets environment variable value, returns default if empty
func getStringOrDefault(key, defaultValue string) string {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getBoolOrDefault gets boolean environment variable value, returns default if empty
func getBoolOrDefault(key string, defaultValue bool) bool {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return utils.GetBoolEnv(key)
}

// getIntOrDefault gets integer environment variable value, returns default if empty
func getIntOrDefault(key string, defaultValue int) int {
	value := utils.GetIntEnv(key)
	if value == 0 {
		return defaultValue
	}
	return int(value)
}

// getFloatOrDefault gets float environment variable value, returns default if empty
func getFloatOrDefault(key string, defaultValue float64) float64 {
	value := utils.GetFloatEnv(key)
	if value == 0 {
		return defaultValue
	}
	return value
}

// parseDuration parses duration string with default fallback
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
