package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Audio      AudioConfig      `mapstructure:"audio"`
	Inference  InferenceConfig  `mapstructure:"inference"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Templates  TemplatesConfig  `mapstructure:"templates"`
	Outputs    OutputsConfig    `mapstructure:"outputs"`
}

type ServerConfig struct {
	Port           int        `mapstructure:"port" validate:"min=1,max=65535"`
	Timezone       string     `mapstructure:"timezone" validate:"required,timezone"`
	JWTSecret      string     `mapstructure:"jwt_secret"`
	MaxUploadBytes int64      `mapstructure:"max_upload_bytes" validate:"min=1"`
	CORS           CORSConfig `mapstructure:"cors"`
}

// Location returns the time zone that defines "today" for a test session.
func (c ServerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Directory   string `mapstructure:"directory"`
	Development bool   `mapstructure:"development"`
}

type AudioConfig struct {
	FFmpegPath       string `mapstructure:"ffmpeg_path" validate:"required"`
	UploadDirectory  string `mapstructure:"upload_directory" validate:"required"`
	TargetSampleRate int    `mapstructure:"target_sample_rate" validate:"min=8000"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds" validate:"min=1"`
}

type InferenceConfig struct {
	BaseURL          string `mapstructure:"base_url" validate:"required,url"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds" validate:"min=1"`
	MaxRetryAttempts uint   `mapstructure:"max_retry_attempts"`
}

type ClassifierConfig struct {
	// ModelPath points at a versioned CatBoost model exported as JSON.
	// Its existence is checked on first use, not at startup.
	ModelPath   string `mapstructure:"model_path" validate:"required"`
	Aggregation string `mapstructure:"aggregation" validate:"oneof=per_question session"`
}

type ScoringConfig struct {
	RescorePolicy string `mapstructure:"rescore_policy" validate:"oneof=return_existing reject"`
	// CoherenceMapping keys are the literal tokens emitted by the inference service.
	// viper lower-cases map keys, so tokens are matched case-insensitively.
	CoherenceMapping map[string]int `mapstructure:"coherence_mapping" validate:"required,min=1,ordinal_levels"`
}

type TemplatesConfig struct {
	ReportTemplate string `mapstructure:"report_template" validate:"omitempty,file"`
}

type OutputsConfig struct {
	ReportDirectory string `mapstructure:"report_directory"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/mopic")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.timezone", "Asia/Seoul")
	v.SetDefault("server.max_upload_bytes", 32<<20)
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "mopic")
	v.SetDefault("database.username", "user")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("audio.ffmpeg_path", "ffmpeg")
	v.SetDefault("audio.upload_directory", "uploads")
	v.SetDefault("audio.target_sample_rate", 16000)
	v.SetDefault("audio.timeout_seconds", 60)
	v.SetDefault("inference.base_url", "http://localhost:8001")
	v.SetDefault("inference.timeout_seconds", 120)
	v.SetDefault("inference.max_retry_attempts", 2)
	v.SetDefault("classifier.model_path", filepath.Join("models", "catboost", "catboost_model.json"))
	v.SetDefault("classifier.aggregation", "per_question")
	v.SetDefault("scoring.rescore_policy", "return_existing")
	v.SetDefault("scoring.coherence_mapping", map[string]int{"낮음": 0, "중간": 1, "높음": 2})
	// Template is optional - if not specified, will use embedded fallback template
	v.SetDefault("templates.report_template", "")
	v.SetDefault("outputs.report_directory", filepath.Join("outputs", "reports"))

	if err := v.BindEnv("database.password", "DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind DB_PASSWORD environment variable: %w", err)
	}
	// Environment variables take precedence over the config file for secrets.
	if err := v.BindEnv("server.jwt_secret", "MOPIC_JWT_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind MOPIC_JWT_SECRET environment variable: %w", err)
	}
	if err := v.BindEnv("inference.base_url", "MOPIC_INFERENCE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind MOPIC_INFERENCE_URL environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}
