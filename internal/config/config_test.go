package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8000,
			Timezone:       "Asia/Seoul",
			MaxUploadBytes: 32 << 20,
			CORS:           CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     3306,
			Database: "mopic",
			Username: "user",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Directory: "logs",
		},
		Audio: AudioConfig{
			FFmpegPath:       "ffmpeg",
			UploadDirectory:  "uploads",
			TargetSampleRate: 16000,
			TimeoutSeconds:   60,
		},
		Inference: InferenceConfig{
			BaseURL:          "http://localhost:8001",
			TimeoutSeconds:   120,
			MaxRetryAttempts: 2,
		},
		Classifier: ClassifierConfig{
			ModelPath:   filepath.Join("models", "catboost", "catboost_model.json"),
			Aggregation: "per_question",
		},
		Scoring: ScoringConfig{
			RescorePolicy:    "return_existing",
			CoherenceMapping: map[string]int{"낮음": 0, "중간": 1, "높음": 2},
		},
		Outputs: OutputsConfig{
			ReportDirectory: filepath.Join("outputs", "reports"),
		},
	}
}

func TestConfigLoader_Load(t *testing.T) {
	tests := []struct {
		name              string
		configContent     string
		useExplicitPath   bool
		env               map[string]string
		wantErr           bool
		want              func() *Config
		wantErrorContains []string
	}{
		{
			name:          "no config file uses defaults",
			configContent: "",
			want:          defaultConfig,
		},
		{
			name: "valid config file with custom values",
			configContent: `server:
  port: 9000
  timezone: UTC
database:
  host: db.internal
  database: mopic_test
classifier:
  model_path: models/v2/model.json
  aggregation: session
scoring:
  rescore_policy: reject
`,
			useExplicitPath: true,
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Server.Port = 9000
				cfg.Server.Timezone = "UTC"
				cfg.Database.Host = "db.internal"
				cfg.Database.Database = "mopic_test"
				cfg.Classifier.ModelPath = "models/v2/model.json"
				cfg.Classifier.Aggregation = "session"
				cfg.Scoring.RescorePolicy = "reject"
				return cfg
			},
		},
		{
			name:          "secrets are read from the environment",
			configContent: "",
			env: map[string]string{
				"DB_PASSWORD":         "secret",
				"MOPIC_JWT_SECRET":    "jwt-secret",
				"MOPIC_INFERENCE_URL": "http://inference:8001",
			},
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Database.Password = "secret"
				cfg.Server.JWTSecret = "jwt-secret"
				cfg.Inference.BaseURL = "http://inference:8001"
				return cfg
			},
		},
		{
			name: "invalid YAML format",
			configContent: `server:
  port: 9000
  invalid yaml format here [[[
`,
			wantErr: true,
			wantErrorContains: []string{
				"configuration file found but could not be read",
				"Please check the file format and permissions",
			},
		},
		{
			name: "unknown aggregation is rejected",
			configContent: `classifier:
  aggregation: per_row
`,
			wantErr:           true,
			wantErrorContains: []string{"invalid configuration", "aggregation"},
		},
		{
			name: "unknown time zone is rejected",
			configContent: `server:
  timezone: Mars/Olympus
`,
			wantErr:           true,
			wantErrorContains: []string{"timezone must be a valid IANA time zone"},
		},
		{
			name: "negative coherence level is rejected",
			configContent: `scoring:
  coherence_mapping:
    low: -1
    high: 1
`,
			wantErr:           true,
			wantErrorContains: []string{"coherence_mapping must map non-empty tokens to levels of 0 or more"},
		},
		{
			name: "missing report template is rejected",
			configContent: `templates:
  report_template: does/not/exist.md.go.tmpl
`,
			wantErr:           true,
			wantErrorContains: []string{"report_template must be an existing and readable file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			tempDir := t.TempDir()

			var configPath string
			if tt.useExplicitPath {
				configPath = filepath.Join(tempDir, "mopic.yml")
				require.NoError(t, os.WriteFile(configPath, []byte(tt.configContent), 0644))
			} else {
				if tt.configContent != "" {
					require.NoError(t, os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(tt.configContent), 0644))
				}
				t.Chdir(tempDir)
			}

			loader, err := NewConfigLoader(configPath)
			require.NoError(t, err)
			got, err := loader.Load()

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				for _, wantMsg := range tt.wantErrorContains {
					assert.Contains(t, err.Error(), wantMsg)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want(), got)
		})
	}
}

func TestServerConfig_Location(t *testing.T) {
	loc, err := ServerConfig{Timezone: "Asia/Seoul"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", loc.String())

	_, err = ServerConfig{Timezone: "Nowhere/Nothing"}.Location()
	assert.Error(t, err)
}
