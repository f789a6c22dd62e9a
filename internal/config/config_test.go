package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default configuration", func(t *testing.T) {
		cfg, err := Load("")

		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)

		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "json", cfg.Log.Format)
		assert.Empty(t, cfg.Log.File)

		assert.Equal(t, BackendONNX, cfg.Text.Backend)
		assert.Equal(t, "This example is {}.", cfg.Text.HypothesisTemplate)

		assert.Equal(t, 224, cfg.Image.ImageSize)
		assert.Equal(t, int64(49407), cfg.Image.PadTokenID)
		assert.Equal(t, 77, cfg.Image.MaxLength)
		assert.Len(t, cfg.Image.Mean, 3)
		assert.Len(t, cfg.Image.Std, 3)
	})

	t.Run("reads from toml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `
[server]
port = 9000
read_timeout = "5s"

[text]
backend = "remote"

[text.remote]
model = "facebook/bart-large-mnli"
timeout = "10s"

[image]
image_size = 336
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, BackendRemote, cfg.Text.Backend)
		assert.Equal(t, "facebook/bart-large-mnli", cfg.Text.Remote.Model)
		assert.Equal(t, 10*time.Second, cfg.Text.Remote.Timeout)
		assert.Equal(t, 336, cfg.Image.ImageSize)
		// untouched keys keep their defaults
		assert.Equal(t, "https://api-inference.huggingface.co", cfg.Text.Remote.BaseURL)
		assert.Equal(t, 77, cfg.Image.MaxLength)
	})

	t.Run("reads from environment variables", func(t *testing.T) {
		t.Setenv("CLASSIFIER_SERVER_PORT", "9090")
		t.Setenv("CLASSIFIER_LOG_LEVEL", "debug")
		t.Setenv("CLASSIFIER_TEXT_NUM_CLASSES", "3")
		t.Setenv("CLASSIFIER_TEXT_ENTAILMENT_INDEX", "2")
		t.Setenv("CLASSIFIER_IMAGE_MEAN", "0.5,0.5,0.5")

		cfg, err := Load("")

		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, 3, cfg.Text.NumClasses)
		assert.Equal(t, 2, cfg.Text.EntailmentIndex)
		assert.Equal(t, []float32{0.5, 0.5, 0.5}, cfg.Image.Mean)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9000\n"), 0o600))
		t.Setenv("CLASSIFIER_SERVER_PORT", "9191")

		cfg, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, 9191, cfg.Server.Port)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))

		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"bad upload limit", func(c *Config) { c.Server.MaxUploadBytes = 0 }, true},
		{"unknown backend", func(c *Config) { c.Text.Backend = "grpc" }, true},
		{"entailment index out of range", func(c *Config) { c.Text.EntailmentIndex = 2 }, true},
		{"onnx without model", func(c *Config) { c.Text.ModelPath = "" }, true},
		{"remote without model", func(c *Config) {
			c.Text.Backend = BackendRemote
			c.Text.Remote.Model = ""
		}, true},
		{"remote ignores onnx paths", func(c *Config) {
			c.Text.Backend = BackendRemote
			c.Text.ModelPath = ""
		}, false},
		{"image without tokenizer", func(c *Config) { c.Image.TokenizerPath = "" }, true},
		{"short mean", func(c *Config) { c.Image.Mean = []float32{0.5} }, true},
		{"zero std", func(c *Config) { c.Image.Std = []float32{0.5, 0, 0.5} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
