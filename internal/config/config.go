package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix for environment overrides, e.g. CLASSIFIER_SERVER_PORT.
const EnvPrefix = "classifier"

// Text classifier backends
const (
	BackendONNX   = "onnx"
	BackendRemote = "remote"
)

type Config struct {
	Server  ServerConfig  `toml:"server" envconfig:"server"`
	Log     LogConfig     `toml:"log" envconfig:"log"`
	Runtime RuntimeConfig `toml:"runtime" envconfig:"runtime"`
	Text    TextConfig    `toml:"text" envconfig:"text"`
	Image   ImageConfig   `toml:"image" envconfig:"image"`
}

type ServerConfig struct {
	Host           string        `toml:"host" envconfig:"host"`
	Port           int           `toml:"port" envconfig:"port"`
	Mode           string        `toml:"mode" envconfig:"mode"`
	MaxUploadBytes int64         `toml:"max_upload_bytes" envconfig:"max_upload_bytes"`
	ReadTimeout    time.Duration `toml:"read_timeout" envconfig:"read_timeout"`
	WriteTimeout   time.Duration `toml:"write_timeout" envconfig:"write_timeout"`
	IdleTimeout    time.Duration `toml:"idle_timeout" envconfig:"idle_timeout"`
}

// LogConfig controls the zap logger. File is optional; when set, logs are
// also written there and rotated.
type LogConfig struct {
	Level      string `toml:"level" envconfig:"level"`
	Format     string `toml:"format" envconfig:"format"`
	File       string `toml:"file" envconfig:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" envconfig:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" envconfig:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" envconfig:"max_age_days"`
}

type RuntimeConfig struct {
	SharedLibraryPath string `toml:"shared_library_path" envconfig:"shared_library_path"`
	IntraOpThreads    int    `toml:"intra_op_threads" envconfig:"intra_op_threads"`
}

// TextConfig describes the zero-shot text classifier.
type TextConfig struct {
	Backend            string       `toml:"backend" envconfig:"backend"`
	ModelPath          string       `toml:"model_path" envconfig:"model_path"`
	TokenizerPath      string       `toml:"tokenizer_path" envconfig:"tokenizer_path"`
	HypothesisTemplate string       `toml:"hypothesis_template" envconfig:"hypothesis_template"`
	NumClasses         int          `toml:"num_classes" envconfig:"num_classes"`
	EntailmentIndex    int          `toml:"entailment_index" envconfig:"entailment_index"`
	UseTokenTypeIDs    bool         `toml:"use_token_type_ids" envconfig:"use_token_type_ids"`
	PadTokenID         int64        `toml:"pad_token_id" envconfig:"pad_token_id"`
	MaxLength          int          `toml:"max_length" envconfig:"max_length"`
	Remote             RemoteConfig `toml:"remote" envconfig:"remote"`
}

type RemoteConfig struct {
	BaseURL string        `toml:"base_url" envconfig:"base_url"`
	Model   string        `toml:"model" envconfig:"model"`
	Token   string        `toml:"token" envconfig:"token"`
	Timeout time.Duration `toml:"timeout" envconfig:"timeout"`
}

// ImageConfig describes the CLIP image/text model.
type ImageConfig struct {
	ModelPath     string    `toml:"model_path" envconfig:"model_path"`
	TokenizerPath string    `toml:"tokenizer_path" envconfig:"tokenizer_path"`
	ImageSize     int       `toml:"image_size" envconfig:"image_size"`
	PadTokenID    int64     `toml:"pad_token_id" envconfig:"pad_token_id"`
	MaxLength     int       `toml:"max_length" envconfig:"max_length"`
	Mean          []float32 `toml:"mean" envconfig:"mean"`
	Std           []float32 `toml:"std" envconfig:"std"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			Mode:           "release",
			MaxUploadBytes: 10 << 20,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			IdleTimeout:    60 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Text: TextConfig{
			Backend:            BackendONNX,
			ModelPath:          "models/zeroshot/model.onnx",
			TokenizerPath:      "models/zeroshot/tokenizer.json",
			HypothesisTemplate: "This example is {}.",
			NumClasses:         2,
			EntailmentIndex:    0,
			PadTokenID:         0,
			MaxLength:          512,
			Remote: RemoteConfig{
				BaseURL: "https://api-inference.huggingface.co",
				Model:   "MoritzLaurer/deberta-v3-large-zeroshot-v1",
				Timeout: 60 * time.Second,
			},
		},
		Image: ImageConfig{
			ModelPath:     "models/clip/model.onnx",
			TokenizerPath: "models/clip/tokenizer.json",
			ImageSize:     224,
			PadTokenID:    49407,
			MaxLength:     77,
			Mean:          []float32{0.48145466, 0.4578275, 0.40821073},
			Std:           []float32{0.26862954, 0.26130258, 0.27577711},
		},
	}
}

// Load builds the configuration from defaults, the optional TOML file at
// path and CLASSIFIER_* environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("server.max_upload_bytes must be positive")
	}

	switch c.Text.Backend {
	case BackendONNX:
		if c.Text.ModelPath == "" || c.Text.TokenizerPath == "" {
			return errors.New("text.model_path and text.tokenizer_path are required for the onnx backend")
		}
		if c.Text.NumClasses <= 0 {
			return fmt.Errorf("invalid text.num_classes %d", c.Text.NumClasses)
		}
		if c.Text.EntailmentIndex < 0 || c.Text.EntailmentIndex >= c.Text.NumClasses {
			return fmt.Errorf("text.entailment_index %d out of range for %d classes", c.Text.EntailmentIndex, c.Text.NumClasses)
		}
	case BackendRemote:
		if c.Text.Remote.BaseURL == "" || c.Text.Remote.Model == "" {
			return errors.New("text.remote.base_url and text.remote.model are required for the remote backend")
		}
	default:
		return fmt.Errorf("unknown text backend %q", c.Text.Backend)
	}

	if c.Image.ModelPath == "" || c.Image.TokenizerPath == "" {
		return errors.New("image.model_path and image.tokenizer_path are required")
	}
	if c.Image.ImageSize <= 0 {
		return fmt.Errorf("invalid image.image_size %d", c.Image.ImageSize)
	}
	if len(c.Image.Mean) != 3 || len(c.Image.Std) != 3 {
		return errors.New("image.mean and image.std need exactly 3 values")
	}
	for _, s := range c.Image.Std {
		if s == 0 {
			return errors.New("image.std values must be non-zero")
		}
	}
	return nil
}
