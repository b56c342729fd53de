package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BackendCoqui     = "coqui"
	BackendYandex    = "yandex"
	BackendGoogle    = "google"
	BackendDashScope = "dashscope"
)

type Config struct {
	Backend    string        `mapstructure:"backend"`
	Model      string        `mapstructure:"model"`
	Voice      string        `mapstructure:"voice"`
	Language   string        `mapstructure:"language"`
	Format     string        `mapstructure:"format"`
	SampleRate int           `mapstructure:"sample_rate"`
	Speed      float64       `mapstructure:"speed"`
	Volume     float64       `mapstructure:"volume"` // backend unit, see tts.SynthesisOptions
	Pitch      float64       `mapstructure:"pitch"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Play       bool          `mapstructure:"play"`

	Log       LogConfig       `mapstructure:"log"`
	Coqui     CoquiConfig     `mapstructure:"coqui"`
	Yandex    YandexConfig    `mapstructure:"yandex"`
	Google    GoogleConfig    `mapstructure:"google"`
	DashScope DashScopeConfig `mapstructure:"dashscope"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CoquiConfig struct {
	Binary  string `mapstructure:"binary"`
	UseCUDA bool   `mapstructure:"use_cuda"`
}

type YandexConfig struct {
	APIKey   string `mapstructure:"api_key"`
	FolderID string `mapstructure:"folder_id"`
	Endpoint string `mapstructure:"endpoint"`
}

type GoogleConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

type DashScopeConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Endpoint  string `mapstructure:"endpoint"`
	Workspace string `mapstructure:"workspace"`
}

// Load builds the configuration from, in increasing priority: defaults,
// the config file, the environment (with .env loaded first) and flags.
// A missing default config file is fine; a missing explicit path is not.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("YUKITTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindVendorEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("yukitts")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()

	return &cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendCoqui)
	v.SetDefault("model", "")
	v.SetDefault("voice", "")
	v.SetDefault("language", "")
	v.SetDefault("format", "wav")
	v.SetDefault("sample_rate", 0)
	v.SetDefault("speed", 0.0)
	v.SetDefault("volume", 0.0)
	v.SetDefault("pitch", 0.0)
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("play", false)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")

	v.SetDefault("coqui.binary", "tts")
	v.SetDefault("coqui.use_cuda", false)

	v.SetDefault("yandex.api_key", "")
	v.SetDefault("yandex.folder_id", "")
	v.SetDefault("yandex.endpoint", "tts.api.cloud.yandex.net:443")

	v.SetDefault("google.credentials_file", "")

	v.SetDefault("dashscope.api_key", "")
	v.SetDefault("dashscope.endpoint", "wss://dashscope.aliyuncs.com/api-ws/v1/inference")
	v.SetDefault("dashscope.workspace", "")
}

// bindVendorEnv accepts the variable names the providers document alongside
// the YUKITTS_ prefixed ones.
func bindVendorEnv(v *viper.Viper) {
	_ = v.BindEnv("yandex.api_key", "YUKITTS_YANDEX_API_KEY", "YANDEX_API_KEY")
	_ = v.BindEnv("yandex.folder_id", "YUKITTS_YANDEX_FOLDER_ID", "YANDEX_FOLDER_ID")
	_ = v.BindEnv("dashscope.api_key", "YUKITTS_DASHSCOPE_API_KEY", "DASHSCOPE_API_KEY")
	_ = v.BindEnv("log.level", "YUKITTS_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "YUKITTS_LOG_FORMAT", "LOG_FORMAT")
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, name := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

var flagKeys = map[string]string{
	"backend":  "backend",
	"model":    "model",
	"voice":    "voice",
	"language": "language",
	"format":   "format",
	"timeout":  "timeout",
	"play":     "play",
}

func (c *Config) normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Yandex.APIKey = strings.TrimSpace(c.Yandex.APIKey)
	c.DashScope.APIKey = strings.TrimSpace(c.DashScope.APIKey)
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendCoqui, BackendYandex, BackendGoogle, BackendDashScope:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	switch c.Format {
	case "wav", "mp3", "ogg":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	if c.Backend == BackendCoqui && c.Format != "wav" {
		return fmt.Errorf("backend coqui only writes wav, got %q", c.Format)
	}

	if c.Timeout < 0 {
		return errors.New("timeout must be non-negative")
	}
	if c.SampleRate < 0 {
		return errors.New("sample_rate must be non-negative")
	}

	switch c.Backend {
	case BackendYandex:
		if c.Yandex.APIKey == "" {
			return errors.New("yandex.api_key is required (YANDEX_API_KEY)")
		}
	case BackendDashScope:
		if c.DashScope.APIKey == "" {
			return errors.New("dashscope.api_key is required (DASHSCOPE_API_KEY)")
		}
	}
	return nil
}
