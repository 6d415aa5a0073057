// Package config loads settings with precedence file > environment > defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable, e.g. POLLROOM_HTTP_PORT.
const EnvPrefix = "POLLROOM"

// FileEnvVar names the environment variable holding the config file path.
const FileEnvVar = "POLLROOM_CONFIG_FILE"

type Config struct {
	HTTP       HTTPConfig       `envconfig:"HTTP"`
	WebSocket  WebSocketConfig  `envconfig:"WEBSOCKET"`
	Poll       PollConfig       `envconfig:"POLL"`
	Chat       ChatConfig       `envconfig:"CHAT"`
	Moderation ModerationConfig `envconfig:"MODERATION"`
	Archive    ArchiveConfig    `envconfig:"ARCHIVE"`
	Log        LogConfig        `envconfig:"LOG"`
}

type HTTPConfig struct {
	Host         string        `validate:"required"`
	Port         int           `validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `split_words:"true" validate:"gt=0"`
	WriteTimeout time.Duration `split_words:"true" validate:"gt=0"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `split_words:"true" validate:"gt=0"`
	ReadTimeout    time.Duration `split_words:"true" validate:"gt=0"`
	WriteTimeout   time.Duration `split_words:"true" validate:"gt=0"`
	BufferSize     int           `split_words:"true" validate:"min=1"`
	MaxMessageSize int64         `split_words:"true" validate:"min=1"`
	AllowedOrigins []string      `split_words:"true"`
}

// PollConfig bounds the time limit a poll creator may ask for.
type PollConfig struct {
	DefaultTimeLimit time.Duration `split_words:"true" validate:"gt=0"`
	MinTimeLimit     time.Duration `split_words:"true" validate:"gt=0"`
	MaxTimeLimit     time.Duration `split_words:"true" validate:"gt=0"`
}

type ChatConfig struct {
	RateLimitPerMinute int `split_words:"true" validate:"min=1"`
	MaxLength          int `split_words:"true" validate:"min=1"`
}

// ModerationConfig holds the static ban list. It is ignored unless
// EnforceBans is set.
type ModerationConfig struct {
	EnforceBans    bool     `split_words:"true"`
	BannedStudents []string `split_words:"true"`
}

type ArchiveConfig struct {
	Enabled bool
	Path    string        `validate:"required_if=Enabled true"`
	Timeout time.Duration `validate:"gt=0"`
}

type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json text"`
}

func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		WebSocket: WebSocketConfig{
			PingInterval:   30 * time.Second,
			ReadTimeout:    60 * time.Second,
			WriteTimeout:   10 * time.Second,
			BufferSize:     256,
			MaxMessageSize: 64 * 1024,
		},
		Poll: PollConfig{
			DefaultTimeLimit: 60 * time.Second,
			MinTimeLimit:     10 * time.Second,
			MaxTimeLimit:     300 * time.Second,
		},
		Chat: ChatConfig{
			RateLimitPerMinute: 30,
			MaxLength:          1000,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Path:    "./data/pollroom.db",
			Timeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var validate = validator.New()

// Validate checks field ranges and the ordering of the poll time limits.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	p := c.Poll
	if p.MinTimeLimit > p.MaxTimeLimit {
		return fmt.Errorf("poll min time limit %s exceeds max %s", p.MinTimeLimit, p.MaxTimeLimit)
	}
	if p.DefaultTimeLimit < p.MinTimeLimit || p.DefaultTimeLimit > p.MaxTimeLimit {
		return fmt.Errorf("poll default time limit %s must be within [%s, %s]", p.DefaultTimeLimit, p.MinTimeLimit, p.MaxTimeLimit)
	}
	return nil
}

// LoadFromEnv applies POLLROOM_* variables over the defaults. Unset
// variables keep their default.
func LoadFromEnv() (*Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, nil
}

// ConfigFile is the JSON layout of a config file. Durations are strings
// such as "30s".
type ConfigFile struct {
	HTTP       *HTTPConfigFile       `json:"http"`
	WebSocket  *WebSocketConfigFile  `json:"websocket"`
	Poll       *PollConfigFile       `json:"poll"`
	Chat       *ChatConfigFile       `json:"chat"`
	Moderation *ModerationConfigFile `json:"moderation"`
	Archive    *ArchiveConfigFile    `json:"archive"`
	Log        *LogConfigFile        `json:"log"`
}

type HTTPConfigFile struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
}

type WebSocketConfigFile struct {
	PingInterval   string   `json:"ping_interval"`
	ReadTimeout    string   `json:"read_timeout"`
	WriteTimeout   string   `json:"write_timeout"`
	BufferSize     int      `json:"buffer_size"`
	MaxMessageSize int64    `json:"max_message_size"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type PollConfigFile struct {
	DefaultTimeLimit string `json:"default_time_limit"`
	MinTimeLimit     string `json:"min_time_limit"`
	MaxTimeLimit     string `json:"max_time_limit"`
}

type ChatConfigFile struct {
	RateLimitPerMinute int `json:"rate_limit_per_minute"`
	MaxLength          int `json:"max_length"`
}

type ModerationConfigFile struct {
	EnforceBans    *bool    `json:"enforce_bans"`
	BannedStudents []string `json:"banned_students"`
}

type ArchiveConfigFile struct {
	Enabled *bool  `json:"enabled"`
	Path    string `json:"path"`
	Timeout string `json:"timeout"`
}

type LogConfigFile struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// LoadFromFile reads a JSON config file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := applyFile(cfg, path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// Load builds the effective configuration: defaults, then environment, then
// the file named by path when it is not empty.
func Load(path string) (*Config, error) {
	cfg, err := LoadFromEnv()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file ConfigFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	d := durationSetter{path: path}
	if f := file.HTTP; f != nil {
		setString(&cfg.HTTP.Host, f.Host)
		setInt(&cfg.HTTP.Port, f.Port)
		d.set(&cfg.HTTP.ReadTimeout, "http.read_timeout", f.ReadTimeout)
		d.set(&cfg.HTTP.WriteTimeout, "http.write_timeout", f.WriteTimeout)
	}
	if f := file.WebSocket; f != nil {
		d.set(&cfg.WebSocket.PingInterval, "websocket.ping_interval", f.PingInterval)
		d.set(&cfg.WebSocket.ReadTimeout, "websocket.read_timeout", f.ReadTimeout)
		d.set(&cfg.WebSocket.WriteTimeout, "websocket.write_timeout", f.WriteTimeout)
		setInt(&cfg.WebSocket.BufferSize, f.BufferSize)
		if f.MaxMessageSize > 0 {
			cfg.WebSocket.MaxMessageSize = f.MaxMessageSize
		}
		if f.AllowedOrigins != nil {
			cfg.WebSocket.AllowedOrigins = f.AllowedOrigins
		}
	}
	if f := file.Poll; f != nil {
		d.set(&cfg.Poll.DefaultTimeLimit, "poll.default_time_limit", f.DefaultTimeLimit)
		d.set(&cfg.Poll.MinTimeLimit, "poll.min_time_limit", f.MinTimeLimit)
		d.set(&cfg.Poll.MaxTimeLimit, "poll.max_time_limit", f.MaxTimeLimit)
	}
	if f := file.Chat; f != nil {
		setInt(&cfg.Chat.RateLimitPerMinute, f.RateLimitPerMinute)
		setInt(&cfg.Chat.MaxLength, f.MaxLength)
	}
	if f := file.Moderation; f != nil {
		if f.EnforceBans != nil {
			cfg.Moderation.EnforceBans = *f.EnforceBans
		}
		if f.BannedStudents != nil {
			cfg.Moderation.BannedStudents = f.BannedStudents
		}
	}
	if f := file.Archive; f != nil {
		if f.Enabled != nil {
			cfg.Archive.Enabled = *f.Enabled
		}
		setString(&cfg.Archive.Path, f.Path)
		d.set(&cfg.Archive.Timeout, "archive.timeout", f.Timeout)
	}
	if f := file.Log; f != nil {
		setString(&cfg.Log.Level, f.Level)
		setString(&cfg.Log.Format, f.Format)
	}
	return d.err
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// durationSetter keeps the first parse error so applyFile can report it once.
type durationSetter struct {
	path string
	err  error
}

func (d *durationSetter) set(dst *time.Duration, key, v string) {
	if v == "" || d.err != nil {
		return
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		d.err = fmt.Errorf("invalid duration for %s in %s: %w", key, d.path, err)
		return
	}
	*dst = parsed
}
