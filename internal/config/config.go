// Package config loads quill settings with Viper from a YAML file,
// QUILL_ environment variables and command-line flags.
//
// Keys are grouped by concern: blog (content and caching), server, watcher
// and log. Defaults are registered with SetDefaults so every key resolves
// even without a config file.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/quill/internal/errors"
	"github.com/conneroisu/quill/internal/logging"
)

// Config is the complete application configuration.
type Config struct {
	Blog    BlogConfig    `mapstructure:"blog" yaml:"blog"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Watcher WatcherConfig `mapstructure:"watcher" yaml:"watcher"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// BlogConfig controls the content collection.
type BlogConfig struct {
	// CacheMaxAge is the default Cache-Control max-age, in seconds.
	CacheMaxAge int    `mapstructure:"cache_max_age" yaml:"cache_max_age"`
	DataPath    string `mapstructure:"data_path" yaml:"data_path"`
	PageSize    int    `mapstructure:"page_size" yaml:"page_size"`
	Title       string `mapstructure:"title" yaml:"title"`
	Headline    string `mapstructure:"headline" yaml:"headline"`
	// Watch enables the filesystem watcher.
	Watch bool `mapstructure:"watch" yaml:"watch"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WatcherConfig controls change detection.
type WatcherConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default values.
const (
	DefaultCacheMaxAge = 86400
	DefaultDataPath    = "Data"
	DefaultPageSize    = 5
	DefaultTitle       = "Quill"
	DefaultHeadline    = "Just another markdown blog"
	DefaultHost        = "localhost"
	DefaultPort        = 5000
	DefaultDebounce    = 100 * time.Millisecond
)

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("blog.cache_max_age", DefaultCacheMaxAge)
	v.SetDefault("blog.data_path", DefaultDataPath)
	v.SetDefault("blog.page_size", DefaultPageSize)
	v.SetDefault("blog.title", DefaultTitle)
	v.SetDefault("blog.headline", DefaultHeadline)
	v.SetDefault("blog.watch", true)
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("watcher.debounce", DefaultDebounce)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// EnvKeyReplacer maps nested keys such as blog.page_size to
// QUILL_BLOG_PAGE_SIZE.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_", "-", "_")
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v. The data path is
// made absolute so watcher events and indexed paths agree.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "decode configuration")
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(config.Blog.DataPath)
	if err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "resolve data path")
	}
	config.Blog.DataPath = abs

	return &config, nil
}

// LoggerConfig converts the log section into a logger configuration.
func (c *Config) LoggerConfig() (*logging.LoggerConfig, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = c.Log.Format
	return lc, nil
}

// validateConfig validates configuration values
func validateConfig(config *Config) error {
	if err := validateBlogConfig(&config.Blog); err != nil {
		return invalid("blog", err)
	}
	if err := validateServerConfig(&config.Server); err != nil {
		return invalid("server", err)
	}
	if config.Watcher.Debounce < 0 {
		return invalid("watcher", fmt.Errorf("debounce %s must not be negative", config.Watcher.Debounce))
	}
	if err := validateLogConfig(&config.Log); err != nil {
		return invalid("log", err)
	}
	return nil
}

func invalid(section string, err error) error {
	return errors.WrapConfig(err, errors.ErrCodeConfigInvalid, section+" config").
		WithComponent("config").
		WithContext("section", section)
}

func validateBlogConfig(config *BlogConfig) error {
	if strings.TrimSpace(config.DataPath) == "" {
		return fmt.Errorf("data_path must not be empty")
	}
	if strings.ContainsRune(config.DataPath, 0) {
		return fmt.Errorf("data_path contains a NUL byte")
	}
	if config.PageSize <= 0 {
		return fmt.Errorf("page_size %d must be positive", config.PageSize)
	}
	if config.CacheMaxAge < 0 {
		return fmt.Errorf("cache_max_age %d must not be negative", config.CacheMaxAge)
	}
	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Port 0 lets the system pick a port, which tests rely on.
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", " "}
	for _, char := range dangerousChars {
		if strings.Contains(config.Host, char) {
			return fmt.Errorf("host contains invalid character %q", char)
		}
	}
	return nil
}

func validateLogConfig(config *LogConfig) error {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		return err
	}
	switch config.Format {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("unknown log format %q", config.Format)
	}
}
