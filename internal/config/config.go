package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix 环境变量前缀，例如 SSR_REPOSITORY_PATH 覆盖 repository.path。
	EnvPrefix = "SSR"

	DefaultRepositoryPath = "~/.local/share/save-restore/repository"
	DefaultBranch         = "master"
	DefaultIdentityName   = "unknown"
	DefaultEmail          = "saverestore@localhost"
	DefaultCommitterName  = "save-restore"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultCacheSize      = 256
	DefaultBackoff        = 2 * time.Second
)

type RepositoryConfig struct {
	Path          string `mapstructure:"path" json:"path" yaml:"path"`
	Remote        string `mapstructure:"remote" json:"remote" yaml:"remote"`
	DefaultBranch string `mapstructure:"default_branch" json:"default_branch" yaml:"default_branch"`
	AutoPush      bool   `mapstructure:"auto_push" json:"auto_push" yaml:"auto_push"`
}

type IdentityConfig struct {
	Name  string `mapstructure:"name" json:"name" yaml:"name"`
	Email string `mapstructure:"email" json:"email" yaml:"email"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`
	Format string `mapstructure:"format" json:"format" yaml:"format"`
}

type CacheConfig struct {
	Size int `mapstructure:"size" json:"size" yaml:"size"`
}

type TransportConfig struct {
	Backoff time.Duration `mapstructure:"backoff" json:"backoff" yaml:"backoff"`
}

// Config 是 ssr 的全部配置。
type Config struct {
	Repository RepositoryConfig `mapstructure:"repository" json:"repository" yaml:"repository"`
	Identity   IdentityConfig   `mapstructure:"identity" json:"identity" yaml:"identity"`
	Committer  IdentityConfig   `mapstructure:"committer" json:"committer" yaml:"committer"`
	Log        LogConfig        `mapstructure:"log" json:"log" yaml:"log"`
	Cache      CacheConfig      `mapstructure:"cache" json:"cache" yaml:"cache"`
	Transport  TransportConfig  `mapstructure:"transport" json:"transport" yaml:"transport"`
}

var defaults = map[string]any{
	"repository.path":           DefaultRepositoryPath,
	"repository.remote":         "",
	"repository.default_branch": DefaultBranch,
	"repository.auto_push":      false,
	"identity.name":             DefaultIdentityName,
	"identity.email":            DefaultEmail,
	"committer.name":            DefaultCommitterName,
	"committer.email":           DefaultEmail,
	"log.level":                 DefaultLogLevel,
	"log.format":                DefaultLogFormat,
	"cache.size":                DefaultCacheSize,
	"transport.backoff":         DefaultBackoff.String(),
}

// Keys 返回所有支持的配置键，按字母排序。
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "save-restore"), nil
}

func File() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load 读取默认位置的配置文件。
func Load() (Config, error) {
	configFile, err := File()
	if err != nil {
		return Config{}, err
	}
	return LoadFrom(configFile)
}

// LoadFrom 读取 configFile；文件不存在时使用默认值。环境变量优先于文件。
func LoadFrom(configFile string) (Config, error) {
	v, err := newViper(configFile)
	if err != nil {
		return Config{}, err
	}
	return decode(v)
}

func newViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	return v, nil
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Save 把配置写到默认位置。
func Save(cfg Config) error {
	configFile, err := File()
	if err != nil {
		return err
	}
	return SaveTo(configFile, cfg)
}

// SaveTo writes every key of cfg to configFile, creating its directory.
func SaveTo(configFile string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("repository.path", cfg.Repository.Path)
	v.Set("repository.remote", cfg.Repository.Remote)
	v.Set("repository.default_branch", cfg.Repository.DefaultBranch)
	v.Set("repository.auto_push", cfg.Repository.AutoPush)
	v.Set("identity.name", cfg.Identity.Name)
	v.Set("identity.email", cfg.Identity.Email)
	v.Set("committer.name", cfg.Committer.Name)
	v.Set("committer.email", cfg.Committer.Email)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("cache.size", cfg.Cache.Size)
	v.Set("transport.backoff", cfg.Transport.Backoff.String())

	return v.WriteConfigAs(configFile)
}

// SetValue 修改 configFile 中的一个键，写回前校验新配置。
func SetValue(configFile, key, value string) (Config, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if _, ok := defaults[key]; !ok {
		return Config{}, fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	v, err := newViper(configFile)
	if err != nil {
		return Config{}, err
	}
	v.Set(key, value)
	cfg, err := decode(v)
	if err != nil {
		return Config{}, err
	}
	if issues := ValidateConfig(&cfg); len(issues) > 0 {
		return Config{}, fmt.Errorf("invalid config: %s", strings.Join(issues, "; "))
	}
	return cfg, SaveTo(configFile, cfg)
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"console", "structured"}
)

// ValidateConfig 校验配置，返回可读的问题列表；为空表示配置有效。
func ValidateConfig(cfg *Config) []string {
	issues := make([]string, 0)
	if cfg == nil {
		return append(issues, "config is nil")
	}

	if strings.TrimSpace(cfg.Repository.Path) == "" {
		issues = append(issues, "repository.path must not be empty")
	}
	if strings.TrimSpace(cfg.Repository.DefaultBranch) == "" {
		issues = append(issues, "repository.default_branch must not be empty")
	}
	if remote := strings.TrimSpace(cfg.Repository.Remote); remote != "" && !isRemote(remote) {
		issues = append(issues, fmt.Sprintf("repository.remote %q is neither a URL nor a path", remote))
	}
	if cfg.Repository.AutoPush && strings.TrimSpace(cfg.Repository.Remote) == "" {
		issues = append(issues, "repository.auto_push requires repository.remote")
	}
	for key, email := range map[string]string{"identity.email": cfg.Identity.Email, "committer.email": cfg.Committer.Email} {
		if email != "" && !strings.Contains(email, "@") {
			issues = append(issues, fmt.Sprintf("invalid email format for %s: %s", key, email))
		}
	}
	if !slices.Contains(logLevels, cfg.Log.Level) {
		issues = append(issues, fmt.Sprintf("log.level must be one of %s, got %q", strings.Join(logLevels, "|"), cfg.Log.Level))
	}
	if !slices.Contains(logFormats, cfg.Log.Format) {
		issues = append(issues, fmt.Sprintf("log.format must be one of %s, got %q", strings.Join(logFormats, "|"), cfg.Log.Format))
	}
	if cfg.Cache.Size < 0 {
		issues = append(issues, fmt.Sprintf("cache.size must be >= 0, got %d", cfg.Cache.Size))
	}
	if cfg.Transport.Backoff < 0 {
		issues = append(issues, fmt.Sprintf("transport.backoff must be >= 0, got %s", cfg.Transport.Backoff))
	}
	slices.Sort(issues)
	return issues
}

func isRemote(s string) bool {
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "~") || strings.HasPrefix(s, ".") {
		return true
	}
	// scp 风格：git@host:path
	if at, colon := strings.Index(s, "@"), strings.Index(s, ":"); at > 0 && colon > at {
		return true
	}
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && (u.Host != "" || u.Scheme == "file")
}
