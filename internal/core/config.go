// Package core holds the vibery configuration. The installer engine lives
// in the subpackages; this package has zero UI dependencies.
package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configDirName  = ".vibery"
	configFileName = "config.yaml"
	envPrefix      = "VIBERY"
	envFileName    = ".env"
)

// Config is the resolved vibery configuration. Values come from, in
// increasing priority: defaults, ~/.vibery/config.yaml, a project .env
// file and VIBERY_* environment variables.
type Config struct {
	RepoOwner    string        `mapstructure:"repo_owner"`
	RepoName     string        `mapstructure:"repo_name"`
	Branch       string        `mapstructure:"branch"`
	BaseURL      string        `mapstructure:"base_url"`
	APIURL       string        `mapstructure:"api_url"`
	GitHubToken  string        `mapstructure:"github_token"`
	CacheDir     string        `mapstructure:"cache_dir"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	TemplatesDir string        `mapstructure:"templates_dir"`
	KitInstaller string        `mapstructure:"kit_installer"`
	Offline      bool          `mapstructure:"offline"`
}

var defaults = map[string]any{
	"repo_owner":    "vibery-studio",
	"repo_name":     "viberycli",
	"branch":        "main",
	"base_url":      "",
	"api_url":       "",
	"github_token":  "",
	"cache_dir":     "",
	"cache_ttl":     time.Hour,
	"templates_dir": "",
	"kit_installer": "",
	"offline":       false,
}

// ConfigManager loads the vibery configuration.
type ConfigManager struct {
	configDir string
	envFile   string
}

// NewConfigManager creates a ConfigManager using the default config path
// (~/.vibery/) and the .env file of the current directory.
func NewConfigManager() (*ConfigManager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	return &ConfigManager{
		configDir: filepath.Join(home, configDirName),
		envFile:   envFileName,
	}, nil
}

// NewConfigManagerWithDir creates a ConfigManager using a custom config
// directory and env file. An empty envFile disables .env loading.
func NewConfigManagerWithDir(dir, envFile string) *ConfigManager {
	return &ConfigManager{configDir: dir, envFile: envFile}
}

// ConfigDir returns the configuration directory path.
func (cm *ConfigManager) ConfigDir() string {
	return cm.configDir
}

// ConfigPath returns the full path to the config file.
func (cm *ConfigManager) ConfigPath() string {
	return filepath.Join(cm.configDir, configFileName)
}

// DefaultCacheDir is the cache location when none is configured.
func (cm *ConfigManager) DefaultCacheDir() string {
	return filepath.Join(cm.configDir, "cache")
}

// Load resolves the configuration. A missing config file or .env file is
// not an error.
func (cm *ConfigManager) Load() (*Config, error) {
	if cm.envFile != "" {
		// godotenv never overrides variables already set in the environment.
		if err := godotenv.Load(cm.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", cm.envFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("github_token", "VIBERY_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("binding token variables: %w", err)
	}

	if _, err := os.Stat(cm.ConfigPath()); err == nil {
		v.SetConfigFile(cm.ConfigPath())
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = cm.DefaultCacheDir()
	}
	cfg.CacheDir = expandHome(cfg.CacheDir)
	cfg.TemplatesDir = expandHome(cfg.TemplatesDir)
	cfg.KitInstaller = expandHome(cfg.KitInstaller)
	return &cfg, nil
}

// expandHome expands a leading ~ to the home directory.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
