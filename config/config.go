package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/providers"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	ConfigFileName = "codecompanion-config"
	envFileName    = ".env"
)

// Config represents the structure of the configuration file
type Config struct {
	Version            string                      `mapstructure:"version"`
	Theme              string                      `mapstructure:"theme"`
	MaxFiles           int                         `mapstructure:"max_files"`
	MaxFileSizeMB      int                         `mapstructure:"max_file_size_mb"`
	LargeFileWarnMB    int                         `mapstructure:"large_file_warn_mb"`
	CacheSize          int                         `mapstructure:"cache_size"`
	CachePolicy        string                      `mapstructure:"cache_policy"`
	ContextMaxFiles    int                         `mapstructure:"context_max_files"`
	ContextMaxChars    int                         `mapstructure:"context_max_chars"`
	MaxHistoryMessages int                         `mapstructure:"max_history_messages"`
	MinRequestInterval time.Duration               `mapstructure:"min_request_interval"`
	StreamThrottle     time.Duration               `mapstructure:"stream_throttle"`
	RequestTimeout     time.Duration               `mapstructure:"request_timeout"`
	StreamTimeout      time.Duration               `mapstructure:"stream_timeout"`
	HistoryDB          string                      `mapstructure:"history_db"`
	LogFile            string                      `mapstructure:"log_file"`
	LogLevel           string                      `mapstructure:"log_level"`
	Watch              bool                        `mapstructure:"watch"`
	AIProviderConfig   *providers.AIProviderConfig `mapstructure:"ai_provider_config"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:            "1.0.0",
	Theme:              "dracula",
	MaxFiles:           1000,
	MaxFileSizeMB:      5,
	LargeFileWarnMB:    1,
	CacheSize:          50,
	CachePolicy:        "fifo",
	ContextMaxFiles:    3,
	ContextMaxChars:    5000,
	MaxHistoryMessages: 20,
	MinRequestInterval: time.Second,
	StreamThrottle:     100 * time.Millisecond,
	RequestTimeout:     30 * time.Second,
	StreamTimeout:      120 * time.Second,
	HistoryDB:          "~/.codecompanion/history.db",
	LogFile:            "~/.codecompanion/companion.log",
	LogLevel:           "info",
	Watch:              false,
	AIProviderConfig: &providers.AIProviderConfig{
		Provider:    "openrouter",
		BaseURL:     "https://openrouter.ai/api/v1",
		Model:       "x-ai/grok-3-fast",
		Temperature: 0.7,
		MaxTokens:   4000,
		Stream:      true,
		ApiKey:      "",
	},
}

// settingKind tells SaveSetting how to parse a value typed on the command line.
type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
)

var settings = map[string]settingKind{
	"theme":                          kindString,
	"max_files":                      kindInt,
	"max_file_size_mb":               kindInt,
	"large_file_warn_mb":             kindInt,
	"cache_size":                     kindInt,
	"cache_policy":                   kindString,
	"context_max_files":              kindInt,
	"context_max_chars":              kindInt,
	"max_history_messages":           kindInt,
	"min_request_interval":           kindDuration,
	"stream_throttle":                kindDuration,
	"request_timeout":                kindDuration,
	"stream_timeout":                 kindDuration,
	"history_db":                     kindString,
	"log_file":                       kindString,
	"log_level":                      kindString,
	"watch":                          kindBool,
	"ai_provider_config.provider":    kindString,
	"ai_provider_config.base_url":    kindString,
	"ai_provider_config.model":       kindString,
	"ai_provider_config.temperature": kindFloat,
	"ai_provider_config.max_tokens":  kindInt,
	"ai_provider_config.stream":      kindBool,
	"ai_provider_config.api_key":     kindString,
}

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs initializes the configuration from defaults, .env, environment
// variables, the config file and flags, in increasing priority. rootCmd may
// be nil.
func LoadConfigs(rootCmd *cobra.Command, cwd string) (*Config, error) {
	v, err := newViper(rootCmd, cwd)
	if err != nil {
		return nil, err
	}

	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w: %w", apperr.ErrInvalidArgument, err)
	}

	config.HistoryDB = ExpandHome(config.HistoryDB)
	config.LogFile = ExpandHome(config.LogFile)

	if err := validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

func newViper(rootCmd *cobra.Command, cwd string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(filepath.Join(cwd, envFileName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w: %w", envFileName, apperr.ErrIO, err)
	}

	v.AutomaticEnv()
	bindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w: %w", cfgFile, apperr.ErrIO, err)
		}
	} else {
		v.SetConfigName(ConfigFileName)
		v.AddConfigPath(cwd)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w: %w", apperr.ErrIO, err)
			}
		}
	}

	if rootCmd != nil {
		bindFlags(v, rootCmd)
	}
	return v, nil
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", DefaultConfig.Version)
	v.SetDefault("theme", DefaultConfig.Theme)
	v.SetDefault("max_files", DefaultConfig.MaxFiles)
	v.SetDefault("max_file_size_mb", DefaultConfig.MaxFileSizeMB)
	v.SetDefault("large_file_warn_mb", DefaultConfig.LargeFileWarnMB)
	v.SetDefault("cache_size", DefaultConfig.CacheSize)
	v.SetDefault("cache_policy", DefaultConfig.CachePolicy)
	v.SetDefault("context_max_files", DefaultConfig.ContextMaxFiles)
	v.SetDefault("context_max_chars", DefaultConfig.ContextMaxChars)
	v.SetDefault("max_history_messages", DefaultConfig.MaxHistoryMessages)
	v.SetDefault("min_request_interval", DefaultConfig.MinRequestInterval)
	v.SetDefault("stream_throttle", DefaultConfig.StreamThrottle)
	v.SetDefault("request_timeout", DefaultConfig.RequestTimeout)
	v.SetDefault("stream_timeout", DefaultConfig.StreamTimeout)
	v.SetDefault("history_db", DefaultConfig.HistoryDB)
	v.SetDefault("log_file", DefaultConfig.LogFile)
	v.SetDefault("log_level", DefaultConfig.LogLevel)
	v.SetDefault("watch", DefaultConfig.Watch)
	v.SetDefault("ai_provider_config.provider", DefaultConfig.AIProviderConfig.Provider)
	v.SetDefault("ai_provider_config.base_url", DefaultConfig.AIProviderConfig.BaseURL)
	v.SetDefault("ai_provider_config.model", DefaultConfig.AIProviderConfig.Model)
	v.SetDefault("ai_provider_config.temperature", DefaultConfig.AIProviderConfig.Temperature)
	v.SetDefault("ai_provider_config.max_tokens", DefaultConfig.AIProviderConfig.MaxTokens)
	v.SetDefault("ai_provider_config.stream", DefaultConfig.AIProviderConfig.Stream)
	v.SetDefault("ai_provider_config.api_key", DefaultConfig.AIProviderConfig.ApiKey)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("theme", "THEME")
	_ = v.BindEnv("cache_policy", "CACHE_POLICY")
	_ = v.BindEnv("history_db", "HISTORY_DB")
	_ = v.BindEnv("log_file", "LOG_FILE")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("ai_provider_config.provider", "PROVIDER")
	_ = v.BindEnv("ai_provider_config.base_url", "BASE_URL")
	_ = v.BindEnv("ai_provider_config.model", "MODEL")
	_ = v.BindEnv("ai_provider_config.temperature", "TEMPERATURE")
	_ = v.BindEnv("ai_provider_config.max_tokens", "MAX_TOKENS")
	_ = v.BindEnv("ai_provider_config.api_key", "API_KEY", "OPENROUTER_API_KEY")
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(v *viper.Viper, rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	_ = v.BindPFlag("theme", flags.Lookup("theme"))
	_ = v.BindPFlag("watch", flags.Lookup("watch"))
	_ = v.BindPFlag("log_level", flags.Lookup("log_level"))
	_ = v.BindPFlag("cache_policy", flags.Lookup("cache_policy"))
	_ = v.BindPFlag("ai_provider_config.provider", flags.Lookup("provider"))
	_ = v.BindPFlag("ai_provider_config.base_url", flags.Lookup("base_url"))
	_ = v.BindPFlag("ai_provider_config.model", flags.Lookup("model"))
	_ = v.BindPFlag("ai_provider_config.temperature", flags.Lookup("temperature"))
	_ = v.BindPFlag("ai_provider_config.max_tokens", flags.Lookup("max_tokens"))
	_ = v.BindPFlag("ai_provider_config.api_key", flags.Lookup("api_key"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Set customize theme for rendering responses and previews. (e.g., 'dracula', 'monokai', 'github')")
	rootCmd.PersistentFlags().Bool("watch", DefaultConfig.Watch, "Watch the opened folder and refresh cached file contents when files change.")
	rootCmd.PersistentFlags().String("log_level", DefaultConfig.LogLevel, "Diagnostic log level (debug, info, warn, error).")
	rootCmd.PersistentFlags().String("cache_policy", DefaultConfig.CachePolicy, "Content cache eviction policy: 'fifo' or 'lru'.")

	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")

	// AI Provider configuration
	rootCmd.PersistentFlags().String("provider", DefaultConfig.AIProviderConfig.Provider, "The name of the AI provider ('openrouter' or 'ollama').")
	rootCmd.PersistentFlags().String("base_url", DefaultConfig.AIProviderConfig.BaseURL, "The base URL of AI Provider (e.g., default is 'https://openrouter.ai/api/v1').")
	rootCmd.PersistentFlags().String("model", DefaultConfig.AIProviderConfig.Model, "The name of the model used for chat completions, such as 'x-ai/grok-3-fast'.")
	rootCmd.PersistentFlags().Float32("temperature", DefaultConfig.AIProviderConfig.Temperature, "Adjusts the AI model's creativity (0-2).")
	rootCmd.PersistentFlags().Int("max_tokens", DefaultConfig.AIProviderConfig.MaxTokens, "Upper bound on tokens generated per response.")
	rootCmd.PersistentFlags().String("api_key", DefaultConfig.AIProviderConfig.ApiKey, "The API key used to authenticate with the AI service provider.")
}

// GetConfigFileType returns the type of the configuration file based on its extension
func GetConfigFileType(filename string) string {
	if strings.HasSuffix(filename, ".json") {
		return "json"
	} else if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return "yaml"
	}
	return ""
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func validate(config *Config) error {
	switch strings.ToLower(config.CachePolicy) {
	case "fifo", "lru":
	default:
		return fmt.Errorf("cache_policy must be 'fifo' or 'lru', got %q: %w", config.CachePolicy, apperr.ErrInvalidArgument)
	}
	if config.AIProviderConfig == nil {
		return fmt.Errorf("missing ai_provider_config: %w", apperr.ErrInvalidArgument)
	}
	if t := config.AIProviderConfig.Temperature; t < 0 || t > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v: %w", t, apperr.ErrInvalidArgument)
	}
	return nil
}

// SettingKeys lists the keys accepted by GetSetting and SaveSetting.
func SettingKeys() []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetSetting returns the effective value of one key.
func GetSetting(rootCmd *cobra.Command, cwd string, key string) (any, error) {
	if _, ok := settings[key]; !ok {
		return nil, unknownSetting(key)
	}
	v, err := newViper(rootCmd, cwd)
	if err != nil {
		return nil, err
	}
	return v.Get(key), nil
}

// ListSettings returns the effective value of every known key. The api key
// is masked.
func ListSettings(rootCmd *cobra.Command, cwd string) (map[string]string, error) {
	v, err := newViper(rootCmd, cwd)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(settings))
	for key := range settings {
		value := cast.ToString(v.Get(key))
		if key == "ai_provider_config.api_key" {
			value = MaskSecret(value)
		}
		out[key] = value
	}
	return out, nil
}

// SaveSetting parses value for key and writes it to the config file,
// keeping whatever else the file already holds. It returns the file path.
func SaveSetting(cwd string, key string, value string) (string, error) {
	kind, ok := settings[key]
	if !ok {
		return "", unknownSetting(key)
	}

	parsed, err := parseSetting(kind, value)
	if err != nil {
		return "", fmt.Errorf("invalid value %q for %s: %w: %w", value, key, apperr.ErrInvalidArgument, err)
	}

	path := cfgFile
	if path == "" {
		path = findConfigFile(cwd)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("error reading config file %s: %w: %w", path, apperr.ErrIO, err)
		}
	}

	v.Set(key, parsed)
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write %s: %w: %w", path, apperr.ErrIO, err)
	}
	return path, nil
}

// findConfigFile returns the existing config file in cwd, or the yaml one
// to create.
func findConfigFile(cwd string) string {
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		candidate := filepath.Join(cwd, ConfigFileName+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return filepath.Join(cwd, ConfigFileName+".yaml")
}

func parseSetting(kind settingKind, value string) (any, error) {
	switch kind {
	case kindInt:
		return cast.ToIntE(value)
	case kindFloat:
		return cast.ToFloat32E(value)
	case kindBool:
		return cast.ToBoolE(value)
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, err
		}
		return d.String(), nil
	}
	return value, nil
}

func unknownSetting(key string) error {
	return fmt.Errorf("unknown setting %q: %w", key, apperr.ErrInvalidArgument)
}

// MaskSecret keeps the first and last four characters of a secret.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
