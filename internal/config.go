package internal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration keys. Environment variables use the COMPLETENESS_ prefix,
// e.g. COMPLETENESS_DATA_DIR.
const (
	KeyDataDir      = "data_dir"
	KeyBackend      = "backend"
	KeyPollInterval = "poll_interval"
	KeyPromptsFile  = "prompts_file"
	KeyLogFile      = "log_file"

	envPrefix           = "COMPLETENESS"
	DefaultPollInterval = 2 * time.Second
)

// Config is the resolved runtime configuration
type Config struct {
	Paths        DataPaths
	Backend      Backend
	PollInterval time.Duration
	PromptsFile  string
	LogFile      string
	// ConfigFile is the file that was read, empty when none was found
	ConfigFile string
}

// NewViper returns a viper instance with defaults and environment binding
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDataDir, "")
	v.SetDefault(KeyBackend, string(BackendJSONL))
	v.SetDefault(KeyPollInterval, DefaultPollInterval)
	v.SetDefault(KeyPromptsFile, "")
	v.SetDefault(KeyLogFile, "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads configFile, or config.yaml from the data directory when
// configFile is empty, and resolves the final configuration. Flags bound to v
// take precedence over the environment, which takes precedence over the file.
func LoadConfig(v *viper.Viper, configFile string) (Config, error) {
	if v == nil {
		v = NewViper()
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		paths, err := DetectDataPaths(v.GetString(KeyDataDir))
		if err != nil {
			return Config{}, err
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(paths.BaseDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	paths, err := DetectDataPaths(v.GetString(KeyDataDir))
	if err != nil {
		return Config{}, err
	}
	backend, err := ParseBackend(v.GetString(KeyBackend))
	if err != nil {
		return Config{}, err
	}
	interval := v.GetDuration(KeyPollInterval)
	if interval <= 0 {
		return Config{}, &ValidationError{Field: KeyPollInterval, Msg: fmt.Sprintf("must be positive, got %s", interval)}
	}

	cfg := Config{
		Paths:        paths,
		Backend:      backend,
		PollInterval: interval,
		PromptsFile:  v.GetString(KeyPromptsFile),
		LogFile:      v.GetString(KeyLogFile),
		ConfigFile:   v.ConfigFileUsed(),
	}
	if cfg.ConfigFile != "" {
		LogDebug("Loaded config from %s", cfg.ConfigFile)
	}
	return cfg, nil
}
