package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/letsgo-sh/ops/pkg/log"
	"github.com/letsgo-sh/ops/pkg/naming"
	"github.com/letsgo-sh/ops/pkg/task"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. LETSGO_REGION or LETSGO_AWS_PROFILE.
const EnvPrefix = "LETSGO"

var (
	// DefaultRegion is used when no region is configured.
	DefaultRegion = "us-west-2"
	// DefaultDeployment is used when no deployment is configured.
	DefaultDeployment = "main"
)

type Naming struct {
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

type AWS struct {
	Profile         string `mapstructure:"profile" yaml:"profile"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
}

type Teardown struct {
	MaxParallel          int           `mapstructure:"max_parallel" yaml:"max_parallel"`
	ServiceDeleteTimeout time.Duration `mapstructure:"service_delete_timeout" yaml:"service_delete_timeout"`
	TableDeleteTimeout   time.Duration `mapstructure:"table_delete_timeout" yaml:"table_delete_timeout"`
	PollInterval         time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

type Metrics struct {
	// File, when set, receives metrics in the node exporter textfile format
	// after every run.
	File string `mapstructure:"file" yaml:"file"`
}

type Config struct {
	Region     string           `mapstructure:"region" yaml:"region"`
	Deployment string           `mapstructure:"deployment" yaml:"deployment"`
	Naming     Naming           `mapstructure:"naming" yaml:"naming"`
	AWS        AWS              `mapstructure:"aws" yaml:"aws"`
	Retry      task.RetryPolicy `mapstructure:"retry" yaml:"retry"`
	Teardown   Teardown         `mapstructure:"teardown" yaml:"teardown"`
	Log        log.Config       `mapstructure:"log" yaml:"log"`
	Metrics    Metrics          `mapstructure:"metrics" yaml:"metrics"`
}

func Default() *Config {
	return &Config{
		Region:     DefaultRegion,
		Deployment: DefaultDeployment,
		Naming:     Naming{Prefix: naming.DefaultPrefix},
		Retry:      task.DefaultRetryPolicy(),
		Teardown: Teardown{
			MaxParallel:          8,
			ServiceDeleteTimeout: 15 * time.Minute,
			TableDeleteTimeout:   5 * time.Minute,
			PollInterval:         10 * time.Second,
		},
		Log: *log.DefaultConfig(),
	}
}

// SetDefaults registers every key with its default value so that
// environment variables are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("region", d.Region)
	v.SetDefault("deployment", d.Deployment)
	v.SetDefault("naming.prefix", d.Naming.Prefix)
	v.SetDefault("aws.profile", d.AWS.Profile)
	v.SetDefault("aws.endpoint", d.AWS.Endpoint)
	v.SetDefault("aws.access_key_id", d.AWS.AccessKeyID)
	v.SetDefault("aws.secret_access_key", d.AWS.SecretAccessKey)
	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.initial_delay", d.Retry.InitialDelay)
	v.SetDefault("retry.max_delay", d.Retry.MaxDelay)
	v.SetDefault("retry.multiplier", d.Retry.BackoffMultiplier)
	v.SetDefault("teardown.max_parallel", d.Teardown.MaxParallel)
	v.SetDefault("teardown.service_delete_timeout", d.Teardown.ServiceDeleteTimeout)
	v.SetDefault("teardown.table_delete_timeout", d.Teardown.TableDeleteTimeout)
	v.SetDefault("teardown.poll_interval", d.Teardown.PollInterval)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.no_color", d.Log.NoColor)
	v.SetDefault("metrics.file", d.Metrics.File)
}

// BindEnv makes LETSGO_* environment variables override config keys.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// DefaultConfigDir returns $HOME/.letsgo.
func DefaultConfigDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		return ".letsgo"
	}
	return filepath.Join(home, ".letsgo")
}

// Load reads the config file at path, or config.yaml from the default
// directory when path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigDir())
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values a run cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Region) == "" {
		errs = append(errs, errors.New("region is required"))
	}
	if strings.TrimSpace(c.Deployment) == "" {
		errs = append(errs, errors.New("deployment is required"))
	} else if err := naming.ValidateName("deployment", c.Deployment); err != nil {
		errs = append(errs, err)
	}
	if c.Naming.Prefix != "" {
		if err := naming.ValidateName("prefix", c.Naming.Prefix); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Teardown.MaxParallel < 0 {
		errs = append(errs, fmt.Errorf("teardown.max_parallel must not be negative, got %d", c.Teardown.MaxParallel))
	}
	if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
		errs = append(errs, errors.New("aws.access_key_id and aws.secret_access_key must be set together"))
	}
	if err := c.Retry.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
