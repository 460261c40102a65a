package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tanq16/trickle/internal/utils"
)

type Config struct {
	SourceFile      string        `mapstructure:"source_file" yaml:"source_file"`
	Bandwidth       string        `mapstructure:"bandwidth" yaml:"bandwidth"`
	Threads         int           `mapstructure:"threads" yaml:"threads"`
	OutputDir       string        `mapstructure:"output_dir" yaml:"output_dir"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	ResponseTimeout time.Duration `mapstructure:"response_timeout" yaml:"response_timeout"`
	Retries         int           `mapstructure:"retries" yaml:"retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	UserAgent       string        `mapstructure:"user_agent" yaml:"user_agent"`
	S3Profile       string        `mapstructure:"s3_profile" yaml:"s3_profile"`
	S3Endpoint      string        `mapstructure:"s3_endpoint" yaml:"s3_endpoint"`
	Debug           bool          `mapstructure:"debug" yaml:"debug"`

	// BandwidthBPS is Bandwidth parsed into bytes per second, 0 when unbounded.
	BandwidthBPS int64 `mapstructure:"-" yaml:"-"`
}

// flag name for each config key
var flagKeys = map[string]string{
	"source_file":      "source",
	"bandwidth":        "bandwidth",
	"threads":          "threads",
	"output_dir":       "output",
	"connect_timeout":  "connect-timeout",
	"response_timeout": "response-timeout",
	"retries":          "retries",
	"retry_delay":      "retry-delay",
	"user_agent":       "user-agent",
	"s3_profile":       "s3-profile",
	"s3_endpoint":      "s3-endpoint",
	"debug":            "debug",
}

// Load layers defaults, an optional YAML file, TRICKLE_ env vars and any
// flags the user set, in increasing priority.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("source_file", "")
	v.SetDefault("bandwidth", "")
	v.SetDefault("threads", 1)
	v.SetDefault("output_dir", utils.DefaultOutputDir)
	v.SetDefault("connect_timeout", utils.DefaultConnectTimeout)
	v.SetDefault("response_timeout", time.Duration(0))
	v.SetDefault("retries", utils.DefaultMaxRetries)
	v.SetDefault("retry_delay", utils.DefaultRetryDelay)
	v.SetDefault("user_agent", utils.ToolUserAgent)
	v.SetDefault("s3_profile", "")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("debug", false)

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("TRICKLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("error binding flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.SourceFile) == "" {
		return errors.New("a source file is required (-f/--source)")
	}
	bps, err := utils.ParseBandwidth(c.Bandwidth)
	if err != nil {
		return err
	}
	c.BandwidthBPS = bps
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Threads)
	}
	if c.Retries < 1 {
		return fmt.Errorf("retries must be at least 1, got %d", c.Retries)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got %s", c.ConnectTimeout)
	}
	if c.ResponseTimeout < 0 {
		return fmt.Errorf("response timeout cannot be negative, got %s", c.ResponseTimeout)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative, got %s", c.RetryDelay)
	}
	if c.OutputDir == "" {
		c.OutputDir = utils.DefaultOutputDir
	}
	return nil
}
