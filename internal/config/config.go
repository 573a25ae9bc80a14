package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const envPrefix = "BOOKMARKER"

type (
	Config struct {
		Host           string          `mapstructure:"HOST"`
		Port           string          `mapstructure:"PORT"`
		GRPCPort       string          `mapstructure:"GRPC_PORT"`
		APITokenHash   string          `mapstructure:"API_TOKEN_HASH"`
		LogDevelopment bool            `mapstructure:"LOG_DEVELOPMENT"`
		Database       DatabaseOptions `mapstructure:"DATABASE"`
	}
)

// NewConfig reads the server configuration from BOOKMARKER_* environment
// variables and, when BOOKMARKER_CONFIG names one, a config file with a
// Database section. Invalid database options are fatal.
func NewConfig() (*Config, error) {
	v := viper.New()
	if path := os.Getenv(envPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", "1323")
	v.SetDefault("GRPC_PORT", "9000")
	v.SetDefault("API_TOKEN_HASH", "")
	v.SetDefault("LOG_DEVELOPMENT", false)
	v.SetDefault("DATABASE.CONNECTIONSTRING", "")
	v.SetDefault("DATABASE.MAXRETRYCOUNT", DefaultMaxRetryCount)
	v.SetDefault("DATABASE.COMMANDTIMEOUT", DefaultCommandTimeout)
	v.SetDefault("DATABASE.ENABLEDETAILEDERRORS", false)
	v.SetDefault("DATABASE.ENABLESENSITIVEDATALOGGING", false)
	v.SetDefault("DATABASE.POOLSIZE", DefaultPoolSize)
	v.SetDefault("DATABASE.AUTOMIGRATEONSTARTUP", true)

	envs := []string{
		"HOST", "PORT", "GRPC_PORT", "API_TOKEN_HASH", "LOG_DEVELOPMENT",
		"DATABASE.CONNECTIONSTRING", "DATABASE.MAXRETRYCOUNT", "DATABASE.COMMANDTIMEOUT",
		"DATABASE.ENABLEDETAILEDERRORS", "DATABASE.ENABLESENSITIVEDATALOGGING",
		"DATABASE.POOLSIZE", "DATABASE.AUTOMIGRATEONSTARTUP",
	}
	for _, key := range envs {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Database.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

func (c *Config) HTTPAddr() string {
	return c.Host + ":" + c.Port
}

func (c *Config) GRPCAddr() string {
	return c.Host + ":" + c.GRPCPort
}
