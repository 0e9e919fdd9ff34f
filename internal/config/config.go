package config

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tcfw/cognitechain/internal/utils/logging"
)

const (
	Cfg_verbose     = "verbose"
	Cfg_api_port    = "api_port"
	Cfg_daemon_addr = "daemon_addr"
)

var (
	defaults = map[string]interface{}{
		Cfg_verbose:     false,
		Cfg_api_port:    8080,
		Cfg_daemon_addr: "localhost:8080",
	}
)

func init() {
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
}

func GetConfig() (*Config, error) {
	viper.SetConfigType("yaml")
	viper.SetConfigName("cognitechain")
	viper.AddConfigPath("/etc/cognitechain/")
	viper.AddConfigPath("$HOME/.cognitechain")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("COGNITECHAIN")
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error
			logging.Entry().Warn("no config found")
		} else {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	return build()
}

func build() (*Config, error) {
	var err error
	c := &Config{}

	c.ledger, err = buildLedgerConfig()
	if err != nil {
		return nil, errors.Wrap(err, "ledger config")
	}

	c.http, err = buildHTTPConfig()
	if err != nil {
		return nil, errors.Wrap(err, "http config")
	}

	c.APIPort = viper.GetInt(Cfg_api_port)

	if viper.GetBool(Cfg_verbose) {
		logging.SetLevel(logrus.DebugLevel)
		logging.Entry().WithField("level", "debug").Debug("setting log level")
	}

	return c, nil
}

type Config struct {
	ledger *Ledger
	http   *HTTP

	APIPort int
}

func (c *Config) Ledger() *Ledger {
	return c.ledger
}

func (c *Config) HTTP() *HTTP {
	return c.http
}
