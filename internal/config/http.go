package config

import (
	"github.com/spf13/viper"
)

type HTTP struct {
	Addr          string
	UploadDir     string
	MaxUploadSize int64
	CORSOrigins   []string
}

const (
	Cfg_http_addr          = "http.addr"
	Cfg_http_uploadDir     = "http.uploadDir"
	Cfg_http_maxUploadSize = "http.maxUploadSize"
	Cfg_http_corsOrigins   = "http.corsOrigins"
)

var (
	httpDefaults = map[string]interface{}{
		Cfg_http_addr:          ":3001",
		Cfg_http_uploadDir:     "uploads",
		Cfg_http_maxUploadSize: 32 << 20,
		Cfg_http_corsOrigins:   []string{"*"},
	}
)

func init() {
	for k, v := range httpDefaults {
		viper.SetDefault(k, v)
	}
}

func buildHTTPConfig() (*HTTP, error) {
	c := &HTTP{}

	c.Addr = viper.GetString(Cfg_http_addr)
	c.UploadDir = viper.GetString(Cfg_http_uploadDir)
	c.MaxUploadSize = viper.GetInt64(Cfg_http_maxUploadSize)
	c.CORSOrigins = viper.GetStringSlice(Cfg_http_corsOrigins)

	return c, nil
}
