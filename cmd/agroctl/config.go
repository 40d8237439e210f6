package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Ключи конфигурации (YAML и AGROCTL_*).
const (
	cfgKeyAPIURL   = "api_url"
	cfgKeyAPIToken = "api_token"
	cfgKeyTimeout  = "timeout"
	cfgKeyPageSize = "page_size"
	cfgKeyCACert   = "ca_cert"
	cfgKeyUser     = "user"

	envPrefix = "AGROCTL"
)

// cliConfig — итоговые параметры после слияния флагов, env и файла.
type cliConfig struct {
	APIURL   string
	APIToken string
	Timeout  time.Duration
	PageSize int
	CACert   string
	User     string
}

// loadConfig читает конфигурацию. Приоритет: флаг > AGROCTL_* > YAML > default.
// path — явный --config; пустой путь означает "без файла".
func loadConfig(path string, flags *pflag.FlagSet) (cliConfig, error) {
	v := viper.New()
	v.SetDefault(cfgKeyTimeout, 15*time.Second)
	v.SetDefault(cfgKeyPageSize, 10)
	v.SetDefault(cfgKeyUser, "agroctl")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		cfgKeyAPIURL:   "api-url",
		cfgKeyAPIToken: "api-token",
		cfgKeyTimeout:  "timeout",
		cfgKeyPageSize: "page-size",
	} {
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return cliConfig{}, fmt.Errorf("flag --%s: %w", flag, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cliConfig{}, fmt.Errorf("archivo de configuración %s: %w", path, err)
		}
	}

	cfg := cliConfig{
		APIURL:   strings.TrimRight(v.GetString(cfgKeyAPIURL), "/"),
		APIToken: v.GetString(cfgKeyAPIToken),
		Timeout:  v.GetDuration(cfgKeyTimeout),
		PageSize: v.GetInt(cfgKeyPageSize),
		CACert:   v.GetString(cfgKeyCACert),
		User:     v.GetString(cfgKeyUser),
	}
	if cfg.APIURL == "" {
		return cliConfig{}, errors.New("falta api_url (--api-url, AGROCTL_API_URL o archivo de configuración)")
	}
	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		return cliConfig{}, fmt.Errorf("page_size %d fuera del rango 1-100", cfg.PageSize)
	}
	return cfg, nil
}
