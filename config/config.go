// The Licensed Work is (c) 2022 Sygma
// SPDX-License-Identifier: LGPL-3.0-only

package config

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/imdario/mergo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	ConfigFlagName    = "config"
	KeyFlagName       = "key"
	ApiAddrFlagName   = "api-addr"
	LogLevelFlagName  = "log-level"
	FreshnessFlagName = "rate-freshness"
)

type EngineConfig struct {
	LogLevel                  string `mapstructure:"logLevel" default:"info"`
	ApiAddr                   string `mapstructure:"apiAddr" default:"127.0.0.1:8090"`
	HealthPort                uint16 `mapstructure:"healthPort" default:"9001"`
	Env                       string `mapstructure:"env" default:"dev"`
	Id                        string `mapstructure:"id"`
	Key                       string `mapstructure:"key"`
	OpenTelemetryCollectorURL string `mapstructure:"openTelemetryCollectorURL"`

	CoordinatorURL  string `mapstructure:"coordinatorURL"`
	RelayURL        string `mapstructure:"relayURL"`
	CosmosRPCURL    string `mapstructure:"cosmosRPCURL"`
	SolverConfigURL string `mapstructure:"solverConfigURL"`

	IntentLifetime time.Duration `mapstructure:"intentLifetime" default:"600s"`
	RateFreshness  time.Duration `mapstructure:"rateFreshness" default:"60s"`
}

type Config struct {
	EngineConfig EngineConfig             `mapstructure:"engine"`
	ChainConfigs []map[string]interface{} `mapstructure:"chains"`
}

func BindFlags(rootCMD *cobra.Command) {
	rootCMD.PersistentFlags().String(ConfigFlagName, "config.json", "path to the configuration file or 'env'")
	_ = viper.BindPFlag(ConfigFlagName, rootCMD.PersistentFlags().Lookup(ConfigFlagName))

	rootCMD.PersistentFlags().String(KeyFlagName, "", "hex encoded signing key")
	_ = viper.BindPFlag(KeyFlagName, rootCMD.PersistentFlags().Lookup(KeyFlagName))

	rootCMD.PersistentFlags().String(ApiAddrFlagName, "", "address the engine api listens on")
	_ = viper.BindPFlag(ApiAddrFlagName, rootCMD.PersistentFlags().Lookup(ApiAddrFlagName))

	rootCMD.PersistentFlags().String(LogLevelFlagName, "", "minimal log level")
	_ = viper.BindPFlag(LogLevelFlagName, rootCMD.PersistentFlags().Lookup(LogLevelFlagName))

	rootCMD.PersistentFlags().Duration(FreshnessFlagName, 0, "exchange rate freshness window")
	_ = viper.BindPFlag(FreshnessFlagName, rootCMD.PersistentFlags().Lookup(FreshnessFlagName))
}

// GetConfigFromFile reads the engine configuration from a file and merges it
// over the optional shared base configuration.
func GetConfigFromFile(path string, base *Config) (*Config, error) {
	config := &Config{}

	viper.SetConfigFile(path)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return config, err
	}

	if err := viper.Unmarshal(config); err != nil {
		return config, err
	}

	if base != nil {
		if err := mergo.Merge(config, base); err != nil {
			return config, err
		}
	}

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

// GetConfigFromENV reads configuration keys from the environment with the
// INTENT prefix. Chain configuration still comes from the shared config.
func GetConfigFromENV(base *Config) (*Config, error) {
	config := &Config{}

	viper.SetEnvPrefix("INTENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.Unmarshal(config); err != nil {
		return config, err
	}

	if base != nil {
		if err := mergo.Merge(config, base); err != nil {
			return config, err
		}
	}

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

// GetSharedConfigFromNetwork fetches a shared configuration document that
// holds the chain definitions common to all deployments.
func GetSharedConfigFromNetwork(url string) (*Config, error) {
	resp, err := http.Get(url) // #nosec
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	config := &Config{}
	if err := json.Unmarshal(body, config); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.EngineConfig.CoordinatorURL == "" {
		return fmt.Errorf("required field engine.CoordinatorURL empty")
	}
	if c.EngineConfig.RelayURL == "" {
		return fmt.Errorf("required field engine.RelayURL empty")
	}
	if c.EngineConfig.SolverConfigURL == "" {
		return fmt.Errorf("required field engine.SolverConfigURL empty")
	}
	if c.EngineConfig.CosmosRPCURL == "" {
		return fmt.Errorf("required field engine.CosmosRPCURL empty")
	}
	if len(c.ChainConfigs) == 0 {
		return fmt.Errorf("no chains configured")
	}

	return nil
}
