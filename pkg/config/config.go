package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the chaincode server binary.
type Config struct {
	// Chaincode server configuration
	Chaincode ChaincodeConfig `mapstructure:"chaincode"`

	// Operational HTTP endpoint (health + metrics)
	Ops OpsConfig `mapstructure:"ops"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
}

// ChaincodeConfig holds the chaincode-as-a-service settings handed out by the
// peer at deployment time.
type ChaincodeConfig struct {
	ID         string `mapstructure:"id"`
	Address    string `mapstructure:"address"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
	CAFile     string `mapstructure:"ca_file"`
}

// OpsConfig holds the sidecar health/metrics endpoint settings.
type OpsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// Load reads configuration from config.yaml and the environment. Environment
// variables use the CLINICAL prefix, e.g. CLINICAL_CHAINCODE_ADDRESS.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/clinical-ledger")

	viper.SetEnvPrefix("clinical")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("chaincode.address", "0.0.0.0:9999")
	viper.SetDefault("ops.enabled", true)
	viper.SetDefault("ops.address", "0.0.0.0:8080")
	viper.SetDefault("log_level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Chaincode.ID == "" {
		cfg.Chaincode.ID = viper.GetString("chaincode_id")
	}

	return &cfg, nil
}
