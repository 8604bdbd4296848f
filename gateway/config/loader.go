package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

var logger zerolog.Logger

func init() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}).
		With().
		Timestamp().
		Str("component", "config").
		Logger()
}

/*
LoadGatewayConfig loads the gateway configuration from either a TOML file
or environment variables.

If path is empty the loader reads from the environment (a local .env file
is honored when present). Otherwise the file must be a .toml file.

Args:

	path (string): path to a .toml config file, or "" for env loading.

Returns:

	*GatewayConfig: the parsed and verified configuration.
	error: an error if loading or verification failed.
*/
func LoadGatewayConfig(path string) (*GatewayConfig, error) {
	v := viper.New()

	var cfg GatewayConfig
	var err error
	if path == "" {
		cfg, err = loadEnv(v)
	} else {
		cfg, err = loadFile(v, path)
	}
	if err != nil {
		return nil, err
	}

	if err := verifyConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnv(v *viper.Viper) (GatewayConfig, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			logger.Warn().Err(err).Msg("failed to load .env file")
		}
	}

	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	setDefaults(v)

	var cfg GatewayConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return GatewayConfig{}, fmt.Errorf("unable to decode env config: %w", err)
	}

	// list-valued env vars come in comma separated
	cfg.AllowedOrigins = splitList(v.GetString("allowed_origins"))
	cfg.RPCNodes = splitList(v.GetString("rpc_nodes"))
	cfg.BridgeAPIURLs = splitList(v.GetString("bridge_api_urls"))
	cfg.SwapAPIURLs = splitList(v.GetString("swap_api_urls"))

	return cfg, nil
}

func loadFile(v *viper.Viper, path string) (GatewayConfig, error) {
	if !strings.HasSuffix(path, ".toml") {
		return GatewayConfig{}, fmt.Errorf("config file must be a .toml file, got %s", path)
	}

	v.SetConfigFile(path)
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return GatewayConfig{}, fmt.Errorf("unable to read config file %s: %w", path, err)
	}

	var cfg GatewayConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return GatewayConfig{}, fmt.Errorf("unable to decode config file %s: %w", path, err)
	}
	return cfg, nil
}

func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"port",
		"host",
		"allowed_origins",
		"rate_per_minute",
		"max_concurrent_requests",
		"service_name",
		"service_version",
		"environment",
		"enable_tracing",
		"use_otlp_traces",
		"otlp_traces_url",
		"enable_metrics",
		"insecure_otlp",
		"development_mode",
		"network",
		"rpc_nodes",
		"bridge_api_urls",
		"swap_api_urls",
		"price_api_url",
		"history_api_url",
		"wallet_rpc_url",
		"swap_contract",
		"store_path",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("failed to bind env key")
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("rate_per_minute", 120)
	v.SetDefault("max_concurrent_requests", 100)
	v.SetDefault("service_name", "wallet-gateway")
	v.SetDefault("service_version", "dev")
	v.SetDefault("environment", "development")
	v.SetDefault("network", "mainnet")
	v.SetDefault("store_path", "gateway.db")
}

func verifyConfig(cfg *GatewayConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if len(cfg.RPCNodes) == 0 {
		return fmt.Errorf("at least one rpc node is required")
	}
	if len(cfg.BridgeAPIURLs) == 0 {
		return fmt.Errorf("at least one bridge api url is required")
	}
	if len(cfg.SwapAPIURLs) == 0 {
		return fmt.Errorf("at least one swap api url is required")
	}
	if cfg.SwapContract == "" {
		return fmt.Errorf("swap contract must not be empty")
	}
	switch cfg.Network {
	case "mainnet", "testnet", "test":
	default:
		return fmt.Errorf("unknown network: %s", cfg.Network)
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
