package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	getter "github.com/hashicorp/go-getter"
	toml "github.com/pelletier/go-toml/v2"
)

// LoadTokensConfig reads the token catalog from a TOML file.
func LoadTokensConfig(path string) (*TokensConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read tokens file %s: %w", path, err)
	}

	var cfg TokensConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode tokens file %s: %w", path, err)
	}
	if err := verifyTokens(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

/*
FetchTokenRegistry downloads a remote token catalog and merges its allow
list over the local one. Entries already present locally are kept in
place; new contracts are appended.

Args:

	cfg (*TokensConfig): the local catalog, mutated in place.

Returns:

	error: an error if the download or parse failed. The local catalog
	is left untouched on failure.
*/
func FetchTokenRegistry(cfg *TokensConfig) error {
	if cfg.RegistryURL == "" {
		return nil
	}

	tmp, err := os.MkdirTemp("", "token-registry-*")
	if err != nil {
		return fmt.Errorf("failed to create registry dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	dst := filepath.Join(tmp, "tokens.toml")
	deadline := time.Now().Add(60 * time.Second)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	opts := getter.Client{
		Ctx:  ctx,
		Src:  cfg.RegistryURL,
		Dst:  dst,
		Mode: getter.ClientModeFile,
	}
	if err := opts.Get(); err != nil {
		return fmt.Errorf("failed to download token registry: %w", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		return fmt.Errorf("failed to read downloaded registry: %w", err)
	}
	var remote TokensConfig
	if err := toml.Unmarshal(data, &remote); err != nil {
		return fmt.Errorf("failed to decode downloaded registry: %w", err)
	}

	seen := make(map[string]bool, len(cfg.AllowList))
	for _, c := range cfg.AllowList {
		seen[c] = true
	}
	for _, c := range remote.AllowList {
		if !seen[c] {
			cfg.AllowList = append(cfg.AllowList, c)
			seen[c] = true
		}
	}
	logger.Info().
		Int("tokens", len(cfg.AllowList)).
		Str("source", cfg.RegistryURL).
		Msg("merged remote token registry")
	return nil
}

func verifyTokens(cfg *TokensConfig) error {
	if cfg.NativeToken == "" {
		return fmt.Errorf("native token contract must not be empty")
	}
	if cfg.BTCToken == "" {
		return fmt.Errorf("btc token contract must not be empty")
	}
	if len(cfg.AllowList) == 0 {
		return fmt.Errorf("token allow list must not be empty")
	}
	return nil
}
