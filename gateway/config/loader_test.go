package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/assert"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadGatewayConfigFile(t *testing.T) {
	path := writeTemp(t, "gateway.toml", `
port = 9090
host = "127.0.0.1"
allowed_origins = ["https://wallet.example.com"]
rate_per_minute = 60
network = "testnet"
rpc_nodes = ["https://rpc-a.example.com", "https://rpc-b.example.com"]
bridge_api_urls = ["https://bridge.example.com"]
swap_api_urls = ["https://swap.example.com"]
swap_contract = "router.example.near"
`)

	cfg, err := LoadGatewayConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, "testnet", cfg.Network)
	assert.Equal(t, 2, len(cfg.RPCNodes))
	assert.Equal(t, "router.example.near", cfg.SwapContract)
	// defaults fill in what the file omits
	assert.Equal(t, 100, cfg.MaxConcurrentRequests)
	assert.Equal(t, "gateway.db", cfg.StorePath)
}

func TestLoadGatewayConfigRejectsNonToml(t *testing.T) {
	_, err := LoadGatewayConfig("gateway.yaml")
	assert.Error(t, err)
}

func TestLoadGatewayConfigEnv(t *testing.T) {
	t.Setenv("GATEWAY_PORT", "8181")
	t.Setenv("GATEWAY_NETWORK", "mainnet")
	t.Setenv("GATEWAY_RPC_NODES", "https://rpc.example.com, https://rpc2.example.com")
	t.Setenv("GATEWAY_BRIDGE_API_URLS", "https://bridge.example.com")
	t.Setenv("GATEWAY_SWAP_API_URLS", "https://swap.example.com")
	t.Setenv("GATEWAY_SWAP_CONTRACT", "router.example.near")

	cfg, err := LoadGatewayConfig("")
	assert.NoError(t, err)
	assert.Equal(t, 8181, cfg.Port)
	assert.Equal(t, 2, len(cfg.RPCNodes))
	assert.Equal(t, "https://rpc2.example.com", cfg.RPCNodes[1])
}

func TestVerifyConfigRejectsUnknownNetwork(t *testing.T) {
	cfg := &GatewayConfig{
		Port:          8080,
		Host:          "0.0.0.0",
		Network:       "devnet",
		RPCNodes:      []string{"https://rpc.example.com"},
		BridgeAPIURLs: []string{"https://bridge.example.com"},
		SwapAPIURLs:   []string{"https://swap.example.com"},
		SwapContract:  "router.example.near",
	}
	assert.Error(t, verifyConfig(cfg))
	cfg.Network = "testnet"
	assert.NoError(t, verifyConfig(cfg))
}

func TestLoadTokensConfig(t *testing.T) {
	path := writeTemp(t, "tokens.toml", `
native_token = "wrap.near"
btc_token = "nbtc.bridge.near"
native_icon = "data:image/svg+xml;base64,abc"
allow_list = ["wrap.near", "nbtc.bridge.near", "usdt.tether-token.near"]
`)

	cfg, err := LoadTokensConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, "wrap.near", cfg.NativeToken)
	assert.Equal(t, 3, len(cfg.AllowList))
}

func TestLoadTokensConfigRequiresContracts(t *testing.T) {
	path := writeTemp(t, "tokens.toml", `
allow_list = ["wrap.near"]
`)
	_, err := LoadTokensConfig(path)
	assert.Error(t, err)
}
