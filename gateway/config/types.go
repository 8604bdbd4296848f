package config

// GatewayConfig is the server-side configuration of the wallet gateway.
type GatewayConfig struct {
	// rpc configs
	Port int    `toml:"port" mapstructure:"port"`
	Host string `toml:"host" mapstructure:"host"`

	// CORS configs
	AllowedOrigins []string `toml:"allowed_origins" mapstructure:"allowed_origins"`

	// rate limiting configs
	RatePerMinute         int `toml:"rate_per_minute" mapstructure:"rate_per_minute"`
	MaxConcurrentRequests int `toml:"max_concurrent_requests" mapstructure:"max_concurrent_requests"`

	// OpenTelemetry configs
	ServiceName     string `toml:"service_name" mapstructure:"service_name"`
	ServiceVersion  string `toml:"service_version" mapstructure:"service_version"`
	Environment     string `toml:"environment" mapstructure:"environment"`
	EnableTracing   bool   `toml:"enable_tracing" mapstructure:"enable_tracing"`
	UseOTLPTraces   bool   `toml:"use_otlp_traces" mapstructure:"use_otlp_traces"`
	OTLPTracesURL   string `toml:"otlp_traces_url" mapstructure:"otlp_traces_url"`
	EnableMetrics   bool   `toml:"enable_metrics" mapstructure:"enable_metrics"`
	InsecureOTLP    bool   `toml:"insecure_otlp" mapstructure:"insecure_otlp"`
	DevelopmentMode bool   `toml:"development_mode" mapstructure:"development_mode"`

	// Network is the runtime network tag: mainnet, testnet or test.
	Network string `toml:"network" mapstructure:"network"`

	// Execution-chain RPC endpoints; the first is the primary.
	RPCNodes []string `toml:"rpc_nodes" mapstructure:"rpc_nodes"`

	// External services
	BridgeAPIURLs []string `toml:"bridge_api_urls" mapstructure:"bridge_api_urls"`
	SwapAPIURLs   []string `toml:"swap_api_urls" mapstructure:"swap_api_urls"`
	PriceAPIURL   string   `toml:"price_api_url" mapstructure:"price_api_url"`
	HistoryAPIURL string   `toml:"history_api_url" mapstructure:"history_api_url"`
	WalletRPCURL  string   `toml:"wallet_rpc_url" mapstructure:"wallet_rpc_url"`

	// SwapContract receives routed swap calls.
	SwapContract string `toml:"swap_contract" mapstructure:"swap_contract"`

	// StorePath is the bbolt file backing persisted token state.
	StorePath string `toml:"store_path" mapstructure:"store_path"`
}

// TokensConfig is the token catalog: the two special contracts plus the
// allow list served to fresh sessions.
type TokensConfig struct {
	// NativeToken is the wrapped-native token contract.
	NativeToken string `toml:"native_token" json:"native_token"`
	// BTCToken is the bridged BTC token contract.
	BTCToken string `toml:"btc_token" json:"btc_token"`
	// NativeIcon replaces the wrapped-native icon on relabel.
	NativeIcon string `toml:"native_icon" json:"native_icon"`
	// AllowList seeds the token list of new sessions.
	AllowList []string `toml:"allow_list" json:"allow_list"`
	// RegistryURL optionally points at a remote allow list that overrides
	// the local one at startup (fetched with go-getter).
	RegistryURL string `toml:"registry_url" json:"registry_url"`
}
