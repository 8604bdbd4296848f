package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearsat-labs/wallet-gateway/gateway/bridge"
	"github.com/nearsat-labs/wallet-gateway/gateway/chain"
	"github.com/nearsat-labs/wallet-gateway/gateway/composer"
	"github.com/nearsat-labs/wallet-gateway/gateway/config"
	"github.com/nearsat-labs/wallet-gateway/gateway/history"
	"github.com/nearsat-labs/wallet-gateway/gateway/nearclient"
	"github.com/nearsat-labs/wallet-gateway/gateway/price"
	"github.com/nearsat-labs/wallet-gateway/gateway/refresh"
	"github.com/nearsat-labs/wallet-gateway/gateway/rpc"
	"github.com/nearsat-labs/wallet-gateway/gateway/signer"
	"github.com/nearsat-labs/wallet-gateway/gateway/store"
	"github.com/nearsat-labs/wallet-gateway/gateway/swap"
)

var log zerolog.Logger

func init() {
	// Initialize zerolog with console writer
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	// Share the logger with the RPC package
	rpc.SetLogger(log)
}

func main() {
	configPath := flag.String("config", "", "config file for the gateway server (empty loads from env)")
	tokensPath := flag.String("tokens", "./tokens.toml", "token catalog file")
	flag.Parse()

	log.Info().
		Str("config", *configPath).
		Str("tokens", *tokensPath).
		Msg("Starting Wallet Gateway")

	cfg, err := config.LoadGatewayConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load gateway config")
	}

	tokensCfg, err := config.LoadTokensConfig(*tokensPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load token catalog")
	}
	if err := config.FetchTokenRegistry(tokensCfg); err != nil {
		// remote registry is best effort, the local allow list still works
		log.Warn().Err(err).Msg("Failed to fetch remote token registry")
	}
	log.Info().Int("tokens", len(tokensCfg.AllowList)).Msg("Loaded token catalog")

	persist, err := store.OpenPersist(cfg.StorePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer persist.Close()

	wallet := store.NewWalletStore()
	tokens, err := store.NewTokenStore(persist, tokensCfg.AllowList)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token store")
	}
	prices := store.NewPriceStore()

	// Execution-chain RPC with failover across the configured nodes
	rpcClient, err := nearclient.NewWithFailover(
		cfg.RPCNodes[0],
		cfg.RPCNodes[1:],
		nearclient.DefaultFailoverConfig(),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize chain RPC client")
	}
	defer rpcClient.Close()
	log.Info().
		Str("primary", cfg.RPCNodes[0]).
		Int("backups", len(cfg.RPCNodes)-1).
		Msg("Chain RPC client initialized")

	resolver := chain.NewResolver(rpcClient, wallet, tokens, chain.Config{
		NativeToken: tokensCfg.NativeToken,
		BTCToken:    tokensCfg.BTCToken,
		NativeIcon:  tokensCfg.NativeIcon,
	})

	bridgeClient := bridge.NewHTTPClient(cfg.BridgeAPIURLs[0])
	estimator := bridge.NewEstimator(bridgeClient, wallet, cfg.Network)

	walletSigner := signer.NewWalletRPC(cfg.WalletRPCURL)
	comp := composer.New(walletSigner, resolver, wallet, tokensCfg.NativeToken)

	swapClient := swap.NewAPIClient(cfg.SwapAPIURLs[0], cfg.SwapAPIURLs[1:]...)
	quoter := swap.NewQuoter(
		swapClient,
		resolver,
		wallet,
		tokens,
		prices,
		comp,
		tokensCfg.NativeToken,
		cfg.SwapContract,
	)

	priceClient := price.NewClient(cfg.PriceAPIURL)
	historyClient := history.NewClient(cfg.HistoryAPIURL)

	// Background price polling; balances refresh on wallet connect.
	priceRefresh := refresh.New(
		func(ctx context.Context) (map[string]string, error) {
			return priceClient.QueryPrices(ctx)
		},
		refresh.Options[map[string]string]{
			RetryCount:      2,
			RetryInterval:   3 * time.Second,
			PollingInterval: 30 * time.Second,
			OnSuccess: func(data map[string]string) {
				prices.SetAll(data)
			},
		},
	)
	defer priceRefresh.Close()
	priceRefresh.Trigger()

	balanceRefresh := refresh.New(
		func(ctx context.Context) (struct{}, error) {
			for _, token := range tokens.Tokens() {
				resolver.RefreshBalance(ctx, token)
			}
			return struct{}{}, nil
		},
		refresh.Options[struct{}]{
			Guard:           wallet.Connected,
			Debounce:        300 * time.Millisecond,
			RetryCount:      1,
			RetryInterval:   2 * time.Second,
			PollingInterval: 60 * time.Second,
		},
	)
	defer balanceRefresh.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := rpc.NewServer(ctx, buildServerConfig(cfg), rpc.Deps{
		Resolver:  resolver,
		Estimator: estimator,
		Quoter:    quoter,
		Composer:  comp,
		Wallet:    wallet,
		Tokens:    tokens,
		Prices:    prices,
		History:   historyClient,
		OnConnect: balanceRefresh.Trigger,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create API server")
	}

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			sigCh <- syscall.SIGTERM
		}
	}()

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}

// buildServerConfig converts the loaded GatewayConfig to rpc.ServerConfig
func buildServerConfig(cfg *config.GatewayConfig) *rpc.ServerConfig {
	serverConfig := &rpc.ServerConfig{
		Address:        cfg.Host + ":" + strconv.Itoa(cfg.Port),
		AllowedOrigins: cfg.AllowedOrigins,
		EnableMetrics:  cfg.EnableMetrics,
	}

	if cfg.RatePerMinute > 0 {
		serverConfig.RatePerMinute = &cfg.RatePerMinute
	}
	if cfg.MaxConcurrentRequests > 0 {
		serverConfig.MaxConcurrentRequests = &cfg.MaxConcurrentRequests
	}

	if cfg.EnableTracing {
		serverConfig.OTelConfig = &rpc.OTelConfig{
			ServiceName:     cfg.ServiceName,
			ServiceVersion:  cfg.ServiceVersion,
			Environment:     cfg.Environment,
			EnableTracing:   cfg.EnableTracing,
			UseOTLPTraces:   cfg.UseOTLPTraces,
			OTLPTracesURL:   cfg.OTLPTracesURL,
			InsecureOTLP:    cfg.InsecureOTLP,
			DevelopmentMode: cfg.DevelopmentMode,
		}
	}

	return serverConfig
}
