// Package chain resolves balances, token metadata and storage registration
// on the execution chain. Passive reads fail soft: a query error yields "0"
// or an absent value plus a log line, never an error to the caller. "0"
// therefore means "unknown or empty" and must not be trusted as an exact
// zero.
package chain

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nearsat-labs/wallet-gateway/gateway/amount"
	"github.com/nearsat-labs/wallet-gateway/gateway/models"
	"github.com/nearsat-labs/wallet-gateway/gateway/nearclient"
	"github.com/nearsat-labs/wallet-gateway/gateway/store"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "chain").Logger()
}

// Reserves held back from the raw balance so the account can keep paying
// for future transactions. The bridged BTC token keeps a small dust buffer
// (800 satoshi); the native token keeps a larger gas buffer.
const (
	btcReserve    = "0.000008"
	nativeReserve = "0.5"
)

// Storage registration constants of the fungible-token standard.
const (
	storageDepositYocto = "1250000000000000000000"
	storageDepositTgas  = 100
)

// storageCostPerByte is the protocol's storage price in yocto per byte of
// account state (10^19). Funds covering used storage cannot be spent.
const storageCostPerByte = "10000000000000000000"

// Config names the two special token contracts of the deployment.
type Config struct {
	// NativeToken is the wrapped-native token contract (also the sentinel
	// for the chain's native currency in balance queries).
	NativeToken string
	// BTCToken is the bridged BTC token contract.
	BTCToken string
	// NativeIcon replaces the wrapped-native icon when relabeling metadata.
	NativeIcon string
}

// Resolver answers balance and registration questions for the active wallet.
type Resolver struct {
	rpc    *nearclient.Client
	wallet *store.WalletStore
	tokens *store.TokenStore
	cfg    Config
}

// NewResolver wires a resolver over the chain RPC client and the stores.
func NewResolver(rpc *nearclient.Client, wallet *store.WalletStore, tokens *store.TokenStore, cfg Config) *Resolver {
	return &Resolver{rpc: rpc, wallet: wallet, tokens: tokens, cfg: cfg}
}

// Metadata resolves ft_metadata for token, serving from the cache when
// possible. The wrapped-native token is relabeled to the native display
// symbol so users never see the wrapped form.
func (r *Resolver) Metadata(ctx context.Context, token string) (models.TokenMetadata, error) {
	if meta, ok := r.tokens.Metadata(token); ok {
		return meta, nil
	}

	raw, err := r.rpc.ViewFunction(ctx, token, "ft_metadata", nil)
	if err != nil {
		return models.TokenMetadata{}, err
	}
	var meta models.TokenMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return models.TokenMetadata{}, err
	}
	if meta.Symbol == "wNEAR" {
		meta.Symbol = "NEAR"
		meta.Icon = r.cfg.NativeIcon
	}
	r.tokens.MergeMetadata(map[string]models.TokenMetadata{token: meta})
	return meta, nil
}

// MetadataBatch resolves metadata for several tokens, skipping failures.
func (r *Resolver) MetadataBatch(ctx context.Context, tokens []string) map[string]models.TokenMetadata {
	out := make(map[string]models.TokenMetadata, len(tokens))
	for _, token := range tokens {
		meta, err := r.Metadata(ctx, token)
		if err != nil {
			log.Warn().Err(err).Str("token", token).Msg("Metadata lookup failed")
			continue
		}
		out[token] = meta
	}
	return out
}

// GetBalance returns the active account's balance of token as a decimal
// string. The wrapped-native contract address doubles as the sentinel for
// the native currency, whose balance is the spendable portion: staked and
// storage-locked funds are excluded. Fails soft with "0".
func (r *Resolver) GetBalance(ctx context.Context, token string) string {
	accountID := r.wallet.Identity().AccountID
	if token == "" || accountID == "" {
		return "0"
	}

	var raw string
	if token == r.cfg.NativeToken {
		account, err := r.rpc.ViewAccount(ctx, accountID)
		if err != nil {
			log.Warn().Err(err).Str("account", accountID).Msg("Native balance query failed")
			return "0"
		}
		raw = spendableYocto(account).String()
	} else {
		res, err := r.rpc.ViewFunction(ctx, token, "ft_balance_of", map[string]any{
			"account_id": accountID,
		})
		if err != nil {
			log.Warn().Err(err).Str("token", token).Msg("Token balance query failed")
			return "0"
		}
		if err := json.Unmarshal(res, &raw); err != nil {
			log.Warn().Err(err).Str("token", token).Msg("Unexpected balance payload")
			return "0"
		}
	}

	meta, err := r.Metadata(ctx, token)
	if err != nil {
		log.Warn().Err(err).Str("token", token).Msg("No decimals for token, cannot format balance")
		return "0"
	}
	return amount.Format(raw, meta.Decimals)
}

// spendableYocto computes what the account can actually spend: the raw
// amount minus whichever is larger of the staked/locked balance and the
// cost of the storage the account occupies, floored at zero.
func spendableYocto(account nearclient.AccountView) decimal.Decimal {
	storageLocked := decimal.NewFromUint64(account.StorageUsage).
		Mul(decimal.RequireFromString(storageCostPerByte))
	spendable := amount.Safe(account.Amount).
		Sub(decimal.Max(amount.Safe(account.Locked), storageLocked))
	if spendable.IsNegative() {
		return decimal.Zero
	}
	return spendable
}

// GetAvailableBalance subtracts the token's reserve from balance, flooring
// at zero. Tokens without a reserve pass through unchanged.
func (r *Resolver) GetAvailableBalance(token, balance string) string {
	if token == "" || balance == "" {
		return "0"
	}
	available := amount.Safe(balance)
	switch token {
	case r.cfg.BTCToken:
		available = available.Sub(decimal.RequireFromString(btcReserve))
	case r.cfg.NativeToken:
		available = available.Sub(decimal.RequireFromString(nativeReserve))
	}
	if available.IsNegative() {
		return "0"
	}
	return available.String()
}

// RefreshBalance re-resolves the balance of token and records it in the
// token store. Used after successful submissions.
func (r *Resolver) RefreshBalance(ctx context.Context, token string) {
	r.tokens.SetBalance(token, r.GetBalance(ctx, token))
}

// RegisterTokenIfNeeded checks whether recipient has storage registered for
// token and, when missing, returns the storage_deposit transaction that must
// run before any transfer of that token to that recipient. Returns nil when
// registration already exists. Registration is keyed per (token, recipient);
// an empty recipient defaults to the active account.
func (r *Resolver) RegisterTokenIfNeeded(ctx context.Context, token, recipient string) (*models.Transaction, error) {
	accountID := r.wallet.Identity().AccountID
	if recipient == "" {
		recipient = accountID
	}

	raw, err := r.rpc.ViewFunction(ctx, token, "storage_balance_of", map[string]any{
		"account_id": recipient,
	})
	if err != nil {
		return nil, err
	}

	var balance *models.StorageBalance
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &balance); err != nil {
			return nil, err
		}
	}
	if balance != nil && balance.Available != "" {
		return nil, nil
	}

	action, err := models.FunctionCallAction(
		"storage_deposit",
		map[string]any{
			"account_id":        recipient,
			"registration_only": true,
		},
		amount.Gas(storageDepositTgas),
		storageDepositYocto,
	)
	if err != nil {
		return nil, err
	}
	return &models.Transaction{
		SignerID:   accountID,
		ReceiverID: token,
		Actions:    []models.Action{action},
	}, nil
}
