// Package composer assembles transaction batches that satisfy the execution
// chain's preconditions and submits them atomically through the signer.
// Ordering rules are strict: storage registrations come before the transfer
// that needs them, and a wrap of native currency comes before the call that
// consumes the wrapped form.
package composer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearsat-labs/wallet-gateway/gateway/amount"
	"github.com/nearsat-labs/wallet-gateway/gateway/chain"
	"github.com/nearsat-labs/wallet-gateway/gateway/models"
	"github.com/nearsat-labs/wallet-gateway/gateway/store"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "composer").Logger()
}

// Gas allowances in Tgas.
const (
	transferTgas = 100
	wrapTgas     = 100
	// swapWithWrapTgas is the raised allowance when a wrap hop precedes the
	// swap call in the same transaction.
	swapWithWrapTgas = 200
)

// Signer is the external wallet boundary. It signs and submits the whole
// batch as one atomic request and returns the raw outcome payload, which
// may be a single outcome object or an array of outcomes.
type Signer interface {
	SignAndSendTransactions(ctx context.Context, txs []models.Transaction) (json.RawMessage, error)
}

// ExecutionError carries the chain-provided failure detail extracted from a
// submitted batch's outcomes.
type ExecutionError struct {
	Detail string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("transaction failed: %s", e.Detail)
}

// Composer builds and submits batches.
type Composer struct {
	signer   Signer
	resolver *chain.Resolver
	wallet   *store.WalletStore
	// nativeToken is the wrapped-native token contract.
	nativeToken string
}

// New wires a composer.
func New(signer Signer, resolver *chain.Resolver, wallet *store.WalletStore, nativeToken string) *Composer {
	return &Composer{
		signer:      signer,
		resolver:    resolver,
		wallet:      wallet,
		nativeToken: nativeToken,
	}
}

// BuildTransfer constructs the batch for a plain send. Fungible tokens get
// the recipient's storage registration inlined ahead of the ft_transfer in
// the same transaction; the native token is a plain transfer of raw yocto.
func (c *Composer) BuildTransfer(ctx context.Context, token, recipient, amountIn string) ([]models.Transaction, error) {
	signerID := c.wallet.Identity().AccountID
	if signerID == "" {
		return nil, fmt.Errorf("wallet not found")
	}
	meta, err := c.resolver.Metadata(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("resolve %s decimals: %w", token, err)
	}
	rawAmount, err := amount.Parse(amountIn, meta.Decimals)
	if err != nil {
		return nil, err
	}

	if token == c.nativeToken {
		return []models.Transaction{{
			SignerID:   signerID,
			ReceiverID: recipient,
			Actions: []models.Action{{
				Type:     models.ActionTransfer,
				Transfer: &models.TransferAction{Deposit: rawAmount},
			}},
		}}, nil
	}

	register, err := c.resolver.RegisterTokenIfNeeded(ctx, token, recipient)
	if err != nil {
		return nil, err
	}

	transfer, err := models.FunctionCallAction(
		"ft_transfer",
		map[string]any{
			"receiver_id": recipient,
			"amount":      rawAmount,
			"msg":         "",
		},
		amount.Gas(transferTgas),
		"1",
	)
	if err != nil {
		return nil, err
	}

	actions := []models.Action{}
	if register != nil {
		actions = append(actions, register.Actions...)
	}
	actions = append(actions, transfer)

	return []models.Transaction{{
		SignerID:   signerID,
		ReceiverID: token,
		Actions:    actions,
	}}, nil
}

// BuildSwap constructs the batch for a routed swap call. Registration for
// both the input and output token is resolved against the swapping account
// itself and prepended; when the input is the native token a wrap deposit
// of the exact input amount precedes the swap call, whose gas allowance is
// raised to cover the extra hop.
func (c *Composer) BuildSwap(ctx context.Context, call models.FunctionCall, tokenIn, tokenOut, amountIn string) ([]models.Transaction, error) {
	signerID := c.wallet.Identity().AccountID
	if signerID == "" {
		return nil, fmt.Errorf("wallet not found")
	}

	swapTx := models.Transaction{
		SignerID:   signerID,
		ReceiverID: tokenIn,
		Actions: []models.Action{{
			Type:   models.ActionFunctionCall,
			Params: &call,
		}},
	}

	if tokenIn == c.nativeToken {
		// The wrap deposit is in native precision, not the bridged asset's.
		rawDeposit, err := amount.Parse(amountIn, amount.NativeDecimals)
		if err != nil {
			return nil, err
		}
		wrap, err := models.FunctionCallAction("near_deposit", map[string]any{}, amount.Gas(wrapTgas), rawDeposit)
		if err != nil {
			return nil, err
		}
		swapTx.Actions[0].Params.Gas = amount.Gas(swapWithWrapTgas)
		swapTx.Actions = append([]models.Action{wrap}, swapTx.Actions...)
	}

	txs := []models.Transaction{swapTx}

	baseRegister, err := c.resolver.RegisterTokenIfNeeded(ctx, tokenIn, "")
	if err != nil {
		return nil, err
	}
	if baseRegister != nil {
		txs = append([]models.Transaction{*baseRegister}, txs...)
	}

	quoteRegister, err := c.resolver.RegisterTokenIfNeeded(ctx, tokenOut, "")
	if err != nil {
		return nil, err
	}
	if quoteRegister != nil {
		txs = append([]models.Transaction{*quoteRegister}, txs...)
	}

	return txs, nil
}

// Submit sends the batch atomically and normalizes the result. Partial
// batches are never submitted. On a detected failure the error carries the
// chain detail and no balance refresh happens.
func (c *Composer) Submit(ctx context.Context, txs []models.Transaction) ([]models.ExecutionOutcome, error) {
	if len(txs) == 0 {
		return nil, fmt.Errorf("empty batch")
	}
	log.Info().Int("transactions", len(txs)).Str("receiver", txs[len(txs)-1].ReceiverID).Msg("Submitting batch")

	raw, err := c.signer.SignAndSendTransactions(ctx, txs)
	if err != nil {
		return nil, err
	}
	return NormalizeOutcomes(raw)
}

// NormalizeOutcomes folds the signer's heterogeneous result shapes (one
// outcome or an array of them) into a slice, scanning every element for the
// nested failure marker. Any failure aborts with an ExecutionError.
func NormalizeOutcomes(raw json.RawMessage) ([]models.ExecutionOutcome, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var outcomes []models.ExecutionOutcome
	if err := json.Unmarshal(raw, &outcomes); err != nil {
		var single models.ExecutionOutcome
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("failed to parse signer outcome: %w", err)
		}
		outcomes = []models.ExecutionOutcome{single}
	}

	for _, o := range outcomes {
		if detail, failed := o.FailureDetail(); failed {
			return nil, &ExecutionError{Detail: detail}
		}
	}
	return outcomes, nil
}

// ExecuteSend submits a transfer batch and refreshes the sender's balance
// of the token on success.
func (c *Composer) ExecuteSend(ctx context.Context, token, recipient, amountIn string) ([]models.ExecutionOutcome, error) {
	txs, err := c.BuildTransfer(ctx, token, recipient, amountIn)
	if err != nil {
		return nil, err
	}
	outcomes, err := c.Submit(ctx, txs)
	if err != nil {
		return nil, err
	}
	c.resolver.RefreshBalance(ctx, token)
	return outcomes, nil
}

// ExecuteSwap submits a swap batch and refreshes both involved balances on
// success.
func (c *Composer) ExecuteSwap(ctx context.Context, call models.FunctionCall, tokenIn, tokenOut, amountIn string) ([]models.ExecutionOutcome, error) {
	txs, err := c.BuildSwap(ctx, call, tokenIn, tokenOut, amountIn)
	if err != nil {
		return nil, err
	}
	outcomes, err := c.Submit(ctx, txs)
	if err != nil {
		return nil, err
	}
	c.resolver.RefreshBalance(ctx, tokenIn)
	c.resolver.RefreshBalance(ctx, tokenOut)
	return outcomes, nil
}
