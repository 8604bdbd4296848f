package bridge

import (
	"context"

	"github.com/nearsat-labs/wallet-gateway/gateway/amount"
	"github.com/nearsat-labs/wallet-gateway/gateway/models"
	"github.com/nearsat-labs/wallet-gateway/gateway/store"
)

// estimatedTime is the wall-clock expectation shown for either direction.
const estimatedTime = "~20 Min"

// Estimator produces symmetric bridge quotes: deposits (custody chain in)
// and withdrawals (custody chain out). It performs no retries of its own;
// hard errors propagate to the caller and retry policy lives in the refresh
// controller.
type Estimator struct {
	client Client
	wallet *store.WalletStore
	// env is the runtime network tag forwarded to withdrawal calculations.
	env string
}

// NewEstimator wires an estimator over the relayer client.
func NewEstimator(client Client, wallet *store.WalletStore, env string) *Estimator {
	return &Estimator{client: client, wallet: wallet, env: env}
}

// idleEstimate is the zero quote returned before both accounts and a
// non-zero amount are known. Not an error.
func idleEstimate() models.BridgeEstimate {
	return models.BridgeEstimate{
		Time:          estimatedTime,
		GasFee:        "0",
		ProtocolFee:   "0",
		ReceiveAmount: "0",
		CanBridge:     false,
	}
}

// Estimate quotes moving req.Amount toward req.Chain. Accounts default to
// the active wallet identity when not supplied.
func (e *Estimator) Estimate(ctx context.Context, req models.BridgeEstimateRequest) (models.BridgeEstimate, error) {
	identity := e.wallet.Identity()
	btcAccount := req.BTCAccount
	if btcAccount == "" {
		btcAccount = identity.BTCAccountID
	}
	nearAccount := req.NearAccount
	if nearAccount == "" {
		nearAccount = identity.AccountID
	}

	if btcAccount == "" || nearAccount == "" || amount.IsZero(req.Amount) {
		return idleEstimate(), nil
	}

	rawAmount, err := amount.Parse(req.Amount, amount.BTCDecimals)
	if err != nil {
		return models.BridgeEstimate{}, err
	}

	if req.Chain == models.ChainBTC {
		return e.estimateWithdraw(ctx, rawAmount, nearAccount, btcAccount)
	}
	return e.estimateDeposit(ctx, rawAmount, nearAccount, btcAccount)
}

// estimateDeposit quotes custody chain -> execution chain. Deposits have no
// eligibility precondition beyond funds sufficiency, which the caller checks
// against the available balance.
func (e *Estimator) estimateDeposit(ctx context.Context, rawAmount, nearAccount, btcAccount string) (models.BridgeEstimate, error) {
	res, err := e.client.GetDepositAmount(ctx, rawAmount, DepositOptions{
		CSNA:                 nearAccount,
		NewAccountMinDeposit: false,
	})
	if err != nil {
		return models.BridgeEstimate{}, err
	}

	rawGasFee, err := e.client.CalculateGasFee(ctx, btcAccount, rawAmount)
	if err != nil {
		return models.BridgeEstimate{}, err
	}

	return models.BridgeEstimate{
		Time:          estimatedTime,
		GasFee:        amount.Format(rawGasFee, amount.BTCDecimals),
		ProtocolFee:   amount.Format(res.ProtocolFee, amount.BTCDecimals),
		ReceiveAmount: amount.Format(res.ReceiveAmount, amount.BTCDecimals),
		CanBridge:     true,
	}, nil
}

// estimateWithdraw quotes execution chain -> custody chain. The relayer may
// refuse (amount below dust, insufficient liquidity); that arrives as an
// error message on the result and becomes CanBridge=false, not an error.
func (e *Estimator) estimateWithdraw(ctx context.Context, rawAmount, nearAccount, btcAccount string) (models.BridgeEstimate, error) {
	res, err := e.client.CalculateWithdraw(ctx, WithdrawParams{
		Amount:     rawAmount,
		CSNA:       nearAccount,
		BTCAddress: btcAccount,
		Env:        e.env,
	})
	if err != nil {
		return models.BridgeEstimate{}, err
	}

	log.Debug().
		Str("amount", rawAmount).
		Str("receive", res.ReceiveAmount).
		Str("error", res.ErrorMsg).
		Msg("Withdraw calculated")

	return models.BridgeEstimate{
		Time:          estimatedTime,
		GasFee:        amount.Format(res.GasFee, amount.BTCDecimals),
		ProtocolFee:   amount.Format(res.WithdrawFee, amount.BTCDecimals),
		ReceiveAmount: amount.Format(res.ReceiveAmount, amount.BTCDecimals),
		CanBridge:     res.ErrorMsg == "",
		Error:         res.ErrorMsg,
	}, nil
}

// QueryChains returns the static catalog of bridgeable chains.
func QueryChains() []models.ChainInfo {
	return []models.ChainInfo{
		{Chain: models.ChainBTC, Name: "BTC", Icon: "/satoshi.svg"},
		{Chain: models.ChainNear, Name: "Near", Icon: "/assets/chain/near.svg"},
	}
}
