package bridge

import (
	"context"
	"testing"

	"github.com/zeebo/assert"

	"github.com/nearsat-labs/wallet-gateway/gateway/models"
	"github.com/nearsat-labs/wallet-gateway/gateway/store"
)

// fakeRelayer serves canned relayer results.
type fakeRelayer struct {
	deposit     DepositResult
	gasFee      string
	withdraw    WithdrawResult
	depositErr  error
	withdrawErr error
}

func (f *fakeRelayer) GetDepositAmount(ctx context.Context, amount string, opts DepositOptions) (DepositResult, error) {
	return f.deposit, f.depositErr
}

func (f *fakeRelayer) CalculateGasFee(ctx context.Context, btcAccount, amount string) (string, error) {
	return f.gasFee, f.depositErr
}

func (f *fakeRelayer) CalculateWithdraw(ctx context.Context, params WithdrawParams) (WithdrawResult, error) {
	return f.withdraw, f.withdrawErr
}

func connectedWallet() *store.WalletStore {
	wallet := store.NewWalletStore()
	wallet.SetIdentity(store.WalletIdentity{
		AccountID:    "alice.near",
		BTCAccountID: "bc1qtest",
	})
	return wallet
}

func TestEstimateDeposit(t *testing.T) {
	relayer := &fakeRelayer{
		deposit: DepositResult{ProtocolFee: "1000", ReceiveAmount: "99000"},
		gasFee:  "1000",
	}
	e := NewEstimator(relayer, connectedWallet(), "mainnet")

	est, err := e.Estimate(context.Background(), models.BridgeEstimateRequest{
		Chain:  models.ChainNear,
		Amount: "0.001",
	})
	assert.NoError(t, err)
	assert.True(t, est.CanBridge)
	assert.Equal(t, "0.00001", est.GasFee)
	assert.Equal(t, "0.00001", est.ProtocolFee)
	assert.Equal(t, "0.00099", est.ReceiveAmount)
	assert.Equal(t, "~20 Min", est.Time)
}

func TestEstimateWithdrawRefusal(t *testing.T) {
	relayer := &fakeRelayer{
		withdraw: WithdrawResult{
			GasFee:        "0",
			WithdrawFee:   "0",
			ReceiveAmount: "0",
			ErrorMsg:      "amount below dust limit",
		},
	}
	e := NewEstimator(relayer, connectedWallet(), "mainnet")

	est, err := e.Estimate(context.Background(), models.BridgeEstimateRequest{
		Chain:  models.ChainBTC,
		Amount: "0.000001",
	})
	assert.NoError(t, err)
	assert.False(t, est.CanBridge)
	assert.Equal(t, "amount below dust limit", est.Error)
}

func TestEstimateWithdrawSuccess(t *testing.T) {
	relayer := &fakeRelayer{
		withdraw: WithdrawResult{
			GasFee:        "500",
			WithdrawFee:   "1500",
			ReceiveAmount: "98000",
		},
	}
	e := NewEstimator(relayer, connectedWallet(), "mainnet")

	est, err := e.Estimate(context.Background(), models.BridgeEstimateRequest{
		Chain:  models.ChainBTC,
		Amount: "0.001",
	})
	assert.NoError(t, err)
	assert.True(t, est.CanBridge)
	assert.Equal(t, "0.000005", est.GasFee)
	assert.Equal(t, "0.000015", est.ProtocolFee)
	assert.Equal(t, "0.00098", est.ReceiveAmount)
}

func TestEstimateIdleStates(t *testing.T) {
	e := NewEstimator(&fakeRelayer{}, connectedWallet(), "mainnet")

	// zero amount never touches the relayer
	for _, amt := range []string{"", "0", "0.00"} {
		est, err := e.Estimate(context.Background(), models.BridgeEstimateRequest{
			Chain:  models.ChainBTC,
			Amount: amt,
		})
		assert.NoError(t, err)
		assert.False(t, est.CanBridge)
		assert.Equal(t, "0", est.ReceiveAmount)
		assert.Equal(t, "", est.Error)
	}

	// missing identity is idle too
	disconnected := NewEstimator(&fakeRelayer{}, store.NewWalletStore(), "mainnet")
	est, err := disconnected.Estimate(context.Background(), models.BridgeEstimateRequest{
		Chain:  models.ChainBTC,
		Amount: "1",
	})
	assert.NoError(t, err)
	assert.False(t, est.CanBridge)
}

func TestEstimateAccountOverrides(t *testing.T) {
	var gotParams WithdrawParams
	relayer := &capturingRelayer{params: &gotParams}
	e := NewEstimator(relayer, connectedWallet(), "testnet")

	_, err := e.Estimate(context.Background(), models.BridgeEstimateRequest{
		Chain:      models.ChainBTC,
		Amount:     "0.5",
		BTCAccount: "bc1qother",
	})
	assert.NoError(t, err)
	assert.Equal(t, "bc1qother", gotParams.BTCAddress)
	assert.Equal(t, "alice.near", gotParams.CSNA)
	assert.Equal(t, "testnet", gotParams.Env)
	assert.Equal(t, "50000000", gotParams.Amount)
}

type capturingRelayer struct {
	fakeRelayer
	params *WithdrawParams
}

func (c *capturingRelayer) CalculateWithdraw(ctx context.Context, params WithdrawParams) (WithdrawResult, error) {
	*c.params = params
	return WithdrawResult{ReceiveAmount: "49990000"}, nil
}
