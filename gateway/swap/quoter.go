package swap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nearsat-labs/wallet-gateway/gateway/amount"
	"github.com/nearsat-labs/wallet-gateway/gateway/chain"
	"github.com/nearsat-labs/wallet-gateway/gateway/composer"
	"github.com/nearsat-labs/wallet-gateway/gateway/models"
	"github.com/nearsat-labs/wallet-gateway/gateway/store"
)

// ErrNoPath is returned when the aggregator finds no viable route.
var ErrNoPath = errors.New("no swap path found")

// minProbeAmount floors the price-impact reference trade so a worthless or
// unpriced token still probes with a real, non-zero amount.
var minProbeAmount = decimal.RequireFromString("0.000001")

// Quoter produces executable swap quotes and price-impact estimates.
type Quoter struct {
	api      *APIClient
	resolver *chain.Resolver
	wallet   *store.WalletStore
	tokens   *store.TokenStore
	prices   *store.PriceStore
	composer *composer.Composer
	// nativeToken is the wrapped-native token contract; swaps into it are
	// delivered unwrapped as native currency.
	nativeToken string
	// swapContract receives the routed swap call.
	swapContract string
}

// NewQuoter wires a quoter over the aggregator client and the composer.
func NewQuoter(
	api *APIClient,
	resolver *chain.Resolver,
	wallet *store.WalletStore,
	tokens *store.TokenStore,
	prices *store.PriceStore,
	comp *composer.Composer,
	nativeToken, swapContract string,
) *Quoter {
	return &Quoter{
		api:          api,
		resolver:     resolver,
		wallet:       wallet,
		tokens:       tokens,
		prices:       prices,
		composer:     comp,
		nativeToken:  nativeToken,
		swapContract: swapContract,
	}
}

func (q *Quoter) fill(req models.SwapQuoteRequest) models.SwapQuoteRequest {
	if req.PathDeep == 0 {
		req.PathDeep = DefaultPathDeep
	}
	if req.Slippage == 0 {
		req.Slippage = DefaultSlippage
	}
	return req
}

// Query fetches a route for req and converts it to token precision.
// A zero amount short-circuits to a zero quote without touching the network
// (there is nothing to route, and it would divide by zero downstream).
func (q *Quoter) Query(ctx context.Context, req models.SwapQuoteRequest) (models.SwapQuote, error) {
	req = q.fill(req)
	if amount.IsZero(req.AmountIn) {
		return models.SwapQuote{
			TokenIn:      req.TokenIn,
			TokenOut:     req.TokenOut,
			AmountIn:     "0",
			AmountOut:    "0",
			MinAmountOut: "0",
		}, nil
	}

	inMeta, err := q.resolver.Metadata(ctx, req.TokenIn)
	if err != nil {
		return models.SwapQuote{}, fmt.Errorf("resolve %s decimals: %w", req.TokenIn, err)
	}
	outMeta, err := q.resolver.Metadata(ctx, req.TokenOut)
	if err != nil {
		return models.SwapQuote{}, fmt.Errorf("resolve %s decimals: %w", req.TokenOut, err)
	}

	rawAmountIn, err := amount.Parse(req.AmountIn, inMeta.Decimals)
	if err != nil {
		return models.SwapQuote{}, err
	}

	res, err := q.api.FindPath(ctx, PathParams{
		TokenIn:     req.TokenIn,
		TokenOut:    req.TokenOut,
		AmountIn:    rawAmountIn,
		PathDeep:    req.PathDeep,
		Slippage:    req.Slippage,
		RouterCount: req.RouterCount,
	})
	if err != nil {
		return models.SwapQuote{}, err
	}

	amountOut := amount.Format(res.AmountOut, outMeta.Decimals)
	minAmountOut := amount.Safe(amountOut).
		Mul(decimal.NewFromFloat(1).Sub(decimal.NewFromFloat(req.Slippage))).
		String()

	return models.SwapQuote{
		TokenIn:      req.TokenIn,
		TokenOut:     req.TokenOut,
		AmountIn:     req.AmountIn,
		AmountOut:    amountOut,
		MinAmountOut: minAmountOut,
		Routes:       res.Routes,
	}, nil
}

// QueryPriceImpact estimates the price impact of the trade as a percentage,
// rounded to two decimals. The aggregator has no mid-price endpoint, so the
// reference price comes from a second quote sized at roughly one fiat unit
// of the input token. Degenerate quotes (zero output on either leg) carry
// no price information, so they report an impact of 0 rather than a ratio
// against a made-up price.
func (q *Quoter) QueryPriceImpact(ctx context.Context, req models.SwapQuoteRequest) (string, error) {
	if amount.IsZero(req.AmountIn) {
		return "0", nil
	}

	probe := req
	probe.Slippage = probeSlippage

	tradeRes, err := q.Query(ctx, probe)
	if err != nil {
		return "", err
	}
	tradeOut := amount.Safe(tradeRes.AmountOut)
	if tradeOut.IsZero() {
		return "0", nil
	}
	tradePrice := amount.Safe(req.AmountIn).Div(tradeOut)
	if tradePrice.IsZero() {
		return "0", nil
	}

	// Size the reference trade at about one fiat unit of the input token.
	var tokenInPrice string
	if meta, ok := q.tokens.Metadata(req.TokenIn); ok {
		tokenInPrice = q.prices.Price(meta.Symbol)
	}
	referenceAmountIn := decimal.NewFromInt(1).Div(orOne(tokenInPrice))
	if referenceAmountIn.LessThan(minProbeAmount) {
		referenceAmountIn = minProbeAmount
	}

	probe.AmountIn = referenceAmountIn.String()
	refRes, err := q.Query(ctx, probe)
	if err != nil {
		return "", err
	}
	refOut := amount.Safe(refRes.AmountOut)
	if refOut.IsZero() {
		return "0", nil
	}
	referencePrice := referenceAmountIn.Div(refOut)

	impact := tradePrice.Sub(referencePrice).Div(tradePrice).Mul(decimal.NewFromInt(100)).Round(2).Abs()
	log.Debug().
		Str("trade_price", tradePrice.String()).
		Str("reference_price", referencePrice.String()).
		Str("impact", impact.String()).
		Msg("Price impact computed")
	return impact.String(), nil
}

// orOne parses val and substitutes 1 for zero or garbage, so an unpriced
// input token still sizes a usable reference probe.
func orOne(val string) decimal.Decimal {
	d := amount.Safe(val)
	if d.IsZero() {
		return decimal.NewFromInt(1)
	}
	return d
}

// swapMsg is the nested instruction blob inside the swap call's args. It is
// decoded loosely so aggregator-private fields survive the round trip.
type swapMsg map[string]any

// GenerateTransaction fetches the routed swap call and rewrites its payload
// for execution: the receiver is pinned to the swap contract, the attached
// deposit is the standard one yocto, and when the output token is the
// wrapped-native contract the unwrap flag is flipped so the user receives
// native currency instead of the wrapped form.
func (q *Quoter) GenerateTransaction(ctx context.Context, req models.SwapQuoteRequest) (models.FunctionCall, error) {
	req = q.fill(req)
	inMeta, err := q.resolver.Metadata(ctx, req.TokenIn)
	if err != nil {
		return models.FunctionCall{}, fmt.Errorf("resolve %s decimals: %w", req.TokenIn, err)
	}
	rawAmountIn, err := amount.Parse(req.AmountIn, inMeta.Decimals)
	if err != nil {
		return models.FunctionCall{}, err
	}

	call, err := q.api.SwapPath(ctx, PathParams{
		TokenIn:  req.TokenIn,
		TokenOut: req.TokenOut,
		AmountIn: rawAmountIn,
		PathDeep: req.PathDeep,
		Slippage: req.Slippage,
	})
	if err != nil {
		return models.FunctionCall{}, err
	}

	var args map[string]any
	if err := json.Unmarshal(call.Args, &args); err != nil {
		return models.FunctionCall{}, fmt.Errorf("failed to parse swap args: %w", err)
	}

	msgStr, _ := args["msg"].(string)
	var msg swapMsg
	if err := json.Unmarshal([]byte(msgStr), &msg); err != nil {
		return models.FunctionCall{}, fmt.Errorf("failed to parse swap msg: %w", err)
	}
	actions, _ := msg["actions"].([]any)
	if len(actions) == 0 {
		return models.FunctionCall{}, ErrNoPath
	}
	if req.TokenOut == q.nativeToken {
		msg["skip_unwrap_near"] = false
	}

	newMsg, err := json.Marshal(msg)
	if err != nil {
		return models.FunctionCall{}, err
	}
	args["msg"] = string(newMsg)
	args["receiver_id"] = q.swapContract

	newArgs, err := json.Marshal(args)
	if err != nil {
		return models.FunctionCall{}, err
	}

	call.Args = newArgs
	call.Deposit = "1"
	return call, nil
}

// Swap executes the full flow: generate the routed call, let the composer
// assemble the batch (registration, wrap, gas bump), submit it atomically,
// and return the normalized outcomes.
func (q *Quoter) Swap(ctx context.Context, req models.SwapQuoteRequest) ([]models.ExecutionOutcome, error) {
	if q.wallet.Identity().AccountID == "" {
		return nil, errors.New("wallet not found")
	}
	call, err := q.GenerateTransaction(ctx, req)
	if err != nil {
		return nil, err
	}
	return q.composer.ExecuteSwap(ctx, call, req.TokenIn, req.TokenOut, req.AmountIn)
}
