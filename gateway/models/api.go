package models

// Bridge direction targets. A bridge estimate always names the chain the
// funds are moving TO.
const (
	ChainBTC  = "btc"
	ChainNear = "near"
)

// BridgeEstimateRequest asks for a symmetric bridge quote.
type BridgeEstimateRequest struct {
	Chain       string `json:"chain"`
	Amount      string `json:"amount"`
	BTCAccount  string `json:"btcAccount,omitempty"`
	NearAccount string `json:"nearAccount,omitempty"`
}

// BridgeEstimate is a bridge quote. A zero-valued quote with CanBridge=false
// and no Error is the idle state, not a failure. Ineligibility (withdraw
// below dust, insufficient liquidity) arrives as CanBridge=false with Error
// carrying the human-readable reason.
type BridgeEstimate struct {
	Time          string `json:"time"`
	GasFee        string `json:"gasFee"`
	ProtocolFee   string `json:"protocolFee"`
	ReceiveAmount string `json:"receiveAmount"`
	CanBridge     bool   `json:"canBridge"`
	Error         string `json:"error,omitempty"`
}

// SwapQuoteRequest asks for an executable swap quote.
type SwapQuoteRequest struct {
	TokenIn     string  `json:"tokenIn"`
	TokenOut    string  `json:"tokenOut"`
	AmountIn    string  `json:"amountIn"`
	Slippage    float64 `json:"slippage,omitempty"`
	PathDeep    int     `json:"pathDeep,omitempty"`
	RouterCount int     `json:"routerCount,omitempty"`
}

// SwapPool is one hop of a routed swap.
type SwapPool struct {
	PoolID       string `json:"pool_id"`
	TokenIn      string `json:"token_in"`
	TokenOut     string `json:"token_out"`
	AmountIn     string `json:"amount_in"`
	AmountOut    string `json:"amount_out"`
	MinAmountOut string `json:"min_amount_out"`
}

// SwapRoute is one routed path returned by the path finder; raw units.
type SwapRoute struct {
	Pools        []SwapPool `json:"pools"`
	AmountIn     string     `json:"amount_in"`
	AmountOut    string     `json:"amount_out"`
	MinAmountOut string     `json:"min_amount_out"`
}

// SwapQuote is the human-readable quote derived from the path finder's
// response. Amounts are decimal strings in token precision, not raw units.
// A quote is only valid for the exact input tuple that produced it.
type SwapQuote struct {
	TokenIn      string      `json:"tokenIn"`
	TokenOut     string      `json:"tokenOut"`
	AmountIn     string      `json:"amountIn"`
	AmountOut    string      `json:"amountOut"`
	MinAmountOut string      `json:"minAmountOut"`
	Routes       []SwapRoute `json:"routes,omitempty"`
	PriceImpact  string      `json:"priceImpact,omitempty"`
}

// SendRequest is a plain transfer of a token to a recipient.
type SendRequest struct {
	Token     string `json:"token"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// SubmitResult reports an executed batch back to the caller.
type SubmitResult struct {
	Outcomes []ExecutionOutcome `json:"outcomes"`
}

// HistoryRecord is one custody-chain transaction returned by the relayer.
// The payload is passed through untouched; only paging is interpreted here.
type HistoryRecord map[string]any
