package rpc

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/nearsat-labs/wallet-gateway/gateway/bridge"
	"github.com/nearsat-labs/wallet-gateway/gateway/composer"
	"github.com/nearsat-labs/wallet-gateway/gateway/models"
	"github.com/nearsat-labs/wallet-gateway/gateway/store"
	"github.com/nearsat-labs/wallet-gateway/gateway/swap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logger.Warn().Err(err).Msg("failed to encode response")
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// upstreamStatus maps a handler error to a response status. Execution
// failures reported by the chain come back as 422 so clients can show the
// failure detail; everything else is an upstream fault.
func upstreamStatus(err error) int {
	var execErr *composer.ExecutionError
	if errors.As(err, &execErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, bridge.QueryChains())
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if !models.ValidAccountID(token) {
		writeError(w, http.StatusBadRequest, "invalid token contract")
		return
	}

	balance := s.deps.Resolver.GetBalance(r.Context(), token)
	writeJSON(w, http.StatusOK, models.Balance{
		Token:     token,
		Balance:   balance,
		Available: s.deps.Resolver.GetAvailableBalance(token, balance),
	})
}

func (s *Server) handleBridgeEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := models.BridgeEstimateRequest{
		Chain:       q.Get("chain"),
		Amount:      q.Get("amount"),
		BTCAccount:  q.Get("btcAccount"),
		NearAccount: q.Get("nearAccount"),
	}
	if req.Chain != models.ChainBTC && req.Chain != models.ChainNear {
		writeError(w, http.StatusBadRequest, "chain must be btc or near")
		return
	}
	if req.BTCAccount != "" && !models.ValidBTCAddress(req.BTCAccount) {
		writeError(w, http.StatusBadRequest, "invalid btc address")
		return
	}
	if req.NearAccount != "" && !models.ValidAccountID(req.NearAccount) {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	estimate, err := s.deps.Estimator.Estimate(r.Context(), req)
	if err != nil {
		Metrics().estimates.WithLabelValues(req.Chain, "error").Inc()
		Metrics().upstreamErrors.WithLabelValues("bridge").Inc()
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	Metrics().estimates.WithLabelValues(req.Chain, "ok").Inc()
	writeJSON(w, http.StatusOK, estimate)
}

func (s *Server) handleSwapQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := models.SwapQuoteRequest{
		TokenIn:  q.Get("tokenIn"),
		TokenOut: q.Get("tokenOut"),
		AmountIn: q.Get("amountIn"),
	}
	if slippage := q.Get("slippage"); slippage != "" {
		val, err := strconv.ParseFloat(slippage, 64)
		if err != nil || val < 0 || val >= 1 {
			writeError(w, http.StatusBadRequest, "slippage must be in [0, 1)")
			return
		}
		req.Slippage = val
	}
	if !models.ValidAccountID(req.TokenIn) || !models.ValidAccountID(req.TokenOut) {
		writeError(w, http.StatusBadRequest, "invalid token contract")
		return
	}

	quote, err := s.deps.Quoter.Query(r.Context(), req)
	if err != nil {
		Metrics().quotes.WithLabelValues("error").Inc()
		Metrics().upstreamErrors.WithLabelValues("swap").Inc()
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if impact, err := s.deps.Quoter.QueryPriceImpact(r.Context(), req); err == nil {
		quote.PriceImpact = impact
	} else {
		Logger.Warn().Err(err).Msg("price impact unavailable")
	}
	Metrics().quotes.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req models.SwapQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !models.ValidAccountID(req.TokenIn) || !models.ValidAccountID(req.TokenOut) {
		writeError(w, http.StatusBadRequest, "invalid token contract")
		return
	}
	if req.AmountIn == "" {
		writeError(w, http.StatusBadRequest, "amountIn is required")
		return
	}

	outcomes, err := s.deps.Quoter.Swap(r.Context(), req)
	if err != nil {
		if errors.Is(err, swap.ErrNoPath) {
			Metrics().submissions.WithLabelValues("swap", "no_path").Inc()
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		Metrics().submissions.WithLabelValues("swap", "error").Inc()
		writeError(w, upstreamStatus(err), err.Error())
		return
	}
	Metrics().submissions.WithLabelValues("swap", "ok").Inc()
	writeJSON(w, http.StatusOK, models.SubmitResult{Outcomes: outcomes})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req models.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !models.ValidAccountID(req.Token) {
		writeError(w, http.StatusBadRequest, "invalid token contract")
		return
	}
	if !models.ValidAccountID(req.Recipient) {
		writeError(w, http.StatusBadRequest, "invalid recipient")
		return
	}
	if req.Amount == "" {
		writeError(w, http.StatusBadRequest, "amount is required")
		return
	}

	outcomes, err := s.deps.Composer.ExecuteSend(r.Context(), req.Token, req.Recipient, req.Amount)
	if err != nil {
		Metrics().submissions.WithLabelValues("send", "error").Inc()
		writeError(w, upstreamStatus(err), err.Error())
		return
	}
	Metrics().submissions.WithLabelValues("send", "ok").Inc()
	writeJSON(w, http.StatusOK, models.SubmitResult{Outcomes: outcomes})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	identity := s.deps.Wallet.Identity()
	if identity.BTCPublicKey == "" {
		writeError(w, http.StatusBadRequest, "no wallet connected")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	records, err := s.deps.History.BTCTxHistory(r.Context(), identity.BTCPublicKey, page, pageSize)
	if err != nil {
		Metrics().upstreamErrors.WithLabelValues("history").Inc()
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type tokenListResponse struct {
	Tokens   []string                        `json:"tokens"`
	Hidden   []string                        `json:"hidden"`
	Metadata map[string]models.TokenMetadata `json:"metadata"`
	Balances map[string]string               `json:"balances"`
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	tokens := s.deps.Tokens.Tokens()
	resp := tokenListResponse{
		Tokens:   tokens,
		Hidden:   s.deps.Tokens.HiddenTokens(),
		Metadata: s.deps.Resolver.MetadataBatch(r.Context(), tokens),
		Balances: make(map[string]string, len(tokens)),
	}
	for _, t := range tokens {
		resp.Balances[t] = s.deps.Tokens.Balance(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTokenImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !models.ValidAccountID(req.Token) {
		writeError(w, http.StatusBadRequest, "invalid token contract")
		return
	}

	// the contract must expose ft_metadata before it is importable
	meta, err := s.deps.Resolver.Metadata(r.Context(), req.Token)
	if err != nil {
		writeError(w, http.StatusBadGateway, "token metadata unavailable")
		return
	}

	s.deps.Tokens.AddToken(req.Token)
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleTokensHidden(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tokens []string `json:"tokens"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, t := range req.Tokens {
		if !models.ValidAccountID(t) {
			writeError(w, http.StatusBadRequest, "invalid token contract")
			return
		}
	}

	s.deps.Tokens.SetHiddenTokens(req.Tokens)
	writeJSON(w, http.StatusOK, map[string][]string{"hidden": s.deps.Tokens.HiddenTokens()})
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Prices.All())
}

func (s *Server) handleWalletConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID    string `json:"accountId"`
		BTCAccountID string `json:"btcAccountId"`
		BTCPublicKey string `json:"btcPublicKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !models.ValidAccountID(req.AccountID) {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	if req.BTCAccountID != "" && !models.ValidBTCAddress(req.BTCAccountID) {
		writeError(w, http.StatusBadRequest, "invalid btc address")
		return
	}

	s.deps.Wallet.SetIdentity(store.WalletIdentity{
		AccountID:    req.AccountID,
		BTCAccountID: req.BTCAccountID,
		BTCPublicKey: req.BTCPublicKey,
	})
	if s.deps.OnConnect != nil {
		s.deps.OnConnect()
	}
	writeJSON(w, http.StatusOK, map[string]string{"accountId": req.AccountID})
}

func (s *Server) handleWalletDisconnect(w http.ResponseWriter, r *http.Request) {
	s.deps.Wallet.Clear()
	writeJSON(w, http.StatusOK, map[string]bool{"disconnected": true})
}
