// Package store holds the mutable application state shared by the
// orchestrator components: the wallet identity, the token list with its
// metadata and balances, and the price map. Each store owns its fields and
// is mutated only through its setters (single writer per field); readers get
// copied snapshots. Subscribers are notified after every mutation.
package store

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearsat-labs/wallet-gateway/gateway/models"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "store").Logger()
}

// Listener is invoked after a store mutation. Callbacks run synchronously
// under no lock; they must not mutate the store that called them.
type Listener func()

type notifier struct {
	mu   sync.Mutex
	subs map[int]Listener
	next int
}

// Subscribe registers fn and returns an unsubscribe func.
func (n *notifier) Subscribe(fn Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]Listener)
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *notifier) notify() {
	n.mu.Lock()
	fns := make([]Listener, 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// WalletIdentity is the pair of identities that make up an account: the
// custody-chain address and the derived execution-chain account. Both are
// opaque strings owned by the external wallet handshake.
type WalletIdentity struct {
	AccountID    string `json:"accountId"`
	BTCAccountID string `json:"btcAccountId"`
	BTCPublicKey string `json:"btcPublicKey"`
}

// WalletStore holds the session's wallet identity.
type WalletStore struct {
	mu       sync.RWMutex
	identity WalletIdentity
	notifier
}

// NewWalletStore returns an empty (disconnected) wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{}
}

// SetIdentity installs the identity received from the wallet handshake.
func (s *WalletStore) SetIdentity(id WalletIdentity) {
	s.mu.Lock()
	s.identity = id
	s.mu.Unlock()
	log.Info().Str("account", id.AccountID).Msg("Wallet identity set")
	s.notify()
}

// Clear wipes the identity on disconnect.
func (s *WalletStore) Clear() {
	s.mu.Lock()
	s.identity = WalletIdentity{}
	s.mu.Unlock()
	s.notify()
}

// Identity returns the current identity snapshot.
func (s *WalletStore) Identity() WalletIdentity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Connected reports whether both identities are resolved.
func (s *WalletStore) Connected() bool {
	id := s.Identity()
	return id.AccountID != "" && id.BTCAccountID != ""
}

// TokenStore holds the token list, the hidden set, the metadata cache and
// the per-token balances. The list, hidden set and metadata survive restarts
// through the persist layer; balances are session state.
type TokenStore struct {
	mu       sync.RWMutex
	persist  *Persist
	tokens   []string
	hidden   map[string]bool
	meta     map[string]models.TokenMetadata
	balances map[string]string
	notifier
}

const tokensNamespace = "tokens"

// NewTokenStore loads persisted state, seeding the token list from the
// allow list on first run. persist may be nil for in-memory use (tests).
func NewTokenStore(persist *Persist, allowList []string) (*TokenStore, error) {
	s := &TokenStore{
		persist:  persist,
		tokens:   append([]string(nil), allowList...),
		hidden:   make(map[string]bool),
		meta:     make(map[string]models.TokenMetadata),
		balances: make(map[string]string),
	}
	if persist == nil {
		return s, nil
	}

	var tokens []string
	if ok, err := persist.Get(tokensNamespace, "tokens", &tokens); err != nil {
		return nil, err
	} else if ok && len(tokens) > 0 {
		s.tokens = tokens
	}
	var hidden []string
	if ok, err := persist.Get(tokensNamespace, "hiddenTokens", &hidden); err != nil {
		return nil, err
	} else if ok {
		for _, t := range hidden {
			s.hidden[t] = true
		}
	}
	meta := make(map[string]models.TokenMetadata)
	if ok, err := persist.Get(tokensNamespace, "tokenMeta", &meta); err != nil {
		return nil, err
	} else if ok {
		s.meta = meta
	}
	return s, nil
}

// Tokens returns the full token list in insertion order.
func (s *TokenStore) Tokens() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.tokens...)
}

// DisplayableTokens returns the token list minus the hidden set.
func (s *TokenStore) DisplayableTokens() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tokens))
	for _, t := range s.tokens {
		if !s.hidden[t] {
			out = append(out, t)
		}
	}
	return out
}

// AddToken appends a user-imported token; no-op when already present.
func (s *TokenStore) AddToken(token string) {
	s.mu.Lock()
	for _, t := range s.tokens {
		if t == token {
			s.mu.Unlock()
			return
		}
	}
	s.tokens = append(s.tokens, token)
	tokens := append([]string(nil), s.tokens...)
	s.mu.Unlock()

	s.save("tokens", tokens)
	s.notify()
}

// SetHiddenTokens replaces the hidden set.
func (s *TokenStore) SetHiddenTokens(hidden []string) {
	s.mu.Lock()
	s.hidden = make(map[string]bool, len(hidden))
	for _, t := range hidden {
		s.hidden[t] = true
	}
	s.mu.Unlock()

	s.save("hiddenTokens", hidden)
	s.notify()
}

// HiddenTokens returns the hidden set as a list.
func (s *TokenStore) HiddenTokens() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.hidden))
	for t := range s.hidden {
		out = append(out, t)
	}
	return out
}

// Metadata returns the cached metadata for token.
func (s *TokenStore) Metadata(token string) (models.TokenMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meta[token]
	return m, ok
}

// MergeMetadata merges freshly resolved metadata into the cache.
func (s *TokenStore) MergeMetadata(meta map[string]models.TokenMetadata) {
	if len(meta) == 0 {
		return
	}
	s.mu.Lock()
	for token, m := range meta {
		s.meta[token] = m
	}
	merged := make(map[string]models.TokenMetadata, len(s.meta))
	for token, m := range s.meta {
		merged[token] = m
	}
	s.mu.Unlock()

	s.save("tokenMeta", merged)
	s.notify()
}

// Balance returns the last known balance of token ("" when never resolved).
func (s *TokenStore) Balance(token string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[token]
}

// SetBalance records a freshly resolved balance.
func (s *TokenStore) SetBalance(token, balance string) {
	s.mu.Lock()
	s.balances[token] = balance
	s.mu.Unlock()
	s.notify()
}

func (s *TokenStore) save(key string, val any) {
	if s.persist == nil {
		return
	}
	if err := s.persist.Set(tokensNamespace, key, val); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to persist token state")
	}
}

// PriceStore holds the fiat price per token symbol.
type PriceStore struct {
	mu     sync.RWMutex
	prices map[string]string
	notifier
}

// NewPriceStore returns an empty price store.
func NewPriceStore() *PriceStore {
	return &PriceStore{prices: make(map[string]string)}
}

// SetAll replaces the whole price map.
func (s *PriceStore) SetAll(prices map[string]string) {
	s.mu.Lock()
	s.prices = make(map[string]string, len(prices))
	for sym, p := range prices {
		s.prices[sym] = p
	}
	s.mu.Unlock()
	s.notify()
}

// Price returns the fiat price of symbol, "" when unknown.
func (s *PriceStore) Price(symbol string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prices[symbol]
}

// All returns a copy of the full price map.
func (s *PriceStore) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.prices))
	for sym, p := range s.prices {
		out[sym] = p
	}
	return out
}
