package models

// TokenMetadata is the ft_metadata view of a fungible token contract.
// Decimals must be resolved before any amount belonging to the token is
// parsed to raw units; a wrong decimal count corrupts amounts by powers
// of ten without any error surfacing.
type TokenMetadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
	Icon     string `json:"icon,omitempty"`
}

// ChainInfo describes one side of the bridge as presented to clients.
type ChainInfo struct {
	Chain string `json:"chain"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
}

// StorageBalance is the storage_balance_of view result. A nil result or an
// empty Available means the account has no storage registered for the token.
type StorageBalance struct {
	Total     string `json:"total"`
	Available string `json:"available"`
}

// Balance pairs the raw balance of a token with the spendable portion that
// remains after the token's reserve is held back.
type Balance struct {
	Token     string `json:"token"`
	Balance   string `json:"balance"`
	Available string `json:"available"`
}
