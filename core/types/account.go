package types

import "github.com/holiman/uint256"

// Account holds the asset balances tracked for a single address. Balances are
// keyed by opaque asset identifier and expressed as 256-bit unsigned integers
// to match the ledger's precision.
type Account struct {
	Balances map[string]*uint256.Int `json:"balances"`
}

// NewAccount returns an account with an initialised balance table.
func NewAccount() *Account {
	return &Account{Balances: make(map[string]*uint256.Int)}
}

// Balance returns the balance held for asset, treating missing entries as zero.
func (a *Account) Balance(asset string) *uint256.Int {
	if a == nil || a.Balances == nil {
		return uint256.NewInt(0)
	}
	if bal, ok := a.Balances[asset]; ok && bal != nil {
		return new(uint256.Int).Set(bal)
	}
	return uint256.NewInt(0)
}

// SetBalance records the balance held for asset.
func (a *Account) SetBalance(asset string, amount *uint256.Int) {
	if a.Balances == nil {
		a.Balances = make(map[string]*uint256.Int)
	}
	if amount == nil {
		amount = uint256.NewInt(0)
	}
	a.Balances[asset] = new(uint256.Int).Set(amount)
}
