package rewards

import (
	"strings"

	"github.com/holiman/uint256"

	"stakevault/crypto"
)

// SendVote casts a stake-weighted vote with the external registrar on behalf
// of the ledger and records it. Owner only.
func (e *Engine) SendVote(sender crypto.Address, name string) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := e.requireOwner(sender); err != nil {
		return err
	}
	if e.registrar == nil {
		return ErrNilRegistrar
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyVote
	}
	if err := e.registrar.Cast(name); err != nil {
		return err
	}
	return e.state.SetVote(name)
}

// CancelVote revokes the ledger's current vote with the registrar. Owner only.
func (e *Engine) CancelVote(sender crypto.Address) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := e.requireOwner(sender); err != nil {
		return err
	}
	if e.registrar == nil {
		return ErrNilRegistrar
	}
	if err := e.registrar.Revoke(); err != nil {
		return err
	}
	return e.state.SetVote("")
}

// Vote returns the name currently voted for, or the empty string.
func (e *Engine) Vote() (string, error) {
	if e == nil || e.state == nil {
		return "", ErrNilState
	}
	return e.state.CurrentVote()
}

// NotifyDeposit is the fallback receiver: any asset credited to the ledger
// outside a defined operation accrues to the per-asset voting reward balance.
func (e *Engine) NotifyDeposit(asset string, amount *uint256.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	balance, err := e.state.VotingRewardBalance(asset)
	if err != nil {
		return err
	}
	if balance == nil {
		balance = uint256.NewInt(0)
	}
	updated, err := checkedAdd(balance, amount)
	if err != nil {
		return err
	}
	return e.state.SetVotingRewardBalance(asset, updated)
}

// WithdrawVotingReward sweeps the accumulated fallback balance for asset to
// the owner. The balance is zeroed before the transfer is scheduled so a
// re-entrant transfer callback cannot drain it twice. Owner only.
func (e *Engine) WithdrawVotingReward(sender crypto.Address, asset string) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.requireOwner(sender); err != nil {
		return nil, err
	}
	balance, err := e.state.VotingRewardBalance(asset)
	if err != nil {
		return nil, err
	}
	if balance == nil || balance.IsZero() {
		return nil, ErrNoVotingReward
	}
	amount := new(uint256.Int).Set(balance)
	if err := e.state.SetVotingRewardBalance(asset, uint256.NewInt(0)); err != nil {
		return nil, err
	}
	if err := e.transferor.Transfer(e.owner, asset, amount); err != nil {
		return nil, err
	}
	return amount, nil
}
