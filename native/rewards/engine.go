package rewards

import (
	"github.com/holiman/uint256"

	"stakevault/core/types"
	"stakevault/crypto"
)

// ledgerState is the persistence surface the engine needs from the
// surrounding keeper. Positions are created lazily on first access and never
// removed.
type ledgerState interface {
	PoolCount() (uint64, error)
	GetPool(id uint64) (*Pool, error)
	PutPool(pool *Pool) error
	AllocatePoolID() (uint64, error)
	GetPosition(poolID uint64, addr crypto.Address) (*Position, error)
	PutPosition(poolID uint64, pos *Position) error
	VotingRewardBalance(asset string) (*uint256.Int, error)
	SetVotingRewardBalance(asset string, amount *uint256.Int) error
	CurrentVote() (string, error)
	SetVote(vote string) error
	AppendEvent(evt *types.Event)
}

// AssetTransferor schedules an outgoing debit from the ledger's own balance.
// Transfers are fire-and-forget effects of the current operation; a failure
// aborts the whole operation.
type AssetTransferor interface {
	Transfer(to crypto.Address, asset string, amount *uint256.Int) error
}

// VoteRegistrar is the external registrar the owner may cast a vote with on
// behalf of the ledger.
type VoteRegistrar interface {
	Cast(name string) error
	Revoke() error
}

// Engine orchestrates the state transitions for the staking-rewards module.
// Operations take the current time unit explicitly; the execution environment
// serialises mutating calls, so no internal locking is required.
type Engine struct {
	state      ledgerState
	transferor AssetTransferor
	registrar  VoteRegistrar
	owner      crypto.Address
	adminDelay uint64
}

// NewEngine constructs an engine gated on the given owner address. adminDelay
// is the mandatory wait after pool close before dust may be reclaimed.
func NewEngine(owner crypto.Address, adminDelay uint64) *Engine {
	return &Engine{owner: owner, adminDelay: adminDelay}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state ledgerState) { e.state = state }

// SetTransferor wires the outgoing asset-transfer collaborator.
func (e *Engine) SetTransferor(t AssetTransferor) { e.transferor = t }

// SetRegistrar wires the external vote registrar.
func (e *Engine) SetRegistrar(r VoteRegistrar) { e.registrar = r }

// Owner returns the address authorised for owner-gated operations.
func (e *Engine) Owner() crypto.Address { return e.owner }

func (e *Engine) requireOwner(sender crypto.Address) error {
	if !sender.Equal(e.owner) {
		return ErrNotOwner
	}
	return nil
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.transferor == nil {
		return ErrNilTransferor
	}
	return nil
}

func (e *Engine) loadPool(poolID uint64) (*Pool, error) {
	pool, err := e.state.GetPool(poolID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, ErrPoolNotFound
	}
	return pool.Clone(), nil
}

func (e *Engine) loadPosition(poolID uint64, addr crypto.Address) (*Position, error) {
	pos, err := e.state.GetPosition(poolID, addr)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		pos = &Position{Address: addr}
	} else {
		pos = pos.Clone()
	}
	pos.normalize()
	return pos, nil
}

// updateAccrual brings the pool's cumulative reward-per-stake accumulator
// current to now, never advancing past EndTime. While nobody is staked the
// accumulator stands still and the skipped reward stays in RewardRemaining
// until the owner reclaims it as dust.
func (e *Engine) updateAccrual(pool *Pool, now uint64) error {
	effective := now
	if effective > pool.EndTime {
		effective = pool.EndTime
	}
	if effective <= pool.LastAccrualTime {
		return nil
	}
	if pool.TotalStaked.IsZero() {
		pool.LastAccrualTime = effective
		return nil
	}
	elapsed := uint256.NewInt(effective - pool.LastAccrualTime)
	released, err := checkedMul(pool.RewardRatePerPeriod, elapsed)
	if err != nil {
		return err
	}
	// Floor division; the truncated remainder is the sole source of dust.
	increment, err := mulDiv(released, scale, pool.TotalStaked)
	if err != nil {
		return err
	}
	updated, err := checkedAdd(pool.CumulativeRewardPerStake, increment)
	if err != nil {
		return err
	}
	pool.CumulativeRewardPerStake = updated
	pool.LastAccrualTime = effective
	return nil
}

// accruedDebt returns floor(stake * accumulator / scale), the debt value that
// zeroes out the position's pending reward against the current accumulator.
func accruedDebt(pool *Pool, pos *Position) (*uint256.Int, error) {
	return mulDiv(pos.Stake, pool.CumulativeRewardPerStake, scale)
}

// pendingReward computes the reward owed to the position and not yet paid.
func pendingReward(pool *Pool, pos *Position) (*uint256.Int, error) {
	earned, err := accruedDebt(pool, pos)
	if err != nil {
		return nil, err
	}
	return checkedSub(earned, pos.RewardDebt)
}

// settleReward deducts the position's pending reward from the pool supply and
// returns the scaled amount to pay out. The caller schedules the transfer.
func settleReward(pool *Pool, pos *Position) (*uint256.Int, error) {
	pending, err := pendingReward(pool, pos)
	if err != nil {
		return nil, err
	}
	if pending.IsZero() {
		return pending, nil
	}
	if pending.Gt(pool.RewardRemaining) {
		return nil, ErrRewardExhausted
	}
	remaining, err := checkedSub(pool.RewardRemaining, pending)
	if err != nil {
		return nil, err
	}
	paid, err := checkedAdd(pool.PaidOut, pending)
	if err != nil {
		return nil, err
	}
	pool.RewardRemaining = remaining
	pool.PaidOut = paid
	return pending, nil
}

// Deposit stakes amount of the pool's staking asset for sender, paying out
// any reward pending on an existing position first. The attached asset must
// match the pool's staking asset and the pool must still be open.
func (e *Engine) Deposit(sender crypto.Address, poolID uint64, asset string, amount *uint256.Int, now uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if asset != pool.StakeAsset {
		return ErrWrongStakeAsset
	}
	if now > pool.EndTime {
		return ErrPoolClosed
	}
	if err := e.updateAccrual(pool, now); err != nil {
		return err
	}
	pos, err := e.loadPosition(poolID, sender)
	if err != nil {
		return err
	}
	pos.DepositTime = now
	if pos.DepositTime < pool.StartTime {
		pos.DepositTime = pool.StartTime
	}

	claimed := uint256.NewInt(0)
	if !pos.Stake.IsZero() {
		claimed, err = settleReward(pool, pos)
		if err != nil {
			return err
		}
	}

	pos.Stake, err = checkedAdd(pos.Stake, amount)
	if err != nil {
		return err
	}
	pool.TotalStaked, err = checkedAdd(pool.TotalStaked, amount)
	if err != nil {
		return err
	}
	pos.RewardDebt, err = accruedDebt(pool, pos)
	if err != nil {
		return err
	}

	var payout *uint256.Int
	if !claimed.IsZero() {
		payout, err = checkedMul(claimed, pool.DecimalsRemovedFactor)
		if err != nil {
			return err
		}
		if err := e.transferor.Transfer(sender, pool.RewardAsset, payout); err != nil {
			return err
		}
	}

	if err := e.state.PutPool(pool); err != nil {
		return err
	}
	if err := e.state.PutPosition(poolID, pos); err != nil {
		return err
	}

	if !claimed.IsZero() {
		e.state.AppendEvent(newClaimEvent(sender, poolID, claimed, payout))
	}
	e.state.AppendEvent(newDepositEvent(sender, poolID, amount))
	return nil
}

// Withdraw pays out the position's pending reward unconditionally and then
// returns up to amount of principal. While the deposit timelock is active
// inside the accrual window the principal movement is forced to zero; the
// reward claim still happens, so a locked user can claim without principal.
func (e *Engine) Withdraw(sender crypto.Address, poolID uint64, amount *uint256.Int, now uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	pos, err := e.loadPosition(poolID, sender)
	if err != nil {
		return err
	}
	if pos.Stake.IsZero() {
		return ErrNoStake
	}
	if amount == nil {
		amount = uint256.NewInt(0)
	}
	if amount.Gt(pos.Stake) {
		return ErrAmountExceedsStake
	}
	if err := e.updateAccrual(pool, now); err != nil {
		return err
	}

	claimed, err := settleReward(pool, pos)
	if err != nil {
		return err
	}

	actual := new(uint256.Int).Set(amount)
	if now >= pool.StartTime && now <= pool.EndTime && pos.DepositTime+pool.TimelockDuration > now {
		actual.Clear()
	}

	pos.Stake, err = checkedSub(pos.Stake, actual)
	if err != nil {
		return err
	}
	pool.TotalStaked, err = checkedSub(pool.TotalStaked, actual)
	if err != nil {
		return err
	}
	pos.RewardDebt, err = accruedDebt(pool, pos)
	if err != nil {
		return err
	}

	var payout *uint256.Int
	if !claimed.IsZero() {
		payout, err = checkedMul(claimed, pool.DecimalsRemovedFactor)
		if err != nil {
			return err
		}
		if err := e.transferor.Transfer(sender, pool.RewardAsset, payout); err != nil {
			return err
		}
	}
	if !actual.IsZero() {
		if err := e.transferor.Transfer(sender, pool.StakeAsset, actual); err != nil {
			return err
		}
	}

	if err := e.state.PutPool(pool); err != nil {
		return err
	}
	if err := e.state.PutPosition(poolID, pos); err != nil {
		return err
	}

	if !claimed.IsZero() {
		e.state.AppendEvent(newClaimEvent(sender, poolID, claimed, payout))
	}
	if !actual.IsZero() {
		e.state.AppendEvent(newWithdrawEvent(sender, poolID, actual))
	}
	return nil
}
