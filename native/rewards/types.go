package rewards

import (
	"github.com/holiman/uint256"

	"stakevault/crypto"
)

// Pool captures the accounting state for a single staking campaign. Amounts
// are held in scaled reward units (raw units divided by the decimals factor)
// and expressed as 256-bit unsigned integers to keep the fixed-point
// accumulator in range.
type Pool struct {
	// ID is the registry-assigned identifier; ids are dense, monotonically
	// increasing, and never reused.
	ID uint64
	// StakeAsset identifies the token users deposit into the pool.
	StakeAsset string
	// RewardAsset identifies the token the pool releases as reward.
	RewardAsset string
	// TotalStaked is the sum of all user positions currently in the pool.
	TotalStaked *uint256.Int
	// TotalRewardFunded is the cumulative scaled reward ever deposited.
	TotalRewardFunded *uint256.Int
	// RewardRemaining is funded reward not yet paid out.
	RewardRemaining *uint256.Int
	// StartTime and EndTime delimit the half-open accrual window; accrual
	// never advances past EndTime.
	StartTime uint64
	EndTime   uint64
	// LastAccrualTime is the time unit the accumulator was last brought
	// current to; initialised to StartTime and bounded above by EndTime.
	LastAccrualTime uint64
	// RewardRatePerPeriod is the scaled reward released per time unit, fixed
	// at creation. Funding extends EndTime while holding the rate constant.
	RewardRatePerPeriod *uint256.Int
	// CumulativeRewardPerStake is the fixed-point accumulator, scaled by 1e36,
	// of reward earned per unit of stake since pool inception.
	CumulativeRewardPerStake *uint256.Int
	// PaidOut is the cumulative scaled reward transferred to users.
	PaidOut *uint256.Int
	// DecimalsRemovedFactor converts scaled reward units back to raw
	// reward-asset units on payout.
	DecimalsRemovedFactor *uint256.Int
	// TimelockDuration is the minimum time a deposit must remain staked
	// before principal may be withdrawn.
	TimelockDuration uint64
}

// Position records one user's stake in one pool. Positions are created lazily
// on first deposit and persist at zero stake as the claim history anchor.
type Position struct {
	Address crypto.Address
	// Stake is the amount currently deposited.
	Stake *uint256.Int
	// RewardDebt offsets the accumulator so that pending reward for the
	// position is exactly zero immediately after every balance change.
	RewardDebt *uint256.Int
	// DepositTime is the time unit of the last stake-increasing deposit,
	// clamped to the pool start, used for timelock evaluation.
	DepositTime uint64
}

func (p *Pool) normalize() {
	if p.TotalStaked == nil {
		p.TotalStaked = uint256.NewInt(0)
	}
	if p.TotalRewardFunded == nil {
		p.TotalRewardFunded = uint256.NewInt(0)
	}
	if p.RewardRemaining == nil {
		p.RewardRemaining = uint256.NewInt(0)
	}
	if p.RewardRatePerPeriod == nil {
		p.RewardRatePerPeriod = uint256.NewInt(0)
	}
	if p.CumulativeRewardPerStake == nil {
		p.CumulativeRewardPerStake = uint256.NewInt(0)
	}
	if p.PaidOut == nil {
		p.PaidOut = uint256.NewInt(0)
	}
	if p.DecimalsRemovedFactor == nil || p.DecimalsRemovedFactor.IsZero() {
		p.DecimalsRemovedFactor = uint256.NewInt(1)
	}
}

// Clone returns a deep copy so operations can stage mutations without
// touching persisted state until every precondition has passed.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	cloned := &Pool{
		ID:               p.ID,
		StakeAsset:       p.StakeAsset,
		RewardAsset:      p.RewardAsset,
		StartTime:        p.StartTime,
		EndTime:          p.EndTime,
		LastAccrualTime:  p.LastAccrualTime,
		TimelockDuration: p.TimelockDuration,
	}
	if p.TotalStaked != nil {
		cloned.TotalStaked = new(uint256.Int).Set(p.TotalStaked)
	}
	if p.TotalRewardFunded != nil {
		cloned.TotalRewardFunded = new(uint256.Int).Set(p.TotalRewardFunded)
	}
	if p.RewardRemaining != nil {
		cloned.RewardRemaining = new(uint256.Int).Set(p.RewardRemaining)
	}
	if p.RewardRatePerPeriod != nil {
		cloned.RewardRatePerPeriod = new(uint256.Int).Set(p.RewardRatePerPeriod)
	}
	if p.CumulativeRewardPerStake != nil {
		cloned.CumulativeRewardPerStake = new(uint256.Int).Set(p.CumulativeRewardPerStake)
	}
	if p.PaidOut != nil {
		cloned.PaidOut = new(uint256.Int).Set(p.PaidOut)
	}
	if p.DecimalsRemovedFactor != nil {
		cloned.DecimalsRemovedFactor = new(uint256.Int).Set(p.DecimalsRemovedFactor)
	}
	cloned.normalize()
	return cloned
}

func (pos *Position) normalize() {
	if pos.Stake == nil {
		pos.Stake = uint256.NewInt(0)
	}
	if pos.RewardDebt == nil {
		pos.RewardDebt = uint256.NewInt(0)
	}
}

// Clone returns a deep copy of the position.
func (pos *Position) Clone() *Position {
	if pos == nil {
		return nil
	}
	cloned := &Position{
		Address:     pos.Address,
		DepositTime: pos.DepositTime,
	}
	if pos.Stake != nil {
		cloned.Stake = new(uint256.Int).Set(pos.Stake)
	}
	if pos.RewardDebt != nil {
		cloned.RewardDebt = new(uint256.Int).Set(pos.RewardDebt)
	}
	cloned.normalize()
	return cloned
}

// PositionView is the query projection of a position with the pending reward
// computed against the pool's up-to-date accumulator.
type PositionView struct {
	Address     crypto.Address
	Stake       *uint256.Int
	RewardDebt  *uint256.Int
	Pending     *uint256.Int
	DepositTime uint64
}

// PoolTable is the bulk all-pools snapshot: parallel asset-id slices plus a
// flattened block of ten integers per pool in fixed field order
// (totalStaked, totalRewardFunded, startTime, endTime, lastAccrualTime,
// rewardRatePerPeriod, cumulativeRewardPerStake, paidOut,
// decimalsRemovedFactor, timelockDuration).
type PoolTable struct {
	StakeAssets  []string
	RewardAssets []string
	Fields       []*uint256.Int
}

// PoolFieldCount is the number of integers per pool in PoolTable.Fields.
const PoolFieldCount = 10
