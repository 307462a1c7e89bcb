package rewards

import (
	"github.com/holiman/uint256"

	"stakevault/crypto"
)

// CreatePoolArgs carries the creation-time parameters of a pool. FundedAmount
// is the attached reward-asset amount in raw units.
type CreatePoolArgs struct {
	StartTime        uint64
	EndTime          uint64
	StakeAsset       string
	RewardAsset      string
	DecimalsRemoved  uint8
	TimelockDuration uint64
	FundedAmount     *uint256.Int
}

// CreatePool validates the args, allocates a fresh pool id, and registers
// the pool with its full reward supply attached. Owner only.
func (e *Engine) CreatePool(sender crypto.Address, args CreatePoolArgs, now uint64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := e.requireOwner(sender); err != nil {
		return 0, err
	}
	if now >= args.StartTime || args.StartTime >= args.EndTime {
		return 0, ErrInvalidWindow
	}
	if args.DecimalsRemoved > maxDecimalsRemoved {
		return 0, ErrDecimalsTooLarge
	}
	if args.TimelockDuration >= periodsPerYear {
		return 0, ErrTimelockTooLong
	}
	if args.FundedAmount == nil || args.FundedAmount.IsZero() {
		return 0, ErrInvalidAmount
	}
	factor, err := pow10(args.DecimalsRemoved)
	if err != nil {
		return 0, err
	}
	// Reject, never round: the attached supply must divide evenly.
	if !new(uint256.Int).Mod(args.FundedAmount, factor).IsZero() {
		return 0, ErrIndivisibleAmount
	}
	scaled, err := checkedDiv(args.FundedAmount, factor)
	if err != nil {
		return 0, err
	}
	if !scaled.Gt(minScaledSupply) || !scaled.Lt(maxScaledSupply) {
		return 0, ErrSupplyOutOfBounds
	}

	duration := uint256.NewInt(args.EndTime - args.StartTime)
	// Floor division; the remainder is upfront dust that stays in
	// RewardRemaining until reclaimed.
	rate, err := checkedDiv(scaled, duration)
	if err != nil {
		return 0, err
	}

	id, err := e.state.AllocatePoolID()
	if err != nil {
		return 0, err
	}
	pool := &Pool{
		ID:                       id,
		StakeAsset:               args.StakeAsset,
		RewardAsset:              args.RewardAsset,
		TotalStaked:              uint256.NewInt(0),
		TotalRewardFunded:        scaled,
		RewardRemaining:          new(uint256.Int).Set(scaled),
		StartTime:                args.StartTime,
		EndTime:                  args.EndTime,
		LastAccrualTime:          args.StartTime,
		RewardRatePerPeriod:      rate,
		CumulativeRewardPerStake: uint256.NewInt(0),
		PaidOut:                  uint256.NewInt(0),
		DecimalsRemovedFactor:    factor,
		TimelockDuration:         args.TimelockDuration,
	}
	if err := e.state.PutPool(pool); err != nil {
		return 0, err
	}
	e.state.AppendEvent(newPoolCreatedEvent(pool))
	return id, nil
}

// FundPool tops up an open pool with additional reward supply. The release
// rate stays constant; the accrual window is extended by the whole time
// units the added supply can sustain. Owner only.
func (e *Engine) FundPool(sender crypto.Address, poolID uint64, asset string, amount *uint256.Int, now uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireOwner(sender); err != nil {
		return err
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if now >= pool.EndTime {
		return ErrPoolClosed
	}
	if asset != pool.RewardAsset {
		return ErrWrongRewardAsset
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	if !new(uint256.Int).Mod(amount, pool.DecimalsRemovedFactor).IsZero() {
		return ErrIndivisibleAmount
	}
	scaled, err := checkedDiv(amount, pool.DecimalsRemovedFactor)
	if err != nil {
		return err
	}
	if scaled.IsZero() {
		return ErrFundingTooSmall
	}
	if err := e.updateAccrual(pool, now); err != nil {
		return err
	}

	extension, err := checkedDiv(scaled, pool.RewardRatePerPeriod)
	if err != nil {
		return err
	}
	if extension.IsZero() {
		// Not enough to sustain the rate for even one time unit.
		return ErrFundingTooSmall
	}
	if !extension.IsUint64() {
		return ErrOverflow
	}
	newEnd := pool.EndTime + extension.Uint64()
	if newEnd < pool.EndTime {
		return ErrOverflow
	}

	funded, err := checkedAdd(pool.TotalRewardFunded, scaled)
	if err != nil {
		return err
	}
	if !funded.Lt(maxScaledSupply) {
		return ErrSupplyOutOfBounds
	}
	remaining, err := checkedAdd(pool.RewardRemaining, scaled)
	if err != nil {
		return err
	}
	pool.TotalRewardFunded = funded
	pool.RewardRemaining = remaining
	pool.EndTime = newEnd

	if err := e.state.PutPool(pool); err != nil {
		return err
	}
	e.state.AppendEvent(newPoolFundedEvent(pool, scaled))
	return nil
}

// WithdrawDust sweeps the pool's unclaimed reward remainder to the owner
// once the admin delay after pool close has elapsed. Users keep priority
// access during the delay; afterwards the whole remainder, including reward
// stranded by zero-stake periods, moves to the owner. Owner only.
func (e *Engine) WithdrawDust(sender crypto.Address, poolID uint64, now uint64) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.requireOwner(sender); err != nil {
		return nil, err
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return nil, err
	}
	if now <= pool.EndTime+e.adminDelay {
		return nil, ErrAdminDelayActive
	}
	if err := e.updateAccrual(pool, now); err != nil {
		return nil, err
	}
	if pool.RewardRemaining.IsZero() {
		return nil, ErrNoDustRemaining
	}
	if !pool.PaidOut.Lt(pool.TotalRewardFunded) {
		return nil, ErrRewardFullyPaid
	}

	amount := new(uint256.Int).Set(pool.RewardRemaining)
	paid, err := checkedAdd(pool.PaidOut, amount)
	if err != nil {
		return nil, err
	}
	pool.PaidOut = paid
	pool.RewardRemaining = uint256.NewInt(0)

	payout, err := checkedMul(amount, pool.DecimalsRemovedFactor)
	if err != nil {
		return nil, err
	}
	if err := e.transferor.Transfer(e.owner, pool.RewardAsset, payout); err != nil {
		return nil, err
	}
	if err := e.state.PutPool(pool); err != nil {
		return nil, err
	}
	e.state.AppendEvent(newDustWithdrawnEvent(e.owner, poolID, amount))
	return amount, nil
}

// PoolCount returns the number of pools ever created.
func (e *Engine) PoolCount() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	return e.state.PoolCount()
}

// PoolInfo returns a snapshot of a single pool.
func (e *Engine) PoolInfo(poolID uint64) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.loadPool(poolID)
}

// UserInfo returns the position snapshot for addr in poolID with the pending
// reward evaluated against an accumulator brought current to now. The
// simulation happens on a staged copy; persisted state is untouched.
func (e *Engine) UserInfo(poolID uint64, addr crypto.Address, now uint64) (*PositionView, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return nil, err
	}
	pos, err := e.loadPosition(poolID, addr)
	if err != nil {
		return nil, err
	}
	if err := e.updateAccrual(pool, now); err != nil {
		return nil, err
	}
	pending, err := pendingReward(pool, pos)
	if err != nil {
		return nil, err
	}
	return &PositionView{
		Address:     addr,
		Stake:       pos.Stake,
		RewardDebt:  pos.RewardDebt,
		Pending:     pending,
		DepositTime: pos.DepositTime,
	}, nil
}

// ListPools returns the bulk snapshot of every pool in creation order.
func (e *Engine) ListPools() (*PoolTable, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	count, err := e.state.PoolCount()
	if err != nil {
		return nil, err
	}
	table := &PoolTable{
		StakeAssets:  make([]string, 0, count),
		RewardAssets: make([]string, 0, count),
		Fields:       make([]*uint256.Int, 0, count*PoolFieldCount),
	}
	for id := uint64(0); id < count; id++ {
		pool, err := e.loadPool(id)
		if err != nil {
			return nil, err
		}
		table.StakeAssets = append(table.StakeAssets, pool.StakeAsset)
		table.RewardAssets = append(table.RewardAssets, pool.RewardAsset)
		table.Fields = append(table.Fields,
			pool.TotalStaked,
			pool.TotalRewardFunded,
			uint256.NewInt(pool.StartTime),
			uint256.NewInt(pool.EndTime),
			uint256.NewInt(pool.LastAccrualTime),
			pool.RewardRatePerPeriod,
			pool.CumulativeRewardPerStake,
			pool.PaidOut,
			pool.DecimalsRemovedFactor,
			uint256.NewInt(pool.TimelockDuration),
		)
	}
	return table, nil
}
