package rewards

import (
	"strconv"

	"github.com/holiman/uint256"

	"stakevault/core/types"
	"stakevault/crypto"
)

const (
	eventPoolCreated   = "rewards.pool.created"
	eventPoolFunded    = "rewards.pool.funded"
	eventDeposited     = "rewards.deposited"
	eventWithdrawn     = "rewards.withdrawn"
	eventClaimed       = "rewards.claimed"
	eventDustWithdrawn = "rewards.dust.withdrawn"
)

func formatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func newPoolCreatedEvent(pool *Pool) *types.Event {
	return &types.Event{
		Type: eventPoolCreated,
		Attributes: map[string]string{
			"poolId":      strconv.FormatUint(pool.ID, 10),
			"stakeAsset":  pool.StakeAsset,
			"rewardAsset": pool.RewardAsset,
			"startTime":   strconv.FormatUint(pool.StartTime, 10),
			"endTime":     strconv.FormatUint(pool.EndTime, 10),
			"rate":        formatAmount(pool.RewardRatePerPeriod),
		},
	}
}

func newPoolFundedEvent(pool *Pool, added *uint256.Int) *types.Event {
	return &types.Event{
		Type: eventPoolFunded,
		Attributes: map[string]string{
			"poolId":  strconv.FormatUint(pool.ID, 10),
			"amount":  formatAmount(added),
			"endTime": strconv.FormatUint(pool.EndTime, 10),
		},
	}
}

func newDepositEvent(user crypto.Address, poolID uint64, amount *uint256.Int) *types.Event {
	return &types.Event{
		Type: eventDeposited,
		Attributes: map[string]string{
			"user":   user.String(),
			"poolId": strconv.FormatUint(poolID, 10),
			"amount": formatAmount(amount),
		},
	}
}

func newWithdrawEvent(user crypto.Address, poolID uint64, amount *uint256.Int) *types.Event {
	return &types.Event{
		Type: eventWithdrawn,
		Attributes: map[string]string{
			"user":   user.String(),
			"poolId": strconv.FormatUint(poolID, 10),
			"amount": formatAmount(amount),
		},
	}
}

// newClaimEvent reports a reward payout. The amount attribute carries the
// scaled ledger units deducted from the pool; transferred carries the raw
// reward-asset units sent to the user.
func newClaimEvent(user crypto.Address, poolID uint64, amount, transferred *uint256.Int) *types.Event {
	return &types.Event{
		Type: eventClaimed,
		Attributes: map[string]string{
			"user":        user.String(),
			"poolId":      strconv.FormatUint(poolID, 10),
			"amount":      formatAmount(amount),
			"transferred": formatAmount(transferred),
		},
	}
}

func newDustWithdrawnEvent(owner crypto.Address, poolID uint64, amount *uint256.Int) *types.Event {
	return &types.Event{
		Type: eventDustWithdrawn,
		Attributes: map[string]string{
			"owner":  owner.String(),
			"poolId": strconv.FormatUint(poolID, 10),
			"amount": formatAmount(amount),
		},
	}
}
