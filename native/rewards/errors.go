package rewards

import "errors"

var (
	ErrOverflow     = errors.New("rewards math: overflow")
	ErrUnderflow    = errors.New("rewards math: underflow")
	ErrDivideByZero = errors.New("rewards math: divide by zero")
)

var (
	ErrNilState           = errors.New("rewards engine: state not configured")
	ErrNilTransferor      = errors.New("rewards engine: asset transferor not configured")
	ErrNotOwner           = errors.New("rewards engine: caller is not the owner")
	ErrPoolNotFound       = errors.New("rewards engine: pool not found")
	ErrInvalidAmount      = errors.New("rewards engine: amount must be positive")
	ErrWrongStakeAsset    = errors.New("rewards engine: attached asset is not the pool staking asset")
	ErrWrongRewardAsset   = errors.New("rewards engine: attached asset is not the pool reward asset")
	ErrPoolClosed         = errors.New("rewards engine: pool accrual window has closed")
	ErrNoStake            = errors.New("rewards engine: no stake recorded for user")
	ErrAmountExceedsStake = errors.New("rewards engine: withdrawal exceeds staked amount")
	ErrRewardExhausted    = errors.New("rewards engine: pending reward exceeds remaining pool supply")
	ErrInvalidWindow      = errors.New("rewards engine: pool window must satisfy now < start < end")
	ErrDecimalsTooLarge   = errors.New("rewards engine: decimals removed exceeds safe bound")
	ErrTimelockTooLong    = errors.New("rewards engine: timelock duration exceeds one year")
	ErrIndivisibleAmount  = errors.New("rewards engine: amount not divisible by decimals factor")
	ErrSupplyOutOfBounds  = errors.New("rewards engine: scaled reward supply outside allowed bounds")
	ErrFundingTooSmall    = errors.New("rewards engine: funding amount too small to extend the pool")
	ErrAdminDelayActive   = errors.New("rewards engine: admin delay after pool close not yet elapsed")
	ErrNoDustRemaining    = errors.New("rewards engine: no unclaimed reward remaining")
	ErrRewardFullyPaid    = errors.New("rewards engine: reward supply fully paid out")
	ErrNoVotingReward     = errors.New("rewards engine: no voting reward balance for asset")
	ErrNilRegistrar       = errors.New("rewards engine: vote registrar not configured")
	ErrEmptyVote          = errors.New("rewards engine: vote name must not be empty")
)
