package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/holiman/uint256"

	"stakevault/core/types"
	"stakevault/crypto"
	"stakevault/native/rewards"
)

type createPoolParams struct {
	Caller           string `json:"caller"`
	StartTime        uint64 `json:"startTime"`
	EndTime          uint64 `json:"endTime"`
	StakeAsset       string `json:"stakeAsset"`
	RewardAsset      string `json:"rewardAsset"`
	DecimalsRemoved  uint8  `json:"decimalsRemoved"`
	TimelockDuration uint64 `json:"timelockDuration"`
	FundedAmount     string `json:"fundedAmount"`
}

type fundPoolParams struct {
	Caller string `json:"caller"`
	PoolID uint64 `json:"poolId"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type depositParams struct {
	Caller string `json:"caller"`
	PoolID uint64 `json:"poolId"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type withdrawParams struct {
	Caller string `json:"caller"`
	PoolID uint64 `json:"poolId"`
	Amount string `json:"amount"`
}

type poolIDParams struct {
	Caller string `json:"caller,omitempty"`
	PoolID uint64 `json:"poolId"`
}

type voteParams struct {
	Caller string `json:"caller"`
	Name   string `json:"name,omitempty"`
}

type assetAmountParams struct {
	Caller string `json:"caller,omitempty"`
	Asset  string `json:"asset"`
	Amount string `json:"amount,omitempty"`
}

type userInfoParams struct {
	PoolID  uint64 `json:"poolId"`
	Address string `json:"address"`
}

type txResult struct {
	OK     bool           `json:"ok"`
	PoolID *uint64        `json:"poolId,omitempty"`
	Amount string         `json:"amount,omitempty"`
	Events []*types.Event `json:"events,omitempty"`
}

type poolResult struct {
	PoolID                   uint64 `json:"poolId"`
	StakeAsset               string `json:"stakeAsset"`
	RewardAsset              string `json:"rewardAsset"`
	TotalStaked              string `json:"totalStaked"`
	TotalRewardFunded        string `json:"totalRewardFunded"`
	RewardRemaining          string `json:"rewardRemaining"`
	StartTime                uint64 `json:"startTime"`
	EndTime                  uint64 `json:"endTime"`
	LastAccrualTime          uint64 `json:"lastAccrualTime"`
	RewardRatePerPeriod      string `json:"rewardRatePerPeriod"`
	CumulativeRewardPerStake string `json:"cumulativeRewardPerStake"`
	PaidOut                  string `json:"paidOut"`
	DecimalsRemovedFactor    string `json:"decimalsRemovedFactor"`
	TimelockDuration         uint64 `json:"timelockDuration"`
}

type userInfoResult struct {
	Address     string `json:"address"`
	Stake       string `json:"stake"`
	RewardDebt  string `json:"rewardDebt"`
	Pending     string `json:"pending"`
	DepositTime uint64 `json:"depositTime"`
}

type poolTableResult struct {
	StakeAssets  []string `json:"stakeAssets"`
	RewardAssets []string `json:"rewardAssets"`
	Fields       []string `json:"fields"`
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected exactly one parameter object")
	}
	return json.Unmarshal(req.Params[0], out)
}

func parseAddress(value string) (crypto.Address, error) {
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("invalid address %q: %w", value, err)
	}
	return addr, nil
}

func parseAmount(value string) (*uint256.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("amount must not be empty")
	}
	amount, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}

func (s *Server) handleCreatePool(w http.ResponseWriter, req *RPCRequest) {
	var params createPoolParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	funded, err := parseAmount(params.FundedAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	args := rewards.CreatePoolArgs{
		StartTime:        params.StartTime,
		EndTime:          params.EndTime,
		StakeAsset:       params.StakeAsset,
		RewardAsset:      params.RewardAsset,
		DecimalsRemoved:  params.DecimalsRemoved,
		TimelockDuration: params.TimelockDuration,
		FundedAmount:     funded,
	}
	id, err := s.engine.CreatePool(caller, args, s.now())
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	// The attached reward supply becomes part of the ledger's own holdings.
	if err := s.keeper.Credit(s.keeper.ModuleAddress(), params.RewardAsset, funded); err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return
	}
	s.refreshPoolGauge()
	writeResult(w, req.ID, txResult{OK: true, PoolID: &id, Events: s.keeper.DrainEvents()})
}

func (s *Server) handleFundPool(w http.ResponseWriter, req *RPCRequest) {
	var params fundPoolParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.FundPool(caller, params.PoolID, params.Asset, amount, s.now()); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	if err := s.keeper.Credit(s.keeper.ModuleAddress(), params.Asset, amount); err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, txResult{OK: true, Events: s.keeper.DrainEvents()})
}

func (s *Server) handleDeposit(w http.ResponseWriter, req *RPCRequest) {
	var params depositParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.Deposit(caller, params.PoolID, params.Asset, amount, s.now()); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	if err := s.keeper.Credit(s.keeper.ModuleAddress(), params.Asset, amount); err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, txResult{OK: true, Events: s.keeper.DrainEvents()})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, req *RPCRequest) {
	var params withdrawParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.Withdraw(caller, params.PoolID, amount, s.now()); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, txResult{OK: true, Events: s.keeper.DrainEvents()})
}

func (s *Server) handleWithdrawDust(w http.ResponseWriter, req *RPCRequest) {
	var params poolIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := s.engine.WithdrawDust(caller, params.PoolID, s.now())
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, txResult{OK: true, Amount: amount.Dec(), Events: s.keeper.DrainEvents()})
}

func (s *Server) handleSendVote(w http.ResponseWriter, req *RPCRequest) {
	var params voteParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.SendVote(caller, params.Name); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, txResult{OK: true})
}

func (s *Server) handleCancelVote(w http.ResponseWriter, req *RPCRequest) {
	var params voteParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.CancelVote(caller); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, txResult{OK: true})
}

func (s *Server) handleGetVote(w http.ResponseWriter, req *RPCRequest) {
	vote, err := s.engine.Vote()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"vote": vote})
}

func (s *Server) handleWithdrawVotingReward(w http.ResponseWriter, req *RPCRequest) {
	var params assetAmountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := s.engine.WithdrawVotingReward(caller, params.Asset)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, txResult{OK: true, Amount: amount.Dec()})
}

// handleNotifyDeposit is the fallback receiver: assets arriving outside a
// defined operation accrue to the voting reward balance for their asset id.
func (s *Server) handleNotifyDeposit(w http.ResponseWriter, req *RPCRequest) {
	var params assetAmountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.NotifyDeposit(params.Asset, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	if err := s.keeper.Credit(s.keeper.ModuleAddress(), params.Asset, amount); err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, txResult{OK: true})
}

func (s *Server) handlePoolCount(w http.ResponseWriter, req *RPCRequest) {
	count, err := s.engine.PoolCount()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"count": count})
}

func (s *Server) handlePoolInfo(w http.ResponseWriter, req *RPCRequest) {
	var params poolIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	pool, err := s.engine.PoolInfo(params.PoolID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newPoolResult(pool))
}

func (s *Server) handleUserInfo(w http.ResponseWriter, req *RPCRequest) {
	var params userInfoParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	view, err := s.engine.UserInfo(params.PoolID, addr, s.now())
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, userInfoResult{
		Address:     view.Address.String(),
		Stake:       view.Stake.Dec(),
		RewardDebt:  view.RewardDebt.Dec(),
		Pending:     view.Pending.Dec(),
		DepositTime: view.DepositTime,
	})
}

func (s *Server) handleListPools(w http.ResponseWriter, req *RPCRequest) {
	table, err := s.engine.ListPools()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	result := poolTableResult{
		StakeAssets:  table.StakeAssets,
		RewardAssets: table.RewardAssets,
		Fields:       make([]string, 0, len(table.Fields)),
	}
	for _, field := range table.Fields {
		result.Fields = append(result.Fields, field.Dec())
	}
	writeResult(w, req.ID, result)
}

func (s *Server) refreshPoolGauge() {
	if count, err := s.engine.PoolCount(); err == nil {
		s.metrics.SetPoolCount(count)
	}
}

func newPoolResult(pool *rewards.Pool) poolResult {
	return poolResult{
		PoolID:                   pool.ID,
		StakeAsset:               pool.StakeAsset,
		RewardAsset:              pool.RewardAsset,
		TotalStaked:              pool.TotalStaked.Dec(),
		TotalRewardFunded:        pool.TotalRewardFunded.Dec(),
		RewardRemaining:          pool.RewardRemaining.Dec(),
		StartTime:                pool.StartTime,
		EndTime:                  pool.EndTime,
		LastAccrualTime:          pool.LastAccrualTime,
		RewardRatePerPeriod:      pool.RewardRatePerPeriod.Dec(),
		CumulativeRewardPerStake: pool.CumulativeRewardPerStake.Dec(),
		PaidOut:                  pool.PaidOut.Dec(),
		DecimalsRemovedFactor:    pool.DecimalsRemovedFactor.Dec(),
		TimelockDuration:         pool.TimelockDuration,
	}
}
