package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"stakevault/crypto"
	"stakevault/native/rewards"
	"stakevault/state"
	"stakevault/storage"
)

type testResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func testAddress(t *testing.T, suffix byte) crypto.Address {
	t.Helper()
	raw := make([]byte, 20)
	raw[19] = suffix
	return crypto.NewAddress(crypto.SVTPrefix, raw)
}

func newTestServer(t *testing.T) (*Server, crypto.Address, *state.Keeper) {
	t.Helper()
	owner := testAddress(t, 0x01)
	module := testAddress(t, 0xff)
	keeper := state.NewKeeper(storage.NewMemDB(), module)
	engine := rewards.NewEngine(owner, 2_592_000)
	engine.SetState(keeper)
	engine.SetTransferor(keeper)
	server := NewServer(engine, keeper, slog.Default())
	return server, owner, keeper
}

func postRPC(t *testing.T, server *Server, method string, params interface{}) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()
	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		req["params"] = []interface{}{params}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	recorder := httptest.NewRecorder()
	server.handle(recorder, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload)))
	var resp testResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return recorder, resp
}

func mustResult(t *testing.T, resp testResponse, out interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected rpc error: %d %s", resp.Error.Code, resp.Error.Message)
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func TestHandleRejectsGet(t *testing.T) {
	server, _, _ := newTestServer(t)
	recorder := httptest.NewRecorder()
	server.handle(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", recorder.Code)
	}
}

func TestDispatchUnknownMethod(t *testing.T) {
	server, _, _ := newTestServer(t)
	recorder, resp := postRPC(t, server, "rewards_unknown", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method-not-found error, got %+v", resp.Error)
	}
}

func TestCreatePoolRequiresOwner(t *testing.T) {
	server, _, _ := newTestServer(t)
	stranger := testAddress(t, 0x42)
	recorder, resp := postRPC(t, server, "rewards_createPool", createPoolParams{
		Caller:          stranger.String(),
		StartTime:       100,
		EndTime:         200,
		StakeAsset:      "STK",
		RewardAsset:     "RWD",
		DecimalsRemoved: 2,
		FundedAmount:    "2000000000000",
	})
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", recorder.Code)
	}
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized error, got %+v", resp.Error)
	}
}

func TestInvalidAmountRejected(t *testing.T) {
	server, owner, _ := newTestServer(t)
	_, resp := postRPC(t, server, "rewards_deposit", depositParams{
		Caller: owner.String(),
		PoolID: 0,
		Asset:  "STK",
		Amount: "not-a-number",
	})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid params error, got %+v", resp.Error)
	}
}

func TestCreateDepositWithdrawFlow(t *testing.T) {
	server, owner, keeper := newTestServer(t)
	var clock uint64 = 50
	server.SetClock(func() uint64 { return clock })

	user := testAddress(t, 0x07)

	_, resp := postRPC(t, server, "rewards_createPool", createPoolParams{
		Caller:          owner.String(),
		StartTime:       100,
		EndTime:         200,
		StakeAsset:      "STK",
		RewardAsset:     "RWD",
		DecimalsRemoved: 2,
		FundedAmount:    "2000000000000",
	})
	var created txResult
	mustResult(t, resp, &created)
	if !created.OK || created.PoolID == nil || *created.PoolID != 0 {
		t.Fatalf("unexpected create result: %+v", created)
	}

	_, resp = postRPC(t, server, "rewards_poolCount", nil)
	var count map[string]uint64
	mustResult(t, resp, &count)
	if count["count"] != 1 {
		t.Fatalf("expected one pool, got %d", count["count"])
	}

	clock = 110
	_, resp = postRPC(t, server, "rewards_deposit", depositParams{
		Caller: user.String(),
		PoolID: 0,
		Asset:  "STK",
		Amount: "1000",
	})
	var deposited txResult
	mustResult(t, resp, &deposited)
	if !deposited.OK {
		t.Fatalf("deposit failed: %+v", deposited)
	}

	clock = 150
	_, resp = postRPC(t, server, "rewards_userInfo", userInfoParams{PoolID: 0, Address: user.String()})
	var info userInfoResult
	mustResult(t, resp, &info)
	if info.Stake != "1000" {
		t.Fatalf("unexpected stake: %s", info.Stake)
	}
	if info.Pending != "8000000000" {
		t.Fatalf("unexpected pending reward: %s", info.Pending)
	}

	_, resp = postRPC(t, server, "rewards_withdraw", withdrawParams{
		Caller: user.String(),
		PoolID: 0,
		Amount: "1000",
	})
	var withdrawn txResult
	mustResult(t, resp, &withdrawn)
	if !withdrawn.OK {
		t.Fatalf("withdraw failed: %+v", withdrawn)
	}

	account, err := keeper.GetAccount(user)
	if err != nil {
		t.Fatalf("load user account: %v", err)
	}
	if got := account.Balance("STK").Dec(); got != "1000" {
		t.Fatalf("expected principal returned, got %s STK", got)
	}
	if got := account.Balance("RWD").Dec(); got != "800000000000" {
		t.Fatalf("expected reward payout, got %s RWD", got)
	}

	_, resp = postRPC(t, server, "rewards_poolInfo", poolIDParams{PoolID: 0})
	var pool poolResult
	mustResult(t, resp, &pool)
	if pool.TotalStaked != "0" {
		t.Fatalf("expected empty pool after withdraw, got %s", pool.TotalStaked)
	}
	if pool.PaidOut != "8000000000" {
		t.Fatalf("unexpected paid-out total: %s", pool.PaidOut)
	}
}

func TestListPoolsOverRPC(t *testing.T) {
	server, owner, _ := newTestServer(t)
	var clock uint64 = 50
	server.SetClock(func() uint64 { return clock })

	for i := 0; i < 2; i++ {
		_, resp := postRPC(t, server, "rewards_createPool", createPoolParams{
			Caller:          owner.String(),
			StartTime:       100,
			EndTime:         200,
			StakeAsset:      fmt.Sprintf("STK%d", i),
			RewardAsset:     "RWD",
			DecimalsRemoved: 2,
			FundedAmount:    "2000000000000",
		})
		var created txResult
		mustResult(t, resp, &created)
	}

	_, resp := postRPC(t, server, "rewards_listPools", nil)
	var table poolTableResult
	mustResult(t, resp, &table)
	if len(table.StakeAssets) != 2 || table.StakeAssets[0] != "STK0" || table.StakeAssets[1] != "STK1" {
		t.Fatalf("unexpected stake assets: %v", table.StakeAssets)
	}
	if len(table.Fields) != 2*rewards.PoolFieldCount {
		t.Fatalf("unexpected field count: %d", len(table.Fields))
	}
}
