package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stakevault/native/rewards"
	"stakevault/observability"
	"stakevault/state"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// Server exposes the rewards ledger over JSON-RPC 2.0. A single mutex
// serialises mutating calls so each operation runs to completion before the
// next, matching the ledger's single-logical-thread execution model.
type Server struct {
	engine  *rewards.Engine
	keeper  *state.Keeper
	log     *slog.Logger
	metrics *observability.LedgerMetrics

	mu  sync.Mutex
	now func() uint64

	exposeMetrics bool
}

func NewServer(engine *rewards.Engine, keeper *state.Keeper, logger *slog.Logger) *Server {
	return &Server{
		engine:        engine,
		keeper:        keeper,
		log:           logger,
		metrics:       observability.Metrics(),
		now:           func() uint64 { return uint64(time.Now().Unix()) },
		exposeMetrics: true,
	}
}

// SetMetricsExposed controls whether Start mounts the Prometheus scrape
// endpoint. Request counters are recorded either way.
func (s *Server) SetMetricsExposed(exposed bool) {
	s.exposeMetrics = exposed
}

// SetClock overrides the time-unit source, mainly for tests.
func (s *Server) SetClock(now func() uint64) {
	if now != nil {
		s.now = now
	}
}

func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	if s.exposeMetrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
	s.log.Info("starting JSON-RPC server", slog.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeEngineError maps ledger failures onto JSON-RPC error codes. Every
// rejection is terminal for the single request; callers own any retry policy.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, rewards.ErrNotOwner):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, err.Error(), nil)
	case errors.Is(err, rewards.ErrPoolNotFound):
		writeError(w, http.StatusNotFound, id, codeInvalidParams, err.Error(), nil)
	case errors.Is(err, rewards.ErrOverflow),
		errors.Is(err, rewards.ErrUnderflow),
		errors.Is(err, rewards.ErrDivideByZero):
		writeError(w, http.StatusBadRequest, id, codeServerError, err.Error(), nil)
	default:
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error(), nil)
	}
}

var mutatingMethods = map[string]bool{
	"rewards_createPool":           true,
	"rewards_fundPool":             true,
	"rewards_deposit":              true,
	"rewards_withdraw":             true,
	"rewards_withdrawDust":         true,
	"rewards_sendVote":             true,
	"rewards_cancelVote":           true,
	"rewards_withdrawVotingReward": true,
	"rewards_notifyDeposit":        true,
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required", nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var req RPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported JSON-RPC version", nil)
		return
	}

	if mutatingMethods[req.Method] {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	started := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.dispatch(recorder, &req)
	outcome := "ok"
	if recorder.status >= http.StatusBadRequest {
		outcome = "error"
	}
	s.metrics.ObserveRequest(req.Method, outcome, time.Since(started))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) dispatch(w http.ResponseWriter, req *RPCRequest) {
	switch req.Method {
	case "rewards_createPool":
		s.handleCreatePool(w, req)
	case "rewards_fundPool":
		s.handleFundPool(w, req)
	case "rewards_deposit":
		s.handleDeposit(w, req)
	case "rewards_withdraw":
		s.handleWithdraw(w, req)
	case "rewards_withdrawDust":
		s.handleWithdrawDust(w, req)
	case "rewards_sendVote":
		s.handleSendVote(w, req)
	case "rewards_cancelVote":
		s.handleCancelVote(w, req)
	case "rewards_getVote":
		s.handleGetVote(w, req)
	case "rewards_withdrawVotingReward":
		s.handleWithdrawVotingReward(w, req)
	case "rewards_notifyDeposit":
		s.handleNotifyDeposit(w, req)
	case "rewards_poolCount":
		s.handlePoolCount(w, req)
	case "rewards_poolInfo":
		s.handlePoolInfo(w, req)
	case "rewards_userInfo":
		s.handleUserInfo(w, req)
	case "rewards_listPools":
		s.handleListPools(w, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}
