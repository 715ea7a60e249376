package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/healthchain/ledger-client/pkg/config"
	"github.com/healthchain/ledger-client/pkg/logger"
	"github.com/healthchain/ledger-client/pkg/monitoring"
	"github.com/healthchain/ledger-client/pkg/types"
)

// Bridge error codes. The signing bridge relays the signer's rejection
// code and the node's revert code unchanged.
const (
	codeUserDeclined    = 4001
	codeExecutionRevert = 3
)

// RPCGateway implements interfaces.LedgerGateway against an external
// signing bridge that holds the wallet and relays contract calls. Queries
// resolve in one round trip; commands are submitted, then polled until the
// ledger reports a confirmed or reverted receipt.
type RPCGateway struct {
	endpoint string
	contract string
	client   *http.Client
	logger   *logger.Logger
	metrics  *monitoring.MetricsCollector

	confirmInterval time.Duration
	confirmTimeout  time.Duration
	eventPollDelay  time.Duration

	nextID uint64
}

// NewRPCGateway creates a gateway for the configured bridge endpoint.
// The metrics collector may be nil.
func NewRPCGateway(cfg *config.LedgerConfig, log *logger.Logger, metrics *monitoring.MetricsCollector) *RPCGateway {
	return &RPCGateway{
		endpoint: cfg.Endpoint,
		contract: cfg.ContractAddress,
		client: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
		logger:          log,
		metrics:         metrics,
		confirmInterval: time.Duration(cfg.ConfirmInterval) * time.Second,
		confirmTimeout:  time.Duration(cfg.ConfirmTimeout) * time.Second,
		eventPollDelay:  time.Duration(cfg.EventPollDelay) * time.Second,
	}
}

type rpcRequest struct {
	ID       uint64        `json:"id"`
	Contract string        `json:"contract"`
	Method   string        `json:"method"`
	Params   []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one bridge round trip and decodes the result into out.
// A nil out discards the result.
func (g *RPCGateway) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	req := rpcRequest{
		ID:       atomic.AddUint64(&g.nextID, 1),
		Contract: g.contract,
		Method:   method,
		Params:   params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return types.NewIntegrityError(method, fmt.Sprintf("failed to encode request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return types.NewConnectivityError(method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return types.NewConnectivityError(method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.NewConnectivityError(method, fmt.Errorf("bridge returned status %d", resp.StatusCode))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return types.NewIntegrityError(method, fmt.Sprintf("undecodable bridge response: %v", err))
	}

	if rpcResp.Error != nil {
		return classifyRPCError(method, rpcResp.Error)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return types.NewIntegrityError(method, fmt.Sprintf("undecodable result payload: %v", err))
	}

	return nil
}

// classifyRPCError maps a bridge error onto the client taxonomy. A revert
// on a read is evidence of absence; a revert on a command is classified by
// the command path instead.
func classifyRPCError(method string, rpcErr *rpcError) error {
	switch rpcErr.Code {
	case codeUserDeclined:
		return types.NewUserDeclinedError(method, rpcErr.Message)
	case codeExecutionRevert:
		return types.NewAbsenceError(method, rpcErr.Message)
	default:
		return types.NewLedgerRejectedError(method, rpcErr.Message, nil)
	}
}

// query wraps call with query logging and metrics.
func (g *RPCGateway) query(ctx context.Context, method string, params []interface{}, out interface{}) error {
	start := time.Now()
	err := g.call(ctx, method, params, out)

	// Absence is a negative result for a probing read, not a failure.
	if err == nil || types.IsAbsence(err) {
		g.logger.LedgerQuery(method, time.Since(start).Milliseconds(), nil)
	} else {
		g.logger.LedgerQuery(method, time.Since(start).Milliseconds(), err)
	}

	if g.metrics != nil {
		status := "ok"
		if err != nil && !types.IsAbsence(err) {
			status = string(types.KindOf(err))
		}
		g.metrics.RecordLedgerQuery(method, status, time.Since(start))
	}

	return err
}

type submitResult struct {
	TxHash string `json:"tx_hash"`
}

type receiptResult struct {
	Status       string `json:"status"`
	BlockNumber  uint64 `json:"block_number"`
	RevertReason string `json:"revert_reason"`
}

// command submits a mutating call and polls the bridge until the
// transaction confirms, reverts, or the confirmation window closes. The
// command's effects are invisible until a confirmed receipt arrives.
func (g *RPCGateway) command(ctx context.Context, method string, params []interface{}) (*types.CommandReceipt, error) {
	start := time.Now()

	receipt, err := g.submitAndConfirm(ctx, method, params)

	txHash := ""
	if receipt != nil {
		txHash = receipt.TxHash
	}
	g.logger.LedgerCommand(method, txHash, time.Since(start).Milliseconds(), err)

	if g.metrics != nil {
		status := "confirmed"
		if err != nil {
			status = string(types.KindOf(err))
		}
		g.metrics.RecordLedgerCommand(method, status, time.Since(start))
	}

	return receipt, err
}

func (g *RPCGateway) submitAndConfirm(ctx context.Context, method string, params []interface{}) (*types.CommandReceipt, error) {
	var submitted submitResult
	if err := g.call(ctx, method, params, &submitted); err != nil {
		// A revert at submission time is a rejected command, not absence.
		if types.IsAbsence(err) {
			return nil, types.NewLedgerRejectedError(method, "command reverted at submission", err)
		}
		return nil, err
	}

	deadline := time.Now().Add(g.confirmTimeout)
	ticker := time.NewTicker(g.confirmInterval)
	defer ticker.Stop()

	for {
		var receipt receiptResult
		if err := g.call(ctx, "getTransactionReceipt", []interface{}{submitted.TxHash}, &receipt); err != nil {
			return nil, err
		}

		switch receipt.Status {
		case "confirmed":
			return &types.CommandReceipt{TxHash: submitted.TxHash, BlockNumber: receipt.BlockNumber}, nil
		case "reverted":
			return nil, types.NewLedgerRejectedError(method, receipt.RevertReason, nil)
		}

		if time.Now().After(deadline) {
			return nil, types.NewConnectivityError(method, fmt.Errorf("transaction %s unconfirmed after %s", submitted.TxHash, g.confirmTimeout))
		}

		select {
		case <-ctx.Done():
			return nil, types.NewConnectivityError(method, ctx.Err())
		case <-ticker.C:
		}
	}
}
