package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPClient_GetTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Method != "getTransaction" {
			t.Errorf("expected getTransaction, got %s", req.Method)
		}
		if len(req.Params) != 2 {
			t.Fatalf("expected 2 params, got %d", len(req.Params))
		}
		opts, ok := req.Params[1].(map[string]interface{})
		if !ok {
			t.Fatalf("expected options map, got %T", req.Params[1])
		}
		if opts["commitment"] != "confirmed" {
			t.Errorf("expected confirmed commitment, got %v", opts["commitment"])
		}
		if opts["maxSupportedTransactionVersion"] != float64(0) {
			t.Errorf("expected maxSupportedTransactionVersion 0, got %v", opts["maxSupportedTransactionVersion"])
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"slot":      12345,
				"blockTime": 1700000000,
				"meta": map[string]interface{}{
					"err":          nil,
					"preBalances":  []uint64{2002000000, 0},
					"postBalances": []uint64{2000000000, 2000000},
					"logMessages":  []string{"Program 11111111111111111111111111111111 invoke [1]"},
				},
				"transaction": map[string]interface{}{
					"message": map[string]interface{}{
						"accountKeys": []string{"sender", "recipient", "11111111111111111111111111111111"},
						"instructions": []map[string]interface{}{
							{"programIdIndex": 2, "accounts": []int{0, 1}, "data": "3Bxs4h24hBtQy9rw"},
						},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	tx, err := client.GetTransaction(context.Background(), "testsig")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx == nil {
		t.Fatal("expected transaction, got nil")
	}
	if tx.Signature != "testsig" {
		t.Errorf("expected testsig, got %s", tx.Signature)
	}
	if tx.Slot != 12345 {
		t.Errorf("expected slot 12345, got %d", tx.Slot)
	}
	if tx.Meta == nil || len(tx.Meta.PreBalances) != 2 {
		t.Fatalf("expected meta with balances, got %+v", tx.Meta)
	}
	if tx.Meta.PreBalances[0] != 2002000000 {
		t.Errorf("expected preBalance 2002000000, got %d", tx.Meta.PreBalances[0])
	}
	if tx.Message == nil || len(tx.Message.Instructions) != 1 {
		t.Fatalf("expected one instruction, got %+v", tx.Message)
	}
	ix := tx.Message.Instructions[0]
	if got := tx.Message.Program(ix); got != SystemProgramID {
		t.Errorf("expected system program, got %s", got)
	}
	if len(ix.Accounts) != 2 || ix.Accounts[0] != 0 || ix.Accounts[1] != 1 {
		t.Errorf("unexpected instruction accounts: %v", ix.Accounts)
	}
}

func TestHTTPClient_GetTransactionNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  nil,
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	tx, err := client.GetTransaction(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx != nil {
		t.Errorf("expected nil for unknown signature, got %+v", tx)
	}
}

func TestHTTPClient_RPCErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32602, "message": "invalid params"},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxRetries(3), WithRetryDelay(time.Millisecond))
	_, err := client.GetTransaction(context.Background(), "badsig")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("RPC errors must not be retried, got %d calls", calls.Load())
	}
}

func TestHTTPClient_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  nil,
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxRetries(2), WithRetryDelay(time.Millisecond))
	_, err := client.GetTransaction(context.Background(), "sig")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}
