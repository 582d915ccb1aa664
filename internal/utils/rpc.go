package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RPCClient represents an Ethereum JSON-RPC client
type RPCClient struct {
	URL     string
	client  *http.Client
	timeout time.Duration
}

// NewRPCClient creates a new RPC client with the given URL
func NewRPCClient(url string) *RPCClient {
	return &RPCClient{
		URL:     url,
		client:  &http.Client{Timeout: 30 * time.Second},
		timeout: 30 * time.Second,
	}
}

// SetTimeout sets the timeout for RPC requests
func (r *RPCClient) SetTimeout(timeout time.Duration) {
	r.timeout = timeout
	r.client.Timeout = timeout
}

// JSONRPCRequest represents a JSON-RPC request
type JSONRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

// JSONRPCResponse represents a JSON-RPC response
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents an RPC error
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Call makes a JSON-RPC call
func (r *RPCClient) Call(ctx context.Context, method string, params []interface{}) (*JSONRPCResponse, error) {
	if params == nil {
		params = []interface{}{}
	}
	request := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	var response JSONRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if response.Error != nil {
		return nil, fmt.Errorf("RPC error %d: %s", response.Error.Code, response.Error.Message)
	}

	return &response, nil
}

// ChainID asks the node which chain it serves
func (r *RPCClient) ChainID(ctx context.Context) (uint64, error) {
	return r.callQuantity(ctx, "eth_chainId")
}

// GetBlockNumber gets the current block number
func (r *RPCClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	return r.callQuantity(ctx, "eth_blockNumber")
}

func (r *RPCClient) callQuantity(ctx context.Context, method string) (uint64, error) {
	response, err := r.Call(ctx, method, nil)
	if err != nil {
		return 0, err
	}

	var quantity string
	if err := json.Unmarshal(response.Result, &quantity); err != nil || quantity == "" {
		return 0, fmt.Errorf("invalid %s result: %s", method, string(response.Result))
	}

	value, err := strconv.ParseUint(strings.TrimPrefix(quantity, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s result %q: %w", method, quantity, err)
	}
	return value, nil
}
