package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChainIDServer(t *testing.T, chainIDHex string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"` + chainIDHex + `"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestListChainsTool(t *testing.T) {
	svc := newTestServices(t)
	tool, handler := NewListChainsTool(svc.chainService)
	assert.Equal(t, "list_chains", tool.Name)

	result, err := handler(context.Background(), callRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var response struct {
		Chains      []map[string]interface{} `json:"chains"`
		Total       int                      `json:"total"`
		ActiveChain map[string]interface{}   `json:"active_chain"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(result)[0]), &response))
	assert.Equal(t, 2, response.Total)
	assert.Equal(t, "84532", response.ActiveChain["chain_id"])
	assert.Equal(t, "0x5A7861D29088B67Cc03d85c4D89B855201e030EB", response.ActiveChain["factory"])
}

func TestSelectChainTool(t *testing.T) {
	tests := []struct {
		name          string
		args          map[string]interface{}
		rpcChainID    string
		expectError   bool
		errorContains string
		expectActive  string
		expectRPC     bool
	}{
		{
			name:          "invalid_chain_id",
			args:          map[string]interface{}{"chain_id": "base"},
			expectError:   true,
			errorContains: "Invalid chain_id",
			expectActive:  "84532",
		},
		{
			name:          "unsupported_chain",
			args:          map[string]interface{}{"chain_id": "1"},
			expectError:   true,
			errorContains: "unsupported chain ID",
			expectActive:  "84532",
		},
		{
			name:         "select_base",
			args:         map[string]interface{}{"chain_id": "8453"},
			expectActive: "8453",
		},
		{
			name:         "select_with_matching_rpc",
			args:         map[string]interface{}{"chain_id": "8453"},
			rpcChainID:   "0x2105",
			expectActive: "8453",
			expectRPC:    true,
		},
		{
			name:          "rpc_serves_other_chain",
			args:          map[string]interface{}{"chain_id": "8453"},
			rpcChainID:    "0x1",
			expectError:   true,
			errorContains: "serves chain 1, expected 8453",
			expectActive:  "84532",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestServices(t)
			_, handler := NewSelectChainTool(svc.chainService)

			var rpcURL string
			if tt.rpcChainID != "" {
				rpcURL = newChainIDServer(t, tt.rpcChainID).URL
				tt.args["rpc"] = rpcURL
			}

			result, err := handler(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			assert.Equal(t, tt.expectError, result.IsError)
			if tt.errorContains != "" {
				assert.Contains(t, resultText(result)[0], tt.errorContains)
			}

			active, err := svc.chainService.GetActiveChain()
			require.NoError(t, err)
			assert.Equal(t, tt.expectActive, active.NetworkID)

			base, err := svc.chainService.GetChainByNetworkID(8453)
			require.NoError(t, err)
			if tt.expectRPC {
				assert.Equal(t, rpcURL, base.RPC)
			} else {
				assert.NotEqual(t, rpcURL, base.RPC)
			}
		})
	}
}

func TestGetRequiredPaymentTool(t *testing.T) {
	svc := newTestServices(t)
	tool, handler := NewGetRequiredPaymentTool(svc.chainService, svc.deploymentService, 10)
	assert.Equal(t, "get_required_payment", tool.Name)

	t.Run("fallback when oracle unreachable", func(t *testing.T) {
		result, err := handler(context.Background(), callRequest(nil))
		require.NoError(t, err)
		require.False(t, result.IsError)

		var payment map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(resultText(result)[0]), &payment))
		assert.Equal(t, "39582170607071750", payment["amount_wei"])
		assert.Equal(t, "0.03958217060707175", payment["amount_eth"])
		assert.Equal(t, "fallback", payment["source"])
		assert.Equal(t, float64(84532), payment["chain_id"])
	})

	t.Run("zero cents", func(t *testing.T) {
		result, err := handler(context.Background(), callRequest(map[string]interface{}{"cents": "0"}))
		require.NoError(t, err)
		require.False(t, result.IsError)

		var payment map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(resultText(result)[0]), &payment))
		assert.Equal(t, "0", payment["amount_wei"])
		assert.Equal(t, "zero", payment["source"])
	})

	t.Run("invalid cents", func(t *testing.T) {
		result, err := handler(context.Background(), callRequest(map[string]interface{}{"cents": "ten"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(result)[0], "Invalid cents")
	})
}
