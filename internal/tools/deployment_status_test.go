package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createAttempt(t *testing.T, svc *testServices, status models.AttemptStatus, salt string) *models.DeploymentAttempt {
	t.Helper()
	attempt := &models.DeploymentAttempt{
		ChainID:          84532,
		FactoryAddress:   "0x5A7861D29088B67Cc03d85c4D89B855201e030EB",
		PriceFeedAddress: "0x4aDC67696bA383F43DD60A9e78F2C97Fbbfc7cb1",
		OwnerAddress:     testOwnerAddress,
		Name:             "Chill Vibes",
		Salt:             salt,
		Value:            "39582170607071750",
		PaymentSource:    models.PaymentSourceFallback,
		Status:           status,
	}
	require.NoError(t, svc.attemptService.CreateAttempt(attempt))
	return attempt
}

func createPlaylist(t *testing.T, svc *testServices, address, owner string, chainID uint64, attemptID string) {
	t.Helper()
	require.NoError(t, svc.playlistService.CreatePlaylist(&models.Playlist{
		Name:            "Chill Vibes",
		ContractAddress: address,
		OwnerAddress:    owner,
		ChainID:         chainID,
		TransactionHash: "0x5f3c0a9c1b7e4d2a8f6e0b3c9d1a7e5f2b4c6d8e0a1b3c5d7e9f1a3b5c7d9e0f",
		AttemptID:       attemptID,
	}))
}

func TestGetDeploymentStatusTool(t *testing.T) {
	svc := newTestServices(t)
	tool, handler := NewGetDeploymentStatusTool(svc.deploymentService, svc.playlistService)
	assert.Equal(t, "get_deployment_status", tool.Name)
	assert.Contains(t, tool.InputSchema.Required, "attempt_id")

	t.Run("missing attempt", func(t *testing.T) {
		result, err := handler(context.Background(), callRequest(map[string]interface{}{"attempt_id": "missing"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(result)[0], "not found")
	})

	t.Run("stalled attempt has hint", func(t *testing.T) {
		attempt := createAttempt(t, svc, models.AttemptStatusStalled, "0x01")
		result, err := handler(context.Background(), callRequest(map[string]interface{}{"attempt_id": attempt.ID}))
		require.NoError(t, err)
		require.False(t, result.IsError)

		texts := resultText(result)
		assert.Equal(t, "Deployment "+attempt.ID+" is stalled", texts[0])
		assert.Contains(t, texts[1], "confirm_deployment")
	})

	t.Run("successful attempt includes playlist", func(t *testing.T) {
		attempt := createAttempt(t, svc, models.AttemptStatusSuccess, "0x02")
		createPlaylist(t, svc, "0xABCD00000000000000000000000000000000ABCD", testOwnerAddress, 84532, attempt.ID)

		result, err := handler(context.Background(), callRequest(map[string]interface{}{"attempt_id": attempt.ID}))
		require.NoError(t, err)
		require.False(t, result.IsError)

		var response struct {
			Attempt  models.DeploymentAttempt `json:"attempt"`
			Playlist models.Playlist          `json:"playlist"`
		}
		require.NoError(t, json.Unmarshal([]byte(resultText(result)[1]), &response))
		assert.Equal(t, models.AttemptStatusSuccess, response.Attempt.Status)
		assert.Equal(t, "0xABCD00000000000000000000000000000000ABCD", response.Playlist.ContractAddress)
	})
}

func TestConfirmDeploymentTool(t *testing.T) {
	svc := newTestServices(t)
	tool, handler := NewConfirmDeploymentTool(svc.deploymentService)
	assert.Equal(t, "confirm_deployment", tool.Name)

	t.Run("missing attempt", func(t *testing.T) {
		result, err := handler(context.Background(), callRequest(map[string]interface{}{"attempt_id": "missing"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(result)[0], "not found")
	})

	t.Run("idle attempt cannot be confirmed", func(t *testing.T) {
		attempt := createAttempt(t, svc, models.AttemptStatusIdle, "0x03")
		result, err := handler(context.Background(), callRequest(map[string]interface{}{"attempt_id": attempt.ID}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(result)[0], "cannot be confirmed")
	})

	t.Run("receipt never arrives", func(t *testing.T) {
		attempt := createAttempt(t, svc, models.AttemptStatusSubmitted, "0x04")
		_, err := svc.attemptService.Transition(attempt.ID, models.AttemptStatusStalled, func(a *models.DeploymentAttempt) {
			a.TransactionHash = "0x5f3c0a9c1b7e4d2a8f6e0b3c9d1a7e5f2b4c6d8e0a1b3c5d7e9f1a3b5c7d9e0f"
		})
		require.NoError(t, err)

		result, err := handler(context.Background(), callRequest(map[string]interface{}{"attempt_id": attempt.ID}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(result)[0], "still pending")

		stalled, err := svc.attemptService.GetAttempt(attempt.ID)
		require.NoError(t, err)
		assert.Equal(t, models.AttemptStatusStalled, stalled.Status)
	})
}

func TestListPlaylistsTool(t *testing.T) {
	svc := newTestServices(t)
	tool, handler := NewListPlaylistsTool(svc.playlistService)
	assert.Equal(t, "list_playlists", tool.Name)

	other := "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	createPlaylist(t, svc, "0x0000000000000000000000000000000000000001", testOwnerAddress, 84532, "a1")
	createPlaylist(t, svc, "0x0000000000000000000000000000000000000002", testOwnerAddress, 8453, "a2")
	createPlaylist(t, svc, "0x0000000000000000000000000000000000000003", other, 84532, "a3")

	list := func(args map[string]interface{}) []models.Playlist {
		result, err := handler(context.Background(), callRequest(args))
		require.NoError(t, err)
		require.False(t, result.IsError, resultText(result))

		var response struct {
			Playlists []models.Playlist `json:"playlists"`
			Total     int               `json:"total"`
		}
		require.NoError(t, json.Unmarshal([]byte(resultText(result)[0]), &response))
		assert.Equal(t, len(response.Playlists), response.Total)
		return response.Playlists
	}

	assert.Len(t, list(nil), 3)
	assert.Len(t, list(map[string]interface{}{"owner_address": "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"}), 2)
	assert.Len(t, list(map[string]interface{}{"chain_id": "84532"}), 2)
	assert.Len(t, list(map[string]interface{}{"owner_address": testOwnerAddress, "chain_id": "8453"}), 1)
	assert.Len(t, list(map[string]interface{}{"limit": 1}), 1)

	result, err := handler(context.Background(), callRequest(map[string]interface{}{"owner_address": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(result)[0], "Invalid owner_address")
}
