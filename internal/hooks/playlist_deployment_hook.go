package hooks

import (
	"fmt"

	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"github.com/rxtech-lab/playlist-launchpad/internal/services"
	"github.com/sirupsen/logrus"
)

// PlaylistDeploymentHook forwards wallet reports from the signing page to the deployment attempt
// linked to the session.
type PlaylistDeploymentHook struct {
	deploymentService services.PlaylistDeploymentService
}

func NewPlaylistDeploymentHook(deploymentService services.PlaylistDeploymentService) services.Hook {
	return &PlaylistDeploymentHook{
		deploymentService: deploymentService,
	}
}

// CanHandle implements Hook.
func (h *PlaylistDeploymentHook) CanHandle(txType models.TransactionType) bool {
	return txType == models.TransactionTypePlaylistDeployment
}

// OnTransactionPending implements Hook.
func (h *PlaylistDeploymentHook) OnTransactionPending(txType models.TransactionType, txHash string, session models.TransactionSession) error {
	attemptID, err := attemptIDFromSession(session)
	if err != nil {
		return err
	}

	attempt, err := h.deploymentService.GetAttempt(attemptID)
	if err != nil {
		return err
	}
	if attempt.Status == models.AttemptStatusIdle {
		if _, err := h.deploymentService.MarkPending(attemptID); err != nil {
			return err
		}
	}

	if txHash == "" {
		return nil
	}
	_, err = h.deploymentService.RecordTransactionHash(attemptID, txHash)
	return err
}

// OnTransactionConfirmed implements Hook.
func (h *PlaylistDeploymentHook) OnTransactionConfirmed(txType models.TransactionType, txHash string, session models.TransactionSession) error {
	attemptID, err := attemptIDFromSession(session)
	if err != nil {
		return err
	}
	if txHash == "" {
		return fmt.Errorf("transaction hash is required to confirm attempt %s", attemptID)
	}

	attempt, err := h.deploymentService.RecordTransactionHash(attemptID, txHash)
	if err != nil {
		return err
	}
	if attempt.Status.IsTerminal() {
		return nil
	}

	// the page only knows the wallet accepted the transaction; the receipt is checked here
	h.deploymentService.ConfirmInBackground(attemptID)
	logrus.WithFields(logrus.Fields{
		"attempt_id": attemptID,
		"session_id": session.ID,
		"tx_hash":    txHash,
	}).Info("waiting for playlist deployment receipt")
	return nil
}

// OnTransactionFailed implements Hook.
func (h *PlaylistDeploymentHook) OnTransactionFailed(txType models.TransactionType, reason string, session models.TransactionSession) error {
	attemptID, err := attemptIDFromSession(session)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = "wallet rejected the transaction"
	}

	attempt, err := h.deploymentService.GetAttempt(attemptID)
	if err != nil {
		return err
	}
	// once a hash exists only the receipt decides the outcome
	if attempt.TransactionHash != "" {
		logger := logrus.WithFields(logrus.Fields{
			"attempt_id": attemptID,
			"session_id": session.ID,
			"tx_hash":    attempt.TransactionHash,
			"reason":     reason,
		})
		switch attempt.Status {
		case models.AttemptStatusSubmitted, models.AttemptStatusStalled:
			logger.Info("failure reported after submission, checking the receipt")
			h.deploymentService.ConfirmInBackground(attemptID)
		default:
			logger.Debug("failure report ignored")
		}
		return nil
	}

	_, err = h.deploymentService.MarkFailed(attemptID, reason)
	return err
}

func attemptIDFromSession(session models.TransactionSession) (string, error) {
	attemptID := session.GetMetadata(models.MetadataKeyAttemptID)
	if attemptID == "" {
		return "", fmt.Errorf("session %s has no deployment attempt", session.ID)
	}
	return attemptID, nil
}
