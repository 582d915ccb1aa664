package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gofiber/fiber/v2"
	"github.com/rxtech-lab/playlist-launchpad/internal/assets"
	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"github.com/rxtech-lab/playlist-launchpad/internal/services"
	"github.com/rxtech-lab/playlist-launchpad/internal/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RPCNetwork struct {
	ChainID string `json:"chain_id"`
	Name    string `json:"name"`
	Rpc     string `json:"rpc"`
}

// TransactionStatusRequest is posted by the signing page after each wallet step
type TransactionStatusRequest struct {
	Status          models.TransactionStatus `json:"status"`
	TransactionHash string                   `json:"transactionHash"`
	Error           string                   `json:"error"`
}

type ErrorPageData struct {
	Title      string
	Message    string
	StatusCode int
}

type signingPageData struct {
	SessionID   string
	Network     RPCNetwork
	Session     *models.TransactionSession
	Deployment  models.TransactionDeployment
	ValueEth    string
	SessionJSON template.JS
}

// renderErrorPage renders the error HTML template with the provided data
func (s *APIServer) renderErrorPage(c *fiber.Ctx, statusCode int, title, message string) error {
	data := ErrorPageData{
		Title:      title,
		Message:    message,
		StatusCode: statusCode,
	}

	tmpl, err := template.New("error").Parse(string(assets.ErrorHTML))
	if err != nil {
		logrus.WithError(err).Error("Error parsing error template")
		return c.Status(statusCode).SendString(title)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		logrus.WithError(err).Error("Error rendering error template")
		return c.Status(statusCode).SendString(title)
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Status(statusCode).Send(buf.Bytes())
}

// handleTransactionPage serves the wallet signing page of a session
func (s *APIServer) handleTransactionPage(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")

	session, err := s.txService.GetTransactionSession(sessionID)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Warn("Error getting session")
		if errors.Is(err, services.ErrSessionExpired) {
			return s.renderErrorPage(c, fiber.StatusGone, "Session Expired",
				"This signing session has expired. Ask the assistant to prepare the playlist deployment again.")
		}
		return s.renderErrorPage(c, fiber.StatusNotFound, "Session Not Found",
			"The requested transaction session could not be found. This may be because the session has expired, been completed, or the URL is incorrect.")
	}

	if session.TransactionStatus == models.TransactionStatusConfirmed {
		return s.renderErrorPage(c, fiber.StatusNotAcceptable, "Transaction Already Confirmed",
			"This transaction has already been confirmed and completed. No further action is required.")
	}
	if attemptID := session.GetMetadata(models.MetadataKeyAttemptID); attemptID != "" {
		attempt, err := s.deploymentService.GetAttempt(attemptID)
		if err != nil {
			logrus.WithError(err).WithField("attempt_id", attemptID).Warn("Error getting deployment attempt")
			return s.renderErrorPage(c, fiber.StatusNotFound, "Deployment Not Found",
				"The playlist deployment of this session could not be found.")
		}
		switch attempt.Status {
		case models.AttemptStatusSuccess:
			return s.renderErrorPage(c, fiber.StatusNotAcceptable, "Playlist Already Saved",
				"This playlist has already been saved. No further action is required.")
		case models.AttemptStatusFailed:
			return s.renderErrorPage(c, fiber.StatusGone, "Deployment Failed",
				"This deployment failed and cannot be signed again. Ask the assistant to run deploy_playlist again to start a new deployment.")
		}
	}
	if session.TransactionStatus == models.TransactionStatusFailed {
		return s.renderErrorPage(c, fiber.StatusGone, "Deployment Failed",
			"This transaction failed and cannot be signed again. Ask the assistant to run deploy_playlist again to start a new deployment.")
	}
	if len(session.TransactionDeployments) == 0 {
		return s.renderErrorPage(c, fiber.StatusUnprocessableEntity, "Nothing To Sign",
			"This session does not contain any transaction.")
	}

	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Error encoding session")
	}

	deployment := session.TransactionDeployments[0]
	valueEth := deployment.Value
	if value, ok := parseWei(deployment.Value); ok {
		valueEth = utils.FormatEther(value)
	}

	data := signingPageData{
		SessionID: sessionID,
		Network: RPCNetwork{
			ChainID: session.Chain.NetworkID,
			Name:    session.Chain.Name,
			Rpc:     session.Chain.RPC,
		},
		Session:     session,
		Deployment:  deployment,
		ValueEth:    valueEth,
		SessionJSON: template.JS(sessionJSON),
	}

	tmpl, err := template.New("signing").Parse(string(assets.SigningHTML))
	if err != nil {
		logrus.WithError(err).Error("Error parsing signing template")
		return c.Status(fiber.StatusInternalServerError).SendString("Error parsing template")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		logrus.WithError(err).Error("Error rendering signing template")
		return c.Status(fiber.StatusInternalServerError).SendString("Error rendering template")
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// handleTransactionAPI returns the session as JSON
func (s *APIServer) handleTransactionAPI(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")

	session, err := s.txService.GetTransactionSession(sessionID)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(session)
}

// handleTransactionStatus records the wallet outcome of one transaction and runs the hooks of its type
func (s *APIServer) handleTransactionStatus(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid index",
		})
	}

	var body TransactionStatusRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	switch body.Status {
	case models.TransactionStatusPending, models.TransactionStatusFailed:
	case models.TransactionStatusConfirmed:
		if body.TransactionHash == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "transactionHash is required for a confirmed transaction",
			})
		}
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "status must be pending, confirmed or failed",
		})
	}

	if body.TransactionHash != "" {
		if hash, err := hexutil.Decode(body.TransactionHash); err != nil || len(hash) != common.HashLength {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid transactionHash",
			})
		}
	}

	logger := logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"index":      index,
		"status":     body.Status,
		"tx_hash":    body.TransactionHash,
	})

	current, err := s.txService.GetTransactionSession(sessionID)
	if err != nil {
		return sessionError(c, err)
	}
	if index < 0 || index >= len(current.TransactionDeployments) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("transaction index %d out of range", index),
		})
	}

	// the attempt accepts or rejects the report before the session records it
	txType := current.TransactionDeployments[index].TransactionType
	switch body.Status {
	case models.TransactionStatusPending:
		err = s.hookService.OnTransactionPending(txType, body.TransactionHash, *current)
	case models.TransactionStatusConfirmed:
		err = s.hookService.OnTransactionConfirmed(txType, body.TransactionHash, *current)
	case models.TransactionStatusFailed:
		err = s.hookService.OnTransactionFailed(txType, body.Error, *current)
	}
	if err != nil {
		logger.WithError(err).Warn("Transaction hook rejected the update")
		status := fiber.StatusInternalServerError
		if errors.Is(err, services.ErrInvalidTransition) {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	session, err := s.txService.UpdateTransactionDeploymentStatus(sessionID, index, body.Status, body.TransactionHash)
	if err != nil {
		if errors.Is(err, services.ErrSessionExpired) || errors.Is(err, gorm.ErrRecordNotFound) {
			return sessionError(c, err)
		}
		logger.WithError(err).Error("Error updating transaction status")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	response := fiber.Map{"session": session}
	if attemptID := session.GetMetadata(models.MetadataKeyAttemptID); attemptID != "" {
		if attempt, err := s.deploymentService.GetAttempt(attemptID); err == nil {
			response["attempt"] = attempt
		}
	}
	return c.JSON(response)
}

func sessionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrSessionExpired):
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "Session expired",
		})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	default:
		logrus.WithError(err).Error("Error loading session")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load session",
		})
	}
}
