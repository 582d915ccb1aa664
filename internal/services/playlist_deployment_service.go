package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/playlist-launchpad/internal/contracts"
	"github.com/rxtech-lab/playlist-launchpad/internal/metrics"
	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	stalledMessage  = "transaction still pending, check your wallet or a block explorer"
	referralTimeout = 2 * time.Minute
)

// DeployEnv is the chain and connected wallet a deployment runs against
type DeployEnv struct {
	ChainID uint64
	Owner   common.Address
}

// PreparedDeployment is an attempt ready to be signed
type PreparedDeployment struct {
	Attempt *models.DeploymentAttempt `json:"attempt"`
	Call    models.ContractCall       `json:"-"`
	Payment models.RequiredPayment    `json:"payment"`
}

// DeploymentResult is the outcome of a successful confirmation
type DeploymentResult struct {
	Attempt  *models.DeploymentAttempt `json:"attempt"`
	Playlist *models.Playlist          `json:"playlist"`
}

// PlaylistDeploymentService runs one deployment attempt from draft to persisted playlist:
// quote, salt, call, wallet submission, receipt, event decode, referral.
type PlaylistDeploymentService interface {
	// Prepare validates the draft, quotes the payment, draws a fresh salt and stores an idle attempt.
	// Unsupported chains fail before any network call.
	Prepare(ctx context.Context, env DeployEnv, draft models.PlaylistDraft) (*PreparedDeployment, error)
	// Submit sends an idle attempt through wallet
	Submit(ctx context.Context, attemptID string, wallet Wallet) (*models.DeploymentAttempt, error)
	MarkPending(attemptID string) (*models.DeploymentAttempt, error)
	RecordTransactionHash(attemptID string, txHash string) (*models.DeploymentAttempt, error)
	MarkFailed(attemptID string, reason string) (*models.DeploymentAttempt, error)
	// Confirm waits for the receipt of a submitted or stalled attempt and decodes the deployed playlist
	Confirm(ctx context.Context, attemptID string) (*DeploymentResult, error)
	// ConfirmInBackground runs Confirm on its own goroutine bounded by the receipt timeout
	ConfirmInBackground(attemptID string)
	// Deploy runs Prepare, Submit and Confirm in sequence
	Deploy(ctx context.Context, env DeployEnv, draft models.PlaylistDraft, wallet Wallet) (*DeploymentResult, error)
	RequiredPayment(ctx context.Context, chainID uint64, cents uint64) (models.RequiredPayment, error)
	GetAttempt(attemptID string) (*models.DeploymentAttempt, error)
	// Wait blocks until background confirmations and referral submissions have finished
	Wait()
}

type PlaylistDeploymentServiceConfig struct {
	SaveCents      uint64
	ReceiptTimeout time.Duration
}

type playlistDeploymentService struct {
	validator       *validator.Validate
	config          PlaylistDeploymentServiceConfig
	backends        BackendProvider
	oracle          PriceOracleService
	salts           SaltGenerator
	evm             EvmService
	watcher         ReceiptWatcher
	referrals       ReferralService
	attemptService  AttemptService
	playlistService PlaylistService

	background sync.WaitGroup
	mu         sync.Mutex
	confirming map[string]struct{}
}

type PlaylistDeploymentDeps struct {
	Backends        BackendProvider
	Oracle          PriceOracleService
	Salts           SaltGenerator
	Evm             EvmService
	Watcher         ReceiptWatcher
	Referrals       ReferralService // optional
	AttemptService  AttemptService
	PlaylistService PlaylistService
}

func NewPlaylistDeploymentService(config PlaylistDeploymentServiceConfig, deps PlaylistDeploymentDeps) PlaylistDeploymentService {
	if deps.Salts == nil {
		deps.Salts = NewSaltGenerator(nil)
	}
	return &playlistDeploymentService{
		validator:       validator.New(),
		config:          config,
		backends:        deps.Backends,
		oracle:          deps.Oracle,
		salts:           deps.Salts,
		evm:             deps.Evm,
		watcher:         deps.Watcher,
		referrals:       deps.Referrals,
		attemptService:  deps.AttemptService,
		playlistService: deps.PlaylistService,
		confirming:      make(map[string]struct{}),
	}
}

func (s *playlistDeploymentService) Prepare(ctx context.Context, env DeployEnv, draft models.PlaylistDraft) (*PreparedDeployment, error) {
	draft = draft.Normalize()
	if draft.OwnerAddress == "" && env.Owner != (common.Address{}) {
		draft.OwnerAddress = env.Owner.Hex()
	}
	if err := s.validator.Struct(draft); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	if env.Owner != (common.Address{}) && common.HexToAddress(draft.OwnerAddress) != env.Owner {
		return nil, fmt.Errorf("%w: owner %s is not the connected wallet %s", ErrInvalidDraft, draft.OwnerAddress, env.Owner.Hex())
	}
	owner := common.HexToAddress(draft.OwnerAddress)

	addresses, err := contracts.GetContractAddresses(env.ChainID)
	if err != nil {
		return nil, err
	}

	backend, err := s.backends.Backend(ctx, env.ChainID)
	if err != nil {
		logrus.WithError(err).WithField("chain_id", env.ChainID).Warn("no backend for chain, using fallback quote")
		backend = nil
	}

	payment, err := s.oracle.RequiredPayment(ctx, backendCaller(backend), QuoteRequest{
		ChainID: env.ChainID,
		Factory: addresses.Factory,
		Cents:   s.config.SaveCents,
	})
	if err != nil {
		return nil, err
	}

	salt, err := s.salts.Generate()
	if err != nil {
		return nil, err
	}

	args := DeployPlaylistCallArgs{
		Factory:       addresses.Factory.Hex(),
		PriceFeed:     addresses.PriceFeed.Hex(),
		Owner:         owner.Hex(),
		Name:          draft.Name,
		CoverImageURL: draft.CoverImageURL,
		Description:   draft.Description,
		Tags:          draft.Tags,
		Salt:          salt,
		Value:         payment.Amount.String(),
	}
	call, err := s.evm.BuildDeployPlaylistCall(args)
	if err != nil {
		return nil, fmt.Errorf("failed to build deployPlaylist call: %w", err)
	}

	attempt := &models.DeploymentAttempt{
		ChainID:          env.ChainID,
		FactoryAddress:   addresses.Factory.Hex(),
		PriceFeedAddress: addresses.PriceFeed.Hex(),
		OwnerAddress:     owner.Hex(),
		Name:             draft.Name,
		CoverImageURL:    draft.CoverImageURL,
		Description:      draft.Description,
		Tags:             models.StringList(draft.Tags),
		Salt:             salt,
		Value:            payment.Amount.String(),
		PaymentSource:    payment.Source,
		CallData:         hexutil.Encode(call.Data),
		Status:           models.AttemptStatusIdle,
	}

	if backend != nil {
		predicted, err := s.evm.PredictPlaylistAddress(ctx, backend, args)
		if err != nil {
			logrus.WithError(err).WithField("chain_id", env.ChainID).Debug("could not predict playlist address")
		} else {
			attempt.PredictedAddress = predicted.Hex()
		}
	}

	if err := s.attemptService.CreateAttempt(attempt); err != nil {
		return nil, err
	}
	metrics.RecordDeployment(string(models.AttemptStatusIdle))

	logrus.WithFields(logrus.Fields{
		"attempt_id":     attempt.ID,
		"chain_id":       env.ChainID,
		"owner":          attempt.OwnerAddress,
		"value":          attempt.Value,
		"payment_source": payment.Source,
	}).Info("prepared playlist deployment")

	return &PreparedDeployment{Attempt: attempt, Call: call, Payment: payment}, nil
}

func (s *playlistDeploymentService) Submit(ctx context.Context, attemptID string, wallet Wallet) (*models.DeploymentAttempt, error) {
	attempt, err := s.attemptService.GetAttempt(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptStatusIdle {
		return nil, fmt.Errorf("%w: attempt %s is already %s", ErrInvalidTransition, attemptID, attempt.Status)
	}
	if !strings.EqualFold(wallet.Address().Hex(), attempt.OwnerAddress) {
		return nil, fmt.Errorf("%w: wallet %s is not the playlist owner %s", ErrInvalidDraft, wallet.Address().Hex(), attempt.OwnerAddress)
	}

	call, err := callFromAttempt(attempt)
	if err != nil {
		return nil, err
	}

	if _, err := s.MarkPending(attemptID); err != nil {
		return nil, err
	}

	txHash, err := wallet.SendTransaction(ctx, call)
	if err != nil {
		if _, markErr := s.MarkFailed(attemptID, err.Error()); markErr != nil {
			logrus.WithError(markErr).WithField("attempt_id", attemptID).Error("failed to record wallet error")
		}
		return nil, fmt.Errorf("failed to send deployment transaction: %w", err)
	}

	return s.RecordTransactionHash(attemptID, txHash.Hex())
}

func callFromAttempt(attempt *models.DeploymentAttempt) (models.ContractCall, error) {
	data, err := hexutil.Decode(attempt.CallData)
	if err != nil {
		return models.ContractCall{}, fmt.Errorf("invalid call data on attempt %s: %w", attempt.ID, err)
	}
	value, err := attempt.ValueWei()
	if err != nil {
		return models.ContractCall{}, err
	}
	return models.ContractCall{
		To:    common.HexToAddress(attempt.FactoryAddress),
		Data:  data,
		Value: value,
	}, nil
}

func (s *playlistDeploymentService) MarkPending(attemptID string) (*models.DeploymentAttempt, error) {
	return s.transition(attemptID, models.AttemptStatusPending, nil)
}

func (s *playlistDeploymentService) RecordTransactionHash(attemptID string, txHash string) (*models.DeploymentAttempt, error) {
	hashBytes, err := hexutil.Decode(txHash)
	if err != nil || len(hashBytes) != common.HashLength {
		return nil, fmt.Errorf("invalid transaction hash %q", txHash)
	}
	normalized := common.BytesToHash(hashBytes).Hex()

	attempt, err := s.attemptService.GetAttempt(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.TransactionHash != "" {
		if strings.EqualFold(attempt.TransactionHash, normalized) {
			return attempt, nil
		}
		return nil, fmt.Errorf("%w: attempt %s already has transaction %s", ErrInvalidTransition, attemptID, attempt.TransactionHash)
	}

	return s.transition(attemptID, models.AttemptStatusSubmitted, func(a *models.DeploymentAttempt) {
		a.TransactionHash = normalized
		a.Message = ""
	})
}

func (s *playlistDeploymentService) MarkFailed(attemptID string, reason string) (*models.DeploymentAttempt, error) {
	return s.transition(attemptID, models.AttemptStatusFailed, func(a *models.DeploymentAttempt) {
		a.Message = reason
	})
}

func (s *playlistDeploymentService) transition(attemptID string, status models.AttemptStatus, mutate func(*models.DeploymentAttempt)) (*models.DeploymentAttempt, error) {
	attempt, err := s.attemptService.Transition(attemptID, status, mutate)
	if err != nil {
		return nil, err
	}
	metrics.RecordDeployment(string(status))
	logrus.WithFields(logrus.Fields{
		"attempt_id": attemptID,
		"status":     status,
		"tx_hash":    attempt.TransactionHash,
	}).Info("deployment attempt status changed")
	return attempt, nil
}

func (s *playlistDeploymentService) fail(attemptID string, cause error) (*DeploymentResult, error) {
	if _, err := s.MarkFailed(attemptID, cause.Error()); err != nil {
		logrus.WithError(err).WithField("attempt_id", attemptID).Error("failed to mark attempt as failed")
	}
	return nil, cause
}

func (s *playlistDeploymentService) Confirm(ctx context.Context, attemptID string) (*DeploymentResult, error) {
	s.mu.Lock()
	if _, busy := s.confirming[attemptID]; busy {
		s.mu.Unlock()
		return nil, fmt.Errorf("confirmation of attempt %s already in progress", attemptID)
	}
	s.confirming[attemptID] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.confirming, attemptID)
		s.mu.Unlock()
	}()

	attempt, err := s.attemptService.GetAttempt(attemptID)
	if err != nil {
		return nil, err
	}

	switch attempt.Status {
	case models.AttemptStatusSuccess:
		playlist, err := s.playlistService.GetPlaylistByAttemptID(attemptID)
		if err != nil {
			return nil, fmt.Errorf("failed to load playlist of attempt %s: %w", attemptID, err)
		}
		return &DeploymentResult{Attempt: attempt, Playlist: playlist}, nil
	case models.AttemptStatusSubmitted, models.AttemptStatusStalled:
	default:
		return nil, fmt.Errorf("%w: cannot confirm attempt in status %s", ErrInvalidTransition, attempt.Status)
	}

	logger := logrus.WithFields(logrus.Fields{
		"attempt_id": attemptID,
		"chain_id":   attempt.ChainID,
		"tx_hash":    attempt.TransactionHash,
	})
	txHash := common.HexToHash(attempt.TransactionHash)
	factory := common.HexToAddress(attempt.FactoryAddress)

	backend, err := s.backends.Backend(ctx, attempt.ChainID)
	if err != nil {
		return nil, fmt.Errorf("failed to get backend for chain %d: %w", attempt.ChainID, err)
	}

	receipt, err := s.watcher.Wait(ctx, backend, txHash)
	if err != nil {
		if errors.Is(err, ErrReceiptTimeout) {
			if _, terr := s.transition(attemptID, models.AttemptStatusStalled, func(a *models.DeploymentAttempt) {
				a.Message = stalledMessage
			}); terr != nil {
				logger.WithError(terr).Error("failed to mark attempt as stalled")
			}
		}
		return nil, err
	}
	if receipt.TxHash != txHash {
		return s.fail(attemptID, fmt.Errorf("receipt %s does not belong to submitted transaction %s", receipt.TxHash.Hex(), txHash.Hex()))
	}

	tx, _, err := backend.TransactionByHash(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", txHash.Hex(), err)
	}

	if _, err := s.transition(attemptID, models.AttemptStatusConfirmed, func(a *models.DeploymentAttempt) {
		a.Message = ""
	}); err != nil {
		return nil, err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return s.fail(attemptID, fmt.Errorf("%w: %s", ErrTransactionReverted, txHash.Hex()))
	}
	if err := verifyPayment(tx, attempt, factory); err != nil {
		return s.fail(attemptID, err)
	}

	if _, err := s.transition(attemptID, models.AttemptStatusDecoding, nil); err != nil {
		return nil, err
	}

	event, err := s.evm.FindPlaylistDeployed(receipt, factory)
	if err != nil {
		logger.WithError(err).Warn("no PlaylistDeployed event in confirmed receipt")
		return s.fail(attemptID, err)
	}

	playlistAddress := event.PlaylistAddress.Hex()
	if attempt.PredictedAddress != "" && !strings.EqualFold(attempt.PredictedAddress, playlistAddress) {
		logger.WithFields(logrus.Fields{
			"predicted": attempt.PredictedAddress,
			"decoded":   playlistAddress,
		}).Warn("decoded playlist address differs from prediction")
	}

	playlist := &models.Playlist{
		Name:            attempt.Name,
		CoverImageURL:   attempt.CoverImageURL,
		Description:     attempt.Description,
		Tags:            attempt.Tags,
		ContractAddress: playlistAddress,
		OwnerAddress:    attempt.OwnerAddress,
		ChainID:         attempt.ChainID,
		TransactionHash: txHash.Hex(),
		AttemptID:       attemptID,
	}
	if err := s.playlistService.CreatePlaylist(playlist); err != nil {
		return s.fail(attemptID, err)
	}

	referralStatus := models.ReferralStatusNone
	if s.referrals != nil {
		referralStatus = models.ReferralStatusPending
	}
	updated, err := s.transition(attemptID, models.AttemptStatusSuccess, func(a *models.DeploymentAttempt) {
		a.PlaylistAddress = playlistAddress
		a.ReferralStatus = referralStatus
		a.Message = ""
	})
	if err != nil {
		return nil, err
	}
	logger.WithField("playlist_address", playlistAddress).Info("playlist deployed")

	s.submitReferral(attemptID, txHash, attempt.ChainID)

	return &DeploymentResult{Attempt: updated, Playlist: playlist}, nil
}

// verifyPayment checks that the mined transaction called the factory with at least the quoted value
// and was sent by the playlist owner.
func verifyPayment(tx *types.Transaction, attempt *models.DeploymentAttempt, factory common.Address) error {
	if tx == nil {
		return fmt.Errorf("%w: transaction not found", ErrPaymentMismatch)
	}
	if tx.To() == nil || *tx.To() != factory {
		return fmt.Errorf("%w: recipient is not the playlist factory %s", ErrPaymentMismatch, factory.Hex())
	}
	required, err := attempt.ValueWei()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPaymentMismatch, err)
	}
	if tx.Value().Cmp(required) < 0 {
		return fmt.Errorf("%w: paid %s wei, required %s wei", ErrPaymentMismatch, tx.Value(), attempt.Value)
	}

	signer := types.LatestSignerForChainID(new(big.Int).SetUint64(attempt.ChainID))
	sender, err := types.Sender(signer, tx)
	if err != nil {
		return fmt.Errorf("%w: cannot recover sender: %v", ErrPaymentMismatch, err)
	}
	if sender != common.HexToAddress(attempt.OwnerAddress) {
		return fmt.Errorf("%w: sent by %s instead of owner %s", ErrPaymentMismatch, sender.Hex(), attempt.OwnerAddress)
	}
	return nil
}

// submitReferral attributes the deployment without blocking or reversing the reported success
func (s *playlistDeploymentService) submitReferral(attemptID string, txHash common.Hash, chainID uint64) {
	if s.referrals == nil {
		return
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()

		ctx, cancel := context.WithTimeout(context.Background(), referralTimeout)
		defer cancel()

		logger := logrus.WithFields(logrus.Fields{"attempt_id": attemptID, "tx_hash": txHash.Hex()})
		status := models.ReferralStatusSubmitted
		if err := s.referrals.Submit(ctx, txHash, chainID); err != nil {
			logger.WithError(err).Warn("referral submission failed")
			status = models.ReferralStatusFailed
		}
		metrics.RecordReferral(status == models.ReferralStatusSubmitted)

		if err := s.attemptService.UpdateReferralStatus(attemptID, status); err != nil {
			logger.WithError(err).Error("failed to record referral status")
		}
	}()
}

func (s *playlistDeploymentService) ConfirmInBackground(attemptID string) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()

		// the watcher bounds the receipt wait; the extra minute covers the remaining RPC calls
		ctx, cancel := context.WithTimeout(context.Background(), s.config.ReceiptTimeout+time.Minute)
		defer cancel()

		if _, err := s.Confirm(ctx, attemptID); err != nil {
			logrus.WithError(err).WithField("attempt_id", attemptID).Warn("background confirmation did not succeed")
		}
	}()
}

func (s *playlistDeploymentService) Deploy(ctx context.Context, env DeployEnv, draft models.PlaylistDraft, wallet Wallet) (*DeploymentResult, error) {
	if env.Owner == (common.Address{}) {
		env.Owner = wallet.Address()
	}

	prepared, err := s.Prepare(ctx, env, draft)
	if err != nil {
		return nil, err
	}
	if _, err := s.Submit(ctx, prepared.Attempt.ID, wallet); err != nil {
		return nil, err
	}
	return s.Confirm(ctx, prepared.Attempt.ID)
}

func (s *playlistDeploymentService) RequiredPayment(ctx context.Context, chainID uint64, cents uint64) (models.RequiredPayment, error) {
	addresses, err := contracts.GetContractAddresses(chainID)
	if err != nil {
		return models.RequiredPayment{}, err
	}
	backend, err := s.backends.Backend(ctx, chainID)
	if err != nil {
		logrus.WithError(err).WithField("chain_id", chainID).Warn("no backend for chain, using fallback quote")
		backend = nil
	}
	return s.oracle.RequiredPayment(ctx, backendCaller(backend), QuoteRequest{
		ChainID: chainID,
		Factory: addresses.Factory,
		Cents:   cents,
	})
}

// backendCaller keeps a missing backend a nil interface so the oracle takes its fallback path
func backendCaller(backend EthBackend) ethereum.ContractCaller {
	if backend == nil {
		return nil
	}
	return backend
}

func (s *playlistDeploymentService) GetAttempt(attemptID string) (*models.DeploymentAttempt, error) {
	return s.attemptService.GetAttempt(attemptID)
}

func (s *playlistDeploymentService) Wait() {
	s.background.Wait()
}
