package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/playlist-launchpad/internal/contracts"
	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"github.com/sirupsen/logrus"
)

type EvmService interface {
	// BuildDeployPlaylistCall packs deployPlaylist with the payment attached as value
	BuildDeployPlaylistCall(args DeployPlaylistCallArgs) (models.ContractCall, error)
	// PredictPlaylistAddress asks the factory for the CREATE2 address of the playlist
	PredictPlaylistAddress(ctx context.Context, caller ethereum.ContractCaller, args DeployPlaylistCallArgs) (common.Address, error)
	// FindPlaylistDeployed scans receipt logs in order and returns the first PlaylistDeployed event emitted by factory
	FindPlaylistDeployed(receipt *types.Receipt, factory common.Address) (*contracts.PlaylistDeployedEvent, error)
	// GetTransactionDeployment turns a call into the transaction shown on the signing page
	GetTransactionDeployment(call models.ContractCall, title, description string) models.TransactionDeployment
}

type evmService struct {
	validator *validator.Validate
	schema    contracts.FactorySchema
}

func NewEvmService(schema contracts.FactorySchema) EvmService {
	return &evmService{
		validator: validator.New(),
		schema:    schema,
	}
}

func (s *evmService) toFactoryArgs(args DeployPlaylistCallArgs) (contracts.DeployPlaylistArgs, error) {
	if err := s.validator.Struct(args); err != nil {
		return contracts.DeployPlaylistArgs{}, err
	}

	salt, err := contracts.SaltToBigInt(args.Salt)
	if err != nil {
		return contracts.DeployPlaylistArgs{}, err
	}

	return contracts.DeployPlaylistArgs{
		Name:          args.Name,
		CoverImageURL: args.CoverImageURL,
		Description:   args.Description,
		Tags:          args.Tags,
		Owner:         common.HexToAddress(args.Owner),
		PriceFeed:     common.HexToAddress(args.PriceFeed),
		Salt:          salt,
	}, nil
}

func (s *evmService) BuildDeployPlaylistCall(args DeployPlaylistCallArgs) (models.ContractCall, error) {
	factoryArgs, err := s.toFactoryArgs(args)
	if err != nil {
		return models.ContractCall{}, err
	}

	data, err := s.schema.PackDeployPlaylist(factoryArgs)
	if err != nil {
		return models.ContractCall{}, err
	}

	value := big.NewInt(0)
	if args.Value != "" {
		var ok bool
		value, ok = new(big.Int).SetString(args.Value, 10)
		if !ok {
			return models.ContractCall{}, fmt.Errorf("invalid value: %s", args.Value)
		}
	}

	return models.ContractCall{
		To:    common.HexToAddress(args.Factory),
		Data:  data,
		Value: value,
	}, nil
}

func (s *evmService) PredictPlaylistAddress(ctx context.Context, caller ethereum.ContractCaller, args DeployPlaylistCallArgs) (common.Address, error) {
	factoryArgs, err := s.toFactoryArgs(args)
	if err != nil {
		return common.Address{}, err
	}

	data, err := s.schema.PackComputePlaylistAddress(factoryArgs)
	if err != nil {
		return common.Address{}, err
	}

	factory := common.HexToAddress(args.Factory)
	output, err := caller.CallContract(ctx, ethereum.CallMsg{To: &factory, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to call %s: %w", contracts.MethodComputePlaylistAddress, err)
	}
	return s.schema.UnpackAddress(contracts.MethodComputePlaylistAddress, output)
}

func (s *evmService) FindPlaylistDeployed(receipt *types.Receipt, factory common.Address) (*contracts.PlaylistDeployedEvent, error) {
	if receipt == nil {
		return nil, fmt.Errorf("receipt is nil")
	}

	for _, log := range receipt.Logs {
		event, matched, err := s.schema.DecodePlaylistDeployed(factory, log)
		if !matched {
			continue
		}
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"tx_hash":   receipt.TxHash.Hex(),
				"log_index": log.Index,
			}).Warn("skipping undecodable PlaylistDeployed log")
			continue
		}
		return event, nil
	}
	return nil, ErrPlaylistEventNotFound
}

func (s *evmService) GetTransactionDeployment(call models.ContractCall, title, description string) models.TransactionDeployment {
	value := "0"
	if call.Value != nil {
		value = call.Value.String()
	}
	return models.TransactionDeployment{
		Title:           title,
		Description:     description,
		Data:            hexutil.Encode(call.Data),
		Value:           value,
		Receiver:        call.To.Hex(),
		Status:          models.TransactionStatusPending,
		TransactionType: models.TransactionTypePlaylistDeployment,
	}
}
