package contracts

import (
	"bytes"
	_ "embed"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

//go:embed abi/PlaylistFactoryV1.json
var playlistFactoryV1ABI []byte

const (
	MethodDeployPlaylist         = "deployPlaylist"
	MethodComputePlaylistAddress = "computePlaylistAddress"
	MethodGetRequiredETHForCents = "getRequiredETHForCents"
	EventPlaylistDeployed        = "PlaylistDeployed"
)

// DeployPlaylistArgs are the arguments shared by deployPlaylist and computePlaylistAddress
type DeployPlaylistArgs struct {
	Name          string
	CoverImageURL string
	Description   string
	Tags          []string
	Owner         common.Address
	PriceFeed     common.Address
	Salt          *big.Int
}

// PlaylistDeployedEvent is the decoded PlaylistDeployed log
type PlaylistDeployedEvent struct {
	PlaylistAddress common.Address
	Name            string
	Owner           common.Address
	Salt            *big.Int
	Tags            []string
	TxHash          common.Hash
	LogIndex        uint
}

// FactorySchema isolates the deployment flow from the factory contract's ABI.
// A new factory release gets a new implementation.
type FactorySchema interface {
	Version() string
	ABI() abi.ABI
	PackDeployPlaylist(args DeployPlaylistArgs) ([]byte, error)
	PackComputePlaylistAddress(args DeployPlaylistArgs) ([]byte, error)
	UnpackAddress(method string, output []byte) (common.Address, error)
	PackRequiredETHForCents(cents *big.Int) ([]byte, error)
	UnpackRequiredETHForCents(output []byte) (*big.Int, error)
	// DecodePlaylistDeployed decodes log when it is a PlaylistDeployed event emitted by factory.
	// The bool is false for logs from other contracts or with other signatures.
	DecodePlaylistDeployed(factory common.Address, log *types.Log) (*PlaylistDeployedEvent, bool, error)
}

type factorySchemaV1 struct {
	abi abi.ABI
}

// NewFactorySchemaV1 parses the embedded ABI of the first factory release
func NewFactorySchemaV1() (FactorySchema, error) {
	parsed, err := abi.JSON(bytes.NewReader(playlistFactoryV1ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse playlist factory ABI: %w", err)
	}
	return &factorySchemaV1{abi: parsed}, nil
}

// MustFactorySchemaV1 is like NewFactorySchemaV1 but panics on a malformed embedded ABI
func MustFactorySchemaV1() FactorySchema {
	schema, err := NewFactorySchemaV1()
	if err != nil {
		panic(err)
	}
	return schema
}

func (f *factorySchemaV1) Version() string {
	return "v1"
}

func (f *factorySchemaV1) ABI() abi.ABI {
	return f.abi
}

func (f *factorySchemaV1) PackDeployPlaylist(args DeployPlaylistArgs) ([]byte, error) {
	return f.packPlaylistCall(MethodDeployPlaylist, args)
}

func (f *factorySchemaV1) PackComputePlaylistAddress(args DeployPlaylistArgs) ([]byte, error) {
	return f.packPlaylistCall(MethodComputePlaylistAddress, args)
}

func (f *factorySchemaV1) packPlaylistCall(method string, args DeployPlaylistArgs) ([]byte, error) {
	if args.Salt == nil {
		return nil, fmt.Errorf("failed to pack %s: salt is required", method)
	}
	tags := args.Tags
	if tags == nil {
		tags = []string{}
	}
	data, err := f.abi.Pack(method,
		args.Name,
		args.CoverImageURL,
		args.Description,
		tags,
		args.Owner,
		args.PriceFeed,
		args.Salt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	return data, nil
}

func (f *factorySchemaV1) UnpackAddress(method string, output []byte) (common.Address, error) {
	values, err := f.abi.Unpack(method, output)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return common.Address{}, fmt.Errorf("unexpected %s output length: %d", method, len(values))
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected %s output type: %T", method, values[0])
	}
	return addr, nil
}

func (f *factorySchemaV1) PackRequiredETHForCents(cents *big.Int) ([]byte, error) {
	data, err := f.abi.Pack(MethodGetRequiredETHForCents, cents)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", MethodGetRequiredETHForCents, err)
	}
	return data, nil
}

func (f *factorySchemaV1) UnpackRequiredETHForCents(output []byte) (*big.Int, error) {
	values, err := f.abi.Unpack(MethodGetRequiredETHForCents, output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", MethodGetRequiredETHForCents, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected %s output length: %d", MethodGetRequiredETHForCents, len(values))
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s output type: %T", MethodGetRequiredETHForCents, values[0])
	}
	return amount, nil
}

func (f *factorySchemaV1) DecodePlaylistDeployed(factory common.Address, log *types.Log) (*PlaylistDeployedEvent, bool, error) {
	if log == nil || log.Address != factory {
		return nil, false, nil
	}
	event, ok := f.abi.Events[EventPlaylistDeployed]
	if !ok {
		return nil, false, fmt.Errorf("event %s missing from ABI", EventPlaylistDeployed)
	}
	if len(log.Topics) == 0 || log.Topics[0] != event.ID {
		return nil, false, nil
	}

	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}

	fields := make(map[string]interface{})
	if err := abi.ParseTopicsIntoMap(fields, indexed, log.Topics[1:]); err != nil {
		return nil, true, fmt.Errorf("failed to parse %s topics: %w", EventPlaylistDeployed, err)
	}
	if err := event.Inputs.UnpackIntoMap(fields, log.Data); err != nil {
		return nil, true, fmt.Errorf("failed to unpack %s data: %w", EventPlaylistDeployed, err)
	}

	decoded := &PlaylistDeployedEvent{
		TxHash:   log.TxHash,
		LogIndex: log.Index,
	}
	var typeOK bool
	if decoded.PlaylistAddress, typeOK = fields["playlistAddress"].(common.Address); !typeOK {
		return nil, true, fmt.Errorf("unexpected playlistAddress type: %T", fields["playlistAddress"])
	}
	if decoded.Owner, typeOK = fields["owner"].(common.Address); !typeOK {
		return nil, true, fmt.Errorf("unexpected owner type: %T", fields["owner"])
	}
	decoded.Name, _ = fields["name"].(string)
	decoded.Salt, _ = fields["salt"].(*big.Int)
	decoded.Tags, _ = fields["tags"].([]string)
	return decoded, true, nil
}

// SaltToBigInt converts a 0x-prefixed 32 byte hex salt to the uint256 the factory expects
func SaltToBigInt(salt string) (*big.Int, error) {
	raw := common.FromHex(salt)
	if len(raw) != common.HashLength {
		return nil, fmt.Errorf("invalid salt %q: expected %d bytes, got %d", salt, common.HashLength, len(raw))
	}
	return new(big.Int).SetBytes(raw), nil
}
