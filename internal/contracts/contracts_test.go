package contracts

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeDeployedLog(t *testing.T, schema FactorySchema, factory, playlist, owner common.Address, name string, salt *big.Int, tags []string) *types.Log {
	t.Helper()
	event := schema.ABI().Events[EventPlaylistDeployed]
	data, err := event.Inputs.NonIndexed().Pack(name, salt, tags)
	require.NoError(t, err)
	return &types.Log{
		Address: factory,
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(playlist.Bytes()),
			common.BytesToHash(owner.Bytes()),
		},
		Data:   data,
		TxHash: common.HexToHash("0x01"),
	}
}

func TestGetContractAddresses(t *testing.T) {
	t.Run("base sepolia", func(t *testing.T) {
		addresses, err := GetContractAddresses(84532)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress("0x5A7861D29088B67Cc03d85c4D89B855201e030EB"), addresses.Factory)
		assert.Equal(t, common.HexToAddress("0x4aDC67696bA383F43DD60A9e78F2C97Fbbfc7cb1"), addresses.PriceFeed)
	})

	t.Run("base mainnet", func(t *testing.T) {
		addresses, err := GetContractAddresses(8453)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress("0x585571bF2BE914e0C9CE549E99E2E61888d09cC2"), addresses.Factory)
		assert.Equal(t, common.HexToAddress("0x71041dddad3595F9CEd3DcCFBe3D1F4b0a16Bb70"), addresses.PriceFeed)
		assert.True(t, IsSupportedChain(8453))
	})

	t.Run("unconfigured chain", func(t *testing.T) {
		_, err := GetContractAddresses(999999)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupportedChain))
		assert.Contains(t, err.Error(), "999999")
		assert.Contains(t, err.Error(), "Base Sepolia (84532)")
		assert.Contains(t, err.Error(), "Base Mainnet (8453)")
		assert.False(t, IsSupportedChain(999999))
	})
}

func TestFactorySchemaV1_Pack(t *testing.T) {
	schema, err := NewFactorySchemaV1()
	require.NoError(t, err)
	assert.Equal(t, "v1", schema.Version())

	args := DeployPlaylistArgs{
		Name:      "Chill Vibes",
		Tags:      []string{"lofi", "study"},
		Owner:     common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		PriceFeed: common.HexToAddress("0x4aDC67696bA383F43DD60A9e78F2C97Fbbfc7cb1"),
		Salt:      big.NewInt(42),
	}

	t.Run("deployPlaylist selector", func(t *testing.T) {
		data, err := schema.PackDeployPlaylist(args)
		require.NoError(t, err)
		method := schema.ABI().Methods[MethodDeployPlaylist]
		assert.Equal(t, method.ID, data[:4])

		values, err := method.Inputs.Unpack(data[4:])
		require.NoError(t, err)
		assert.Equal(t, "Chill Vibes", values[0])
		assert.Equal(t, []string{"lofi", "study"}, values[3])
		assert.Equal(t, args.Owner, values[4])
		assert.Equal(t, 0, big.NewInt(42).Cmp(values[6].(*big.Int)))
	})

	t.Run("computePlaylistAddress uses the same arguments", func(t *testing.T) {
		data, err := schema.PackComputePlaylistAddress(args)
		require.NoError(t, err)
		assert.Equal(t, schema.ABI().Methods[MethodComputePlaylistAddress].ID, data[:4])
	})

	t.Run("missing salt", func(t *testing.T) {
		noSalt := args
		noSalt.Salt = nil
		_, err := schema.PackDeployPlaylist(noSalt)
		assert.Error(t, err)
	})

	t.Run("required ETH round trip", func(t *testing.T) {
		data, err := schema.PackRequiredETHForCents(big.NewInt(10))
		require.NoError(t, err)
		assert.Equal(t, schema.ABI().Methods[MethodGetRequiredETHForCents].ID, data[:4])

		expected, _ := new(big.Int).SetString("39582170607071750", 10)
		output, err := schema.ABI().Methods[MethodGetRequiredETHForCents].Outputs.Pack(expected)
		require.NoError(t, err)
		amount, err := schema.UnpackRequiredETHForCents(output)
		require.NoError(t, err)
		assert.Equal(t, expected.String(), amount.String())
	})

	t.Run("unpack address", func(t *testing.T) {
		predicted := common.HexToAddress("0xABCD000000000000000000000000000000000001")
		output, err := schema.ABI().Methods[MethodComputePlaylistAddress].Outputs.Pack(predicted)
		require.NoError(t, err)
		addr, err := schema.UnpackAddress(MethodComputePlaylistAddress, output)
		require.NoError(t, err)
		assert.Equal(t, predicted, addr)

		_, err = schema.UnpackAddress(MethodComputePlaylistAddress, []byte{0x01})
		assert.Error(t, err)
	})
}

func TestFactorySchemaV1_DecodePlaylistDeployed(t *testing.T) {
	schema := MustFactorySchemaV1()
	factory := common.HexToAddress("0x5A7861D29088B67Cc03d85c4D89B855201e030EB")
	playlist := common.HexToAddress("0xABCD000000000000000000000000000000000001")
	owner := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

	t.Run("matching log", func(t *testing.T) {
		log := encodeDeployedLog(t, schema, factory, playlist, owner, "Chill Vibes", big.NewInt(7), []string{"lofi", "study"})
		event, matched, err := schema.DecodePlaylistDeployed(factory, log)
		require.NoError(t, err)
		require.True(t, matched)
		assert.Equal(t, playlist, event.PlaylistAddress)
		assert.Equal(t, owner, event.Owner)
		assert.Equal(t, "Chill Vibes", event.Name)
		assert.Equal(t, int64(7), event.Salt.Int64())
		assert.Equal(t, []string{"lofi", "study"}, event.Tags)
	})

	t.Run("address comparison ignores hex case", func(t *testing.T) {
		log := encodeDeployedLog(t, schema, factory, playlist, owner, "x", big.NewInt(1), nil)
		lower := common.HexToAddress(strings.ToLower(factory.Hex()))
		_, matched, err := schema.DecodePlaylistDeployed(lower, log)
		require.NoError(t, err)
		assert.True(t, matched)
	})

	t.Run("other contract", func(t *testing.T) {
		log := encodeDeployedLog(t, schema, common.HexToAddress("0x01"), playlist, owner, "x", big.NewInt(1), nil)
		event, matched, err := schema.DecodePlaylistDeployed(factory, log)
		require.NoError(t, err)
		assert.False(t, matched)
		assert.Nil(t, event)
	})

	t.Run("other event", func(t *testing.T) {
		log := encodeDeployedLog(t, schema, factory, playlist, owner, "x", big.NewInt(1), nil)
		log.Topics[0] = schema.ABI().Events["PlaylistDeploymentFailed"].ID
		_, matched, err := schema.DecodePlaylistDeployed(factory, log)
		require.NoError(t, err)
		assert.False(t, matched)
	})

	t.Run("malformed data", func(t *testing.T) {
		log := encodeDeployedLog(t, schema, factory, playlist, owner, "x", big.NewInt(1), nil)
		log.Data = []byte{0x01, 0x02}
		_, matched, err := schema.DecodePlaylistDeployed(factory, log)
		assert.True(t, matched)
		assert.Error(t, err)
	})
}

func TestSaltToBigInt(t *testing.T) {
	salt := "0x" + strings.Repeat("00", 31) + "2a"
	value, err := SaltToBigInt(salt)
	require.NoError(t, err)
	assert.Equal(t, int64(42), value.Int64())

	_, err = SaltToBigInt("0x1234")
	assert.Error(t, err)
}
