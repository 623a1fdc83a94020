// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package transfer

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/vectorlabs/vectord/chanmodel"
	"github.com/vectorlabs/vectord/internal/memstore"
	"github.com/vectorlabs/vectord/internal/mock"
)

func newTestChannel(t *testing.T, store *memstore.Store, alice, bob common.Address, chainID uint64) common.Address {
	t.Helper()
	channelAddress := common.HexToAddress("0xc1")
	ch := &chanmodel.Channel{
		ChannelAddress:  channelAddress,
		AliceIdentifier: "alice",
		BobIdentifier:   "bob",
		Alice:           alice,
		Bob:             bob,
		ChainID:         chainID,
		Nonce:           1,
		Balances:        map[chanmodel.AssetID]chanmodel.Balance{},
	}
	require.NoError(t, store.SaveChannelStateAndTransfers(context.Background(), ch, nil, nil))
	return channelAddress
}

func TestConvertCreateParamsResolvesDefinitionAndEncryptsSecrets(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := mock.NewSigner(key, "alice")

	store := memstore.New()
	chain := mock.NewChainReader()
	definition := common.HexToAddress("0xdefabc")
	chain.RegisterTransferDefinition(1, "hashlock", definition, nil, nil)

	channelAddress := newTestChannel(t, store, signer.Address(), common.HexToAddress("0xbob"), 1)

	b := New(signer, store, chain)
	params, err := b.ConvertCreateParams(context.Background(), channelAddress, CreateTransferRequest{
		Type:      "hashlock",
		Details:   map[string]interface{}{"preImage": "plaintext-secret", "unrelated": "kept"},
		Amount:    big.NewInt(50),
		AssetID:   common.HexToAddress("0xasset"),
		Recipient: "bob",
	})
	require.NoError(t, err)
	require.Equal(t, definition, params.TransferDefinition)
	require.Equal(t, signer.Address(), params.Initiator)
	require.Equal(t, common.HexToAddress("0xbob"), params.Responder)

	rm, ok := chanmodel.GetRoutingMeta(params.Meta)
	require.True(t, ok)
	require.NotEmpty(t, rm.RoutingID)
	require.Equal(t, chanmodel.Identifier("alice"), rm.SenderIdentifier)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(params.EncodedState, &decoded))
	require.Equal(t, "kept", decoded["unrelated"])
	require.NotEqual(t, "plaintext-secret", decoded["preImage"])
}

func TestConvertCreateParamsUnknownDefinitionFails(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := mock.NewSigner(key, "alice")
	store := memstore.New()
	chain := mock.NewChainReader()
	channelAddress := newTestChannel(t, store, signer.Address(), common.HexToAddress("0xbob"), 1)

	b := New(signer, store, chain)
	_, err = b.ConvertCreateParams(context.Background(), channelAddress, CreateTransferRequest{Type: "unregistered", Amount: big.NewInt(1)})
	require.Error(t, err)
}

func TestConvertWithdrawParamsEncodesRecipientAndAmount(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := mock.NewSigner(key, "alice")
	store := memstore.New()
	chain := mock.NewChainReader()
	chain.RegisterTransferDefinition(1, WithdrawDefinitionName, common.HexToAddress("0xwithdraw"), nil, nil)
	channelAddress := newTestChannel(t, store, signer.Address(), common.HexToAddress("0xbob"), 1)

	b := New(signer, store, chain)
	recipient := common.HexToAddress("0xrecipient")
	params, err := b.ConvertWithdrawParams(context.Background(), channelAddress, WithdrawRequest{
		AssetID:   common.HexToAddress("0xasset"),
		Amount:    big.NewInt(25),
		Recipient: recipient,
	})
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0xwithdraw"), params.TransferDefinition)

	var decoded struct {
		Recipient common.Address `json:"recipient"`
		Amount    string         `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(params.EncodedState, &decoded))
	require.Equal(t, recipient, decoded.Recipient)
	require.Equal(t, "25", decoded.Amount)
}

func TestConvertResolveConditionParamsPassesThrough(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := mock.NewSigner(key, "alice")
	store := memstore.New()
	chain := mock.NewChainReader()

	b := New(signer, store, chain)
	transferID := common.HexToHash("0x01")
	params, err := b.ConvertResolveConditionParams(context.Background(), common.HexToAddress("0xc1"), ResolveTransferRequest{
		TransferID: transferID,
		Resolver:   []byte("secret"),
	})
	require.NoError(t, err)
	require.Equal(t, transferID, params.TransferID)
	require.Equal(t, []byte("secret"), params.Resolver)
}
