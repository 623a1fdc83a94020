// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package forward_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/vectorlabs/vectord/chanmodel"
	"github.com/vectorlabs/vectord/engine"
	"github.com/vectorlabs/vectord/event"
	"github.com/vectorlabs/vectord/forward"
	"github.com/vectorlabs/vectord/iface"
	"github.com/vectorlabs/vectord/internal/memstore"
	"github.com/vectorlabs/vectord/internal/mock"
)

type node struct {
	signer *mock.Signer
	store  *memstore.Store
	chain  *mock.ChainReader
	engine *engine.Engine
}

func newNode(t *testing.T, identifier chanmodel.Identifier, messaging *mock.Messaging, bus *event.Bus) *node {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := mock.NewSigner(key, identifier)
	store := memstore.New()
	chain := mock.NewChainReader()
	lock := mock.NewLockService()

	eng := engine.New(signer, store, lock, chain, messaging, bus)
	messaging.OnReceiveProtocolMessage(identifier, func(ctx context.Context, payload iface.ProtocolPayload, from chanmodel.Identifier, replyInbox string) iface.ProtocolReply {
		return eng.HandleInbound(ctx, payload, from, replyInbox)
	})

	return &node{signer: signer, store: store, chain: chain, engine: eng}
}

func setupChannel(t *testing.T, alice, bob *node, chainID uint64) common.Address {
	t.Helper()
	factory := common.HexToAddress("0xfactory")
	channelAddress := chanmodel.DeriveChannelAddress(alice.signer.Address(), bob.signer.Address(), factory, chainID)

	_, err := alice.engine.Outbound(context.Background(), engine.UpdateParams{Setup: &engine.SetupParams{
		ChannelAddress:  channelAddress,
		Alice:           alice.signer.Address(),
		Bob:             bob.signer.Address(),
		AliceIdentifier: alice.signer.Identifier(),
		BobIdentifier:   bob.signer.Identifier(),
		ChainID:         chainID,
		Timeout:         3600,
	}})
	require.NoError(t, err)
	return channelAddress
}

func deposit(t *testing.T, leader *node, channelAddress common.Address, assetID chanmodel.AssetID, total *big.Int) {
	t.Helper()
	leader.chain.SetDeposit(channelAddress, assetID, total)
	_, err := leader.engine.Outbound(context.Background(), engine.UpdateParams{
		Deposit: &engine.DepositParams{ChannelAddress: channelAddress, AssetID: assetID},
	})
	require.NoError(t, err)
}

func TestHandleConditionalTransferCreatedRoutesWhenRecipientOnline(t *testing.T) {
	messaging := mock.NewMessaging()
	bus := event.New(16)
	router := newNode(t, "router", messaging, bus)
	carol := newNode(t, "carol", messaging, bus)

	assetID := common.HexToAddress("0xa55e7")
	channelAddress := setupChannel(t, router, carol, 1)
	deposit(t, router, channelAddress, assetID, big.NewInt(1000))

	f := forward.New(router.engine, router.store, messaging, router.chain, nil, forward.Config{
		RouterSignerAddress: router.signer.Address(),
	})

	senderChannel := &chanmodel.Channel{
		ChannelAddress: common.HexToAddress("0xsender"),
		ChainID:        1,
		Alice:          common.HexToAddress("0xeeee000000000000000000000000000000000e"),
		Bob:            router.signer.Address(),
	}
	transferDetails := &chanmodel.Transfer{
		TransferID:         common.HexToHash("0x01"),
		ChannelAddress:     senderChannel.ChannelAddress,
		AssetID:            assetID,
		Balance:            chanmodel.Balance{big.NewInt(100), big.NewInt(0)},
		TransferDefinition: common.HexToAddress("0xdef"),
		TransferState:      []byte("state"),
		TransferTimeout:    7200,
		Meta: chanmodel.PutRoutingMeta(nil, chanmodel.RoutingMeta{
			RoutingID: "route-1",
			Path:      []chanmodel.RoutingPathHop{{Recipient: "carol"}},
		}),
	}

	err := f.HandleConditionalTransferCreated(context.Background(), event.ConditionalTransferCreatedPayload{
		Channel:  senderChannel,
		Transfer: transferDetails,
	})
	require.NoError(t, err)

	active, err := carol.store.GetActiveTransfers(context.Background(), channelAddress)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, assetID, active[0].AssetID)
	require.Equal(t, big.NewInt(100), active[0].Balance[0])
}

func TestHandleConditionalTransferCreatedCancelsWhenRecipientChannelMissing(t *testing.T) {
	messaging := mock.NewMessaging()
	bus := event.New(16)
	eve := newNode(t, "eve", messaging, bus)
	router := newNode(t, "router", messaging, bus)

	assetID := common.HexToAddress("0xa55e7")
	channelAddress := setupChannel(t, eve, router, 1)
	deposit(t, eve, channelAddress, assetID, big.NewInt(1000))

	definition := common.HexToAddress("0xhashlock")
	cancelResolver := []byte("cancel")
	resolveFn := func(initialState, resolver []byte, balance chanmodel.Balance) (chanmodel.Balance, error) {
		return chanmodel.Balance{big.NewInt(0), new(big.Int).Set(balance[0])}, nil
	}
	eve.chain.RegisterTransferDefinition(1, "hashlock", definition, resolveFn, cancelResolver)
	router.chain.RegisterTransferDefinition(1, "hashlock", definition, resolveFn, cancelResolver)

	_, err := eve.engine.Outbound(context.Background(), engine.UpdateParams{Create: &engine.CreateParams{
		ChannelAddress:     channelAddress,
		AssetID:            assetID,
		Amount:             big.NewInt(50),
		Initiator:          eve.signer.Address(),
		Responder:          router.signer.Address(),
		TransferDefinition: definition,
		InitialState:       []byte("init"),
		EncodedState:       []byte("init"),
		TransferTimeout:    3600,
		Meta: chanmodel.PutRoutingMeta(nil, chanmodel.RoutingMeta{
			RoutingID: "route-2",
			Path:      []chanmodel.RoutingPathHop{{Recipient: "dave"}},
		}),
	}})
	require.NoError(t, err)

	senderChannel, err := router.store.GetChannelState(context.Background(), channelAddress)
	require.NoError(t, err)
	active, err := router.store.GetActiveTransfers(context.Background(), channelAddress)
	require.NoError(t, err)
	require.Len(t, active, 1)

	f := forward.New(router.engine, router.store, messaging, router.chain, nil, forward.Config{
		RouterSignerAddress: router.signer.Address(),
	})

	err = f.HandleConditionalTransferCreated(context.Background(), event.ConditionalTransferCreatedPayload{
		Channel:  senderChannel,
		Transfer: active[0],
	})
	require.Error(t, err)
	fwdErr, ok := err.(*forward.ForwardError)
	require.True(t, ok)
	require.True(t, fwdErr.ShouldCancelSender)
	require.Equal(t, "executed", fwdErr.SenderTransferCancellation)

	remaining, err := router.store.GetActiveTransfers(context.Background(), channelAddress)
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestHandleConditionalTransferResolvedPropagatesToSender(t *testing.T) {
	messaging := mock.NewMessaging()
	bus := event.New(16)
	eve := newNode(t, "eve", messaging, bus)
	router := newNode(t, "router", messaging, bus)

	assetID := common.HexToAddress("0xa55e7")
	channelAddress := setupChannel(t, eve, router, 1)
	deposit(t, eve, channelAddress, assetID, big.NewInt(1000))

	definition := common.HexToAddress("0xhashlock")
	resolveFn := func(initialState, resolver []byte, balance chanmodel.Balance) (chanmodel.Balance, error) {
		return chanmodel.Balance{big.NewInt(0), new(big.Int).Set(balance[0])}, nil
	}
	eve.chain.RegisterTransferDefinition(1, "hashlock", definition, resolveFn, nil)
	router.chain.RegisterTransferDefinition(1, "hashlock", definition, resolveFn, nil)

	_, err := eve.engine.Outbound(context.Background(), engine.UpdateParams{Create: &engine.CreateParams{
		ChannelAddress:     channelAddress,
		AssetID:            assetID,
		Amount:             big.NewInt(50),
		Initiator:          eve.signer.Address(),
		Responder:          router.signer.Address(),
		TransferDefinition: definition,
		InitialState:       []byte("init"),
		EncodedState:       []byte("init"),
		TransferTimeout:    3600,
		Meta: chanmodel.PutRoutingMeta(nil, chanmodel.RoutingMeta{
			RoutingID: "route-3",
		}),
	}})
	require.NoError(t, err)

	senderActive, err := router.store.GetActiveTransfers(context.Background(), channelAddress)
	require.NoError(t, err)
	require.Len(t, senderActive, 1)
	senderTransferID := senderActive[0].TransferID

	f := forward.New(router.engine, router.store, messaging, router.chain, nil, forward.Config{
		RouterSignerAddress: router.signer.Address(),
	})

	recipientTransfer := &chanmodel.Transfer{
		TransferID:       common.HexToHash("0x02"),
		TransferResolver: []byte("secret"),
		Meta: chanmodel.PutRoutingMeta(nil, chanmodel.RoutingMeta{
			RoutingID: "route-3",
		}),
	}

	err = f.HandleConditionalTransferResolved(context.Background(), event.ConditionalTransferResolvedPayload{
		Transfer: recipientTransfer,
	})
	require.NoError(t, err)

	remaining, err := router.store.GetActiveTransfers(context.Background(), channelAddress)
	require.NoError(t, err)
	require.Empty(t, remaining)

	resolved, err := router.store.GetTransferState(context.Background(), senderTransferID)
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), resolved.TransferResolver)
}

func TestHandleCheckInDrainsQueuedCreate(t *testing.T) {
	messaging := mock.NewMessaging()
	bus := event.New(16)
	router := newNode(t, "router", messaging, bus)
	carol := newNode(t, "carol", messaging, bus)

	assetID := common.HexToAddress("0xa55e7")
	channelAddress := setupChannel(t, router, carol, 1)
	deposit(t, router, channelAddress, assetID, big.NewInt(1000))

	f := forward.New(router.engine, router.store, messaging, router.chain, nil, forward.Config{
		RouterSignerAddress: router.signer.Address(),
	})

	require.NoError(t, router.store.QueueUpdate(context.Background(), &chanmodel.QueuedRouterUpdate{
		ID:             "q1",
		ChannelAddress: channelAddress,
		Type:           chanmodel.QueuedTransferCreation,
		Payload: &engine.CreateParams{
			ChannelAddress:     channelAddress,
			AssetID:            assetID,
			Amount:             big.NewInt(75),
			Initiator:          router.signer.Address(),
			Responder:          carol.signer.Address(),
			TransferDefinition: common.HexToAddress("0xdef"),
			InitialState:       []byte("init"),
			EncodedState:       []byte("init"),
			TransferTimeout:    3600,
		},
		Status: chanmodel.StatusPending,
	}))

	err := f.HandleCheckIn(context.Background(), channelAddress)
	require.NoError(t, err)

	active, err := carol.store.GetActiveTransfers(context.Background(), channelAddress)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, big.NewInt(75), active[0].Balance[0])

	pending, err := router.store.GetQueuedUpdates(context.Background(), channelAddress, chanmodel.StatusPending)
	require.NoError(t, err)
	require.Empty(t, pending)
}
