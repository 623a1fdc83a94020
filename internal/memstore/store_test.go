// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package memstore

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/vectorlabs/vectord/chanmodel"
	"github.com/vectorlabs/vectord/iface"
)

func TestSaveAndGetChannelState(t *testing.T) {
	s := New()
	ctx := context.Background()

	channelAddress := common.HexToAddress("0xaa")
	ch := &chanmodel.Channel{
		ChannelAddress:  channelAddress,
		AliceIdentifier: "alice",
		BobIdentifier:   "bob",
		Alice:           common.HexToAddress("0x01"),
		Bob:             common.HexToAddress("0x02"),
		ChainID:         1,
		Nonce:           1,
	}

	require.NoError(t, s.SaveChannelStateAndTransfers(ctx, ch, nil, nil))

	got, err := s.GetChannelState(ctx, channelAddress)
	require.NoError(t, err)
	require.Equal(t, ch, got)

	byParticipants, err := s.GetChannelStateByParticipants(ctx, ch.Alice, ch.Bob, 1)
	require.NoError(t, err)
	require.Equal(t, ch, byParticipants)

	byIdentifier, err := s.GetChannelStateByIdentifier(ctx, "bob", 1)
	require.NoError(t, err)
	require.Equal(t, ch, byIdentifier)

	missing, err := s.GetChannelStateByIdentifier(ctx, "carol", 1)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestActiveTransfersExcludeResolved(t *testing.T) {
	s := New()
	ctx := context.Background()
	channelAddress := common.HexToAddress("0xaa")

	pending := &chanmodel.Transfer{TransferID: common.HexToHash("0x01"), ChannelAddress: channelAddress}
	resolved := &chanmodel.Transfer{TransferID: common.HexToHash("0x02"), ChannelAddress: channelAddress, TransferResolver: []byte("r")}

	require.NoError(t, s.SaveChannelStateAndTransfers(ctx, &chanmodel.Channel{ChannelAddress: channelAddress}, []*chanmodel.Transfer{pending, resolved}, nil))

	active, err := s.GetActiveTransfers(ctx, channelAddress)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, pending.TransferID, active[0].TransferID)
}

func TestSaveChannelStateAndTransfersRemovesResolvedFromActiveSet(t *testing.T) {
	s := New()
	ctx := context.Background()
	channelAddress := common.HexToAddress("0xaa")

	t1 := &chanmodel.Transfer{TransferID: common.HexToHash("0x01"), ChannelAddress: channelAddress}
	require.NoError(t, s.SaveChannelStateAndTransfers(ctx, &chanmodel.Channel{ChannelAddress: channelAddress}, []*chanmodel.Transfer{t1}, nil))

	require.NoError(t, s.SaveChannelStateAndTransfers(ctx, &chanmodel.Channel{ChannelAddress: channelAddress}, nil, []common.Hash{t1.TransferID}))

	active, err := s.GetActiveTransfers(ctx, channelAddress)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestTransfersByRoutingID(t *testing.T) {
	s := New()
	ctx := context.Background()
	channelAddress := common.HexToAddress("0xaa")

	meta := chanmodel.PutRoutingMeta(nil, chanmodel.RoutingMeta{RoutingID: "route-1"})
	t1 := &chanmodel.Transfer{TransferID: common.HexToHash("0x01"), ChannelAddress: channelAddress, Meta: meta}

	require.NoError(t, s.SaveChannelStateAndTransfers(ctx, &chanmodel.Channel{ChannelAddress: channelAddress}, []*chanmodel.Transfer{t1}, nil))

	got, err := s.GetTransfersByRoutingID(ctx, "route-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, t1.TransferID, got[0].TransferID)
}

func TestQueueUpdateLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	channelAddress := common.HexToAddress("0xaa")

	q := &chanmodel.QueuedRouterUpdate{ID: "q1", ChannelAddress: channelAddress, Status: chanmodel.StatusPending}
	require.NoError(t, s.QueueUpdate(ctx, q))

	pending, err := s.GetQueuedUpdates(ctx, channelAddress, chanmodel.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, s.SetUpdateStatus(ctx, "q1", chanmodel.StatusComplete, ""))

	pending, err = s.GetQueuedUpdates(ctx, channelAddress, chanmodel.StatusPending)
	require.NoError(t, err)
	require.Empty(t, pending)

	complete, err := s.GetQueuedUpdates(ctx, channelAddress, chanmodel.StatusComplete)
	require.NoError(t, err)
	require.Len(t, complete, 1)
}

func TestSaveChannelDisputeMarksChannel(t *testing.T) {
	s := New()
	ctx := context.Background()
	channelAddress := common.HexToAddress("0xaa")

	require.NoError(t, s.SaveChannelStateAndTransfers(ctx, &chanmodel.Channel{ChannelAddress: channelAddress}, nil, nil))
	require.NoError(t, s.SaveChannelDispute(ctx, channelAddress, &iface.DisputeRecord{ChannelAddress: channelAddress}))

	ch, err := s.GetChannelState(ctx, channelAddress)
	require.NoError(t, err)
	require.True(t, ch.InDispute)
}
