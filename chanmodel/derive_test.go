// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package chanmodel

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestDeriveChannelAddressOrderIndependent(t *testing.T) {
	alice := common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob := common.HexToAddress("0x2222222222222222222222222222222222222222")
	factory := common.HexToAddress("0x3333333333333333333333333333333333333333")

	a1 := DeriveChannelAddress(alice, bob, factory, 1)
	a2 := DeriveChannelAddress(bob, alice, factory, 1)
	require.Equal(t, a1, a2, "channel address must not depend on participant call order")

	a3 := DeriveChannelAddress(alice, bob, factory, 2)
	require.NotEqual(t, a1, a3, "channel address must depend on chainId")
}

func TestDeriveTransferIDDeterministic(t *testing.T) {
	channelAddress := common.HexToAddress("0x4444444444444444444444444444444444444444")
	definition := common.HexToAddress("0x5555555555555555555555555555555555555555")
	state := []byte("initial-state")

	id1 := DeriveTransferID(channelAddress, 3, definition, state)
	id2 := DeriveTransferID(channelAddress, 3, definition, state)
	require.Equal(t, id1, id2)

	id3 := DeriveTransferID(channelAddress, 4, definition, state)
	require.NotEqual(t, id1, id3, "transfer id must depend on nonce-at-creation")
}
