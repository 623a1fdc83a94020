// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package chanmodel

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func baseUpdate() *Update {
	return &Update{
		ChannelAddress: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		FromIdentifier: "alice",
		ToIdentifier:   "bob",
		Type:           UpdateDeposit,
		Nonce:          2,
		Balance:        Balance{big.NewInt(100), big.NewInt(0)},
		AssetID:        common.Address{},
	}
}

func TestHashUpdateDeterministic(t *testing.T) {
	u1 := baseUpdate()
	u2 := baseUpdate()
	require.Equal(t, HashUpdate(u1), HashUpdate(u2))
}

func TestHashUpdateChangesWithNonce(t *testing.T) {
	u1 := baseUpdate()
	u2 := baseUpdate()
	u2.Nonce = 3
	require.NotEqual(t, HashUpdate(u1), HashUpdate(u2))
}

func TestHashUpdateIgnoresMeta(t *testing.T) {
	u1 := baseUpdate()
	u1.Type = UpdateCreate
	u1.Create = &CreateDetails{TransferID: common.HexToHash("0xaa")}

	u2 := baseUpdate()
	u2.Type = UpdateCreate
	u2.Create = &CreateDetails{
		TransferID: common.HexToHash("0xaa"),
		Meta:       map[string]interface{}{"routing": "present-on-one-side-only"},
	}

	require.Equal(t, HashUpdate(u1), HashUpdate(u2), "meta must not affect the signed digest")
}

func TestHashUpdateNilBigIntSafe(t *testing.T) {
	u := baseUpdate()
	u.Balance = Balance{nil, nil}
	require.NotPanics(t, func() { HashUpdate(u) })
}
