// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package merkle

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestRootEmptyIsEmptyRoot(t *testing.T) {
	require.Equal(t, EmptyRoot, Root(nil))
}

func TestRootOrderIndependent(t *testing.T) {
	l1 := Leaf{TransferID: common.HexToHash("0x01"), EncodedState: []byte("a")}
	l2 := Leaf{TransferID: common.HexToHash("0x02"), EncodedState: []byte("b")}

	r1 := Root([]Leaf{l1, l2})
	r2 := Root([]Leaf{l2, l1})
	require.Equal(t, r1, r2, "root must not depend on leaf slice order")
}

func TestRootChangesWithMembership(t *testing.T) {
	l1 := Leaf{TransferID: common.HexToHash("0x01"), EncodedState: []byte("a")}
	l2 := Leaf{TransferID: common.HexToHash("0x02"), EncodedState: []byte("b")}

	r1 := Root([]Leaf{l1})
	r2 := Root([]Leaf{l1, l2})
	require.NotEqual(t, r1, r2)
}

func TestProofFoundAndVerifiable(t *testing.T) {
	leaves := []Leaf{
		{TransferID: common.HexToHash("0x01"), EncodedState: []byte("a")},
		{TransferID: common.HexToHash("0x02"), EncodedState: []byte("b")},
		{TransferID: common.HexToHash("0x03"), EncodedState: []byte("c")},
	}

	_, _, found := Proof(leaves, common.HexToHash("0x02"))
	require.True(t, found)

	_, _, found = Proof(leaves, common.HexToHash("0xdeadbeef"))
	require.False(t, found)
}
