// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package chanmodel

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// merkleProofArgs is the ABI shape an on-chain adjudicator expects when a
// disputed transfer is resolved against the channel's committed merkle
// root: the sibling hashes from leaf to root, and the leaf's index.
var merkleProofArgs abi.Arguments

func init() {
	bytes32Arr, err := abi.NewType("bytes32[]", "", nil)
	if err != nil {
		panic(err)
	}
	uint256Ty, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	merkleProofArgs = abi.Arguments{{Type: bytes32Arr}, {Type: uint256Ty}}
}

// EncodeMerkleProofData ABI-encodes m the way an adjudicator contract
// would decode it, for the dispute-path of §4.1's merkle commitment.
func EncodeMerkleProofData(m MerkleProofData) ([]byte, error) {
	siblings := make([][32]byte, len(m.Proof))
	for i, s := range m.Proof {
		copy(siblings[i][:], s)
	}
	return merkleProofArgs.Pack(siblings, new(big.Int).SetUint64(m.Index))
}

// DecodeMerkleProofData reverses EncodeMerkleProofData, for tests and any
// caller re-parsing an adjudicator calldata blob.
func DecodeMerkleProofData(data []byte) (MerkleProofData, error) {
	values, err := merkleProofArgs.Unpack(data)
	if err != nil {
		return MerkleProofData{}, err
	}
	siblings := values[0].([][32]byte)
	index := values[1].(*big.Int)

	proof := make([][]byte, len(siblings))
	for i, s := range siblings {
		b := make([]byte, 32)
		copy(b, s[:])
		proof[i] = b
	}
	return MerkleProofData{Proof: proof, Index: index.Uint64()}, nil
}
