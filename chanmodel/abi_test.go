// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package chanmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeMerkleProofDataRoundTrip(t *testing.T) {
	m := MerkleProofData{
		Proof: [][]byte{
			append(make([]byte, 0, 32), bytesOf(1)...),
			append(make([]byte, 0, 32), bytesOf(2)...),
		},
		Index: 5,
	}

	encoded, err := EncodeMerkleProofData(m)
	require.NoError(t, err)

	decoded, err := DecodeMerkleProofData(encoded)
	require.NoError(t, err)
	require.Equal(t, m.Index, decoded.Index)
	require.Len(t, decoded.Proof, len(m.Proof))
	for i := range m.Proof {
		require.Equal(t, padTo32(m.Proof[i]), decoded.Proof[i])
	}
}

func bytesOf(b byte) []byte {
	out := make([]byte, 32)
	out[31] = b
	return out
}

func padTo32(b []byte) []byte {
	out := make([]byte, 32)
	copy(out, b)
	return out
}
