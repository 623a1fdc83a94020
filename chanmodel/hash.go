// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package chanmodel

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// HashUpdate computes the deterministic digest an update's two signatures
// are taken over (§3 Update, §6 Signer "EIP-191/712-style signing"). Only
// the fields that must be identical on both peers are folded in; Meta is
// excluded since it is routing-layer bookkeeping rather than protocol
// content both sides are asked to attest to.
func HashUpdate(u *Update) common.Hash {
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], u.Nonce)

	parts := [][]byte{
		u.ChannelAddress.Bytes(),
		[]byte(u.FromIdentifier),
		[]byte(u.ToIdentifier),
		{byte(u.Type)},
		nonceBytes[:],
		bigBytes(u.Balance[0]),
		bigBytes(u.Balance[1]),
		u.AssetID.Bytes(),
	}

	switch u.Type {
	case UpdateSetup:
		if u.Setup != nil {
			parts = append(parts,
				u.Setup.AliceAddress.Bytes(),
				u.Setup.BobAddress.Bytes(),
				uint64Bytes(u.Setup.Timeout),
				uint64Bytes(u.Setup.NetworkContext.ChainID),
			)
		}
	case UpdateDeposit:
		if u.Deposit != nil {
			parts = append(parts, bigBytes(u.Deposit.TotalDepositsAlice), bigBytes(u.Deposit.TotalDepositsBob))
		}
	case UpdateCreate:
		if u.Create != nil {
			parts = append(parts,
				u.Create.TransferID.Bytes(),
				u.Create.TransferDefinition.Bytes(),
				u.Create.EncodedState,
				uint64Bytes(u.Create.TransferTimeout),
			)
		}
	case UpdateResolve:
		if u.Resolve != nil {
			parts = append(parts, u.Resolve.TransferID.Bytes(), u.Resolve.Resolver, u.Resolve.MerkleRoot.Bytes())
		}
	}

	return crypto.Keccak256Hash(parts...)
}

func uint64Bytes(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func bigBytes(v *big.Int) []byte {
	if v == nil {
		return nil
	}
	return v.Bytes()
}
