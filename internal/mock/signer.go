// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

// Package mock provides in-process fakes of the §6 external collaborator
// interfaces (Signer, Messaging, ChainReader, LockService), grounded on
// the teacher's mockSigner/mockNotifier style: deterministic, in-memory,
// no network or disk I/O, suitable for tests and the standalone daemon.
package mock

import (
	"context"
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vectorlabs/vectord/chanmodel"
)

// Signer is a deterministic, in-memory iface.Signer backed by a single
// ECDSA keypair and a routing identifier. Its EncryptFor/Decrypt XOR the
// data with a keccak256 pad derived from the recipient's identifier: a
// reversible obfuscation suitable only for exercising the Transfer
// Builder's call sites, never for production secrecy (there is no
// secp256k1 ECIES here).
type Signer struct {
	key        *ecdsa.PrivateKey
	identifier chanmodel.Identifier
}

// NewSigner constructs a Signer from a raw private key and the routing
// identifier this node presents itself as.
func NewSigner(key *ecdsa.PrivateKey, identifier chanmodel.Identifier) *Signer {
	return &Signer{key: key, identifier: identifier}
}

func (s *Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

func (s *Signer) Identifier() chanmodel.Identifier {
	return s.identifier
}

func (s *Signer) SignUpdate(ctx context.Context, update *chanmodel.Update) (chanmodel.Signature, error) {
	digest := chanmodel.HashUpdate(update)
	sig, err := crypto.Sign(digest.Bytes(), s.key)
	if err != nil {
		return nil, err
	}
	return chanmodel.Signature(sig), nil
}

func (s *Signer) RecoverUpdateSigner(ctx context.Context, update *chanmodel.Update, sig chanmodel.Signature) (common.Address, error) {
	digest := chanmodel.HashUpdate(update)
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Decrypt reverses EncryptFor's obfuscation: both sides derive the same
// pad from the recipient's public identifier, so the recipient (and only
// the recipient, in this mock) can invert it with their own identity.
// Real deployments would replace this pair with the signer's actual
// key-exchange scheme; the external Signer interface is what the rest of
// the engine depends on, not this implementation.
func (s *Signer) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	return xorWithPad(ciphertext, s.identifier), nil
}

func (s *Signer) EncryptFor(ctx context.Context, recipient chanmodel.Identifier, plaintext []byte) ([]byte, error) {
	return xorWithPad(plaintext, recipient), nil
}

func xorWithPad(data []byte, identifier chanmodel.Identifier) []byte {
	pad := crypto.Keccak256([]byte(identifier))
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ pad[i%len(pad)]
	}
	return out
}
