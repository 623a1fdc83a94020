// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package mock

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/vectorlabs/vectord/chanmodel"
)

func TestSignUpdateRecoverRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := NewSigner(key, "alice")

	update := &chanmodel.Update{
		ChannelAddress: crypto.PubkeyToAddress(key.PublicKey),
		FromIdentifier: "alice",
		ToIdentifier:   "bob",
		Type:           chanmodel.UpdateSetup,
		Nonce:          1,
		Balance:        chanmodel.Balance{big.NewInt(0), big.NewInt(0)},
	}

	sig, err := signer.SignUpdate(context.Background(), update)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	recovered, err := signer.RecoverUpdateSigner(context.Background(), update, sig)
	require.NoError(t, err)
	require.Equal(t, signer.Address(), recovered)
}

func TestRecoverUpdateSignerRejectsTamperedUpdate(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := NewSigner(key, "alice")

	update := &chanmodel.Update{
		Type:    chanmodel.UpdateDeposit,
		Nonce:   2,
		Balance: chanmodel.Balance{big.NewInt(10), big.NewInt(0)},
	}
	sig, err := signer.SignUpdate(context.Background(), update)
	require.NoError(t, err)

	tampered := *update
	tampered.Nonce = 3
	recovered, err := signer.RecoverUpdateSigner(context.Background(), &tampered, sig)
	require.NoError(t, err)
	require.NotEqual(t, signer.Address(), recovered)
}

func TestEncryptForDecryptRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	alice := NewSigner(key, "alice")

	recipientKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	bob := NewSigner(recipientKey, "bob")

	plaintext := []byte("super-secret-preimage")
	ciphertext, err := alice.EncryptFor(context.Background(), bob.Identifier(), plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ciphertext)

	decrypted, err := bob.Decrypt(context.Background(), ciphertext)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}
