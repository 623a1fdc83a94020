// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package rpcserver

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"gopkg.in/macaroon-bakery.v2/bakery"
	"gopkg.in/macaroon.v2"

	"github.com/vectorlabs/vectord/engine"
	"github.com/vectorlabs/vectord/event"
	"github.com/vectorlabs/vectord/internal/memstore"
	"github.com/vectorlabs/vectord/internal/mock"
	"github.com/vectorlabs/vectord/transfer"
)

func newTestServer(t *testing.T, auth *Authenticator) *Server {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := mock.NewSigner(key, "alice")
	store := memstore.New()
	chain := mock.NewChainReader()
	messaging := mock.NewMessaging()
	bus := event.New(16)
	lock := mock.NewLockService()

	eng := engine.New(signer, store, lock, chain, messaging, bus)
	builder := transfer.New(signer, store, chain)
	return New(eng, builder, nil, auth)
}

func TestDispatchUnknownMethodFails(t *testing.T) {
	s := newTestServer(t, nil)
	env := s.Dispatch(context.Background(), "chan_bogus", []byte(`{}`), nil)
	require.Equal(t, "fail", env.Status)
	require.NotNil(t, env.Error)
}

func TestDispatchRejectsParamsMissingRequiredField(t *testing.T) {
	s := newTestServer(t, nil)
	// chan_setup requires channelAddress/alice/bob/aliceIdentifier/bobIdentifier/chainId.
	env := s.Dispatch(context.Background(), "chan_setup", []byte(`{"alice":"0xa1"}`), nil)
	require.Equal(t, "fail", env.Status)
	require.Contains(t, env.Error.Context["method"], "chan_setup")
}

func TestDispatchGetChannelNotFoundReturnsFailEnvelope(t *testing.T) {
	s := newTestServer(t, nil)
	env := s.Dispatch(context.Background(), "chan_getChannel", []byte(`{"channelAddress":"0xdeadbeef"}`), nil)
	require.Equal(t, "fail", env.Status)
	require.NotNil(t, env.Error)
}

func TestDispatchMutatingMethodWithoutMacaroonIsRejected(t *testing.T) {
	auth := NewAuthenticator()
	s := newTestServer(t, auth)
	env := s.Dispatch(context.Background(), "chan_deposit", []byte(`{"channelAddress":"0xc1","assetId":"0xa1"}`), nil)
	require.Equal(t, "fail", env.Status)
}

func TestDispatchMutatingMethodWithValidMacaroonProceedsToHandler(t *testing.T) {
	auth := NewAuthenticator()
	s := newTestServer(t, auth)

	mac, err := auth.Mint(context.Background(), bakery.Op{Entity: "channel", Action: "write"})
	require.NoError(t, err)
	ms := macaroon.Slice{mac.M()}

	// Deposit against a channel that doesn't exist yet; it should get past
	// the authorization gate and fail inside the handler instead, proving
	// the macaroon check itself passed.
	env := s.Dispatch(context.Background(), "chan_deposit", []byte(`{"channelAddress":"0xc1","assetId":"0xa1"}`), ms)
	require.Equal(t, "fail", env.Status)
	require.NotContains(t, env.Error.Message, "verification failed")
}

func TestDispatchSetupWithoutReachablePeerFails(t *testing.T) {
	s := newTestServer(t, nil)
	channelAddress := common.HexToAddress("0xc1")
	payload := []byte(`{
		"channelAddress": "` + channelAddress.Hex() + `",
		"alice": "0xaaaa000000000000000000000000000000000a",
		"bob": "0xbbbb000000000000000000000000000000000b",
		"aliceIdentifier": "alice",
		"bobIdentifier": "bob",
		"chainId": 1
	}`)
	// bob's inbox must be wired for the leader's outbound send to succeed;
	// registering nothing means bob is simply never reached by this node,
	// since setup for a brand-new channel on a fresh Messaging has no peer
	// listening. A real two-node handshake is exercised in the engine
	// package's own tests; here we only assert schema/auth pass-through.
	env := s.Dispatch(context.Background(), "chan_setup", payload, nil)
	require.Equal(t, "fail", env.Status)
	require.NotNil(t, env.Error)
}
