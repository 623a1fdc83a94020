// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package rpcserver

import (
	"context"

	"gopkg.in/macaroon-bakery.v2/bakery"
	"gopkg.in/macaroon-bakery.v2/bakery/checkers"
	"gopkg.in/macaroon.v2"
)

// requiredOps maps each mutating chan_ method to the capability the
// caller's macaroon must carry, mirroring the teacher's
// RequiredPermissions map of bakery.Op slices keyed by RPC method name.
var requiredOps = map[string][]bakery.Op{
	"chan_setup":           {{Entity: "channel", Action: "write"}},
	"chan_deposit":         {{Entity: "channel", Action: "write"}},
	"chan_createTransfer":  {{Entity: "transfer", Action: "write"}},
	"chan_resolveTransfer": {{Entity: "transfer", Action: "write"}},
	"chan_withdraw":        {{Entity: "channel", Action: "write"}},
	"chan_restoreState":    {{Entity: "channel", Action: "write"}},
}

// Authenticator guards mutating chan_ RPC methods with a macaroon
// capability check (§4.4 "mutating methods funnel through §4.1"),
// grounded on the teacher's macaroons.Service wrapping a bakery.Bakery.
type Authenticator struct {
	bakery *bakery.Bakery
}

// NewAuthenticator constructs an Authenticator with a fresh in-memory
// root key store, suitable for a single-process daemon where macaroons
// never need to be verified by another service.
func NewAuthenticator() *Authenticator {
	b := bakery.New(bakery.BakeryParams{
		Location:     "vectord",
		Key:          bakery.MustGenerateKey(),
		RootKeyStore: bakery.NewMemRootKeyStore(),
		Checker:      bakery.NewChecker(bakery.CheckerParams{Checker: checkers.New(nil)}),
	})
	return &Authenticator{bakery: b}
}

// Mint issues a macaroon authorizing ops. Neither cmd/vectord nor
// cmd/vectorcli calls it; the tests use it to obtain a valid macaroon.
func (a *Authenticator) Mint(ctx context.Context, ops ...bakery.Op) (*bakery.Macaroon, error) {
	return a.bakery.Oven.NewMacaroon(ctx, bakery.LatestVersion, nil, ops...)
}

// Authorize checks that ms authorizes method, a no-op for methods with no
// entry in requiredOps (read-only methods bypass capability checks per
// §4.4 step 2, "read-only methods bypass the lock").
func (a *Authenticator) Authorize(ctx context.Context, method string, ms macaroon.Slice) error {
	ops, ok := requiredOps[method]
	if !ok {
		return nil
	}
	_, err := a.bakery.Checker.Auth(ms).Allow(ctx, ops...)
	return err
}
