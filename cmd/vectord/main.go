// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package main

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"net/http"
	"os"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vectorlabs/vectord/chanmodel"
	"github.com/vectorlabs/vectord/config"
	"github.com/vectorlabs/vectord/engine"
	"github.com/vectorlabs/vectord/event"
	"github.com/vectorlabs/vectord/forward"
	"github.com/vectorlabs/vectord/internal/memstore"
	"github.com/vectorlabs/vectord/internal/mock"
	"github.com/vectorlabs/vectord/internal/shutdown"
	vlog "github.com/vectorlabs/vectord/log"
	"github.com/vectorlabs/vectord/rpcserver"
	"github.com/vectorlabs/vectord/transfer"
)

var log = vlog.Logger(vlog.SubsystemMain)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	vlog.SetLogLevels(cfg.DebugLevel)

	log.Infof("starting vectord, rpclisten=%s datadir=%s", cfg.RPCListen, cfg.DataDir)

	bus := event.New(256)

	// The reference collaborators (internal/mock, internal/memstore) make
	// the daemon runnable standalone for demos and integration tests;
	// swapping in a real ChainReader/Messaging/Store is a matter of
	// implementing the iface package's interfaces and wiring them here
	// instead, same as dcrlnd's walletloader swap for a remote wallet.
	key, err := deriveKey(cfg.Mnemonic)
	if err != nil {
		return err
	}
	identifier := chanmodel.Identifier(crypto.PubkeyToAddress(key.PublicKey).Hex())
	signer := mock.NewSigner(key, identifier)
	store := memstore.New()
	lock := mock.NewLockService()
	chain := mock.NewChainReader()
	messaging := mock.NewMessaging()

	eng := engine.New(signer, store, lock, chain, messaging, bus)
	messaging.OnReceiveProtocolMessage(identifier, eng.HandleInbound)
	messaging.OnReceiveRestoreRequest(identifier, eng.HandleRestoreRequest)
	builder := transfer.New(signer, store, chain)

	profiles, err := cfg.RebalanceProfiles()
	if err != nil {
		return err
	}
	fwdCfg := forward.Config{
		RouterSignerAddress: signer.Address(),
		RebalanceProfiles:   profiles,
		AllowedSwaps:        cfg.SwapPairs(),
		MaxCollateral:       map[chanmodel.AssetID]*big.Int{},
		SkipCheckIn:         cfg.SkipCheckIn,
	}
	fwd := forward.New(eng, store, messaging, chain, forward.PricingTable{}, fwdCfg)
	go fwd.Run(shutdown.Context(), bus)

	auth := rpcserver.NewAuthenticator()
	srv := rpcserver.New(eng, builder, fwd, auth)

	httpSrv := &http.Server{Addr: cfg.RPCListen, Handler: srv}
	go func() {
		log.Infof("RPC surface listening on %s", cfg.RPCListen)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("RPC server exited: %v", err)
			shutdown.RequestShutdown()
		}
	}()

	<-shutdown.Context().Done()
	return httpSrv.Close()
}

// deriveKey derives a deterministic ECDSA signing key from the
// configured mnemonic, standing in for a real BIP-39/44 derivation until
// this node is wired to a wallet backend.
func deriveKey(mnemonic string) (*ecdsa.PrivateKey, error) {
	if mnemonic == "" {
		return crypto.GenerateKey()
	}
	return crypto.ToECDSA(crypto.Keccak256([]byte(mnemonic)))
}
