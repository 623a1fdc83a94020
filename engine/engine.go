// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package engine

import (
	"time"

	"github.com/vectorlabs/vectord/chanmodel"
	"github.com/vectorlabs/vectord/event"
	"github.com/vectorlabs/vectord/iface"
	vlog "github.com/vectorlabs/vectord/log"
)

var log = vlog.Logger(vlog.SubsystemEngine)

// DepositRetryLimit bounds the leader's retry loop for a BadSignatures
// deposit race (§4.1 "Deposit Race": "retries the deposit update up to
// three times").
const DepositRetryLimit = 3

// DefaultMessageTimeout is the per-message timeout for ordinary protocol
// exchanges (§5 "smaller per-message timeouts elsewhere").
const DefaultMessageTimeout = 30 * time.Second

// DefaultWithdrawTimeout is §5's "default 90s for withdraw confirmation".
const DefaultWithdrawTimeout = 90 * time.Second

// HookContext is what the external validateOutbound/validateInbound hooks
// of §4.1 receive: the channel state the update is being applied against
// and the candidate update itself.
type HookContext struct {
	Channel *chanmodel.Channel
	Update  *chanmodel.Update
}

// ValidationHook is the external validateOutbound/validateInbound contract
// of §4.1. Returning a non-nil error aborts the update.
type ValidationHook func(ctx HookContext) error

// Engine drives the Update Protocol State Machine for every channel this
// node participates in. One Engine instance is shared across all
// channels; per-channel serialization is provided by the LockService for
// leader operations and by the caller serializing inbound delivery per
// channel (§5 "single-threaded per channel").
type Engine struct {
	Self      iface.Signer
	Store     iface.Store
	Lock      iface.LockService
	Chain     iface.ChainReader
	Messaging iface.Messaging
	Bus       *event.Bus

	// ValidateOutbound/ValidateInbound are the external hooks of §4.1;
	// nil means "always pass", which is a valid configuration.
	ValidateOutbound ValidationHook
	ValidateInbound  ValidationHook

	MessageTimeout  time.Duration
	WithdrawTimeout time.Duration
}

// New constructs an Engine with the given collaborators and default
// timeouts.
func New(self iface.Signer, store iface.Store, lock iface.LockService, chain iface.ChainReader, messaging iface.Messaging, bus *event.Bus) *Engine {
	return &Engine{
		Self:            self,
		Store:           store,
		Lock:            lock,
		Chain:           chain,
		Messaging:       messaging,
		Bus:             bus,
		MessageTimeout:  DefaultMessageTimeout,
		WithdrawTimeout: DefaultWithdrawTimeout,
	}
}

func (e *Engine) runValidateOutbound(ctx HookContext) error {
	if e.ValidateOutbound == nil {
		return nil
	}
	return e.ValidateOutbound(ctx)
}

func (e *Engine) runValidateInbound(ctx HookContext) error {
	if e.ValidateInbound == nil {
		return nil
	}
	return e.ValidateInbound(ctx)
}
