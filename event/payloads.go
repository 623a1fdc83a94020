// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package event

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/vectorlabs/vectord/chanmodel"
)

// ChannelUpdatePayload backs ChannelUpdateEvent.
type ChannelUpdatePayload struct {
	Channel     *chanmodel.Channel
	Update      *chanmodel.Update
	IsLeader    bool
}

// ConditionalTransferCreatedPayload backs ConditionalTransferCreated,
// consumed by the Forwarding Engine (§4.2 "Inputs").
type ConditionalTransferCreatedPayload struct {
	Channel  *chanmodel.Channel
	Transfer *chanmodel.Transfer
}

// ConditionalTransferResolvedPayload backs ConditionalTransferResolved,
// consumed by the Forwarding Engine's Resolution Path (§4.2).
type ConditionalTransferResolvedPayload struct {
	Channel  *chanmodel.Channel
	Transfer *chanmodel.Transfer
}

// IsAlivePayload backs IsAliveEvent, consumed by the Check-In Handler
// (§4.2).
type IsAlivePayload struct {
	ChannelAddress common.Address
	Identifier     chanmodel.Identifier
}

// RestoreStatePayload backs RestoreStateEvent (§4.1 Restore-State
// Procedure).
type RestoreStatePayload struct {
	Channel *chanmodel.Channel
}

// WithdrawalReconciledPayload backs WithdrawalReconciledEvent, emitted
// when a withdrawal-shaped transfer (§4.3) resolves on-chain.
type WithdrawalReconciledPayload struct {
	Channel  *chanmodel.Channel
	Transfer *chanmodel.Transfer
}
