// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

// Package engine implements §4.1, the Update Protocol State Machine: the
// outbound (leader) and inbound (non-leader) halves of the two-party sync
// protocol, restore, and the validation hooks both halves run.
package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vectorlabs/vectord/chanmodel"
)

// UpdateParams is the tagged variant over the four update kinds a caller
// may request the leader to generate (§4.1 Outbound Protocol, "Inputs").
// Exactly one of the embedded params is non-nil.
type UpdateParams struct {
	Setup    *SetupParams
	Deposit  *DepositParams
	Create   *CreateParams
	Resolve  *ResolveParams
}

// Type returns the UpdateType implied by which params field is set.
func (p UpdateParams) Type() chanmodel.UpdateType {
	switch {
	case p.Setup != nil:
		return chanmodel.UpdateSetup
	case p.Deposit != nil:
		return chanmodel.UpdateDeposit
	case p.Create != nil:
		return chanmodel.UpdateCreate
	default:
		return chanmodel.UpdateResolve
	}
}

// SetupParams are the inputs to generate a setup update.
type SetupParams struct {
	ChannelAddress  common.Address
	Alice, Bob      common.Address
	AliceIdentifier, BobIdentifier chanmodel.Identifier
	ChainID         uint64
	NetworkContext  chanmodel.NetworkContext
	Timeout         uint64
}

// DepositParams are the inputs to generate a deposit update.
type DepositParams struct {
	ChannelAddress common.Address
	AssetID        chanmodel.AssetID
}

// CreateParams are the inputs to generate a create update, normally
// produced by the Transfer Builder (§4.3) rather than constructed by
// hand.
type CreateParams struct {
	ChannelAddress      common.Address
	AssetID             chanmodel.AssetID
	Amount              *big.Int
	Initiator, Responder common.Address
	TransferDefinition  common.Address
	InitialState        []byte
	EncodedState        []byte
	TransferTimeout     uint64
	Meta                map[string]interface{}
}

// ResolveParams are the inputs to generate a resolve update.
type ResolveParams struct {
	ChannelAddress common.Address
	TransferID     common.Hash
	Resolver       []byte
	Meta           map[string]interface{}
}
