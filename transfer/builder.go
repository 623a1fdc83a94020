// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

// Package transfer implements §4.3, the Transfer Builder: it converts
// user-facing conditional-transfer parameters into the protocol-level
// engine.CreateParams/ResolveParams the Update Engine signs and sends.
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/vectorlabs/vectord/chanmodel"
	"github.com/vectorlabs/vectord/engine"
	"github.com/vectorlabs/vectord/iface"
	"github.com/vectorlabs/vectord/vectorerr"
)

// WithdrawDefinitionName is the well-known transfer-definition registry
// name withdrawals register under (§4.3 "withdrawals are modeled as a
// transfer whose resolver triggers an on-chain payout").
const WithdrawDefinitionName = "withdraw"

// Builder converts user-facing requests into protocol params, consulting
// the chain registry for transfer-definition addresses and the signer for
// encryption and identity.
type Builder struct {
	Self  iface.Signer
	Store iface.Store
	Chain iface.ChainReader
}

// New constructs a Builder.
func New(self iface.Signer, store iface.Store, chain iface.ChainReader) *Builder {
	return &Builder{Self: self, Store: store, Chain: chain}
}

// CreateTransferRequest is the user-facing shape §4.3 converts from.
type CreateTransferRequest struct {
	Type             string
	Details          map[string]interface{}
	Amount           *big.Int
	AssetID          chanmodel.AssetID
	Recipient        chanmodel.Identifier
	RecipientChainID *uint64
	RecipientAssetID *chanmodel.AssetID
	Timeout          *uint64
	Meta             map[string]interface{}
	RoutingID        string // optional; generated if empty
	RequireOnline    bool
}

// ConvertCreateParams implements §4.3's primary conversion: look up the
// transfer definition, generate/attach routing metadata, encrypt any
// preimage/secret fields under the recipient's identifier, and resolve
// initiator/responder from the channel and signer.
func (b *Builder) ConvertCreateParams(ctx context.Context, channelAddress common.Address, req CreateTransferRequest) (*engine.CreateParams, error) {
	ch, err := b.Store.GetChannelState(ctx, channelAddress)
	if err != nil {
		return nil, vectorerr.Wrap(err, nil)
	}
	if ch == nil {
		return nil, vectorerr.New(vectorerr.KindChannelNotFound, nil, map[string]interface{}{
			"channelAddress": channelAddress.Hex(),
		})
	}

	definition, err := b.resolveDefinition(ctx, ch.ChainID, req.Type)
	if err != nil {
		return nil, err
	}

	routingID := req.RoutingID
	if routingID == "" {
		routingID = uuid.NewString()
	}

	details, err := b.encryptSecrets(ctx, req.Recipient, req.Details)
	if err != nil {
		return nil, err
	}

	meta := chanmodel.PutRoutingMeta(copyMeta(req.Meta), chanmodel.RoutingMeta{
		RoutingID:        routingID,
		Path:             []chanmodel.RoutingPathHop{{Recipient: req.Recipient, RecipientAssetID: req.RecipientAssetID, RecipientChainID: req.RecipientChainID}},
		RequireOnline:    req.RequireOnline,
		SenderIdentifier: b.Self.Identifier(),
	})

	initialState, err := json.Marshal(details)
	if err != nil {
		return nil, vectorerr.New(vectorerr.KindValidation, err, nil)
	}

	timeout := engine.DefaultWithdrawTimeout
	if req.Timeout != nil {
		timeout = time.Duration(*req.Timeout) * time.Second
	}

	initiator, responder := b.initiatorResponder(ch)

	return &engine.CreateParams{
		ChannelAddress:     channelAddress,
		AssetID:            req.AssetID,
		Amount:             req.Amount,
		Initiator:          initiator,
		Responder:          responder,
		TransferDefinition: definition,
		InitialState:       initialState,
		EncodedState:       initialState,
		TransferTimeout:    uint64(timeout.Seconds()),
		Meta:               meta,
	}, nil
}

// ResolveTransferRequest is the user-facing shape for resolving a
// conditional transfer.
type ResolveTransferRequest struct {
	TransferID common.Hash
	Resolver   []byte
	Meta       map[string]interface{}
}

// ConvertResolveConditionParams implements §4.3's symmetric resolve
// conversion.
func (b *Builder) ConvertResolveConditionParams(ctx context.Context, channelAddress common.Address, req ResolveTransferRequest) (*engine.ResolveParams, error) {
	return &engine.ResolveParams{
		ChannelAddress: channelAddress,
		TransferID:     req.TransferID,
		Resolver:       req.Resolver,
		Meta:           copyMeta(req.Meta),
	}, nil
}

// WithdrawRequest is the user-facing shape for an on-chain withdrawal,
// modeled per §4.3 as a transfer whose resolver triggers payout.
type WithdrawRequest struct {
	AssetID    chanmodel.AssetID
	Amount     *big.Int
	Recipient  common.Address
	Meta       map[string]interface{}
}

// ConvertWithdrawParams implements §4.3's withdraw conversion: it creates
// a transfer against the well-known withdraw definition whose encoded
// state names the on-chain recipient and amount, so resolving it later
// triggers the payout via the Chain Reader's ResolveTransfer semantics.
func (b *Builder) ConvertWithdrawParams(ctx context.Context, channelAddress common.Address, req WithdrawRequest) (*engine.CreateParams, error) {
	ch, err := b.Store.GetChannelState(ctx, channelAddress)
	if err != nil {
		return nil, vectorerr.Wrap(err, nil)
	}
	if ch == nil {
		return nil, vectorerr.New(vectorerr.KindChannelNotFound, nil, map[string]interface{}{
			"channelAddress": channelAddress.Hex(),
		})
	}

	definition, err := b.resolveDefinition(ctx, ch.ChainID, WithdrawDefinitionName)
	if err != nil {
		return nil, err
	}

	state, err := json.Marshal(struct {
		Recipient common.Address `json:"recipient"`
		Amount    string         `json:"amount"`
	}{Recipient: req.Recipient, Amount: req.Amount.String()})
	if err != nil {
		return nil, vectorerr.New(vectorerr.KindValidation, err, nil)
	}

	initiator, responder := b.initiatorResponder(ch)

	return &engine.CreateParams{
		ChannelAddress:     channelAddress,
		AssetID:            req.AssetID,
		Amount:             req.Amount,
		Initiator:          initiator,
		Responder:          responder,
		TransferDefinition: definition,
		InitialState:       state,
		EncodedState:       state,
		TransferTimeout:    uint64(engine.DefaultWithdrawTimeout.Seconds()),
		Meta:               copyMeta(req.Meta),
	}, nil
}

// resolveDefinition looks up a transfer definition by name or literal
// address in the chain registry (§4.3 "by type (name or literal
// address)").
func (b *Builder) resolveDefinition(ctx context.Context, chainID uint64, typ string) (common.Address, error) {
	if common.IsHexAddress(typ) {
		return common.HexToAddress(typ), nil
	}
	registry, err := b.Chain.GetRegisteredTransfers(ctx, chainID)
	if err != nil {
		return common.Address{}, vectorerr.Wrap(err, nil)
	}
	addr, ok := registry[typ]
	if !ok {
		return common.Address{}, vectorerr.New(vectorerr.KindInvalidTransferType, nil, map[string]interface{}{
			"type": typ,
		})
	}
	return addr, nil
}

// secretFieldNames are the well-known detail keys the Signer encrypts
// under the recipient's identifier before they leave this node (§4.3
// "Encrypt preImage/secret in meta ... when required by the
// definition").
var secretFieldNames = []string{"preImage", "secret"}

func (b *Builder) encryptSecrets(ctx context.Context, recipient chanmodel.Identifier, details map[string]interface{}) (map[string]interface{}, error) {
	if details == nil {
		return nil, nil
	}
	out := make(map[string]interface{}, len(details))
	for k, v := range details {
		out[k] = v
	}
	for _, field := range secretFieldNames {
		raw, ok := out[field]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		ciphertext, err := b.Self.EncryptFor(ctx, recipient, []byte(s))
		if err != nil {
			return nil, vectorerr.Wrap(err, map[string]interface{}{"field": field})
		}
		out[field] = fmt.Sprintf("%x", ciphertext)
	}
	return out, nil
}

// initiatorResponder resolves which channel participant is initiating the
// transfer (always self) and which is responding (the counterparty),
// per §4.3 "Determine initiator/responder from the channel participants
// and the signer."
func (b *Builder) initiatorResponder(ch *chanmodel.Channel) (initiator, responder common.Address) {
	self := b.Self.Address()
	if ch.IsAlice(self) {
		return ch.Alice, ch.Bob
	}
	return ch.Bob, ch.Alice
}

func copyMeta(meta map[string]interface{}) map[string]interface{} {
	if meta == nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

