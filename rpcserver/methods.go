// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package rpcserver

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vectorlabs/vectord/chanmodel"
	"github.com/vectorlabs/vectord/engine"
	"github.com/vectorlabs/vectord/transfer"
	"github.com/vectorlabs/vectord/vectorerr"
)

// registerDefaultMethods wires every chan_ method of §4.4's RPC Surface.
func (s *Server) registerDefaultMethods() {
	s.register("chan_getChannel", false, getChannelSchema, s.handleGetChannel)
	s.register("chan_getTransfer", false, getTransferSchema, s.handleGetTransfer)
	s.register("chan_setup", true, setupSchema, s.handleSetup)
	s.register("chan_deposit", true, depositSchema, s.handleDeposit)
	s.register("chan_createTransfer", true, createTransferSchema, s.handleCreateTransfer)
	s.register("chan_resolveTransfer", true, resolveTransferSchema, s.handleResolveTransfer)
	s.register("chan_withdraw", true, withdrawSchema, s.handleWithdraw)
	s.register("chan_restoreState", true, restoreStateSchema, s.handleRestoreState)
}

const getChannelSchema = `{
	"type": "object",
	"required": ["channelAddress"],
	"properties": {"channelAddress": {"type": "string"}}
}`

type getChannelRequest struct {
	ChannelAddress string `json:"channelAddress"`
}

func (s *Server) handleGetChannel(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var req getChannelRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, vectorerr.New(vectorerr.KindValidation, err, nil)
	}
	ch, err := s.Engine.Store.GetChannelState(ctx, common.HexToAddress(req.ChannelAddress))
	if err != nil {
		return nil, vectorerr.Wrap(err, nil)
	}
	if ch == nil {
		return nil, vectorerr.New(vectorerr.KindChannelNotFound, nil, map[string]interface{}{"channelAddress": req.ChannelAddress})
	}
	return ch, nil
}

const getTransferSchema = `{
	"type": "object",
	"required": ["transferId"],
	"properties": {"transferId": {"type": "string"}}
}`

type getTransferRequest struct {
	TransferID string `json:"transferId"`
}

func (s *Server) handleGetTransfer(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var req getTransferRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, vectorerr.New(vectorerr.KindValidation, err, nil)
	}
	t, err := s.Engine.Store.GetTransferState(ctx, common.HexToHash(req.TransferID))
	if err != nil {
		return nil, vectorerr.Wrap(err, nil)
	}
	if t == nil {
		return nil, vectorerr.New(vectorerr.KindTransferNotFound, nil, map[string]interface{}{"transferId": req.TransferID})
	}
	return t, nil
}

const setupSchema = `{
	"type": "object",
	"required": ["channelAddress", "alice", "bob", "aliceIdentifier", "bobIdentifier", "chainId"],
	"properties": {
		"channelAddress": {"type": "string"},
		"alice": {"type": "string"},
		"bob": {"type": "string"},
		"aliceIdentifier": {"type": "string"},
		"bobIdentifier": {"type": "string"},
		"chainId": {"type": "integer"},
		"timeout": {"type": "integer"}
	}
}`

type setupRequest struct {
	ChannelAddress  string `json:"channelAddress"`
	Alice           string `json:"alice"`
	Bob             string `json:"bob"`
	AliceIdentifier string `json:"aliceIdentifier"`
	BobIdentifier   string `json:"bobIdentifier"`
	ChainID         uint64 `json:"chainId"`
	Timeout         uint64 `json:"timeout"`
}

func (s *Server) handleSetup(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var req setupRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, vectorerr.New(vectorerr.KindValidation, err, nil)
	}
	return s.Engine.Outbound(ctx, engine.UpdateParams{Setup: &engine.SetupParams{
		ChannelAddress:  common.HexToAddress(req.ChannelAddress),
		Alice:           common.HexToAddress(req.Alice),
		Bob:             common.HexToAddress(req.Bob),
		AliceIdentifier: chanmodel.Identifier(req.AliceIdentifier),
		BobIdentifier:   chanmodel.Identifier(req.BobIdentifier),
		ChainID:         req.ChainID,
		Timeout:         req.Timeout,
	}})
}

const depositSchema = `{
	"type": "object",
	"required": ["channelAddress", "assetId"],
	"properties": {
		"channelAddress": {"type": "string"},
		"assetId": {"type": "string"}
	}
}`

type depositRequest struct {
	ChannelAddress string `json:"channelAddress"`
	AssetID        string `json:"assetId"`
}

func (s *Server) handleDeposit(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var req depositRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, vectorerr.New(vectorerr.KindValidation, err, nil)
	}
	return s.Engine.Outbound(ctx, engine.UpdateParams{Deposit: &engine.DepositParams{
		ChannelAddress: common.HexToAddress(req.ChannelAddress),
		AssetID:        common.HexToAddress(req.AssetID),
	}})
}

const createTransferSchema = `{
	"type": "object",
	"required": ["channelAddress", "type", "amount", "assetId", "recipient"],
	"properties": {
		"channelAddress": {"type": "string"},
		"type": {"type": "string"},
		"details": {"type": "object"},
		"amount": {"type": "string"},
		"assetId": {"type": "string"},
		"recipient": {"type": "string"},
		"recipientChainId": {"type": "integer"},
		"recipientAssetId": {"type": "string"},
		"timeout": {"type": "integer"},
		"meta": {"type": "object"},
		"routingId": {"type": "string"},
		"requireOnline": {"type": "boolean"}
	}
}`

type createTransferRequest struct {
	ChannelAddress   string                 `json:"channelAddress"`
	Type             string                 `json:"type"`
	Details          map[string]interface{} `json:"details"`
	Amount           string                 `json:"amount"`
	AssetID          string                 `json:"assetId"`
	Recipient        string                 `json:"recipient"`
	RecipientChainID *uint64                `json:"recipientChainId"`
	RecipientAssetID *string                `json:"recipientAssetId"`
	Timeout          *uint64                `json:"timeout"`
	Meta             map[string]interface{} `json:"meta"`
	RoutingID        string                 `json:"routingId"`
	RequireOnline    bool                   `json:"requireOnline"`
}

func (s *Server) handleCreateTransfer(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var req createTransferRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, vectorerr.New(vectorerr.KindValidation, err, nil)
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		return nil, vectorerr.New(vectorerr.KindValidation, nil, map[string]interface{}{"amount": req.Amount})
	}
	var recipientAssetID *chanmodel.AssetID
	if req.RecipientAssetID != nil {
		a := common.HexToAddress(*req.RecipientAssetID)
		recipientAssetID = &a
	}
	channelAddress := common.HexToAddress(req.ChannelAddress)
	params, err := s.Builder.ConvertCreateParams(ctx, channelAddress, transfer.CreateTransferRequest{
		Type:             req.Type,
		Details:          req.Details,
		Amount:           amount,
		AssetID:          common.HexToAddress(req.AssetID),
		Recipient:        chanmodel.Identifier(req.Recipient),
		RecipientChainID: req.RecipientChainID,
		RecipientAssetID: recipientAssetID,
		Timeout:          req.Timeout,
		Meta:             req.Meta,
		RoutingID:        req.RoutingID,
		RequireOnline:    req.RequireOnline,
	})
	if err != nil {
		return nil, err
	}
	return s.Engine.Outbound(ctx, engine.UpdateParams{Create: params})
}

const resolveTransferSchema = `{
	"type": "object",
	"required": ["channelAddress", "transferId", "resolver"],
	"properties": {
		"channelAddress": {"type": "string"},
		"transferId": {"type": "string"},
		"resolver": {"type": "string"},
		"meta": {"type": "object"}
	}
}`

type resolveTransferRequest struct {
	ChannelAddress string                 `json:"channelAddress"`
	TransferID     string                 `json:"transferId"`
	Resolver       string                 `json:"resolver"`
	Meta           map[string]interface{} `json:"meta"`
}

func (s *Server) handleResolveTransfer(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var req resolveTransferRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, vectorerr.New(vectorerr.KindValidation, err, nil)
	}
	channelAddress := common.HexToAddress(req.ChannelAddress)
	params, err := s.Builder.ConvertResolveConditionParams(ctx, channelAddress, transfer.ResolveTransferRequest{
		TransferID: common.HexToHash(req.TransferID),
		Resolver:   common.FromHex(req.Resolver),
		Meta:       req.Meta,
	})
	if err != nil {
		return nil, err
	}
	return s.Engine.Outbound(ctx, engine.UpdateParams{Resolve: params})
}

const withdrawSchema = `{
	"type": "object",
	"required": ["channelAddress", "assetId", "amount", "recipient"],
	"properties": {
		"channelAddress": {"type": "string"},
		"assetId": {"type": "string"},
		"amount": {"type": "string"},
		"recipient": {"type": "string"},
		"meta": {"type": "object"}
	}
}`

type withdrawRequest struct {
	ChannelAddress string                 `json:"channelAddress"`
	AssetID        string                 `json:"assetId"`
	Amount         string                 `json:"amount"`
	Recipient      string                 `json:"recipient"`
	Meta           map[string]interface{} `json:"meta"`
}

func (s *Server) handleWithdraw(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var req withdrawRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, vectorerr.New(vectorerr.KindValidation, err, nil)
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		return nil, vectorerr.New(vectorerr.KindValidation, nil, map[string]interface{}{"amount": req.Amount})
	}
	channelAddress := common.HexToAddress(req.ChannelAddress)
	params, err := s.Builder.ConvertWithdrawParams(ctx, channelAddress, transfer.WithdrawRequest{
		AssetID:   common.HexToAddress(req.AssetID),
		Amount:    amount,
		Recipient: common.HexToAddress(req.Recipient),
		Meta:      req.Meta,
	})
	if err != nil {
		return nil, err
	}
	return s.Engine.Outbound(ctx, engine.UpdateParams{Create: params})
}

const restoreStateSchema = `{
	"type": "object",
	"required": ["to", "channelAddress", "factory"],
	"properties": {
		"to": {"type": "string"},
		"channelAddress": {"type": "string"},
		"factory": {"type": "string"}
	}
}`

type restoreStateRequest struct {
	To             string `json:"to"`
	ChannelAddress string `json:"channelAddress"`
	Factory        string `json:"factory"`
}

func (s *Server) handleRestoreState(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var req restoreStateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, vectorerr.New(vectorerr.KindValidation, err, nil)
	}
	return s.Engine.RequestRestore(ctx, chanmodel.Identifier(req.To),
		common.HexToAddress(req.ChannelAddress), common.HexToAddress(req.Factory))
}
