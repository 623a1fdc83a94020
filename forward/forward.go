// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package forward

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/vectorlabs/vectord/chanmodel"
	"github.com/vectorlabs/vectord/engine"
	"github.com/vectorlabs/vectord/event"
	"github.com/vectorlabs/vectord/iface"
	vlog "github.com/vectorlabs/vectord/log"
	"github.com/vectorlabs/vectord/vectorerr"
)

var log = vlog.Logger(vlog.SubsystemForward)

// Forwarder drives §4.2. It subscribes to the Update Engine's event bus
// and reacts to ConditionalTransferCreated/Resolved, translating a
// sender-side create into a correct recipient-side action.
type Forwarder struct {
	Engine    *engine.Engine
	Store     iface.Store
	Messaging iface.Messaging
	Chain     iface.ChainReader
	Pricing   PricingTable
	Config    Config
}

// New constructs a Forwarder.
func New(eng *engine.Engine, store iface.Store, messaging iface.Messaging, chain iface.ChainReader, pricing PricingTable, cfg Config) *Forwarder {
	return &Forwarder{Engine: eng, Store: store, Messaging: messaging, Chain: chain, Pricing: pricing, Config: cfg}
}

// Run subscribes to the event bus and dispatches every forwarding-
// relevant event until ctx is done. Events are handled one at a time on
// Run's own goroutine, in the order the subscription delivers them.
func (f *Forwarder) Run(ctx context.Context, bus *event.Bus) {
	sub := bus.Subscribe(event.TypeFilter(
		event.ConditionalTransferCreated,
		event.ConditionalTransferResolved,
		event.IsAliveEvent,
	))
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			f.dispatch(ctx, ev)
		}
	}
}

func (f *Forwarder) dispatch(ctx context.Context, ev event.Event) {
	switch ev.Type {
	case event.ConditionalTransferCreated:
		p := ev.Payload.(event.ConditionalTransferCreatedPayload)
		if err := f.HandleConditionalTransferCreated(ctx, p); err != nil {
			log.Errorf("forwarding create for transfer %v failed: %v", p.Transfer.TransferID, err)
		}
	case event.ConditionalTransferResolved:
		p := ev.Payload.(event.ConditionalTransferResolvedPayload)
		if err := f.HandleConditionalTransferResolved(ctx, p); err != nil {
			log.Errorf("forwarding resolve for transfer %v failed: %v", p.Transfer.TransferID, err)
		}
	case event.IsAliveEvent:
		p := ev.Payload.(event.IsAlivePayload)
		if !f.Config.SkipCheckIn {
			if err := f.HandleCheckIn(ctx, p.ChannelAddress); err != nil {
				log.Errorf("check-in drain for %v failed: %v", p.ChannelAddress, err)
			}
		}
	}
}

// ForwardError is the structured outcome of a forwarding attempt, per
// §4.2 Algorithm step 7.
type ForwardError struct {
	Kind                       vectorerr.Kind
	Cause                      error
	ShouldCancelSender         bool
	SenderTransferCancellation string // "executed" | "enqueued" | ""
}

func (e *ForwardError) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Kind.String()
}

// HandleConditionalTransferCreated implements §4.2's Algorithm: it
// derives the recipient action from an observed sender-side create and
// either routes it immediately, queues it for later, or cancels the
// sender transfer.
func (f *Forwarder) HandleConditionalTransferCreated(ctx context.Context, p event.ConditionalTransferCreatedPayload) error {
	senderChannel, transferDetails := p.Channel, p.Transfer

	routing, ok := chanmodel.GetRoutingMeta(transferDetails.Meta)
	if !ok || len(routing.Path) == 0 || routing.Path[0].Recipient == "" {
		return &ForwardError{Kind: vectorerr.KindValidation, Cause: vectorerr.New(vectorerr.KindValidation, nil, map[string]interface{}{
			"reason": "InvalidForwardingInfo",
		})}
	}
	hop := routing.Path[0]

	if senderChannel == nil {
		return &ForwardError{Kind: vectorerr.KindChannelNotFound, Cause: vectorerr.New(vectorerr.KindChannelNotFound, nil, map[string]interface{}{
			"reason": "SenderChannelNotFound",
		})}
	}

	recipientChainID := senderChannel.ChainID
	if hop.RecipientChainID != nil {
		recipientChainID = *hop.RecipientChainID
	}
	recipientAssetID := transferDetails.AssetID
	if hop.RecipientAssetID != nil {
		recipientAssetID = *hop.RecipientAssetID
	}

	recipientAmount := new(big.Int).Set(transferDetails.Balance.Sum())
	if recipientChainID != senderChannel.ChainID || recipientAssetID != transferDetails.AssetID {
		var err error
		recipientAmount, err = getSwappedAmount(f.Pricing, PriceKey{
			FromChainID: senderChannel.ChainID,
			FromAssetID: transferDetails.AssetID,
			ToChainID:   recipientChainID,
			ToAssetID:   recipientAssetID,
		}, recipientAmount)
		if err != nil {
			status := f.cancelAndLog(ctx, senderChannel.ChannelAddress, transferDetails.TransferID)
			return &ForwardError{Kind: vectorerr.KindExternal, Cause: err, ShouldCancelSender: true, SenderTransferCancellation: status}
		}
	}

	recipientChannel, err := f.Store.GetChannelStateByIdentifier(ctx, hop.Recipient, recipientChainID)
	if err != nil {
		return &ForwardError{Kind: vectorerr.KindExternal, Cause: vectorerr.Wrap(err, nil)}
	}
	if recipientChannel == nil {
		status := f.cancelAndLog(ctx, senderChannel.ChannelAddress, transferDetails.TransferID)
		return &ForwardError{Kind: vectorerr.KindChannelNotFound, Cause: vectorerr.New(vectorerr.KindChannelNotFound, nil, map[string]interface{}{
			"reason": "RecipientChannelNotFound",
		}), ShouldCancelSender: true, SenderTransferCancellation: status}
	}

	outTimeout := transferDetails.TransferTimeout
	if outTimeout > TransferDecrement {
		outTimeout -= TransferDecrement
	}
	outMeta := copyRoutingAwareMeta(transferDetails.Meta)
	outMeta["senderIdentifier"] = senderChannel.Counterparty(f.Config.RouterSignerAddress)

	createParams := &engine.CreateParams{
		ChannelAddress:     recipientChannel.ChannelAddress,
		AssetID:            recipientAssetID,
		Amount:             recipientAmount,
		Initiator:          f.Config.RouterSignerAddress,
		Responder:          recipientChannel.Counterparty(f.Config.RouterSignerAddress),
		TransferDefinition: transferDetails.TransferDefinition,
		InitialState:       transferDetails.TransferState,
		EncodedState:       transferDetails.TransferState,
		TransferTimeout:    outTimeout,
		Meta:               outMeta,
	}

	if err := f.ensureCollateral(ctx, recipientChannel, recipientAssetID, recipientAmount); err != nil {
		return &ForwardError{Kind: vectorerr.KindExternal, Cause: err}
	}

	online, err := f.Messaging.Ping(ctx, hop.Recipient)
	if err != nil {
		online = false
	}
	if !online {
		if routing.RequireOnline {
			status := f.cancelAndLog(ctx, senderChannel.ChannelAddress, transferDetails.TransferID)
			return &ForwardError{Kind: vectorerr.KindReceiverOffline, Cause: vectorerr.New(vectorerr.KindReceiverOffline, nil, nil),
				ShouldCancelSender: true, SenderTransferCancellation: status}
		}
		if err := f.enqueueCreate(ctx, recipientChannel.ChannelAddress, createParams); err != nil {
			return &ForwardError{Kind: vectorerr.KindExternal, Cause: err}
		}
		return &ForwardError{Kind: vectorerr.KindReceiverOffline, Cause: vectorerr.New(vectorerr.KindReceiverOffline, nil, map[string]interface{}{
			"reason": "queued",
		})}
	}

	if _, err := f.Engine.Outbound(ctx, engine.UpdateParams{Create: createParams}); err != nil {
		if vectorerr.IsTimeout(err) {
			return &ForwardError{Kind: vectorerr.KindTimeout, Cause: err}
		}
		return &ForwardError{Kind: vectorerr.KindOf(err), Cause: err}
	}
	return nil
}

// HandleConditionalTransferResolved implements §4.2's Resolution Path.
func (f *Forwarder) HandleConditionalTransferResolved(ctx context.Context, p event.ConditionalTransferResolvedPayload) error {
	recipientTransfer := p.Transfer

	routing, ok := chanmodel.GetRoutingMeta(recipientTransfer.Meta)
	if !ok {
		return nil // not a routed transfer; nothing to propagate
	}

	senderTransfers, err := f.Store.GetTransfersByRoutingID(ctx, routing.RoutingID)
	if err != nil {
		return vectorerr.Wrap(err, nil)
	}
	var senderTransfer *chanmodel.Transfer
	for _, t := range senderTransfers {
		if t.Responder == f.Config.RouterSignerAddress && !t.Resolved() {
			senderTransfer = t
			break
		}
	}
	if senderTransfer == nil {
		return nil // nothing left to propagate (already resolved, or not ours)
	}

	_, err = f.Engine.Outbound(ctx, engine.UpdateParams{Resolve: &engine.ResolveParams{
		ChannelAddress: senderTransfer.ChannelAddress,
		TransferID:     senderTransfer.TransferID,
		Resolver:       recipientTransfer.TransferResolver,
	}})
	if err != nil {
		if qerr := f.enqueueResolve(ctx, senderTransfer.ChannelAddress, senderTransfer.TransferID, recipientTransfer.TransferResolver); qerr != nil {
			return vectorerr.Wrap(qerr, nil)
		}
		return nil
	}
	return nil
}

// cancelAndLog executes cancellation and returns "executed" or
// "enqueued" per §4.2 Cancellation, swallowing the error into a log line
// since cancellation failure is itself recoverable via the queue.
func (f *Forwarder) cancelAndLog(ctx context.Context, channelAddress common.Address, transferID common.Hash) string {
	status, err := f.CancelSenderTransfer(ctx, channelAddress, transferID)
	if err != nil {
		log.Errorf("cancellation of %v on %v failed: %v", transferID, channelAddress, err)
	}
	return status
}

// CancelSenderTransfer implements §4.2 Cancellation: resolve the
// sender-side transfer with the transfer definition's canonical
// zero-out resolver.
func (f *Forwarder) CancelSenderTransfer(ctx context.Context, channelAddress common.Address, transferID common.Hash) (string, error) {
	t, err := f.Store.GetTransferState(ctx, transferID)
	if err != nil {
		return "", vectorerr.Wrap(err, nil)
	}
	if t == nil {
		return "", vectorerr.New(vectorerr.KindTransferNotFound, nil, map[string]interface{}{"transferId": transferID.Hex()})
	}

	resolver, err := f.Chain.CancelResolverFor(ctx, t.TransferDefinition)
	if err != nil {
		return "", vectorerr.Wrap(err, nil)
	}

	_, err = f.Engine.Outbound(ctx, engine.UpdateParams{Resolve: &engine.ResolveParams{
		ChannelAddress: channelAddress,
		TransferID:     transferID,
		Resolver:       resolver,
	}})
	if err != nil {
		if qerr := f.enqueueResolve(ctx, channelAddress, transferID, resolver); qerr != nil {
			return "", vectorerr.Wrap(qerr, nil)
		}
		return "enqueued", nil
	}
	return "executed", nil
}

// ensureCollateral implements §4.2 Algorithm step 6a: request collateral
// and await a deposit update if the router's recipient-side balance is
// insufficient, bounded by the configured maximum and rebalance target.
func (f *Forwarder) ensureCollateral(ctx context.Context, recipientChannel *chanmodel.Channel, assetID chanmodel.AssetID, amount *big.Int) error {
	profile, ok := f.Config.profileFor(recipientChannel.ChainID, assetID)
	if !ok {
		return nil // no configured profile; nothing to enforce
	}

	routerBalance := recipientChannel.BalanceOf(assetID)
	var routerSide *big.Int
	if recipientChannel.IsAlice(f.Config.RouterSignerAddress) {
		routerSide = routerBalance[0]
	} else {
		routerSide = routerBalance[1]
	}

	if !needsCollateral(profile, routerSide, amount) {
		return nil
	}

	target := profile.Target
	if max, ok := f.Config.MaxCollateral[assetID]; ok && target.Cmp(max) > 0 {
		target = max
	}

	identifier := recipientChannel.AliceIdentifier
	if recipientChannel.IsAlice(f.Config.RouterSignerAddress) {
		identifier = recipientChannel.BobIdentifier
	}

	if err := f.Messaging.SendRequestCollateralMessage(ctx, identifier, [20]byte(recipientChannel.ChannelAddress), assetID, target.String()); err != nil {
		return vectorerr.Wrap(err, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, f.Engine.WithdrawTimeout)
	defer cancel()
	_, err := f.Engine.Outbound(ctx, engine.UpdateParams{Deposit: &engine.DepositParams{
		ChannelAddress: recipientChannel.ChannelAddress,
		AssetID:        assetID,
	}})
	return err
}

func (f *Forwarder) enqueueCreate(ctx context.Context, channelAddress common.Address, params *engine.CreateParams) error {
	return f.Store.QueueUpdate(ctx, &chanmodel.QueuedRouterUpdate{
		ID:             uuid.NewString(),
		ChannelAddress: channelAddress,
		Type:           chanmodel.QueuedTransferCreation,
		Payload:        params,
		Status:         chanmodel.StatusPending,
		CreatedAt:      time.Now(),
	})
}

func (f *Forwarder) enqueueResolve(ctx context.Context, channelAddress common.Address, transferID common.Hash, resolver []byte) error {
	return f.Store.QueueUpdate(ctx, &chanmodel.QueuedRouterUpdate{
		ID:             uuid.NewString(),
		ChannelAddress: channelAddress,
		Type:           chanmodel.QueuedTransferResolution,
		Payload: &engine.ResolveParams{
			ChannelAddress: channelAddress,
			TransferID:     transferID,
			Resolver:       resolver,
		},
		Status:    chanmodel.StatusPending,
		CreatedAt: time.Now(),
	})
}

func copyRoutingAwareMeta(meta map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
