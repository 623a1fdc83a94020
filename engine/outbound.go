// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vectorlabs/vectord/chanmodel"
	"github.com/vectorlabs/vectord/event"
	"github.com/vectorlabs/vectord/iface"
	"github.com/vectorlabs/vectord/vectorerr"
)

// lockName derives the Lock Service's name for a channel, per §6 keyed by
// channel address.
func lockName(channelAddress common.Address) string {
	return "channel/" + channelAddress.Hex()
}

// Outbound drives the leader half of §4.1's Outbound Protocol for a single
// update. It acquires the channel lock before reading state and releases
// it only after the exchange terminates, successfully or not (§4.1
// "Roles and Locking").
func (e *Engine) Outbound(ctx context.Context, params UpdateParams) (*chanmodel.Channel, error) {
	channelAddress := channelAddressOf(params)
	isAlice := e.isLeaderAlice(ctx, params)
	counterparty := e.counterpartyOf(ctx, params)

	key, err := e.Lock.AcquireLock(ctx, lockName(channelAddress), isAlice, counterparty)
	if err != nil {
		return nil, vectorerr.Wrap(err, map[string]interface{}{"channelAddress": channelAddress.Hex()})
	}
	defer func() {
		if relErr := e.Lock.ReleaseLock(ctx, lockName(channelAddress), key, isAlice, counterparty); relErr != nil {
			log.Errorf("unable to release lock for %v: %v", channelAddress, relErr)
		}
	}()

	retries := 0
	for {
		ch, err := e.outboundAttempt(ctx, params)
		if err == nil {
			return ch, nil
		}
		if params.Type() == chanmodel.UpdateDeposit && vectorerr.IsRetryable(err) && retries < DepositRetryLimit {
			retries++
			log.Warnf("deposit update for %v failed with bad signatures, retrying (%d/%d)",
				channelAddress, retries, DepositRetryLimit)
			continue
		}
		return nil, err
	}
}

// outboundAttempt runs a single attempt of the outbound exchange: load,
// generate, validate, sign, send, apply.
func (e *Engine) outboundAttempt(ctx context.Context, params UpdateParams) (*chanmodel.Channel, error) {
	channelAddress := channelAddressOf(params)

	var ch *chanmodel.Channel
	if params.Setup == nil {
		var err error
		ch, err = e.Store.GetChannelState(ctx, channelAddress)
		if err != nil {
			return nil, vectorerr.Wrap(err, map[string]interface{}{"channelAddress": channelAddress.Hex()})
		}
		if ch == nil {
			return nil, vectorerr.New(vectorerr.KindChannelNotFound, nil, map[string]interface{}{
				"channelAddress": channelAddress.Hex(),
			})
		}
		if ch.InDispute {
			return nil, vectorerr.New(vectorerr.KindDispute, nil, map[string]interface{}{
				"channelAddress": channelAddress.Hex(),
			})
		}
	}

	isAlice := e.isLeaderAlice(ctx, params)

	var (
		update     *chanmodel.Update
		newRoot    common.Hash
		newActive  []*chanmodel.Transfer
		removedIDs []common.Hash
	)

	var active []*chanmodel.Transfer
	if ch != nil {
		var err error
		active, err = e.Store.GetActiveTransfers(ctx, channelAddress)
		if err != nil {
			return nil, vectorerr.Wrap(err, nil)
		}
	}

	switch {
	case params.Setup != nil:
		update = generateSetup(params.Setup)

	case params.Deposit != nil:
		var err error
		update, err = e.generateDeposit(ctx, ch, params.Deposit, isAlice)
		if err != nil {
			return nil, err
		}

	case params.Create != nil:
		var newTransfer *chanmodel.Transfer
		var err error
		update, newTransfer, newRoot, err = e.generateCreate(ctx, ch, active, params.Create, isAlice)
		if err != nil {
			return nil, err
		}
		newActive = []*chanmodel.Transfer{newTransfer}

	default: // Resolve
		var resolved *chanmodel.Transfer
		var err error
		update, resolved, newRoot, err = e.generateResolve(ctx, ch, active, params.Resolve, isAlice)
		if err != nil {
			return nil, err
		}
		newActive = []*chanmodel.Transfer{resolved}
		removedIDs = []common.Hash{resolved.TransferID}
	}

	if err := conserveBalance(ch, active, newActive, removedIDs, update); err != nil {
		return nil, err
	}

	if err := e.runValidateOutbound(HookContext{Channel: ch, Update: update}); err != nil {
		return nil, vectorerr.New(vectorerr.KindValidation, err, map[string]interface{}{
			"channelAddress": channelAddress.Hex(),
		})
	}

	sig, err := e.Self.SignUpdate(ctx, update)
	if err != nil {
		return nil, vectorerr.Wrap(err, nil)
	}
	update.SetSignature(isAlice, sig)

	var previousUpdate *chanmodel.Update
	if ch != nil {
		previousUpdate = ch.LatestUpdate
	}

	to := e.counterpartyOf(ctx, params)
	sendCtx := ctx
	if e.MessageTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, e.MessageTimeout)
		defer cancel()
	}
	reply, err := e.Messaging.SendProtocolMessage(sendCtx, to, iface.ProtocolPayload{
		Update:         update,
		PreviousUpdate: previousUpdate,
	}, replyInboxFor(update))
	if err != nil {
		return nil, vectorerr.New(vectorerr.KindTimeout, err, map[string]interface{}{
			"channelAddress": channelAddress.Hex(),
		})
	}
	if reply.Err != nil {
		return nil, vectorerr.New(kindFromWire(reply.Err.Kind), nil, map[string]interface{}{
			"channelAddress": channelAddress.Hex(),
			"nodeError":      reply.Err.Message,
		})
	}
	if reply.Update == nil {
		return nil, vectorerr.New(vectorerr.KindTimeout, nil, map[string]interface{}{
			"channelAddress": channelAddress.Hex(),
			"reason":         "counterparty dropped the update without replying",
		})
	}

	counterpartySig := counterpartySignature(reply.Update, isAlice)
	recovered, err := e.Self.RecoverUpdateSigner(ctx, update, counterpartySig)
	if err != nil || recovered != e.counterpartySignerOf(ch, params, isAlice) {
		return nil, vectorerr.New(vectorerr.KindBadSignatures, err, map[string]interface{}{
			"channelAddress": channelAddress.Hex(),
		})
	}
	update.SetSignature(!isAlice, counterpartySig)

	newCh := applyUpdateToChannel(ch, update, newRoot, params)
	if err := e.Store.SaveChannelStateAndTransfers(ctx, newCh, newActive, removedIDs); err != nil {
		return nil, vectorerr.Wrap(err, nil)
	}

	e.Bus.Publish(event.Event{
		Type: event.ChannelUpdateEvent,
		Payload: event.ChannelUpdatePayload{
			Channel:  newCh,
			Update:   update,
			IsLeader: true,
		},
	})

	return newCh, nil
}
