// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vectorlabs/vectord/chanmodel"
	"github.com/vectorlabs/vectord/event"
	"github.com/vectorlabs/vectord/merkle"
	"github.com/vectorlabs/vectord/vectorerr"
)

// RequestRestore drives the requester's half of §4.1's Restore-State
// Procedure. The holder's side (HandleRestoreRequest) takes no channel
// lock and awaits no acknowledgment; the requester's side is the
// verify-then-overwrite step, carried out by VerifyAndApplyRestore
// against whatever the holder sends back.
func (e *Engine) RequestRestore(ctx context.Context, to chanmodel.Identifier, channelAddress common.Address, factory common.Address) (*chanmodel.Channel, error) {
	reply, err := e.Messaging.SendRestoreStateMessage(ctx, to, channelAddress)
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
	if reply.Channel == nil {
		return nil, vectorerr.New(vectorerr.KindExternal, nil, map[string]interface{}{
			"reason": "restore reply carried neither a channel nor an error",
		})
	}

	if err := e.VerifyAndApplyRestore(ctx, factory, reply.Channel, reply.ActiveTransfers); err != nil {
		return nil, err
	}
	return e.Store.GetChannelState(ctx, channelAddress)
}

// HandleRestoreRequest implements the holder's half of the procedure: it
// reads the current channel and active-transfer set for channelAddress
// from the Store, to be transmitted back to the requester. It does not
// take the channel lock, and neither does the in-process Messaging that
// calls it; no acknowledgment from the requester is awaited.
func (e *Engine) HandleRestoreRequest(ctx context.Context, channelAddress common.Address) (*chanmodel.Channel, []*chanmodel.Transfer, error) {
	ch, err := e.Store.GetChannelState(ctx, channelAddress)
	if err != nil {
		return nil, nil, vectorerr.Wrap(err, nil)
	}
	if ch == nil {
		return nil, nil, vectorerr.New(vectorerr.KindChannelNotFound, nil, map[string]interface{}{
			"channelAddress": channelAddress.Hex(),
		})
	}
	active, err := e.Store.GetActiveTransfers(ctx, channelAddress)
	if err != nil {
		return nil, nil, vectorerr.Wrap(err, nil)
	}
	return ch, active, nil
}

// VerifyAndApplyRestore implements the requester's verification of §4.1
// checks (i)-(iv) and, on success, atomically overwrites local state and
// emits RESTORE_STATE_EVENT.
func (e *Engine) VerifyAndApplyRestore(ctx context.Context, factory common.Address, restored *chanmodel.Channel, activeTransfers []*chanmodel.Transfer) error {
	// (i) channelAddress equals the Create2 derivation from participants.
	wantAddr := chanmodel.DeriveChannelAddress(restored.Alice, restored.Bob, factory, restored.ChainID)
	if wantAddr != restored.ChannelAddress {
		return vectorerr.New(vectorerr.KindValidation, nil, map[string]interface{}{
			"reason": "channel address does not match create2 derivation",
		})
	}

	// (ii) both signatures on latestUpdate verify against the channel's
	// recorded participants.
	if restored.LatestUpdate == nil || !restored.LatestUpdate.FullySigned() {
		return vectorerr.New(vectorerr.KindValidation, nil, map[string]interface{}{
			"reason": "latest update is not fully signed",
		})
	}
	aliceAddr, err := e.Self.RecoverUpdateSigner(ctx, restored.LatestUpdate, restored.LatestUpdate.AliceSignature)
	if err != nil || aliceAddr != restored.Alice {
		return vectorerr.New(vectorerr.KindBadSignatures, err, map[string]interface{}{
			"reason": "alice signature does not verify",
		})
	}
	bobAddr, err := e.Self.RecoverUpdateSigner(ctx, restored.LatestUpdate, restored.LatestUpdate.BobSignature)
	if err != nil || bobAddr != restored.Bob {
		return vectorerr.New(vectorerr.KindBadSignatures, err, map[string]interface{}{
			"reason": "bob signature does not verify",
		})
	}

	// (iii) merkle root over activeTransfers equals channel.merkleRoot.
	root := merkle.Root(merkle.LeavesFromTransfers(activeTransfers))
	if root != restored.MerkleRoot {
		return vectorerr.New(vectorerr.KindValidation, nil, map[string]interface{}{
			"reason": "merkle root does not match active transfer set",
		})
	}

	// (iv) restored nonce exceeds local by more than one; otherwise this
	// is an ordinary sync, not a restore.
	local, err := e.Store.GetChannelState(ctx, restored.ChannelAddress)
	if err != nil {
		return vectorerr.Wrap(err, nil)
	}
	var localNonce uint64
	if local != nil {
		localNonce = local.Nonce
	}
	if restored.Nonce <= localNonce+1 {
		return vectorerr.New(vectorerr.KindValidation, nil, map[string]interface{}{
			"reason": "restored state is within normal sync range, not a restore",
		})
	}

	var existing []*chanmodel.Transfer
	if local != nil {
		existing, err = e.Store.GetActiveTransfers(ctx, restored.ChannelAddress)
		if err != nil {
			return vectorerr.Wrap(err, nil)
		}
	}
	removed := make([]common.Hash, 0, len(existing))
	for _, t := range existing {
		removed = append(removed, t.TransferID)
	}

	if err := e.Store.SaveChannelStateAndTransfers(ctx, restored, activeTransfers, removed); err != nil {
		return vectorerr.Wrap(err, nil)
	}

	e.Bus.Publish(event.Event{
		Type:    event.RestoreStateEvent,
		Payload: event.RestoreStatePayload{Channel: restored},
	})
	return nil
}
