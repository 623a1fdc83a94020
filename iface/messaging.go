// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package iface

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vectorlabs/vectord/chanmodel"
)

// ProtocolPayload is the wire payload of §6: an update plus the sender's
// view of the previous update, used by the inbound protocol's sync path
// (§4.1 Inbound Protocol step 3).
type ProtocolPayload struct {
	Update         *chanmodel.Update
	PreviousUpdate *chanmodel.Update
}

// ProtocolError is what a non-leader replies with instead of a signed
// update when it rejects an inbound message (§4.1 Inbound Protocol step
// 3, step 4).
type ProtocolError struct {
	Kind    string
	Message string
	// Latest is not set by Engine.HandleInbound: a non-leader that is
	// ahead of a stale update replies with its latest update in
	// ProtocolReply.Update instead.
	Latest *chanmodel.Update
}

// ProtocolReply is what the leader receives back on its outbound inbox:
// at most one of Update or Err is populated. Both are nil when the
// receiver dropped the message (malformed or self-sent); Outbound reports
// that as a Timeout.
type ProtocolReply struct {
	Update *chanmodel.Update
	Err    *ProtocolError
}

// MessageHandler processes one inbound protocol message and returns the
// reply to publish back on replyInbox.
type MessageHandler func(ctx context.Context, payload ProtocolPayload, fromIdentifier chanmodel.Identifier, replyInbox string) ProtocolReply

// RestoreReply is what the holder sends back in response to a restore
// request: its current view of {channel, activeTransfers} (§4.1 "the
// holder ... transmits {channel, activeTransfers}"), or Err if the
// holder has no state to serve.
type RestoreReply struct {
	Channel         *chanmodel.Channel
	ActiveTransfers []*chanmodel.Transfer
	Err             *ProtocolError
}

// RestoreRequestHandler serves a restore request for channelAddress,
// implemented by the holder's Engine.HandleRestoreRequest.
type RestoreRequestHandler func(ctx context.Context, channelAddress common.Address) (*chanmodel.Channel, []*chanmodel.Transfer, error)

// Messaging is the transport contract of §6.
type Messaging interface {
	// OnReceiveProtocolMessage registers handler as the receiver for all
	// protocol messages addressed to identifier.
	OnReceiveProtocolMessage(identifier chanmodel.Identifier, handler MessageHandler)

	// OnReceiveRestoreRequest registers handler as the receiver of restore
	// requests addressed to identifier (§4.1 Restore-State Procedure, the
	// holder's half).
	OnReceiveRestoreRequest(identifier chanmodel.Identifier, handler RestoreRequestHandler)

	// SendProtocolMessage delivers payload to `to` and, if replyInbox is
	// non-empty, blocks until a reply arrives on it or ctx is done.
	SendProtocolMessage(ctx context.Context, to chanmodel.Identifier, payload ProtocolPayload, replyInbox string) (*ProtocolReply, error)

	// SendIsAliveMessage publishes a liveness signal for identifier,
	// consumed by the Check-In Handler (§4.2).
	SendIsAliveMessage(ctx context.Context, identifier chanmodel.Identifier, channelAddress [20]byte) error

	// Ping probes whether identifier is currently reachable, used by the
	// Forwarding Engine's recipient-liveness check (§4.2 step 6b).
	Ping(ctx context.Context, identifier chanmodel.Identifier) (online bool, err error)

	// SendRestoreStateMessage asks `to` to serve its current state for
	// channelAddress, invoking whatever handler it registered via
	// OnReceiveRestoreRequest and returning its reply.
	SendRestoreStateMessage(ctx context.Context, to chanmodel.Identifier, channelAddress common.Address) (*RestoreReply, error)
	SendSetupMessage(ctx context.Context, to chanmodel.Identifier, update *chanmodel.Update) (*ProtocolReply, error)
	SendRequestCollateralMessage(ctx context.Context, to chanmodel.Identifier, channelAddress [20]byte, assetID chanmodel.AssetID, amount string) error
}
