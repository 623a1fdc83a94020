// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package mock

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vectorlabs/vectord/chanmodel"
	"github.com/vectorlabs/vectord/iface"
	"github.com/vectorlabs/vectord/vectorerr"
)

// Messaging is an in-process iface.Messaging that calls the handlers
// peers registered in the same process directly, useful for the
// standalone daemon's loopback mode and for tests exercising the full
// two-party protocol without a real transport.
type Messaging struct {
	mu              sync.RWMutex
	handlers        map[chanmodel.Identifier]iface.MessageHandler
	restoreHandlers map[chanmodel.Identifier]iface.RestoreRequestHandler
	online          map[chanmodel.Identifier]bool
}

// NewMessaging constructs an empty Messaging router.
func NewMessaging() *Messaging {
	return &Messaging{
		handlers:        make(map[chanmodel.Identifier]iface.MessageHandler),
		restoreHandlers: make(map[chanmodel.Identifier]iface.RestoreRequestHandler),
		online:          make(map[chanmodel.Identifier]bool),
	}
}

func (m *Messaging) OnReceiveProtocolMessage(identifier chanmodel.Identifier, handler iface.MessageHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[identifier] = handler
	m.online[identifier] = true
}

func (m *Messaging) OnReceiveRestoreRequest(identifier chanmodel.Identifier, handler iface.RestoreRequestHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restoreHandlers[identifier] = handler
	m.online[identifier] = true
}

// SetOnline marks identifier as reachable or not, for tests to simulate
// offline recipients (§4.2 Algorithm step 6b).
func (m *Messaging) SetOnline(identifier chanmodel.Identifier, online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[identifier] = online
}

func (m *Messaging) SendProtocolMessage(ctx context.Context, to chanmodel.Identifier, payload iface.ProtocolPayload, replyInbox string) (*iface.ProtocolReply, error) {
	m.mu.RLock()
	handler, ok := m.handlers[to]
	online := m.online[to]
	m.mu.RUnlock()
	if !ok || !online {
		return nil, vectorerr.New(vectorerr.KindTimeout, nil, map[string]interface{}{
			"reason": "recipient unreachable",
		})
	}
	reply := handler(ctx, payload, "", replyInbox)
	return &reply, nil
}

func (m *Messaging) SendIsAliveMessage(ctx context.Context, identifier chanmodel.Identifier, channelAddress [20]byte) error {
	return nil
}

func (m *Messaging) Ping(ctx context.Context, identifier chanmodel.Identifier) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online[identifier], nil
}

func (m *Messaging) SendRestoreStateMessage(ctx context.Context, to chanmodel.Identifier, channelAddress common.Address) (*iface.RestoreReply, error) {
	m.mu.RLock()
	handler, ok := m.restoreHandlers[to]
	online := m.online[to]
	m.mu.RUnlock()
	if !ok || !online {
		return nil, vectorerr.New(vectorerr.KindTimeout, nil, map[string]interface{}{
			"reason": "recipient unreachable",
		})
	}

	ch, active, err := handler(ctx, channelAddress)
	if err != nil {
		kind := vectorerr.KindOf(err).String()
		return &iface.RestoreReply{Err: &iface.ProtocolError{Kind: kind, Message: err.Error()}}, nil
	}
	return &iface.RestoreReply{Channel: ch, ActiveTransfers: active}, nil
}

func (m *Messaging) SendSetupMessage(ctx context.Context, to chanmodel.Identifier, update *chanmodel.Update) (*iface.ProtocolReply, error) {
	return &iface.ProtocolReply{Update: update}, nil
}

func (m *Messaging) SendRequestCollateralMessage(ctx context.Context, to chanmodel.Identifier, channelAddress [20]byte, assetID chanmodel.AssetID, amount string) error {
	return nil
}
