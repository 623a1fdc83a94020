// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

// Package memstore is an in-memory reference implementation of
// iface.Store, suitable for the standalone daemon and for tests. It is
// grounded on the teacher's channeldb in spirit only (lock discipline,
// atomic multi-row writes) — the backing structures here are plain Go
// maps rather than a kv database, since persistence itself is out of
// scope per §1.
package memstore

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vectorlabs/vectord/chanmodel"
	"github.com/vectorlabs/vectord/iface"
)

// Store is a mutex-guarded in-memory implementation of iface.Store.
type Store struct {
	mu sync.RWMutex

	channels      map[common.Address]*chanmodel.Channel
	byIdentifier  map[chanmodel.Identifier]common.Address
	transfers     map[common.Hash]*chanmodel.Transfer
	transfersByCh map[common.Address]map[common.Hash]bool
	byRoutingID   map[string][]common.Hash
	queue         map[string]*chanmodel.QueuedRouterUpdate
	queueOrder    []string
	disputes      map[common.Address]*iface.DisputeRecord
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		channels:      make(map[common.Address]*chanmodel.Channel),
		byIdentifier:  make(map[chanmodel.Identifier]common.Address),
		transfers:     make(map[common.Hash]*chanmodel.Transfer),
		transfersByCh: make(map[common.Address]map[common.Hash]bool),
		byRoutingID:   make(map[string][]common.Hash),
		queue:         make(map[string]*chanmodel.QueuedRouterUpdate),
		disputes:      make(map[common.Address]*iface.DisputeRecord),
	}
}

var _ iface.Store = (*Store)(nil)

func (s *Store) GetChannelState(ctx context.Context, channelAddress common.Address) (*chanmodel.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channels[channelAddress], nil
}

func (s *Store) GetChannelStateByParticipants(ctx context.Context, alice, bob common.Address, chainID uint64) (*chanmodel.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.channels {
		if ch.ChainID == chainID && ((ch.Alice == alice && ch.Bob == bob) || (ch.Alice == bob && ch.Bob == alice)) {
			return ch, nil
		}
	}
	return nil, nil
}

func (s *Store) GetChannelStateByIdentifier(ctx context.Context, counterparty chanmodel.Identifier, chainID uint64) (*chanmodel.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.channels {
		if ch.ChainID == chainID && (ch.AliceIdentifier == counterparty || ch.BobIdentifier == counterparty) {
			return ch, nil
		}
	}
	return nil, nil
}

func (s *Store) GetActiveTransfers(ctx context.Context, channelAddress common.Address) ([]*chanmodel.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.transfersByCh[channelAddress]
	out := make([]*chanmodel.Transfer, 0, len(ids))
	for id := range ids {
		if t, ok := s.transfers[id]; ok && !t.Resolved() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) GetTransferState(ctx context.Context, transferID common.Hash) (*chanmodel.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transfers[transferID], nil
}

func (s *Store) GetTransfersByRoutingID(ctx context.Context, routingID string) ([]*chanmodel.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byRoutingID[routingID]
	out := make([]*chanmodel.Transfer, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.transfers[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) SaveChannelStateAndTransfers(ctx context.Context, channel *chanmodel.Channel, addedOrUpdated []*chanmodel.Transfer, removed []common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.channels[channel.ChannelAddress] = channel
	s.byIdentifier[channel.AliceIdentifier] = channel.ChannelAddress
	s.byIdentifier[channel.BobIdentifier] = channel.ChannelAddress

	set, ok := s.transfersByCh[channel.ChannelAddress]
	if !ok {
		set = make(map[common.Hash]bool)
		s.transfersByCh[channel.ChannelAddress] = set
	}

	for _, t := range addedOrUpdated {
		s.transfers[t.TransferID] = t
		set[t.TransferID] = true
		if rm, ok := chanmodel.GetRoutingMeta(t.Meta); ok && rm.RoutingID != "" {
			s.byRoutingID[rm.RoutingID] = appendUnique(s.byRoutingID[rm.RoutingID], t.TransferID)
		}
	}
	for _, id := range removed {
		delete(set, id)
	}
	return nil
}

func appendUnique(ids []common.Hash, id common.Hash) []common.Hash {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func (s *Store) GetQueuedUpdates(ctx context.Context, channelAddress common.Address, status chanmodel.QueuedUpdateStatus) ([]*chanmodel.QueuedRouterUpdate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*chanmodel.QueuedRouterUpdate
	for _, id := range s.queueOrder {
		q, ok := s.queue[id]
		if !ok || q.ChannelAddress != channelAddress || q.Status != status {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *Store) QueueUpdate(ctx context.Context, update *chanmodel.QueuedRouterUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue[update.ID] = update
	s.queueOrder = append(s.queueOrder, update.ID)
	return nil
}

func (s *Store) SetUpdateStatus(ctx context.Context, id string, status chanmodel.QueuedUpdateStatus, failureReason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queue[id]
	if !ok {
		return nil
	}
	q.Status = status
	q.LastFailureReason = failureReason
	return nil
}

func (s *Store) SaveChannelDispute(ctx context.Context, channelAddress common.Address, dispute *iface.DisputeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disputes[channelAddress] = dispute
	if ch, ok := s.channels[channelAddress]; ok {
		ch.InDispute = true
	}
	return nil
}
