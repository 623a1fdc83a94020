// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/vectorlabs/vectord/chanmodel"
	"github.com/vectorlabs/vectord/iface"
)

// LockService is an in-process iface.LockService: a named mutex per lock
// name, standing in for a real distributed lock (etcd/redis) out of scope
// per §1. It is not reentrant: AcquireLock on a name that is already held
// blocks until that lock is released, whoever the caller is.
type LockService struct {
	mu    sync.Mutex
	locks map[string]*heldLock
}

type heldLock struct {
	owner sync.Mutex
	key   string
	held  bool
}

// NewLockService constructs an empty LockService.
func NewLockService() *LockService {
	return &LockService{locks: make(map[string]*heldLock)}
}

func (l *LockService) namedLock(name string) *heldLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	hl, ok := l.locks[name]
	if !ok {
		hl = &heldLock{}
		l.locks[name] = hl
	}
	return hl
}

func (l *LockService) AcquireLock(ctx context.Context, name string, isAlice bool, counterpartyIdentifier chanmodel.Identifier) (string, error) {
	hl := l.namedLock(name)
	hl.owner.Lock()
	key := uuid.NewString()
	hl.key = key
	hl.held = true
	return key, nil
}

func (l *LockService) ReleaseLock(ctx context.Context, name, key string, isAlice bool, counterpartyIdentifier chanmodel.Identifier) error {
	hl := l.namedLock(name)
	if !hl.held || hl.key != key {
		return nil
	}
	hl.held = false
	hl.owner.Unlock()
	return nil
}

var _ iface.LockService = (*LockService)(nil)
