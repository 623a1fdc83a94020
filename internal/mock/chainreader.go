// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package mock

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vectorlabs/vectord/chanmodel"
	"github.com/vectorlabs/vectord/iface"
	"github.com/vectorlabs/vectord/vectorerr"
)

// ChainReader is an in-memory iface.ChainReader: deposits, the transfer
// registry and dispute state are all driven by direct setter calls
// rather than a real RPC client, exercising the same call sites a real
// implementation would serve.
type ChainReader struct {
	mu        sync.RWMutex
	deposits  map[common.Address]map[chanmodel.AssetID]*big.Int
	registry  map[uint64]map[string]common.Address
	disputes  map[common.Address]*iface.DisputeRecord
	resolvers map[common.Address]func(initialState, resolver []byte, balance chanmodel.Balance) (chanmodel.Balance, error)
	cancelers map[common.Address][]byte
}

// NewChainReader constructs an empty ChainReader.
func NewChainReader() *ChainReader {
	return &ChainReader{
		deposits:  make(map[common.Address]map[chanmodel.AssetID]*big.Int),
		registry:  make(map[uint64]map[string]common.Address),
		disputes:  make(map[common.Address]*iface.DisputeRecord),
		resolvers: make(map[common.Address]func(initialState, resolver []byte, balance chanmodel.Balance) (chanmodel.Balance, error)),
		cancelers: make(map[common.Address][]byte),
	}
}

// SetDeposit records the total on-chain deposit for channelAddress/assetID
// as observed on-chain, for generateDeposit's reconciliation.
func (c *ChainReader) SetDeposit(channelAddress common.Address, assetID chanmodel.AssetID, total *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byAsset, ok := c.deposits[channelAddress]
	if !ok {
		byAsset = make(map[chanmodel.AssetID]*big.Int)
		c.deposits[channelAddress] = byAsset
	}
	byAsset[assetID] = total
}

// RegisterTransferDefinition adds name -> definition for chainID, and a
// resolve function plus canonical cancel resolver for that definition.
func (c *ChainReader) RegisterTransferDefinition(chainID uint64, name string, definition common.Address,
	resolve func(initialState, resolver []byte, balance chanmodel.Balance) (chanmodel.Balance, error), cancelResolver []byte) {

	c.mu.Lock()
	defer c.mu.Unlock()
	byName, ok := c.registry[chainID]
	if !ok {
		byName = make(map[string]common.Address)
		c.registry[chainID] = byName
	}
	byName[name] = definition
	c.resolvers[definition] = resolve
	c.cancelers[definition] = cancelResolver
}

func (c *ChainReader) GetChannelAddress(ctx context.Context, alice, bob, factory common.Address, chainID uint64) (common.Address, error) {
	return chanmodel.DeriveChannelAddress(alice, bob, factory, chainID), nil
}

func (c *ChainReader) GetRegisteredTransfers(ctx context.Context, chainID uint64) (map[string]common.Address, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]common.Address, len(c.registry[chainID]))
	for k, v := range c.registry[chainID] {
		out[k] = v
	}
	return out, nil
}

func (c *ChainReader) GetChannelDispute(ctx context.Context, channelAddress common.Address) (*iface.DisputeRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disputes[channelAddress], nil
}

func (c *ChainReader) LatestDepositByAssetID(ctx context.Context, channelAddress common.Address, assetID chanmodel.AssetID) (*big.Int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if byAsset, ok := c.deposits[channelAddress]; ok {
		if v, ok := byAsset[assetID]; ok {
			return new(big.Int).Set(v), nil
		}
	}
	return big.NewInt(0), nil
}

func (c *ChainReader) GetSyncing(ctx context.Context, chainID uint64) (bool, error) {
	return false, nil
}

func (c *ChainReader) ResolveTransfer(ctx context.Context, definition common.Address, initialState, resolver []byte, balance chanmodel.Balance) (chanmodel.Balance, error) {
	c.mu.RLock()
	fn, ok := c.resolvers[definition]
	c.mu.RUnlock()
	if !ok {
		return chanmodel.Balance{}, vectorerr.New(vectorerr.KindInvalidTransferType, nil, map[string]interface{}{
			"definition": definition.Hex(),
		})
	}
	return fn(initialState, resolver, balance)
}

func (c *ChainReader) CancelResolverFor(ctx context.Context, definition common.Address) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	resolver, ok := c.cancelers[definition]
	if !ok {
		return nil, vectorerr.New(vectorerr.KindInvalidTransferType, nil, map[string]interface{}{
			"definition": definition.Hex(),
		})
	}
	return resolver, nil
}

var _ iface.ChainReader = (*ChainReader)(nil)
