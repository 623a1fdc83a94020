// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

// Package forward implements §4.2, the Forwarding Engine: it translates
// an observed create on a sender-side channel into a correct create on
// the recipient-side channel, handles swap/collateralization, offline
// queueing, resolution, cancellation and the check-in drain.
package forward

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vectorlabs/vectord/chanmodel"
)

// TransferDecrement is the fixed safety margin subtracted from the
// sender's timeout when constructing the outgoing transfer, guaranteeing
// the router can still resolve on the sender side after the recipient
// resolves (§4.2 Algorithm step 5).
const TransferDecrement = 3600

// RebalanceProfile configures the collateralization/reclaim thresholds
// for one (chain, asset) pair the router maintains liquidity for (§6
// Configuration, §C supplemented feature).
type RebalanceProfile struct {
	ChainID                uint64
	AssetID                chanmodel.AssetID
	ReclaimThreshold       *big.Int
	Target                 *big.Int
	CollateralizeThreshold *big.Int
}

// SwapPair names one (fromChain, fromAsset) -> (toChain, toAsset)
// conversion the router is willing to perform, per §6 Configuration
// "allowedSwaps".
type SwapPair struct {
	FromChainID uint64
	FromAssetID chanmodel.AssetID
	ToChainID   uint64
	ToAssetID   chanmodel.AssetID
}

// Config is the Forwarding Engine's static configuration.
type Config struct {
	RouterSignerAddress common.Address
	RebalanceProfiles   []RebalanceProfile
	AllowedSwaps        []SwapPair
	MaxCollateral       map[chanmodel.AssetID]*big.Int
	SkipCheckIn         bool
}

func (c Config) profileFor(chainID uint64, assetID chanmodel.AssetID) (RebalanceProfile, bool) {
	for _, p := range c.RebalanceProfiles {
		if p.ChainID == chainID && p.AssetID == assetID {
			return p, true
		}
	}
	return RebalanceProfile{}, false
}

// needsCollateral reports whether the router must request a deposit
// before it can cover amount in assetId on the recipient channel,
// consulting the configured collateralize threshold (§4.2 Algorithm step
// 6a).
func needsCollateral(profile RebalanceProfile, currentBalance, amount *big.Int) bool {
	projected := new(big.Int).Sub(currentBalance, amount)
	return projected.Cmp(profile.CollateralizeThreshold) < 0
}

// needsReclaim reports whether the router's balance on a channel has
// grown past the reclaim threshold and on-chain withdrawal should be
// considered. The Forwarding Engine does not call it; only this package's
// tests do.
func needsReclaim(profile RebalanceProfile, currentBalance *big.Int) bool {
	return currentBalance.Cmp(profile.ReclaimThreshold) > 0
}

// isSwapAllowed reports whether the router is configured to convert
// between the given chain/asset pairs.
func (c Config) isSwapAllowed(fromChainID uint64, fromAsset chanmodel.AssetID, toChainID uint64, toAsset chanmodel.AssetID) bool {
	for _, s := range c.AllowedSwaps {
		if s.FromChainID == fromChainID && s.FromAssetID == fromAsset &&
			s.ToChainID == toChainID && s.ToAssetID == toAsset {
			return true
		}
	}
	return false
}
