// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package forward

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestNeedsCollateral(t *testing.T) {
	profile := RebalanceProfile{CollateralizeThreshold: big.NewInt(100)}

	require.True(t, needsCollateral(profile, big.NewInt(150), big.NewInt(100)), "projected balance of 50 is below threshold")
	require.False(t, needsCollateral(profile, big.NewInt(300), big.NewInt(100)), "projected balance of 200 clears threshold")
}

func TestNeedsReclaim(t *testing.T) {
	profile := RebalanceProfile{ReclaimThreshold: big.NewInt(1000)}

	require.True(t, needsReclaim(profile, big.NewInt(1500)))
	require.False(t, needsReclaim(profile, big.NewInt(500)))
}

func TestIsSwapAllowed(t *testing.T) {
	from := common.HexToAddress("0x01")
	to := common.HexToAddress("0x02")
	cfg := Config{AllowedSwaps: []SwapPair{
		{FromChainID: 1, FromAssetID: from, ToChainID: 2, ToAssetID: to},
	}}

	require.True(t, cfg.isSwapAllowed(1, from, 2, to))
	require.False(t, cfg.isSwapAllowed(2, to, 1, from), "swap pairs are directional")
}

func TestProfileFor(t *testing.T) {
	asset := common.HexToAddress("0x01")
	cfg := Config{RebalanceProfiles: []RebalanceProfile{
		{ChainID: 1, AssetID: asset, Target: big.NewInt(500)},
	}}

	profile, ok := cfg.profileFor(1, asset)
	require.True(t, ok)
	require.Equal(t, big.NewInt(500), profile.Target)

	_, ok = cfg.profileFor(2, asset)
	require.False(t, ok)
}
