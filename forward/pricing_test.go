// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package forward

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestGetSwappedAmountSameAssetIsIdentity(t *testing.T) {
	asset := common.HexToAddress("0x01")
	key := PriceKey{FromChainID: 1, FromAssetID: asset, ToChainID: 1, ToAssetID: asset}

	out, err := getSwappedAmount(nil, key, big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1000), out)
}

func TestGetSwappedAmountAppliesRate(t *testing.T) {
	from := common.HexToAddress("0x01")
	to := common.HexToAddress("0x02")
	key := PriceKey{FromChainID: 1, FromAssetID: from, ToChainID: 2, ToAssetID: to}
	table := PricingTable{key: 1005} // 1.005x

	out, err := getSwappedAmount(table, key, big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1005), out)
}

func TestGetSwappedAmountMissingRateFails(t *testing.T) {
	from := common.HexToAddress("0x01")
	to := common.HexToAddress("0x02")
	key := PriceKey{FromChainID: 1, FromAssetID: from, ToChainID: 2, ToAssetID: to}

	_, err := getSwappedAmount(PricingTable{}, key, big.NewInt(1000))
	require.Error(t, err)
}
