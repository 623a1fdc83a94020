// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package forward

import (
	"math/big"

	"github.com/vectorlabs/vectord/chanmodel"
	"github.com/vectorlabs/vectord/vectorerr"
)

// pricePrecision is the fixed-point scale conversion rates are expressed
// in: a rate of 1005 with pricePrecision=1000 means "1.005 units of `to`
// per unit of `from`".
const pricePrecision = 1000

// PriceKey identifies one directed (chain, asset) -> (chain, asset)
// conversion in a PricingTable.
type PriceKey struct {
	FromChainID uint64
	FromAssetID chanmodel.AssetID
	ToChainID   uint64
	ToAssetID   chanmodel.AssetID
}

// PricingTable is the configured conversion-rate source §4.2 Algorithm
// step 3 consults. Rates are expressed as integer ratios scaled by
// pricePrecision to avoid floating point in balance-affecting math.
type PricingTable map[PriceKey]int64

// getSwappedAmount is the pure conversion function of §4.2 Algorithm step
// 3: "compute the converted amount via a pure getSwappedAmount function
// that consults a configured pricing table."
func getSwappedAmount(table PricingTable, key PriceKey, amount *big.Int) (*big.Int, error) {
	if key.FromChainID == key.ToChainID && key.FromAssetID == key.ToAssetID {
		return new(big.Int).Set(amount), nil
	}
	rate, ok := table[key]
	if !ok {
		return nil, vectorerr.New(vectorerr.KindExternal, nil, map[string]interface{}{
			"reason":      "UnableToCalculateSwap",
			"fromChainId": key.FromChainID,
			"toChainId":   key.ToChainID,
		})
	}
	out := new(big.Int).Mul(amount, big.NewInt(rate))
	out.Div(out, big.NewInt(pricePrecision))
	return out, nil
}
