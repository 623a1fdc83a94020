// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package engine

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vectorlabs/vectord/chanmodel"
	"github.com/vectorlabs/vectord/merkle"
	"github.com/vectorlabs/vectord/vectorerr"
)

func channelAddressOf(params UpdateParams) common.Address {
	switch {
	case params.Setup != nil:
		return params.Setup.ChannelAddress
	case params.Deposit != nil:
		return params.Deposit.ChannelAddress
	case params.Create != nil:
		return params.Create.ChannelAddress
	default:
		return params.Resolve.ChannelAddress
	}
}

// isLeaderAlice resolves whether this node is leading the update as
// Alice. For setup it is decided directly by the params (the node
// constructing the channel knows its own role); otherwise it is resolved
// against the self signer's address and the channel's recorded
// participants.
func (e *Engine) isLeaderAlice(ctx context.Context, params UpdateParams) bool {
	if params.Setup != nil {
		return e.Self.Address() == params.Setup.Alice
	}
	ch, err := e.Store.GetChannelState(ctx, channelAddressOf(params))
	if err != nil || ch == nil {
		return true
	}
	return ch.IsAlice(e.Self.Address())
}

// counterpartyOf resolves the routing identifier of the other party to
// the update, used both for the Lock Service call and for addressing the
// outbound message.
func (e *Engine) counterpartyOf(ctx context.Context, params UpdateParams) chanmodel.Identifier {
	if params.Setup != nil {
		if e.Self.Address() == params.Setup.Alice {
			return params.Setup.BobIdentifier
		}
		return params.Setup.AliceIdentifier
	}
	ch, err := e.Store.GetChannelState(ctx, channelAddressOf(params))
	if err != nil || ch == nil {
		return ""
	}
	if ch.IsAlice(e.Self.Address()) {
		return ch.BobIdentifier
	}
	return ch.AliceIdentifier
}

func (e *Engine) counterpartySignerOf(ch *chanmodel.Channel, params UpdateParams, isAlice bool) common.Address {
	if params.Setup != nil {
		if isAlice {
			return params.Setup.Bob
		}
		return params.Setup.Alice
	}
	return ch.Counterparty(e.Self.Address())
}

func counterpartySignature(u *chanmodel.Update, leaderIsAlice bool) chanmodel.Signature {
	if leaderIsAlice {
		return u.BobSignature
	}
	return u.AliceSignature
}

func replyInboxFor(u *chanmodel.Update) string {
	return "protocol/" + u.ChannelAddress.Hex() + "/" + string(u.FromIdentifier) + "/reply"
}

// conserveBalance enforces §3's balance-conservation invariant for
// non-setup, non-deposit updates (§8 "Balance conservation: for every
// non-setup, non-deposit update, Sigma balances before = Sigma balances
// after") and non-negativity for every update. Channel value for an asset
// is the channel balance plus whatever is locked in that asset's active
// transfers, since create/resolve move value between the two rather than
// changing the total: before and active are the pre-update channel and
// its active transfer set; added/removed describe how the transfer set
// changes as a result of u.
func conserveBalance(ch *chanmodel.Channel, active []*chanmodel.Transfer, added []*chanmodel.Transfer, removed []common.Hash, u *chanmodel.Update) error {
	if u.Balance[0].Sign() < 0 || u.Balance[1].Sign() < 0 {
		return vectorerr.New(vectorerr.KindValidation, nil, map[string]interface{}{
			"reason": "negative balance",
		})
	}
	if u.Type == chanmodel.UpdateSetup || u.Type == chanmodel.UpdateDeposit {
		return nil
	}
	if ch == nil {
		return vectorerr.New(vectorerr.KindValidation, nil, map[string]interface{}{
			"reason": "missing channel for conservation check",
		})
	}

	removedSet := make(map[common.Hash]bool, len(removed))
	for _, id := range removed {
		removedSet[id] = true
	}

	before := new(big.Int).Set(ch.BalanceOf(u.AssetID).Sum())
	for _, t := range active {
		if t.AssetID == u.AssetID {
			before.Add(before, t.Balance.Sum())
		}
	}

	// The resulting active-transfer set is active with removed entries
	// deleted and added entries inserted; after must sum the whole set,
	// not just the entries u touched, or a channel's other concurrent
	// active transfers of the same asset vanish from the sum. A resolve
	// reports its resolved transfer in both added (its folded payout,
	// for the event/signature path) and removed (it leaves the active
	// set); removedSet wins that overlap since its value is already
	// folded into u.Balance, not left sitting in the active set.
	resulting := make(map[common.Hash]*chanmodel.Transfer, len(active))
	for _, t := range active {
		if !removedSet[t.TransferID] {
			resulting[t.TransferID] = t
		}
	}
	for _, t := range added {
		if !removedSet[t.TransferID] {
			resulting[t.TransferID] = t
		}
	}

	after := new(big.Int).Set(u.Balance.Sum())
	for _, t := range resulting {
		if t.AssetID == u.AssetID {
			after.Add(after, t.Balance.Sum())
		}
	}

	if before.Cmp(after) != 0 {
		return vectorerr.New(vectorerr.KindValidation, nil, map[string]interface{}{
			"reason": "balance not conserved",
			"before": before.String(),
			"after":  after.String(),
		})
	}
	return nil
}

func kindFromWire(kind string) vectorerr.Kind {
	switch kind {
	case "StaleUpdate":
		return vectorerr.KindStaleUpdate
	case "RestoreNeeded":
		return vectorerr.KindRestoreNeeded
	case "BadSignatures":
		return vectorerr.KindBadSignatures
	case "ValidationError":
		return vectorerr.KindValidation
	case "Dispute":
		return vectorerr.KindDispute
	default:
		return vectorerr.KindExternal
	}
}

// applyUpdateToChannel folds update into the channel's durable state,
// producing the new Channel value to persist. ch is nil only for setup.
func applyUpdateToChannel(ch *chanmodel.Channel, u *chanmodel.Update, newRoot common.Hash, params UpdateParams) *chanmodel.Channel {
	if ch == nil {
		sp := params.Setup
		alice, bob := sp.Alice, sp.Bob
		if u.Setup != nil {
			if (alice == common.Address{}) {
				alice = u.Setup.AliceAddress
			}
			if (bob == common.Address{}) {
				bob = u.Setup.BobAddress
			}
		}
		return &chanmodel.Channel{
			ChannelAddress:     sp.ChannelAddress,
			AliceIdentifier:    sp.AliceIdentifier,
			BobIdentifier:      sp.BobIdentifier,
			Alice:              alice,
			Bob:                bob,
			ChainID:            sp.ChainID,
			NetworkContext:     sp.NetworkContext,
			Nonce:              1,
			LatestUpdate:       u,
			Balances:           map[chanmodel.AssetID]chanmodel.Balance{},
			ProcessedDepositsA: map[chanmodel.AssetID]*big.Int{},
			ProcessedDepositsB: map[chanmodel.AssetID]*big.Int{},
			MerkleRoot:         merkle.EmptyRoot,
			Timeout:            sp.Timeout,
		}
	}

	newCh := *ch
	newCh.Nonce = u.Nonce
	newCh.LatestUpdate = u

	newBalances := make(map[chanmodel.AssetID]chanmodel.Balance, len(ch.Balances))
	for k, v := range ch.Balances {
		newBalances[k] = v
	}
	newProcessedA := make(map[chanmodel.AssetID]*big.Int, len(ch.ProcessedDepositsA))
	for k, v := range ch.ProcessedDepositsA {
		newProcessedA[k] = v
	}
	newProcessedB := make(map[chanmodel.AssetID]*big.Int, len(ch.ProcessedDepositsB))
	for k, v := range ch.ProcessedDepositsB {
		newProcessedB[k] = v
	}

	switch u.Type {
	case chanmodel.UpdateDeposit:
		newBalances[u.AssetID] = u.Balance
		newProcessedA[u.AssetID] = u.Deposit.TotalDepositsAlice
		newProcessedB[u.AssetID] = u.Deposit.TotalDepositsBob
	case chanmodel.UpdateCreate, chanmodel.UpdateResolve:
		newBalances[u.AssetID] = u.Balance
		newCh.MerkleRoot = newRoot
	}

	assetKnown := false
	for _, a := range newCh.AssetIDs {
		if a == u.AssetID {
			assetKnown = true
			break
		}
	}
	if !assetKnown && (u.Type == chanmodel.UpdateDeposit) {
		newCh.AssetIDs = append(append([]chanmodel.AssetID{}, ch.AssetIDs...), u.AssetID)
	}

	newCh.Balances = newBalances
	newCh.ProcessedDepositsA = newProcessedA
	newCh.ProcessedDepositsB = newProcessedB
	return &newCh
}
