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

// nextNonce computes the nonce of the update about to be generated (§4.1
// Outbound Protocol step 2: "nonce = prev.nonce + 1 (setup: 1)").
func nextNonce(ch *chanmodel.Channel) uint64 {
	if ch == nil {
		return 1
	}
	return ch.Nonce + 1
}

// generateSetup builds the first signed update of a channel's history.
func generateSetup(params *SetupParams) *chanmodel.Update {
	// The counterparty rebuilds the channel's ChainID from the setup's
	// NetworkContext, so it must carry the channel's chain id.
	if params.NetworkContext.ChainID == 0 {
		params.NetworkContext.ChainID = params.ChainID
	}
	return &chanmodel.Update{
		ChannelAddress: params.ChannelAddress,
		FromIdentifier: params.AliceIdentifier,
		ToIdentifier:   params.BobIdentifier,
		Type:           chanmodel.UpdateSetup,
		Nonce:          1,
		Balance:        chanmodel.Balance{big.NewInt(0), big.NewInt(0)},
		Setup: &chanmodel.SetupDetails{
			Timeout:        params.Timeout,
			NetworkContext: params.NetworkContext,
			AliceAddress:   params.Alice,
			BobAddress:     params.Bob,
		},
	}
}

// generateDeposit reconciles on-chain deposits for params.AssetID against
// the channel's processed totals and builds the resulting update (§4.1
// Outbound Protocol step 2, "Reconcile deposits for deposit").
//
// isAlice identifies which side of the channel `self` (the leader) is; the
// reconciled delta is applied to that side only, per §8 scenario 2 where
// each party's own on-chain deposit reconciles independently into their
// own processed total.
func (e *Engine) generateDeposit(ctx context.Context, ch *chanmodel.Channel, params *DepositParams, isAlice bool) (*chanmodel.Update, error) {
	latest, err := e.Chain.LatestDepositByAssetID(ctx, ch.ChannelAddress, params.AssetID)
	if err != nil {
		return nil, vectorerr.Wrap(err, map[string]interface{}{
			"channelAddress": ch.ChannelAddress.Hex(),
			"assetId":        params.AssetID.Hex(),
		})
	}

	processedA := cloneOrZero(ch.ProcessedDepositsA[params.AssetID])
	processedB := cloneOrZero(ch.ProcessedDepositsB[params.AssetID])

	var delta *big.Int
	if isAlice {
		delta = new(big.Int).Sub(latest, processedA)
		processedA = latest
	} else {
		delta = new(big.Int).Sub(latest, processedB)
		processedB = latest
	}
	// A no-op deposit (delta == 0) is explicitly permitted (§4.1
	// "if zero, the update is still valid").
	if delta.Sign() < 0 {
		delta = big.NewInt(0)
	}

	bal := ch.BalanceOf(params.AssetID).Clone()
	if isAlice {
		bal[0] = new(big.Int).Add(bal[0], delta)
	} else {
		bal[1] = new(big.Int).Add(bal[1], delta)
	}

	from, to := ch.AliceIdentifier, ch.BobIdentifier
	if !isAlice {
		from, to = ch.BobIdentifier, ch.AliceIdentifier
	}

	return &chanmodel.Update{
		ChannelAddress: ch.ChannelAddress,
		FromIdentifier: from,
		ToIdentifier:   to,
		Type:           chanmodel.UpdateDeposit,
		Nonce:          nextNonce(ch),
		Balance:        bal,
		AssetID:        params.AssetID,
		Deposit: &chanmodel.DepositDetails{
			TotalDepositsAlice: processedA,
			TotalDepositsBob:   processedB,
		},
	}, nil
}

func cloneOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// generateCreate builds a create update: it derives the transfer id,
// computes the post-create balance and merkle root, and attaches the
// proof data the adjudicator would need (§4.1 Outbound Protocol step 2,
// "For create").
func (e *Engine) generateCreate(ctx context.Context, ch *chanmodel.Channel, active []*chanmodel.Transfer, params *CreateParams, isAlice bool) (update *chanmodel.Update, newTransfer *chanmodel.Transfer, newRoot common.Hash, err error) {
	nonce := nextNonce(ch)
	transferID := chanmodel.DeriveTransferID(ch.ChannelAddress, nonce, params.TransferDefinition, params.EncodedState)

	bal := ch.BalanceOf(params.AssetID).Clone()
	if isAlice {
		bal[0] = new(big.Int).Sub(bal[0], params.Amount)
	} else {
		bal[1] = new(big.Int).Sub(bal[1], params.Amount)
	}
	if bal[0].Sign() < 0 || bal[1].Sign() < 0 {
		return nil, nil, common.Hash{}, vectorerr.New(vectorerr.KindValidation, nil, map[string]interface{}{
			"reason":         "insufficient balance to create transfer",
			"channelAddress": ch.ChannelAddress.Hex(),
		})
	}

	transferBalance := chanmodel.Balance{new(big.Int).Set(params.Amount), big.NewInt(0)}

	newTransfer = &chanmodel.Transfer{
		TransferID:         transferID,
		ChannelAddress:     ch.ChannelAddress,
		Initiator:          params.Initiator,
		Responder:          params.Responder,
		TransferDefinition: params.TransferDefinition,
		TransferTimeout:    params.TransferTimeout,
		TransferState:      params.EncodedState,
		Balance:            transferBalance,
		AssetID:            params.AssetID,
		ChainID:            ch.ChainID,
		Meta:               params.Meta,
	}

	leaves := merkle.LeavesFromTransfers(append(append([]*chanmodel.Transfer{}, active...), newTransfer))
	root := merkle.Root(leaves)
	proof, index, _ := merkle.Proof(leaves, transferID)

	from, to := ch.AliceIdentifier, ch.BobIdentifier
	if !isAlice {
		from, to = ch.BobIdentifier, ch.AliceIdentifier
	}

	update = &chanmodel.Update{
		ChannelAddress: ch.ChannelAddress,
		FromIdentifier: from,
		ToIdentifier:   to,
		Type:           chanmodel.UpdateCreate,
		Nonce:          nonce,
		Balance:        bal,
		AssetID:        params.AssetID,
		Create: &chanmodel.CreateDetails{
			TransferID:         transferID,
			TransferDefinition: params.TransferDefinition,
			InitialState:       params.InitialState,
			TransferTimeout:    params.TransferTimeout,
			EncodedState:       params.EncodedState,
			MerkleProofData:    chanmodel.MerkleProofData{Proof: proof, Index: index},
			Meta:               params.Meta,
		},
	}
	return update, newTransfer, root, nil
}

// generateResolve builds a resolve update: it invokes the transfer
// definition's pure resolve semantics via the Chain Reader, computes the
// post-resolve balance and the merkle root over the transfer set with the
// resolved transfer removed (§4.1 Outbound Protocol step 2, "For
// resolve").
func (e *Engine) generateResolve(ctx context.Context, ch *chanmodel.Channel, active []*chanmodel.Transfer, params *ResolveParams, isAlice bool) (update *chanmodel.Update, resolvedTransfer *chanmodel.Transfer, newRoot common.Hash, err error) {
	var target *chanmodel.Transfer
	var remaining []*chanmodel.Transfer
	for _, t := range active {
		if t.TransferID == params.TransferID {
			target = t
			continue
		}
		remaining = append(remaining, t)
	}
	if target == nil {
		return nil, nil, common.Hash{}, vectorerr.New(vectorerr.KindTransferNotFound, nil, map[string]interface{}{
			"transferId": params.TransferID.Hex(),
		})
	}

	postResolveTransferBalance, resolveErr := e.Chain.ResolveTransfer(ctx, target.TransferDefinition, target.TransferState, params.Resolver, target.Balance)
	if resolveErr != nil {
		return nil, nil, common.Hash{}, vectorerr.Wrap(resolveErr, map[string]interface{}{
			"transferId": params.TransferID.Hex(),
		})
	}

	// The resolver's payout is expressed as an absolute [alice, bob]
	// distribution of the locked amount, independent of which side is
	// leading this update, so it is simply added into channel balances.
	bal := ch.BalanceOf(target.AssetID).Clone()
	bal[0] = new(big.Int).Add(bal[0], postResolveTransferBalance[0])
	bal[1] = new(big.Int).Add(bal[1], postResolveTransferBalance[1])

	root := merkle.Root(merkle.LeavesFromTransfers(remaining))

	resolved := *target
	resolved.TransferResolver = params.Resolver
	resolved.Balance = postResolveTransferBalance

	from, to := ch.AliceIdentifier, ch.BobIdentifier
	if !isAlice {
		from, to = ch.BobIdentifier, ch.AliceIdentifier
	}

	update = &chanmodel.Update{
		ChannelAddress: ch.ChannelAddress,
		FromIdentifier: from,
		ToIdentifier:   to,
		Type:           chanmodel.UpdateResolve,
		Nonce:          nextNonce(ch),
		Balance:        bal,
		AssetID:        target.AssetID,
		Resolve: &chanmodel.ResolveDetails{
			TransferID: params.TransferID,
			Resolver:   params.Resolver,
			MerkleRoot: root,
			Meta:       params.Meta,
		},
	}
	return update, &resolved, root, nil
}
