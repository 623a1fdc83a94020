// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

// Package chanmodel holds the data model of §3: Channel, Transfer, Update
// and the routing metadata carried inside a transfer's meta blob. These
// types never embed pointers to one another (per §9 "Cyclic/back
// references") — a Channel holds no references to its Transfers and a
// Transfer references its Channel by ChannelAddress; every lookup goes
// through the Store interface in package iface.
package chanmodel

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetID identifies a fungible asset within a channel. On an EVM chain
// this is the ERC20 contract address (or the zero address for the native
// asset), following the convention go-ethereum's own tooling uses for
// "token address" fields.
type AssetID = common.Address

// Identifier is a routing-layer public identifier for a channel
// participant (distinct from the signer address used on updates, mirroring
// §3's separate aliceIdentifier/alice fields).
type Identifier string

// Balance is the two-party balance vector [Alice, Bob] for one asset,
// using *big.Int the way go-ethereum represents wei-denominated amounts.
type Balance [2]*big.Int

// Clone returns a deep copy of the balance vector.
func (b Balance) Clone() Balance {
	return Balance{new(big.Int).Set(b[0]), new(big.Int).Set(b[1])}
}

// Sum returns Alice's balance plus Bob's balance.
func (b Balance) Sum() *big.Int {
	return new(big.Int).Add(b[0], b[1])
}

// NetworkContext pins a channel to an on-chain deployment: the
// channel-factory and transfer-registry addresses, plus the provider URL
// the Chain Reader uses to reach that chain.
type NetworkContext struct {
	ChainID                uint64
	ChannelFactoryAddress  common.Address
	TransferRegistryAddress common.Address
	ProviderURL            string
}

// Channel is the durable state of a two-party payment channel, per §3.
type Channel struct {
	ChannelAddress common.Address
	AliceIdentifier Identifier
	BobIdentifier  Identifier
	Alice          common.Address
	Bob            common.Address
	ChainID        uint64
	NetworkContext NetworkContext

	// Nonce is strictly increasing by 1 per applied update; setup
	// initializes it to 1.
	Nonce uint64

	LatestUpdate *Update

	// Balances is keyed by AssetID; each value is the [Alice, Bob]
	// balance vector for that asset.
	Balances map[AssetID]Balance

	// ProcessedDepositsA/B is the cumulative reconciled on-chain deposit
	// total per asset, used to compute the monotonic delta on each new
	// deposit update (§4.1 Outbound Protocol step 2).
	ProcessedDepositsA map[AssetID]*big.Int
	ProcessedDepositsB map[AssetID]*big.Int

	AssetIDs []AssetID

	MerkleRoot common.Hash
	Timeout    uint64
	InDispute  bool
}

// BalanceOf returns the current balance vector for assetID, or a
// zero-valued vector if the asset has never been deposited.
func (c *Channel) BalanceOf(assetID AssetID) Balance {
	if b, ok := c.Balances[assetID]; ok {
		return b
	}
	return Balance{big.NewInt(0), big.NewInt(0)}
}

// IsAlice reports whether addr is the Alice participant of the channel.
func (c *Channel) IsAlice(addr common.Address) bool {
	return addr == c.Alice
}

// Counterparty returns the signer address of the participant that is not
// self.
func (c *Channel) Counterparty(self common.Address) common.Address {
	if self == c.Alice {
		return c.Bob
	}
	return c.Alice
}

// UpdateType is the tagged variant over the four kinds of channel update
// (§3, §9 "Polymorphism over update kinds"). Dispatch over UpdateType must
// be exhaustive everywhere it appears.
type UpdateType int

const (
	UpdateSetup UpdateType = iota
	UpdateDeposit
	UpdateCreate
	UpdateResolve
)

func (t UpdateType) String() string {
	switch t {
	case UpdateSetup:
		return "setup"
	case UpdateDeposit:
		return "deposit"
	case UpdateCreate:
		return "create"
	case UpdateResolve:
		return "resolve"
	default:
		return "unknown"
	}
}

// SetupDetails carries the variant-specific fields of a setup update.
// AliceAddress/BobAddress are carried alongside Timeout/NetworkContext so
// that a peer receiving the very first update for a channel it knows
// nothing about yet can populate Channel.Alice/Bob without a separate
// round trip; §3 only names timeout+networkContext, this is this
// implementation's resolution of that gap (recorded in DESIGN.md).
type SetupDetails struct {
	Timeout        uint64
	NetworkContext NetworkContext
	AliceAddress   common.Address
	BobAddress     common.Address
}

// DepositDetails carries the variant-specific fields of a deposit update.
type DepositDetails struct {
	TotalDepositsAlice *big.Int
	TotalDepositsBob   *big.Int
}

// MerkleProofData is the adjudicator-facing proof that a transfer is a
// member of the tree committed to by MerkleRoot, per §4.1 "Transfer
// Identity and Merkle Commitment".
type MerkleProofData struct {
	Proof [][]byte
	Index uint64
}

// CreateDetails carries the variant-specific fields of a create update.
type CreateDetails struct {
	TransferID         common.Hash
	TransferDefinition common.Address
	InitialState       []byte
	TransferTimeout    uint64
	EncodedState       []byte
	MerkleProofData    MerkleProofData
	Meta               map[string]interface{}
}

// ResolveDetails carries the variant-specific fields of a resolve update.
type ResolveDetails struct {
	TransferID common.Hash
	Resolver   []byte
	MerkleRoot common.Hash
	Meta       map[string]interface{}
}

// Signature is a 65-byte EIP-191 recoverable signature, the shape
// go-ethereum's crypto.Sign/Ecrecover produce and consume.
type Signature []byte

// Update is a single signed state transition of a channel (§3). Exactly
// one of the Details fields is populated, selected by Type.
type Update struct {
	ChannelAddress common.Address
	FromIdentifier Identifier
	ToIdentifier   Identifier
	Type           UpdateType
	Nonce          uint64
	Balance        Balance
	AssetID        AssetID

	Setup    *SetupDetails
	Deposit  *DepositDetails
	Create   *CreateDetails
	Resolve  *ResolveDetails

	AliceSignature Signature
	BobSignature   Signature
}

// SetSignature stores sig in the signature slot of the participant
// identified by isAlice: AliceSignature when true, BobSignature otherwise.
func (u *Update) SetSignature(isAlice bool, sig Signature) {
	if isAlice {
		u.AliceSignature = sig
	} else {
		u.BobSignature = sig
	}
}

// FullySigned reports whether both signature slots are populated.
func (u *Update) FullySigned() bool {
	return len(u.AliceSignature) > 0 && len(u.BobSignature) > 0
}

// Transfer is a conditional payment locked by a transfer definition's
// predicate, per §3.
type Transfer struct {
	TransferID         common.Hash
	ChannelAddress     common.Address
	Initiator          common.Address
	Responder          common.Address
	TransferDefinition common.Address
	TransferTimeout    uint64
	InitialStateHash   common.Hash
	TransferState      []byte
	TransferResolver   []byte // nil until resolved
	Balance            Balance
	AssetID            AssetID
	ChainID            uint64
	Meta               map[string]interface{}
	InDispute          bool
}

// Resolved reports whether the transfer has an attached resolver.
func (t *Transfer) Resolved() bool {
	return len(t.TransferResolver) > 0
}

// RoutingPathHop is one hop of a routed payment's path (§3 RoutingMeta).
type RoutingPathHop struct {
	Recipient          Identifier
	RecipientAssetID   *AssetID
	RecipientChainID   *uint64
}

// RoutingMeta is the routing-specific payload carried in Transfer.Meta
// under the "routing" key.
type RoutingMeta struct {
	RoutingID        string
	Path             []RoutingPathHop
	RequireOnline    bool
	SenderIdentifier Identifier
}

const routingMetaKey = "routing"

// PutRoutingMeta writes rm into meta under the well-known routing key.
func PutRoutingMeta(meta map[string]interface{}, rm RoutingMeta) map[string]interface{} {
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta[routingMetaKey] = rm
	return meta
}

// GetRoutingMeta extracts the RoutingMeta previously stored by
// PutRoutingMeta, if present.
func GetRoutingMeta(meta map[string]interface{}) (RoutingMeta, bool) {
	v, ok := meta[routingMetaKey]
	if !ok {
		return RoutingMeta{}, false
	}
	rm, ok := v.(RoutingMeta)
	return rm, ok
}
