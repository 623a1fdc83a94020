// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

// Package config loads vectord's configuration the way the teacher loads
// lnd's: command-line flags parsed by go-flags, layered over a TOML file,
// following dcrlnd's Config/loadConfig split.
package config

import (
	"math/big"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	flags "github.com/jessevdk/go-flags"

	"github.com/vectorlabs/vectord/forward"
	"github.com/vectorlabs/vectord/vectorerr"
)

// ChainContracts pins the on-chain deployment for one chain (§6
// Configuration "chainAddresses"). Addresses are carried as hex strings
// since common.Address's [20]byte array form doesn't round-trip through
// TOML decoding.
type ChainContracts struct {
	ChannelFactoryAddress   string `toml:"channel_factory_address"`
	TransferRegistryAddress string `toml:"transfer_registry_address"`
}

// Parsed converts the hex-string addresses into common.Address.
func (c ChainContracts) Parsed() (channelFactory, transferRegistry common.Address) {
	return common.HexToAddress(c.ChannelFactoryAddress), common.HexToAddress(c.TransferRegistryAddress)
}

// RebalanceProfileConfig is the TOML-shaped form of forward.RebalanceProfile
// (big.Int and common.Address aren't directly TOML-decodable, so amounts
// and addresses are carried as strings and converted in RebalanceProfiles()).
type RebalanceProfileConfig struct {
	ChainID                uint64 `toml:"chain_id"`
	AssetID                string `toml:"asset_id"`
	ReclaimThreshold       string `toml:"reclaim_threshold"`
	Target                 string `toml:"target"`
	CollateralizeThreshold string `toml:"collateralize_threshold"`
}

// SwapPairConfig is the TOML-shaped form of forward.SwapPair.
type SwapPairConfig struct {
	FromChainID uint64 `toml:"from_chain_id"`
	FromAssetID string `toml:"from_asset_id"`
	ToChainID   uint64 `toml:"to_chain_id"`
	ToAssetID   string `toml:"to_asset_id"`
}

// Config is vectord's top-level configuration, per §6 "Configuration" and
// §A.3's ambient-stack expansion.
type Config struct {
	ConfigFile string `long:"configfile" description:"Path to configuration file"`

	RPCListen   string `long:"rpclisten" description:"host:port the chan_ JSON-RPC gateway listens on" toml:"rpc_listen"`
	DebugLevel  string `long:"debuglevel" description:"Logging level for all subsystems" toml:"debug_level"`
	LogDir      string `long:"logdir" description:"Directory to store log files" toml:"log_dir"`
	DataDir     string `long:"datadir" description:"Directory to store persistent data" toml:"data_dir"`

	Mnemonic     string `long:"mnemonic" description:"Signer key-derivation mnemonic" toml:"mnemonic"`
	MessagingURL string `long:"messagingurl" description:"URL of the messaging transport" toml:"messaging_url"`
	SkipCheckIn  bool   `long:"skipcheckin" description:"Disable the check-in queue drain" toml:"skip_check_in"`

	// Keyed by decimal chain id (TOML tables require string keys; map
	// keys are parsed in ChainProvidersByID/ChainAddressesByID).
	ChainProviders map[string]string         `toml:"chain_providers"`
	ChainAddresses map[string]ChainContracts `toml:"chain_addresses"`

	RebalanceProfileConfigs []RebalanceProfileConfig `toml:"rebalance_profiles"`
	AllowedSwaps            []SwapPairConfig         `toml:"allowed_swaps"`
}

// Default returns a Config populated with dcrlnd-style defaults (ports,
// directories) before flags/file are layered on.
func Default() *Config {
	return &Config{
		RPCListen:      "localhost:8980",
		DebugLevel:     "info",
		LogDir:         "./logs",
		DataDir:        "./data",
		ChainProviders: make(map[string]string),
		ChainAddresses: make(map[string]ChainContracts),
	}
}

// Load parses command-line args over Default(), then layers a TOML file
// (either named by --configfile or DataDir/vectord.toml, with DataDir as
// set after the command-line pass) on top, mirroring dcrlnd's loadConfig two-pass flag/file precedence.
func Load(args []string) (*Config, error) {
	cfg := Default()
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, vectorerr.New(vectorerr.KindValidation, err, nil)
	}

	path := cfg.ConfigFile
	if path == "" {
		path = cfg.DataDir + "/vectord.toml"
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, vectorerr.New(vectorerr.KindValidation, err, map[string]interface{}{"configFile": path})
		}
		// Flags take precedence over the file; re-apply them last.
		if _, err := flags.NewParser(cfg, flags.Default).ParseArgs(args); err != nil {
			return nil, vectorerr.New(vectorerr.KindValidation, err, nil)
		}
	}
	return cfg, nil
}

// ChainProvidersByID parses ChainProviders' decimal-string keys into the
// chainId -> providerURL map the Chain Reader construction needs.
func (c *Config) ChainProvidersByID() (map[uint64]string, error) {
	out := make(map[uint64]string, len(c.ChainProviders))
	for k, v := range c.ChainProviders {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, vectorerr.New(vectorerr.KindValidation, err, map[string]interface{}{"chainId": k})
		}
		out[id] = v
	}
	return out, nil
}

// ChainAddressesByID parses ChainAddresses' decimal-string keys and the
// hex-string contract addresses into chanmodel.NetworkContext-ready form.
func (c *Config) ChainAddressesByID() (map[uint64]ChainContracts, error) {
	out := make(map[uint64]ChainContracts, len(c.ChainAddresses))
	for k, v := range c.ChainAddresses {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, vectorerr.New(vectorerr.KindValidation, err, map[string]interface{}{"chainId": k})
		}
		out[id] = v
	}
	return out, nil
}

// RebalanceProfiles converts the TOML-shaped profiles into
// forward.RebalanceProfile, parsing the decimal-string amounts into
// *big.Int.
func (c *Config) RebalanceProfiles() ([]forward.RebalanceProfile, error) {
	out := make([]forward.RebalanceProfile, 0, len(c.RebalanceProfileConfigs))
	for _, p := range c.RebalanceProfileConfigs {
		reclaim, ok := new(big.Int).SetString(p.ReclaimThreshold, 10)
		if !ok {
			return nil, vectorerr.New(vectorerr.KindValidation, nil, map[string]interface{}{"reclaimThreshold": p.ReclaimThreshold})
		}
		target, ok := new(big.Int).SetString(p.Target, 10)
		if !ok {
			return nil, vectorerr.New(vectorerr.KindValidation, nil, map[string]interface{}{"target": p.Target})
		}
		collateralize, ok := new(big.Int).SetString(p.CollateralizeThreshold, 10)
		if !ok {
			return nil, vectorerr.New(vectorerr.KindValidation, nil, map[string]interface{}{"collateralizeThreshold": p.CollateralizeThreshold})
		}
		out = append(out, forward.RebalanceProfile{
			ChainID:                p.ChainID,
			AssetID:                common.HexToAddress(p.AssetID),
			ReclaimThreshold:       reclaim,
			Target:                 target,
			CollateralizeThreshold: collateralize,
		})
	}
	return out, nil
}

// SwapPairs converts the TOML-shaped swap pairs into forward.SwapPair.
func (c *Config) SwapPairs() []forward.SwapPair {
	out := make([]forward.SwapPair, 0, len(c.AllowedSwaps))
	for _, s := range c.AllowedSwaps {
		out = append(out, forward.SwapPair{
			FromChainID: s.FromChainID,
			FromAssetID: common.HexToAddress(s.FromAssetID),
			ToChainID:   s.ToChainID,
			ToAssetID:   common.HexToAddress(s.ToAssetID),
		})
	}
	return out
}
