package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable name.
const Prefix = "NONCESCAN"

// Supported chains.
const (
	ChainBTC  = "btc"
	ChainDCR  = "dcr"
	ChainETH  = "eth"
	ChainFile = "file"
)

// Config contains all configuration parameters for a scan.
type Config struct {
	Chain   string `envconfig:"CHAIN" default:"btc"`
	Network string `envconfig:"NETWORK" default:"mainnet"`

	// RPCHost is host:port for bitcoind and dcrd, or the endpoint URL for
	// an Ethereum node.
	RPCHost    string `envconfig:"RPC_HOST"`
	RPCUser    string `envconfig:"RPC_USER"`
	RPCPass    string `envconfig:"RPC_PASS"`
	RPCCert    string `envconfig:"RPC_CERT"`
	DisableTLS bool   `envconfig:"RPC_DISABLE_TLS" default:"false"`

	// DumpFile is the JSON block dump read by the file chain.
	DumpFile string `envconfig:"DUMP_FILE"`

	Prefetch   int   `envconfig:"PREFETCH" default:"4"`
	MaxBlocks  int64 `envconfig:"MAX_BLOCKS" default:"0"`
	Exhaustive bool  `envconfig:"EXHAUSTIVE" default:"false"`

	// SigHash computes real signing hashes for P2PKH inputs instead of
	// using the transaction id.
	SigHash bool `envconfig:"SIGHASH" default:"true"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the configuration from NONCESCAN_* environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(Prefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	cfg.Chain = strings.ToLower(cfg.Chain)
	return cfg, nil
}

// Validate checks that the settings needed by the selected chain are set.
func (c *Config) Validate() error {
	switch c.Chain {
	case ChainBTC, ChainDCR:
		if c.RPCHost == "" {
			return fmt.Errorf("%s chain requires %s_RPC_HOST", c.Chain, Prefix)
		}
		if c.Chain == ChainDCR && !c.DisableTLS && c.RPCCert == "" {
			return fmt.Errorf("dcr chain requires %s_RPC_CERT unless TLS is disabled", Prefix)
		}
	case ChainETH:
		if c.RPCHost == "" {
			return fmt.Errorf("eth chain requires %s_RPC_HOST", Prefix)
		}
	case ChainFile:
		if c.DumpFile == "" {
			return fmt.Errorf("file chain requires %s_DUMP_FILE", Prefix)
		}
	default:
		return fmt.Errorf("unknown chain %q", c.Chain)
	}
	if c.Prefetch < 0 {
		return fmt.Errorf("prefetch must not be negative, got %d", c.Prefetch)
	}
	return nil
}

// Usage prints the recognised environment variables.
func Usage() error {
	return envconfig.Usage(Prefix, &Config{})
}
