// Package provider implements chainscan.BlockProvider over bitcoind, dcrd,
// Ethereum JSON-RPC nodes and offline JSON block dumps.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/decred/slog"

	"github.com/mahdiidarabi/ecdsa-noncescan/internal/config"
	"github.com/mahdiidarabi/ecdsa-noncescan/pkg/chainscan"
	"github.com/mahdiidarabi/ecdsa-noncescan/pkg/ecdsaaffine"
)

// ErrBlockNotFound is returned for heights a provider has no block for.
var ErrBlockNotFound = errors.New("block not found")

// Provider is a block source that can report its tip and be closed.
type Provider interface {
	chainscan.BlockProvider

	// TipHeight returns the height of the best known block.
	TipHeight(ctx context.Context) (int64, error)

	Close()
}

// New connects to the chain selected by cfg.
func New(ctx context.Context, cfg *config.Config, log slog.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Chain {
	case config.ChainBTC:
		return NewBTC(cfg, log)
	case config.ChainDCR:
		return NewDCR(cfg, log)
	case config.ChainETH:
		return DialETH(ctx, cfg.RPCHost, log)
	case config.ChainFile:
		return OpenFile(cfg.DumpFile)
	default:
		return nil, fmt.Errorf("unknown chain %q", cfg.Chain)
	}
}

// splitSigPubKey recognises the <signature> <pubkey> push pair of a
// pay-to-pubkey-hash spend and returns the signature without its hash
// type byte, the hash type and the public key.
func splitSigPubKey(pushes [][]byte) (sig []byte, hashType byte, pubKey []byte, ok bool) {
	if len(pushes) != 2 {
		return nil, 0, nil, false
	}
	sigWithType, pub := pushes[0], pushes[1]
	if len(sigWithType) < ecdsaaffine.MinSigLen+1 || sigWithType[0] != 0x30 {
		return nil, 0, nil, false
	}
	if len(pub) != 33 && len(pub) != 65 {
		return nil, 0, nil, false
	}
	return sigWithType[:len(sigWithType)-1], sigWithType[len(sigWithType)-1], pub, true
}
