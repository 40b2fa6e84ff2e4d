package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/rpcclient/v8"
	"github.com/decred/dcrd/txscript/v4"
	"github.com/decred/dcrd/txscript/v4/stdaddr"
	"github.com/decred/dcrd/wire"
	"github.com/decred/slog"

	"github.com/mahdiidarabi/ecdsa-noncescan/internal/config"
	"github.com/mahdiidarabi/ecdsa-noncescan/pkg/chainscan"
)

// DCR fetches blocks from a dcrd JSON-RPC server.
type DCR struct {
	client  *rpcclient.Client
	params  *chaincfg.Params
	sigHash bool
	log     slog.Logger
}

// NewDCR creates a client for cfg.RPCHost. Unless TLS is disabled the
// dcrd certificate at cfg.RPCCert is required.
func NewDCR(cfg *config.Config, log slog.Logger) (*DCR, error) {
	params, err := dcrParams(cfg.Network)
	if err != nil {
		return nil, err
	}

	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.RPCHost,
		User:         cfg.RPCUser,
		Pass:         cfg.RPCPass,
		HTTPPostMode: true,
		DisableTLS:   cfg.DisableTLS,
	}
	if !cfg.DisableTLS {
		b, err := os.ReadFile(cfg.RPCCert)
		if err != nil {
			return nil, fmt.Errorf("failed to read dcrd rpc cert at %s: %w", cfg.RPCCert, err)
		}
		connCfg.Certificates = b
	}

	c, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create dcrd rpc client (host=%s user=%s): %w", cfg.RPCHost, cfg.RPCUser, err)
	}
	log.Infof("Using dcrd at %s (%s)", cfg.RPCHost, params.Name)

	return &DCR{client: c, params: params, sigHash: cfg.SigHash, log: log}, nil
}

// FetchBlock implements chainscan.BlockProvider.
func (p *DCR) FetchBlock(ctx context.Context, height int64) ([]chainscan.Transaction, error) {
	hash, err := p.client.GetBlockHash(ctx, height)
	if err != nil {
		return nil, fmt.Errorf("getblockhash %d: %w", height, err)
	}
	msg, err := p.client.GetBlock(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("getblock %s: %w", hash, err)
	}
	p.log.Debugf("Block %d (%s): %d regular, %d stake transactions",
		height, hash, len(msg.Transactions), len(msg.STransactions))
	return dcrTransactions(msg, height, p.params, p.sigHash), nil
}

// TipHeight returns the height of the best block.
func (p *DCR) TipHeight(ctx context.Context) (int64, error) {
	return p.client.GetBlockCount(ctx)
}

// Close shuts the client down.
func (p *DCR) Close() {
	p.client.Shutdown()
}

func dcrParams(network string) (*chaincfg.Params, error) {
	switch network {
	case "", "mainnet":
		return chaincfg.MainNetParams(), nil
	case "testnet", "testnet3":
		return chaincfg.TestNet3Params(), nil
	case "simnet":
		return chaincfg.SimNetParams(), nil
	case "regnet", "regtest":
		return chaincfg.RegNetParams(), nil
	default:
		return nil, fmt.Errorf("unknown dcr network %q", network)
	}
}

// dcrTransactions converts the regular and stake trees of a block.
// Signing hashes are only computed for regular tree P2PKH spends; stake
// outputs carry tagged scripts the plain P2PKH script does not match.
func dcrTransactions(msg *wire.MsgBlock, height int64, params *chaincfg.Params, sigHash bool) []chainscan.Transaction {
	txs := make([]chainscan.Transaction, 0, len(msg.Transactions)+len(msg.STransactions))
	for _, mtx := range msg.Transactions {
		txs = append(txs, dcrTransaction(mtx, height, params, sigHash))
	}
	for _, mtx := range msg.STransactions {
		txs = append(txs, dcrTransaction(mtx, height, params, false))
	}
	return txs
}

func dcrTransaction(mtx *wire.MsgTx, height int64, params *chaincfg.Params, sigHash bool) *chainscan.ScriptTx {
	tx := &chainscan.ScriptTx{
		TxID:   mtx.TxHash().String(),
		Height: height,
	}
	for idx, in := range mtx.TxIn {
		// Coinbase and stakebase inputs spend nothing.
		if in.PreviousOutPoint.Hash == (chainhash.Hash{}) {
			continue
		}
		input := chainscan.ScriptInput{SignatureScript: in.SignatureScript}

		if _, hashType, pub, ok := splitSigPubKey(dcrPushes(in.SignatureScript)); ok {
			input.PubKey = pub
			addr, err := stdaddr.NewAddressPubKeyHashEcdsaSecp256k1V0(stdaddr.Hash160(pub), params)
			if err == nil {
				input.Address = addr.String()
				if sigHash {
					_, script := addr.PaymentScript()
					if h, err := txscript.CalcSignatureHash(script, txscript.SigHashType(hashType), mtx, idx, nil); err == nil {
						input.SigHash = h
					}
				}
			}
		}
		tx.Inputs = append(tx.Inputs, input)
	}
	return tx
}

// dcrPushes returns the data pushes of a version 0 script, or nil if the
// script does not parse.
func dcrPushes(script []byte) [][]byte {
	var pushes [][]byte
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	for tokenizer.Next() {
		if data := tokenizer.Data(); data != nil {
			pushes = append(pushes, data)
		}
	}
	if tokenizer.Err() != nil {
		return nil
	}
	return pushes
}
