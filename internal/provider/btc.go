package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/slog"

	"github.com/mahdiidarabi/ecdsa-noncescan/internal/config"
	"github.com/mahdiidarabi/ecdsa-noncescan/pkg/chainscan"
)

// BTC fetches blocks from a bitcoind compatible JSON-RPC server.
type BTC struct {
	client  *rpcclient.Client
	params  *chaincfg.Params
	sigHash bool
	log     slog.Logger
}

// NewBTC creates an HTTP POST mode client for cfg.RPCHost.
func NewBTC(cfg *config.Config, log slog.Logger) (*BTC, error) {
	params, err := btcParams(cfg.Network)
	if err != nil {
		return nil, err
	}

	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.RPCHost,
		User:         cfg.RPCUser,
		Pass:         cfg.RPCPass,
		HTTPPostMode: true,
		DisableTLS:   cfg.DisableTLS,
		Params:       params.Name,
	}
	if cfg.RPCCert != "" {
		certs, err := os.ReadFile(cfg.RPCCert)
		if err != nil {
			return nil, fmt.Errorf("failed to read rpc cert at %s: %w", cfg.RPCCert, err)
		}
		connCfg.Certificates = certs
	}

	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create btc rpc client (host=%s): %w", cfg.RPCHost, err)
	}
	log.Infof("Using bitcoind at %s (%s)", cfg.RPCHost, params.Name)

	return &BTC{client: client, params: params, sigHash: cfg.SigHash, log: log}, nil
}

// FetchBlock implements chainscan.BlockProvider.
func (p *BTC) FetchBlock(ctx context.Context, height int64) ([]chainscan.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := p.client.GetBlockHash(height)
	if err != nil {
		return nil, fmt.Errorf("getblockhash %d: %w", height, err)
	}
	block, err := p.client.GetBlock(hash)
	if err != nil {
		return nil, fmt.Errorf("getblock %s: %w", hash, err)
	}
	p.log.Debugf("Block %d (%s): %d transactions", height, hash, len(block.Transactions))
	return btcTransactions(block, height, p.params, p.sigHash), nil
}

// TipHeight returns the current block count.
func (p *BTC) TipHeight(context.Context) (int64, error) {
	return p.client.GetBlockCount()
}

// Close shuts the client down.
func (p *BTC) Close() {
	p.client.Shutdown()
}

func btcParams(network string) (*chaincfg.Params, error) {
	switch network {
	case "", "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unknown btc network %q", network)
	}
}

// btcTransactions converts a block into script transactions. Coinbase
// inputs are dropped. For legacy P2PKH spends the signing hash is
// computed from the P2PKH script of the pushed public key when sigHash
// is set; segwit spends carry no hash since the prevout amount is not
// known here.
func btcTransactions(block *wire.MsgBlock, height int64, params *chaincfg.Params, sigHash bool) []chainscan.Transaction {
	txs := make([]chainscan.Transaction, 0, len(block.Transactions))
	for _, msgTx := range block.Transactions {
		tx := &chainscan.ScriptTx{
			TxID:   msgTx.TxHash().String(),
			Height: height,
		}
		for idx, in := range msgTx.TxIn {
			if in.PreviousOutPoint.Hash == (chainhash.Hash{}) {
				continue
			}
			input := chainscan.ScriptInput{
				SignatureScript: in.SignatureScript,
				Witness:         in.Witness,
			}

			pushes, err := txscript.PushedData(in.SignatureScript)
			if err != nil {
				pushes = nil
			}
			if _, hashType, pub, ok := splitSigPubKey(pushes); ok {
				input.PubKey = pub
				addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(pub), params)
				if err == nil {
					input.Address = addr.EncodeAddress()
					if sigHash {
						input.SigHash = btcSigHash(addr, txscript.SigHashType(hashType), msgTx, idx)
					}
				}
			} else if _, _, pub, ok := splitSigPubKey(in.Witness); ok {
				input.PubKey = pub
				addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pub), params)
				if err == nil {
					input.Address = addr.EncodeAddress()
				}
			}
			tx.Inputs = append(tx.Inputs, input)
		}
		txs = append(txs, tx)
	}
	return txs
}

func btcSigHash(addr btcutil.Address, hashType txscript.SigHashType, tx *wire.MsgTx, idx int) []byte {
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil
	}
	hash, err := txscript.CalcSignatureHash(script, hashType, tx, idx)
	if err != nil {
		return nil
	}
	return hash
}
