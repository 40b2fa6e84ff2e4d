package provider

import (
	"context"
	"fmt"
	"math/big"

	"github.com/decred/slog"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mahdiidarabi/ecdsa-noncescan/pkg/chainscan"
)

// ETH fetches blocks from an Ethereum JSON-RPC endpoint.
type ETH struct {
	client *ethclient.Client
	log    slog.Logger
}

// DialETH connects to the endpoint at url.
func DialETH(ctx context.Context, url string, log slog.Logger) (*ETH, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ethereum node %s: %w", url, err)
	}
	log.Infof("Using ethereum node at %s", url)
	return &ETH{client: client, log: log}, nil
}

// FetchBlock implements chainscan.BlockProvider.
func (p *ETH) FetchBlock(ctx context.Context, height int64) ([]chainscan.Transaction, error) {
	block, err := p.client.BlockByNumber(ctx, big.NewInt(height))
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber %d: %w", height, err)
	}

	txs := make([]chainscan.Transaction, 0, len(block.Transactions()))
	for _, tx := range block.Transactions() {
		if atx, ok := ethTransaction(tx, height); ok {
			txs = append(txs, atx)
		}
	}
	p.log.Debugf("Block %d (%s): %d of %d transactions signed",
		height, block.Hash().Hex(), len(txs), len(block.Transactions()))
	return txs, nil
}

// TipHeight returns the latest block number.
func (p *ETH) TipHeight(ctx context.Context) (int64, error) {
	n, err := p.client.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// Close closes the RPC connection.
func (p *ETH) Close() {
	p.client.Close()
}

// ethSigner picks the signer that produced tx's signature.
func ethSigner(tx *types.Transaction) types.Signer {
	if tx.Type() == types.LegacyTxType && !tx.Protected() {
		return types.HomesteadSigner{}
	}
	return types.LatestSignerForChainID(tx.ChainId())
}

// ethTransaction converts tx into an account transaction carrying its
// real signing hash, sender and sender public key.
func ethTransaction(tx *types.Transaction, height int64) (*chainscan.AccountTx, bool) {
	_, r, s := tx.RawSignatureValues()
	if r == nil || s == nil || r.Sign() == 0 || s.Sign() == 0 {
		return nil, false
	}
	signer := ethSigner(tx)
	from, err := types.Sender(signer, tx)
	if err != nil {
		return nil, false
	}
	hash := signer.Hash(tx)

	return &chainscan.AccountTx{
		Hash:      tx.Hash().Hex(),
		R:         r,
		S:         s,
		Height:    height,
		From:      from.Hex(),
		SigHash:   hash.Bytes(),
		PublicKey: senderPubKey(hash, r, s, from),
	}, true
}

// senderPubKey finds the recovery id whose public key belongs to from and
// returns that key uncompressed.
func senderPubKey(hash common.Hash, r, s *big.Int, from common.Address) []byte {
	if r.BitLen() > 256 || s.BitLen() > 256 {
		return nil
	}
	sig := make([]byte, crypto.SignatureLength)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:64])

	for recID := byte(0); recID < 2; recID++ {
		sig[crypto.RecoveryIDOffset] = recID
		pub, err := crypto.Ecrecover(hash.Bytes(), sig)
		if err != nil {
			continue
		}
		key, err := crypto.UnmarshalPubkey(pub)
		if err != nil {
			continue
		}
		if crypto.PubkeyToAddress(*key) == from {
			return pub
		}
	}
	return nil
}
