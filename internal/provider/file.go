package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mahdiidarabi/ecdsa-noncescan/pkg/chainscan"
)

// Transaction families in a block dump.
const (
	familyAccount = "account"
	familyScript  = "script"
)

// File serves blocks from a JSON dump held in memory.
//
// Dump format:
//
//	{"blocks": [{"height": 7, "transactions": [
//	  {"family": "account", "hash": "0x..", "r": "0x..", "s": "0x..", "from": "0x..", "sighash": "0x.."},
//	  {"family": "script", "hash": "..", "inputs": [{"script": "0x..", "witness": ["0x.."], "address": ".."}]}
//	]}]}
//
// r and s are hex quantities; byte fields are 0x-prefixed hex.
type File struct {
	blocks map[int64][]chainscan.Transaction
	rng    chainscan.BlockRange
}

type dumpFile struct {
	Blocks []dumpBlock `json:"blocks"`
}

type dumpBlock struct {
	Height       int64    `json:"height"`
	Transactions []dumpTx `json:"transactions"`
}

type dumpTx struct {
	Family    string        `json:"family"`
	Hash      string        `json:"hash"`
	R         *hexutil.Big  `json:"r,omitempty"`
	S         *hexutil.Big  `json:"s,omitempty"`
	From      string        `json:"from,omitempty"`
	SigHash   hexutil.Bytes `json:"sighash,omitempty"`
	PublicKey hexutil.Bytes `json:"public_key,omitempty"`
	Inputs    []dumpInput   `json:"inputs,omitempty"`
}

type dumpInput struct {
	Script    hexutil.Bytes   `json:"script,omitempty"`
	Witness   []hexutil.Bytes `json:"witness,omitempty"`
	SigHash   hexutil.Bytes   `json:"sighash,omitempty"`
	PublicKey hexutil.Bytes   `json:"public_key,omitempty"`
	Address   string          `json:"address,omitempty"`
}

// OpenFile reads a block dump from path.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump: %w", err)
	}
	defer f.Close()
	return ReadFile(f)
}

// ReadFile decodes a block dump from r.
func ReadFile(r io.Reader) (*File, error) {
	var dump dumpFile
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return nil, fmt.Errorf("failed to parse dump: %w", err)
	}

	p := &File{blocks: make(map[int64][]chainscan.Transaction, len(dump.Blocks))}
	for i, b := range dump.Blocks {
		if _, dup := p.blocks[b.Height]; dup {
			return nil, fmt.Errorf("block %d appears twice", b.Height)
		}
		txs := make([]chainscan.Transaction, 0, len(b.Transactions))
		for j, dtx := range b.Transactions {
			tx, err := dtx.transaction(b.Height)
			if err != nil {
				return nil, fmt.Errorf("block %d transaction %d: %w", b.Height, j, err)
			}
			txs = append(txs, tx)
		}
		p.blocks[b.Height] = txs

		if i == 0 || b.Height < p.rng.Start {
			p.rng.Start = b.Height
		}
		if i == 0 || b.Height > p.rng.End {
			p.rng.End = b.Height
		}
	}
	return p, nil
}

func (d *dumpTx) transaction(height int64) (chainscan.Transaction, error) {
	switch d.Family {
	case familyAccount:
		if d.R == nil || d.S == nil {
			return nil, fmt.Errorf("account transaction %s without r or s", d.Hash)
		}
		return &chainscan.AccountTx{
			Hash:      d.Hash,
			R:         d.R.ToInt(),
			S:         d.S.ToInt(),
			Height:    height,
			From:      d.From,
			SigHash:   d.SigHash,
			PublicKey: d.PublicKey,
		}, nil

	case familyScript:
		tx := &chainscan.ScriptTx{TxID: d.Hash, Height: height}
		for _, in := range d.Inputs {
			witness := make([][]byte, 0, len(in.Witness))
			for _, item := range in.Witness {
				witness = append(witness, item)
			}
			tx.Inputs = append(tx.Inputs, chainscan.ScriptInput{
				SignatureScript: in.Script,
				Witness:         witness,
				SigHash:         in.SigHash,
				PubKey:          in.PublicKey,
				Address:         in.Address,
			})
		}
		return tx, nil

	default:
		return nil, fmt.Errorf("unknown family %q", d.Family)
	}
}

// FetchBlock implements chainscan.BlockProvider.
func (p *File) FetchBlock(ctx context.Context, height int64) ([]chainscan.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txs, ok := p.blocks[height]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrBlockNotFound, height)
	}
	return txs, nil
}

// Range returns the lowest and highest heights in the dump.
func (p *File) Range() chainscan.BlockRange {
	return p.rng
}

// TipHeight returns the highest height in the dump.
func (p *File) TipHeight(context.Context) (int64, error) {
	if len(p.blocks) == 0 {
		return 0, ErrBlockNotFound
	}
	return p.rng.End, nil
}

// Close is a no-op.
func (p *File) Close() {}
