package chainscan

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/mahdiidarabi/ecdsa-noncescan/pkg/ecdsaaffine"
)

var errUnavailable = errors.New("rpc unavailable")

// memProvider serves blocks from memory.
type memProvider struct {
	blocks map[int64][]Transaction
	fail   map[int64]bool
	delay  func(height int64) time.Duration

	mtx   sync.Mutex
	calls int
}

func newMemProvider() *memProvider {
	return &memProvider{
		blocks: make(map[int64][]Transaction),
		fail:   make(map[int64]bool),
	}
}

func (m *memProvider) FetchBlock(ctx context.Context, height int64) ([]Transaction, error) {
	if m.delay != nil {
		select {
		case <-time.After(m.delay(height)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mtx.Lock()
	m.calls++
	m.mtx.Unlock()

	if m.fail[height] {
		return nil, errUnavailable
	}
	return m.blocks[height], nil
}

func (m *memProvider) add(height int64, txs ...Transaction) {
	m.blocks[height] = append(m.blocks[height], txs...)
}

// accountTx wraps a signature as an account transaction that signs its z.
func accountTx(sig *ecdsaaffine.Signature, height int64, from string) *AccountTx {
	return &AccountTx{
		Hash:    fmt.Sprintf("%064x", height+1),
		R:       sig.R,
		S:       sig.S,
		Height:  height,
		From:    from,
		SigHash: sig.Z.Bytes(),
	}
}

// derBytes encodes r and s as a DER signature.
func derBytes(t *testing.T, r, s *big.Int) []byte {
	t.Helper()
	var rs, ss secp256k1.ModNScalar
	require.False(t, rs.SetByteSlice(r.Bytes()), "r overflows")
	require.False(t, ss.SetByteSlice(s.Bytes()), "s overflows")
	return ecdsa.NewSignature(&rs, &ss).Serialize()
}

// pushData prefixes data with a direct push opcode.
func pushData(data []byte) []byte {
	return append([]byte{byte(len(data))}, data...)
}

// compressedPubKey returns the compressed public key of priv.
func compressedPubKey(priv *big.Int) []byte {
	b := make([]byte, 32)
	priv.FillBytes(b)
	return secp256k1.PrivKeyFromBytes(b).PubKey().SerializeCompressed()
}
