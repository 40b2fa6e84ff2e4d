package provider

import (
	"context"
	"math/big"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"

	"github.com/mahdiidarabi/ecdsa-noncescan/pkg/chainscan"
	"github.com/mahdiidarabi/ecdsa-noncescan/pkg/ecdsaaffine"
)

// staticProvider serves prebuilt blocks.
type staticProvider map[int64][]chainscan.Transaction

func (p staticProvider) FetchBlock(_ context.Context, height int64) ([]chainscan.Transaction, error) {
	return p[height], nil
}

// weakSigner signs every digest with one fixed nonce.
type weakSigner struct {
	field *ecdsaaffine.Field
	priv  *big.Int
	k     *big.Int
}

func newWeakSigner(t *testing.T) *weakSigner {
	t.Helper()
	field := ecdsaaffine.Secp256k1Field()
	priv, err := field.RandomScalar(nil)
	require.NoError(t, err)
	k, err := field.RandomScalar(nil)
	require.NoError(t, err)
	return &weakSigner{field: field, priv: priv, k: k}
}

// sign returns the DER signature of digest with the hash type appended.
// r is the nonce itself rather than a curve point coordinate.
func (w *weakSigner) sign(t *testing.T, digest []byte, hashType byte) []byte {
	t.Helper()
	z := w.field.Reduce(new(big.Int).SetBytes(digest))
	r := w.field.Reduce(w.k)
	kInv, err := w.field.Inverse(w.k)
	require.NoError(t, err)
	s := w.field.Mul(kInv, w.field.Add(z, new(big.Int).Mul(r, w.priv)))
	return append(derEncode(r, s), hashType)
}

func (w *weakSigner) pubKey() []byte {
	b := make([]byte, 32)
	w.priv.FillBytes(b)
	return secp256k1.PrivKeyFromBytes(b).PubKey().SerializeCompressed()
}

func derEncode(r, s *big.Int) []byte {
	body := append(derInt(r), derInt(s)...)
	return append([]byte{0x30, byte(len(body))}, body...)
}

func derInt(v *big.Int) []byte {
	b := v.Bytes()
	if len(b) == 0 || b[0]&0x80 != 0 {
		b = append([]byte{0x00}, b...)
	}
	return append([]byte{0x02, byte(len(b))}, b...)
}

// analyze runs a full pass over blocks at one height.
func analyze(t *testing.T, height int64, txs []chainscan.Transaction) *chainscan.AnalysisResult {
	t.Helper()
	result, err := chainscan.NewAnalyzer(staticProvider{height: txs}).
		Analyze(context.Background(), chainscan.BlockRange{Start: height, End: height}, 0, nil)
	require.NoError(t, err)
	return result
}
