package chainscan

import (
	"math/big"

	"github.com/mahdiidarabi/ecdsa-noncescan/pkg/ecdsaaffine"
)

// Bucket holds every indexed signature sharing one r value, in the order
// they were inserted.
type Bucket struct {
	R          *big.Int
	Signatures []*ecdsaaffine.Signature
}

// NonceIndex groups signatures by r. It is not safe for concurrent use.
type NonceIndex struct {
	buckets map[string]*Bucket
	order   []*Bucket
	records int
}

// NewNonceIndex returns an empty index.
func NewNonceIndex() *NonceIndex {
	return &NonceIndex{buckets: make(map[string]*Bucket)}
}

// Insert appends sig to the bucket for its r value.
func (idx *NonceIndex) Insert(sig *ecdsaaffine.Signature) {
	key := sig.R.Text(16)
	b, ok := idx.buckets[key]
	if !ok {
		b = &Bucket{R: sig.R}
		idx.buckets[key] = b
		idx.order = append(idx.order, b)
	}
	b.Signatures = append(b.Signatures, sig)
	idx.records++
}

// Collisions returns the buckets holding two or more signatures, ordered
// by when each bucket was first created.
func (idx *NonceIndex) Collisions() []*Bucket {
	var out []*Bucket
	for _, b := range idx.order {
		if len(b.Signatures) >= 2 {
			out = append(out, b)
		}
	}
	return out
}

// Len returns the number of indexed signatures.
func (idx *NonceIndex) Len() int { return idx.records }

// Buckets returns the number of distinct r values.
func (idx *NonceIndex) Buckets() int { return len(idx.order) }
