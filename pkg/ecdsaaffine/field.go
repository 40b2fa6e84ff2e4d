package ecdsaaffine

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// Secp256k1CurveOrder is the order of the secp256k1 curve
var Secp256k1CurveOrder, _ = new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)

var (
	// ErrDivisionByZero is returned by Field.Inverse for a zero argument.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrNotInvertible is returned by Field.Inverse when gcd(a, n) != 1.
	ErrNotInvertible = errors.New("value is not invertible modulo n")
)

// Field performs exact integer arithmetic modulo a group order n.
//
// The modulus is fixed at construction so several curve parameterizations
// can be used side by side. A Field is safe for concurrent use.
type Field struct {
	n *big.Int
}

// NewField creates a field over the given modulus. The modulus must be > 1.
func NewField(n *big.Int) (*Field, error) {
	if n == nil || n.Cmp(big.NewInt(1)) <= 0 {
		return nil, fmt.Errorf("invalid modulus: %v", n)
	}
	return &Field{n: new(big.Int).Set(n)}, nil
}

// Secp256k1Field returns a field over the secp256k1 group order.
func Secp256k1Field() *Field {
	return &Field{n: new(big.Int).Set(Secp256k1CurveOrder)}
}

// N returns a copy of the modulus.
func (f *Field) N() *big.Int {
	return new(big.Int).Set(f.n)
}

// Reduce returns a mod n in [0, n), for negative a as well.
func (f *Field) Reduce(a *big.Int) *big.Int {
	// big.Int.Mod is Euclidean, the result is never negative.
	return new(big.Int).Mod(a, f.n)
}

// Inverse returns r such that a*r ≡ 1 (mod n).
func (f *Field) Inverse(a *big.Int) (*big.Int, error) {
	v := f.Reduce(a)
	if v.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	inv := new(big.Int).ModInverse(v, f.n)
	if inv == nil {
		return nil, ErrNotInvertible
	}
	return inv, nil
}

// Add returns (a + b) mod n.
func (f *Field) Add(a, b *big.Int) *big.Int {
	return f.Reduce(new(big.Int).Add(a, b))
}

// Sub returns (a - b) mod n.
func (f *Field) Sub(a, b *big.Int) *big.Int {
	return f.Reduce(new(big.Int).Sub(a, b))
}

// Mul returns the product of all factors mod n.
func (f *Field) Mul(factors ...*big.Int) *big.Int {
	acc := big.NewInt(1)
	for _, x := range factors {
		acc.Mul(acc, x)
		acc.Mod(acc, f.n)
	}
	return acc
}

// IsValidScalar reports whether 0 < x < n.
func (f *Field) IsValidScalar(x *big.Int) bool {
	return x != nil && x.Sign() > 0 && x.Cmp(f.n) < 0
}

// RandomScalar draws a uniformly random value in [1, n). A nil reader
// selects crypto/rand.
func (f *Field) RandomScalar(r io.Reader) (*big.Int, error) {
	if r == nil {
		r = rand.Reader
	}
	max := new(big.Int).Sub(f.n, big.NewInt(1))
	k, err := rand.Int(r, max)
	if err != nil {
		return nil, fmt.Errorf("failed to draw random scalar: %w", err)
	}
	return k.Add(k, big.NewInt(1)), nil
}
