package ecdsaaffine

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"math/big"
)

var (
	fixtureMessage1 = []byte("Affinely related nonces are insecure #1")
	fixtureMessage2 = []byte("Affinely related nonces are insecure #2")
)

// maxFixtureAttempts bounds redraws of degenerate nonces.
const maxFixtureAttempts = 64

// GenerateFixture manufactures two signatures over fixed messages whose
// nonces satisfy k2 = a*k1 + b. When priv is nil a random key is drawn.
//
// The signatures are algebraic only: r is the nonce reduced mod n rather
// than the x coordinate of k*G, which keeps the recovery equations intact
// without point multiplication. A nil rnd selects crypto/rand.
func GenerateFixture(field *Field, rnd io.Reader, a, b, priv *big.Int) (*Signature, *Signature, *big.Int, error) {
	if a == nil || b == nil {
		return nil, nil, nil, errors.New("affine parameters must be set")
	}
	priv, err := fixtureKey(field, rnd, priv)
	if err != nil {
		return nil, nil, nil, err
	}

	z1 := hashToField(field, fixtureMessage1)
	z2 := hashToField(field, fixtureMessage2)

	for attempt := 0; attempt < maxFixtureAttempts; attempt++ {
		k1, err := field.RandomScalar(rnd)
		if err != nil {
			return nil, nil, nil, err
		}
		k2 := field.Add(new(big.Int).Mul(a, k1), b)
		if k2.Sign() == 0 {
			continue
		}

		sig1, err := signWithNonce(field, z1, k1, priv)
		if err != nil {
			continue
		}
		sig2, err := signWithNonce(field, z2, k2, priv)
		if err != nil {
			continue
		}
		return sig1, sig2, priv, nil
	}
	return nil, nil, nil, fmt.Errorf("failed to generate fixture after %d attempts", maxFixtureAttempts)
}

// GenerateReuseFixture manufactures two signatures over different fixed
// messages that share one nonce.
func GenerateReuseFixture(field *Field, rnd io.Reader, priv *big.Int) (*Signature, *Signature, *big.Int, error) {
	return GenerateFixture(field, rnd, big.NewInt(1), big.NewInt(0), priv)
}

func fixtureKey(field *Field, rnd io.Reader, priv *big.Int) (*big.Int, error) {
	if priv == nil {
		return field.RandomScalar(rnd)
	}
	if !field.IsValidScalar(priv) {
		return nil, errors.New("private key out of valid range")
	}
	return new(big.Int).Set(priv), nil
}

// signWithNonce computes r = k mod n and s = k^-1 * (z + r*priv) mod n.
func signWithNonce(field *Field, z, k, priv *big.Int) (*Signature, error) {
	r := field.Reduce(k)
	kInv, err := field.Inverse(r)
	if err != nil {
		return nil, err
	}
	s := field.Mul(kInv, field.Add(z, new(big.Int).Mul(r, priv)))

	sig, err := NewSignature(field, z, r, s)
	if err != nil {
		return nil, err
	}
	sig.Nonce = r
	return sig, nil
}

func hashToField(field *Field, message []byte) *big.Int {
	h := sha256.Sum256(message)
	return field.Reduce(new(big.Int).SetBytes(h[:]))
}
