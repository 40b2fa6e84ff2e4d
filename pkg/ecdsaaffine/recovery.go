package ecdsaaffine

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// RecoverPrivateKey recovers the private key from two secp256k1 ECDSA
// signatures with affinely related nonces.
//
// This implements Equation 7 from the paper:
// priv = (a*s2*z1 - s1*z2 + b*s1*s2) / (r2*s1 - a*r1*s2) mod n
//
// Args:
//   - sig1, sig2: Two signatures with affinely related nonces
//   - a: Affine coefficient (k2 = a*k1 + b)
//   - b: Affine offset (k2 = a*k1 + b)
//
// Returns:
//   - Private key if recovery successful, error otherwise
func RecoverPrivateKey(sig1, sig2 *Signature, a, b *big.Int) (*big.Int, error) {
	return recoverAffineKey(Secp256k1Field(), sig1, sig2, a, b)
}

// RecoverFromAffine attempts recovery under the hypothesis k2 = a*k1 + b
// and reports the attempt as an outcome. It never panics; failures are
// described by the outcome's Err (ErrInvalidComponents,
// ErrZeroDenominator or ErrZeroResult).
func RecoverFromAffine(field *Field, sig1, sig2 *Signature, a, b *big.Int) *RecoveryOutcome {
	out := &RecoveryOutcome{
		Signatures:   [2]*Signature{sig1, sig2},
		Relationship: AffineRelationship{A: a, B: b},
	}
	priv, err := recoverAffineKey(field, sig1, sig2, a, b)
	if err != nil {
		out.Err = err
		return out
	}
	out.Success = true
	out.PrivateKey = priv
	return out
}

func recoverAffineKey(field *Field, sig1, sig2 *Signature, a, b *big.Int) (*big.Int, error) {
	if sig1.hasZeroComponent() || sig2.hasZeroComponent() {
		return nil, ErrInvalidComponents
	}
	if a == nil || b == nil {
		return nil, errors.New("affine parameters must be set")
	}

	// numerator: (a * s2 * z1 - s1 * z2 + b * s1 * s2) mod n
	numerator := new(big.Int).Mul(a, sig2.S)
	numerator.Mul(numerator, sig1.Z)
	numerator.Sub(numerator, new(big.Int).Mul(sig1.S, sig2.Z))
	bs1s2 := new(big.Int).Mul(b, sig1.S)
	numerator.Add(numerator, bs1s2.Mul(bs1s2, sig2.S))
	numerator = field.Reduce(numerator)

	// denominator: (r2 * s1 - a * r1 * s2) mod n
	ar1s2 := new(big.Int).Mul(a, sig1.R)
	ar1s2.Mul(ar1s2, sig2.S)
	denominator := field.Reduce(new(big.Int).Sub(new(big.Int).Mul(sig2.R, sig1.S), ar1s2))
	if denominator.Sign() == 0 {
		return nil, ErrZeroDenominator
	}

	denominatorInv, err := field.Inverse(denominator)
	if err != nil {
		return nil, fmt.Errorf("failed to compute modular inverse: %w", err)
	}

	priv := field.Mul(denominatorInv, numerator)
	if priv.Sign() == 0 {
		return nil, ErrZeroResult
	}
	return priv, nil
}

// RecoverFromReuse recovers candidate private keys from signatures that
// share the same r value.
//
// Every unordered pair is tried with
//
//	k = (z_i - z_j) / (s_i - s_j),  priv = (s_i*k - z_i) / r  (mod n)
//
// Pairs with equal s, a zero r or a zero result are skipped. Candidates
// are deduplicated and returned in the order they were first found; more
// than one candidate means the r collision was not a plain nonce reuse.
func RecoverFromReuse(field *Field, sigs []*Signature) []*big.Int {
	var keys []*big.Int
	seen := make(map[string]struct{})

	for i := 0; i < len(sigs); i++ {
		for j := i + 1; j < len(sigs); j++ {
			si, sj := sigs[i], sigs[j]
			if si.hasZeroComponent() || sj.hasZeroComponent() || si.R.Cmp(sj.R) != 0 {
				continue
			}

			sDiff := field.Sub(si.S, sj.S)
			if sDiff.Sign() == 0 {
				continue
			}
			sDiffInv, err := field.Inverse(sDiff)
			if err != nil {
				continue
			}
			k := field.Mul(field.Sub(si.Z, sj.Z), sDiffInv)

			r := field.Reduce(si.R)
			if r.Sign() == 0 {
				continue
			}
			rInv, err := field.Inverse(r)
			if err != nil {
				continue
			}

			priv := field.Mul(field.Sub(new(big.Int).Mul(si.S, k), si.Z), rInv)
			if priv.Sign() == 0 {
				continue
			}
			key := priv.Text(16)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, priv)
		}
	}
	return keys
}

// RecoverFromKnownNonce recovers the private key of a single signature
// whose nonce k leaked: priv = (s*k - z) / r mod n.
func RecoverFromKnownNonce(field *Field, sig *Signature, k *big.Int) (*big.Int, error) {
	if sig.hasZeroComponent() {
		return nil, ErrInvalidComponents
	}
	if k == nil || field.Reduce(k).Sign() == 0 {
		return nil, fmt.Errorf("%w: nonce is zero", ErrInvalidComponents)
	}
	rInv, err := field.Inverse(sig.R)
	if err != nil {
		return nil, fmt.Errorf("failed to compute modular inverse of r: %w", err)
	}
	priv := field.Mul(field.Sub(new(big.Int).Mul(sig.S, k), sig.Z), rInv)
	if priv.Sign() == 0 {
		return nil, ErrZeroResult
	}
	return priv, nil
}

// HashMessage hashes a message using SHA-256 and returns it as an integer mod n.
func HashMessage(message []byte) *big.Int {
	h := sha256.Sum256(message)
	z := new(big.Int).SetBytes(h[:])
	z.Mod(z, Secp256k1CurveOrder)
	return z
}

// VerifyRecoveredKey verifies that a recovered private key matches the given public key.
//
// Args:
//   - privateKey: Recovered private key
//   - publicKeyBytes: Public key in compressed (33 bytes) or uncompressed (65 bytes) format
//
// Returns:
//   - True if the private key matches the public key, false otherwise
func VerifyRecoveredKey(privateKey *big.Int, publicKeyBytes []byte) (bool, error) {
	if len(publicKeyBytes) != secp256k1.PubKeyBytesLenCompressed &&
		len(publicKeyBytes) != secp256k1.PubKeyBytesLenUncompressed {
		return false, errors.New("public key must be 33 bytes (compressed) or 65 bytes (uncompressed)")
	}

	if privateKey == nil || privateKey.Sign() <= 0 || privateKey.Cmp(Secp256k1CurveOrder) >= 0 {
		return false, errors.New("private key out of valid range")
	}

	expected, err := secp256k1.ParsePubKey(publicKeyBytes)
	if err != nil {
		return false, fmt.Errorf("failed to parse public key: %w", err)
	}

	// Convert private key to 32-byte array (pad if needed)
	privKeyBytes := make([]byte, 32)
	privateKey.FillBytes(privKeyBytes)

	privKey := secp256k1.PrivKeyFromBytes(privKeyBytes)
	return privKey.PubKey().IsEqual(expected), nil
}
