package ecdsaaffine

import (
	"fmt"
	"math/big"
)

// ChainFamily tags the encoding origin of a signature.
type ChainFamily uint8

const (
	FamilyUnknown ChainFamily = iota
	FamilyAccount             // r and s carried directly by the transaction
	FamilyScript              // DER signature embedded in an unlocking script or witness
)

func (f ChainFamily) String() string {
	switch f {
	case FamilyAccount:
		return "account"
	case FamilyScript:
		return "script"
	default:
		return "unknown"
	}
}

// Signature represents an ECDSA signature with message hash.
// This is the core type used throughout the package. Values are treated
// as read-only once constructed.
type Signature struct {
	Z *big.Int // Message hash (mod n)
	R *big.Int // r component of the signature
	S *big.Int // s component of the signature

	Nonce     *big.Int    // Only set for generated fixtures
	SourceID  string      // Transaction identifier, if known
	Family    ChainFamily // Encoding origin, informational
	PublicKey []byte      // Signer public key, if known (33 or 65 bytes)
	Address   string      // Signer address, if known
}

// NewSignature validates r and s against the field and returns a record
// with z reduced mod n.
func NewSignature(field *Field, z, r, s *big.Int) (*Signature, error) {
	if z == nil {
		return nil, fmt.Errorf("%w: missing message hash", ErrInvalidComponents)
	}
	if !field.IsValidScalar(r) {
		return nil, fmt.Errorf("%w: r out of range", ErrInvalidComponents)
	}
	if !field.IsValidScalar(s) {
		return nil, fmt.Errorf("%w: s out of range", ErrInvalidComponents)
	}
	return &Signature{
		Z: field.Reduce(z),
		R: new(big.Int).Set(r),
		S: new(big.Int).Set(s),
	}, nil
}

// hasZeroComponent reports whether r or s is missing or zero.
func (sig *Signature) hasZeroComponent() bool {
	return sig == nil || sig.Z == nil || sig.R == nil || sig.S == nil ||
		sig.R.Sign() == 0 || sig.S.Sign() == 0
}

// AffineRelationship represents the relationship between two nonces.
// k2 = a*k1 + b
type AffineRelationship struct {
	A *big.Int // Affine coefficient
	B *big.Int // Affine offset
}

// RecoveryResult contains the result of a key recovery operation.
type RecoveryResult struct {
	PrivateKey    *big.Int           // Recovered private key
	Relationship  AffineRelationship // The affine relationship found (k2 = a*k1 + b)
	SignaturePair [2]int             // Indices of the signature pair used
	Verified      bool               // Whether the key was verified against a public key
	Pattern       string             // Human-readable pattern description
}

// RecoveryOutcome is the result of one explicit affine recovery attempt.
type RecoveryOutcome struct {
	Success      bool
	PrivateKey   *big.Int
	Signatures   [2]*Signature
	Relationship AffineRelationship
	Err          error
}

// FailureReason returns the failure description, or "" on success.
func (o *RecoveryOutcome) FailureReason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
