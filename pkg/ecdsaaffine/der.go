package ecdsaaffine

import (
	"fmt"
	"math/big"
)

const (
	// asn1SequenceID is the ASN.1 identifier for a sequence.
	asn1SequenceID = 0x30

	// asn1IntegerID is the ASN.1 identifier for an integer.
	asn1IntegerID = 0x02

	// MinSigLen is the minimum length of a DER encoded signature and is when both R
	// and S are 1 byte each.
	// 0x30 + <1-byte> + 0x02 + 0x01 + <byte> + 0x2 + 0x01 + <byte>
	MinSigLen = 8

	// MaxSigLen is when both R and S are 33 bytes each
	// 0x30 + <1-byte> + 0x02 + 0x21 + <33 bytes> + 0x2 + 0x21 + <33 bytes>
	MaxSigLen = 72

	longFormFlag = 0x80
)

// ParseDERSignature decodes a DER encoded ECDSA signature into r and s.
//
// The accepted format is:
//
//	0x30 <length> 0x02 <length of R> <R> 0x02 <length of S> <S>
//
// Only single-byte (short form) lengths are supported. Bytes following the
// declared sequence, such as a sighash type, are ignored. Every failure
// wraps ErrMalformedSignature; components that are zero or not below the
// field modulus additionally wrap ErrInvalidComponents.
func ParseDERSignature(field *Field, sig []byte) (r, s *big.Int, err error) {
	if len(sig) < MinSigLen {
		return nil, nil, fmt.Errorf("%w: too short (%d bytes)", ErrMalformedSignature, len(sig))
	}
	if sig[0] != asn1SequenceID {
		return nil, nil, fmt.Errorf("%w: no header magic", ErrMalformedSignature)
	}
	seqLen := int(sig[1])
	if seqLen&longFormFlag != 0 {
		return nil, nil, fmt.Errorf("%w: long form sequence length", ErrMalformedSignature)
	}
	if 2+seqLen > len(sig) {
		return nil, nil, fmt.Errorf("%w: sequence length %d exceeds buffer", ErrMalformedSignature, seqLen)
	}
	body := sig[2 : 2+seqLen]

	r, body, err = parseDERInteger(body, "R")
	if err != nil {
		return nil, nil, err
	}
	s, body, err = parseDERInteger(body, "S")
	if err != nil {
		return nil, nil, err
	}
	if len(body) != 0 {
		return nil, nil, fmt.Errorf("%w: %d unexpected bytes in sequence", ErrMalformedSignature, len(body))
	}

	if !field.IsValidScalar(r) {
		return nil, nil, fmt.Errorf("%w: %w: R is zero or >= group order", ErrMalformedSignature, ErrInvalidComponents)
	}
	if !field.IsValidScalar(s) {
		return nil, nil, fmt.Errorf("%w: %w: S is zero or >= group order", ErrMalformedSignature, ErrInvalidComponents)
	}
	return r, s, nil
}

// parseDERInteger reads one INTEGER element and returns the remaining bytes.
func parseDERInteger(b []byte, name string) (*big.Int, []byte, error) {
	if len(b) < 2 {
		return nil, nil, fmt.Errorf("%w: missing %s", ErrMalformedSignature, name)
	}
	if b[0] != asn1IntegerID {
		return nil, nil, fmt.Errorf("%w: no %s int marker", ErrMalformedSignature, name)
	}
	n := int(b[1])
	if n&longFormFlag != 0 {
		return nil, nil, fmt.Errorf("%w: long form %s length", ErrMalformedSignature, name)
	}
	if n == 0 {
		return nil, nil, fmt.Errorf("%w: empty %s", ErrMalformedSignature, name)
	}
	if 2+n > len(b) {
		return nil, nil, fmt.Errorf("%w: bogus %s length", ErrMalformedSignature, name)
	}
	return new(big.Int).SetBytes(b[2 : 2+n]), b[2+n:], nil
}
