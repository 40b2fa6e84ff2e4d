package ecdsaaffine

import "errors"

var (
	// ErrMalformedSignature is returned when signature bytes do not have
	// the expected DER shape.
	ErrMalformedSignature = errors.New("malformed signature")

	// ErrInvalidComponents is returned for r or s values outside (0, n).
	ErrInvalidComponents = errors.New("invalid signature components")

	// ErrZeroDenominator is returned when the affine hypothesis does not
	// hold for the given signature pair.
	ErrZeroDenominator = errors.New("denominator is zero: cannot recover private key")

	// ErrZeroResult is returned when recovery yields the zero key.
	ErrZeroResult = errors.New("recovered private key is zero")
)
