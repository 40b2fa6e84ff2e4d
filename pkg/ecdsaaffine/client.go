package ecdsaaffine

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/decred/slog"
)

// Client provides a high-level API for ECDSA key recovery operations.
type Client struct {
	field    *Field
	strategy BruteForceStrategy
	parser   SignatureParser
	log      slog.Logger
}

// NewClient creates a new client with default settings.
func NewClient() *Client {
	return &Client{
		field:    Secp256k1Field(),
		strategy: NewSmartBruteForceStrategy(),
		parser:   &JSONParser{},
		log:      slog.Disabled,
	}
}

// WithStrategy sets a custom brute-force strategy.
func (c *Client) WithStrategy(strategy BruteForceStrategy) *Client {
	c.strategy = strategy
	return c
}

// WithParser sets a custom signature parser.
func (c *Client) WithParser(parser SignatureParser) *Client {
	c.parser = parser
	return c
}

// WithLogger sets the client logger. The default strategy logs through it
// as well.
func (c *Client) WithLogger(log slog.Logger) *Client {
	c.log = log
	if s, ok := c.strategy.(*SmartBruteForceStrategy); ok {
		s.WithLogger(log)
	}
	return c
}

// Field returns the field used by the client.
func (c *Client) Field() *Field {
	return c.field
}

// RecoverKey attempts to recover a private key from signatures in a file.
//
// Args:
//   - ctx: Context for cancellation.
//   - source: Path to signature file (JSON or CSV).
//   - publicKeyHex: Optional public key in hex format for verification.
//
// Returns:
//   - RecoveryResult if successful, error otherwise.
func (c *Client) RecoverKey(ctx context.Context, source string, publicKeyHex string) (*RecoveryResult, error) {
	signatures, err := c.parser.ParseSignatures(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signatures: %w", err)
	}
	return c.RecoverKeyFromSignatures(ctx, signatures, publicKeyHex)
}

// RecoverKeyFromSignatures attempts to recover a private key from in-memory signatures.
func (c *Client) RecoverKeyFromSignatures(ctx context.Context, signatures []*Signature, publicKeyHex string) (*RecoveryResult, error) {
	if len(signatures) < 2 {
		return nil, fmt.Errorf("need at least 2 signatures, got %d", len(signatures))
	}
	publicKey, err := decodePublicKey(publicKeyHex)
	if err != nil {
		return nil, err
	}

	c.log.Debugf("Searching %d signatures with %s", len(signatures), c.strategy.Name())
	result := c.strategy.Search(ctx, signatures, publicKey)
	if result == nil {
		return nil, fmt.Errorf("failed to recover private key")
	}
	return result, nil
}

// RecoverKeyWithKnownRelationship recovers a private key when the affine relationship is known.
//
// Args:
//   - ctx: Context for cancellation.
//   - source: Path to signature file.
//   - a: Affine coefficient (k2 = a*k1 + b).
//   - b: Affine offset (k2 = a*k1 + b).
//   - publicKeyHex: Optional public key for verification.
//
// Returns:
//   - RecoveryResult if successful, error otherwise.
func (c *Client) RecoverKeyWithKnownRelationship(ctx context.Context, source string, a, b int64, publicKeyHex string) (*RecoveryResult, error) {
	signatures, err := c.parser.ParseSignatures(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signatures: %w", err)
	}
	if len(signatures) < 2 {
		return nil, fmt.Errorf("need at least 2 signatures, got %d", len(signatures))
	}
	publicKey, err := decodePublicKey(publicKeyHex)
	if err != nil {
		return nil, err
	}

	aBig := big.NewInt(a)
	bBig := big.NewInt(b)
	for i := 0; i < len(signatures); i++ {
		for j := i + 1; j < len(signatures); j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out := RecoverFromAffine(c.field, signatures[i], signatures[j], aBig, bBig)
			if !out.Success {
				c.log.Tracef("Pair (%d, %d): %s", i, j, out.FailureReason())
				continue
			}

			verified := false
			if len(publicKey) > 0 {
				verified, _ = VerifyRecoveredKey(out.PrivateKey, publicKey)
				if !verified {
					continue
				}
			}
			return &RecoveryResult{
				PrivateKey:    out.PrivateKey,
				Relationship:  out.Relationship,
				SignaturePair: [2]int{i, j},
				Verified:      verified,
				Pattern:       fmt.Sprintf("known_a%d_b%d", a, b),
			}, nil
		}
	}

	return nil, fmt.Errorf("failed to recover private key with known relationship a=%d, b=%d", a, b)
}

// RecoverReusedNonces groups the signatures in a file by r and returns
// the candidate keys of every group with at least two members.
func (c *Client) RecoverReusedNonces(source string) (map[string][]*big.Int, error) {
	signatures, err := c.parser.ParseSignatures(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signatures: %w", err)
	}

	groups := make(map[string][]*Signature)
	var order []string
	for _, sig := range signatures {
		key := sig.R.Text(16)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], sig)
	}

	keys := make(map[string][]*big.Int)
	for _, r := range order {
		if len(groups[r]) < 2 {
			continue
		}
		if candidates := RecoverFromReuse(c.field, groups[r]); len(candidates) > 0 {
			keys[r] = candidates
		}
	}
	return keys, nil
}

func decodePublicKey(publicKeyHex string) ([]byte, error) {
	if publicKeyHex == "" {
		return nil, nil
	}
	publicKey, err := hex.DecodeString(strings.TrimPrefix(publicKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	if len(publicKey) != 33 && len(publicKey) != 65 {
		return nil, fmt.Errorf("public key must be 33 or 65 bytes, got %d", len(publicKey))
	}
	return publicKey, nil
}
