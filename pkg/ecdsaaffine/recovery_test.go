package ecdsaaffine

import (
	"errors"
	"math/big"
	"testing"
)

func TestRecoverFromAffine_RoundTrip(t *testing.T) {
	field := Secp256k1Field()
	priv, _ := new(big.Int).SetString("5f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f8", 16)

	tests := []struct {
		name string
		a, b int64
	}{
		{"same nonce", 1, 0},
		{"counter", 1, 1},
		{"hardcoded step", 1, 12345},
		{"affine 2k+1", 2, 1},
		{"affine 3k+5", 3, 5},
		{"negate", -1, 0},
		{"negative offset", 7, -99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig1, sig2, key := mustFixture(t, tt.a, tt.b, priv)
			if key.Cmp(priv) != 0 {
				t.Fatalf("Fixture used key %s, want %s", key.Text(16), priv.Text(16))
			}

			out := RecoverFromAffine(field, sig1, sig2, big.NewInt(tt.a), big.NewInt(tt.b))
			if !out.Success {
				t.Fatalf("Recovery failed: %s", out.FailureReason())
			}
			if out.PrivateKey.Cmp(priv) != 0 {
				t.Errorf("Recovered key mismatch. Got: %s, Expected: %s", out.PrivateKey.Text(16), priv.Text(16))
			}
			if out.Signatures[0] != sig1 || out.Signatures[1] != sig2 {
				t.Error("Outcome should reference the signatures used")
			}
			if out.Relationship.A.Int64() != tt.a || out.Relationship.B.Int64() != tt.b {
				t.Error("Outcome should carry the affine hypothesis")
			}
		})
	}
}

func TestRecoverFromAffine_RandomKey(t *testing.T) {
	sig1, sig2, priv := mustFixture(t, 2, 1, nil)

	out := RecoverFromAffine(Secp256k1Field(), sig1, sig2, big.NewInt(2), big.NewInt(1))
	if !out.Success || out.PrivateKey.Cmp(priv) != 0 {
		t.Fatalf("Round trip with random key failed: %s", out.FailureReason())
	}
}

func TestRecoverFromAffine_WrongHypothesis(t *testing.T) {
	sig1, sig2, priv := mustFixture(t, 1, 1, nil)

	out := RecoverFromAffine(Secp256k1Field(), sig1, sig2, big.NewInt(1), big.NewInt(2))
	if out.Success && out.PrivateKey.Cmp(priv) == 0 {
		t.Error("Wrong hypothesis should not yield the signing key")
	}
}

func TestRecoverFromAffine_ZeroDenominator(t *testing.T) {
	field := Secp256k1Field()
	// r2*s1 == a*r1*s2: 5*7 == 1*5*7
	sig1 := &Signature{Z: big.NewInt(10), R: big.NewInt(5), S: big.NewInt(7)}
	sig2 := &Signature{Z: big.NewInt(20), R: big.NewInt(5), S: big.NewInt(7)}

	out := RecoverFromAffine(field, sig1, sig2, big.NewInt(1), big.NewInt(0))
	if out.Success {
		t.Fatal("Expected failure for zero denominator")
	}
	if !errors.Is(out.Err, ErrZeroDenominator) {
		t.Errorf("Expected ErrZeroDenominator, got %v", out.Err)
	}
	if out.FailureReason() == "" {
		t.Error("Failure reason should be set")
	}
}

func TestRecoverFromAffine_ZeroResult(t *testing.T) {
	sig1 := &Signature{Z: big.NewInt(0), R: big.NewInt(1), S: big.NewInt(1)}
	sig2 := &Signature{Z: big.NewInt(0), R: big.NewInt(2), S: big.NewInt(1)}

	out := RecoverFromAffine(Secp256k1Field(), sig1, sig2, big.NewInt(1), big.NewInt(0))
	if !errors.Is(out.Err, ErrZeroResult) {
		t.Errorf("Expected ErrZeroResult, got %v", out.Err)
	}
}

func TestRecoverFromAffine_InvalidComponents(t *testing.T) {
	field := Secp256k1Field()
	good := &Signature{Z: big.NewInt(1), R: big.NewInt(2), S: big.NewInt(3)}

	for _, bad := range []*Signature{
		{Z: big.NewInt(1), R: big.NewInt(0), S: big.NewInt(3)},
		{Z: big.NewInt(1), R: big.NewInt(2), S: big.NewInt(0)},
		{Z: big.NewInt(1), R: nil, S: big.NewInt(3)},
	} {
		if out := RecoverFromAffine(field, good, bad, big.NewInt(1), big.NewInt(1)); !errors.Is(out.Err, ErrInvalidComponents) {
			t.Errorf("Expected ErrInvalidComponents, got %v", out.Err)
		}
		if out := RecoverFromAffine(field, bad, good, big.NewInt(1), big.NewInt(1)); !errors.Is(out.Err, ErrInvalidComponents) {
			t.Errorf("Expected ErrInvalidComponents, got %v", out.Err)
		}
	}
}

func TestRecoverPrivateKey_InvalidDenominator(t *testing.T) {
	sig1 := &Signature{Z: big.NewInt(100), R: big.NewInt(200), S: big.NewInt(300)}
	sig2 := &Signature{Z: big.NewInt(100), R: big.NewInt(200), S: big.NewInt(300)}

	_, err := RecoverPrivateKey(sig1, sig2, big.NewInt(1), big.NewInt(0))
	if err == nil {
		t.Error("Expected error for invalid denominator, got nil")
	}
}

func TestRecoverFromReuse_RoundTrip(t *testing.T) {
	field := Secp256k1Field()
	sig1, sig2, priv, err := GenerateReuseFixture(field, nil, nil)
	if err != nil {
		t.Fatalf("Failed to generate fixture: %v", err)
	}
	if sig1.R.Cmp(sig2.R) != 0 {
		t.Fatal("Reuse fixture should share r")
	}

	keys := RecoverFromReuse(field, []*Signature{sig1, sig2})
	if len(keys) != 1 {
		t.Fatalf("Expected 1 candidate, got %d", len(keys))
	}
	if keys[0].Cmp(priv) != 0 {
		t.Errorf("Recovered key mismatch. Got: %s, Expected: %s", keys[0].Text(16), priv.Text(16))
	}
}

func TestRecoverFromReuse_ConcreteScenario(t *testing.T) {
	field := Secp256k1Field()
	sigs := []*Signature{
		{Z: big.NewInt(10), R: big.NewInt(5), S: big.NewInt(7)},
		{Z: big.NewInt(20), R: big.NewInt(5), S: big.NewInt(9)},
	}

	// s_diff = n-2, k = -10/-2 = 5, priv = (7*5 - 10)/5 = 5
	first := RecoverFromReuse(field, sigs)
	if len(first) != 1 {
		t.Fatalf("Expected a single candidate, got %d", len(first))
	}
	if first[0].Cmp(big.NewInt(5)) != 0 {
		t.Errorf("priv = %s, want 5", first[0])
	}

	second := RecoverFromReuse(field, sigs)
	if second[0].Cmp(first[0]) != 0 {
		t.Error("Recovery is not reproducible")
	}
}

func TestRecoverFromReuse_SkipsEqualS(t *testing.T) {
	sig := &Signature{Z: big.NewInt(10), R: big.NewInt(5), S: big.NewInt(7)}
	dup := &Signature{Z: big.NewInt(20), R: big.NewInt(5), S: big.NewInt(7)}

	if keys := RecoverFromReuse(Secp256k1Field(), []*Signature{sig, dup}); len(keys) != 0 {
		t.Errorf("Expected no candidates for equal s, got %d", len(keys))
	}
}

func TestRecoverFromReuse_Deduplicates(t *testing.T) {
	field := Secp256k1Field()
	sig1, sig2, priv, err := GenerateReuseFixture(field, nil, nil)
	if err != nil {
		t.Fatalf("Failed to generate fixture: %v", err)
	}
	sig3, err := signWithNonce(field, HashMessage([]byte("third")), sig1.Nonce, priv)
	if err != nil {
		t.Fatalf("Failed to sign: %v", err)
	}

	keys := RecoverFromReuse(field, []*Signature{sig1, sig2, sig3})
	if len(keys) != 1 {
		t.Fatalf("Expected 1 deduplicated candidate, got %d", len(keys))
	}
	if keys[0].Cmp(priv) != 0 {
		t.Error("Recovered key mismatch")
	}
}

func TestRecoverFromReuse_CoincidentalCollision(t *testing.T) {
	field := Secp256k1Field()
	sigA1, sigA2, privA, err := GenerateReuseFixture(field, nil, nil)
	if err != nil {
		t.Fatalf("Failed to generate fixture: %v", err)
	}
	privB, err := field.RandomScalar(nil)
	if err != nil {
		t.Fatal(err)
	}
	sigB, err := signWithNonce(field, HashMessage([]byte("other signer")), sigA1.Nonce, privB)
	if err != nil {
		t.Fatalf("Failed to sign: %v", err)
	}

	keys := RecoverFromReuse(field, []*Signature{sigA1, sigA2, sigB})
	if len(keys) < 2 {
		t.Fatalf("Expected several candidates for a mixed-key collision, got %d", len(keys))
	}
	if keys[0].Cmp(privA) != 0 {
		t.Error("First candidate should come from the first pair")
	}
}

func TestRecoverFromKnownNonce(t *testing.T) {
	field := Secp256k1Field()
	sig1, _, priv := mustFixture(t, 1, 1, nil)

	got, err := RecoverFromKnownNonce(field, sig1, sig1.Nonce)
	if err != nil {
		t.Fatalf("Recovery failed: %v", err)
	}
	if got.Cmp(priv) != 0 {
		t.Error("Recovered key mismatch")
	}

	if _, err := RecoverFromKnownNonce(field, sig1, big.NewInt(0)); !errors.Is(err, ErrInvalidComponents) {
		t.Errorf("Expected ErrInvalidComponents for zero nonce, got %v", err)
	}
}

func TestNewSignature_RejectsZeroComponents(t *testing.T) {
	field := Secp256k1Field()
	z := big.NewInt(1)

	tests := []struct {
		name string
		r, s *big.Int
	}{
		{"zero r", big.NewInt(0), big.NewInt(3)},
		{"zero s", big.NewInt(2), big.NewInt(0)},
		{"r equal n", field.N(), big.NewInt(3)},
		{"negative s", big.NewInt(2), big.NewInt(-3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := NewSignature(field, z, tt.r, tt.s)
			if !errors.Is(err, ErrInvalidComponents) {
				t.Errorf("Expected ErrInvalidComponents, got %v", err)
			}
			if sig != nil {
				t.Error("No record should be produced")
			}
		})
	}
}

func TestNewSignature_ReducesZ(t *testing.T) {
	field := Secp256k1Field()
	z := new(big.Int).Add(field.N(), big.NewInt(9))

	sig, err := NewSignature(field, z, big.NewInt(2), big.NewInt(3))
	if err != nil {
		t.Fatalf("NewSignature failed: %v", err)
	}
	if sig.Z.Int64() != 9 {
		t.Errorf("z = %s, want 9", sig.Z)
	}
}

func TestGenerateFixture_Consistency(t *testing.T) {
	field := Secp256k1Field()
	a, b := big.NewInt(3), big.NewInt(5)
	sig1, sig2, priv, err := GenerateFixture(field, nil, a, b, nil)
	if err != nil {
		t.Fatalf("GenerateFixture failed: %v", err)
	}

	if want := field.Add(new(big.Int).Mul(a, sig1.Nonce), b); sig2.Nonce.Cmp(want) != 0 {
		t.Error("k2 != a*k1 + b")
	}
	for _, sig := range []*Signature{sig1, sig2} {
		// s*k == z + r*priv
		lhs := field.Mul(sig.S, sig.Nonce)
		rhs := field.Add(sig.Z, new(big.Int).Mul(sig.R, priv))
		if lhs.Cmp(rhs) != 0 {
			t.Error("Signature equation does not hold")
		}
	}
	if sig1.Z.Cmp(sig2.Z) == 0 {
		t.Error("Fixture messages should differ")
	}
}

func TestGenerateFixture_InvalidKey(t *testing.T) {
	field := Secp256k1Field()
	if _, _, _, err := GenerateFixture(field, nil, big.NewInt(1), big.NewInt(1), big.NewInt(0)); err == nil {
		t.Error("Expected error for zero private key")
	}
	if _, _, _, err := GenerateFixture(field, nil, big.NewInt(1), big.NewInt(1), field.N()); err == nil {
		t.Error("Expected error for private key equal to n")
	}
}

func TestHashMessage(t *testing.T) {
	message := []byte("test message")
	z := HashMessage(message)

	if z == nil {
		t.Fatal("Hash result is nil")
	}
	if z.Sign() <= 0 || z.Cmp(Secp256k1CurveOrder) >= 0 {
		t.Error("Hash result is not in [1, n)")
	}
	if z.Cmp(HashMessage(message)) != 0 {
		t.Error("Same message should produce same hash")
	}
	if z.Cmp(HashMessage([]byte("different message"))) == 0 {
		t.Error("Different messages should produce different hashes")
	}
}

func TestVerifyRecoveredKey(t *testing.T) {
	_, _, priv := mustFixture(t, 1, 1, nil)

	compressed, err := decodePublicKey(publicKeyHex(priv))
	if err != nil {
		t.Fatalf("Failed to decode public key: %v", err)
	}

	verified, err := VerifyRecoveredKey(priv, compressed)
	if err != nil {
		t.Fatalf("Verification failed: %v", err)
	}
	if !verified {
		t.Error("Key verification should succeed")
	}

	verified, err = VerifyRecoveredKey(big.NewInt(12345), compressed)
	if err != nil {
		t.Fatalf("Verification should not error: %v", err)
	}
	if verified {
		t.Error("Wrong key should not verify")
	}
}

func TestVerifyRecoveredKey_Uncompressed(t *testing.T) {
	priv := big.NewInt(5)
	b := make([]byte, 32)
	priv.FillBytes(b)
	uncompressed := uncompressedPubKey(b)

	verified, err := VerifyRecoveredKey(priv, uncompressed)
	if err != nil {
		t.Fatalf("Verification failed: %v", err)
	}
	if !verified {
		t.Error("Uncompressed key verification should succeed")
	}
}

func TestVerifyRecoveredKey_InvalidPublicKey(t *testing.T) {
	if _, err := VerifyRecoveredKey(big.NewInt(5), []byte{1, 2, 3}); err == nil {
		t.Error("Expected error for invalid public key length")
	}
}
