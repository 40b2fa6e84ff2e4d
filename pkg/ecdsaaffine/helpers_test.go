package ecdsaaffine

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// fixtureRecord is the on-disk shape read by JSONParser.
type fixtureRecord struct {
	Z string `json:"z"`
	R string `json:"r"`
	S string `json:"s"`
}

// writeFixtureFile writes signatures to a JSON file in a temp dir and
// returns its path.
func writeFixtureFile(t *testing.T, sigs ...*Signature) string {
	t.Helper()

	records := make([]fixtureRecord, 0, len(sigs))
	for _, sig := range sigs {
		records = append(records, fixtureRecord{
			Z: "0x" + sig.Z.Text(16),
			R: "0x" + sig.R.Text(16),
			S: "0x" + sig.S.Text(16),
		})
	}
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatalf("Failed to marshal fixtures: %v", err)
	}

	path := filepath.Join(t.TempDir(), "signatures.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("Failed to write fixtures: %v", err)
	}
	return path
}

// publicKeyHex returns the compressed public key of priv in hex.
func publicKeyHex(priv *big.Int) string {
	b := make([]byte, 32)
	priv.FillBytes(b)
	return hex.EncodeToString(secp256k1.PrivKeyFromBytes(b).PubKey().SerializeCompressed())
}

// mustFixture generates an affine fixture over secp256k1 or fails the test.
func mustFixture(t *testing.T, a, b int64, priv *big.Int) (*Signature, *Signature, *big.Int) {
	t.Helper()
	sig1, sig2, key, err := GenerateFixture(Secp256k1Field(), nil, big.NewInt(a), big.NewInt(b), priv)
	if err != nil {
		t.Fatalf("Failed to generate fixture: %v", err)
	}
	return sig1, sig2, key
}

// uncompressedPubKey returns the 65-byte public key of a 32-byte secret.
func uncompressedPubKey(secret []byte) []byte {
	return secp256k1.PrivKeyFromBytes(secret).PubKey().SerializeUncompressed()
}
