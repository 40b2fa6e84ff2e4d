package ecdsaaffine

import (
	"errors"
	"math/big"
	"testing"
)

func TestField_Reduce(t *testing.T) {
	field := Secp256k1Field()
	n := field.N()

	tests := []struct {
		name string
		in   *big.Int
		want *big.Int
	}{
		{"zero", big.NewInt(0), big.NewInt(0)},
		{"small", big.NewInt(42), big.NewInt(42)},
		{"minus one", big.NewInt(-1), new(big.Int).Sub(n, big.NewInt(1))},
		{"minus two", big.NewInt(-2), new(big.Int).Sub(n, big.NewInt(2))},
		{"n", n, big.NewInt(0)},
		{"n plus three", new(big.Int).Add(n, big.NewInt(3)), big.NewInt(3)},
		{"minus n minus one", new(big.Int).Neg(new(big.Int).Add(n, big.NewInt(1))), new(big.Int).Sub(n, big.NewInt(1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := field.Reduce(tt.in)
			if got.Cmp(tt.want) != 0 {
				t.Errorf("Reduce(%s) = %s, want %s", tt.in, got, tt.want)
			}
			if got.Sign() < 0 || got.Cmp(n) >= 0 {
				t.Errorf("Reduce(%s) = %s is outside [0, n)", tt.in, got)
			}
		})
	}
}

func TestField_Inverse(t *testing.T) {
	field := Secp256k1Field()

	for _, v := range []int64{1, 2, 5, 12345, -7} {
		a := big.NewInt(v)
		inv, err := field.Inverse(a)
		if err != nil {
			t.Fatalf("Inverse(%d) failed: %v", v, err)
		}
		if got := field.Mul(a, inv); got.Cmp(big.NewInt(1)) != 0 {
			t.Errorf("%d * Inverse(%d) = %s, want 1", v, v, got)
		}
	}
}

func TestField_InverseZero(t *testing.T) {
	field := Secp256k1Field()

	if _, err := field.Inverse(big.NewInt(0)); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("Expected ErrDivisionByZero, got %v", err)
	}
	if _, err := field.Inverse(field.N()); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("Expected ErrDivisionByZero for n, got %v", err)
	}
}

func TestField_CompositeModulus(t *testing.T) {
	field, err := NewField(big.NewInt(10))
	if err != nil {
		t.Fatalf("NewField failed: %v", err)
	}

	if _, err := field.Inverse(big.NewInt(4)); !errors.Is(err, ErrNotInvertible) {
		t.Errorf("Expected ErrNotInvertible, got %v", err)
	}

	inv, err := field.Inverse(big.NewInt(3))
	if err != nil {
		t.Fatalf("Inverse(3) mod 10 failed: %v", err)
	}
	if inv.Int64() != 7 {
		t.Errorf("Inverse(3) mod 10 = %s, want 7", inv)
	}
}

func TestNewField_Invalid(t *testing.T) {
	for _, n := range []*big.Int{nil, big.NewInt(0), big.NewInt(1), big.NewInt(-11)} {
		if _, err := NewField(n); err == nil {
			t.Errorf("NewField(%v) should fail", n)
		}
	}
}

func TestField_IndependentModuli(t *testing.T) {
	small, err := NewField(big.NewInt(101))
	if err != nil {
		t.Fatalf("NewField failed: %v", err)
	}
	large := Secp256k1Field()

	a := big.NewInt(250)
	if got := small.Reduce(a); got.Int64() != 48 {
		t.Errorf("small.Reduce(250) = %s, want 48", got)
	}
	if got := large.Reduce(a); got.Int64() != 250 {
		t.Errorf("large.Reduce(250) = %s, want 250", got)
	}
}

func TestField_RandomScalar(t *testing.T) {
	field, err := NewField(big.NewInt(3))
	if err != nil {
		t.Fatalf("NewField failed: %v", err)
	}
	for i := 0; i < 50; i++ {
		k, err := field.RandomScalar(nil)
		if err != nil {
			t.Fatalf("RandomScalar failed: %v", err)
		}
		if !field.IsValidScalar(k) {
			t.Fatalf("RandomScalar returned %s outside [1, 3)", k)
		}
	}
}
