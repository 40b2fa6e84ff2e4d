package ecdsaaffine

import (
	"context"
	"fmt"
	"math/big"
)

// BruteForceStrategy searches a signature set for a nonce relationship
// that yields the signing key.
type BruteForceStrategy interface {
	// Search returns a RecoveryResult if a relationship is found, or nil.
	// The context can be used for cancellation.
	Search(ctx context.Context, signatures []*Signature, publicKey []byte) *RecoveryResult

	// Name returns a human-readable name for this strategy.
	Name() string
}

// Pattern is one affine hypothesis k2 = A*k1 + B to test.
type Pattern struct {
	A        *big.Int
	B        *big.Int
	Name     string // Human-readable description
	Priority int    // Lower priority = tested first
}

// RangeConfig configures the search range for brute-force operations.
type RangeConfig struct {
	// ARange defines the range for a values [Min, Max] (inclusive)
	ARange [2]int

	// BRange defines the range for b values [Min, Max] (inclusive)
	BRange [2]int

	// MaxPairs limits the number of signature pairs to test
	MaxPairs int

	// NumWorkers controls parallelization (0 = auto-detect)
	NumWorkers int

	// SkipZeroA skips a=0, which never relates two nonces usefully
	SkipZeroA bool
}

// DefaultRangeConfig returns the default search range.
func DefaultRangeConfig() RangeConfig {
	return RangeConfig{
		ARange:     [2]int{-100, 100},
		BRange:     [2]int{-100, 100},
		MaxPairs:   100,
		NumWorkers: 0,
		SkipZeroA:  true,
	}
}

func (c RangeConfig) isDefault() bool {
	d := DefaultRangeConfig()
	return c.ARange == d.ARange && c.BRange == d.BRange
}

// PatternConfig configures the patterns tried before range search.
type PatternConfig struct {
	// CustomPatterns are additional patterns to test before brute-force
	CustomPatterns []Pattern

	// IncludeCommonPatterns includes built-in common patterns
	IncludeCommonPatterns bool
}

// DefaultPatternConfig returns a configuration with common patterns enabled.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{
		CustomPatterns:        []Pattern{},
		IncludeCommonPatterns: true,
	}
}

// searchPhase is one window of the adaptive range search.
type searchPhase struct {
	aRange [2]int
	bRange [2]int
	name   string
}

func (p searchPhase) combinations(skipZeroA bool) int {
	aCount := p.aRange[1] - p.aRange[0] + 1
	if skipZeroA && p.aRange[0] <= 0 && p.aRange[1] >= 0 {
		aCount--
	}
	return aCount * (p.bRange[1] - p.bRange[0] + 1)
}

// adaptivePhases widen from counter-like nonces to broad affine relations.
var adaptivePhases = []searchPhase{
	{[2]int{1, 1}, [2]int{-100, 100}, "a=1, small b"},
	{[2]int{1, 1}, [2]int{-1000, 1000}, "a=1, medium b"},
	{[2]int{1, 1}, [2]int{-10000, 10000}, "a=1, larger b"},
	{[2]int{2, 4}, [2]int{-1000, 1000}, "small a, medium b"},
	{[2]int{-5, -1}, [2]int{-1000, 1000}, "negative a, medium b"},
	{[2]int{1, 10}, [2]int{-50000, 50000}, "wider a, larger b"},
	{[2]int{1, 100}, [2]int{-500000000, 500000000}, "very wide search"},
}

// commonPatterns are nonce generators seen in broken signers: counters,
// fixed steps, doubling and negation.
func commonPatterns() []Pattern {
	patterns := []Pattern{
		{big.NewInt(1), big.NewInt(0), "same_nonce", 1},
	}
	for _, step := range []int64{1, 2, 3, 4, 5} {
		patterns = append(patterns,
			Pattern{big.NewInt(1), big.NewInt(step), fmt.Sprintf("counter_+%d", step), 2},
			Pattern{big.NewInt(1), big.NewInt(-step), fmt.Sprintf("counter_-%d", step), 2},
		)
	}
	for _, step := range []int64{8, 16, 32, 64, 128, 256, 512, 1024, 10, 100, 1000, 10000} {
		patterns = append(patterns, Pattern{big.NewInt(1), big.NewInt(step), fmt.Sprintf("step_%d", step), 4})
	}
	return append(patterns,
		Pattern{big.NewInt(2), big.NewInt(0), "multiply_2", 5},
		Pattern{big.NewInt(2), big.NewInt(1), "multiply_2_+1", 5},
		Pattern{big.NewInt(3), big.NewInt(0), "multiply_3", 5},
		Pattern{big.NewInt(4), big.NewInt(0), "multiply_4", 5},
		Pattern{big.NewInt(-1), big.NewInt(0), "negate", 6},
	)
}
