package ecdsaaffine

import (
	"context"
	"fmt"
	"math/big"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/decred/slog"
)

// SmartBruteForceStrategy implements a multi-phase brute-force strategy
// that tries r reuse and common patterns first, then expands the search range.
type SmartBruteForceStrategy struct {
	RangeConfig   RangeConfig
	PatternConfig PatternConfig

	field *Field
	log   slog.Logger
}

// NewSmartBruteForceStrategy creates a new smart brute-force strategy with
// default settings over the secp256k1 order.
func NewSmartBruteForceStrategy() *SmartBruteForceStrategy {
	return &SmartBruteForceStrategy{
		RangeConfig:   DefaultRangeConfig(),
		PatternConfig: DefaultPatternConfig(),
		field:         Secp256k1Field(),
		log:           slog.Disabled,
	}
}

// WithRangeConfig sets the range configuration for the strategy.
func (s *SmartBruteForceStrategy) WithRangeConfig(config RangeConfig) *SmartBruteForceStrategy {
	s.RangeConfig = config
	return s
}

// WithPatternConfig sets the pattern configuration for the strategy.
func (s *SmartBruteForceStrategy) WithPatternConfig(config PatternConfig) *SmartBruteForceStrategy {
	s.PatternConfig = config
	return s
}

// WithField sets the field the recovery arithmetic runs in.
func (s *SmartBruteForceStrategy) WithField(field *Field) *SmartBruteForceStrategy {
	s.field = field
	return s
}

// WithLogger sets the logger used for phase progress.
func (s *SmartBruteForceStrategy) WithLogger(log slog.Logger) *SmartBruteForceStrategy {
	s.log = log
	return s
}

// Name returns the name of this strategy.
func (s *SmartBruteForceStrategy) Name() string {
	return "SmartBruteForce"
}

// Search implements the BruteForceStrategy interface.
func (s *SmartBruteForceStrategy) Search(ctx context.Context, signatures []*Signature, publicKey []byte) *RecoveryResult {
	if len(signatures) < 2 {
		return nil
	}

	s.log.Infof("Starting key recovery with %d signatures", len(signatures))

	s.log.Debugf("Phase 0: checking for r reuse")
	if result := s.checkSameNonceReuse(signatures, publicKey); result != nil {
		s.log.Infof("Found r reuse between signatures %d and %d", result.SignaturePair[0], result.SignaturePair[1])
		return result
	}

	if s.PatternConfig.IncludeCommonPatterns {
		s.log.Debugf("Phase 1: trying common patterns")
		if result := s.tryPatterns(ctx, signatures, publicKey, commonPatterns()); result != nil {
			s.log.Infof("Found pattern %s", result.Pattern)
			return result
		}
	}

	if len(s.PatternConfig.CustomPatterns) > 0 {
		s.log.Debugf("Phase 2: trying %d custom patterns", len(s.PatternConfig.CustomPatterns))
		if result := s.tryPatterns(ctx, signatures, publicKey, s.PatternConfig.CustomPatterns); result != nil {
			s.log.Infof("Found custom pattern %s", result.Pattern)
			return result
		}
	}

	s.log.Debugf("Phase 3: adaptive range search")
	return s.adaptiveRangeSearch(ctx, signatures, publicKey)
}

// accept checks a candidate key against the public key when one is given.
// Without a public key every in-range candidate is accepted.
func (s *SmartBruteForceStrategy) accept(priv *big.Int, publicKey []byte) (ok, verified bool) {
	if !s.field.IsValidScalar(priv) {
		return false, false
	}
	if len(publicKey) == 0 {
		return true, false
	}
	verified, _ = VerifyRecoveredKey(priv, publicKey)
	return verified, verified
}

// checkSameNonceReuse checks signature pairs with identical r values.
func (s *SmartBruteForceStrategy) checkSameNonceReuse(signatures []*Signature, publicKey []byte) *RecoveryResult {
	for i := 0; i < len(signatures); i++ {
		for j := i + 1; j < len(signatures); j++ {
			if signatures[i].R.Cmp(signatures[j].R) != 0 {
				continue
			}
			for _, priv := range RecoverFromReuse(s.field, []*Signature{signatures[i], signatures[j]}) {
				ok, verified := s.accept(priv, publicKey)
				if !ok {
					continue
				}
				return &RecoveryResult{
					PrivateKey:    priv,
					Relationship:  AffineRelationship{A: big.NewInt(1), B: big.NewInt(0)},
					SignaturePair: [2]int{i, j},
					Verified:      verified,
					Pattern:       "same_nonce_reuse",
				}
			}
		}
	}
	return nil
}

// tryPatterns tries each pattern in order across all signature pairs.
func (s *SmartBruteForceStrategy) tryPatterns(ctx context.Context, signatures []*Signature, publicKey []byte, patterns []Pattern) *RecoveryResult {
	for _, pattern := range patterns {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if result := s.tryPattern(signatures, publicKey, pattern.A, pattern.B, pattern.Name); result != nil {
			return result
		}
	}
	return nil
}

// tryPattern tries a specific (a, b) pattern across all signature pairs.
func (s *SmartBruteForceStrategy) tryPattern(signatures []*Signature, publicKey []byte, a, b *big.Int, patternName string) *RecoveryResult {
	for i := 0; i < len(signatures); i++ {
		for j := i + 1; j < len(signatures); j++ {
			priv, err := recoverAffineKey(s.field, signatures[i], signatures[j], a, b)
			if err != nil {
				continue
			}
			ok, verified := s.accept(priv, publicKey)
			if !ok {
				continue
			}
			return &RecoveryResult{
				PrivateKey:    priv,
				Relationship:  AffineRelationship{A: a, B: b},
				SignaturePair: [2]int{i, j},
				Verified:      verified,
				Pattern:       patternName,
			}
		}
	}
	return nil
}

// adaptiveRangeSearch searches widening (a, b) windows, or only the
// configured window when it differs from the default.
func (s *SmartBruteForceStrategy) adaptiveRangeSearch(ctx context.Context, signatures []*Signature, publicKey []byte) *RecoveryResult {
	phases := adaptivePhases
	if !s.RangeConfig.isDefault() {
		phases = []searchPhase{{s.RangeConfig.ARange, s.RangeConfig.BRange, "custom range"}}
	}

	for _, p := range phases {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		s.log.Infof("%s: testing a∈[%d,%d], b∈[%d,%d] (~%d combinations)",
			p.name, p.aRange[0], p.aRange[1], p.bRange[0], p.bRange[1], p.combinations(s.RangeConfig.SkipZeroA))

		if result := s.rangeSearch(ctx, signatures, publicKey, p.aRange, p.bRange); result != nil {
			s.log.Infof("Found key in %s", p.name)
			return result
		}
	}

	s.log.Infof("All phases completed, key not found")
	return nil
}

// rangeSearch fans signature pairs out to workers that walk the (a, b)
// window. The first accepted key cancels the remaining work.
func (s *SmartBruteForceStrategy) rangeSearch(ctx context.Context, signatures []*Signature, publicKey []byte, aRange, bRange [2]int) *RecoveryResult {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	numWorkers := s.RangeConfig.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	maxPairs := s.RangeConfig.MaxPairs
	if maxPairs <= 0 {
		maxPairs = len(signatures) * len(signatures)
	}

	var tested int64
	resultChan := make(chan *RecoveryResult, 1)
	workChan := make(chan [2]int, numWorkers*4)

	go func() {
		defer close(workChan)
		pairCount := 0
		for i := 0; i < len(signatures) && pairCount < maxPairs; i++ {
			for j := i + 1; j < len(signatures) && pairCount < maxPairs; j++ {
				select {
				case <-ctx.Done():
					return
				case workChan <- [2]int{i, j}:
					pairCount++
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pair := range workChan {
				if result := s.searchPair(ctx, signatures, publicKey, pair, aRange, bRange, &tested); result != nil {
					select {
					case resultChan <- result:
						cancel()
					default:
					}
					return
				}
			}
		}()
	}
	wg.Wait()

	s.log.Debugf("Tested %d combinations", atomic.LoadInt64(&tested))
	select {
	case result := <-resultChan:
		return result
	default:
		return nil
	}
}

func (s *SmartBruteForceStrategy) searchPair(ctx context.Context, signatures []*Signature, publicKey []byte, pair [2]int, aRange, bRange [2]int, tested *int64) *RecoveryResult {
	i, j := pair[0], pair[1]
	for a := aRange[0]; a <= aRange[1]; a++ {
		if s.RangeConfig.SkipZeroA && a == 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		aBig := big.NewInt(int64(a))
		for b := bRange[0]; b <= bRange[1]; b++ {
			if n := atomic.AddInt64(tested, 1); n%100000 == 0 {
				s.log.Tracef("Tested %d combinations", n)
			}
			bBig := big.NewInt(int64(b))
			priv, err := recoverAffineKey(s.field, signatures[i], signatures[j], aBig, bBig)
			if err != nil {
				continue
			}
			ok, verified := s.accept(priv, publicKey)
			if !ok {
				continue
			}
			return &RecoveryResult{
				PrivateKey:    priv,
				Relationship:  AffineRelationship{A: aBig, B: bBig},
				SignaturePair: pair,
				Verified:      verified,
				Pattern:       fmt.Sprintf("brute_force_a%d_b%d", a, b),
			}
		}
	}
	return nil
}
