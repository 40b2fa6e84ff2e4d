// Package ecdsaaffine provides tools for recovering ECDSA private keys from
// signatures whose nonces were reused or are affinely related
// (k₂ = a·k₁ + b).
//
// The affine attack is described in:
// "Breaking ECDSA with Two Affinely Related Nonces" (arXiv:2504.13737)
// by Jamie Gilchrist, William J. Buchanan, and Keir Finlow-Bates.
//
// # Arithmetic
//
// All recovery runs in a Field over an explicit group order:
//
//	field := ecdsaaffine.Secp256k1Field()
//	r, s, err := ecdsaaffine.ParseDERSignature(field, derBytes)
//
// # Recovery
//
// Signatures sharing r:
//
//	keys := ecdsaaffine.RecoverFromReuse(field, sigs)
//
// A known affine relationship:
//
//	out := ecdsaaffine.RecoverFromAffine(field, sig1, sig2, big.NewInt(2), big.NewInt(1))
//	if !out.Success {
//	    log.Println(out.FailureReason())
//	}
//
// # Searching
//
// When the relationship is unknown, a Client runs a BruteForceStrategy over
// a signature file:
//
//	client := ecdsaaffine.NewClient()
//	result, err := client.RecoverKey(ctx, "signatures.json", "03...")
//
// The default SmartBruteForceStrategy checks r reuse, then common nonce
// patterns, then widening (a, b) ranges:
//
//	strategy := ecdsaaffine.NewSmartBruteForceStrategy().
//	    WithRangeConfig(ecdsaaffine.RangeConfig{
//	        ARange:     [2]int{1, 10},
//	        BRange:     [2]int{-50000, 50000},
//	        MaxPairs:   100,
//	        NumWorkers: 16,
//	    })
//
//	client := ecdsaaffine.NewClient().WithStrategy(strategy)
package ecdsaaffine
