// Package chainscan scans block ranges for ECDSA signatures that share an
// r value and recovers the signing keys behind them.
//
// A BlockProvider returns the transactions of one block. The Analyzer
// walks a range in height order, extracts one signature per transaction
// (or one per input in exhaustive mode), indexes them by r and, once the
// range is done, runs identical-nonce recovery over every collision:
//
//	analyzer := chainscan.NewAnalyzer(provider).WithPrefetch(8)
//	result, err := analyzer.Analyze(ctx, chainscan.BlockRange{Start: 1, End: 1000}, 0, nil)
//	for _, f := range result.Findings {
//	    fmt.Println(f.Severity, f.R.Text(16), len(f.Keys))
//	}
package chainscan
