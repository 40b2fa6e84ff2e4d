package chainscan

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/decred/slog"
	"golang.org/x/sync/errgroup"

	"github.com/mahdiidarabi/ecdsa-noncescan/pkg/ecdsaaffine"
)

// BlockProvider returns the transactions of the block at a height.
type BlockProvider interface {
	FetchBlock(ctx context.Context, height int64) ([]Transaction, error)
}

// ProgressFunc is called after every block with the completed fraction,
// the number of blocks done and the total. It runs on the analysis
// goroutine and must not block.
type ProgressFunc func(fraction float64, done, total int64)

// Analyzer scans block ranges for r collisions. An Analyzer may run
// several passes one after another; each pass owns its own index.
type Analyzer struct {
	provider   BlockProvider
	field      *ecdsaaffine.Field
	log        slog.Logger
	prefetch   int
	exhaustive bool

	mtx   sync.Mutex
	state State
}

// NewAnalyzer creates an analyzer over the secp256k1 order that fetches
// one block at a time.
func NewAnalyzer(provider BlockProvider) *Analyzer {
	return &Analyzer{
		provider: provider,
		field:    ecdsaaffine.Secp256k1Field(),
		log:      slog.Disabled,
	}
}

// WithLogger sets the logger.
func (a *Analyzer) WithLogger(log slog.Logger) *Analyzer {
	a.log = log
	return a
}

// WithField sets the field signatures are validated and recovered in.
func (a *Analyzer) WithField(field *ecdsaaffine.Field) *Analyzer {
	a.field = field
	return a
}

// WithPrefetch fetches up to n blocks ahead of the one being indexed.
// Values below 2 keep fetching sequential.
func (a *Analyzer) WithPrefetch(n int) *Analyzer {
	a.prefetch = n
	return a
}

// WithExhaustive extracts a signature from every input instead of only
// the first one per transaction.
func (a *Analyzer) WithExhaustive(exhaustive bool) *Analyzer {
	a.exhaustive = exhaustive
	return a
}

// State returns the state of the current or last pass.
func (a *Analyzer) State() State {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.state
}

func (a *Analyzer) setState(s State) {
	a.mtx.Lock()
	a.state = s
	a.mtx.Unlock()
}

// fetched is the outcome of fetching one block.
type fetched struct {
	height int64
	txs    []Transaction
	err    error
}

// pass is the mutable state of one Analyze call.
type pass struct {
	extractor *Extractor
	index     *NonceIndex
	addresses map[string]struct{}
	result    *AnalysisResult
}

// Analyze scans [r.Start, min(r.End, r.Start+maxBlocks-1)] in height
// order. maxBlocks <= 0 leaves the range uncapped.
//
// Provider failures are counted and skipped. When ctx is cancelled the
// pass stops at the next block boundary and the partial result is
// returned with StateAborted and a nil error.
func (a *Analyzer) Analyze(ctx context.Context, r BlockRange, maxBlocks int64, progress ProgressFunc) (*AnalysisResult, error) {
	if r.Start < 0 || r.Start > r.End {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, r)
	}
	if maxBlocks > 0 && r.Start+maxBlocks-1 < r.End {
		r.End = r.Start + maxBlocks - 1
	}

	started := time.Now()
	p := &pass{
		extractor: NewExtractor(a.field),
		index:     NewNonceIndex(),
		addresses: make(map[string]struct{}),
		result:    &AnalysisResult{State: StateRunning, Range: r},
	}
	a.setState(StateRunning)
	a.log.Infof("Analyzing blocks %v", r)

	fetchCtx, cancel := context.WithCancel(ctx)
	blocks, wait := a.fetchBlocks(fetchCtx, r)
	defer func() {
		cancel()
		wait()
	}()

	total := r.Len()
	state := StateCompleted
	for done := int64(0); done < total; done++ {
		if ctx.Err() != nil {
			state = StateAborted
			break
		}
		b, ok := <-blocks
		if !ok || ctx.Err() != nil {
			state = StateAborted
			break
		}
		a.consume(p, b)
		if progress != nil {
			progress(float64(done+1)/float64(total), done+1, total)
		}
	}

	a.finalize(p)
	p.result.State = state
	p.result.Elapsed = time.Since(started)
	a.setState(state)

	a.log.Infof("Analysis %v after %d blocks: %d signatures, %d collisions, %d errors",
		state, p.result.BlocksAnalyzed, p.result.SignaturesExtracted, p.result.ReuseCount, p.result.Errors)
	return p.result, nil
}

// fetchBlocks streams the blocks of r in height order. The returned wait
// function blocks until every fetch goroutine has exited.
func (a *Analyzer) fetchBlocks(ctx context.Context, r BlockRange) (<-chan fetched, func()) {
	out := make(chan fetched)
	done := make(chan struct{})

	if a.prefetch < 2 {
		go func() {
			defer close(done)
			defer close(out)
			for h := r.Start; h <= r.End; h++ {
				txs, err := a.provider.FetchBlock(ctx, h)
				select {
				case out <- fetched{height: h, txs: txs, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
		return out, func() { <-done }
	}

	// Each height gets its own single-slot channel; queue hands them to
	// the forwarder in height order while at most prefetch fetches run.
	queue := make(chan chan fetched, a.prefetch)
	var g errgroup.Group
	g.SetLimit(a.prefetch)

	go func() {
		defer close(queue)
		for h := r.Start; h <= r.End && ctx.Err() == nil; h++ {
			slot := make(chan fetched, 1)
			select {
			case queue <- slot:
			case <-ctx.Done():
				return
			}
			height := h
			g.Go(func() error {
				txs, err := a.provider.FetchBlock(ctx, height)
				slot <- fetched{height: height, txs: txs, err: err}
				return nil
			})
		}
	}()

	go func() {
		defer close(done)
		defer close(out)
		defer func() {
			for range queue {
			}
			_ = g.Wait()
		}()
		for slot := range queue {
			select {
			case b := <-slot:
				select {
				case out <- b:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, func() { <-done }
}

// consume indexes the signatures of one block.
func (a *Analyzer) consume(p *pass, b fetched) {
	if b.err != nil {
		p.result.Errors++
		a.log.Warnf("%v", fmt.Errorf("%w: block %d: %w", ErrProviderFailure, b.height, b.err))
		return
	}

	p.result.BlocksAnalyzed++
	for _, tx := range b.txs {
		p.result.TransactionsProcessed++

		var sigs []*ecdsaaffine.Signature
		if a.exhaustive {
			sigs = p.extractor.ExtractAll(tx)
		} else if sig, ok := p.extractor.Extract(tx); ok {
			sigs = append(sigs, sig)
		}

		for _, sig := range sigs {
			p.index.Insert(sig)
			p.result.SignaturesExtracted++
			if sig.Address != "" {
				p.addresses[sig.Address] = struct{}{}
			}
		}
	}
	a.log.Tracef("Block %d: %d transactions", b.height, len(b.txs))
}

// finalize runs identical-nonce recovery over every collision.
func (a *Analyzer) finalize(p *pass) {
	for _, bucket := range p.index.Collisions() {
		f := &Finding{
			R:          bucket.R,
			Signatures: bucket.Signatures,
			Keys:       ecdsaaffine.RecoverFromReuse(a.field, bucket.Signatures),
		}
		f.Verified = verifyAny(f.Keys, f.Signatures)

		switch {
		case f.Verified:
			f.Severity = SeverityCritical
		case len(f.Keys) > 0:
			f.Severity = SeverityHigh
		default:
			f.Severity = SeverityMedium
		}

		a.log.Infof("r reuse %s across %d signatures: %d candidate keys (%s)",
			f.R.Text(16), len(f.Signatures), len(f.Keys), f.Severity)
		p.result.Findings = append(p.result.Findings, f)
	}

	p.result.ReuseCount = len(p.result.Findings)
	p.result.UniqueAddresses = len(p.addresses)
}

// verifyAny reports whether any key derives a public key carried by one
// of the signatures.
func verifyAny(keys []*big.Int, sigs []*ecdsaaffine.Signature) bool {
	for _, sig := range sigs {
		if len(sig.PublicKey) == 0 {
			continue
		}
		for _, k := range keys {
			if ok, _ := ecdsaaffine.VerifyRecoveredKey(k, sig.PublicKey); ok {
				return true
			}
		}
	}
	return false
}
