// Command noncescan scans a block range for ECDSA signatures that share an
// r value and recovers the signing keys behind them.
//
// Settings come from NONCESCAN_* environment variables and can be
// overridden with flags:
//
//	NONCESCAN_RPC_HOST=127.0.0.1:8332 NONCESCAN_RPC_USER=u NONCESCAN_RPC_PASS=p \
//	    noncescan -chain btc -start 250000 -end 251000
//
//	noncescan -chain file -dump blocks.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mahdiidarabi/ecdsa-noncescan/internal/config"
	"github.com/mahdiidarabi/ecdsa-noncescan/internal/logging"
	"github.com/mahdiidarabi/ecdsa-noncescan/internal/provider"
	"github.com/mahdiidarabi/ecdsa-noncescan/pkg/chainscan"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the per-run flags layered over the environment config.
type options struct {
	start, end int64
	progress   bool
	envUsage   bool
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (*options, error) {
	opts := &options{start: -1, end: -1}

	fs := flag.NewFlagSet("noncescan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Chain, "chain", cfg.Chain, "Chain to scan (btc, dcr, eth or file)")
	fs.StringVar(&cfg.Network, "network", cfg.Network, "Network name (mainnet, testnet, ...)")
	fs.StringVar(&cfg.RPCHost, "rpc-host", cfg.RPCHost, "Node RPC host:port, or endpoint URL for eth")
	fs.StringVar(&cfg.DumpFile, "dump", cfg.DumpFile, "JSON block dump for the file chain")
	fs.Int64Var(&opts.start, "start", opts.start, "First block height (default: first dump block, or tip for nodes)")
	fs.Int64Var(&opts.end, "end", opts.end, "Last block height (default: tip)")
	fs.Int64Var(&cfg.MaxBlocks, "max-blocks", cfg.MaxBlocks, "Maximum blocks to scan (0 = whole range)")
	fs.IntVar(&cfg.Prefetch, "prefetch", cfg.Prefetch, "Blocks fetched ahead of the one being indexed")
	fs.BoolVar(&cfg.Exhaustive, "exhaustive", cfg.Exhaustive, "Extract a signature from every input, not only the first")
	fs.BoolVar(&cfg.SigHash, "sighash", cfg.SigHash, "Compute real signing hashes for P2PKH inputs")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (trace, debug, info, warn, error, critical, off)")
	fs.BoolVar(&opts.progress, "progress", true, "Show a progress bar")
	fs.BoolVar(&opts.envUsage, "env", false, "Print the recognised environment variables and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	opts, err := parseFlags(args, cfg, stderr)
	if err != nil {
		return err
	}
	if opts.envUsage {
		return config.Usage()
	}

	backend, err := logging.NewBackend(stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	log := backend.Logger("SCAN")

	p, err := provider.New(ctx, cfg, backend.Logger("PRVD"))
	if err != nil {
		return fmt.Errorf("failed to open %s provider: %w", cfg.Chain, err)
	}
	defer p.Close()

	r, err := scanRange(ctx, p, opts.start, opts.end)
	if err != nil {
		return err
	}
	total := r.Len()
	if cfg.MaxBlocks > 0 && cfg.MaxBlocks < total {
		total = cfg.MaxBlocks
	}
	log.Infof("Scanning %s chain, blocks %s", cfg.Chain, r)

	var progress chainscan.ProgressFunc
	if opts.progress {
		bar := progressbar.NewOptions64(total,
			progressbar.OptionSetDescription("scanning blocks"),
			progressbar.OptionSetWriter(stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("blocks"),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionFullWidth(),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Close()
		progress = func(_ float64, done, _ int64) {
			_ = bar.Set64(done)
		}
	}

	analyzer := chainscan.NewAnalyzer(p).
		WithLogger(log).
		WithPrefetch(cfg.Prefetch).
		WithExhaustive(cfg.Exhaustive)

	result, err := analyzer.Analyze(ctx, r, cfg.MaxBlocks, progress)
	if err != nil {
		return err
	}
	printResult(stdout, result)
	return nil
}

// scanRange resolves unset bounds. Dumps default to their own range and
// nodes to the single tip block.
func scanRange(ctx context.Context, p provider.Provider, start, end int64) (chainscan.BlockRange, error) {
	if f, ok := p.(*provider.File); ok {
		r := f.Range()
		if start >= 0 {
			r.Start = start
		}
		if end >= 0 {
			r.End = end
		}
		return r, nil
	}

	if start < 0 || end < 0 {
		tip, err := p.TipHeight(ctx)
		if err != nil {
			return chainscan.BlockRange{}, fmt.Errorf("failed to get tip height: %w", err)
		}
		if end < 0 {
			end = tip
		}
		if start < 0 {
			start = end
		}
	}
	return chainscan.BlockRange{Start: start, End: end}, nil
}

func printResult(w io.Writer, result *chainscan.AnalysisResult) {
	fmt.Fprintf(w, "Scan %s: blocks %s\n", result.State, result.Range)
	fmt.Fprintf(w, "    Blocks analyzed:        %d\n", result.BlocksAnalyzed)
	fmt.Fprintf(w, "    Transactions processed: %d\n", result.TransactionsProcessed)
	fmt.Fprintf(w, "    Signatures extracted:   %d\n", result.SignaturesExtracted)
	fmt.Fprintf(w, "    Unique addresses:       %d\n", result.UniqueAddresses)
	fmt.Fprintf(w, "    Provider errors:        %d\n", result.Errors)
	fmt.Fprintf(w, "    Elapsed:                %s\n", result.Elapsed.Round(time.Millisecond))

	if len(result.Findings) == 0 {
		fmt.Fprintln(w, "\n[-] No reused nonces found")
		return
	}

	fmt.Fprintf(w, "\n[+] %d reused r values\n", result.ReuseCount)
	for i, f := range result.Findings {
		fmt.Fprintf(w, "\n#%d [%s] r=%s\n", i+1, f.Severity, f.R.Text(16))
		for _, sig := range f.Signatures {
			if sig.Address != "" {
				fmt.Fprintf(w, "    tx %s (%s)\n", sig.SourceID, sig.Address)
			} else {
				fmt.Fprintf(w, "    tx %s\n", sig.SourceID)
			}
		}
		for _, key := range f.Keys {
			fmt.Fprintf(w, "    Private key: %064x\n", key)
		}
		if f.Verified {
			fmt.Fprintln(w, "    ✓ Verified against public key!")
		}
	}
}
