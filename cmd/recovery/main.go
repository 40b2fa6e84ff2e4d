// Command recovery recovers ECDSA private keys from signature files whose
// nonces were reused or are affinely related, and writes test fixtures.
//
// Modes:
//
//	recovery -mode reuse  -signatures sigs.json
//	recovery -mode affine -signatures sigs.json -known-a 1 -known-b 1
//	recovery -mode search -signatures sigs.json -public-key 02...
//	recovery -mode fixture -out fixture.json -known-a 2 -known-b 1
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/slog"

	"github.com/mahdiidarabi/ecdsa-noncescan/internal/logging"
	"github.com/mahdiidarabi/ecdsa-noncescan/pkg/ecdsaaffine"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	mode           string
	signaturesFile string
	format         string
	publicKey      string
	knownA         int64
	knownB         int64
	aRange         string
	bRange         string
	maxPairs       int
	numWorkers     int
	out            string
	privateKey     string
	logLevel       string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts options
	fs := flag.NewFlagSet("recovery", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.mode, "mode", "search", "Recovery mode (reuse, affine, search or fixture)")
	fs.StringVar(&opts.signaturesFile, "signatures", "", "Path to signatures file (JSON or CSV)")
	fs.StringVar(&opts.format, "format", "json", "Signature file format (json or csv)")
	fs.StringVar(&opts.publicKey, "public-key", "", "Public key in hex format (33 or 65 bytes) for verification")
	fs.Int64Var(&opts.knownA, "known-a", 1, "Affine coefficient a (k2 = a*k1 + b)")
	fs.Int64Var(&opts.knownB, "known-b", 0, "Affine offset b (k2 = a*k1 + b)")
	fs.StringVar(&opts.aRange, "a-range", "", "Range for a values in search mode (format: min,max)")
	fs.StringVar(&opts.bRange, "b-range", "", "Range for b values in search mode (format: min,max)")
	fs.IntVar(&opts.maxPairs, "max-pairs", 100, "Maximum signature pairs to test in range search")
	fs.IntVar(&opts.numWorkers, "workers", 0, "Number of parallel workers (0 = auto-detect based on CPU cores)")
	fs.StringVar(&opts.out, "out", "", "Output file for fixture mode (default: stdout)")
	fs.StringVar(&opts.privateKey, "private-key", "", "Hex private key for fixture mode (default: random)")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error, critical, off)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	backend, err := logging.NewBackend(stderr, opts.logLevel)
	if err != nil {
		return err
	}
	log := backend.Logger("RCVR")

	if opts.mode == "fixture" {
		return writeFixture(stdout, &opts)
	}

	if opts.signaturesFile == "" {
		return errors.New("-signatures is required")
	}
	client, err := newClient(&opts, log)
	if err != nil {
		return err
	}

	switch opts.mode {
	case "reuse":
		return recoverReuse(stdout, client, &opts)

	case "affine":
		fmt.Fprintf(stdout, "Using known relationship: k2 = %d*k1 + %d\n", opts.knownA, opts.knownB)
		result, err := client.RecoverKeyWithKnownRelationship(ctx, opts.signaturesFile, opts.knownA, opts.knownB, opts.publicKey)
		if err != nil {
			return err
		}
		printResult(stdout, result)
		return nil

	case "search":
		log.Infof("Loading signatures from %s", opts.signaturesFile)
		result, err := client.RecoverKey(ctx, opts.signaturesFile, opts.publicKey)
		if err != nil {
			return err
		}
		printResult(stdout, result)
		return nil

	default:
		return fmt.Errorf("unknown mode %q", opts.mode)
	}
}

// newClient builds a client for the file format. Explicit a/b ranges
// replace the default phases with a single range search.
func newClient(opts *options, log slog.Logger) (*ecdsaaffine.Client, error) {
	var parser ecdsaaffine.SignatureParser
	switch opts.format {
	case "json":
		parser = &ecdsaaffine.JSONParser{}
	case "csv":
		parser = &ecdsaaffine.CSVParser{}
	default:
		return nil, fmt.Errorf("unknown format %q", opts.format)
	}

	strategy := ecdsaaffine.NewSmartBruteForceStrategy()
	if opts.aRange != "" || opts.bRange != "" {
		cfg := ecdsaaffine.DefaultRangeConfig()
		if opts.aRange != "" {
			min, max, err := parseRange(opts.aRange)
			if err != nil {
				return nil, fmt.Errorf("failed to parse a-range: %w", err)
			}
			cfg.ARange = [2]int{min, max}
		}
		if opts.bRange != "" {
			min, max, err := parseRange(opts.bRange)
			if err != nil {
				return nil, fmt.Errorf("failed to parse b-range: %w", err)
			}
			cfg.BRange = [2]int{min, max}
		}
		cfg.MaxPairs = opts.maxPairs
		cfg.NumWorkers = opts.numWorkers
		strategy.WithRangeConfig(cfg)
	}

	return ecdsaaffine.NewClient().
		WithParser(parser).
		WithStrategy(strategy).
		WithLogger(log), nil
}

func recoverReuse(w io.Writer, client *ecdsaaffine.Client, opts *options) error {
	keys, err := client.RecoverReusedNonces(opts.signaturesFile)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return errors.New("no reused nonces found")
	}

	publicKey, err := decodeHex(opts.publicKey)
	if err != nil {
		return fmt.Errorf("failed to parse public key: %w", err)
	}

	rs := make([]string, 0, len(keys))
	for r := range keys {
		rs = append(rs, r)
	}
	slices.Sort(rs)

	for _, r := range rs {
		fmt.Fprintf(w, "\n[+] Reused r=%s\n", r)
		for _, priv := range keys[r] {
			fmt.Fprintf(w, "    Private key: %s\n", priv.String())
			if len(publicKey) > 0 {
				if ok, _ := ecdsaaffine.VerifyRecoveredKey(priv, publicKey); ok {
					fmt.Fprintln(w, "    ✓ Verified against public key!")
				}
			}
		}
	}
	return nil
}

func printResult(w io.Writer, result *ecdsaaffine.RecoveryResult) {
	fmt.Fprintf(w, "\n[+] Successfully recovered private key!\n")
	fmt.Fprintf(w, "    Private key: %s\n", result.PrivateKey.String())
	fmt.Fprintf(w, "    Relationship: k2 = %s*k1 + %s\n", result.Relationship.A.String(), result.Relationship.B.String())
	fmt.Fprintf(w, "    Signature pair: (%d, %d)\n", result.SignaturePair[0], result.SignaturePair[1])
	fmt.Fprintf(w, "    Pattern: %s\n", result.Pattern)
	if result.Verified {
		fmt.Fprintln(w, "    ✓ Verified against public key!")
	}
}

// fixtureRecord is one entry of a generated signature file, in the format
// JSONParser reads.
type fixtureRecord struct {
	Z         string `json:"z"`
	R         string `json:"r"`
	S         string `json:"s"`
	TxID      string `json:"txid"`
	PublicKey string `json:"public_key"`
}

func writeFixture(stdout io.Writer, opts *options) error {
	var priv *big.Int
	if opts.privateKey != "" {
		b, err := decodeHex(opts.privateKey)
		if err != nil {
			return fmt.Errorf("failed to parse private key: %w", err)
		}
		priv = new(big.Int).SetBytes(b)
	}

	field := ecdsaaffine.Secp256k1Field()
	sig1, sig2, priv, err := ecdsaaffine.GenerateFixture(field, rand.Reader,
		big.NewInt(opts.knownA), big.NewInt(opts.knownB), priv)
	if err != nil {
		return err
	}

	var keyBytes [32]byte
	pub := secp256k1.PrivKeyFromBytes(priv.FillBytes(keyBytes[:])).PubKey().SerializeCompressed()
	pubHex := hex.EncodeToString(pub)

	records := make([]fixtureRecord, 0, 2)
	for i, sig := range []*ecdsaaffine.Signature{sig1, sig2} {
		records = append(records, fixtureRecord{
			Z:         "0x" + sig.Z.Text(16),
			R:         "0x" + sig.R.Text(16),
			S:         "0x" + sig.S.Text(16),
			TxID:      fmt.Sprintf("fixture-%d", i),
			PublicKey: pubHex,
		})
	}

	w := stdout
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.out, err)
		}
		defer f.Close()
		w = f
		fmt.Fprintf(stdout, "Private key: %064x\n", priv)
		fmt.Fprintf(stdout, "Public key:  %s\n", pubHex)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

func parseRange(s string) (int, int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid range format: %s", s)
	}

	min, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}

	max, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}

	return min, max, nil
}
