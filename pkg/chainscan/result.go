package chainscan

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/mahdiidarabi/ecdsa-noncescan/pkg/ecdsaaffine"
)

var (
	// ErrProviderFailure wraps any error returned by a BlockProvider.
	ErrProviderFailure = errors.New("block provider failure")

	// ErrInvalidRange is returned by Analyze for a range that starts after
	// it ends or below zero.
	ErrInvalidRange = errors.New("invalid block range")
)

// State is the lifecycle state of an analysis pass.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Severity ranks a finding.
type Severity string

const (
	// SeverityCritical marks a collision whose recovered key matched a
	// known public key.
	SeverityCritical Severity = "critical"
	// SeverityHigh marks a collision that produced unverified candidates.
	SeverityHigh Severity = "high"
	// SeverityMedium marks a collision no pair could be solved from.
	SeverityMedium Severity = "medium"
)

// BlockRange is an inclusive range of block heights.
type BlockRange struct {
	Start int64
	End   int64
}

// Len returns the number of heights in the range.
func (r BlockRange) Len() int64 {
	return r.End - r.Start + 1
}

func (r BlockRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}

// Finding is one r value seen in two or more signatures.
type Finding struct {
	R          *big.Int
	Signatures []*ecdsaaffine.Signature

	// Keys are the deduplicated candidate private keys in discovery order.
	Keys []*big.Int

	// Verified is set when a key in Keys derives the public key carried
	// by one of the signatures.
	Verified bool
	Severity Severity
}

// AnalysisResult aggregates one pass over a block range.
type AnalysisResult struct {
	State State
	Range BlockRange

	BlocksAnalyzed        int
	TransactionsProcessed int
	SignaturesExtracted   int
	ReuseCount            int
	UniqueAddresses       int
	Errors                int
	Elapsed               time.Duration

	Findings []*Finding
}
