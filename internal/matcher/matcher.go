// Package matcher decides whether a probe embedding matches a registered identity.
//
// Linear is the exact baseline: a full scan computing the Euclidean distance to
// every candidate. HNSW answers the same question from an approximate
// nearest-neighbor graph and re-scores its neighbors exactly, so both share the
// threshold and tie-break rules below.
//
// A match succeeds only when the minimum distance is strictly less than
// Threshold. Among equidistant candidates the one earliest in snapshot order
// (lowest ID) is reported.
package matcher

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/face-auth/internal/config"
	"github.com/kozaktomas/face-auth/internal/database"
)

// Threshold is the fixed acceptance threshold on Euclidean distance.
const Threshold = 0.6

// ErrDimensionMismatch is matched by every *DimensionMismatchError.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// DimensionMismatchError reports a candidate whose embedding length differs from the probe.
type DimensionMismatchError struct {
	CandidateID int64
	Want        int
	Got         int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("candidate %d has %d dimensions, probe has %d", e.CandidateID, e.Got, e.Want)
}

// Is matches ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// Result is the outcome of one match.
type Result struct {
	Success  bool
	Name     string  // matched identity name, empty unless Success
	ID       int64   // matched identity ID, zero unless Success
	Distance float64 // distance to the nearest candidate, zero if there were none
}

// Matcher scores a probe against a snapshot of candidates.
// Implementations must be safe for concurrent use and must not modify the snapshot.
type Matcher interface {
	Match(probe []float32, candidates database.Snapshot) (Result, error)
}

// New builds the matcher named in the configuration.
func New(cfg *config.MatchingConfig) (Matcher, error) {
	switch cfg.Matcher {
	case config.MatcherLinear, "":
		return Linear{}, nil
	case config.MatcherHNSW:
		return NewHNSW(cfg.HNSWSearchK), nil
	default:
		return nil, fmt.Errorf("unknown matcher %q", cfg.Matcher)
	}
}

// decide applies the threshold to the nearest candidate.
func decide(best database.Candidate, distance float64, found bool) Result {
	if !found {
		return Result{}
	}
	if distance < Threshold {
		return Result{Success: true, Name: best.Name, ID: best.ID, Distance: distance}
	}
	return Result{Distance: distance}
}
