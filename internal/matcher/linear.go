package matcher

import (
	"github.com/kozaktomas/face-auth/internal/database"
)

// Linear is the exact O(n·d) scan over every candidate.
type Linear struct{}

// Match returns the nearest candidate if it is closer than Threshold.
// The first candidate with a mismatched length aborts the match.
func (Linear) Match(probe []float32, candidates database.Snapshot) (Result, error) {
	var (
		best     database.Candidate
		bestDist float64
		found    bool
	)

	for i := range candidates.Len() {
		c := candidates.At(i)
		if len(c.Embedding) != len(probe) {
			return Result{}, &DimensionMismatchError{CandidateID: c.ID, Want: len(probe), Got: len(c.Embedding)}
		}
		d := EuclideanDistance(probe, c.Embedding)
		// Strict comparison keeps the earliest of equidistant candidates.
		if !found || d < bestDist {
			best, bestDist, found = c, d, true
		}
	}

	return decide(best, bestDist, found), nil
}
