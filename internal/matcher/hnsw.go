package matcher

import (
	"sync"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/face-auth/internal/database"
)

// HNSW graph parameters for face embeddings.
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	// Higher values improve recall but slow down search.
	HNSWEfSearch = 100

	// DefaultSearchK is the number of neighbors re-scored exactly when none is configured.
	DefaultSearchK = 10
)

// HNSW matches against an in-memory HNSW graph that is kept in step with the
// snapshots it is given. Records are immutable and append-only, so the graph
// only ever grows: each call indexes the snapshot's records it has not seen.
// Neighbors not present in the caller's snapshot are ignored.
//
// The threshold and tie-break are applied to exact distances of the returned
// neighbors, so any reported match is also a valid Linear match. A search that
// finds nothing under the threshold is confirmed by a full scan.
type HNSW struct {
	k int

	mu      sync.RWMutex
	graph   *hnsw.Graph[int64]
	indexed map[int64]struct{}
	dim     int
	synced  database.Version // last snapshot version fully indexed
}

// NewHNSW creates an empty index that re-scores k neighbors per search.
func NewHNSW(k int) *HNSW {
	if k <= 0 {
		k = DefaultSearchK
	}
	return &HNSW{k: k, indexed: make(map[int64]struct{})}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Len returns the number of indexed records.
func (h *HNSW) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.indexed)
}

// Reset drops the graph; the next match re-indexes from its snapshot.
func (h *HNSW) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.graph = nil
	h.indexed = make(map[int64]struct{})
	h.dim = 0
	h.synced = database.Version{}
}

// sync adds every candidate of the snapshot that is not indexed yet.
func (h *HNSW) sync(candidates database.Snapshot) error {
	version := candidates.Version()

	h.mu.RLock()
	upToDate := version == h.synced
	h.mu.RUnlock()
	if upToDate {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var nodes []hnsw.Node[int64]
	for i := range candidates.Len() {
		c := candidates.At(i)
		if _, ok := h.indexed[c.ID]; ok {
			continue
		}
		if h.dim == 0 {
			h.dim = len(c.Embedding)
		}
		if len(c.Embedding) != h.dim {
			return &DimensionMismatchError{CandidateID: c.ID, Want: h.dim, Got: len(c.Embedding)}
		}
		nodes = append(nodes, hnsw.MakeNode(c.ID, c.Embedding))
	}

	if len(nodes) > 0 {
		if h.graph == nil {
			h.graph = newGraph()
		}
		h.graph.Add(nodes...)
		for _, n := range nodes {
			h.indexed[n.Key] = struct{}{}
		}
	}
	h.synced = version
	return nil
}

// Match indexes any new candidates, then re-scores the k nearest neighbors exactly.
// When no neighbor is under Threshold it falls back to a Linear scan of the
// snapshot, so a miss is always an exact miss.
func (h *HNSW) Match(probe []float32, candidates database.Snapshot) (Result, error) {
	if candidates.Len() == 0 {
		return Result{}, nil
	}
	if err := h.sync(candidates); err != nil {
		return Result{}, err
	}

	res, err := h.searchNeighbors(probe, candidates)
	if err != nil || res.Success {
		return res, err
	}
	return Linear{}.Match(probe, candidates)
}

// searchNeighbors scores the graph's neighbors of probe that belong to the snapshot.
func (h *HNSW) searchNeighbors(probe []float32, candidates database.Snapshot) (Result, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil { // reset concurrently
		return Result{}, nil
	}
	if len(probe) != h.dim {
		first := candidates.At(0)
		return Result{}, &DimensionMismatchError{CandidateID: first.ID, Want: len(probe), Got: h.dim}
	}

	var (
		best     database.Candidate
		bestPos  int
		bestDist float64
		found    bool
	)
	for _, n := range h.graph.Search(probe, h.k) {
		pos := candidates.Index(n.Key)
		if pos < 0 {
			continue
		}
		c := candidates.At(pos)
		d := EuclideanDistance(probe, c.Embedding)
		if !found || d < bestDist || (d == bestDist && pos < bestPos) {
			best, bestPos, bestDist, found = c, pos, d, true
		}
	}

	return decide(best, bestDist, found), nil
}
