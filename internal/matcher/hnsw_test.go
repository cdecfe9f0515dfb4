package matcher

import (
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/kozaktomas/face-auth/internal/database"
)

func TestHNSWMatch_Basic(t *testing.T) {
	h := NewHNSW(5)
	snap := named(
		database.Candidate{Name: "alice", Embedding: []float32{0, 0, 0}},
		database.Candidate{Name: "bob", Embedding: []float32{3, 3, 3}},
	)

	res, err := h.Match([]float32{0, 0, 0.1}, snap)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if !res.Success || res.Name != "alice" {
		t.Errorf("Match() = %+v, want alice", res)
	}

	res, err = h.Match([]float32{5, 5, 5}, snap)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if res.Success {
		t.Errorf("Match() = %+v, want failure", res)
	}
	if h.Len() != 2 {
		t.Errorf("Len() = %d, want 2", h.Len())
	}
}

func TestHNSWMatch_Empty(t *testing.T) {
	h := NewHNSW(0)
	res, err := h.Match([]float32{0, 0, 0}, database.Snapshot{})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if res.Success {
		t.Error("empty snapshot should not match")
	}
	if h.k != DefaultSearchK {
		t.Errorf("k = %d, want %d", h.k, DefaultSearchK)
	}
}

func TestHNSWMatch_IncrementalSync(t *testing.T) {
	h := NewHNSW(5)
	first := []database.Candidate{{ID: 1, Name: "alice", Embedding: []float32{0, 0, 0}}}

	res, err := h.Match([]float32{1, 1, 1}, database.NewSnapshot(first))
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if res.Success {
		t.Fatalf("Match() = %+v, want failure before bob is registered", res)
	}

	second := append(first, database.Candidate{ID: 2, Name: "bob", Embedding: []float32{1, 1, 1}})
	res, err = h.Match([]float32{1, 1, 1}, database.NewSnapshot(second))
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if !res.Success || res.Name != "bob" {
		t.Errorf("Match() = %+v, want bob", res)
	}
	if h.Len() != 2 {
		t.Errorf("Len() = %d, want 2", h.Len())
	}
}

func TestHNSWMatch_IgnoresRecordsOutsideSnapshot(t *testing.T) {
	h := NewHNSW(5)
	all := []database.Candidate{
		{ID: 1, Name: "alice", Embedding: []float32{0, 0, 0}},
		{ID: 2, Name: "bob", Embedding: []float32{1, 1, 1}},
	}
	if _, err := h.Match([]float32{0, 0, 0}, database.NewSnapshot(all)); err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	// An older snapshot taken before bob registered.
	res, err := h.Match([]float32{1, 1, 1}, database.NewSnapshot(all[:1]))
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if res.Success {
		t.Errorf("Match() = %+v, bob is not part of this snapshot", res)
	}
}

func TestHNSWMatch_ExactDuplicateAmongCopies(t *testing.T) {
	h := NewHNSW(10)
	candidates := make([]database.Candidate, 0, 301)
	for i := range 300 {
		candidates = append(candidates, database.Candidate{ID: int64(i + 1), Name: "copy", Embedding: []float32{1, 1, 1}})
	}
	candidates = append(candidates, database.Candidate{ID: 301, Name: "target", Embedding: []float32{9, 9, 9}})

	res, err := h.Match([]float32{9, 9, 9}, database.NewSnapshot(candidates))
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if !res.Success || res.Name != "target" || res.Distance != 0 {
		t.Errorf("Match() = %+v, want target at distance 0", res)
	}
}

func TestHNSWMatch_OlderSnapshotCrowdedOut(t *testing.T) {
	h := NewHNSW(10)
	candidates := []database.Candidate{{ID: 1, Name: "alice", Embedding: []float32{0, 0, 0.3}}}
	for i := range 39 {
		candidates = append(candidates, database.Candidate{ID: int64(i + 2), Name: "other", Embedding: []float32{0, 0, 0}})
	}
	if _, err := h.Match([]float32{0, 0, 0}, database.NewSnapshot(candidates)); err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	// Every graph neighbor of the probe is newer than this snapshot.
	older := database.NewSnapshot(candidates[:1])
	res, err := h.Match([]float32{0, 0, 0}, older)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	want, err := Linear{}.Match([]float32{0, 0, 0}, older)
	if err != nil {
		t.Fatalf("Linear.Match() error = %v", err)
	}
	if !res.Success || res.Name != "alice" {
		t.Errorf("Match() = %+v, want alice", res)
	}
	if res != want {
		t.Errorf("Match() = %+v, Linear = %+v", res, want)
	}
}

func TestHNSWMatch_DimensionMismatch(t *testing.T) {
	h := NewHNSW(5)
	snap := snapshot([]float32{0, 0, 0})

	_, err := h.Match([]float32{0, 0}, snap)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Match() error = %v, want ErrDimensionMismatch", err)
	}

	mixed := snapshot([]float32{0, 0, 0}, []float32{0, 0})
	h.Reset()
	_, err = h.Match([]float32{0, 0, 0}, mixed)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Match() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestHNSWMatch_Reset(t *testing.T) {
	h := NewHNSW(5)
	snap := snapshot([]float32{0, 0, 0}, []float32{1, 1, 1})
	if _, err := h.Match([]float32{0, 0, 0}, snap); err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	h.Reset()
	if h.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", h.Len())
	}

	res, err := h.Match([]float32{1, 1, 1}, snap)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if !res.Success || res.ID != 2 {
		t.Errorf("Match() = %+v, want ID 2", res)
	}
}

// Every HNSW success must be a success Linear agrees with.
func TestHNSWMatch_AgreesWithLinear(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	embeddings := randomEmbeddings(r, 500, 32)
	snap := snapshot(embeddings...)
	h := NewHNSW(20)

	for i := 0; i < len(embeddings); i += 25 {
		probe := make([]float32, len(embeddings[i]))
		for j, v := range embeddings[i] {
			probe[j] = v + 0.01
		}

		want, err := Linear{}.Match(probe, snap)
		if err != nil {
			t.Fatalf("Linear.Match() error = %v", err)
		}
		got, err := h.Match(probe, snap)
		if err != nil {
			t.Fatalf("HNSW.Match() error = %v", err)
		}

		if got.Success && (!want.Success || got.ID != want.ID) {
			t.Errorf("probe %d: HNSW = %+v, Linear = %+v", i, got, want)
		}
	}
}

func TestHNSWMatch_Concurrent(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	embeddings := randomEmbeddings(r, 200, 16)
	h := NewHNSW(10)

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			// Snapshots of different sizes race to extend the same graph.
			snap := snapshot(embeddings[:100+n*3]...)
			if _, err := h.Match(embeddings[n], snap); err != nil {
				t.Errorf("Match() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	if h.Len() != 100+31*3 {
		t.Errorf("Len() = %d, want %d", h.Len(), 100+31*3)
	}
}
