package database

import (
	"sort"
	"time"
)

// IdentityRecord is a registered identity with its face embedding.
// Records are immutable once inserted; re-registration creates a new record.
type IdentityRecord struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"` // lookup key, not unique
	Email       string    `json:"email"`
	Embedding   []float32 `json:"faceEmbedding"`
	AgeEstimate float64   `json:"age"`
	GenderLabel string    `json:"gender"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Candidate is the subset of a record the matcher needs.
type Candidate struct {
	ID        int64
	Name      string
	Embedding []float32
}

// Version identifies the contents of an append-only snapshot.
// Two snapshots with the same version hold the same records.
type Version struct {
	Count int
	MaxID int64
}

// Snapshot is a point-in-time, read-only view of all stored candidates,
// ordered by ascending ID. Callers must not modify the embeddings it holds.
type Snapshot struct {
	candidates []Candidate
}

// NewSnapshot wraps candidates, which must be ordered by ascending ID.
func NewSnapshot(candidates []Candidate) Snapshot {
	return Snapshot{candidates: candidates[:len(candidates):len(candidates)]}
}

// Len returns the number of candidates.
func (s Snapshot) Len() int {
	return len(s.candidates)
}

// At returns the i-th candidate in snapshot order.
func (s Snapshot) At(i int) Candidate {
	return s.candidates[i]
}

// Candidates returns the snapshot contents. The slice is capped so appends
// never write into the store's backing array.
func (s Snapshot) Candidates() []Candidate {
	return s.candidates
}

// Version returns the count and highest ID in the snapshot.
func (s Snapshot) Version() Version {
	if len(s.candidates) == 0 {
		return Version{}
	}
	return Version{Count: len(s.candidates), MaxID: s.candidates[len(s.candidates)-1].ID}
}

// Index returns the position of the candidate with the given ID, or -1.
func (s Snapshot) Index(id int64) int {
	i := sort.Search(len(s.candidates), func(i int) bool { return s.candidates[i].ID >= id })
	if i < len(s.candidates) && s.candidates[i].ID == id {
		return i
	}
	return -1
}

// NewIdentity holds the caller-supplied fields of a record to insert.
type NewIdentity struct {
	Name        string
	Email       string
	Embedding   []float32
	AgeEstimate float64
	GenderLabel string
}

// Record builds the record that will be persisted, copying the embedding.
func (n NewIdentity) Record(id int64, createdAt time.Time) IdentityRecord {
	emb := make([]float32, len(n.Embedding))
	copy(emb, n.Embedding)
	return IdentityRecord{
		ID:          id,
		Name:        n.Name,
		Email:       n.Email,
		Embedding:   emb,
		AgeEstimate: n.AgeEstimate,
		GenderLabel: n.GenderLabel,
		CreatedAt:   createdAt,
	}
}
