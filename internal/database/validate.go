package database

import (
	"fmt"
	"math"
	"strings"
)

// ValidateIdentity checks required fields and the embedding length before insert.
func ValidateIdentity(n NewIdentity, dim int) error {
	if strings.TrimSpace(n.Name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if err := ValidateEmbedding(n.Embedding, dim); err != nil {
		return err
	}
	if n.AgeEstimate < 0 || math.IsNaN(n.AgeEstimate) || math.IsInf(n.AgeEstimate, 0) {
		return &ValidationError{Field: "age", Reason: "must be a non-negative number"}
	}
	return nil
}

// ValidateEmbedding checks that an embedding is non-empty, finite, and of length dim.
// A dim of zero skips the length check.
func ValidateEmbedding(embedding []float32, dim int) error {
	if len(embedding) == 0 {
		return &ValidationError{Field: "faceEmbedding", Reason: "is required"}
	}
	if dim > 0 && len(embedding) != dim {
		return &ValidationError{
			Field:  "faceEmbedding",
			Reason: fmt.Sprintf("has %d dimensions, expected %d", len(embedding), dim),
		}
	}
	for i, v := range embedding {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &ValidationError{Field: "faceEmbedding", Reason: fmt.Sprintf("value at %d is not finite", i)}
		}
	}
	return nil
}
