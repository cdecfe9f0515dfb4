package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// readEmbeddingFile reads a JSON array of numbers from path, or from stdin when path is "-".
func readEmbeddingFile(path string) ([]float32, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening embedding file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var embedding []float32
	if err := json.NewDecoder(r).Decode(&embedding); err != nil {
		return nil, fmt.Errorf("decoding embedding: %w", err)
	}
	return embedding, nil
}
