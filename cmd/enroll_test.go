package cmd

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/face-auth/internal/database"
	"github.com/kozaktomas/face-auth/internal/database/memory"
	"github.com/kozaktomas/face-auth/internal/registration"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadEnrollFile(t *testing.T) {
	want := []registration.Request{
		{Name: "alice", Email: "alice@example.com", FaceEmbedding: []float32{0, 0.5, 1}, Age: 30, Gender: "female"},
		{Name: "bob", FaceEmbedding: []float32{1, 1, 1}},
	}

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "users.json", `[
			{"name":"alice","email":"alice@example.com","faceEmbedding":[0,0.5,1],"age":30,"gender":"female"},
			{"name":"bob","faceEmbedding":[1,1,1]}
		]`},
		{"yaml", "users.yaml", `
- name: alice
  email: alice@example.com
  faceEmbedding: [0, 0.5, 1]
  age: 30
  gender: female
- name: bob
  faceEmbedding: [1, 1, 1]
`},
		{"yml", "users.YML", `[{name: alice, email: alice@example.com, faceEmbedding: [0, 0.5, 1], age: 30, gender: female}, {name: bob, faceEmbedding: [1, 1, 1]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readEnrollFile(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestReadEnrollFile_Errors(t *testing.T) {
	_, err := readEnrollFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = readEnrollFile(writeFile(t, "bad.json", `{"name":"alice"}`))
	assert.Error(t, err)
}

func TestEnroll(t *testing.T) {
	ctx := context.Background()
	store := memory.New(3)
	reqs := []registration.Request{
		{Name: "a", FaceEmbedding: []float32{0, 0, 0}},
		{Name: "b", FaceEmbedding: []float32{0, 0}},
		{Name: "c", FaceEmbedding: []float32{1, 1, 1}},
		{Name: "", FaceEmbedding: []float32{1, 1, 1}},
		{Name: "e", FaceEmbedding: []float32{2, 2, 2}},
	}

	var calls atomic.Int32
	ok, failures, err := enroll(ctx, registration.NewRegistrar(store, nil), reqs, 3, false, func() { calls.Add(1) })
	require.NoError(t, err)

	assert.Equal(t, 3, ok)
	require.Len(t, failures, 2)
	assert.Equal(t, 1, failures[0].Index)
	assert.Equal(t, 3, failures[1].Index)
	assert.ErrorIs(t, failures[0].Err, database.ErrValidation)
	assert.Equal(t, int32(5), calls.Load())

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestEnroll_FailFast(t *testing.T) {
	store := memory.New(3)
	reqs := []registration.Request{{Name: "", FaceEmbedding: []float32{0, 0, 0}}}
	for range 20 {
		reqs = append(reqs, registration.Request{Name: "x", FaceEmbedding: []float32{0, 0, 0}})
	}

	_, failures, err := enroll(context.Background(), registration.NewRegistrar(store, nil), reqs, 1, true, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrValidation)
	require.NotEmpty(t, failures)
	assert.Equal(t, 0, failures[0].Index)
}

func TestReadEmbeddingFile(t *testing.T) {
	got, err := readEmbeddingFile(writeFile(t, "probe.json", `[0.25, -1, 3]`))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -1, 3}, got)

	_, err = readEmbeddingFile(writeFile(t, "bad.json", `{"faceEmbedding":[1]}`))
	assert.Error(t, err)
}
