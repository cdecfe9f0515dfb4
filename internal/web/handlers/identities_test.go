package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-auth/internal/database"
)

func TestRegister_Success(t *testing.T) {
	handler, store := newTestIdentitiesHandler()

	body := `{"name":"alice","email":"alice@example.com","faceEmbedding":[0.1,0.2,0.3],"age":29,"gender":"female"}`
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	recorder := httptest.NewRecorder()

	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var rec database.IdentityRecord
	parseJSONResponse(t, recorder, &rec)
	if rec.ID != 1 || rec.Name != "alice" || rec.Email != "alice@example.com" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.AgeEstimate != 29 || rec.GenderLabel != "female" || len(rec.Embedding) != 3 {
		t.Errorf("unexpected record fields: %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected createdAt to be set")
	}
	if n, _ := store.Count(req.Context()); n != 1 {
		t.Errorf("expected 1 stored record, got %d", n)
	}
}

func TestRegister_ResponseFieldNames(t *testing.T) {
	handler, _ := newTestIdentitiesHandler()

	body := `{"name":"bob","faceEmbedding":[0,0,0]}`
	recorder := httptest.NewRecorder()
	handler.Register(recorder, httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body)))

	assertStatusCode(t, recorder, http.StatusOK)
	var raw map[string]any
	parseJSONResponse(t, recorder, &raw)
	for _, key := range []string{"id", "name", "email", "faceEmbedding", "age", "gender", "createdAt"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("response is missing %q: %v", key, raw)
		}
	}
}

func TestRegister_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"name":`},
		{"empty body", ``},
		{"missing name", `{"faceEmbedding":[0,0,0]}`},
		{"missing embedding", `{"name":"alice"}`},
		{"empty embedding", `{"name":"alice","faceEmbedding":[]}`},
		{"wrong dimension", `{"name":"alice","faceEmbedding":[0,0]}`},
		{"non-numeric embedding", `{"name":"alice","faceEmbedding":["a","b","c"]}`},
		{"negative age", `{"name":"alice","faceEmbedding":[0,0,0],"age":-3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, store := newTestIdentitiesHandler()
			req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(tt.body))
			recorder := httptest.NewRecorder()

			handler.Register(recorder, req)

			assertStatusCode(t, recorder, http.StatusBadRequest)
			assertJSONError(t, recorder, "User registration failed.")
			if n, _ := store.Count(req.Context()); n != 0 {
				t.Errorf("expected nothing stored, got %d records", n)
			}
		})
	}
}

func TestRegister_PersistenceError(t *testing.T) {
	handler, store := newTestIdentitiesHandler()
	store.InsertError = database.WrapPersistence("insert identity", errors.New("connection reset"))

	body := `{"name":"alice","faceEmbedding":[0,0,0]}`
	recorder := httptest.NewRecorder()
	handler.Register(recorder, httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body)))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "User registration failed.")
}

func TestRegister_BodyTooLarge(t *testing.T) {
	handler, _ := newTestIdentitiesHandler()

	var buf bytes.Buffer
	buf.WriteString(`{"name":"alice","faceEmbedding":[`)
	for range 300000 {
		buf.WriteString("0.125,")
	}
	buf.WriteString(`0]}`)

	recorder := httptest.NewRecorder()
	handler.Register(recorder, httptest.NewRequest(http.MethodPost, "/register", &buf))

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestDetail_Found(t *testing.T) {
	handler, store := newTestIdentitiesHandler()
	store.AddRecord("alice", []float32{0, 0, 0})
	store.AddRecord("bob", []float32{1, 1, 1})
	store.AddRecord("alice", []float32{0.5, 0.5, 0.5})

	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/detail/alice", nil), map[string]string{"name": "alice"})
	recorder := httptest.NewRecorder()

	handler.Detail(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result []EmbeddingResponse
	parseJSONResponse(t, recorder, &result)
	if len(result) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(result))
	}
	if result[0].FaceEmbedding[0] != 0 || result[1].FaceEmbedding[0] != 0.5 {
		t.Errorf("unexpected embeddings or order: %+v", result)
	}
}

func TestDetail_NotFound(t *testing.T) {
	handler, store := newTestIdentitiesHandler()
	store.AddRecord("alice", []float32{0, 0, 0})

	// Name lookup is exact and case-sensitive.
	for _, name := range []string{"bob", "Alice"} {
		t.Run(name, func(t *testing.T) {
			req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/detail/"+name, nil), map[string]string{"name": name})
			recorder := httptest.NewRecorder()

			handler.Detail(recorder, req)

			assertStatusCode(t, recorder, http.StatusNotFound)
			assertJSONError(t, recorder, "no user exist with this name")
		})
	}
}

func TestDetail_StoreError(t *testing.T) {
	handler, store := newTestIdentitiesHandler()
	store.FindByNameError = database.WrapPersistence("find identities", errors.New("timeout"))

	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/detail/alice", nil), map[string]string{"name": "alice"})
	recorder := httptest.NewRecorder()

	handler.Detail(recorder, req)

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "failed to look up user")
}
