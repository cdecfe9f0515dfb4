package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-auth/internal/constants"
	"github.com/kozaktomas/face-auth/internal/database"
	"github.com/kozaktomas/face-auth/internal/registration"
)

// Error messages returned to clients.
const (
	errRegistrationFailed = "User registration failed."
	errNoUser             = "no user exist with this name"
	errLookupFailed       = "failed to look up user"
)

// IdentitiesHandler handles registration and lookup of identities.
type IdentitiesHandler struct {
	registrar *registration.Registrar
	store     database.IdentityReader
	logger    *slog.Logger
}

// NewIdentitiesHandler creates a new identities handler.
func NewIdentitiesHandler(registrar *registration.Registrar, store database.IdentityReader, logger *slog.Logger) *IdentitiesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentitiesHandler{registrar: registrar, store: store, logger: logger}
}

// EmbeddingResponse is one element of the detail response.
type EmbeddingResponse struct {
	FaceEmbedding []float32 `json:"faceEmbedding"`
}

// Register creates an identity from the JSON body and returns the record.
// Every failure, malformed body included, is reported the same way.
func (h *IdentitiesHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRegistrationBodySize)

	var req registration.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("registration failed", "error", errInvalidRequestBody, "cause", err)
		respondError(w, http.StatusBadRequest, errRegistrationFailed)
		return
	}

	rec, err := h.registrar.Register(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusBadRequest, errRegistrationFailed)
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// Detail returns the embeddings of every record registered under the name.
func (h *IdentitiesHandler) Detail(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	records, err := h.store.FindByName(r.Context(), name)
	if err != nil {
		h.logger.Error("lookup failed", "name", sanitizeForLog(name), "error", err)
		respondError(w, http.StatusInternalServerError, errLookupFailed)
		return
	}
	if len(records) == 0 {
		respondError(w, http.StatusNotFound, errNoUser)
		return
	}

	result := make([]EmbeddingResponse, len(records))
	for i, rec := range records {
		result[i] = EmbeddingResponse{FaceEmbedding: rec.Embedding}
	}
	respondJSON(w, http.StatusOK, result)
}
