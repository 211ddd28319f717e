// Package assessapi exposes the severity assessment over HTTP.
package assessapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/infrasense/internal/assess"
)

// DefaultMaxUploadBytes caps the multipart request size when none is configured.
const DefaultMaxUploadBytes int64 = 10 << 20

// Assessor defines the business operation assessapi needs.
type Assessor interface {
	Assess(ctx context.Context, text string, image []byte) (*assess.Result, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger    log.Logger
	svc       Assessor
	maxUpload int64
}

// New creates a new API handler. maxUpload <= 0 selects DefaultMaxUploadBytes.
func New(logger log.Logger, svc Assessor, maxUpload int64) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("assessor is required"))
	}
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &API{
		logger:    logger,
		svc:       svc,
		maxUpload: maxUpload,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Get("/", a.handleHome)
	r.Post("/predict", a.handlePredict)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/assessments", a.handlePredict)
	})
}

func (a *API) handleHome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "InfraSense AI Service is Running",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
