package assessapi

import (
	"errors"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/infrasense/internal/assess"
)

const (
	fieldText  = "text"
	fieldImage = "image"

	// multipart parts beyond this are spooled to disk
	formMemory = 8 << 20
)

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	texts, ok := r.MultipartForm.Value[fieldText]
	if !ok || len(texts) == 0 {
		writeError(w, http.StatusBadRequest, "missing text field")
		return
	}

	file, _, err := r.FormFile(fieldImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer func() { _ = file.Close() }()

	image, err := io.ReadAll(file)
	if err != nil {
		a.logger.Error(ctx, err, "failed to read image upload")
		writeError(w, http.StatusBadRequest, "could not read image file")
		return
	}

	res, err := a.svc.Assess(ctx, texts[0], image)
	if err != nil {
		status, msg := errorStatus(err)
		if status == http.StatusInternalServerError {
			a.logger.Error(ctx, err, "assessment failed")
		} else {
			a.logger.Warn(ctx, "assessment rejected", "status", status, "error", err)
		}
		writeError(w, status, msg)
		return
	}

	span.SetAttributes(
		attribute.String("infrasense.assessment.id", res.ID),
		attribute.String("infrasense.severity.final", res.Final.String()),
	)

	w.Header().Set("X-Assessment-Id", res.ID)
	writeJSON(w, http.StatusOK, successResponse{
		Status: "success",
		Data:   toResponse(res),
	})
}

// errorStatus maps assessment errors to an HTTP status and client message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, assess.ErrDecode):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, assess.ErrNotLoaded):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
