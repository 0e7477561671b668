package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/upload-lab/internal/processing"
	"github.com/JaimeStill/upload-lab/internal/tracking"
	"github.com/JaimeStill/upload-lab/pkg/handlers"
	"github.com/JaimeStill/upload-lab/pkg/routes"
)

// ProcessResponse acknowledges a process request.
type ProcessResponse struct {
	OK       bool   `json:"ok"`
	UploadID string `json:"upload_id"`
}

// Handler serves processing control and the status/result query surface.
type Handler struct {
	processing processing.System
	tracking   tracking.Store
	logger     *slog.Logger
}

// NewHandler creates a Handler with the provided dependencies.
func NewHandler(proc processing.System, store tracking.Store, logger *slog.Logger) *Handler {
	return &Handler{
		processing: proc,
		tracking:   store,
		logger:     logger.With("handler", "api"),
	}
}

// Routes returns the route group for processing and query endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Description: "Processing control and status queries",
		Children: []routes.Group{
			{
				Prefix:      "/process",
				Tags:        []string{"Processing"},
				Description: "Start or cancel processing",
				Routes: []routes.Route{
					{Method: "POST", Pattern: "/{uploadId}", Handler: h.Process, OpenAPI: Spec.Process},
					{Method: "POST", Pattern: "/{uploadId}/cancel", Handler: h.Cancel, OpenAPI: Spec.Cancel},
				},
			},
			{
				Prefix:      "/pins",
				Tags:        []string{"Pinning"},
				Description: "Content-addressed pinning",
				Routes: []routes.Route{
					{Method: "POST", Pattern: "/{uploadId}", Handler: h.Pin, OpenAPI: Spec.Pin},
				},
			},
			{
				Prefix:      "/status",
				Tags:        []string{"Status"},
				Description: "Processing status",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "/{uploadId}", Handler: h.Status, OpenAPI: Spec.Status},
				},
			},
			{
				Prefix:      "/result",
				Tags:        []string{"Status"},
				Description: "Processing results",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "/{uploadId}", Handler: h.Result, OpenAPI: Spec.Result},
				},
			},
		},
	}
}

func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("uploadId")

	if _, err := h.processing.Process(r.Context(), id); err != nil {
		h.respondError(w, processing.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, ProcessResponse{OK: true, UploadID: id})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.processing.Cancel(r.Context(), r.PathValue("uploadId")); err != nil {
		h.respondError(w, processing.MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Pin(w http.ResponseWriter, r *http.Request) {
	result, err := h.processing.Pin(r.Context(), r.PathValue("uploadId"))
	if err != nil {
		h.respondError(w, processing.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.tracking.GetStatus(r.Context(), r.PathValue("uploadId"))
	if err != nil {
		h.respondError(w, tracking.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, status)
}

// Result is only served once processing has completed.
func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("uploadId")

	status, err := h.tracking.GetStatus(r.Context(), id)
	if err != nil {
		h.respondError(w, tracking.MapHTTPStatus(err), err)
		return
	}
	if status.Stage != tracking.StageCompleted {
		handlers.RespondNotFound(w)
		return
	}

	result, err := h.tracking.GetResult(r.Context(), id)
	if err != nil {
		h.respondError(w, tracking.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) respondError(w http.ResponseWriter, status int, err error) {
	switch {
	case status == http.StatusNotFound && !errors.Is(err, processing.ErrNotActive):
		handlers.RespondNotFound(w)
	case status < http.StatusInternalServerError:
		h.logger.Warn("request rejected", "status", status, "error", err)
		handlers.RespondMessage(w, status, err.Error())
	default:
		handlers.RespondError(w, h.logger, status, err)
	}
}
