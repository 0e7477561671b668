package transfer

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/upload-lab/pkg/handlers"
	"github.com/JaimeStill/upload-lab/pkg/routes"
)

// Protocol constants advertised to clients.
const (
	TusVersion    = "1.0.0"
	TusExtensions = "creation,termination"
	OffsetContent = "application/offset+octet-stream"
)

// Request and response header names.
const (
	HeaderTusResumable   = "Tus-Resumable"
	HeaderTusVersion     = "Tus-Version"
	HeaderTusExtension   = "Tus-Extension"
	HeaderTusMaxSize     = "Tus-Max-Size"
	HeaderUploadLength   = "Upload-Length"
	HeaderUploadOffset   = "Upload-Offset"
	HeaderUploadMetadata = "Upload-Metadata"
	HeaderFileName       = "X-File-Name"
)

// Handler serves the tus protocol under a fixed prefix.
type Handler struct {
	sys    System
	logger *slog.Logger
	prefix string
}

// NewHandler creates a tus handler mounted at prefix (for example "/uploads").
func NewHandler(sys System, logger *slog.Logger, prefix string) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "transfer"),
		prefix: prefix,
	}
}

// Routes returns the tus route group.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      h.prefix,
		Tags:        []string{"Uploads"},
		Description: "Resumable uploads (tus 1.0.0: core, creation, termination)",
		Routes: []routes.Route{
			{Method: "OPTIONS", Pattern: "", Handler: h.Options, OpenAPI: Spec.Options},
			{Method: "POST", Pattern: "", Handler: h.Create, OpenAPI: Spec.Create},
			{Method: "HEAD", Pattern: "/{id}", Handler: h.Head, OpenAPI: Spec.Head},
			{Method: "PATCH", Pattern: "/{id}", Handler: h.Patch, OpenAPI: Spec.Patch},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete, OpenAPI: Spec.Delete},
		},
	}
}

func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(HeaderTusResumable, TusVersion)
	w.Header().Set(HeaderTusVersion, TusVersion)
	w.Header().Set(HeaderTusExtension, TusExtensions)
	w.Header().Set(HeaderTusMaxSize, strconv.FormatInt(h.sys.MaxSize(), 10))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.checkVersion(w, r) {
		return
	}

	length, err := strconv.ParseInt(r.Header.Get(HeaderUploadLength), 10, 64)
	if err != nil || length < 0 {
		h.respondError(w, ErrInvalidLength)
		return
	}

	meta, err := ParseMetadata(r.Header.Get(HeaderUploadMetadata))
	if err != nil {
		h.respondError(w, err)
		return
	}

	u, err := h.sys.Create(r.Context(), CreateCommand{
		Length:   length,
		Metadata: meta,
		Filename: r.Header.Get(HeaderFileName),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Location", h.prefix+"/"+u.ID)
	w.Header().Set(HeaderUploadOffset, strconv.FormatInt(u.Offset, 10))
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) Head(w http.ResponseWriter, r *http.Request) {
	if !h.checkVersion(w, r) {
		return
	}

	u, err := h.sys.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		w.WriteHeader(MapHTTPStatus(err))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set(HeaderUploadOffset, strconv.FormatInt(u.Offset, 10))
	w.Header().Set(HeaderUploadLength, strconv.FormatInt(u.Length, 10))
	if len(u.Metadata) > 0 {
		w.Header().Set(HeaderUploadMetadata, EncodeMetadata(u.Metadata))
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	if !h.checkVersion(w, r) {
		return
	}

	if r.Header.Get("Content-Type") != OffsetContent {
		h.respondError(w, ErrInvalidContentType)
		return
	}

	offset, err := strconv.ParseInt(r.Header.Get(HeaderUploadOffset), 10, 64)
	if err != nil || offset < 0 {
		h.respondError(w, ErrInvalidOffset)
		return
	}

	id := r.PathValue("id")

	if r.ContentLength > 0 {
		current, err := h.sys.Find(r.Context(), id)
		if err != nil {
			h.respondError(w, err)
			return
		}
		if offset+r.ContentLength > current.Length {
			h.respondError(w, ErrExceedsLength)
			return
		}
	}

	u, err := h.sys.Append(r.Context(), id, offset, r.Body)
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set(HeaderUploadOffset, strconv.FormatInt(u.Offset, 10))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.checkVersion(w, r) {
		return
	}

	if err := h.sys.Terminate(r.Context(), r.PathValue("id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) checkVersion(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set(HeaderTusResumable, TusVersion)
	if r.Header.Get(HeaderTusResumable) != TusVersion {
		w.Header().Set(HeaderTusVersion, TusVersion)
		h.respondError(w, ErrUnsupportedVersion)
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := MapHTTPStatus(err)
	if errors.Is(err, ErrNotFound) {
		handlers.RespondNotFound(w)
		return
	}
	if status < http.StatusInternalServerError {
		h.logger.Warn("transfer request rejected", "status", status, "error", err)
		handlers.RespondMessage(w, status, err.Error())
		return
	}
	handlers.RespondError(w, h.logger, status, err)
}
