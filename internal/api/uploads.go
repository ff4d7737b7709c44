package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/nodepad/internal/apperr"
	"github.com/starford/nodepad/internal/assets"
)

// UploadHandler accepts images and serves them back from the pages directory.
type UploadHandler struct {
	images   *assets.Store
	maxBytes int64
}

// NewUploadHandler creates a handler storing images through images.
func NewUploadHandler(images *assets.Store, maxBytes int64) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = assets.DefaultMaxBytes
	}
	return &UploadHandler{images: images, maxBytes: maxBytes}
}

// Upload handles POST /api/uploads/images (multipart/form-data, field "image").
//
//	@Summary		Upload an image
//	@Description	The image is stored next to pagePath when it names a page, otherwise under uploads/images.
//	@Tags			uploads
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			pagePath	query		string	false	"Page the image belongs to"
//	@Param			image		formData	file	true	"Image file"
//	@Success		200			{object}	UploadResponse
//	@Failure		400			{object}	errResponse
//	@Failure		413			{object}	errResponse
//	@Router			/uploads/images [post]
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.tooLarge(w)
			return
		}
		badRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		badRequest(w, "no image provided")
		return
	}
	defer file.Close()
	if header.Size == 0 {
		badRequest(w, "no image provided")
		return
	}
	if header.Size > h.maxBytes {
		h.tooLarge(w)
		return
	}

	name := assets.Name(header.Filename)
	if !assets.AllowedType(header.Header.Get("Content-Type")) || !assets.AllowedExt(name) {
		badRequest(w, "unsupported image type")
		return
	}

	// The declared type is only a hint; the bytes must match the extension.
	head := make([]byte, assets.SniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		badRequest(w, "unreadable image")
		return
	}
	head = head[:n]
	if err := assets.CheckContent(head, filepath.Ext(name)); err != nil {
		writeError(w, r, "upload", err)
		return
	}

	u, written, err := h.images.Save(r.URL.Query().Get("pagePath"), name, io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		writeError(w, r, "upload", err)
		return
	}
	slog.Info("image uploaded", slog.String("url", u), slog.Int64("size", written))
	writeJSON(w, http.StatusOK, UploadResponse{URL: u})
}

func (h *UploadHandler) tooLarge(w http.ResponseWriter) {
	writeJSON(w, http.StatusRequestEntityTooLarge,
		errorBody(fmt.Sprintf("file too large, max %d MB", h.maxBytes>>20), "too_large"))
}

// ServeAsset handles GET /pages/*. Only images are served; pages go through the API.
func (h *UploadHandler) ServeAsset(w http.ResponseWriter, r *http.Request) {
	abs, err := h.images.Open(chi.URLParam(r, "*"))
	if err != nil {
		if errors.Is(err, apperr.ErrForbidden) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		http.NotFound(w, r)
		return
	}
	if strings.EqualFold(filepath.Ext(abs), ".svg") {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	}
	http.ServeFile(w, r, abs)
}
