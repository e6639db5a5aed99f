package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/storefront-plugins/product-reviews/internal/delivery/http/response"
	"github.com/storefront-plugins/product-reviews/internal/domain"
	"github.com/storefront-plugins/product-reviews/internal/pkg/logger"
)

const maxUploadSize = 32 << 20 // 32MB across all parts

// UploadHandler streams multipart file uploads into the object store
type UploadHandler struct {
	files  domain.FileStore
	logger *logger.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(files domain.FileStore, log *logger.Logger) *UploadHandler {
	return &UploadHandler{
		files:  files,
		logger: log,
	}
}

// UploadedFile describes one stored file in the upload response
type UploadedFile struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Upload handles POST /store/product-reviews/upload
// @Summary Upload review images
// @Description Upload one or more files under the "files" field. Returns the storage key and public URL per file.
// @Tags Store
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Files to upload"
// @Success 201 {object} map[string]interface{} "Uploaded file keys and URLs"
// @Failure 400 {object} map[string]string "Invalid multipart request"
// @Router /store/product-reviews/upload [post]
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}
	// Large parts are buffered in temp files; remove them once stored
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Warnf("Failed to remove multipart temp files: %v", err)
		}
	}()

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		response.Error(w, http.StatusBadRequest, "No files provided")
		return
	}

	uploaded := make([]UploadedFile, 0, len(parts))
	for _, part := range parts {
		file, err := part.Open()
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Failed to read uploaded file")
			return
		}

		key := fmt.Sprintf("uploads/%d-%s", time.Now().UnixNano(), filepath.Base(part.Filename))
		contentType := part.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		url, err := h.files.Upload(r.Context(), key, file, contentType)
		file.Close()
		if err != nil {
			h.logger.Error("Failed to store uploaded file", err)
			response.Error(w, http.StatusInternalServerError, "Failed to store file")
			return
		}

		uploaded = append(uploaded, UploadedFile{Key: key, URL: url})
	}

	h.logger.WithFields(map[string]interface{}{
		"count": len(uploaded),
	}).Info("Files uploaded")

	response.Created(w, uploaded)
}
