package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/hr-rag/internal/api/dto"
	"github.com/cuongbtq/hr-rag/internal/api/status"
	"github.com/cuongbtq/hr-rag/internal/jobs"
	"github.com/cuongbtq/hr-rag/internal/storage"
)

// UploadDocuments handles POST /api/v1/documents
// Stores each file, creates its placeholder row and submits an ingestion job
func (h *Handler) UploadDocuments(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		h.logger.Error("Invalid multipart form", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid multipart form",
		})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "At least one file is required",
		})
		return
	}
	for _, fh := range files {
		if err := checkFormat(fh.Filename); err != nil {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{
				"error":    "Unsupported file format",
				"filename": fh.Filename,
			})
			return
		}
	}

	ctx := c.Request.Context()
	uploaded := make([]dto.UploadedDocumentDTO, 0, len(files))
	for _, fh := range files {
		path, err := h.saveUpload(fh, documentsDir, strconv.FormatInt(id.TenantID, 10))
		if err != nil {
			h.logger.Error("Failed to store upload", slog.String("filename", fh.Filename), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to store upload",
			})
			return
		}

		doc, err := h.storage.CreateDocument(ctx, id.TenantID, safeFilename(fh.Filename))
		if err != nil {
			os.Remove(path)
			h.logger.Error("Failed to create document", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create document",
			})
			return
		}

		jobID, err := h.submitter.Submit(ctx, jobs.ProcessDocumentPayload{DocumentID: doc.ID, FilePath: path})
		if err != nil {
			os.Remove(path)
			h.logger.Error("Failed to submit ingestion job",
				slog.Int64("document_id", doc.ID),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":       "Failed to enqueue document processing",
				"document_id": doc.ID,
			})
			return
		}

		uploaded = append(uploaded, dto.UploadedDocumentDTO{
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			JobID:      jobID,
		})
	}

	c.JSON(http.StatusAccepted, dto.UploadDocumentsResponse{
		Message:   fmt.Sprintf("Uploading %d documents for processing.", len(uploaded)),
		Documents: uploaded,
	})
}

// ListDocuments handles GET /api/v1/documents
// Lists the caller's uploads newest first with cursor pagination
func (h *Handler) ListDocuments(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}

	var req dto.ListDocumentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeDocumentCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	docs, err := h.storage.ListDocuments(c.Request.Context(), storage.DocumentFilter{
		CompanyID: id.TenantID,
		PageSize:  req.PageSize,
		Cursor:    cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list documents", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list documents",
		})
		return
	}

	hasMore := len(docs) > req.PageSize
	if hasMore {
		docs = docs[:req.PageSize]
	}

	resp := dto.ListDocumentsResponse{Documents: make([]dto.DocumentDTO, len(docs))}
	for i := range docs {
		st := status.ProjectDocument(&docs[i])
		resp.Documents[i] = dto.DocumentDTO{
			ID:        docs[i].ID,
			Filename:  docs[i].Filename,
			State:     string(st.State),
			Chunks:    st.Chunks,
			CreatedAt: formatTime(docs[i].CreatedAt),
		}
	}

	if hasMore {
		last := docs[len(docs)-1]
		resp.NextCursor = EncodeDocumentCursor(&storage.DocumentCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// GetDocumentStatus handles GET /api/v1/documents/:id/status
func (h *Handler) GetDocumentStatus(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}

	st, err := h.projector.Document(c.Request.Context(), id.TenantID, docID)
	if err != nil {
		h.respondLookupError(c, err, "document")
		return
	}
	c.JSON(http.StatusOK, st)
}

// pathID parses a positive integer path parameter
func pathID(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": name + " must be a positive integer",
		})
		return 0, false
	}
	return v, true
}

func (h *Handler) respondLookupError(c *gin.Context, err error, what string) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": what + " not found",
		})
		return
	}
	h.logger.Error("Failed to load "+what, slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Failed to load " + what,
	})
}
