package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/hr-rag/internal/api/dto"
	"github.com/cuongbtq/hr-rag/internal/jobs"
	"github.com/cuongbtq/hr-rag/internal/model"
)

// CreateJobPosting handles POST /api/v1/job-postings
func (h *Handler) CreateJobPosting(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}

	var req dto.CreateJobPostingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	p := &model.JobPosting{
		CompanyID:   id.TenantID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Status:      model.JobPostingOpen,
	}
	if err := h.storage.CreateJobPosting(c.Request.Context(), p); err != nil {
		h.logger.Error("Failed to create job posting", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job posting",
		})
		return
	}

	c.JSON(http.StatusCreated, postingDTO(p))
}

// ListJobPostings handles GET /api/v1/job-postings
func (h *Handler) ListJobPostings(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}

	postings, err := h.storage.ListJobPostings(c.Request.Context(), id.TenantID)
	if err != nil {
		h.logger.Error("Failed to list job postings", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list job postings",
		})
		return
	}

	resp := make([]dto.JobPostingDTO, len(postings))
	for i := range postings {
		resp[i] = postingDTO(&postings[i])
	}
	c.JSON(http.StatusOK, resp)
}

// Apply handles POST /api/v1/job-postings/:id/apply
// Stores the resume, creates the application in Scanning and submits scoring
func (h *Handler) Apply(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	postingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	var req dto.ApplyRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Error("Invalid application form", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "candidate_name and a valid candidate_email are required",
		})
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Resume file is required",
		})
		return
	}
	if err := checkFormat(fh.Filename); err != nil {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{
			"error": "Unsupported file format",
		})
		return
	}

	ctx := c.Request.Context()
	posting, err := h.storage.GetTenantJobPosting(ctx, id.TenantID, postingID)
	if err != nil {
		h.respondLookupError(c, err, "job posting")
		return
	}

	path, err := h.saveUpload(fh, resumesDir, fmt.Sprintf("%d", posting.ID))
	if err != nil {
		h.logger.Error("Failed to store resume", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store resume",
		})
		return
	}

	app, err := h.storage.CreateApplication(ctx, posting.ID, req.CandidateName, req.CandidateEmail)
	if err != nil {
		os.Remove(path)
		h.logger.Error("Failed to create application", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create application",
		})
		return
	}

	jobID, err := h.submitter.Submit(ctx, jobs.ScanResumePayload{ApplicationID: app.ID, FilePath: path})
	if err != nil {
		os.Remove(path)
		h.logger.Error("Failed to submit scoring job",
			slog.Int64("application_id", app.ID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":          "Failed to enqueue resume analysis",
			"application_id": app.ID,
		})
		return
	}

	c.JSON(http.StatusAccepted, dto.ApplyResponse{
		Message:       "Resume uploaded. AI analysis started.",
		ApplicationID: app.ID,
		Status:        app.Status,
		JobID:         jobID,
	})
}

// ListApplicants handles GET /api/v1/job-postings/:id/applicants
// Applicants are ordered by match score, highest first
func (h *Handler) ListApplicants(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	postingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.storage.GetTenantJobPosting(ctx, id.TenantID, postingID); err != nil {
		h.respondLookupError(c, err, "job posting")
		return
	}

	apps, err := h.storage.ListApplicants(ctx, postingID)
	if err != nil {
		h.logger.Error("Failed to list applicants", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list applicants",
		})
		return
	}

	resp := make([]dto.ApplicantDTO, len(apps))
	for i, a := range apps {
		resp[i] = dto.ApplicantDTO{
			ID:             a.ID,
			CandidateName:  a.CandidateName,
			CandidateEmail: a.CandidateEmail,
			MatchScore:     a.MatchScore,
			AIFeedback:     a.AIFeedback.String,
			Status:         a.Status,
			CreatedAt:      formatTime(a.CreatedAt),
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GetApplicationStatus handles GET /api/v1/applications/:id/status
func (h *Handler) GetApplicationStatus(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	appID, ok := pathID(c, "id")
	if !ok {
		return
	}

	st, err := h.projector.Application(c.Request.Context(), id.TenantID, appID)
	if err != nil {
		h.respondLookupError(c, err, "application")
		return
	}
	c.JSON(http.StatusOK, st)
}

func postingDTO(p *model.JobPosting) dto.JobPostingDTO {
	return dto.JobPostingDTO{
		ID:          p.ID,
		CompanyID:   p.CompanyID,
		Title:       p.Title,
		Description: p.Description,
		Location:    p.Location,
		Status:      p.Status,
		CreatedAt:   formatTime(p.CreatedAt),
	}
}
