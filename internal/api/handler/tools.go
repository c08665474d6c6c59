package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/hr-rag/internal/api/dto"
	"github.com/cuongbtq/hr-rag/internal/jobs"
)

// ScheduleMeeting handles POST /api/v1/tools/schedule-meeting
func (h *Handler) ScheduleMeeting(c *gin.Context) {
	if _, ok := h.identity(c); !ok {
		return
	}

	var req dto.ScheduleMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	h.submit(c, jobs.ScheduleMeetingPayload{
		Summary:        req.Summary,
		Description:    req.Description,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		AttendeeEmails: req.Emails,
	}, "Scheduling in background...")
}

// SendEmail handles POST /api/v1/tools/send-email
// Attachments are stored until the worker has sent the message
func (h *Handler) SendEmail(c *gin.Context) {
	if _, ok := h.identity(c); !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	var req dto.SendEmailRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Error("Invalid email form", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "recipients and subject are required",
		})
		return
	}

	var recipients []string
	for _, r := range strings.Split(req.Recipients, ",") {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}

	payload := jobs.SendEmailPayload{
		Recipients: recipients,
		Subject:    req.Subject,
		Body:       req.Body,
	}
	if err := payload.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	if form, err := c.MultipartForm(); err == nil {
		for _, fh := range form.File["files"] {
			if fh.Filename == "" {
				continue
			}
			path, err := h.saveUpload(fh, attachmentsDir, "mail")
			if err != nil {
				removeAll(payload.AttachmentPaths)
				h.logger.Error("Failed to store attachment", slog.String("error", err.Error()))
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to store attachment",
				})
				return
			}
			payload.AttachmentPaths = append(payload.AttachmentPaths, path)
		}
	}

	if !h.submit(c, payload, "Email sending started...") {
		removeAll(payload.AttachmentPaths)
	}
}

// submit enqueues payload and writes the 202 response. It reports whether
// the job was accepted.
func (h *Handler) submit(c *gin.Context, payload jobs.Payload, message string) bool {
	jobID, err := h.submitter.Submit(c.Request.Context(), payload)
	if err != nil {
		if errors.Is(err, jobs.ErrInvalidPayload) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return false
		}
		h.logger.Error("Failed to submit job",
			slog.String("kind", string(payload.Kind())),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Failed to enqueue job",
		})
		return false
	}

	c.JSON(http.StatusAccepted, dto.JobAcceptedResponse{
		Message: message,
		JobID:   jobID,
	})
	return true
}

func removeAll(paths []string) {
	for _, p := range paths {
		os.Remove(p)
	}
}
