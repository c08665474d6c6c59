package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/cuongbtq/hr-rag/internal/api/status"
	"github.com/cuongbtq/hr-rag/internal/jobs"
	"github.com/cuongbtq/hr-rag/internal/model"
	"github.com/cuongbtq/hr-rag/internal/rag"
	"github.com/cuongbtq/hr-rag/internal/storage"
)

const identityKey = "identity"

// Repository is the storage used by the request path. *storage.Storage satisfies it.
type Repository interface {
	status.Repository
	CreateDocument(ctx context.Context, companyID int64, filename string) (*model.Document, error)
	ListDocuments(ctx context.Context, filter storage.DocumentFilter) ([]model.DocumentSummary, error)
	CreateJobPosting(ctx context.Context, p *model.JobPosting) error
	ListJobPostings(ctx context.Context, companyID int64) ([]model.JobPosting, error)
	GetTenantJobPosting(ctx context.Context, companyID, id int64) (*model.JobPosting, error)
	CreateApplication(ctx context.Context, jobID int64, name, email string) (*model.Application, error)
	ListApplicants(ctx context.Context, jobID int64) ([]model.Application, error)
	GetConversation(ctx context.Context, userID, id int64) (*model.Conversation, error)
	ListMessages(ctx context.Context, conversationID int64) ([]model.Message, error)
}

type JobSubmitter interface {
	Submit(ctx context.Context, payload jobs.Payload) (string, error)
}

type Answerer interface {
	Answer(ctx context.Context, id rag.Identity, query string, conversationID *int64) (*rag.Answer, error)
}

// DatabaseChecker reports whether the database answers queries.
type DatabaseChecker interface {
	HealthCheck(ctx context.Context) error
}

// BrokerChecker reports whether the broker connection is open.
type BrokerChecker interface {
	IsConnected() bool
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	Storage   Repository
	Submitter JobSubmitter
	Answerer  Answerer
	Database  DatabaseChecker
	Broker    BrokerChecker
	UploadDir string
	// MaxUploadBytes caps a multipart request body.
	MaxUploadBytes int64
	WatchInterval  time.Duration
	WatchTimeout   time.Duration
}

// Handler serves the HTTP API
type Handler struct {
	logger         *slog.Logger
	storage        Repository
	submitter      JobSubmitter
	answerer       Answerer
	database       DatabaseChecker
	broker         BrokerChecker
	projector      *status.Projector
	uploadDir      string
	maxUploadBytes int64
	watchInterval  time.Duration
	watchTimeout   time.Duration
	upgrader       websocket.Upgrader
}

// NewHandler creates a new Handler instance
func NewHandler(deps *Dependencies) *Handler {
	interval := deps.WatchInterval
	if interval <= 0 {
		interval = time.Second
	}
	timeout := deps.WatchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}

	return &Handler{
		logger:         deps.Logger,
		storage:        deps.Storage,
		submitter:      deps.Submitter,
		answerer:       deps.Answerer,
		database:       deps.Database,
		broker:         deps.Broker,
		projector:      status.NewProjector(deps.Storage),
		uploadDir:      deps.UploadDir,
		maxUploadBytes: maxUpload,
		watchInterval:  interval,
		watchTimeout:   timeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// SetIdentity stores the authenticated caller on the request context.
func SetIdentity(c *gin.Context, id rag.Identity) {
	c.Set(identityKey, id)
}

// GetIdentity returns the caller set by the identity middleware.
func GetIdentity(c *gin.Context) (rag.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return rag.Identity{}, false
	}
	id, ok := v.(rag.Identity)
	return id, ok
}

func (h *Handler) identity(c *gin.Context) (rag.Identity, bool) {
	id, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Missing caller identity",
		})
	}
	return id, ok
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
