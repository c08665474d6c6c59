package router

import (
	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/hr-rag/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	h := handler.NewHandler(deps)

	// Health check endpoint
	r.GET("/health", h.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(IdentityMiddleware())
	{
		documents := v1.Group("/documents")
		{
			documents.POST("", h.UploadDocuments)
			documents.GET("", h.ListDocuments)
			documents.GET("/:id/status", h.GetDocumentStatus)
			documents.GET("/:id/watch", h.WatchDocument)
		}

		postings := v1.Group("/job-postings")
		{
			postings.POST("", h.CreateJobPosting)
			postings.GET("", h.ListJobPostings)
			postings.POST("/:id/apply", h.Apply)
			postings.GET("/:id/applicants", h.ListApplicants)
		}

		applications := v1.Group("/applications")
		{
			applications.GET("/:id/status", h.GetApplicationStatus)
			applications.GET("/:id/watch", h.WatchApplication)
		}

		v1.POST("/chat", h.Chat)
		v1.GET("/conversations/:id/messages", h.ListMessages)

		tools := v1.Group("/tools")
		{
			tools.POST("/schedule-meeting", h.ScheduleMeeting)
			tools.POST("/send-email", h.SendEmail)
		}
	}

	return r
}
