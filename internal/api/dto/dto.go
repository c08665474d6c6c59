package dto

type UploadedDocumentDTO struct {
	DocumentID int64  `json:"document_id"`
	Filename   string `json:"filename"`
	JobID      string `json:"job_id"`
}

type UploadDocumentsResponse struct {
	Message   string                `json:"message"`
	Documents []UploadedDocumentDTO `json:"documents"`
}

type ListDocumentsRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type DocumentDTO struct {
	ID        int64  `json:"id"`
	Filename  string `json:"filename"`
	State     string `json:"state"`
	Chunks    int    `json:"chunks"`
	CreatedAt string `json:"created_at"`
}

type ListDocumentsResponse struct {
	Documents  []DocumentDTO `json:"documents"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type CreateJobPostingRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Location    string `json:"location"`
}

type JobPostingDTO struct {
	ID          int64  `json:"id"`
	CompanyID   int64  `json:"company_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

type ApplyRequest struct {
	CandidateName  string `form:"candidate_name" binding:"required"`
	CandidateEmail string `form:"candidate_email" binding:"required,email"`
}

type ApplyResponse struct {
	Message       string `json:"message"`
	ApplicationID int64  `json:"application_id"`
	Status        string `json:"status"`
	JobID         string `json:"job_id"`
}

type ApplicantDTO struct {
	ID             int64   `json:"id"`
	CandidateName  string  `json:"candidate_name"`
	CandidateEmail string  `json:"candidate_email"`
	MatchScore     float64 `json:"match_score"`
	AIFeedback     string  `json:"ai_feedback,omitempty"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
}

type ChatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID *int64 `json:"conversation_id"`
}

type SourceDTO struct {
	DocumentID int64   `json:"document_id"`
	Filename   string  `json:"filename"`
	Distance   float64 `json:"distance"`
}

type ChatResponse struct {
	Response       string      `json:"response"`
	ConversationID int64       `json:"conversation_id"`
	Grounded       bool        `json:"grounded"`
	Sources        []SourceDTO `json:"sources"`
}

type MessageDTO struct {
	ID        int64  `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type ScheduleMeetingRequest struct {
	Summary     string   `json:"summary" binding:"required"`
	Description string   `json:"description"`
	StartTime   string   `json:"start_time" binding:"required"`
	EndTime     string   `json:"end_time" binding:"required"`
	Emails      []string `json:"emails" binding:"required,min=1"`
}

type SendEmailRequest struct {
	Recipients string `form:"recipients" binding:"required"`
	Subject    string `form:"subject" binding:"required"`
	Body       string `form:"body"`
}

type JobAcceptedResponse struct {
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}
