package model

import (
	"database/sql"
	"time"
)

// Application statuses. Scanning is set at upload time and Reviewed by the
// scoring job.
const (
	ApplicationApplied   = "Applied"
	ApplicationScanning  = "Scanning"
	ApplicationReviewed  = "Reviewed"
	ApplicationInterview = "Interview"
	ApplicationHired     = "Hired"
	ApplicationRejected  = "Rejected"
)

// PlaceholderContent marks a document row whose file has not been indexed yet.
const PlaceholderContent = "Processing..."

// JobPostingOpen is the status of a newly created posting.
const JobPostingOpen = "Open"

// Message senders.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

type Document struct {
	ID               int64         `db:"id"`
	CompanyID        int64         `db:"company_id"`
	Filename         string        `db:"filename"`
	Content          string        `db:"content"`
	HasEmbedding     bool          `db:"has_embedding"`
	SourceDocumentID sql.NullInt64 `db:"source_document_id"`
	ChunkIndex       int           `db:"chunk_index"`
	CreatedAt        time.Time     `db:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at"`
}

// DocumentSummary is a listed upload together with its chunk count.
type DocumentSummary struct {
	Document
	Chunks int `db:"chunks"`
}

type JobPosting struct {
	ID          int64     `db:"id"`
	CompanyID   int64     `db:"company_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Location    string    `db:"location"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
}

type Application struct {
	ID             int64          `db:"id"`
	JobID          sql.NullInt64  `db:"job_id"`
	CandidateName  string         `db:"candidate_name"`
	CandidateEmail string         `db:"candidate_email"`
	ResumeText     sql.NullString `db:"resume_text"`
	MatchScore     float64        `db:"match_score"`
	AIFeedback     sql.NullString `db:"ai_feedback"`
	Status         string         `db:"status"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

type Conversation struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
}

type Message struct {
	ID             int64     `db:"id"`
	ConversationID int64     `db:"conversation_id"`
	Sender         string    `db:"sender"`
	Content        string    `db:"content"`
	CreatedAt      time.Time `db:"created_at"`
}
