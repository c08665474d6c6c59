package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/cuongbtq/hr-rag/internal/ai"
	"github.com/cuongbtq/hr-rag/internal/model"
	"github.com/cuongbtq/hr-rag/internal/storage"
	"github.com/cuongbtq/hr-rag/shared/logger"
)

// ScoreResult is the validated scoring response. Error is set when the
// result is the zero-score fallback.
type ScoreResult struct {
	Score         int      `json:"score"`
	MissingSkills []string `json:"missing_skills"`
	Summary       string   `json:"summary"`
	Error         string   `json:"error,omitempty"`
}

// Feedback renders the text stored in ai_feedback.
func (r ScoreResult) Feedback() string {
	summary := strings.TrimSpace(r.Summary)
	if summary == "" {
		summary = noSummaryFeedback
	}
	var b strings.Builder
	b.WriteString(summary)
	if len(r.MissingSkills) > 0 {
		b.WriteString("\n\nMissing skills: ")
		b.WriteString(strings.Join(r.MissingSkills, ", "))
	}
	if r.Error != "" {
		b.WriteString("\n\nAnalysis error: ")
		b.WriteString(r.Error)
	}
	return b.String()
}

type ScoreOutcome struct {
	ApplicationID int64
	Result        ScoreResult
	Degraded      bool
	// AlreadyScored is set when a redelivered job found its resume gone and
	// the application reviewed; nothing was written.
	AlreadyScored bool
}

type Scorer struct {
	apps        ApplicationRepository
	extractor   TextExtractor
	generator   ai.Generator
	temperature float32
	logger      *slog.Logger
}

func NewScorer(apps ApplicationRepository, extractor TextExtractor, generator ai.Generator, temperature float32, logger *slog.Logger) *Scorer {
	return &Scorer{
		apps:        apps,
		extractor:   extractor,
		generator:   generator,
		temperature: temperature,
		logger:      logger,
	}
}

// ScanResume scores a resume against the posting it was submitted to.
//
// The resume text is committed before scoring starts. Scoring problems
// (unreadable resume, backend failure, malformed response) still mark the
// application Reviewed with a zero score; only a missing application or
// posting, or a storage failure, is returned as an error.
func (s *Scorer) ScanResume(ctx context.Context, applicationID int64, path string) (ScoreOutcome, error) {
	log := s.logger.With(slog.Int64("application_id", applicationID))

	app, err := s.apps.GetApplication(ctx, applicationID)
	if err != nil {
		return ScoreOutcome{}, lookupError(err, "application", applicationID)
	}
	if !app.JobID.Valid {
		return ScoreOutcome{}, fmt.Errorf("job posting for application %d: %w", applicationID, ErrNotFound)
	}
	posting, err := s.apps.GetJobPosting(ctx, app.JobID.Int64)
	if err != nil {
		return ScoreOutcome{}, lookupError(err, "job posting", app.JobID.Int64)
	}

	resume, extractErr := s.extractor.Extract(path)
	if extractErr != nil && errors.Is(extractErr, fs.ErrNotExist) && app.Status == model.ApplicationReviewed {
		log.Info("Resume file already removed and application reviewed, keeping stored score")
		return ScoreOutcome{
			ApplicationID: applicationID,
			Result:        ScoreResult{Score: int(math.Round(app.MatchScore)), Summary: app.AIFeedback.String},
			AlreadyScored: true,
		}, nil
	}

	// A failed extraction never replaces resume text stored by an earlier run.
	if extractErr == nil || strings.TrimSpace(app.ResumeText.String) == "" {
		if err := s.apps.SaveResumeText(ctx, applicationID, resume); err != nil {
			return ScoreOutcome{}, err
		}
	}

	var result ScoreResult
	switch {
	case extractErr != nil:
		log.Warn("Resume extraction failed, recording zero score", slog.Any("error", extractErr))
		result = fallbackScore(extractErr)
	case strings.TrimSpace(resume) == "":
		result = fallbackScore(errors.New("no text could be extracted from the resume"))
	default:
		result = s.score(ctx, log, resume, posting.Description)
	}

	if err := s.apps.SaveScore(ctx, applicationID, float64(result.Score), result.Feedback()); err != nil {
		return ScoreOutcome{}, err
	}

	log.Info("Resume scored",
		slog.Int("score", result.Score),
		slog.Bool("degraded", result.Error != ""),
	)
	return ScoreOutcome{ApplicationID: applicationID, Result: result, Degraded: result.Error != ""}, nil
}

func (s *Scorer) score(ctx context.Context, log *slog.Logger, resume, jobDescription string) ScoreResult {
	raw, err := s.generator.Generate(ctx, ai.GenerateRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: scoreSystemPrompt},
			{Role: ai.RoleUser, Content: scoreUserPrompt(resume, jobDescription)},
		},
		Temperature: s.temperature,
		JSON:        true,
	})
	if err != nil {
		log.Error("Score generation failed", slog.Any("error", err))
		return fallbackScore(err)
	}

	log.Debug("Score response received", slog.String("response_preview", logger.TruncateForLog(raw, 200)))

	result, err := ParseScore(raw)
	if err != nil {
		log.Warn("Score response rejected", slog.Any("error", err))
		return fallbackScore(err)
	}
	return result
}

func fallbackScore(err error) ScoreResult {
	return ScoreResult{Score: 0, Error: err.Error()}
}

func lookupError(err error, what string, id int64) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s %d: %w", what, id, err)
}

// ParseScore validates a scoring response. score must be a number in
// [0, 100]; summary and missing_skills are optional.
// A response wrapped in a markdown code fence is accepted.
func ParseScore(raw string) (ScoreResult, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return ScoreResult{}, fmt.Errorf("%w: %v", ErrScoreParse, err)
	}

	score, ok := coerceFloat(data["score"])
	if !ok {
		return ScoreResult{}, fmt.Errorf("%w: score is missing or not a number", ErrScoreParse)
	}
	if score < 0 || score > 100 {
		return ScoreResult{}, fmt.Errorf("%w: score %v out of range", ErrScoreParse, score)
	}

	summary, _ := data["summary"].(string)

	var skills []string
	switch v := data["missing_skills"].(type) {
	case nil:
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				skills = append(skills, strings.TrimSpace(s))
			}
		}
	default:
		return ScoreResult{}, fmt.Errorf("%w: missing_skills is not a list", ErrScoreParse)
	}

	return ScoreResult{
		Score:         int(math.Round(score)),
		MissingSkills: skills,
		Summary:       strings.TrimSpace(summary),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, !math.IsNaN(val)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
