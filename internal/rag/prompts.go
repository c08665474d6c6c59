package rag

import (
	"fmt"
	"strings"
)

// RefusalSentence is what the assistant says when the context has no answer.
const RefusalSentence = "I don't have information about that in the company documents."

// NoDocumentsPrefix discloses that an answer is not grounded in company documents.
const NoDocumentsPrefix = "I couldn't find specific documents, but here is what I know: "

const (
	embeddingFailedMessage  = "Error generating embeddings."
	searchFailedMessage     = "Sorry, I couldn't search the company documents right now. Please try again later."
	generationFailedMessage = "Sorry, I couldn't generate a response right now. Please try again later."
	noSummaryFeedback       = "No summary provided."
)

var answerSystemPrompt = `You are a helpful HR Assistant for this company.
Answer the user's question strictly based on the Context provided below.
If the answer is not in the context, say "` + RefusalSentence + `"
Do not hallucinate.`

func answerUserPrompt(query string, contexts []string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", strings.Join(contexts, "\n\n"), query)
}

const scoreSystemPrompt = `You are an expert ATS (Applicant Tracking System).
Respond with a single JSON object and nothing else.`

func scoreUserPrompt(resume, jobDescription string) string {
	return fmt.Sprintf(`Job Description:
%s

Candidate Resume:
%s

Task:
1. Evaluate the candidate's match score (0-100).
2. List missing skills.
3. Provide a brief summary.

Output format must be strictly JSON:
{
    "score": 85,
    "missing_skills": ["Docker", "Kubernetes"],
    "summary": "Good candidate but lacks containerization experience."
}`, jobDescription, resume)
}
