package dtos

import "github.com/justsurfingit/jobapp-ai/internal/reconciler"

// MatchResponse is what POST /match returns and what the resume editor starts from.
type MatchResponse struct {
	Result      string                  `json:"result"`
	ResumeText  string                  `json:"resume_text"`
	Suggestions []reconciler.Suggestion `json:"suggestions"`
}

type CoverLetterResponse struct {
	CoverLetter string `json:"cover_letter"`
}

type SessionRequest struct {
	ResumeText  string                  `json:"resume_text"`
	Suggestions []reconciler.Suggestion `json:"suggestions"`
}

type StateRequest struct {
	State reconciler.State `json:"state"`
}

// IndexRequest targets one visible suggestion. Index is a pointer so that 0
// passes the required check.
type IndexRequest struct {
	State reconciler.State `json:"state"`
	Index *int             `json:"index" binding:"required"`
}

type SessionResponse struct {
	State       reconciler.State            `json:"state"`
	HTML        string                      `json:"html"`
	Suggestions []reconciler.SuggestionView `json:"suggestions"`
	Changes     []reconciler.Change         `json:"changes"`
	Results     []reconciler.Result         `json:"results,omitempty"`
	Warning     string                      `json:"warning,omitempty"`
}
