package services

import (
	"errors"
	"log"

	"github.com/justsurfingit/jobapp-ai/internal/reconciler"
)

// ResumeService drives the suggestion reconciler for the resume editor.
// It keeps no state of its own; the caller sends the session back each time.
type ResumeService struct {
	Reconciler *reconciler.Reconciler
}

func NewResumeService(r *reconciler.Reconciler) *ResumeService {
	if r == nil {
		r = reconciler.New()
	}
	return &ResumeService{Reconciler: r}
}

func (s *ResumeService) NewSession(resumeText string, suggestions []reconciler.Suggestion) reconciler.State {
	return reconciler.NewState(resumeText, suggestions)
}

// Apply applies one suggestion. An unmatched suggestion comes back as
// reconciler.ErrUnmatched with the state unchanged.
func (s *ResumeService) Apply(st reconciler.State, index int) (reconciler.State, reconciler.Result, error) {
	next, res, err := s.Reconciler.ApplyAt(st, index)
	switch {
	case errors.Is(err, reconciler.ErrUnmatched):
		log.Printf("⚠️ Could not match or insert suggestion (best score %.2f): %v", res.Score, err)
	case err != nil:
		return st, res, err
	default:
		log.Printf("✏️ Suggestion %s (line %d)", res.Placement, res.Line)
	}
	return next, res, err
}

// ApplyAll applies every visible suggestion; misses are skipped.
func (s *ResumeService) ApplyAll(st reconciler.State) (reconciler.State, []reconciler.Result) {
	next, results := s.Reconciler.ApplyPending(st)

	applied, skipped := 0, 0
	for _, r := range results {
		if r.Applied() {
			applied++
		} else if r.Placement == reconciler.PlacementUnmatched {
			skipped++
		}
	}
	log.Printf("✏️ Applied %d of %d suggestions (%d unmatched)", applied, len(results), skipped)
	return next, results
}

func (s *ResumeService) Dismiss(st reconciler.State, index int) (reconciler.State, error) {
	return st.Dismiss(index)
}
