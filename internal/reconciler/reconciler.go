// Package reconciler splices AI-suggested edits into a resume body.
//
// Each suggestion is placed by exact substring replacement when its old text
// occurs verbatim, and otherwise by inserting a new line after the line most
// similar to the old text. All operations are pure: they take a Document or
// State and return a new one.
package reconciler

import (
	"fmt"
	"strings"
)

// DefaultThreshold is the similarity a line must exceed to anchor a
// fuzzy insertion.
const DefaultThreshold = 0.5

type Placement int

const (
	PlacementUnmatched Placement = iota
	PlacementReplaced
	PlacementInsertedAfter
	PlacementAppended
	PlacementAlreadyApplied
)

var placementNames = map[Placement]string{
	PlacementUnmatched:      "unmatched",
	PlacementReplaced:       "replaced",
	PlacementInsertedAfter:  "inserted_after",
	PlacementAppended:       "appended",
	PlacementAlreadyApplied: "already_applied",
}

func (p Placement) String() string {
	if n, ok := placementNames[p]; ok {
		return n
	}
	return "unknown"
}

func (p Placement) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Placement) UnmarshalText(text []byte) error {
	for k, n := range placementNames {
		if n == string(text) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("unknown placement %q", text)
}

// Result describes where a single suggestion ended up.
type Result struct {
	Key       string    `json:"key"`
	Placement Placement `json:"placement"`
	// Line is the 0-based index of the anchor line for fuzzy insertions,
	// -1 otherwise.
	Line  int     `json:"line"`
	Score float64 `json:"score"`
}

// Applied reports whether the suggestion changed the document.
func (r Result) Applied() bool {
	switch r.Placement {
	case PlacementReplaced, PlacementInsertedAfter, PlacementAppended:
		return true
	}
	return false
}

// Reconciler holds the matching policy. The zero value uses DefaultThreshold
// and refuses to re-apply a suggestion that is already in the AppliedSet.
type Reconciler struct {
	Threshold float64
	// AllowReapply turns off the applied-set guard. A re-applied suggestion
	// whose old text was already replaced falls through to the fuzzy path and
	// may insert a duplicate line.
	AllowReapply bool
}

func New() *Reconciler {
	return &Reconciler{Threshold: DefaultThreshold}
}

var defaultReconciler = New()

func (r *Reconciler) threshold() float64 {
	if r.Threshold <= 0 {
		return DefaultThreshold
	}
	return r.Threshold
}

// ApplyOne places a single suggestion.
//
//  1. Non-empty Old found verbatim: the first occurrence is replaced by New.
//  2. Otherwise the line with the highest similarity to Old gets New inserted
//     as a new line after it, if the score is above the threshold. Ties go to
//     the earliest line.
//  3. Otherwise the document is returned unchanged with PlacementUnmatched.
//
// An empty Old is appended as the last line instead of matching at offset 0.
func (r *Reconciler) ApplyOne(doc Document, s Suggestion) (Document, Result) {
	key := s.Key()
	res := Result{Key: key, Placement: PlacementUnmatched, Line: -1}

	if s.Old == "" {
		if doc.Text == "" {
			res.Placement = PlacementAppended
			return doc.splice(0, 0, s.New, 0, key), res
		}
		n := len(doc.Text)
		res.Placement = PlacementAppended
		return doc.splice(n, n, "\n"+s.New, 1, key), res
	}

	if i := strings.Index(doc.Text, s.Old); i >= 0 {
		res.Placement = PlacementReplaced
		res.Score = 1
		return doc.splice(i, i+len(s.Old), s.New, 0, key), res
	}

	lines, ends := lineBounds(doc.Text)
	best, bestScore := -1, 0.0
	for i, line := range lines {
		if score := Similarity(line, s.Old); score > bestScore {
			best, bestScore = i, score
		}
	}
	res.Score = bestScore
	if best < 0 || bestScore <= r.threshold() {
		return doc, res
	}

	res.Placement = PlacementInsertedAfter
	res.Line = best
	at := ends[best]
	return doc.splice(at, at, "\n"+s.New, 1, key), res
}

// ApplyAll applies suggestions in order, each one against the output of the
// previous. Unmatched suggestions are skipped without error.
func (r *Reconciler) ApplyAll(doc Document, suggestions []Suggestion) (Document, AppliedSet) {
	doc, applied, _ := r.applyBatch(doc, suggestions, AppliedSet{})
	return doc, applied
}

func (r *Reconciler) applyBatch(doc Document, suggestions []Suggestion, applied AppliedSet) (Document, AppliedSet, []Result) {
	applied = applied.Clone()
	results := make([]Result, 0, len(suggestions))
	for _, s := range suggestions {
		if !r.AllowReapply && applied.Has(s.Key()) {
			results = append(results, Result{Key: s.Key(), Placement: PlacementAlreadyApplied, Line: -1})
			continue
		}
		var res Result
		doc, res = r.ApplyOne(doc, s)
		if res.Applied() {
			applied[res.Key] = struct{}{}
		}
		results = append(results, res)
	}
	return doc, applied, results
}

// ApplyOne uses the default policy.
func ApplyOne(doc Document, s Suggestion) (Document, Result) {
	return defaultReconciler.ApplyOne(doc, s)
}

// ApplyAll uses the default policy.
func ApplyAll(doc Document, suggestions []Suggestion) (Document, AppliedSet) {
	return defaultReconciler.ApplyAll(doc, suggestions)
}
