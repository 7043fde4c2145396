package reconciler

import (
	"fmt"
	"strings"
)

// State is everything an editing session needs between two user actions.
// The caller keeps it; every operation returns a fresh copy.
type State struct {
	Original string       `json:"original"`
	Document Document     `json:"document"`
	Applied  AppliedSet   `json:"applied"`
	Visible  []Suggestion `json:"visible"`
}

func NewState(text string, suggestions []Suggestion) State {
	visible := make([]Suggestion, len(suggestions))
	copy(visible, suggestions)
	return State{
		Original: text,
		Document: NewDocument(text),
		Applied:  AppliedSet{},
		Visible:  visible,
	}
}

// ApplyAt applies the visible suggestion at index. An unmatched suggestion
// returns the state unchanged together with an error wrapping ErrUnmatched.
func (r *Reconciler) ApplyAt(st State, index int) (State, Result, error) {
	if index < 0 || index >= len(st.Visible) {
		return st, Result{Line: -1}, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(st.Visible))
	}
	s := st.Visible[index]
	if !r.AllowReapply && st.Applied.Has(s.Key()) {
		return st, Result{Key: s.Key(), Placement: PlacementAlreadyApplied, Line: -1}, nil
	}

	doc, res := r.ApplyOne(st.Document, s)
	if !res.Applied() {
		return st, res, fmt.Errorf("%w: %q", ErrUnmatched, s.Old)
	}

	next := st
	next.Document = doc
	next.Applied = st.Applied.With(res.Key)
	return next, res, nil
}

// ApplyPending applies every visible suggestion in order.
func (r *Reconciler) ApplyPending(st State) (State, []Result) {
	doc, applied, results := r.applyBatch(st.Document, st.Visible, st.Applied)
	next := st
	next.Document = doc
	next.Applied = applied
	return next, results
}

// Apply is ApplyAt with the default reconciler.
func (st State) Apply(index int) (State, Result, error) {
	return defaultReconciler.ApplyAt(st, index)
}

// ApplyAll is ApplyPending with the default reconciler.
func (st State) ApplyAll() (State, []Result) {
	return defaultReconciler.ApplyPending(st)
}

// Dismiss hides the visible suggestion at index. Edits it already made stay.
func (st State) Dismiss(index int) (State, error) {
	visible, err := Dismiss(st.Visible, index)
	if err != nil {
		return st, err
	}
	next := st
	next.Visible = visible
	return next, nil
}

// SuggestionView is what a UI shows for one pending suggestion.
type SuggestionView struct {
	Suggestion
	Key     string `json:"key"`
	Applied bool   `json:"applied"`
	// Found is true when Old occurs verbatim in the current text.
	Found bool `json:"found"`
}

func (st State) View() []SuggestionView {
	views := make([]SuggestionView, 0, len(st.Visible))
	for _, s := range st.Visible {
		views = append(views, SuggestionView{
			Suggestion: s,
			Key:        s.Key(),
			Applied:    st.Applied.Has(s.Key()),
			Found:      s.Old != "" && strings.Contains(st.Document.Text, s.Old),
		})
	}
	return views
}
