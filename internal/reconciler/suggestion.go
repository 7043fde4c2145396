package reconciler

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnmatched is returned when a suggestion's old text can be located
	// neither verbatim nor by line similarity. It is a warning, not a failure:
	// the state is returned unchanged.
	ErrUnmatched = errors.New("suggestion could not be matched")

	ErrIndexOutOfRange = errors.New("suggestion index out of range")
)

// Suggestion is a proposed edit coming from the AI backend.
// An empty Old means "insert New somewhere", with no anchor text.
type Suggestion struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Key identifies a suggestion by its text. Two suggestions with the same
// old/new pair share a key and cannot be told apart.
func (s Suggestion) Key() string {
	return s.Old + "→" + s.New
}

// AppliedSet holds the keys of suggestions already written into a document.
// It only ever grows.
type AppliedSet map[string]struct{}

func (a AppliedSet) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// With returns a copy of the set that also contains key.
func (a AppliedSet) With(key string) AppliedSet {
	out := a.Clone()
	out[key] = struct{}{}
	return out
}

func (a AppliedSet) Clone() AppliedSet {
	out := make(AppliedSet, len(a)+1)
	for k := range a {
		out[k] = struct{}{}
	}
	return out
}

// Keys returns the keys in sorted order.
func (a AppliedSet) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON encodes the set as a sorted array so responses are stable.
func (a AppliedSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Keys())
}

func (a *AppliedSet) UnmarshalJSON(data []byte) error {
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	set := make(AppliedSet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	*a = set
	return nil
}

// Dismiss removes the suggestion at index from a visible list. The input
// slice is left untouched.
func Dismiss(visible []Suggestion, index int) ([]Suggestion, error) {
	if index < 0 || index >= len(visible) {
		return visible, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(visible))
	}
	out := make([]Suggestion, 0, len(visible)-1)
	out = append(out, visible[:index]...)
	return append(out, visible[index+1:]...), nil
}
