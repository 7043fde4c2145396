package reconciler

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

type Change struct {
	Op   string `json:"op"` // equal, insert or delete
	Text string `json:"text"`
}

// Changes diffs the original text against the reconciled document, with
// the result cleaned up to word-ish boundaries for display.
func Changes(original string, doc Document) []Change {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(original, doc.Text, false))

	changes := make([]Change, 0, len(diffs))
	for _, d := range diffs {
		op := "equal"
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = "insert"
		case diffmatchpatch.DiffDelete:
			op = "delete"
		}
		changes = append(changes, Change{Op: op, Text: d.Text})
	}
	return changes
}
