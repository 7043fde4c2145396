package reconciler_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/justsurfingit/jobapp-ai/internal/reconciler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoLineResume = "Worked on backend systems.\nManaged a small team."

func TestSimilarity(t *testing.T) {
	t.Run("identical lines score 1", func(t *testing.T) {
		a := "Led the migration to Kubernetes."
		assert.Equal(t, 1.0, reconciler.Similarity(a, a))
	})

	t.Run("case and punctuation are ignored", func(t *testing.T) {
		assert.Equal(t, 1.0, reconciler.Similarity("Hello, World!", "hello world"))
	})

	t.Run("disjoint lines score 0", func(t *testing.T) {
		assert.Equal(t, 0.0, reconciler.Similarity("foo bar", "baz qux"))
	})

	t.Run("no words on either side scores 0", func(t *testing.T) {
		assert.Equal(t, 0.0, reconciler.Similarity("", ""))
		assert.Equal(t, 0.0, reconciler.Similarity("!!!", "..."))
		assert.Equal(t, 0.0, reconciler.Similarity("   ", ""))
	})

	t.Run("repeated words count once", func(t *testing.T) {
		assert.Equal(t, 1.0, reconciler.Similarity("go go go", "go"))
	})

	t.Run("jaccard over word sets", func(t *testing.T) {
		score := reconciler.Similarity("Led engineering efforts for Q3 release.", "Led eng efforts Q3")
		assert.InDelta(t, 3.0/7.0, score, 1e-9)
	})
}

func TestApplyOne_ExactMatch(t *testing.T) {
	s := reconciler.Suggestion{
		Old: "Worked on backend systems.",
		New: "Architected backend systems serving 1M users.",
	}

	doc, res := reconciler.ApplyOne(reconciler.NewDocument(twoLineResume), s)

	assert.True(t, res.Applied())
	assert.Equal(t, reconciler.PlacementReplaced, res.Placement)
	assert.Equal(t, "Architected backend systems serving 1M users.\nManaged a small team.", doc.Text)
	require.Len(t, doc.Spans, 1)
	assert.Equal(t, reconciler.Span{Start: 0, End: len(s.New), Key: s.Key()}, doc.Spans[0])
}

func TestApplyOne_ReplacesFirstOccurrenceOnly(t *testing.T) {
	doc, res := reconciler.ApplyOne(reconciler.NewDocument("foo bar foo baz foo"), reconciler.Suggestion{Old: "foo", New: "qux"})

	assert.True(t, res.Applied())
	assert.Equal(t, "qux bar foo baz foo", doc.Text)
}

func TestApplyOne_FuzzyInsert(t *testing.T) {
	t.Run("inserts after the similar line", func(t *testing.T) {
		doc := reconciler.NewDocument("Led engineering efforts for Q3 release.")
		s := reconciler.Suggestion{Old: "Led engineering efforts Q3 release", New: "Drove the Q3 release cycle."}

		out, res := reconciler.ApplyOne(doc, s)

		assert.Equal(t, reconciler.PlacementInsertedAfter, res.Placement)
		assert.Equal(t, 0, res.Line)
		assert.Greater(t, res.Score, reconciler.DefaultThreshold)
		assert.Equal(t, "Led engineering efforts for Q3 release.\nDrove the Q3 release cycle.", out.Text)
		require.Len(t, out.Spans, 1)
		start := len("Led engineering efforts for Q3 release.") + 1
		assert.Equal(t, reconciler.Span{Start: start, End: start + len(s.New), Key: s.Key()}, out.Spans[0])
	})

	t.Run("abbreviated anchor stays below threshold", func(t *testing.T) {
		// 3 shared words out of 7 distinct ones.
		doc := reconciler.NewDocument("Led engineering efforts for Q3 release.")
		out, res := reconciler.ApplyOne(doc, reconciler.Suggestion{Old: "Led eng efforts Q3", New: "Drove the Q3 release cycle."})

		assert.False(t, res.Applied())
		assert.Equal(t, doc.Text, out.Text)
	})

	t.Run("ties go to the earliest line", func(t *testing.T) {
		doc := reconciler.NewDocument("alpha beta\ngamma\nalpha beta")
		out, res := reconciler.ApplyOne(doc, reconciler.Suggestion{Old: "alpha beta gamma", New: "NEW"})

		assert.Equal(t, 0, res.Line)
		assert.Equal(t, "alpha beta\nNEW\ngamma\nalpha beta", out.Text)
	})

	t.Run("highest score wins over an earlier line", func(t *testing.T) {
		doc := reconciler.NewDocument("python go\npython go rust")
		out, res := reconciler.ApplyOne(doc, reconciler.Suggestion{Old: "python go rust java", New: "NEW"})

		assert.Equal(t, 1, res.Line)
		assert.Equal(t, "python go\npython go rust\nNEW", out.Text)
	})

	t.Run("a score of exactly the threshold is not enough", func(t *testing.T) {
		doc := reconciler.NewDocument("python go")
		_, res := reconciler.ApplyOne(doc, reconciler.Suggestion{Old: "python go rust java", New: "NEW"})

		assert.Equal(t, 0.5, res.Score)
		assert.Equal(t, reconciler.PlacementUnmatched, res.Placement)
	})

	t.Run("custom threshold", func(t *testing.T) {
		r := &reconciler.Reconciler{Threshold: 0.4}
		out, res := r.ApplyOne(reconciler.NewDocument("python go"), reconciler.Suggestion{Old: "python go rust java", New: "NEW"})

		assert.True(t, res.Applied())
		assert.Equal(t, "python go\nNEW", out.Text)
	})
}

func TestApplyOne_Unmatched(t *testing.T) {
	doc := reconciler.NewDocument(twoLineResume)
	out, res := reconciler.ApplyOne(doc, reconciler.Suggestion{Old: "Completely unrelated text xyz", New: "..."})

	assert.False(t, res.Applied())
	assert.Equal(t, reconciler.PlacementUnmatched, res.Placement)
	assert.Equal(t, -1, res.Line)
	assert.Equal(t, twoLineResume, out.Text)
	assert.Empty(t, out.Spans)
}

func TestApplyOne_EmptyOld(t *testing.T) {
	t.Run("appends as the last line instead of touching the start", func(t *testing.T) {
		s := reconciler.Suggestion{Old: "", New: "Added"}
		out, res := reconciler.ApplyOne(reconciler.NewDocument("Line one"), s)

		assert.Equal(t, reconciler.PlacementAppended, res.Placement)
		assert.Equal(t, "Line one\nAdded", out.Text)
		assert.Equal(t, []reconciler.Span{{Start: 9, End: 14, Key: s.Key()}}, out.Spans)
	})

	t.Run("becomes the whole text of an empty document", func(t *testing.T) {
		out, res := reconciler.ApplyOne(reconciler.NewDocument(""), reconciler.Suggestion{New: "Added"})

		assert.True(t, res.Applied())
		assert.Equal(t, "Added", out.Text)
	})
}

func TestApplyAll(t *testing.T) {
	first := reconciler.Suggestion{Old: "Managed small team", New: "Scaled the platform team to ten engineers."}
	second := reconciler.Suggestion{Old: "Scaled platform team ten engineers", New: "Hired five engineers."}
	miss := reconciler.Suggestion{Old: "Completely unrelated text xyz", New: "nope"}

	t.Run("later suggestions see earlier insertions", func(t *testing.T) {
		doc, applied := reconciler.ApplyAll(reconciler.NewDocument("Managed a small team."), []reconciler.Suggestion{first, second})

		// The second suggestion anchors on the line the first one inserted.
		assert.Equal(t, "Managed a small team.\nScaled the platform team to ten engineers.\nHired five engineers.", doc.Text)
		assert.True(t, applied.Has(first.Key()))
		assert.True(t, applied.Has(second.Key()))
		assert.Len(t, doc.Spans, 2)
	})

	t.Run("unmatched suggestions are skipped", func(t *testing.T) {
		suggestions := []reconciler.Suggestion{miss, first}
		doc, applied := reconciler.ApplyAll(reconciler.NewDocument("Managed a small team."), suggestions)

		assert.Equal(t, "Managed a small team.\nScaled the platform team to ten engineers.", doc.Text)
		assert.False(t, applied.Has(miss.Key()))
		assert.Len(t, applied, 1)
		assert.Equal(t, []reconciler.Suggestion{miss, first}, suggestions)
	})

	t.Run("running twice is not idempotent on the text", func(t *testing.T) {
		s := []reconciler.Suggestion{{Old: "Worked on backend systems.", New: "Worked on backend systems at scale."}}

		once, _ := reconciler.ApplyAll(reconciler.NewDocument("Worked on backend systems."), s)
		twice, applied := reconciler.ApplyAll(once, s)

		assert.Equal(t, "Worked on backend systems at scale.", once.Text)
		assert.Equal(t, "Worked on backend systems at scale.\nWorked on backend systems at scale.", twice.Text)
		assert.True(t, applied.Has(s[0].Key()))
	})
}

func TestSpans(t *testing.T) {
	t.Run("earlier replacement shifts later spans", func(t *testing.T) {
		doc := reconciler.NewDocument("aaa bbb ccc")
		doc, _ = reconciler.ApplyOne(doc, reconciler.Suggestion{Old: "ccc", New: "CCCC"})
		doc, _ = reconciler.ApplyOne(doc, reconciler.Suggestion{Old: "aaa", New: "A"})

		assert.Equal(t, "A bbb CCCC", doc.Text)
		assert.Equal(t, "[A] bbb [CCCC]", reconciler.Render(doc, "[", "]"))
	})

	t.Run("replacing a suggested fragment drops its span", func(t *testing.T) {
		second := reconciler.Suggestion{Old: "2 too", New: "three"}
		doc := reconciler.NewDocument("one two")
		doc, _ = reconciler.ApplyOne(doc, reconciler.Suggestion{Old: "two", New: "2 too"})
		doc, _ = reconciler.ApplyOne(doc, second)

		assert.Equal(t, "one three", doc.Text)
		assert.Equal(t, []reconciler.Span{{Start: 4, End: 9, Key: second.Key()}}, doc.Spans)
	})

	t.Run("matching never sees markup", func(t *testing.T) {
		doc := reconciler.NewDocument("Go developer")
		doc, _ = reconciler.ApplyOne(doc, reconciler.Suggestion{Old: "Go", New: "Senior Go"})
		doc, res := reconciler.ApplyOne(doc, reconciler.Suggestion{Old: "Senior Go developer", New: "Staff Go developer"})

		assert.Equal(t, reconciler.PlacementReplaced, res.Placement)
		assert.Equal(t, "<mark>Staff Go developer</mark>", reconciler.RenderHTML(doc))
	})

	t.Run("html rendering escapes text", func(t *testing.T) {
		doc, _ := reconciler.ApplyOne(reconciler.NewDocument("R&D <team>"), reconciler.Suggestion{Old: "<team>", New: "<squad>"})

		assert.Equal(t, "R&amp;D <mark>&lt;squad&gt;</mark>", reconciler.RenderHTML(doc))
	})
}

func TestDismiss(t *testing.T) {
	visible := []reconciler.Suggestion{{Old: "a", New: "b"}, {Old: "c", New: "d"}}

	t.Run("removes the suggestion at index", func(t *testing.T) {
		out, err := reconciler.Dismiss(visible, 0)
		require.NoError(t, err)
		assert.Equal(t, []reconciler.Suggestion{{Old: "c", New: "d"}}, out)
		assert.Len(t, visible, 2)
		assert.Equal(t, "a", visible[0].Old)
	})

	t.Run("out of range fails without touching the list", func(t *testing.T) {
		for _, idx := range []int{-1, 2, 10} {
			out, err := reconciler.Dismiss(visible, idx)
			assert.ErrorIs(t, err, reconciler.ErrIndexOutOfRange)
			assert.Equal(t, visible, out)
		}
	})
}

func TestState(t *testing.T) {
	exact := reconciler.Suggestion{Old: "Worked on backend systems.", New: "Architected backend systems serving 1M users."}
	miss := reconciler.Suggestion{Old: "Completely unrelated text xyz", New: "..."}

	t.Run("apply marks the suggestion applied", func(t *testing.T) {
		st := reconciler.NewState(twoLineResume, []reconciler.Suggestion{exact, miss})

		next, res, err := reconciler.New().ApplyAt(st, 0)
		require.NoError(t, err)

		assert.Equal(t, reconciler.PlacementReplaced, res.Placement)
		assert.True(t, next.Applied.Has(exact.Key()))
		assert.Equal(t, twoLineResume, next.Original)
		assert.Equal(t, twoLineResume, st.Document.Text)
		assert.False(t, st.Applied.Has(exact.Key()))
	})

	t.Run("unmatched apply surfaces a warning and keeps the state", func(t *testing.T) {
		st := reconciler.NewState(twoLineResume, []reconciler.Suggestion{exact, miss})

		next, res, err := reconciler.New().ApplyAt(st, 1)

		require.Error(t, err)
		assert.True(t, errors.Is(err, reconciler.ErrUnmatched))
		assert.Contains(t, err.Error(), miss.Old)
		assert.False(t, res.Applied())
		assert.Equal(t, st, next)
	})

	t.Run("apply out of range", func(t *testing.T) {
		st := reconciler.NewState(twoLineResume, []reconciler.Suggestion{exact})
		_, _, err := reconciler.New().ApplyAt(st, 3)
		assert.ErrorIs(t, err, reconciler.ErrIndexOutOfRange)
	})

	t.Run("dismiss keeps applied edits", func(t *testing.T) {
		st := reconciler.NewState(twoLineResume, []reconciler.Suggestion{exact, miss})
		st, _, err := reconciler.New().ApplyAt(st, 0)
		require.NoError(t, err)

		next, err := st.Dismiss(0)
		require.NoError(t, err)

		assert.Equal(t, []reconciler.Suggestion{miss}, next.Visible)
		assert.True(t, next.Applied.Has(exact.Key()))
		assert.Equal(t, st.Document, next.Document)

		_, err = next.Dismiss(1)
		assert.ErrorIs(t, err, reconciler.ErrIndexOutOfRange)
	})

	t.Run("guarded re-apply is a no-op", func(t *testing.T) {
		s := reconciler.Suggestion{Old: "Worked on backend systems.", New: "Worked on backend systems at scale."}
		st := reconciler.NewState("Worked on backend systems.", []reconciler.Suggestion{s})
		r := reconciler.New()

		st, _ = r.ApplyPending(st)
		again, results := r.ApplyPending(st)

		assert.Equal(t, "Worked on backend systems at scale.", again.Document.Text)
		require.Len(t, results, 1)
		assert.Equal(t, reconciler.PlacementAlreadyApplied, results[0].Placement)

		single, res, err := r.ApplyAt(again, 0)
		require.NoError(t, err)
		assert.Equal(t, reconciler.PlacementAlreadyApplied, res.Placement)
		assert.Equal(t, again, single)
	})

	t.Run("unguarded re-apply duplicates the line", func(t *testing.T) {
		s := reconciler.Suggestion{Old: "Worked on backend systems.", New: "Worked on backend systems at scale."}
		st := reconciler.NewState("Worked on backend systems.", []reconciler.Suggestion{s})
		r := &reconciler.Reconciler{AllowReapply: true}

		st, _ = r.ApplyPending(st)
		again, results := r.ApplyPending(st)

		assert.Equal(t, "Worked on backend systems at scale.\nWorked on backend systems at scale.", again.Document.Text)
		assert.Equal(t, reconciler.PlacementInsertedAfter, results[0].Placement)
		assert.Len(t, again.Applied, 1)
	})

	t.Run("batch apply skips unmatched and keeps order", func(t *testing.T) {
		st := reconciler.NewState(twoLineResume, []reconciler.Suggestion{miss, exact})

		next, results := reconciler.New().ApplyPending(st)

		require.Len(t, results, 2)
		assert.Equal(t, reconciler.PlacementUnmatched, results[0].Placement)
		assert.Equal(t, reconciler.PlacementReplaced, results[1].Placement)
		assert.Equal(t, []string{exact.Key()}, next.Applied.Keys())
		assert.Equal(t, st.Visible, next.Visible)
	})

	t.Run("view reports applied and found", func(t *testing.T) {
		st := reconciler.NewState(twoLineResume, []reconciler.Suggestion{exact, miss, {New: "Insert only"}})
		st, _, err := reconciler.New().ApplyAt(st, 0)
		require.NoError(t, err)

		views := st.View()
		require.Len(t, views, 3)
		assert.True(t, views[0].Applied)
		assert.False(t, views[0].Found)
		assert.False(t, views[1].Applied)
		assert.False(t, views[1].Found)
		assert.False(t, views[2].Found)
		assert.Equal(t, exact.Old, views[0].Old)
	})

	t.Run("state survives a json round trip", func(t *testing.T) {
		st := reconciler.NewState(twoLineResume, []reconciler.Suggestion{exact})
		st, _, err := reconciler.New().ApplyAt(st, 0)
		require.NoError(t, err)

		raw, err := json.Marshal(st)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"applied":["`+exact.Key()+`"]`)

		var decoded reconciler.State
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, st, decoded)
	})
}

func TestChanges(t *testing.T) {
	original := "Managed a small team."
	doc, _ := reconciler.ApplyOne(reconciler.NewDocument(original), reconciler.Suggestion{Old: "small", New: "large"})

	changes := reconciler.Changes(original, doc)

	var before, after strings.Builder
	for _, c := range changes {
		switch c.Op {
		case "equal":
			before.WriteString(c.Text)
			after.WriteString(c.Text)
		case "delete":
			before.WriteString(c.Text)
		case "insert":
			after.WriteString(c.Text)
		default:
			t.Fatalf("unexpected op %q", c.Op)
		}
	}
	assert.Equal(t, original, before.String())
	assert.Equal(t, doc.Text, after.String())

	same := reconciler.Changes(original, reconciler.NewDocument(original))
	assert.Equal(t, []reconciler.Change{{Op: "equal", Text: original}}, same)
}

func TestState_DefaultReconciler(t *testing.T) {
	st := reconciler.NewState("Worked on backend systems.", []reconciler.Suggestion{
		{Old: "Worked on backend systems.", New: "Built Go APIs."},
		{Old: "", New: "Kubernetes"},
	})

	one, res, err := st.Apply(0)
	require.NoError(t, err)
	assert.Equal(t, reconciler.PlacementReplaced, res.Placement)
	assert.Equal(t, "Worked on backend systems.", st.Document.Text)

	all, results := one.ApplyAll()
	require.Len(t, results, 2)
	assert.Equal(t, reconciler.PlacementAlreadyApplied, results[0].Placement)
	assert.Equal(t, "Built Go APIs.\nKubernetes", all.Document.Text)
}

func TestPlacementText(t *testing.T) {
	var p reconciler.Placement
	require.NoError(t, p.UnmarshalText([]byte("inserted_after")))
	assert.Equal(t, reconciler.PlacementInsertedAfter, p)
	assert.Error(t, p.UnmarshalText([]byte("sideways")))
}
