package reconciler

import (
	"html"
	"sort"
	"strings"
)

// Span marks the bytes of Document.Text that were written by a suggestion.
// End is exclusive.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Key   string `json:"key"`
}

// Document is plain text plus the ranges that suggestions produced.
// Text never carries presentation markup, so matching always sees clean text.
type Document struct {
	Text  string `json:"text"`
	Spans []Span `json:"spans"`
}

func NewDocument(text string) Document {
	return Document{Text: text, Spans: []Span{}}
}

// splice replaces Text[start:end] with insert. The part of insert in
// [markFrom, len(insert)) is recorded as a span for key. Existing spans are
// shifted, clipped or dropped so that spans never overlap.
func (d Document) splice(start, end int, insert string, markFrom int, key string) Document {
	delta := len(insert) - (end - start)

	spans := make([]Span, 0, len(d.Spans)+1)
	for _, sp := range d.Spans {
		if sp.Start < start {
			if e := min(sp.End, start); e > sp.Start {
				spans = append(spans, Span{Start: sp.Start, End: e, Key: sp.Key})
			}
		}
		if sp.End > end {
			s := max(sp.Start, end)
			spans = append(spans, Span{Start: s + delta, End: sp.End + delta, Key: sp.Key})
		}
	}
	if markFrom < len(insert) {
		spans = append(spans, Span{Start: start + markFrom, End: start + len(insert), Key: key})
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	return Document{
		Text:  d.Text[:start] + insert + d.Text[end:],
		Spans: spans,
	}
}

// lineBounds returns the byte offset where each line starts and ends
// (end excludes the newline).
func lineBounds(text string) (lines []string, ends []int) {
	lines = strings.Split(text, "\n")
	ends = make([]int, len(lines))
	off := 0
	for i, l := range lines {
		ends[i] = off + len(l)
		off += len(l) + 1
	}
	return lines, ends
}

// Render writes the text with every span wrapped in openTag and closeTag.
func Render(d Document, openTag, closeTag string) string {
	return render(d, openTag, closeTag, func(s string) string { return s })
}

// RenderHTML escapes the text and highlights spans with <mark>.
func RenderHTML(d Document) string {
	return render(d, "<mark>", "</mark>", html.EscapeString)
}

func render(d Document, openTag, closeTag string, esc func(string) string) string {
	var b strings.Builder
	pos := 0
	for _, sp := range d.Spans {
		if sp.Start < pos || sp.End > len(d.Text) || sp.Start > sp.End {
			continue
		}
		b.WriteString(esc(d.Text[pos:sp.Start]))
		b.WriteString(openTag)
		b.WriteString(esc(d.Text[sp.Start:sp.End]))
		b.WriteString(closeTag)
		pos = sp.End
	}
	b.WriteString(esc(d.Text[pos:]))
	return b.String()
}
