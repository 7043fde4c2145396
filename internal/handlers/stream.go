package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"unicode/utf8"
)

// jsonStringWriter streams text as the body of a JSON string literal.
// Chunks may split a UTF-8 sequence; the incomplete tail is held back until
// the next chunk so escaping never sees half a rune.
type jsonStringWriter struct {
	w       io.Writer
	pending []byte
}

func (s *jsonStringWriter) WriteChunk(chunk string) error {
	buf := append(s.pending, chunk...)
	complete, rest := splitCompleteRunes(buf)
	s.pending = append([]byte(nil), rest...)
	if len(complete) == 0 {
		return nil
	}
	return s.write(escapeJSONFragment(string(complete)))
}

// Flush writes whatever is still held back.
func (s *jsonStringWriter) Flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	rest := string(s.pending)
	s.pending = nil
	return s.write(escapeJSONFragment(rest))
}

func (s *jsonStringWriter) write(text string) error {
	if _, err := io.WriteString(s.w, text); err != nil {
		return err
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// splitCompleteRunes cuts b before a trailing, unfinished UTF-8 sequence.
func splitCompleteRunes(b []byte) (complete, rest []byte) {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return b, nil
			}
			return b[:i], b[i:]
		}
	}
	return b, nil
}

// escapeJSONFragment is json string escaping without the surrounding quotes.
func escapeJSONFragment(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
