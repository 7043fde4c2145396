package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/justsurfingit/jobapp-ai/internal/reconciler"
)

var (
	ErrMalformedResponse = errors.New("malformed response")
	// ErrStreamFailed means the server gave up part way through a stream and
	// said why in the payload's error field.
	ErrStreamFailed = errors.New("stream failed")
)

// Payload is the JSON body shared by the match and cover letter endpoints.
type Payload struct {
	Result      string
	CoverLetter string
	ResumeText  string
	Suggestions []reconciler.Suggestion
	Error       string
}

type wirePayload struct {
	Result      *string                 `json:"result"`
	CoverLetter *string                 `json:"cover_letter"`
	ResumeText  string                  `json:"resume_text"`
	Suggestions []reconciler.Suggestion `json:"suggestions"`
	Error       string                  `json:"error"`
}

// DecodePayload parses a response body. A body that is not JSON, or that
// has neither a result nor a cover letter, is ErrMalformedResponse.
func DecodePayload(data []byte) (*Payload, error) {
	var w wirePayload
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if w.Result == nil && w.CoverLetter == nil {
		return nil, fmt.Errorf("%w: no result or cover_letter", ErrMalformedResponse)
	}

	p := &Payload{
		ResumeText:  w.ResumeText,
		Suggestions: w.Suggestions,
		Error:       w.Error,
	}
	if w.Result != nil {
		p.Result = *w.Result
	}
	if w.CoverLetter != nil {
		p.CoverLetter = *w.CoverLetter
	}
	if p.Suggestions == nil {
		p.Suggestions = []reconciler.Suggestion{}
	}
	if p.Error != "" {
		return p, fmt.Errorf("%w: %s", ErrStreamFailed, p.Error)
	}
	return p, nil
}

// Session starts a resume editing session from a match payload.
func (p *Payload) Session() reconciler.State {
	return reconciler.NewState(p.ResumeText, p.Suggestions)
}

// Accumulator collects the chunks of a streamed response in arrival order.
// The payload only exists once the last chunk is in.
type Accumulator struct {
	buf    bytes.Buffer
	chunks int
}

func (a *Accumulator) Write(p []byte) (int, error) {
	if len(p) > 0 {
		a.chunks++
	}
	return a.buf.Write(p)
}

func (a *Accumulator) Add(chunk string) {
	_, _ = a.Write([]byte(chunk))
}

func (a *Accumulator) Chunks() int { return a.chunks }

func (a *Accumulator) Raw() string { return a.buf.String() }

// Payload decodes everything received so far as one JSON body.
func (a *Accumulator) Payload() (*Payload, error) {
	return DecodePayload(a.buf.Bytes())
}

const letterPrefix = `{"cover_letter":"`

// PartialLetter decodes the part of a streamed cover letter that has fully
// arrived. It relies on the server writing the cover_letter field first.
func (a *Accumulator) PartialLetter() string {
	b := a.buf.Bytes()
	if !bytes.HasPrefix(b, []byte(letterPrefix)) {
		return ""
	}
	body := b[len(letterPrefix):]

	end := 0
	for i := 0; i < len(body); {
		c := body[i]
		if c == '"' {
			end = i
			break
		}
		if c != '\\' {
			i++
			end = i
			continue
		}
		n := 2
		if i+1 < len(body) && body[i+1] == 'u' {
			n = 6
		}
		if i+n > len(body) {
			break
		}
		i += n
		end = i
	}

	end = stableEnd(body[:end])

	var s string
	if err := json.Unmarshal(append(append([]byte{'"'}, body[:end]...), '"'), &s); err != nil {
		return ""
	}
	return s
}

// stableEnd trims a tail whose decoding could still change once more bytes
// arrive: a cut UTF-8 sequence or the first half of a surrogate pair.
func stableEnd(b []byte) int {
	end := len(b)
	for i := end - 1; i >= 0 && i >= end-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:end]) {
				end = i
			}
			break
		}
	}
	if end >= 6 && b[end-6] == '\\' && b[end-5] == 'u' {
		if v, err := strconv.ParseUint(string(b[end-4:end]), 16, 16); err == nil && v >= 0xD800 && v < 0xDC00 {
			end -= 6
		}
	}
	return end
}
