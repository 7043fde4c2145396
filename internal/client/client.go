// Package client talks to the job tracker HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/justsurfingit/jobapp-ai/internal/dtos"
	"github.com/justsurfingit/jobapp-ai/internal/models"
)

const (
	DefaultTimeout = 30 * time.Second
	// AITimeout covers the model round trip of the match and cover letter
	// endpoints.
	AITimeout = 3 * time.Minute
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL       string
	defaultClient *http.Client
	aiClient      *http.Client
}

// New returns a client for the API rooted at baseURL, e.g.
// http://localhost:8080/api/v1.
func New(baseURL string) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		defaultClient: &http.Client{Timeout: DefaultTimeout},
		aiClient:      &http.Client{Timeout: AITimeout},
	}
}

// Text is one input of a form: an uploaded file when Data is set, pasted
// text otherwise.
type Text struct {
	Filename string
	Data     []byte
	Body     string
}

func (t Text) empty() bool {
	return len(t.Data) == 0 && strings.TrimSpace(t.Body) == ""
}

type MatchRequest struct {
	Resume Text
	Job    Text
}

type CoverLetterRequest struct {
	Resume Text
	Job    Text
	Letter Text
}

func (c *Client) ListApplications(ctx context.Context) ([]models.Application, error) {
	var apps []models.Application
	err := c.doJSON(ctx, http.MethodGet, "/applications", nil, &apps)
	return apps, err
}

func (c *Client) GetApplication(ctx context.Context, id uint) (*models.Application, error) {
	var app models.Application
	if err := c.doJSON(ctx, http.MethodGet, "/applications/"+strconv.FormatUint(uint64(id), 10), nil, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

func (c *Client) CreateApplication(ctx context.Context, req dtos.ApplicationRequest) (*models.Application, error) {
	var app models.Application
	if err := c.doJSON(ctx, http.MethodPost, "/applications", req, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

func (c *Client) UpdateApplication(ctx context.Context, id uint, req dtos.ApplicationRequest) (*models.Application, error) {
	var app models.Application
	if err := c.doJSON(ctx, http.MethodPut, "/applications/"+strconv.FormatUint(uint64(id), 10), req, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

func (c *Client) DeleteApplication(ctx context.Context, id uint) error {
	return c.doJSON(ctx, http.MethodDelete, "/applications/"+strconv.FormatUint(uint64(id), 10), nil, nil)
}

// Match uploads a resume and a job description and returns the match report
// with its suggestions.
func (c *Client) Match(ctx context.Context, in MatchRequest) (*Payload, error) {
	if in.Resume.empty() || in.Job.empty() {
		return nil, ErrInputMissing
	}
	body, contentType, err := encodeForm(map[string]Text{"resume": in.Resume, "job_desc": in.Job}, map[string]string{"resume": "resume_text", "job_desc": "job_text"})
	if err != nil {
		return nil, err
	}
	data, err := c.post(ctx, "/match", body, contentType)
	if err != nil {
		return nil, err
	}
	return DecodePayload(data)
}

func (c *Client) CoverLetter(ctx context.Context, in CoverLetterRequest) (*Payload, error) {
	body, contentType, err := coverLetterForm(in)
	if err != nil {
		return nil, err
	}
	data, err := c.post(ctx, "/cover-letter", body, contentType)
	if err != nil {
		return nil, err
	}
	return DecodePayload(data)
}

// StreamCoverLetter reads the streamed cover letter. onChunk, if set, sees
// each network read as it lands, together with the accumulator holding
// everything received so far.
func (c *Client) StreamCoverLetter(ctx context.Context, in CoverLetterRequest, onChunk func(chunk []byte, acc *Accumulator) error) (*Payload, error) {
	body, contentType, err := coverLetterForm(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cover-letter/stream", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.aiClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, apiError(resp)
	}

	acc := &Accumulator{}
	buf := make([]byte, 4096)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			_, _ = acc.Write(chunk)
			if onChunk != nil {
				if err := onChunk(chunk, acc); err != nil {
					return nil, err
				}
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("read stream: %w", rerr)
		}
	}
	return acc.Payload()
}

// ErrInputMissing mirrors the server's check so no request is sent without
// a resume and a job description.
var ErrInputMissing = errors.New("please provide a resume and job description")

func coverLetterForm(in CoverLetterRequest) (io.Reader, string, error) {
	if in.Resume.empty() || in.Job.empty() {
		return nil, "", ErrInputMissing
	}
	return encodeForm(
		map[string]Text{"resume": in.Resume, "job_desc": in.Job, "existing_letter_file": in.Letter},
		map[string]string{"resume": "resume_text", "job_desc": "job_text", "existing_letter_file": "existing_letter"},
	)
}

// encodeForm writes each Text as a file under its file field, or as pasted
// text under the matching text field.
func encodeForm(inputs map[string]Text, textFields map[string]string) (io.Reader, string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for field, t := range inputs {
		if t.empty() {
			continue
		}
		if len(t.Data) > 0 {
			name := t.Filename
			if name == "" {
				name = field + ".txt"
			}
			part, err := w.CreateFormFile(field, name)
			if err != nil {
				return nil, "", err
			}
			if _, err := part.Write(t.Data); err != nil {
				return nil, "", err
			}
			continue
		}
		if err := w.WriteField(textFields[field], t.Body); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &body, w.FormDataContentType(), nil
}

func (c *Client) post(ctx context.Context, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.aiClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, apiError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.defaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
