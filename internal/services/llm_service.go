package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/justsurfingit/jobapp-ai/internal/config"
	"github.com/justsurfingit/jobapp-ai/internal/dtos"
	"github.com/justsurfingit/jobapp-ai/internal/reconciler"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

const maxPromptInput = 20000

const noExistingLetter = "[No existing letter provided]"

type LLMService struct {
	Client llms.Model
}

// NewLLMService builds a Gemini-backed service.
func NewLLMService(ctx context.Context, cfg config.LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &LLMService{Client: llm}, nil
}

// MatchAnalysis is the parsed answer of a resume/job comparison.
type MatchAnalysis struct {
	Result      string
	Suggestions []reconciler.Suggestion
}

const matchPrompt = `
Compare the following resume and job description and return:

1. A short match percentage and reasoning (2–3 sentences)
2. A short list of top matched skills (plain bullet points)
3. Top missing or weak areas (plain bullet points)
4. 2–3 specific suggestions to improve the resume
5. A JSON list of actual suggested changes inside a ` + "```json" + ` block, as [{"old": "...", "new": "..."}].
   "old" must be copied verbatim from the resume. Use an empty "old" for new lines.

Resume:
%s

Job Description:
%s
`

// MatchResume compares a resume with a job description and extracts the
// suggested edits.
func (s *LLMService) MatchResume(ctx context.Context, resumeText, jobText string) (*MatchAnalysis, error) {
	prompt := fmt.Sprintf(matchPrompt, truncate(resumeText), truncate(jobText))
	resp, err := llms.GenerateFromSinglePrompt(ctx, s.Client, prompt)
	if err != nil {
		return nil, err
	}
	result, suggestions := parseMatchOutput(resp)
	return &MatchAnalysis{Result: result, Suggestions: suggestions}, nil
}

var suggestionBlock = regexp.MustCompile("(?s)```json\\s*(\\[\\s*\\{.*?\\}\\s*\\])\\s*```")

// parseMatchOutput splits the model output into the prose report (everything
// before the json block) and the suggestion list. A missing or broken block
// yields no suggestions.
func parseMatchOutput(out string) (string, []reconciler.Suggestion) {
	result := strings.TrimSpace(strings.SplitN(out, "```json", 2)[0])

	suggestions := []reconciler.Suggestion{}
	m := suggestionBlock.FindStringSubmatch(out)
	if m == nil {
		log.Println("⚠️ No JSON block found in LLM output")
		return result, suggestions
	}
	if err := json.Unmarshal([]byte(m[1]), &suggestions); err != nil {
		log.Printf("⚠️ Suggestion JSON parsing failed: %v", err)
		return result, []reconciler.Suggestion{}
	}
	return result, suggestions
}

// CoverLetterInput carries the texts a cover letter is written from.
// An empty Letter asks for a new one.
type CoverLetterInput struct {
	Resume string
	Job    string
	Letter string
}

const coverLetterPrompt = `
You are an AI writing assistant. Improve the following cover letter based on the resume and job description below.

Resume:
%s

Job Description:
%s

Existing Cover Letter:
%s

Instructions:
- Keep the tone professional and concise.
- Highlight matching skills.
- If no existing letter is provided, write a new one.
- Use plain text, no markdown.
- The output should only be the cover letter. No unnecessary texts.
`

func (in CoverLetterInput) prompt() string {
	letter := strings.TrimSpace(in.Letter)
	if letter == "" {
		letter = noExistingLetter
	}
	return fmt.Sprintf(coverLetterPrompt, truncate(in.Resume), truncate(in.Job), truncate(letter))
}

func (s *LLMService) GenerateCoverLetter(ctx context.Context, in CoverLetterInput) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s.Client, in.prompt())
}

// StreamCoverLetter generates a cover letter, handing each chunk to onChunk
// as it arrives. The full letter is returned at the end. An error from
// onChunk stops generation.
func (s *LLMService) StreamCoverLetter(ctx context.Context, in CoverLetterInput, onChunk func(string) error) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s.Client, in.prompt(),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			return onChunk(string(chunk))
		}),
	)
}

const applicationExtractionPrompt = `
You are an expert Job Data Extraction Agent. Your task is to analyze the provided raw HTML/Text from a job posting and extract the fields of a job application record.

### INSTRUCTIONS:
1. **Ignore** navigation menus, footers, "similar jobs" lists, and site advertisements.
2. **Format** the output as valid JSON only. Do not wrap the output in markdown code blocks.

### OUTPUT SCHEMA:
{
    "company": "Name of the company (e.g., Google, StartupInc)",
    "position": "Job title (e.g., Senior Backend Engineer)",
    "notes": "One or two lines: location, salary if mentioned, and the main tech stack"
}

### CONSTRAINT:
If a piece of information is missing, use an empty string. Do not hallucinate or guess.

### RAW CONTENT:
%s
`

// ExtractApplication turns a job posting into a prefilled tracker entry.
func (s *LLMService) ExtractApplication(ctx context.Context, rawHTML, url string) (*dtos.ApplicationRequest, error) {
	resp, err := llms.GenerateFromSinglePrompt(ctx, s.Client, fmt.Sprintf(applicationExtractionPrompt, truncate(rawHTML)))
	if err != nil {
		return nil, err
	}
	var req dtos.ApplicationRequest
	if err := json.Unmarshal([]byte(cleanJSON(resp)), &req); err != nil {
		return nil, fmt.Errorf("parse extraction output: %w", err)
	}
	req.JobLink = url
	return &req, nil
}

// EmailAnalysis is the model's reading of a recruiting email.
type EmailAnalysis struct {
	Status  string `json:"status"`
	Summary string `json:"summary"`
}

const (
	StatusNoChange = "NO_CHANGE"
	StatusUnknown  = "UNKNOWN"
)

const emailStatusPrompt = `
You track job applications. Read this email from %s and decide the application status it implies.

Answer with JSON only, no markdown: {"status": "...", "summary": "..."}
"status" is one of: Applied, Interviewing, Offer, Rejected, NO_CHANGE, UNKNOWN.
"summary" is one short sentence.

Subject: %s

Body:
%s
`

func (s *LLMService) AnalyzeEmailStatus(ctx context.Context, company, subject, body string) (*EmailAnalysis, error) {
	resp, err := llms.GenerateFromSinglePrompt(ctx, s.Client, fmt.Sprintf(emailStatusPrompt, company, subject, truncate(body)))
	if err != nil {
		return nil, err
	}
	var out EmailAnalysis
	if err := json.Unmarshal([]byte(cleanJSON(resp)), &out); err != nil {
		return nil, fmt.Errorf("parse email analysis: %w (raw: %s)", err, resp)
	}
	return &out, nil
}

const identifyApplicationPrompt = `
An email is about exactly one of these job applications:
%s
Reply with the number of the matching application only, or -1 if you cannot tell.

Subject: %s

Body:
%s
`

// IdentifyApplication asks the model which position an email refers to.
// It returns -1 when the answer is unusable.
func (s *LLMService) IdentifyApplication(ctx context.Context, positions []string, subject, body string) int {
	var list strings.Builder
	for i, p := range positions {
		fmt.Fprintf(&list, "%d. %s\n", i, p)
	}
	resp, err := llms.GenerateFromSinglePrompt(ctx, s.Client, fmt.Sprintf(identifyApplicationPrompt, list.String(), subject, truncate(body)))
	if err != nil {
		log.Printf("⚠️ LLM error while identifying application: %v", err)
		return -1
	}
	idx, err := strconv.Atoi(strings.Trim(strings.TrimSpace(resp), "."))
	if err != nil || idx < 0 || idx >= len(positions) {
		return -1
	}
	return idx
}

func truncate(s string) string {
	if len(s) > maxPromptInput {
		return s[:maxPromptInput]
	}
	return s
}

// cleanJSON drops the markdown fence models like to add around JSON.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ErrInputMissing is returned before any AI work when the resume or the job
// description is absent.
var ErrInputMissing = errors.New("please provide a resume and job description")
