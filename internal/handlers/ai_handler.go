package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/jobapp-ai/internal/dtos"
	"github.com/justsurfingit/jobapp-ai/internal/extract"
	"github.com/justsurfingit/jobapp-ai/internal/services"
)

const maxUploadBytes = 10 << 20

// AIHandler serves the resume matcher and the cover letter generator.
type AIHandler struct {
	LLMService *services.LLMService
}

func NewAIHandler(llm *services.LLMService) *AIHandler {
	return &AIHandler{LLMService: llm}
}

// Match is POST /match.
func (h *AIHandler) Match(c *gin.Context) {
	if !hasInput(c, "resume", "resume_text") || !hasInput(c, "job_desc", "job_text") {
		c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrInputMissing.Error()})
		return
	}
	resumeText, ok := readInput(c, "resume", "resume_text")
	if !ok {
		return
	}
	jobText, ok := readInput(c, "job_desc", "job_text")
	if !ok {
		return
	}

	analysis, err := h.LLMService.MatchResume(c.Request.Context(), resumeText, jobText)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "AI matching failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, dtos.MatchResponse{
		Result:      analysis.Result,
		ResumeText:  resumeText,
		Suggestions: analysis.Suggestions,
	})
}

// CoverLetter is POST /cover-letter.
func (h *AIHandler) CoverLetter(c *gin.Context) {
	in, ok := coverLetterInput(c)
	if !ok {
		return
	}
	letter, err := h.LLMService.GenerateCoverLetter(c.Request.Context(), in)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Cover letter generation failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, dtos.CoverLetterResponse{CoverLetter: letter})
}

// CoverLetterStream is POST /cover-letter/stream. The body arrives in chunks
// whose concatenation is {"cover_letter": "..."}; a failure after the first
// byte is reported in an extra "error" field of the same object.
func (h *AIHandler) CoverLetterStream(c *gin.Context) {
	in, ok := coverLetterInput(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	out := &jsonStringWriter{w: c.Writer}
	if err := out.write(`{"cover_letter":"`); err != nil {
		return
	}

	_, err := h.LLMService.StreamCoverLetter(c.Request.Context(), in, out.WriteChunk)
	if ferr := out.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		log.Printf("❌ Cover letter stream failed: %v", err)
		_ = out.write(`","error":` + jsonString(err.Error()) + `}`)
		return
	}
	_ = out.write(`"}`)
}

// ExtractApplication is POST /applications/extract: a job posting in, a
// prefilled tracker entry out.
func (h *AIHandler) ExtractApplication(c *gin.Context) {
	var req dtos.ApplicationExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	app, err := h.LLMService.ExtractApplication(c.Request.Context(), req.RawHTML, req.URL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "AI Extraction failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    app,
	})
}

func coverLetterInput(c *gin.Context) (services.CoverLetterInput, bool) {
	var in services.CoverLetterInput
	if !hasInput(c, "resume", "resume_text") || !hasInput(c, "job_desc", "job_text") {
		c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrInputMissing.Error()})
		return in, false
	}

	var ok bool
	if in.Resume, ok = readInput(c, "resume", "resume_text"); !ok {
		return in, false
	}
	if in.Job, ok = readInput(c, "job_desc", "job_text"); !ok {
		return in, false
	}
	// A letter file wins over pasted text.
	if hasInput(c, "existing_letter_file", "existing_letter") {
		if in.Letter, ok = readInput(c, "existing_letter_file", "existing_letter"); !ok {
			return in, false
		}
	}
	return in, true
}

// hasInput reports whether the form carries a file under fileField or
// non-blank text under textField.
func hasInput(c *gin.Context, fileField, textField string) bool {
	if fh, err := c.FormFile(fileField); err == nil && fh.Size > 0 {
		return true
	}
	return strings.TrimSpace(c.PostForm(textField)) != ""
}

// readInput returns the text of the uploaded file, or the pasted text when no
// file was sent. It writes a 400 and returns false on unreadable uploads.
func readInput(c *gin.Context, fileField, textField string) (string, bool) {
	fh, err := c.FormFile(fileField)
	if err != nil || fh.Size == 0 {
		return strings.TrimSpace(c.PostForm(textField)), true
	}
	text, err := readUpload(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Could not read %s: %v", fileField, err)})
		return "", false
	}
	return text, true
}

func readUpload(fh *multipart.FileHeader) (string, error) {
	if fh.Size > maxUploadBytes {
		return "", errors.New("file too large")
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return "", err
	}
	return extract.Text(fh.Filename, data)
}
