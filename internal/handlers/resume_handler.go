package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/jobapp-ai/internal/dtos"
	"github.com/justsurfingit/jobapp-ai/internal/reconciler"
	"github.com/justsurfingit/jobapp-ai/internal/services"
)

const unmatchedWarning = "Could not match or insert suggestion."

// ResumeHandler exposes the resume editor. The client owns the session and
// posts it back with every action.
type ResumeHandler struct {
	Service *services.ResumeService
}

func NewResumeHandler(svc *services.ResumeService) *ResumeHandler {
	return &ResumeHandler{Service: svc}
}

func (h *ResumeHandler) Session(c *gin.Context) {
	var req dtos.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionResponse(h.Service.NewSession(req.ResumeText, req.Suggestions)))
}

// Apply applies one suggestion. A miss is not an error: the unchanged
// session comes back with a warning.
func (h *ResumeHandler) Apply(c *gin.Context) {
	var req dtos.IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	next, res, err := h.Service.Apply(req.State, *req.Index)
	resp := sessionResponse(next)
	resp.Results = []reconciler.Result{res}
	switch {
	case errors.Is(err, reconciler.ErrUnmatched):
		resp.Warning = unmatchedWarning
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ResumeHandler) ApplyAll(c *gin.Context) {
	var req dtos.StateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	next, results := h.Service.ApplyAll(req.State)
	resp := sessionResponse(next)
	resp.Results = results
	c.JSON(http.StatusOK, resp)
}

func (h *ResumeHandler) Dismiss(c *gin.Context) {
	var req dtos.IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	next, err := h.Service.Dismiss(req.State, *req.Index)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionResponse(next))
}

func sessionResponse(st reconciler.State) dtos.SessionResponse {
	return dtos.SessionResponse{
		State:       st,
		HTML:        reconciler.RenderHTML(st.Document),
		Suggestions: st.View(),
		Changes:     reconciler.Changes(st.Original, st.Document),
	}
}
