package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/jobapp-ai/internal/dtos"
	"github.com/justsurfingit/jobapp-ai/internal/models"
	"github.com/justsurfingit/jobapp-ai/internal/services"
)

// ApplicationStore is the slice of ApplicationService the handler needs.
type ApplicationStore interface {
	List(ctx context.Context) ([]models.Application, error)
	Get(ctx context.Context, id uint) (*models.Application, error)
	Create(ctx context.Context, req *dtos.ApplicationRequest) (*models.Application, error)
	Update(ctx context.Context, id uint, req *dtos.ApplicationRequest) (*models.Application, error)
	Delete(ctx context.Context, id uint) error
}

type ApplicationHandler struct {
	Store ApplicationStore
}

func NewApplicationHandler(store ApplicationStore) *ApplicationHandler {
	return &ApplicationHandler{Store: store}
}

func (h *ApplicationHandler) List(c *gin.Context) {
	apps, err := h.Store.List(c.Request.Context())
	if err != nil {
		log.Printf("❌ List applications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load applications"})
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *ApplicationHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	app, err := h.Store.Get(c.Request.Context(), id)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandler) Create(c *gin.Context) {
	var req dtos.ApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed: " + err.Error()})
		return
	}
	app, err := h.Store.Create(c.Request.Context(), &req)
	if err != nil {
		storeError(c, err)
		return
	}
	log.Printf("✅ Saved application #%d (%s at %s)", app.ID, app.Position, app.Company)
	c.JSON(http.StatusCreated, app)
}

func (h *ApplicationHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dtos.ApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed: " + err.Error()})
		return
	}
	app, err := h.Store.Update(c.Request.Context(), id, &req)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.Store.Delete(c.Request.Context(), id); err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Application deleted"})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application id"})
		return 0, false
	}
	return uint(id), true
}

func storeError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrApplicationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	log.Printf("❌ Application store: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save to database"})
}
