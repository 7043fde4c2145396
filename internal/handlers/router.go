package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/jobapp-ai/internal/services"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Applications ApplicationStore
	LLM          *services.LLMService
	Resume       *services.ResumeService
	CORSOrigins  []string
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), RequestID())
	r.MaxMultipartMemory = 8 << 20

	corsConfig := cors.DefaultConfig()
	if allowAll(d.CORSOrigins) {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = d.CORSOrigins
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", RequestIDHeader}
	corsConfig.ExposeHeaders = []string{RequestIDHeader}
	r.Use(cors.New(corsConfig))

	resume := d.Resume
	if resume == nil {
		resume = services.NewResumeService(nil)
	}
	aiHandler := NewAIHandler(d.LLM)
	appHandler := NewApplicationHandler(d.Applications)
	resumeHandler := NewResumeHandler(resume)

	r.GET("/", Root)

	api := r.Group("/api/v1")
	{
		api.GET("/health", HealthCheck)

		api.GET("/applications", appHandler.List)
		api.POST("/applications", appHandler.Create)
		api.POST("/applications/extract", aiHandler.ExtractApplication)
		api.GET("/applications/:id", appHandler.Get)
		api.PUT("/applications/:id", appHandler.Update)
		api.DELETE("/applications/:id", appHandler.Delete)

		api.POST("/match", aiHandler.Match)
		api.POST("/cover-letter", aiHandler.CoverLetter)
		api.POST("/cover-letter/stream", aiHandler.CoverLetterStream)

		api.POST("/resume/session", resumeHandler.Session)
		api.POST("/resume/apply", resumeHandler.Apply)
		api.POST("/resume/apply-all", resumeHandler.ApplyAll)
		api.POST("/resume/dismiss", resumeHandler.Dismiss)
	}
	return r
}

func allowAll(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
