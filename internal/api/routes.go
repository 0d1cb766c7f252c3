package api

import (
	"quizify/internal/api/handlers"
	"quizify/internal/web"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the form page, the generation endpoint and the
// history API.
func SetupRoutes(router *gin.Engine, handler *handlers.Handler, frontendURL string) {
	router.Use(RequestID())
	router.Use(RequestLogger())
	router.Use(CORSMiddleware(frontendURL))

	router.SetHTMLTemplate(web.Templates())

	router.GET("/", handler.HandleIndex)
	router.POST("/generate_quiz", handler.HandleGenerateQuiz)
	router.GET("/healthz", handler.HandleHealth)

	api := router.Group("/api")
	{
		api.GET("/generations", handler.HandleListGenerations)
	}
}

// NewRouter builds a gin engine with recovery and the application routes.
func NewRouter(handler *handlers.Handler, frontendURL string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	SetupRoutes(router, handler, frontendURL)
	return router
}
