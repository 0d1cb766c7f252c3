package handlers

import (
	"context"
	"net/http"

	"quizify/internal/config"
	"quizify/internal/models"
	"quizify/internal/quiz"

	"github.com/gin-gonic/gin"
)

// QuizGenerator is implemented by *quiz.Service.
type QuizGenerator interface {
	Generate(ctx context.Context, req quiz.Request) (*quiz.Result, error)
}

// GenerationLister is implemented by *db.Queries.
type GenerationLister interface {
	ListGenerations(ctx context.Context, limit int) ([]models.Generation, error)
}

// Handler contains the API handlers dependencies
type Handler struct {
	Generator      QuizGenerator
	History        GenerationLister // nil when no database is configured
	MaxUploadBytes int64
	LegacyErrors   bool
}

func NewHandler(generator QuizGenerator, history GenerationLister, cfg *config.Config) *Handler {
	return &Handler{
		Generator:      generator,
		History:        history,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		LegacyErrors:   cfg.Server.LegacyErrors,
	}
}

// respondError logs err and aborts with a plain-text body. By default the
// status and message come from the error kind; in legacy mode every failure
// is a 500 carrying the error text.
func (h *Handler) respondError(c *gin.Context, err error) {
	kind := quiz.KindOf(err)
	config.WithContext(c.Request.Context()).
		WithError(err).
		WithField("error_kind", kind).
		Error("request failed")

	if h.LegacyErrors {
		c.Abort()
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Abort()
	c.String(kind.StatusCode(), kind.Message())
}
