package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"quizify/internal/db"
	"quizify/internal/models"
	"quizify/internal/quiz"

	"github.com/gin-gonic/gin"
)

const (
	lessonField       = "lesson_pdf"
	numQuestionsField = "num_questions"
	downloadName      = "quiz.csv"
	archiveURLHeader  = "X-Quiz-Archive-URL"
)

// HandleIndex serves the upload form.
func (h *Handler) HandleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Accept":           ".pdf,application/pdf",
		"MinQuestions":     5,
		"MaxQuestions":     20,
		"DefaultQuestions": 10,
	})
}

func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleGenerateQuiz reads the lesson and question count from the multipart
// form, generates the quiz and sends it back as a CSV attachment.
func (h *Handler) HandleGenerateQuiz(c *gin.Context) {
	ctx := c.Request.Context()
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}

	fileHeader, err := c.FormFile(lessonField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			err = fmt.Errorf("upload exceeds %d bytes", maxErr.Limit)
		}
		h.respondError(c, quiz.Validation("read "+lessonField, err))
		return
	}
	numQuestions, ok := c.GetPostForm(numQuestionsField)
	if !ok {
		h.respondError(c, quiz.Validation("read "+numQuestionsField, errors.New("num_questions is required")))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.respondError(c, quiz.Internal("open "+lessonField, err))
		return
	}
	defer file.Close()

	result, err := h.Generator.Generate(ctx, quiz.Request{
		LessonName:   fileHeader.Filename,
		Lesson:       file,
		NumQuestions: numQuestions,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if result.ArchiveURL != "" {
		c.Header(archiveURLHeader, result.ArchiveURL)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", result.CSV)
}

// HandleListGenerations returns recent generation history rows.
func (h *Handler) HandleListGenerations(c *gin.Context) {
	if h.History == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "generation history is not enabled"})
		return
	}

	limit := db.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = db.ClampLimit(n)
	}

	items, err := h.History.ListGenerations(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, quiz.Internal("list generations", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"generations": items, "total": len(items)})
}
