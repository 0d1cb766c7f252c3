package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizify/internal/api"
	"quizify/internal/api/handlers"
	"quizify/internal/config"
	"quizify/internal/gemini"
	"quizify/internal/gemini/geminitest"
	"quizify/internal/models"
	"quizify/internal/quiz"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	backend *geminitest.Backend
	workDir string
}

type serverOption func(*config.Config, *handlers.Handler)

func legacyErrors() serverOption {
	return func(cfg *config.Config, h *handlers.Handler) { h.LegacyErrors = true }
}

func withHistory(l handlers.GenerationLister) serverOption {
	return func(cfg *config.Config, h *handlers.Handler) { h.History = l }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	template := filepath.Join(t.TempDir(), "Sample_Question_Import_UTF8.csv")
	require.NoError(t, os.WriteFile(template, []byte("NewQuestion,MC\n"), 0644))
	workDir := t.TempDir()

	backend := geminitest.NewBackend().ReplyWith("Q1,...\nQ2,...\n")
	service := quiz.NewService(
		gemini.NewStager(backend, gemini.WithPollInterval(0)),
		gemini.NewRequester(backend),
		quiz.Options{TemplatePath: template, WorkDir: workDir, DeleteUploads: true},
	)

	cfg := &config.Config{}
	cfg.Server.MaxUploadBytes = 1 << 20
	handler := handlers.NewHandler(service, nil, cfg)
	for _, opt := range opts {
		opt(cfg, handler)
	}

	return &testServer{
		router:  api.NewRouter(handler, ""),
		backend: backend,
		workDir: workDir,
	}
}

type formFile struct {
	name    string
	content string
}

func postQuiz(t *testing.T, router http.Handler, lesson *formFile, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if lesson != nil {
		part, err := writer.CreateFormFile("lesson_pdf", lesson.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(lesson.content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/generate_quiz", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIndexServesForm(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="lesson_pdf"`)
	assert.Contains(t, rec.Body.String(), `name="num_questions"`)
	assert.Contains(t, rec.Body.String(), `action="/generate_quiz"`)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGenerateQuizReturnsCSVAttachment(t *testing.T) {
	srv := newTestServer(t)
	srv.backend.States["Lesson.pdf"] = []models.FileState{models.FileStateProcessing, models.FileStateActive}

	rec := postQuiz(t, srv.router, &formFile{"chapter1.pdf", "%PDF lesson"}, map[string]string{"num_questions": "10"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Q1,...\nQ2,...\n", rec.Body.String())
	assert.Equal(t, `attachment; filename="quiz.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(api.RequestIDHeader))

	chats := srv.backend.Chats()
	require.Len(t, chats, 1)
	assert.Equal(t, []string{"10 questions"}, chats[0].Messages)

	entries, err := os.ReadDir(srv.workDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateQuizKeepsCallerRequestID(t *testing.T) {
	srv := newTestServer(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("lesson_pdf", "lesson.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("lesson"))
	require.NoError(t, writer.WriteField("num_questions", "5"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/generate_quiz", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(api.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get(api.RequestIDHeader))
}

func TestGenerateQuizFileProcessingFailure(t *testing.T) {
	tests := []struct {
		name   string
		opts   []serverOption
		status int
		body   string
	}{
		{name: "error kinds", status: http.StatusBadGateway, body: quiz.KindUpstreamFailure.Message()},
		{name: "legacy", opts: []serverOption{legacyErrors()}, status: http.StatusInternalServerError, body: "failed to process"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.opts...)
			srv.backend.States["Lesson.pdf"] = []models.FileState{models.FileStateProcessing, models.FileStateFailed}

			rec := postQuiz(t, srv.router, &formFile{"lesson.pdf", "lesson"}, map[string]string{"num_questions": "5"})

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
			assert.Empty(t, srv.backend.Chats())
		})
	}
}

func TestGenerateQuizMissingLessonDoesNotCrash(t *testing.T) {
	tests := []struct {
		name   string
		opts   []serverOption
		status int
	}{
		{name: "error kinds", status: http.StatusBadRequest},
		{name: "legacy", opts: []serverOption{legacyErrors()}, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.opts...)

			rec := postQuiz(t, srv.router, nil, map[string]string{"num_questions": "5"})
			assert.Equal(t, tt.status, rec.Code)
			assert.Empty(t, srv.backend.Uploads())

			// the server keeps serving
			rec = postQuiz(t, srv.router, &formFile{"lesson.pdf", "lesson"}, map[string]string{"num_questions": "5"})
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestGenerateQuizValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := postQuiz(t, srv.router, &formFile{"lesson.pdf", "lesson"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postQuiz(t, srv.router, &formFile{"lesson.pdf", ""}, map[string]string{"num_questions": "5"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/generate_quiz", bytes.NewBufferString(`{"num_questions":5}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, quiz.KindValidation.Message(), rec.Body.String())

	assert.Empty(t, srv.backend.Uploads())
}

func TestGenerateQuizRejectsOversizedUpload(t *testing.T) {
	srv := newTestServer(t)

	big := bytes.Repeat([]byte("a"), 2<<20)
	rec := postQuiz(t, srv.router, &formFile{"lesson.pdf", string(big)}, map[string]string{"num_questions": "5"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, srv.backend.Uploads())
}

func TestSequentialRequestsReflectOwnLesson(t *testing.T) {
	srv := newTestServer(t)
	srv.backend.Reply = func(history []models.Turn, message string) (string, error) {
		lesson := history[0].Files[1]
		return string(srv.backend.Content(lesson.Name)) + "," + message + "\n", nil
	}

	first := postQuiz(t, srv.router, &formFile{"a.pdf", "mitosis"}, map[string]string{"num_questions": "5"})
	second := postQuiz(t, srv.router, &formFile{"b.pdf", "meiosis"}, map[string]string{"num_questions": "8"})

	assert.Equal(t, "mitosis,5 questions\n", first.Body.String())
	assert.Equal(t, "meiosis,8 questions\n", second.Body.String())
}

type fakeLister struct {
	items []models.Generation
	err   error
	limit int
}

func (f *fakeLister) ListGenerations(_ context.Context, limit int) ([]models.Generation, error) {
	f.limit = limit
	return f.items, f.err
}

func TestListGenerations(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/generations", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var errBody models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
	assert.Equal(t, "generation history is not enabled", errBody.Error)

	lister := &fakeLister{items: []models.Generation{{
		ID:           uuid.New(),
		RequestID:    "req-1",
		LessonName:   "lesson.pdf",
		NumQuestions: "5",
		Status:       models.GenerationSucceeded,
		CSVBytes:     120,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}}
	srv = newTestServer(t, withHistory(lister))

	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/generations?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, lister.limit)

	var body struct {
		Generations []models.Generation `json:"generations"`
		Total       int                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, "req-1", body.Generations[0].RequestID)

	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/generations?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
	assert.Equal(t, "limit must be a positive integer", errBody.Error)

	lister.err = errors.New("connection refused")
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/generations", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestCORS(t *testing.T) {
	backend := geminitest.NewBackend()
	handler := &handlers.Handler{Generator: quiz.NewService(gemini.NewStager(backend), gemini.NewRequester(backend), quiz.Options{})}
	router := api.NewRouter(handler, "http://localhost:5173/")

	req := httptest.NewRequest(http.MethodOptions, "/generate_quiz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
