package quiz

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"quizify/internal/config"
	"quizify/internal/gemini"
	"quizify/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Request is one quiz generation request.
type Request struct {
	LessonName   string
	Lesson       io.Reader
	NumQuestions string
}

// Result holds the generated CSV exactly as the model returned it.
type Result struct {
	ID         uuid.UUID // server-generated; keys the archive and history row
	RequestID  string
	CSV        []byte
	ArchiveURL string
}

// Archiver stores a generated quiz under a server-generated id and returns
// its public URL.
type Archiver interface {
	UploadQuiz(ctx context.Context, id uuid.UUID, filename string, content io.Reader) (string, error)
}

// HistoryRecorder persists the outcome of each request.
type HistoryRecorder interface {
	RecordGeneration(ctx context.Context, g *models.Generation) error
}

type Options struct {
	TemplatePath  string
	WorkDir       string
	DeleteUploads bool
	Archive       Archiver        // optional
	History       HistoryRecorder // optional
}

// Service runs the stage-then-request workflow for one lesson at a time.
// It is safe for concurrent use; every request gets its own workspace.
type Service struct {
	stager    *gemini.Stager
	requester *gemini.Requester
	opts      Options
}

func NewService(stager *gemini.Stager, requester *gemini.Requester, opts Options) *Service {
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	return &Service{
		stager:    stager,
		requester: requester,
		opts:      opts,
	}
}

// Generate stages the template and the lesson, waits until both are active,
// asks the model for the quiz and returns its reply. Optional archiving and
// history recording never fail the request.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	id := uuid.New()
	requestID := config.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
		ctx = config.ContextWithRequestID(ctx, requestID)
	}
	log := config.WithContext(ctx).WithFields(logrus.Fields{
		"lesson":        req.LessonName,
		"num_questions": req.NumQuestions,
	})
	log.Info("generating quiz")

	result, err := s.generate(ctx, requestID, req)
	if err == nil {
		result.ID = id
		result.ArchiveURL = s.archive(ctx, id, result.CSV)
	}

	s.record(ctx, id, requestID, req, result, err, time.Since(start))

	if err != nil {
		log.WithError(err).WithField("error_kind", KindOf(err)).Error("quiz generation failed")
		return nil, err
	}
	log.WithField("duration", time.Since(start)).Info("quiz generation finished")
	return result, nil
}

func (s *Service) generate(ctx context.Context, requestID string, req Request) (*Result, error) {
	if req.Lesson == nil {
		return nil, Validation("read form", errors.New("lesson_pdf is required"))
	}
	if strings.TrimSpace(req.NumQuestions) == "" {
		return nil, Validation("read form", errors.New("num_questions is required"))
	}

	ws, err := newWorkspace(s.opts.WorkDir)
	if err != nil {
		return nil, Internal("create workspace", err)
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			config.WithContext(ctx).WithError(err).Warn("failed to remove workspace")
		}
	}()

	lessonPath, err := ws.SaveLesson(req.LessonName, req.Lesson)
	if err != nil {
		var qerr *Error
		if errors.As(err, &qerr) {
			return nil, err
		}
		return nil, Internal("save lesson", err)
	}

	var uploaded []*models.UploadedFile
	if s.opts.DeleteUploads {
		defer func() {
			s.stager.Delete(context.WithoutCancel(ctx), uploaded...)
		}()
	}

	template, err := s.stager.Upload(ctx, s.opts.TemplatePath, "text/csv")
	if err != nil {
		return nil, upstream("upload template", err)
	}
	uploaded = append(uploaded, template)

	lesson, err := s.stager.Upload(ctx, lessonPath, gemini.MIMETypeFor(lessonPath))
	if err != nil {
		return nil, upstream("upload lesson", err)
	}
	uploaded = append(uploaded, lesson)

	ready, err := s.stager.WaitForActive(ctx, template, lesson)
	if err != nil {
		return nil, upstream("wait for files", err)
	}

	text, err := s.requester.RequestQuiz(ctx, ready[0], ready[1], strings.TrimSpace(req.NumQuestions))
	if err != nil {
		return nil, upstream("request quiz", err)
	}

	quizPath, err := ws.WriteQuiz(text)
	if err != nil {
		return nil, Internal("write quiz", err)
	}
	data, err := os.ReadFile(quizPath)
	if err != nil {
		return nil, Internal("read quiz", err)
	}

	return &Result{RequestID: requestID, CSV: data}, nil
}

func (s *Service) archive(ctx context.Context, id uuid.UUID, csv []byte) string {
	if s.opts.Archive == nil {
		return ""
	}
	url, err := s.opts.Archive.UploadQuiz(ctx, id, quizFileName, bytes.NewReader(csv))
	if err != nil {
		config.WithContext(ctx).WithError(err).Warn("failed to archive quiz")
		return ""
	}
	return url
}

func (s *Service) record(ctx context.Context, id uuid.UUID, requestID string, req Request, result *Result, genErr error, elapsed time.Duration) {
	if s.opts.History == nil {
		return
	}

	g := &models.Generation{
		ID:           id,
		RequestID:    requestID,
		LessonName:   req.LessonName,
		NumQuestions: req.NumQuestions,
		Status:       models.GenerationSucceeded,
		DurationMS:   elapsed.Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}
	if genErr != nil {
		g.Status = models.GenerationFailed
		g.ErrorKind = string(KindOf(genErr))
	}
	if result != nil {
		g.CSVBytes = len(result.CSV)
		g.ArchiveURL = result.ArchiveURL
	}

	if err := s.opts.History.RecordGeneration(context.WithoutCancel(ctx), g); err != nil {
		config.WithContext(ctx).WithError(err).Warn("failed to record generation")
	}
}
