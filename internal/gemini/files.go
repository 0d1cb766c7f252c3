package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quizify/internal/config"
	"quizify/internal/models"
)

const (
	DefaultPollInterval    = 10 * time.Second
	DefaultMaxPollAttempts = 60
)

// ErrPollTimeout is returned when a file is still processing after the
// maximum number of status checks.
var ErrPollTimeout = errors.New("timed out waiting for file processing")

// FileProcessingError reports a file that settled on a state other than ACTIVE.
type FileProcessingError struct {
	Name        string
	DisplayName string
	State       models.FileState
}

func (e *FileProcessingError) Error() string {
	return fmt.Sprintf("file %s failed to process (state %s)", e.Name, e.State)
}

// ProgressReporter receives markers while the stager waits on remote files.
type ProgressReporter interface {
	Waiting(ctx context.Context, file *models.UploadedFile, attempt int)
	Settled(ctx context.Context, file *models.UploadedFile)
}

type logProgress struct{}

func (logProgress) Waiting(ctx context.Context, file *models.UploadedFile, attempt int) {
	config.WithContext(ctx).WithField("file", file.Name).WithField("attempt", attempt).Debug("file still processing")
}

func (logProgress) Settled(ctx context.Context, file *models.UploadedFile) {
	config.WithContext(ctx).WithField("file", file.Name).WithField("state", file.State).Info("file processing finished")
}

// Stager uploads files and waits for the service to finish processing them.
type Stager struct {
	backend     Backend
	interval    time.Duration
	maxAttempts int
	progress    ProgressReporter
	sleep       func(ctx context.Context, d time.Duration) error
}

type StagerOption func(*Stager)

func WithPollInterval(d time.Duration) StagerOption {
	return func(s *Stager) { s.interval = d }
}

func WithMaxAttempts(n int) StagerOption {
	return func(s *Stager) { s.maxAttempts = n }
}

func WithProgress(p ProgressReporter) StagerOption {
	return func(s *Stager) { s.progress = p }
}

func NewStager(backend Backend, opts ...StagerOption) *Stager {
	s := &Stager{
		backend:     backend,
		interval:    DefaultPollInterval,
		maxAttempts: DefaultMaxPollAttempts,
		progress:    logProgress{},
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload sends the file at path to the service.
func (s *Stager) Upload(ctx context.Context, path, mimeType string) (*models.UploadedFile, error) {
	file, err := s.backend.UploadFile(ctx, path, mimeType)
	if err != nil {
		return nil, err
	}
	config.WithContext(ctx).Infof("Uploaded file '%s' as: %s", file.DisplayName, file.URI)
	return file, nil
}

// WaitForActive blocks until every file has left PROCESSING and returns the
// settled handles in input order. Each file is re-checked every poll
// interval, at most maxAttempts times. A file already ACTIVE on the first
// check is not waited on.
func (s *Stager) WaitForActive(ctx context.Context, files ...*models.UploadedFile) ([]*models.UploadedFile, error) {
	log := config.WithContext(ctx)
	log.Info("Waiting for file processing...")

	settled := make([]*models.UploadedFile, 0, len(files))
	for _, f := range files {
		current, err := s.backend.GetFile(ctx, f.Name)
		if err != nil {
			return nil, err
		}

		attempt := 0
		for current.State == models.FileStateProcessing {
			attempt++
			if attempt > s.maxAttempts {
				return nil, fmt.Errorf("file %s still processing after %d checks: %w", f.Name, s.maxAttempts, ErrPollTimeout)
			}
			s.progress.Waiting(ctx, current, attempt)
			if err := s.sleep(ctx, s.interval); err != nil {
				return nil, err
			}
			if current, err = s.backend.GetFile(ctx, f.Name); err != nil {
				return nil, err
			}
		}

		s.progress.Settled(ctx, current)
		if current.State != models.FileStateActive {
			return nil, &FileProcessingError{
				Name:        current.Name,
				DisplayName: current.DisplayName,
				State:       current.State,
			}
		}
		settled = append(settled, current)
	}

	log.Info("...all files ready")
	return settled, nil
}

// Delete removes remote files. Failures are logged and otherwise ignored.
func (s *Stager) Delete(ctx context.Context, files ...*models.UploadedFile) {
	for _, f := range files {
		if f == nil {
			continue
		}
		if err := s.backend.DeleteFile(ctx, f.Name); err != nil {
			config.WithContext(ctx).WithError(err).Warnf("failed to delete remote file %s", f.Name)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
