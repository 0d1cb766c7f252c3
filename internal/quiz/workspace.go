package quiz

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	lessonBaseName = "Lesson"
	quizFileName   = "quiz.csv"
)

// workspace is a private directory holding one request's lesson and quiz.
type workspace struct {
	dir string
}

func newWorkspace(root string) (*workspace, error) {
	dir := filepath.Join(root, "quizify-"+uuid.New().String())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &workspace{dir: dir}, nil
}

// SaveLesson copies the uploaded lesson to Lesson<ext>, keeping the
// extension of the client's file name (".pdf" when there is none).
func (w *workspace) SaveLesson(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".pdf"
	}
	path := filepath.Join(w.dir, lessonBaseName+ext)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create lesson file: %w", err)
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to save lesson file: %w", err)
	}
	if n == 0 {
		return "", Validation("save lesson", fmt.Errorf("lesson file %q is empty", filename))
	}
	return path, nil
}

// WriteQuiz writes the model's reply verbatim and returns the path.
func (w *workspace) WriteQuiz(text string) (string, error) {
	path := filepath.Join(w.dir, quizFileName)
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return "", fmt.Errorf("failed to write quiz file: %w", err)
	}
	return path, nil
}

func (w *workspace) Remove() error {
	return os.RemoveAll(w.dir)
}
