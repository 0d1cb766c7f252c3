package gemini

import (
	"context"
	"errors"
	"fmt"

	"quizify/internal/config"
	"quizify/internal/models"
)

// PrimingReply is the model turn placed after the staged files.
const PrimingReply = "[NUMBER OF QUESTIONS]\n"

var ErrEmptyResponse = errors.New("model returned an empty response")

// Requester asks the model for a quiz over two staged files.
type Requester struct {
	backend Backend
}

func NewRequester(backend Backend) *Requester {
	return &Requester{backend: backend}
}

// RequestQuiz opens a chat whose first turn holds the template and lesson
// files and whose second turn is PrimingReply, then sends the question count.
// The reply is returned as-is. numQuestions is not range checked.
func (r *Requester) RequestQuiz(ctx context.Context, template, lesson *models.UploadedFile, numQuestions string) (string, error) {
	for _, f := range []*models.UploadedFile{template, lesson} {
		if f == nil {
			return "", errors.New("both template and lesson files are required")
		}
		if f.State != models.FileStateActive {
			return "", fmt.Errorf("file %s is not active (state %s)", f.Name, f.State)
		}
	}

	session := r.backend.StartChat([]models.Turn{
		{Role: models.RoleUser, Files: []*models.UploadedFile{template, lesson}},
		{Role: models.RoleModel, Text: PrimingReply},
	})

	text, err := session.SendMessage(ctx, fmt.Sprintf("%s questions", numQuestions))
	if err != nil {
		return "", fmt.Errorf("failed to generate quiz: %w", err)
	}
	if text == "" {
		return "", ErrEmptyResponse
	}

	config.WithContext(ctx).WithField("bytes", len(text)).Info("quiz generated")
	return text, nil
}
