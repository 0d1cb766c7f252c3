// Package geminitest provides an in-memory gemini.Backend with scripted file
// states and replies.
package geminitest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"quizify/internal/gemini"
	"quizify/internal/models"
)

// Chat records one chat opened on the backend.
type Chat struct {
	History  []models.Turn
	Messages []string
}

// Backend scripts the remote service. States maps a file's base name to the
// states returned by successive GetFile calls; the last state repeats. Files
// without a script are ACTIVE.
type Backend struct {
	States    map[string][]models.FileState
	Reply     func(history []models.Turn, message string) (string, error)
	UploadErr error
	DeleteErr error

	mu       sync.Mutex
	seq      int
	files    map[string]*models.UploadedFile
	contents map[string][]byte
	getCalls map[string]int
	uploads  []*models.UploadedFile
	deleted  []string
	chats    []*Chat
}

var _ gemini.Backend = (*Backend)(nil)

func NewBackend() *Backend {
	return &Backend{
		States:   map[string][]models.FileState{},
		files:    map[string]*models.UploadedFile{},
		contents: map[string][]byte{},
		getCalls: map[string]int{},
	}
}

// ReplyWith makes every chat answer text.
func (b *Backend) ReplyWith(text string) *Backend {
	b.Reply = func([]models.Turn, string) (string, error) { return text, nil }
	return b
}

func (b *Backend) UploadFile(_ context.Context, path, mimeType string) (*models.UploadedFile, error) {
	if b.UploadErr != nil {
		return nil, b.UploadErr
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	name := fmt.Sprintf("files/%d", b.seq)
	f := &models.UploadedFile{
		Name:        name,
		URI:         "https://generativelanguage.test/v1beta/" + name,
		DisplayName: filepath.Base(path),
		MIMEType:    mimeType,
		SizeBytes:   int64(len(data)),
		State:       models.FileStateProcessing,
	}
	b.files[name] = f
	b.contents[name] = data
	b.uploads = append(b.uploads, f)

	copied := *f
	return &copied, nil
}

func (b *Backend) GetFile(_ context.Context, name string) (*models.UploadedFile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.files[name]
	if !ok {
		return nil, fmt.Errorf("file %s not found", name)
	}

	state := models.FileStateActive
	if script := b.States[f.DisplayName]; len(script) > 0 {
		i := b.getCalls[name]
		if i >= len(script) {
			i = len(script) - 1
		}
		state = script[i]
	}
	b.getCalls[name]++

	copied := *f
	copied.State = state
	return &copied, nil
}

func (b *Backend) DeleteFile(_ context.Context, name string) error {
	if b.DeleteErr != nil {
		return b.DeleteErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, name)
	return nil
}

func (b *Backend) StartChat(history []models.Turn) gemini.ChatSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	chat := &Chat{History: history}
	b.chats = append(b.chats, chat)
	return &session{backend: b, chat: chat}
}

// Content returns the bytes uploaded under a remote name.
func (b *Backend) Content(name string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.contents[name]
}

func (b *Backend) GetCalls(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getCalls[name]
}

func (b *Backend) Uploads() []*models.UploadedFile {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*models.UploadedFile(nil), b.uploads...)
}

func (b *Backend) Deleted() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.deleted...)
}

func (b *Backend) Chats() []*Chat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Chat(nil), b.chats...)
}

type session struct {
	backend *Backend
	chat    *Chat
}

func (s *session) SendMessage(_ context.Context, text string) (string, error) {
	s.backend.mu.Lock()
	s.chat.Messages = append(s.chat.Messages, text)
	reply := s.backend.Reply
	s.backend.mu.Unlock()

	if reply == nil {
		return "", nil
	}
	return reply(s.chat.History, text)
}
