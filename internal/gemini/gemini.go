package gemini

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quizify/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Backend is the part of the remote AI service the stager and requester use.
type Backend interface {
	UploadFile(ctx context.Context, path, mimeType string) (*models.UploadedFile, error)
	GetFile(ctx context.Context, name string) (*models.UploadedFile, error)
	DeleteFile(ctx context.Context, name string) error
	StartChat(history []models.Turn) ChatSession
}

// ChatSession is a conversation seeded with a history. It is owned by a
// single request.
type ChatSession interface {
	SendMessage(ctx context.Context, text string) (string, error)
}

// ModelConfig holds the static generation settings of the shared model.
type ModelConfig struct {
	Name              string
	Temperature       float32
	TopP              float32
	TopK              int32
	MaxOutputTokens   int32
	ResponseMIMEType  string
	SystemInstruction string
}

// Client wraps the Gemini client
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewClient creates a Gemini client and configures the model once. The model
// is not modified afterwards so it can be shared across requests.
func NewClient(ctx context.Context, apiKey string, mc ModelConfig) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(mc.Name)
	model.SetTemperature(mc.Temperature)
	model.SetTopP(mc.TopP)
	model.SetTopK(mc.TopK)
	model.SetMaxOutputTokens(mc.MaxOutputTokens)
	model.ResponseMIMEType = mc.ResponseMIMEType
	if mc.SystemInstruction != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(mc.SystemInstruction))
	}

	return &Client{
		client: client,
		model:  model,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() {
	c.client.Close()
}

// UploadFile uploads a local file through the File API. An empty mimeType
// lets the service detect it.
func (c *Client) UploadFile(ctx context.Context, path, mimeType string) (*models.UploadedFile, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access file %s: %w", path, err)
	}
	if fileInfo.Size() == 0 {
		return nil, fmt.Errorf("file %s is empty", path)
	}

	file, err := c.client.UploadFileFromPath(ctx, path, &genai.UploadFileOptions{
		DisplayName: filepath.Base(path),
		MIMEType:    mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file %s: %w", path, err)
	}
	return fromGenaiFile(file), nil
}

func (c *Client) GetFile(ctx context.Context, name string) (*models.UploadedFile, error) {
	file, err := c.client.GetFile(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", name, err)
	}
	return fromGenaiFile(file), nil
}

func (c *Client) DeleteFile(ctx context.Context, name string) error {
	if err := c.client.DeleteFile(ctx, name); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", name, err)
	}
	return nil
}

// StartChat opens a chat on the shared model seeded with history.
func (c *Client) StartChat(history []models.Turn) ChatSession {
	cs := c.model.StartChat()
	for _, turn := range history {
		cs.History = append(cs.History, toContent(turn))
	}
	return &chatSession{cs: cs}
}

type chatSession struct {
	cs *genai.ChatSession
}

func (s *chatSession) SendMessage(ctx context.Context, text string) (string, error) {
	resp, err := s.cs.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

func toContent(turn models.Turn) *genai.Content {
	parts := make([]genai.Part, 0, len(turn.Files)+1)
	for _, f := range turn.Files {
		parts = append(parts, genai.FileData{MIMEType: f.MIMEType, URI: f.URI})
	}
	if turn.Text != "" {
		parts = append(parts, genai.Text(turn.Text))
	}
	return &genai.Content{Role: turn.Role, Parts: parts}
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

func fromGenaiFile(f *genai.File) *models.UploadedFile {
	return &models.UploadedFile{
		Name:        f.Name,
		URI:         f.URI,
		DisplayName: f.DisplayName,
		MIMEType:    f.MIMEType,
		SizeBytes:   f.SizeBytes,
		State:       fromGenaiState(f.State),
	}
}

func fromGenaiState(s genai.FileState) models.FileState {
	switch s {
	case genai.FileStateProcessing:
		return models.FileStateProcessing
	case genai.FileStateActive:
		return models.FileStateActive
	case genai.FileStateFailed:
		return models.FileStateFailed
	default:
		return models.FileStateUnspecified
	}
}

// MIMETypeFor returns the MIME type sent for a lesson file. Unknown
// extensions are sent as PDF, the format the upload form asks for.
func MIMETypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".csv":
		return "text/csv"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/pdf"
	}
}
