package models

import (
	"time"

	"github.com/google/uuid"
)

// FileState is the processing state the remote service reports for an upload.
type FileState string

const (
	FileStateUnspecified FileState = "UNSPECIFIED"
	FileStateProcessing  FileState = "PROCESSING"
	FileStateActive      FileState = "ACTIVE"
	FileStateFailed      FileState = "FAILED"
)

// UploadedFile is a handle to a file accepted by the remote AI service.
// Only the service changes its state; we poll it.
type UploadedFile struct {
	Name        string    `json:"name"` // resource name, e.g. "files/abc123"
	URI         string    `json:"uri"`
	DisplayName string    `json:"display_name"`
	MIMEType    string    `json:"mime_type"`
	SizeBytes   int64     `json:"size_bytes"`
	State       FileState `json:"state"`
}

// Turn is one entry of a chat history. Files are sent before Text.
type Turn struct {
	Role  string
	Files []*UploadedFile
	Text  string
}

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// GenerationStatus is the outcome stored for a quiz request.
type GenerationStatus string

const (
	GenerationSucceeded GenerationStatus = "succeeded"
	GenerationFailed    GenerationStatus = "failed"
)

// Generation is one row of the quiz generation history.
type Generation struct {
	ID           uuid.UUID        `json:"id"`
	RequestID    string           `json:"request_id"`
	LessonName   string           `json:"lesson_name"`
	NumQuestions string           `json:"num_questions"`
	Status       GenerationStatus `json:"status"`
	ErrorKind    string           `json:"error_kind,omitempty"`
	CSVBytes     int              `json:"csv_bytes"`
	ArchiveURL   string           `json:"archive_url,omitempty"`
	DurationMS   int64            `json:"duration_ms"`
	CreatedAt    time.Time        `json:"created_at"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
