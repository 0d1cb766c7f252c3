package quiz

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"quizify/internal/gemini"
)

// Kind classifies a generation failure for the caller.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindUpstreamTimeout Kind = "upstream_timeout"
	KindUpstreamFailure Kind = "upstream_failure"
	KindInternal        Kind = "internal"
)

// StatusCode maps a kind to its HTTP status.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message is the text shown to clients in place of the raw error.
func (k Kind) Message() string {
	switch k {
	case KindValidation:
		return "invalid request: a lesson file (lesson_pdf) and a question count (num_questions) are required"
	case KindUpstreamTimeout:
		return "the AI service did not finish processing the uploaded files in time"
	case KindUpstreamFailure:
		return "the AI service failed to generate the quiz"
	default:
		return "internal server error"
	}
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

func Internal(op string, err error) error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// upstream classifies an error returned by the remote service.
func upstream(op string, err error) error {
	kind := KindUpstreamFailure
	switch {
	case errors.Is(err, gemini.ErrPollTimeout), errors.Is(err, context.DeadlineExceeded):
		kind = KindUpstreamTimeout
	case errors.Is(err, context.Canceled):
		kind = KindInternal
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind carried by err, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
