package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/sirupsen/logrus"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Gemini.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "gemini.api_key",
			Message: "GEMINI_API_KEY is required",
		})
	}

	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "gemini.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.Gemini.TopP < 0 || c.Gemini.TopP > 1 {
		errors = append(errors, ValidationError{
			Field:   "gemini.top_p",
			Message: "top_p must be between 0 and 1",
		})
	}

	if c.Gemini.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "gemini.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.Gemini.MaxOutputTokens < 1 {
		errors = append(errors, ValidationError{
			Field:   "gemini.max_output_tokens",
			Message: "max_output_tokens must be positive",
		})
	}

	if c.Gemini.PollInterval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "gemini.poll_interval",
			Message: "poll_interval must be positive",
		})
	}

	if c.Gemini.MaxPollAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "gemini.max_poll_attempts",
			Message: "max_poll_attempts must be positive",
		})
	}

	if c.Server.MaxUploadBytes < 1 {
		errors = append(errors, ValidationError{
			Field:   "server.max_upload_bytes",
			Message: "max_upload_bytes must be positive",
		})
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown log level %q", c.Log.Level),
		})
	}

	if c.Archive.PublicURL != "" {
		if u, err := url.Parse(c.Archive.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "archive.public_url",
				Message: "invalid public URL",
			})
		}
	}

	return errors
}

// CheckTemplate fails when the preloaded CSV template is missing.
func (c *Config) CheckTemplate() error {
	info, err := os.Stat(c.Server.TemplatePath)
	if err != nil {
		return fmt.Errorf("preloaded template CSV not found at %s: %w", c.Server.TemplatePath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("preloaded template CSV path %s is a directory", c.Server.TemplatePath)
	}
	return nil
}
