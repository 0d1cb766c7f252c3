package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSystemInstruction tells the model how to turn the lesson and the
// CSV template into a Brightspace question import file.
const DefaultSystemInstruction = `You are a Brightspace Quiz Generator. Create a comprehensive quiz CSV file based on the user's specified topic. Follow these precise instructions:
- Quiz Generation Requirements:
    - Use the provided CSV template exactly
    - Only do Multiple Choice (MC) and True/False (TF) Questions!
    - Generate unique question IDs in format {CourseCode}{QuestionNumber}
    - Include elements like hints and feedback
    - Generate 5-20 questions per quiz
    - Vary question difficulty (1-7 scale)
    - Assign appropriate point values
    - Create realistic, contextually relevant answer options
    - Ensure at least 2 different question types per quiz
    - Use proper grammar when generating questions and answers with proper english
    - Make the questions clear and easy to understand
    - Ensure that the questions are different from each other
    - Ensure that the questions are not too long
    - Ensure you give proper choices for answers
    - Make the answers clear and easy to understand
- CSV Formatting:
    - Strictly follow the column structure in the sample template
    - Use CSV UTF-8 encoding
    - Randomize correct answer positions
    - Use the lesson PDF to create the quiz.`

// Config is loaded once at process start and passed explicitly to the
// components that need it.
type Config struct {
	Server struct {
		Port           string `yaml:"port"`
		FrontendURL    string `yaml:"frontend_url"`
		WorkDir        string `yaml:"work_dir"`
		TemplatePath   string `yaml:"template_path"`
		MaxUploadBytes int64  `yaml:"max_upload_bytes"`
		LegacyErrors   bool   `yaml:"legacy_errors"`
	} `yaml:"server"`

	Gemini struct {
		APIKey            string        `yaml:"api_key"`
		Model             string        `yaml:"model"`
		Temperature       float32       `yaml:"temperature"`
		TopP              float32       `yaml:"top_p"`
		TopK              int32         `yaml:"top_k"`
		MaxOutputTokens   int32         `yaml:"max_output_tokens"`
		ResponseMIMEType  string        `yaml:"response_mime_type"`
		SystemInstruction string        `yaml:"system_instruction"`
		PollInterval      time.Duration `yaml:"poll_interval"`
		MaxPollAttempts   int           `yaml:"max_poll_attempts"`
		DeleteUploads     *bool         `yaml:"delete_uploads"`
	} `yaml:"gemini"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Archive struct {
		AccountID       string `yaml:"account_id"`
		Bucket          string `yaml:"bucket"`
		AccessKeyID     string `yaml:"access_key_id"`
		SecretAccessKey string `yaml:"secret_access_key"`
		PublicURL       string `yaml:"public_url"`
	} `yaml:"archive"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// LoadConfig reads the YAML file at path. An empty path tries the default
// locations and falls back to built-in defaults when none exists. Environment
// variables always win over file values.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		for _, loc := range []string{"config.yaml", "config.yml", "/etc/quizify/config.yaml"} {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	config := newConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	mergeWithEnv(config)
	applyDefaults(config)

	return config, nil
}

// ShouldDeleteUploads reports whether remote files are removed after use.
func (c *Config) ShouldDeleteUploads() bool {
	return c.Gemini.DeleteUploads == nil || *c.Gemini.DeleteUploads
}

// ArchiveEnabled reports whether every archive field is set.
func (c *Config) ArchiveEnabled() bool {
	a := c.Archive
	return a.AccountID != "" && a.Bucket != "" && a.AccessKeyID != "" && a.SecretAccessKey != "" && a.PublicURL != ""
}

const (
	DefaultTemperature float32 = 1
	DefaultTopP        float32 = 0.95
)

// newConfig seeds the fields where zero is a valid setting, so a file value
// of 0 is kept instead of being mistaken for "unset" by applyDefaults.
func newConfig() *Config {
	config := &Config{}
	config.Gemini.Temperature = DefaultTemperature
	config.Gemini.TopP = DefaultTopP
	return config
}

func applyDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.WorkDir == "" {
		config.Server.WorkDir = os.TempDir()
	}
	if config.Server.TemplatePath == "" {
		config.Server.TemplatePath = "Sample_Question_Import_UTF8.csv"
	}
	if config.Server.MaxUploadBytes == 0 {
		config.Server.MaxUploadBytes = 32 << 20
	}

	if config.Gemini.Model == "" {
		config.Gemini.Model = "gemini-2.0-flash-exp"
	}
	if config.Gemini.TopK == 0 {
		config.Gemini.TopK = 40
	}
	if config.Gemini.MaxOutputTokens == 0 {
		config.Gemini.MaxOutputTokens = 8192
	}
	if config.Gemini.ResponseMIMEType == "" {
		config.Gemini.ResponseMIMEType = "text/plain"
	}
	if config.Gemini.SystemInstruction == "" {
		config.Gemini.SystemInstruction = DefaultSystemInstruction
	}
	if config.Gemini.PollInterval == 0 {
		config.Gemini.PollInterval = 10 * time.Second
	}
	if config.Gemini.MaxPollAttempts == 0 {
		config.Gemini.MaxPollAttempts = 60
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

func mergeWithEnv(config *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&config.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&config.Gemini.Model, "QUIZIFY_MODEL")
	setString(&config.Server.TemplatePath, "QUIZIFY_TEMPLATE_PATH")
	setString(&config.Server.Port, "PORT")
	setString(&config.Server.FrontendURL, "FRONTEND_URL")
	setString(&config.Database.URL, "DATABASE_URL")
	setString(&config.Log.Level, "LOG_LEVEL")
	setString(&config.Archive.AccountID, "CLOUDFLARE_ACCOUNT_ID")
	setString(&config.Archive.Bucket, "R2_BUCKET_NAME")
	setString(&config.Archive.AccessKeyID, "R2_ACCESS_KEY_ID")
	setString(&config.Archive.SecretAccessKey, "R2_SECRET_ACCESS_KEY")
	setString(&config.Archive.PublicURL, "R2_PUBLIC_URL")

	if v := os.Getenv("QUIZIFY_LEGACY_ERRORS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Server.LegacyErrors = b
		}
	}
}
