// Command quizctl generates a quiz CSV for a lesson file on disk, using the
// same staging and chat flow as the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"quizify/internal/config"
	"quizify/internal/gemini"
	"quizify/internal/models"
	"quizify/internal/quiz"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
)

var (
	success = color.New(color.FgGreen, color.Bold)
	failure = color.New(color.FgRed, color.Bold)
	info    = color.New(color.FgCyan)
)

// spinnerProgress shows a spinner per file while it is processing.
type spinnerProgress struct {
	bars map[string]*progressbar.ProgressBar
}

func newSpinnerProgress() *spinnerProgress {
	return &spinnerProgress{bars: map[string]*progressbar.ProgressBar{}}
}

func (p *spinnerProgress) Waiting(_ context.Context, file *models.UploadedFile, _ int) {
	bar, ok := p.bars[file.Name]
	if !ok {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(fmt.Sprintf("processing %s", file.DisplayName)),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		)
		p.bars[file.Name] = bar
	}
	_ = bar.Add(1)
}

func (p *spinnerProgress) Settled(_ context.Context, file *models.UploadedFile) {
	if bar, ok := p.bars[file.Name]; ok {
		_ = bar.Finish()
		delete(p.bars, file.Name)
	}
	info.Fprintf(os.Stderr, "%s is %s\n", file.DisplayName, file.State)
}

func main() {
	lessonPath := flag.String("lesson", "", "lesson file to build the quiz from (required)")
	numQuestions := flag.String("n", "10", "number of questions to ask for")
	output := flag.String("o", "quiz.csv", "where to write the generated CSV")
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	if *lessonPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*configPath, *lessonPath, *numQuestions, *output); err != nil {
		failure.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, lessonPath, numQuestions, output string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error loading .env file: %w", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	config.InitLogger("warn", cfg.Log.Format)

	if errs := cfg.Validate(); len(errs) > 0 {
		return errs[0]
	}
	if err := cfg.CheckTemplate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := gemini.NewClient(ctx, cfg.Gemini.APIKey, gemini.ModelConfig{
		Name:              cfg.Gemini.Model,
		Temperature:       cfg.Gemini.Temperature,
		TopP:              cfg.Gemini.TopP,
		TopK:              cfg.Gemini.TopK,
		MaxOutputTokens:   cfg.Gemini.MaxOutputTokens,
		ResponseMIMEType:  cfg.Gemini.ResponseMIMEType,
		SystemInstruction: cfg.Gemini.SystemInstruction,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	stager := gemini.NewStager(client,
		gemini.WithPollInterval(cfg.Gemini.PollInterval),
		gemini.WithMaxAttempts(cfg.Gemini.MaxPollAttempts),
		gemini.WithProgress(newSpinnerProgress()),
	)
	service := quiz.NewService(stager, gemini.NewRequester(client), quiz.Options{
		TemplatePath:  cfg.Server.TemplatePath,
		WorkDir:       cfg.Server.WorkDir,
		DeleteUploads: cfg.ShouldDeleteUploads(),
	})

	lesson, err := os.Open(lessonPath)
	if err != nil {
		return err
	}
	defer lesson.Close()

	info.Fprintf(os.Stderr, "Generating %s questions from %s with %s\n", numQuestions, filepath.Base(lessonPath), cfg.Gemini.Model)
	result, err := service.Generate(ctx, quiz.Request{
		LessonName:   filepath.Base(lessonPath),
		Lesson:       lesson,
		NumQuestions: numQuestions,
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, result.CSV, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	success.Fprintf(os.Stderr, "Wrote %d bytes to %s\n", len(result.CSV), output)
	return nil
}
