package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizify/internal/api"
	"quizify/internal/api/handlers"
	"quizify/internal/config"
	"quizify/internal/db"
	"quizify/internal/gemini"
	"quizify/internal/quiz"
	"quizify/internal/r2"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		config.Logger.Fatalf("Error loading .env file: %v", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		config.Logger.Fatalf("Failed to load config: %v", err)
	}
	config.InitLogger(cfg.Log.Level, cfg.Log.Format)
	log := config.Logger

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Errorf("invalid config: %v", e)
		}
		log.Fatal("configuration is invalid")
	}
	if err := cfg.CheckTemplate(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	geminiClient, err := gemini.NewClient(ctx, cfg.Gemini.APIKey, gemini.ModelConfig{
		Name:              cfg.Gemini.Model,
		Temperature:       cfg.Gemini.Temperature,
		TopP:              cfg.Gemini.TopP,
		TopK:              cfg.Gemini.TopK,
		MaxOutputTokens:   cfg.Gemini.MaxOutputTokens,
		ResponseMIMEType:  cfg.Gemini.ResponseMIMEType,
		SystemInstruction: cfg.Gemini.SystemInstruction,
	})
	if err != nil {
		log.Fatalf("Failed to initialize Gemini client: %v", err)
	}
	defer geminiClient.Close()

	opts := quiz.Options{
		TemplatePath:  cfg.Server.TemplatePath,
		WorkDir:       cfg.Server.WorkDir,
		DeleteUploads: cfg.ShouldDeleteUploads(),
	}

	var history handlers.GenerationLister
	if cfg.Database.URL != "" {
		database, err := db.NewDB(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		opts.History = database.Queries
		history = database.Queries
		log.Info("Generation history enabled")
	} else {
		log.Warn("DATABASE_URL not set. Generation history is disabled.")
	}

	archive, err := r2.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize R2 client: %v", err)
	}
	if archive != nil {
		opts.Archive = archive
	}

	stager := gemini.NewStager(geminiClient,
		gemini.WithPollInterval(cfg.Gemini.PollInterval),
		gemini.WithMaxAttempts(cfg.Gemini.MaxPollAttempts),
	)
	service := quiz.NewService(stager, gemini.NewRequester(geminiClient), opts)

	if cfg.Log.Level != "debug" && cfg.Log.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := handlers.NewHandler(service, history, cfg)
	router := api.NewRouter(handler, cfg.Server.FrontendURL)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Infof("Server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited properly")
}
