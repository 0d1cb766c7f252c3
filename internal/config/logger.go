package config

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

var Logger = logrus.New()

func InitLogger(level, format string) {
	Logger.SetOutput(os.Stdout)

	if format == "json" {
		Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)
}

// ContextWithRequestID stores the request id picked up by WithContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func WithContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(Logger)
	if ctx == nil {
		return entry
	}
	if id := RequestIDFromContext(ctx); id != "" {
		entry = entry.WithField("request_id", id)
	}
	return entry
}
