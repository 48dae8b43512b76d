package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"

	logFile = "greenbot.log"
)

func SetupLogger(env, path string) *slog.Logger {
	var logger *slog.Logger

	switch env {
	case envLocal:
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		logger = slog.New(slog.NewJSONHandler(logWriter(path), &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		logger = slog.New(slog.NewJSONHandler(logWriter(path), &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return logger
}

func logWriter(path string) io.Writer {
	if path == "" {
		return os.Stdout
	}
	f, err := os.OpenFile(filepath.Join(path, logFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, f)
}

// Sender delivers a plain text line to an operator chat.
type Sender interface {
	SendMessage(msg string)
}

// TelegramHandler duplicates records at or above its level to an admin chat.
type TelegramHandler struct {
	next   slog.Handler
	sender Sender
	level  slog.Level
	attrs  []slog.Attr
}

func SetupTelegramHandler(log *slog.Logger, sender Sender, level slog.Level) *slog.Logger {
	return slog.New(&TelegramHandler{
		next:   log.Handler(),
		sender: sender,
		level:  level,
	})
}

func (h *TelegramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *TelegramHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level && r.Level >= slog.LevelError {
		var sb strings.Builder
		sb.WriteString(r.Level.String())
		sb.WriteString(": ")
		sb.WriteString(r.Message)
		for _, a := range h.attrs {
			sb.WriteString("\n" + a.Key + ": " + a.Value.String())
		}
		r.Attrs(func(a slog.Attr) bool {
			sb.WriteString("\n" + a.Key + ": " + a.Value.String())
			return true
		})
		go h.sender.SendMessage(sb.String())
	}
	return h.next.Handle(ctx, r)
}

func (h *TelegramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &TelegramHandler{
		next:   h.next.WithAttrs(attrs),
		sender: h.sender,
		level:  h.level,
		attrs:  merged,
	}
}

func (h *TelegramHandler) WithGroup(name string) slog.Handler {
	return &TelegramHandler{
		next:   h.next.WithGroup(name),
		sender: h.sender,
		level:  h.level,
		attrs:  h.attrs,
	}
}
