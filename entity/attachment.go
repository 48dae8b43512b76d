package entity

import (
	"errors"
	"fmt"
)

// MaxFileSize is the maximum size of a file accepted as a step answer (20 MB,
// the Telegram bot download limit).
const MaxFileSize = 20 << 20

// FileRefPrefix marks answer values that point to an archived file.
const FileRefPrefix = "gridfs:"

// ErrFileTooLarge is returned when an uploaded file exceeds MaxFileSize.
var ErrFileTooLarge = errors.New("file too large")

// FileTooLargeError wraps ErrFileTooLarge with details about the offending file.
func FileTooLargeError(filename string, size int64) error {
	return fmt.Errorf("%w: %q is %d bytes, limit is %d MB", ErrFileTooLarge, filename, size, MaxFileSize>>20)
}

// FileMetadata holds GridFS metadata for a file uploaded as an answer.
type FileMetadata struct {
	MIMEType  string `bson:"mime_type"`
	ProcessID string `bson:"process_id"`
	ChatID    string `bson:"chat_id"`
	StepID    string `bson:"step_id"`
}
