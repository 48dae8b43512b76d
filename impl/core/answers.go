package core

import (
	"context"
	"fmt"
	"io"

	"GreenBot/entity"
	"GreenBot/internal/lib/fileurl"
)

// GetAnswers returns the recorded answers of a process. File answers
// carry a signed, expiring download link when signing is configured.
func (c *Core) GetAnswers(ctx context.Context, processID, chatID string) ([]entity.Answer, error) {
	if _, err := c.GetProcess(ctx, processID); err != nil {
		return nil, err
	}
	answers, err := c.repo.GetAnswers(ctx, processID, chatID)
	if err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}
	if answers == nil {
		answers = []entity.Answer{}
	}
	if c.fileSecret == "" {
		return answers, nil
	}
	for i := range answers {
		if id, ok := answers[i].FileRef(); ok {
			answers[i].FileURL = fileurl.SignURL(id, c.fileSecret, c.fileTTL)
		}
	}
	return answers, nil
}

// VerifyFileURL checks the signature of a download link.
func (c *Core) VerifyFileURL(fileID, expires, sig string) bool {
	if c.fileSecret == "" {
		return false
	}
	return fileurl.Verify(fileID, expires, sig, c.fileSecret)
}

// DownloadFile opens an archived answer file. The caller closes the reader.
func (c *Core) DownloadFile(ctx context.Context, fileID string) (string, string, io.ReadCloser, error) {
	if c.files == nil {
		return "", "", nil, fmt.Errorf("file storage not set")
	}
	name, meta, reader, err := c.files.DownloadFile(ctx, fileID)
	if err != nil {
		return "", "", nil, err
	}
	return name, meta.MIMEType, reader, nil
}
