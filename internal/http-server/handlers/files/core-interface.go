package files

import (
	"context"
	"io"
)

type Core interface {
	VerifyFileURL(fileID, expires, sig string) bool
	DownloadFile(ctx context.Context, fileID string) (string, string, io.ReadCloser, error)
}
