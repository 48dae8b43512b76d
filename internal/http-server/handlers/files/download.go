package files

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"GreenBot/internal/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Download streams an archived answer file. The request is authorized by
// the signature of the link instead of an API key.
// Endpoint: GET /api/v1/files/{file_id}?expires=..&sig=..
func Download(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileID := chi.URLParam(r, "file_id")
		logger := log.With(
			sl.Module("http.handlers.files"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("file_id", fileID),
		)

		query := r.URL.Query()
		if !handler.VerifyFileURL(fileID, query.Get("expires"), query.Get("sig")) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		filename, mimeType, reader, err := handler.DownloadFile(r.Context(), fileID)
		if err != nil {
			logger.Error("failed to download file", sl.Err(err))
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		defer reader.Close()

		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", mimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, filename))

		if _, err = io.Copy(w, reader); err != nil {
			logger.Error("failed to stream file", sl.Err(err))
		}
	}
}
