package process

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"GreenBot/internal/http-server/handlers/errors"
	"GreenBot/internal/lib/api/response"
	"GreenBot/internal/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// EditHeader patches title, description and image_url. Absent keys are
// left as they are; an empty string clears description and image_url.
func EditHeader(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := log.With(
			sl.Module("http.handlers.process"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("process_id", id),
		)

		var fields map[string]string
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			logger.Debug("failed to decode request body", sl.Err(err))
			errors.BadRequest(w, r, "Invalid request body")
			return
		}

		process, err := handler.EditHeader(r.Context(), id, fields)
		if err != nil {
			logger.Error("failed to edit header", sl.Err(err))
			errors.Render(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(process))
	}
}
