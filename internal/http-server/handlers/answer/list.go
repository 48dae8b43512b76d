package answer

import (
	"log/slog"
	"net/http"

	"GreenBot/internal/http-server/handlers/errors"
	"GreenBot/internal/lib/api/response"
	"GreenBot/internal/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// List returns the answers of a process, all chats or ?chat_id=<id>.
func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		chatID := r.URL.Query().Get("chat_id")
		logger := log.With(
			sl.Module("http.handlers.answer"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("process_id", id),
			slog.String("chat_id", chatID),
		)

		answers, err := handler.GetAnswers(r.Context(), id, chatID)
		if err != nil {
			logger.Error("failed to get answers", sl.Err(err))
			errors.Render(w, r, err)
			return
		}

		logger.Debug("answers listed", slog.Int("count", len(answers)))
		render.JSON(w, r, response.Ok(answers))
	}
}
