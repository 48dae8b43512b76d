package process

import (
	"context"
	"log/slog"
	"net/http"

	"GreenBot/entity"
	"GreenBot/internal/http-server/handlers/errors"
	"GreenBot/internal/lib/api/response"
	"GreenBot/internal/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func Publish(log *slog.Logger, handler Core) http.HandlerFunc {
	return transition(log, "publish", handler.PublishProcess)
}

func Archive(log *slog.Logger, handler Core) http.HandlerFunc {
	return transition(log, "archive", handler.ArchiveProcess)
}

func transition(log *slog.Logger, name string, apply func(ctx context.Context, id string) (*entity.Process, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := log.With(
			sl.Module("http.handlers.process"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("process_id", id),
			slog.String("transition", name),
		)

		process, err := apply(r.Context(), id)
		if err != nil {
			logger.Error("failed to change process status", sl.Err(err))
			errors.Render(w, r, err)
			return
		}

		logger.Debug("process status changed", slog.Bool("published", process.IsFinished))
		render.JSON(w, r, response.Ok(process))
	}
}
