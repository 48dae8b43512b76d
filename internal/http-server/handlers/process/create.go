package process

import (
	"log/slog"
	"net/http"

	"GreenBot/entity"
	"GreenBot/internal/http-server/handlers/errors"
	"GreenBot/internal/lib/api/cont"
	"GreenBot/internal/lib/api/response"
	"GreenBot/internal/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.process"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var header entity.ProcessHeader
		if err := render.Bind(r, &header); err != nil {
			logger.Debug("bad create request", sl.Err(err))
			errors.BadRequest(w, r, err.Error())
			return
		}

		process, err := handler.CreateProcess(r.Context(), header)
		if err != nil {
			logger.Error("failed to create process", sl.Err(err))
			errors.Render(w, r, err)
			return
		}

		if user := cont.GetUser(r.Context()); user != nil {
			logger = logger.With(slog.String("user", user.Username))
		}
		logger.Info("process created", slog.String("process_id", process.ID))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(process))
	}
}

func Delete(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := log.With(
			sl.Module("http.handlers.process"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("process_id", id),
		)

		if err := handler.DeleteProcess(r.Context(), id); err != nil {
			logger.Error("failed to delete process", sl.Err(err))
			errors.Render(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok("Process deleted"))
	}
}
