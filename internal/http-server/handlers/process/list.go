package process

import (
	"log/slog"
	"net/http"
	"strconv"

	"GreenBot/entity"
	"GreenBot/internal/http-server/handlers/errors"
	"GreenBot/internal/lib/api/response"
	"GreenBot/internal/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// List returns processes, optionally filtered by ?published=true|false and
// ?author=<chat id>.
func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.process"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var published *bool
		if raw := r.URL.Query().Get("published"); raw != "" {
			value, err := strconv.ParseBool(raw)
			if err != nil {
				errors.BadRequest(w, r, "published must be true or false")
				return
			}
			published = &value
		}

		processes, err := handler.ListProcesses(r.Context(), published, r.URL.Query().Get("author"))
		if err != nil {
			logger.Error("failed to list processes", sl.Err(err))
			errors.Render(w, r, err)
			return
		}
		if processes == nil {
			processes = []entity.Process{}
		}

		render.JSON(w, r, response.Ok(processes))
	}
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := log.With(
			sl.Module("http.handlers.process"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("process_id", id),
		)

		process, err := handler.GetProcess(r.Context(), id)
		if err != nil {
			logger.Debug("get process", sl.Err(err))
			errors.Render(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(process))
	}
}
