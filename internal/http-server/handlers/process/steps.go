package process

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"GreenBot/bot/greenbot"
	"GreenBot/entity"
	"GreenBot/internal/http-server/handlers/errors"
	"GreenBot/internal/lib/api/response"
	"GreenBot/internal/lib/sl"
	"GreenBot/internal/lib/validate"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type InsertRequest struct {
	Index    int         `json:"index" validate:"min=0"`
	Position string      `json:"position" validate:"omitempty,oneof=before after"`
	Step     entity.Step `json:"step"`
}

func (i *InsertRequest) Bind(_ *http.Request) error {
	return validate.Struct(i)
}

func AppendStep(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := log.With(
			sl.Module("http.handlers.process"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("process_id", id),
		)

		var step entity.Step
		if err := render.Bind(r, &step); err != nil {
			logger.Debug("bad step", sl.Err(err))
			errors.BadRequest(w, r, err.Error())
			return
		}

		added, err := handler.AppendStep(r.Context(), id, step)
		if err != nil {
			logger.Error("failed to append step", sl.Err(err))
			errors.Render(w, r, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(added))
	}
}

func InsertStep(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := log.With(
			sl.Module("http.handlers.process"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("process_id", id),
		)

		var req InsertRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Debug("bad insert request", sl.Err(err))
			errors.BadRequest(w, r, err.Error())
			return
		}

		added, err := handler.InsertStep(r.Context(), id, req.Index, req.Position, req.Step)
		if err != nil {
			logger.Error("failed to insert step", sl.Err(err))
			errors.Render(w, r, err)
			return
		}

		logger.Debug("step inserted",
			slog.Int("index", req.Index),
			slog.String("step_id", added.StepID),
		)
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(added))
	}
}

// EditStep merges the patch into the step addressed by id or storage index.
func EditStep(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		stepRef := chi.URLParam(r, "step")
		logger := log.With(
			sl.Module("http.handlers.process"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("process_id", id),
			slog.String("step", stepRef),
		)

		var patch greenbot.StepPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			logger.Debug("failed to decode request body", sl.Err(err))
			errors.BadRequest(w, r, "Invalid request body")
			return
		}

		step, err := handler.EditStep(r.Context(), id, stepRef, patch)
		if err != nil {
			logger.Error("failed to edit step", sl.Err(err))
			errors.Render(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(step))
	}
}
