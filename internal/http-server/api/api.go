package api

import (
	"GreenBot/internal/config"
	"GreenBot/internal/http-server/handlers/answer"
	"GreenBot/internal/http-server/handlers/errors"
	"GreenBot/internal/http-server/handlers/files"
	"GreenBot/internal/http-server/handlers/process"
	"GreenBot/internal/http-server/middleware/authenticate"
	"GreenBot/internal/http-server/middleware/timeout"
	"GreenBot/internal/lib/sl"
	"GreenBot/internal/ws"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net"
	"net/http"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	ws.Authenticator
	process.Core
	answer.Core
	files.Core
}

// NewRouter builds the authoring API. The websocket endpoint and signed file
// links authenticate themselves and sit outside the API-key group.
func NewRouter(log *slog.Logger, handler Handler, hub *ws.Hub) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	if hub != nil {
		router.Get("/ws", ws.Handler(hub, handler, log))
	}

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(timeout.Timeout(5))
		v1.Use(render.SetContentType(render.ContentTypeJSON))

		v1.Get("/files/{file_id}", files.Download(log, handler))

		v1.Group(func(r chi.Router) {
			r.Use(authenticate.New(log, handler))

			r.Route("/processes", func(r chi.Router) {
				r.Get("/", process.List(log, handler))
				r.Post("/", process.Create(log, handler))
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", process.Get(log, handler))
					r.Delete("/", process.Delete(log, handler))
					r.Patch("/header", process.EditHeader(log, handler))
					r.Post("/publish", process.Publish(log, handler))
					r.Post("/archive", process.Archive(log, handler))
					r.Post("/steps", process.AppendStep(log, handler))
					r.Post("/steps/insert", process.InsertStep(log, handler))
					r.Patch("/steps/{step}", process.EditStep(log, handler))
					r.Get("/answers", answer.List(log, handler))
				})
			})
		})
	})

	return router
}

// New starts the API server and blocks until it stops.
func New(conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:  NewRouter(log, handler, hub),
		ErrorLog: httpLog,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
