package errors

import (
	goerrors "errors"
	"net/http"

	"GreenBot/bot/greenbot"
	"GreenBot/internal/lib/api/response"

	"github.com/go-chi/render"
)

// Status maps a domain error to an HTTP status code.
func Status(err error) int {
	var ve *greenbot.ValidationError
	switch {
	case goerrors.As(err, &ve):
		return http.StatusBadRequest
	case goerrors.Is(err, greenbot.ErrProcessNotFound),
		goerrors.Is(err, greenbot.ErrStepNotFound):
		return http.StatusNotFound
	case goerrors.Is(err, greenbot.ErrStepIndexOutOfRange):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Render writes err as an error response with the status from Status.
// Internal failures are reported without details.
func Render(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	render.Status(r, status)
	render.JSON(w, r, response.Error(message))
}

// BadRequest writes a 400 response with the message.
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, response.Error(message))
}
