package greenbot

import (
	"errors"
	"fmt"
)

var (
	ErrProcessNotFound     = errors.New("process not found")
	ErrStepNotFound        = errors.New("step not found")
	ErrStepIndexOutOfRange = errors.New("step index out of range")
	ErrInvalidStepSequence = errors.New("invalid step sequence")
	ErrEmptyProcess        = errors.New("process has no steps")
	ErrInvalidActionToken  = errors.New("invalid action token")
	ErrPersistence         = errors.New("persistence failure")
	ErrNoSession           = errors.New("no active process")
	ErrFirstStep           = errors.New("already at the first step")
	ErrLastStep            = errors.New("already at the last step")
)

// ValidationError is a user-input problem; the step is re-prompted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps a storage failure. It matches ErrPersistence.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// userMessage converts any navigator error into the single explanatory
// message sent back to the chat.
func userMessage(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return "⚠️ " + ve.Reason
	case errors.Is(err, ErrProcessNotFound):
		return "Процес не знайдено."
	case errors.Is(err, ErrStepNotFound):
		return "Крок не знайдено."
	case errors.Is(err, ErrStepIndexOutOfRange):
		return "Цей крок більше не існує. Натисніть /restart, щоб почати спочатку."
	case errors.Is(err, ErrInvalidStepSequence):
		return "Порушено послідовність кроків процесу. Перехід неможливий."
	case errors.Is(err, ErrEmptyProcess):
		return "У цьому процесі ще немає кроків."
	case errors.Is(err, ErrNoSession):
		return "Немає активного процесу. Натисніть /start."
	case errors.Is(err, ErrFirstStep):
		return "Це перший крок."
	case errors.Is(err, ErrLastStep):
		return "Це останній крок."
	case errors.Is(err, ErrPersistence):
		return "Не вдалося зберегти дані. Спробуйте ще раз."
	}
	return "Виникла помилка. Спробуйте ще раз."
}
