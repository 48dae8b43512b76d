package answer

import (
	"context"

	"GreenBot/entity"
)

type Core interface {
	GetAnswers(ctx context.Context, processID, chatID string) ([]entity.Answer, error)
}
