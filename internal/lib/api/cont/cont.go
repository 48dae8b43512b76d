package cont

import (
	"context"

	"GreenBot/entity"
)

type ctxKey string

const userKey ctxKey = "user"

func PutUser(ctx context.Context, user *entity.UserAuth) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser returns the authenticated caller, or nil outside the auth group.
func GetUser(ctx context.Context) *entity.UserAuth {
	user, _ := ctx.Value(userKey).(*entity.UserAuth)
	return user
}
