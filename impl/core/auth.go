package core

import (
	"fmt"
	"log/slog"

	"GreenBot/entity"
	"GreenBot/internal/lib/sl"
)

const adminUsername = "admin"

// AuthenticateByToken resolves an API key. The configured key belongs to the
// admin; any other key is looked up in the repository.
func (c *Core) AuthenticateByToken(token string) (*entity.UserAuth, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}
	if c.authKey != "" && token == c.authKey {
		return &entity.UserAuth{Username: adminUsername, Token: token}, nil
	}
	if c.repo == nil {
		return nil, fmt.Errorf("repository not set")
	}
	username, err := c.repo.CheckApiKey(token)
	if err != nil {
		c.log.With(
			sl.Secret("token", token),
			sl.Err(err),
		).Debug("api key check")
		return nil, err
	}
	if username == "" {
		return nil, fmt.Errorf("unknown token")
	}
	c.log.With(slog.String("user", username)).Debug("authenticated")
	return &entity.UserAuth{Username: username, Token: token}, nil
}

// ValidateToken returns the username owning the token.
func (c *Core) ValidateToken(token string) (string, error) {
	user, err := c.AuthenticateByToken(token)
	if err != nil {
		return "", err
	}
	return user.Username, nil
}
