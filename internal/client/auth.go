package client

import (
	"context"
	"fmt"

	"github.com/ManiGOo/feedapp-go/internal/credentials"
	"github.com/ManiGOo/feedapp-go/internal/models"
)

// Login выполняет вход по username+пароль.
// При успехе полученная пара токенов сохраняется в хранилище.
func (c *Client) Login(ctx context.Context, username, password string) (*models.User, error) {
	const op = "client.Login"

	var out models.AuthResponse
	if err := c.post(ctx, "/auth/login", models.LoginRequest{
		Username: username,
		Password: password,
	}, &out, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := c.store.Save(credentials.Pair{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.log.Info("login_ok", "user_id", out.User.ID)

	return &out.User, nil
}

// Signup регистрирует нового пользователя; семантика хранения — как у Login.
func (c *Client) Signup(ctx context.Context, username, email, password string) (*models.User, error) {
	const op = "client.Signup"

	var out models.AuthResponse
	if err := c.post(ctx, "/auth/signup", models.SignupRequest{
		Username: username,
		Email:    email,
		Password: password,
	}, &out, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := c.store.Save(credentials.Pair{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.log.Info("signup_ok", "user_id", out.User.ID)

	return &out.User, nil
}
