package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ManiGOo/feedapp-go/internal/models"
)

// Me возвращает профиль текущего пользователя.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	const op = "client.Me"

	var out struct {
		User models.User `json:"user"`
	}
	if err := c.get(ctx, "/users/me", &out, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out.User, nil
}

// UserProfile возвращает чужой профиль вместе с его постами.
func (c *Client) UserProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	const op = "client.UserProfile"

	var out models.Profile
	if err := c.get(ctx, "/users/"+strconv.FormatInt(userID, 10), &out, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// UpdateProfile изменяет профиль текущего пользователя; пустые поля
// запроса не трогаются.
func (c *Client) UpdateProfile(ctx context.Context, in models.UpdateProfileRequest) (*models.User, error) {
	const op = "client.UpdateProfile"

	var out struct {
		User models.User `json:"user"`
	}
	if err := c.put(ctx, "/users/me", in, &out, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out.User, nil
}
