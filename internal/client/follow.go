package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ManiGOo/feedapp-go/internal/models"
)

// ToggleFollow переключает подписку на пользователя и возвращает
// авторитетное состояние сервера.
func (c *Client) ToggleFollow(ctx context.Context, userID int64) (models.FollowResult, error) {
	const op = "client.ToggleFollow"

	var out models.FollowResult
	if err := c.post(ctx, "/follow/toggle/"+strconv.FormatInt(userID, 10), nil, &out, true); err != nil {
		return models.FollowResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Followers возвращает подписчиков пользователя.
func (c *Client) Followers(ctx context.Context, userID int64) ([]models.FollowUser, error) {
	const op = "client.Followers"

	var out []models.FollowUser
	if err := c.get(ctx, "/follow/followers/"+strconv.FormatInt(userID, 10), &out, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Following возвращает подписки пользователя.
func (c *Client) Following(ctx context.Context, userID int64) ([]models.FollowUser, error) {
	const op = "client.Following"

	var out []models.FollowUser
	if err := c.get(ctx, "/follow/following/"+strconv.FormatInt(userID, 10), &out, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
