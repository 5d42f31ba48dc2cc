package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ManiGOo/feedapp-go/internal/models"
)

// Feed возвращает общую ленту.
func (c *Client) Feed(ctx context.Context) ([]models.Post, error) {
	const op = "client.Feed"

	var out []models.Post
	if err := c.get(ctx, "/posts", &out, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// FollowingFeed возвращает ленту подписок.
func (c *Client) FollowingFeed(ctx context.Context) ([]models.Post, error) {
	const op = "client.FollowingFeed"

	var out []models.Post
	if err := c.get(ctx, "/following-feed", &out, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// PostByID возвращает пост вместе с комментариями.
func (c *Client) PostByID(ctx context.Context, postID int64) (*models.PostDetail, error) {
	const op = "client.PostByID"

	var out models.PostDetail
	if err := c.get(ctx, "/posts/"+strconv.FormatInt(postID, 10), &out, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// CreatePost публикует новый пост.
func (c *Client) CreatePost(ctx context.Context, in models.CreatePostRequest) (*models.Post, error) {
	const op = "client.CreatePost"

	var out models.Post
	if err := c.post(ctx, "/posts", in, &out, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// ToggleLike переключает лайк поста и возвращает авторитетное состояние
// сервера (булево + итоговый счётчик).
func (c *Client) ToggleLike(ctx context.Context, postID int64) (models.LikeResult, error) {
	const op = "client.ToggleLike"

	var out models.LikeResult
	if err := c.post(ctx, "/posts/"+strconv.FormatInt(postID, 10)+"/like", nil, &out, true); err != nil {
		return models.LikeResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// AddComment добавляет комментарий к посту. Семантика at-least-once:
// при отказе локальное состояние не откатывается, текст остаётся у
// вызывающего для повтора.
func (c *Client) AddComment(ctx context.Context, postID int64, content string) (models.Comment, error) {
	const op = "client.AddComment"

	in := struct {
		Content string `json:"content"`
	}{Content: content}

	var out models.Comment
	if err := c.post(ctx, "/posts/"+strconv.FormatInt(postID, 10)+"/comments", in, &out, true); err != nil {
		return models.Comment{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
