package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/ManiGOo/feedapp-go/internal/credentials"
	"github.com/ManiGOo/feedapp-go/internal/models"
)

// refreshAccess обменивает refresh-токен на новый access-токен.
//
// Конкурентные вызовы разделяют одну сетевую попытку: пока refresh в
// полёте, все новые ожидающие присоединяются к ней и получают общий
// результат (успех или отказ). Ключ single-flight очищается по
// завершении, так что следующее настоящее истечение запустит свежий
// refresh.
//
// При успехе новый access-токен сохраняется в хранилище, refresh-токен не
// меняется. При отказе хранилище НЕ очищается — это решение принадлежит
// dispatch, единственному месту с правом принудительного выхода.
func (c *Client) refreshAccess(ctx context.Context) (string, error) {
	const op = "client.refreshAccess"

	v, err, _ := c.flight.Do("refresh", func() (any, error) {
		return c.doRefresh(ctx)
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return v.(string), nil
}

// doRefresh — сама сетевая попытка; выполняется один раз на «полёт».
// Контекст отвязывается от инициировавшего запроса: результат общий для
// всех ожидающих, и отмена одного из них не должна ронять остальных.
func (c *Client) doRefresh(ctx context.Context) (string, error) {
	const op = "client.doRefresh"

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	pair, ok, err := c.store.Read()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if !ok || pair.RefreshToken == "" {
		return "", fmt.Errorf("%s: %w", op, ErrSessionInvalid)
	}

	c.log.Debug("refresh_start")

	payload, err := json.Marshal(models.RefreshRequest{RefreshToken: pair.RefreshToken})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	res, status, body, err := c.send(rctx, http.MethodPost, "/auth/refresh", payload, "", uuid.NewString())
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if res != outcomeOK {
		return "", fmt.Errorf("%s: %w", op, decodeAPIError(status, body, ""))
	}

	var out models.RefreshResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", op, err)
	}

	if out.AccessToken == "" {
		return "", fmt.Errorf("%s: empty access token in refresh response", op)
	}

	if err := c.store.Save(credentials.Pair{
		AccessToken:  out.AccessToken,
		RefreshToken: pair.RefreshToken,
	}); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	c.log.Debug("refresh_done")

	return out.AccessToken, nil
}
