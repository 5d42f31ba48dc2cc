// client — транспортное ядро клиента feedAPP: диспетчер исходящих
// HTTP-вызовов и обновление сессии.
//
// Каждый вызов API проходит через dispatch: к запросу прикрепляется
// access-токен из хранилища, при ответе 401 ровно один раз выполняется
// refresh и повтор исходного запроса. Отказ refresh необратим: хранилище
// очищается, сессия объявляется недействительной через хук
// OnSessionInvalid, вызывающему возвращается ErrSessionInvalid.
//
// Экземпляр Client безопасен для конкурентного использования из разных
// горутин; одновременные отказы авторизации разделяют один сетевой
// refresh (single-flight), а не порождают по вызову на каждого ожидающего.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/ManiGOo/feedapp-go/internal/credentials"
	logctx "github.com/ManiGOo/feedapp-go/pkg/log"
)

// maxBodyBytes ограничивает читаемое тело ответа.
const maxBodyBytes = 10 * 1024 * 1024 // 10 MiB

const defaultTimeout = 15 * time.Second

// Options — параметры сборки клиента.
type Options struct {
	// BaseURL — базовый URL API, включая префикс /api. Обязателен.
	BaseURL string
	// Store — хранилище пары токенов. Обязательно.
	Store credentials.Store
	// HTTPClient — опционально; по умолчанию http.Client с Timeout.
	HTTPClient *http.Client
	// Logger — опционально; по умолчанию slog.Default().
	Logger *slog.Logger
	// UserAgent — значение User-Agent исходящих вызовов.
	UserAgent string
	// Timeout — таймаут одного сетевого вызова (и refresh-вызова).
	Timeout time.Duration
}

// Client — типизированный клиент REST API feedAPP.
type Client struct {
	baseURL   string
	httpc     *http.Client
	store     credentials.Store
	log       *slog.Logger
	userAgent string
	timeout   time.Duration

	// flight дедуплицирует конкурентные refresh-попытки: поздно пришедшие
	// ожидающие присоединяются к незавершённой, ключ очищается по завершении.
	flight singleflight.Group

	mu               sync.Mutex
	onSessionInvalid func()
}

// New создаёт клиент. BaseURL и Store обязательны.
func New(opts Options) (*Client, error) {
	const op = "client.New"

	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%s: empty base url", op)
	}

	if opts.Store == nil {
		return nil, fmt.Errorf("%s: nil credentials store", op)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: timeout}
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "feedapp-go"
	}

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		httpc:     httpc,
		store:     opts.Store,
		log:       log,
		userAgent: userAgent,
		timeout:   timeout,
	}, nil
}

// SetOnSessionInvalid регистрирует хук принудительного завершения сессии.
// Вызывается после очистки хранилища при необратимом отказе refresh;
// сторона сессии переводит состояние в «аноним» и уводит на экран входа.
func (c *Client) SetOnSessionInvalid(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onSessionInvalid = fn
}

func (c *Client) notifySessionInvalid() {
	c.mu.Lock()
	fn := c.onSessionInvalid
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// outcome — помеченный результат одной отправки запроса; счётчик повторов
// живёт в dispatch, а не в самом запросе.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeAuthFailed
	outcomeError
)

// dispatch — единая точка исходящих вызовов API.
//
// Алгоритм при authed=true:
//  1. прочитать пару токенов; при их отсутствии — локальный ErrNoSession
//     без сетевого обращения;
//  2. отправить запрос с Authorization: Bearer <access>;
//  3. на 401 — ровно один refresh (single-flight) и один повтор исходного
//     запроса с новым токеном; повторный 401 разбирается как обычная
//     ошибка API, цикла нет;
//  4. отказ refresh: очистить хранилище, дёрнуть OnSessionInvalid,
//     вернуть ErrSessionInvalid.
//
// Прочие не-2xx статусы возвращаются вызывающему как *APIError без
// какой-либо обработки.
func (c *Client) dispatch(ctx context.Context, method, path string, in, out any, authed bool) error {
	const op = "client.dispatch"

	var payload []byte
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		payload = data
	}

	token := ""
	if authed {
		pair, ok, err := c.store.Read()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if !ok || pair.AccessToken == "" {
			return fmt.Errorf("%s: %w", op, ErrNoSession)
		}

		token = pair.AccessToken
	}

	// Один request id на логический вызов: повтор после refresh несёт тот же.
	requestID := uuid.NewString()

	res, status, body, err := c.send(ctx, method, path, payload, token, requestID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res == outcomeAuthFailed && authed {
		newToken, rerr := c.refreshAccess(ctx)
		if rerr != nil {
			// Необратимый отказ: единственное место, где принимается
			// решение о принудительном выходе.
			_ = c.store.Clear()
			c.notifySessionInvalid()

			c.log.Warn("session_invalidated", slog.String("err", rerr.Error()))

			return fmt.Errorf("%s: %w", op, ErrSessionInvalid)
		}

		res, status, body, err = c.send(ctx, method, path, payload, newToken, requestID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if res != outcomeOK {
		return fmt.Errorf("%s: %w", op, decodeAPIError(status, body, requestID))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
	}

	return nil
}

// send выполняет одну отправку запроса и возвращает помеченный результат.
// Сетевые ошибки (до получения статуса) возвращаются через err.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, token, requestID string) (outcome, int, []byte, error) {
	const op = "client.send"

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return outcomeError, 0, nil, fmt.Errorf("%s: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return outcomeError, 0, nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return outcomeError, 0, nil, fmt.Errorf("%s: read body: %w", op, err)
	}

	logctx.From(ctx).LogAttrs(ctx, slog.LevelDebug, "http_call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("dur", time.Since(start)),
		slog.String("request_id", requestID),
	)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return outcomeOK, resp.StatusCode, body, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return outcomeAuthFailed, resp.StatusCode, body, nil
	default:
		return outcomeError, resp.StatusCode, body, nil
	}
}

// get/post/put — короткие обёртки над dispatch.

func (c *Client) get(ctx context.Context, path string, out any, authed bool) error {
	return c.dispatch(ctx, http.MethodGet, path, nil, out, authed)
}

func (c *Client) post(ctx context.Context, path string, in, out any, authed bool) error {
	return c.dispatch(ctx, http.MethodPost, path, in, out, authed)
}

func (c *Client) put(ctx context.Context, path string, in, out any, authed bool) error {
	return c.dispatch(ctx, http.MethodPut, path, in, out, authed)
}
