package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoSession — авторизованный вызов при отсутствии сохранённых токенов.
	// Возвращается локально, без сетевого обращения: после logout любой
	// последующий защищённый вызов отклоняется сразу.
	ErrNoSession = errors.New("no session")

	// ErrSessionInvalid — refresh-токен отклонён сервером или отсутствует.
	// Локально не восстанавливается: хранилище очищено, клиенту нужно
	// пройти аутентификацию заново.
	ErrSessionInvalid = errors.New("session invalid")
)

// APIError — ошибка уровня API (4xx/5xx, не перекрытая refresh-повтором).
// Передаётся вызывающему виду как есть: пользовательское сообщение —
// ответственность экрана, а не транспорта.
type APIError struct {
	// Status — HTTP-статус ответа.
	Status int
	// Message — текст из поля {error} ответа либо стандартный текст статуса.
	Message string
	// RequestID — X-Request-Id вызова, для привязки багрепортов.
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// AsAPIError — удобный доступ к деталям ошибки API из обёрнутой цепочки.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}

	return nil, false
}

// decodeAPIError разбирает тело ошибки сервера.
//
// Поддерживаются обе формы, встречающиеся в API:
//   - {"error": "текст"}
//   - {"error": {"code": "...", "message": "..."}}
//
// При нечитаемом теле используется стандартный текст статуса.
func decodeAPIError(status int, body []byte, requestID string) *APIError {
	out := &APIError{
		Status:    status,
		Message:   http.StatusText(status),
		RequestID: requestID,
	}

	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.Error != "" {
		out.Message = flat.Error
		return out
	}

	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && nested.Error.Message != "" {
		out.Message = nested.Error.Message
	}

	return out
}
