// Модели auth-эндпойнтов; зеркалят JSON-контракт сервера (camelCase).
package models

// LoginRequest — тело POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignupRequest — тело POST /auth/signup.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse — ответ login/signup: пара токенов и профиль пользователя.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// RefreshRequest — тело POST /auth/refresh. Refresh-токен сам является
// credential'ом этого вызова, Authorization не требуется.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse — ответ POST /auth/refresh: только новый access-токен,
// refresh-токен остаётся прежним.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}
