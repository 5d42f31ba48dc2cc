// credentials — персистентное хранилище пары токенов клиента.
//
// Контракт намеренно минимален: Save/Read/Clear, без валидации и без
// отслеживания сроков жизни — истечение access-токена обнаруживается
// реактивно, по отклонённому запросу. Хранилище переживает перезапуск
// процесса, но не logout.
//
// Записью в хранилище владеют только переходы сессии (login/signup/logout,
// обновление access-токена, сброс при необратимом отказе refresh);
// остальные компоненты читают.
package credentials

// Ключи хранения. Токены лежат под независимыми ключами,
// чтобы каждый можно было очистить по отдельности.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// Pair — текущая пара токенов.
//
// AccessToken — короткоживущий, предъявляется на каждый авторизованный
// запрос. RefreshToken — долгоживущий, обменивается только на
// /auth/refresh. Пара создаётся при login/signup, access перезаписывается
// при каждом refresh, обе части удаляются при logout.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Store — контракт хранилища пары токенов.
type Store interface {
	// Save сохраняет пару целиком (перезаписывая прежнюю).
	Save(p Pair) error
	// Read возвращает пару и признак её наличия.
	Read() (Pair, bool, error)
	// Clear удаляет обе части; повторный вызов — no-op.
	Clear() error
}
