// session — процесс-wide состояние сессии клиента и защита экранов.
//
// Машина состояний из трёх состояний:
//
//	Initializing → Authenticated(identity) | Anonymous
//
// Initializing длится от старта процесса до разрешения первичной загрузки
// личности (успешной или нет); пока оно не разрешилось, ни один защищённый
// экран не вправе делать выводы об авторизации — иначе залогиненный
// пользователь ловит мигание «редирект, потом контент» на каждом
// перезапуске. Схлопывать Initializing в Anonymous нельзя.
//
// Manager конструируется явно и передаётся зависимостям; модульных
// переменных нет, в тестах каждый кейс собирает свой экземпляр.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ManiGOo/feedapp-go/internal/credentials"
	"github.com/ManiGOo/feedapp-go/internal/models"
)

// State — состояние сессии.
type State int

const (
	// StateInitializing — первичная загрузка личности ещё не разрешилась.
	StateInitializing State = iota
	// StateAnonymous — сессии нет; защищённые экраны уводят на вход.
	StateAnonymous
	// StateAuthenticated — личность известна.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Snapshot — наблюдаемое значение состояния сессии.
// Identity заполнен только в StateAuthenticated.
type Snapshot struct {
	State    State
	Identity *models.User
}

// Loading — true, пока первичная загрузка не разрешилась.
func (s Snapshot) Loading() bool { return s.State == StateInitializing }

// IdentityClient — часть API-клиента, нужная менеджеру сессии.
type IdentityClient interface {
	Me(ctx context.Context) (*models.User, error)
}

// Manager — единственный владелец состояния сессии.
// Все переходы идут через его методы; безопасен для конкурентного
// использования.
type Manager struct {
	store credentials.Store
	api   IdentityClient
	log   *slog.Logger

	mu       sync.Mutex
	state    State
	identity *models.User
	subs     map[int]func(Snapshot)
	nextSub  int

	readyOnce sync.Once
	readyCh   chan struct{}
}

// NewManager создаёт менеджер в состоянии Initializing.
func NewManager(store credentials.Store, api IdentityClient, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}

	return &Manager{
		store:   store,
		api:     api,
		log:     log,
		state:   StateInitializing,
		subs:    make(map[int]func(Snapshot)),
		readyCh: make(chan struct{}),
	}
}

// Init выполняет стартовый сценарий.
//
// Если сохранённый access-токен есть — загружается личность: успех ведёт в
// Authenticated, отказ очищает хранилище и ведёт в Anonymous (протухший
// access при живом refresh восстановится внутри клиента незаметно для
// этого кода). Если токена нет — сразу Anonymous, без сети.
func (m *Manager) Init(ctx context.Context) {
	const op = "session.Manager.Init"

	pair, ok, err := m.store.Read()
	if err != nil {
		m.log.Error("credentials_read_failed", slog.String("err", err.Error()))
		m.transition(StateAnonymous, nil)
		return
	}

	if !ok || pair.AccessToken == "" {
		m.transition(StateAnonymous, nil)
		return
	}

	identity, err := m.api.Me(ctx)
	if err != nil {
		m.log.Warn("identity_fetch_failed", slog.String("op", op), slog.String("err", err.Error()))
		_ = m.store.Clear()
		m.transition(StateAnonymous, nil)
		return
	}

	m.transition(StateAuthenticated, identity)
}

// Current возвращает снимок состояния.
func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{State: m.state, Identity: m.identity}
}

// SetAuthenticated — переход после успешного login/signup.
func (m *Manager) SetAuthenticated(identity *models.User) {
	m.transition(StateAuthenticated, identity)
}

// Logout — синхронный переход в Anonymous плюс очистка хранилища.
// Сетевых вызовов нет: эффект наблюдаем немедленно.
func (m *Manager) Logout() {
	if err := m.store.Clear(); err != nil {
		m.log.Warn("credentials_clear_failed", slog.String("err", err.Error()))
	}

	m.transition(StateAnonymous, nil)
}

// Invalidate — принудительное завершение сессии со стороны транспорта
// (необратимый отказ refresh). Хранилище к этому моменту уже очищено
// диспетчером; здесь только переход состояния.
func (m *Manager) Invalidate() {
	m.transition(StateAnonymous, nil)
}

// Subscribe регистрирует наблюдателя переходов; возвращает функцию отписки.
// Наблюдатель вызывается синхронно внутри перехода.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// WaitReady блокирует до выхода из Initializing либо отмены контекста.
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.readyCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session.Manager.WaitReady: %w", ctx.Err())
	}
}

// transition — единственная точка смены состояния.
func (m *Manager) transition(to State, identity *models.User) {
	m.mu.Lock()

	from := m.state
	m.state = to
	m.identity = identity

	snap := Snapshot{State: to, Identity: identity}
	subs := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}

	m.mu.Unlock()

	if to != StateInitializing {
		m.readyOnce.Do(func() { close(m.readyCh) })
	}

	if from != to {
		m.log.Info("session_transition",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	}

	for _, fn := range subs {
		fn(snap)
	}
}

// ErrNotAuthenticated — операция доступна только в StateAuthenticated.
var ErrNotAuthenticated = errors.New("not authenticated")

// RequireAuthenticated возвращает личность либо ErrNotAuthenticated.
func (m *Manager) RequireAuthenticated() (*models.User, error) {
	snap := m.Current()
	if snap.State != StateAuthenticated {
		return nil, ErrNotAuthenticated
	}

	return snap.Identity, nil
}
