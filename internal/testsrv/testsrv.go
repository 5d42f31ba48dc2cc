// testsrv — встраиваемая заглушка бэкенда feedAPP для тестов клиента.
//
// Реализует контракт API поверх chi с настоящими JWT access-токенами:
// истечение и отклонение токена порождают те же 401, что и боевой сервер,
// поэтому сценарии refresh-and-retry проверяются без моков транспорта.
// Состояние (пользователи, посты, лайки, подписки) живёт в памяти.
//
// Для проверок single-flight сервер считает вызовы /auth/refresh и умеет
// блокировать их на внешнем «шлюзе»; для сценариев отказов есть точечная
// инъекция ошибок по методу и пути.
package testsrv

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ManiGOo/feedapp-go/internal/credentials"
	"github.com/ManiGOo/feedapp-go/internal/models"
)

const defaultAccessTTL = time.Minute

// Option — настройка заглушки.
type Option func(*Server)

// WithAccessTTL задаёт срок жизни выдаваемых access-токенов.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) { s.accessTTL = ttl }
}

// WithRefreshGate блокирует обработчик /auth/refresh до закрытия канала.
// Нужен детерминированным проверкам single-flight: все конкурирующие
// вызовы успевают упереться в 401 до завершения первого refresh.
func WithRefreshGate(gate <-chan struct{}) Option {
	return func(s *Server) { s.refreshGate = gate }
}

type userRec struct {
	user     models.User
	password string
}

type postRec struct {
	post     models.Post
	likes    map[int64]bool
	comments []models.Comment
}

type failure struct {
	status    int
	remaining int
}

// Server — состояние заглушки; безопасен для конкурентных запросов.
type Server struct {
	secret      []byte
	accessTTL   time.Duration
	refreshGate <-chan struct{}

	mu            sync.Mutex
	users         map[int64]*userRec
	posts         []*postRec
	follows       map[int64]map[int64]bool // кто -> на кого подписан
	refreshTokens map[string]int64
	failures      map[string]*failure
	nextUserID    int64
	nextPostID    int64
	nextCommentID int64

	refreshCalls atomic.Int64
	requests     atomic.Int64
}

// New создаёт пустую заглушку.
func New(opts ...Option) *Server {
	s := &Server{
		secret:        []byte("testsrv-secret"),
		accessTTL:     defaultAccessTTL,
		users:         make(map[int64]*userRec),
		follows:       make(map[int64]map[int64]bool),
		refreshTokens: make(map[string]int64),
		failures:      make(map[string]*failure),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler собирает маршрутизатор заглушки.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.countRequests, s.injectFailures)

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/refresh", s.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/users/me", s.handleMe)
		r.Put("/users/me", s.handleUpdateMe)
		r.Get("/users/{id}", s.handleUserProfile)

		r.Get("/posts", s.handleFeed)
		r.Get("/following-feed", s.handleFollowingFeed)
		r.Post("/posts", s.handleCreatePost)
		r.Get("/posts/{id}", s.handlePostDetail)
		r.Post("/posts/{id}/like", s.handleToggleLike)
		r.Post("/posts/{id}/comments", s.handleAddComment)

		r.Post("/follow/toggle/{id}", s.handleToggleFollow)
		r.Get("/follow/followers/{id}", s.handleFollowers)
		r.Get("/follow/following/{id}", s.handleFollowing)
	})

	return r
}

// --- сидирование и инспекция (для тестов) ---

// SeedUser регистрирует пользователя и возвращает его профиль.
func (s *Server) SeedUser(username, email, password string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUserID++
	u := models.User{
		ID:       s.nextUserID,
		Username: username,
		Email:    email,
	}
	s.users[u.ID] = &userRec{user: u, password: password}

	return u
}

// SeedPost добавляет пост от имени автора.
func (s *Server) SeedPost(authorID int64, content string) models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	author, ok := s.users[authorID]
	if !ok {
		panic("testsrv: unknown author")
	}

	s.nextPostID++
	p := models.Post{
		ID:        s.nextPostID,
		AuthorID:  authorID,
		Author:    author.user.Username,
		AvatarURL: author.user.AvatarURL,
		Content:   content,
		CreatedAt: time.Now().UTC().Unix(),
	}
	s.posts = append(s.posts, &postRec{post: p, likes: make(map[int64]bool)})

	return p
}

// SeedLikes выставляет постID ровно count лайков от служебных пользователей.
func (s *Server) SeedLikes(postID int64, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.findPost(postID)
	if rec == nil {
		panic("testsrv: unknown post")
	}

	for i := 0; i < count; i++ {
		// отрицательные id не пересекаются с настоящими пользователями
		rec.likes[int64(-(i + 1))] = true
	}
}

// SeedFollow оформляет подписку follower -> followee.
func (s *Server) SeedFollow(followerID, followeeID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.follows[followerID] == nil {
		s.follows[followerID] = make(map[int64]bool)
	}
	s.follows[followerID][followeeID] = true
}

// IssueTokens выдаёт живую пару токенов для пользователя.
func (s *Server) IssueTokens(userID int64) credentials.Pair {
	return credentials.Pair{
		AccessToken:  s.issueAccess(userID, time.Now().Add(s.accessTTL)),
		RefreshToken: s.IssueRefresh(userID),
	}
}

// IssueExpiredAccess выдаёт access-токен с истёкшим сроком.
func (s *Server) IssueExpiredAccess(userID int64) string {
	return s.issueAccess(userID, time.Now().Add(-time.Minute))
}

// IssueRefresh выдаёт валидный refresh-токен.
func (s *Server) IssueRefresh(userID int64) string {
	token := uuid.NewString()

	s.mu.Lock()
	s.refreshTokens[token] = userID
	s.mu.Unlock()

	return token
}

// RefreshCalls — сколько раз сервер обработал /auth/refresh.
func (s *Server) RefreshCalls() int64 { return s.refreshCalls.Load() }

// Requests — сколько запросов всего дошло до сервера.
func (s *Server) Requests() int64 { return s.requests.Load() }

// FailNext заставляет следующие times запросов method path отвечать status.
func (s *Server) FailNext(method, path string, status, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[method+" "+path] = &failure{status: status, remaining: times}
}

// --- подписанные токены ---

func (s *Server) issueAccess(userID int64, exp time.Time) string {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Second)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic("testsrv: sign token: " + err.Error())
	}

	return token
}

func (s *Server) parseAccess(raw string) (int64, bool) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return 0, false
	}

	uid, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, false
	}

	return uid, true
}

// --- middleware ---

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		s.mu.Lock()
		f := s.failures[key]
		hit := f != nil && f.remaining > 0
		if hit {
			f.remaining--
		}
		status := 0
		if hit {
			status = f.status
		}
		s.mu.Unlock()

		if hit {
			writeJSON(w, status, map[string]string{"error": "injected failure"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")

		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing token"})
			return
		}

		uid, ok := s.parseAccess(strings.TrimSpace(auth[len(prefix):]))
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
			return
		}

		next.ServeHTTP(w, r.WithContext(withViewer(r.Context(), uid)))
	})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
