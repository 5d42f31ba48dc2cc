package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ManiGOo/feedapp-go/internal/models"
	"github.com/ManiGOo/feedapp-go/internal/optimistic"
	"github.com/ManiGOo/feedapp-go/internal/session"
)

// Kind — какой список загружается.
type Kind int

const (
	KindFollowers Kind = iota
	KindFollowing
)

// FollowAPI — часть клиента, нужная спискам подписок.
type FollowAPI interface {
	Followers(ctx context.Context, userID int64) ([]models.FollowUser, error)
	Following(ctx context.Context, userID int64) ([]models.FollowUser, error)
	ToggleFollow(ctx context.Context, userID int64) (models.FollowResult, error)
}

// FollowList — view-model экрана «подписчики/подписки».
type FollowList struct {
	api     FollowAPI
	session *session.Manager
	log     *slog.Logger

	mu    sync.Mutex
	users []models.FollowUser
}

// NewFollowList создаёт пустой список.
func NewFollowList(api FollowAPI, sess *session.Manager, log *slog.Logger) *FollowList {
	if log == nil {
		log = slog.Default()
	}

	return &FollowList{api: api, session: sess, log: log}
}

// Load загружает список для пользователя userID.
func (l *FollowList) Load(ctx context.Context, userID int64, kind Kind) error {
	const op = "feed.FollowList.Load"

	if _, err := l.session.RequireAuthenticated(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var (
		users []models.FollowUser
		err   error
	)
	if kind == KindFollowers {
		users, err = l.api.Followers(ctx, userID)
	} else {
		users, err = l.api.Following(ctx, userID)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	l.mu.Lock()
	l.users = users
	l.mu.Unlock()

	return nil
}

// Users возвращает копию текущего списка.
func (l *FollowList) Users() []models.FollowUser {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.FollowUser, len(l.users))
	copy(out, l.users)

	return out
}

// ToggleFollow — оптимистичная подписка/отписка на пользователя из списка.
// Откат при отказе восстанавливает снимок, ошибка не всплывает в UI.
func (l *FollowList) ToggleFollow(ctx context.Context, userID int64) error {
	const op = "feed.FollowList.ToggleFollow"

	if _, err := l.session.RequireAuthenticated(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	current, ok := l.followedByMe(userID)
	if !ok {
		return fmt.Errorf("%s: user %d not in list", op, userID)
	}

	_, err := optimistic.Toggle(ctx, current,
		func(f bool) bool { return !f },
		func(f bool) { l.applyFollow(userID, f) },
		func(ctx context.Context) (bool, error) {
			res, err := l.api.ToggleFollow(ctx, userID)
			if err != nil {
				return false, err
			}
			return res.IsFollowing, nil
		},
	)
	if err != nil {
		l.log.Warn("follow_toggle_rolled_back",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (l *FollowList) followedByMe(userID int64) (bool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, u := range l.users {
		if u.ID == userID {
			return u.FollowedByMe, true
		}
	}

	return false, false
}

// applyFollow доводит состояние до списка; поздний ответ по уже
// исчезнувшему пользователю молча игнорируется.
func (l *FollowList) applyFollow(userID int64, followed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.users {
		if l.users[i].ID == userID {
			l.users[i].FollowedByMe = followed
			return
		}
	}
}
