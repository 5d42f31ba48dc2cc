// feed — view-model ленты: локальное состояние постов и «мгновенные»
// действия над ним (лайк, подписка на автора, комментарий).
//
// Пакет — тонкий потребитель сессии и транспорта: доступность действий
// определяется состоянием сессии, сами вызовы идут через клиент, а
// контракт snapshot/rollback берётся из пакета optimistic.
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

// Scope — какая лента загружается.
type Scope int

const (
	// ScopeForYou — общая лента (GET /posts).
	ScopeForYou Scope = iota
	// ScopeFollowing — лента подписок (GET /following-feed).
	ScopeFollowing
)

// API — часть клиента, нужная ленте.
type API interface {
	Feed(ctx context.Context) ([]models.Post, error)
	FollowingFeed(ctx context.Context) ([]models.Post, error)
	ToggleLike(ctx context.Context, postID int64) (models.LikeResult, error)
	ToggleFollow(ctx context.Context, userID int64) (models.FollowResult, error)
	AddComment(ctx context.Context, postID int64, content string) (models.Comment, error)
}

// likeState — снимок пары (реакция, счётчик) одного поста.
// Отображаемый счётчик и булева реакция всегда меняются вместе,
// чтобы оставаться взаимно согласованными.
type likeState struct {
	Liked bool
	Count int64
}

// Timeline — локальное состояние ленты постов.
type Timeline struct {
	api     API
	session *session.Manager
	log     *slog.Logger

	mu    sync.Mutex
	posts []models.Post
}

// NewTimeline создаёт пустую ленту.
func NewTimeline(api API, sess *session.Manager, log *slog.Logger) *Timeline {
	if log == nil {
		log = slog.Default()
	}

	return &Timeline{api: api, session: sess, log: log}
}

// Load загружает ленту заданного scope, замещая локальное состояние.
func (t *Timeline) Load(ctx context.Context, scope Scope) error {
	const op = "feed.Timeline.Load"

	if _, err := t.session.RequireAuthenticated(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var (
		posts []models.Post
		err   error
	)
	if scope == ScopeFollowing {
		posts, err = t.api.FollowingFeed(ctx)
	} else {
		posts, err = t.api.Feed(ctx)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	t.mu.Lock()
	t.posts = posts
	t.mu.Unlock()

	return nil
}

// Posts возвращает копию текущего состояния ленты.
func (t *Timeline) Posts() []models.Post {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.Post, len(t.posts))
	copy(out, t.posts)

	return out
}

// Post возвращает пост по id из локального состояния.
func (t *Timeline) Post(postID int64) (models.Post, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range t.posts {
		if p.ID == postID {
			return p, true
		}
	}

	return models.Post{}, false
}

// InsertLocal вставляет свежесозданный пост в начало ленты
// (публикация уже подтверждена сервером, сверка не нужна).
func (t *Timeline) InsertLocal(p models.Post) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.posts = append([]models.Post{p}, t.posts...)
}

// ToggleLike — оптимистичный лайк/анлайк поста.
//
// Локальный флип виден до ухода запроса в сеть; при отказе состояние
// восстанавливается ровно в снимок до флипа, ошибка возвращается только
// для журналирования — блокирующего сообщения пользователю нет.
func (t *Timeline) ToggleLike(ctx context.Context, postID int64) error {
	const op = "feed.Timeline.ToggleLike"

	if _, err := t.session.RequireAuthenticated(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	post, ok := t.Post(postID)
	if !ok {
		return fmt.Errorf("%s: post %d not in timeline", op, postID)
	}

	current := likeState{Liked: post.LikedByMe, Count: post.LikeCount}

	_, err := optimistic.Toggle(ctx, current,
		func(s likeState) likeState {
			next := likeState{Liked: !s.Liked}
			if next.Liked {
				next.Count = s.Count + 1
			} else {
				next.Count = s.Count - 1
			}
			return next
		},
		func(s likeState) { t.applyLike(postID, s) },
		func(ctx context.Context) (likeState, error) {
			res, err := t.api.ToggleLike(ctx, postID)
			if err != nil {
				return likeState{}, err
			}
			return likeState{Liked: res.Liked, Count: res.LikeCount}, nil
		},
	)
	if err != nil {
		t.log.Warn("like_toggle_rolled_back",
			slog.Int64("post_id", postID),
			slog.String("err", err.Error()),
		)

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// applyLike доводит состояние лайка до поста; если пост уже исчез из
// ленты (навигация, перезагрузка), поздний ответ молча игнорируется.
func (t *Timeline) applyLike(postID int64, s likeState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.posts {
		if t.posts[i].ID == postID {
			t.posts[i].LikedByMe = s.Liked
			t.posts[i].LikeCount = s.Count
			return
		}
	}
}

// ToggleFollowAuthor — оптимистичная подписка/отписка на автора;
// флаг меняется у всех постов автора в ленте.
func (t *Timeline) ToggleFollowAuthor(ctx context.Context, authorID int64) error {
	const op = "feed.Timeline.ToggleFollowAuthor"

	if _, err := t.session.RequireAuthenticated(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	current, ok := t.followedAuthor(authorID)
	if !ok {
		return fmt.Errorf("%s: author %d not in timeline", op, authorID)
	}

	_, err := optimistic.Toggle(ctx, current,
		func(f bool) bool { return !f },
		func(f bool) { t.applyFollowAuthor(authorID, f) },
		func(ctx context.Context) (bool, error) {
			res, err := t.api.ToggleFollow(ctx, authorID)
			if err != nil {
				return false, err
			}
			return res.IsFollowing, nil
		},
	)
	if err != nil {
		t.log.Warn("follow_toggle_rolled_back",
			slog.Int64("author_id", authorID),
			slog.String("err", err.Error()),
		)

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (t *Timeline) followedAuthor(authorID int64) (bool, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range t.posts {
		if p.AuthorID == authorID {
			return p.IsFollowedAuthor, true
		}
	}

	return false, false
}

func (t *Timeline) applyFollowAuthor(authorID int64, followed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.posts {
		if t.posts[i].AuthorID == authorID {
			t.posts[i].IsFollowedAuthor = followed
		}
	}
}

// AddComment добавляет комментарий. Паттерн проще лайка: append
// подтверждается сервером до изменения локального счётчика, отката нет —
// при отказе текст остаётся у вызывающего.
func (t *Timeline) AddComment(ctx context.Context, postID int64, content string) (models.Comment, error) {
	const op = "feed.Timeline.AddComment"

	if _, err := t.session.RequireAuthenticated(); err != nil {
		return models.Comment{}, fmt.Errorf("%s: %w", op, err)
	}

	comment, err := t.api.AddComment(ctx, postID, content)
	if err != nil {
		return models.Comment{}, fmt.Errorf("%s: %w", op, err)
	}

	t.mu.Lock()
	for i := range t.posts {
		if t.posts[i].ID == postID {
			t.posts[i].CommentsCount++
			break
		}
	}
	t.mu.Unlock()

	return comment, nil
}
