package feed_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ManiGOo/feedapp-go/internal/credentials"
	"github.com/ManiGOo/feedapp-go/internal/feed"
	"github.com/ManiGOo/feedapp-go/internal/models"
	"github.com/ManiGOo/feedapp-go/internal/session"
	logctx "github.com/ManiGOo/feedapp-go/pkg/log"
)

// fakeAPI — ручная заглушка клиента для ленты и списков подписок.
type fakeAPI struct {
	feedPosts      []models.Post
	followingPosts []models.Post

	likeResult models.LikeResult
	likeErr    error
	// onToggleLike дёргается внутри сетевого вызова: точка наблюдения
	// оптимистичного состояния до разрешения commit.
	onToggleLike func()

	followResult models.FollowResult
	followErr    error

	comment    models.Comment
	commentErr error

	followers []models.FollowUser
	following []models.FollowUser

	feedCalls          int
	followingFeedCalls int
}

func (f *fakeAPI) Feed(_ context.Context) ([]models.Post, error) {
	f.feedCalls++
	return f.feedPosts, nil
}

func (f *fakeAPI) FollowingFeed(_ context.Context) ([]models.Post, error) {
	f.followingFeedCalls++
	return f.followingPosts, nil
}

func (f *fakeAPI) ToggleLike(_ context.Context, _ int64) (models.LikeResult, error) {
	if f.onToggleLike != nil {
		f.onToggleLike()
	}
	if f.likeErr != nil {
		return models.LikeResult{}, f.likeErr
	}
	return f.likeResult, nil
}

func (f *fakeAPI) ToggleFollow(_ context.Context, _ int64) (models.FollowResult, error) {
	if f.followErr != nil {
		return models.FollowResult{}, f.followErr
	}
	return f.followResult, nil
}

func (f *fakeAPI) AddComment(_ context.Context, _ int64, _ string) (models.Comment, error) {
	if f.commentErr != nil {
		return models.Comment{}, f.commentErr
	}
	return f.comment, nil
}

func (f *fakeAPI) Followers(_ context.Context, _ int64) ([]models.FollowUser, error) {
	return f.followers, nil
}

func (f *fakeAPI) Following(_ context.Context, _ int64) ([]models.FollowUser, error) {
	return f.following, nil
}

func authedSession(t *testing.T) *session.Manager {
	t.Helper()

	m := session.NewManager(credentials.NewMemoryStore(), nil, logctx.Discard())
	m.SetAuthenticated(&models.User{ID: 1, Username: "viewer"})

	return m
}

func anonymousSession(t *testing.T) *session.Manager {
	t.Helper()

	m := session.NewManager(credentials.NewMemoryStore(), nil, logctx.Discard())
	m.Init(context.Background())

	return m
}

func post42() models.Post {
	return models.Post{ID: 42, AuthorID: 9, Author: "carol", Content: "hi", LikeCount: 3, LikedByMe: false}
}

func TestTimeline_Load_RequiresAuth(t *testing.T) {
	t.Parallel()

	tl := feed.NewTimeline(&fakeAPI{}, anonymousSession(t), logctx.Discard())

	err := tl.Load(context.Background(), feed.ScopeForYou)
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestTimeline_Load_Scopes(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		feedPosts:      []models.Post{{ID: 1}},
		followingPosts: []models.Post{{ID: 2}, {ID: 3}},
	}
	tl := feed.NewTimeline(api, authedSession(t), logctx.Discard())

	require.NoError(t, tl.Load(context.Background(), feed.ScopeForYou))
	require.Len(t, tl.Posts(), 1)
	require.Equal(t, 1, api.feedCalls)

	require.NoError(t, tl.Load(context.Background(), feed.ScopeFollowing))
	require.Len(t, tl.Posts(), 2)
	require.Equal(t, 1, api.followingFeedCalls)
}

func TestTimeline_ToggleLike_OptimisticThenServerWins(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		feedPosts: []models.Post{post42()},
		// чужие лайки успели изменить счётчик: локальный прогноз 4,
		// авторитетный ответ 6
		likeResult: models.LikeResult{Liked: true, LikeCount: 6},
	}
	tl := feed.NewTimeline(api, authedSession(t), logctx.Discard())
	require.NoError(t, tl.Load(context.Background(), feed.ScopeForYou))

	api.onToggleLike = func() {
		p, ok := tl.Post(42)
		require.True(t, ok)
		require.True(t, p.LikedByMe)
		require.EqualValues(t, 4, p.LikeCount)
	}

	require.NoError(t, tl.ToggleLike(context.Background(), 42))

	p, ok := tl.Post(42)
	require.True(t, ok)
	require.True(t, p.LikedByMe)
	require.EqualValues(t, 6, p.LikeCount)
}

func TestTimeline_ToggleLike_RollbackToExactSnapshot(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		feedPosts: []models.Post{post42()},
		likeErr:   errors.New("network down"),
	}
	tl := feed.NewTimeline(api, authedSession(t), logctx.Discard())
	require.NoError(t, tl.Load(context.Background(), feed.ScopeForYou))

	var during models.Post
	api.onToggleLike = func() { during, _ = tl.Post(42) }

	err := tl.ToggleLike(context.Background(), 42)
	require.Error(t, err)

	// оптимистичный флип был виден во время вызова
	require.True(t, during.LikedByMe)
	require.EqualValues(t, 4, during.LikeCount)

	// откат ровно к снимку
	p, ok := tl.Post(42)
	require.True(t, ok)
	require.False(t, p.LikedByMe)
	require.EqualValues(t, 3, p.LikeCount)
}

func TestTimeline_ToggleLike_UnknownPost(t *testing.T) {
	t.Parallel()

	tl := feed.NewTimeline(&fakeAPI{}, authedSession(t), logctx.Discard())

	require.Error(t, tl.ToggleLike(context.Background(), 99))
}

func TestTimeline_ToggleLike_RequiresAuth(t *testing.T) {
	t.Parallel()

	tl := feed.NewTimeline(&fakeAPI{}, anonymousSession(t), logctx.Discard())

	err := tl.ToggleLike(context.Background(), 42)
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestTimeline_ToggleFollowAuthor_AllAuthorPosts(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		feedPosts: []models.Post{
			{ID: 1, AuthorID: 9, IsFollowedAuthor: false},
			{ID: 2, AuthorID: 5, IsFollowedAuthor: false},
			{ID: 3, AuthorID: 9, IsFollowedAuthor: false},
		},
		followResult: models.FollowResult{IsFollowing: true},
	}
	tl := feed.NewTimeline(api, authedSession(t), logctx.Discard())
	require.NoError(t, tl.Load(context.Background(), feed.ScopeForYou))

	require.NoError(t, tl.ToggleFollowAuthor(context.Background(), 9))

	// флаг меняется у всех постов автора, чужие посты не тронуты
	for _, p := range tl.Posts() {
		require.Equal(t, p.AuthorID == 9, p.IsFollowedAuthor)
	}
}

func TestTimeline_ToggleFollowAuthor_Rollback(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		feedPosts: []models.Post{{ID: 1, AuthorID: 9, IsFollowedAuthor: false}},
		followErr: errors.New("timeout"),
	}
	tl := feed.NewTimeline(api, authedSession(t), logctx.Discard())
	require.NoError(t, tl.Load(context.Background(), feed.ScopeForYou))

	require.Error(t, tl.ToggleFollowAuthor(context.Background(), 9))

	p, _ := tl.Post(1)
	require.False(t, p.IsFollowedAuthor)
}

func TestTimeline_AddComment(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		feedPosts: []models.Post{{ID: 42, CommentsCount: 2}},
		comment:   models.Comment{ID: 10, PostID: 42, Content: "nice"},
	}
	tl := feed.NewTimeline(api, authedSession(t), logctx.Discard())
	require.NoError(t, tl.Load(context.Background(), feed.ScopeForYou))

	c, err := tl.AddComment(context.Background(), 42, "nice")
	require.NoError(t, err)
	require.Equal(t, "nice", c.Content)

	p, _ := tl.Post(42)
	require.EqualValues(t, 3, p.CommentsCount)
}

func TestTimeline_AddComment_FailureKeepsCount(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		feedPosts:  []models.Post{{ID: 42, CommentsCount: 2}},
		commentErr: errors.New("boom"),
	}
	tl := feed.NewTimeline(api, authedSession(t), logctx.Discard())
	require.NoError(t, tl.Load(context.Background(), feed.ScopeForYou))

	_, err := tl.AddComment(context.Background(), 42, "nice")
	require.Error(t, err)

	// счётчик меняется только после подтверждения сервером
	p, _ := tl.Post(42)
	require.EqualValues(t, 2, p.CommentsCount)
}

func TestTimeline_InsertLocal_Prepends(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{feedPosts: []models.Post{{ID: 1}}}
	tl := feed.NewTimeline(api, authedSession(t), logctx.Discard())
	require.NoError(t, tl.Load(context.Background(), feed.ScopeForYou))

	tl.InsertLocal(models.Post{ID: 2})

	posts := tl.Posts()
	require.Len(t, posts, 2)
	require.EqualValues(t, 2, posts[0].ID)
}
