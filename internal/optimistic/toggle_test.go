package optimistic_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ManiGOo/feedapp-go/internal/optimistic"
)

type likeState struct {
	Liked bool
	Count int64
}

func flipLike(s likeState) likeState {
	if s.Liked {
		return likeState{Liked: false, Count: s.Count - 1}
	}
	return likeState{Liked: true, Count: s.Count + 1}
}

func TestToggle_OptimisticBeforeCommit(t *testing.T) {
	t.Parallel()

	var rendered []likeState
	committed := false

	final, err := optimistic.Toggle(context.Background(),
		likeState{Liked: false, Count: 3},
		flipLike,
		func(s likeState) { rendered = append(rendered, s) },
		func(context.Context) (likeState, error) {
			// к моменту сетевого вызова перевёрнутое состояние уже показано
			require.Equal(t, []likeState{{Liked: true, Count: 4}}, rendered)
			committed = true
			return likeState{Liked: true, Count: 4}, nil
		},
	)
	require.NoError(t, err)
	require.True(t, committed)
	require.Equal(t, likeState{Liked: true, Count: 4}, final)
	require.Equal(t, []likeState{{true, 4}, {true, 4}}, rendered)
}

func TestToggle_ServerCountWins(t *testing.T) {
	t.Parallel()

	var rendered []likeState

	// чужие лайки успели изменить счётчик: локальный прогноз 4,
	// авторитетный ответ 6 — побеждает сервер
	final, err := optimistic.Toggle(context.Background(),
		likeState{Liked: false, Count: 3},
		flipLike,
		func(s likeState) { rendered = append(rendered, s) },
		func(context.Context) (likeState, error) {
			return likeState{Liked: true, Count: 6}, nil
		},
	)
	require.NoError(t, err)
	require.Equal(t, likeState{Liked: true, Count: 6}, final)
	require.Equal(t, []likeState{{true, 4}, {true, 6}}, rendered)
}

func TestToggle_RollbackToExactSnapshot(t *testing.T) {
	t.Parallel()

	var rendered []likeState
	boom := errors.New("network down")

	final, err := optimistic.Toggle(context.Background(),
		likeState{Liked: false, Count: 3},
		flipLike,
		func(s likeState) { rendered = append(rendered, s) },
		func(context.Context) (likeState, error) {
			return likeState{}, boom
		},
	)
	require.ErrorIs(t, err, boom)

	// восстановлен ровно снимок, не повторный флип
	require.Equal(t, likeState{Liked: false, Count: 3}, final)
	require.Equal(t, []likeState{{true, 4}, {false, 3}}, rendered)
}

func TestToggle_UnlikeDirection(t *testing.T) {
	t.Parallel()

	var rendered []likeState

	final, err := optimistic.Toggle(context.Background(),
		likeState{Liked: true, Count: 4},
		flipLike,
		func(s likeState) { rendered = append(rendered, s) },
		func(context.Context) (likeState, error) {
			return likeState{Liked: false, Count: 3}, nil
		},
	)
	require.NoError(t, err)
	require.Equal(t, likeState{Liked: false, Count: 3}, final)
	require.Equal(t, likeState{false, 3}, rendered[0])
}

func TestToggle_BoolFlip(t *testing.T) {
	t.Parallel()

	var rendered []bool
	boom := errors.New("timeout")

	final, err := optimistic.Toggle(context.Background(),
		false,
		func(b bool) bool { return !b },
		func(b bool) { rendered = append(rendered, b) },
		func(context.Context) (bool, error) { return false, boom },
	)
	require.ErrorIs(t, err, boom)
	require.False(t, final)
	require.Equal(t, []bool{true, false}, rendered)
}
