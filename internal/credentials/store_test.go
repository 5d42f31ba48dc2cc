package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStore_SaveReadClear(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	// пусто до первого Save
	_, ok, err := store.Read()
	require.NoError(t, err)
	require.False(t, ok)

	pair := Pair{AccessToken: "access-1", RefreshToken: "refresh-1"}
	require.NoError(t, store.Save(pair))

	got, ok, err := store.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, pair, got)

	require.NoError(t, store.Clear())

	_, ok, err = store.Read()
	require.NoError(t, err)
	require.False(t, ok)

	// повторный Clear — no-op
	require.NoError(t, store.Clear())
}

func TestFileStore_SurvivesRestart(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Save(Pair{AccessToken: "a", RefreshToken: "r"}))

	// новый экземпляр поверх того же каталога — «перезапуск процесса»
	second, err := NewFileStore(dir)
	require.NoError(t, err)

	got, ok, err := second.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", got.AccessToken)
	require.Equal(t, "r", got.RefreshToken)
}

func TestFileStore_IndependentKeys(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(Pair{AccessToken: "a", RefreshToken: "r"}))

	// токены лежат под отдельными ключами: access можно убрать, не трогая refresh
	require.NoError(t, os.Remove(filepath.Join(dir, KeyAccessToken)))

	got, ok, err := store.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, got.AccessToken)
	require.Equal(t, "r", got.RefreshToken)
}

func TestFileStore_Permissions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(Pair{AccessToken: "a", RefreshToken: "r"}))

	for _, key := range []string{KeyAccessToken, KeyRefreshToken} {
		info, err := os.Stat(filepath.Join(dir, key))
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestFileStore_EmptyDir(t *testing.T) {
	t.Parallel()

	_, err := NewFileStore("")
	require.Error(t, err)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()

	_, ok, err := store.Read()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Save(Pair{AccessToken: "a", RefreshToken: "r"}))

	got, ok, err := store.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Pair{AccessToken: "a", RefreshToken: "r"}, got)

	require.NoError(t, store.Clear())

	_, ok, err = store.Read()
	require.NoError(t, err)
	require.False(t, ok)
}
