package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore хранит токены как два отдельных файла в каталоге:
// <dir>/accessToken и <dir>/refreshToken. Файлы создаются с правами 0600,
// каталог — 0700.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore создаёт хранилище в каталоге dir (каталог создаётся лениво,
// при первом Save).
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("credentials: empty dir")
	}

	return &FileStore{dir: dir}, nil
}

// Save сохраняет пару целиком.
func (s *FileStore) Save(p Pair) error {
	const op = "credentials.FileStore.Save"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := writeKey(s.dir, KeyAccessToken, p.AccessToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := writeKey(s.dir, KeyRefreshToken, p.RefreshToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Read возвращает пару и признак её наличия. Пара считается отсутствующей,
// когда нет ни одного из ключей.
func (s *FileStore) Read() (Pair, bool, error) {
	const op = "credentials.FileStore.Read"

	s.mu.Lock()
	defer s.mu.Unlock()

	access, okA, err := readKey(s.dir, KeyAccessToken)
	if err != nil {
		return Pair{}, false, fmt.Errorf("%s: %w", op, err)
	}

	refresh, okR, err := readKey(s.dir, KeyRefreshToken)
	if err != nil {
		return Pair{}, false, fmt.Errorf("%s: %w", op, err)
	}

	if !okA && !okR {
		return Pair{}, false, nil
	}

	return Pair{AccessToken: access, RefreshToken: refresh}, true, nil
}

// Clear удаляет оба ключа; отсутствие файлов не считается ошибкой.
func (s *FileStore) Clear() error {
	const op = "credentials.FileStore.Clear"

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{KeyAccessToken, KeyRefreshToken} {
		if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

// writeKey пишет значение во временный файл и атомарно переименовывает,
// чтобы параллельный Read не увидел частичную запись.
func writeKey(dir, key, value string) error {
	tmp, err := os.CreateTemp(dir, key+".tmp-*")
	if err != nil {
		return err
	}

	name := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}

	if err := os.Chmod(name, 0o600); err != nil {
		_ = os.Remove(name)
		return err
	}

	return os.Rename(name, filepath.Join(dir, key))
}

func readKey(dir, key string) (string, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return string(data), true, nil
}
