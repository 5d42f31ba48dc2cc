// config — источник загрузки конфигурации клиента feedapp.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string            `yaml:"env" env:"ENV" env-default:"local"`
	API         APIConfig         `yaml:"api"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Timeouts    TimeoutConfig     `yaml:"timeouts"`
}

// APIConfig — адрес и представление клиента перед сервером feedAPP.
type APIConfig struct {
	// BaseURL — базовый URL API, включая префикс /api.
	BaseURL   string `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:8080/api"`
	UserAgent string `yaml:"user_agent" env:"API_USER_AGENT" env-default:"feedapp-go"`
}

// CredentialsConfig — каталог хранения пары токенов.
// Пустой Dir означает <home>/.feedapp.
type CredentialsConfig struct {
	Dir string `yaml:"dir" env:"CREDENTIALS_DIR" env-default:""`
}

// ResolveDir возвращает фактический каталог хранения токенов.
func (c CredentialsConfig) ResolveDir() (string, error) {
	if c.Dir != "" {
		return c.Dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve credentials dir: %w", err)
	}

	return filepath.Join(home, ".feedapp"), nil
}

// TimeoutConfig — таймаут одного сетевого вызова.
type TimeoutConfig struct {
	Request time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"15s"`
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	if path != "" {
		return tryRead(path)
	}

	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return tryRead(env)
	}

	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env config: %w", err)
	}

	return &cfg, nil
}
