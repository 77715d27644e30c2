// Package config загружает конфигурацию focus-api и focus-reminderd.
//
// Порядок применения: значения по умолчанию, затем YAML-файл
// (путь из FOCUS_CONFIG, необязателен), затем переменные окружения.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/FocusTasks/internal/reminder"
)

// EnvConfigPath — переменная с путём к YAML-файлу.
const EnvConfigPath = "FOCUS_CONFIG"

// Драйверы хранилища задач.
const (
	StorePostgres = "postgres"
	StoreFile     = "file"
)

// ErrInvalidConfig — конфигурация не прошла проверку.
var ErrInvalidConfig = errors.New("invalid config")

const exampleYAML = `# focus configuration
policy:
  threshold: 72h
  heartbeat_interval: 12h
  heartbeats: true
  snooze_duration: 1h
  liveness_interval: 6h
  timezone: Local

capabilities:
  # true — хост сам присылает TICK (periodic background sync)
  periodic_sync: false

store:
  driver: postgres   # postgres | file
  path: ./data/tasks.json

gateway:
  origins: ["localhost:*"]
`

// CapabilitiesConfig — возможности хоста планировщика.
type CapabilitiesConfig struct {
	PeriodicSync bool `yaml:"periodic_sync"`
}

// StoreConfig — хранилище задач focus-api.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path,omitempty"` // для driver: file
	DSN    string `yaml:"dsn,omitempty"`  // для driver: postgres
}

// GatewayConfig — WebSocket шлюз focus-reminderd.
type GatewayConfig struct {
	// Origins — разрешённые Origin'ы (шаблоны path.Match), пусто — только same-origin.
	Origins      []string      `yaml:"origins,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
}

// SourceConfig — Task Source в focus-api.
type SourceConfig struct {
	// Horizon — 0: threshold + liveness_interval.
	Horizon time.Duration `yaml:"horizon,omitempty"`
}

// ServerConfig — HTTP сервер.
type ServerConfig struct {
	Port int `yaml:"port"`

	// CORSOrigins — для focus-api: разрешённые Origin'ы браузерного клиента.
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// Addr возвращает адрес для http.Server.
func (s ServerConfig) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}

// LogConfig — уровень и формат логов.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config — полная конфигурация.
type Config struct {
	Policy       reminder.Policy    `yaml:"policy"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
	Store        StoreConfig        `yaml:"store"`
	Gateway      GatewayConfig      `yaml:"gateway"`
	Source       SourceConfig       `yaml:"source"`

	RabbitMQURL string `yaml:"rabbitmq_url,omitempty"`

	API       ServerConfig `yaml:"api"`
	Reminderd ServerConfig `yaml:"reminderd"`
	Log       LogConfig    `yaml:"log"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	return Config{
		Policy: reminder.DefaultPolicy(),
		Store: StoreConfig{
			Driver: StorePostgres,
			Path:   "data/tasks.json",
		},
		API:       ServerConfig{Port: 8080},
		Reminderd: ServerConfig{Port: 8090},
		Log:       LogConfig{Level: "INFO", Format: "json"},
	}
}

// Example возвращает пример YAML-файла.
func Example() string {
	return exampleYAML
}

// Load читает конфигурацию с диска ОС и из окружения процесса.
func Load() (Config, error) {
	return LoadFrom(afero.NewOsFs(), os.Getenv(EnvConfigPath), os.LookupEnv)
}

// LoadFrom читает YAML из fsys (пустой path — без файла), применяет
// переменные окружения через lookup и проверяет результат.
func LoadFrom(fsys afero.Fs, path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return cfg, fmt.Errorf("config file %s not found", path)
			}
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return cfg, err
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv переопределяет значения переменными окружения.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	port := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a port", ErrInvalidConfig, key, v)
		}
		*dst = p
		return nil
	}

	str("DB_URL", &c.Store.DSN)
	str("RABBITMQ_URL", &c.RabbitMQURL)
	str("FOCUS_STORE", &c.Store.Driver)
	str("FOCUS_STORE_PATH", &c.Store.Path)
	str("FOCUS_TIMEZONE", &c.Policy.Timezone)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("FOCUS_PERIODIC_SYNC"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: FOCUS_PERIODIC_SYNC=%q", ErrInvalidConfig, v)
		}
		c.Capabilities.PeriodicSync = b
	}

	if err := port("API_PORT", &c.API.Port); err != nil {
		return err
	}
	return port("REMINDERD_PORT", &c.Reminderd.Port)
}

// Validate проверяет конфигурацию.
func (c Config) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return err
	}

	switch c.Store.Driver {
	case StorePostgres:
	case StoreFile:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: store.path is required for the file driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store.driver %q", ErrInvalidConfig, c.Store.Driver)
	}

	for name, p := range map[string]int{"api.port": c.API.Port, "reminderd.port": c.Reminderd.Port} {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("%w: %s %d out of range", ErrInvalidConfig, name, p)
		}
	}

	if c.Source.Horizon < 0 {
		return fmt.Errorf("%w: source.horizon must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ReminderCapabilities переводит секцию capabilities в reminder.Capabilities.
// Permission задаёт вызывающий: он знает о подключённых клиентах.
func (c Config) ReminderCapabilities() reminder.Capabilities {
	return reminder.Capabilities{PeriodicSync: c.Capabilities.PeriodicSync}
}
