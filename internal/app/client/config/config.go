package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	defaultEnv              = EnvLocal
	defaultServerURL        = "http://localhost:8000"
	defaultConfigDir        = ".todoctl"
	defaultDataFile         = "session.db"
	defaultRequestTimeout   = 30
	defaultQueryRetries     = 2
	defaultRetryBaseDelayMS = 200
	defaultStaleTime        = 300
	defaultUserStaleTime    = 300
	defaultSearchDebounceMS = 300
	defaultPageSize         = 10
)

type Config struct {
	Env            string
	ServerURL      string
	ConfigDir      string
	DataPath       string
	RequestTimeout time.Duration
	QueryRetries   int
	RetryBaseDelay time.Duration
	StaleTime      time.Duration
	UserStaleTime  time.Duration
	SearchDebounce time.Duration
	PageSize       int
}

// Load собирает конфигурацию клиента: значения по умолчанию, .env,
// необязательный YAML-файл и переменные окружения (в порядке возрастания приоритета).
// configFile может быть пустым; тогда ищется config.yaml в CONFIG_DIR и в текущей директории.
func Load(configFile string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("APP_ENV", defaultEnv)
	v.SetDefault("SERVER_URL", defaultServerURL)
	v.SetDefault("CONFIG_DIR", defaultConfigDir)
	v.SetDefault("DATA_PATH", "")
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", defaultRequestTimeout)
	v.SetDefault("QUERY_RETRIES", defaultQueryRetries)
	v.SetDefault("RETRY_BASE_DELAY_MS", defaultRetryBaseDelayMS)
	v.SetDefault("STALE_TIME_SECONDS", defaultStaleTime)
	v.SetDefault("USER_STALE_TIME_SECONDS", defaultUserStaleTime)
	v.SetDefault("SEARCH_DEBOUNCE_MS", defaultSearchDebounceMS)
	v.SetDefault("PAGE_SIZE", defaultPageSize)

	configDir, err := resolveConfigDir(v.GetString("CONFIG_DIR"))
	if err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// Конфиг не найден, используем значения по умолчанию
	}

	dataPath := v.GetString("DATA_PATH")
	if dataPath == "" {
		dataPath = filepath.Join(configDir, defaultDataFile)
	}

	cfg := &Config{
		Env:            v.GetString("APP_ENV"),
		ServerURL:      strings.TrimRight(v.GetString("SERVER_URL"), "/"),
		ConfigDir:      configDir,
		DataPath:       dataPath,
		RequestTimeout: time.Duration(v.GetInt("REQUEST_TIMEOUT_SECONDS")) * time.Second,
		QueryRetries:   v.GetInt("QUERY_RETRIES"),
		RetryBaseDelay: time.Duration(v.GetInt("RETRY_BASE_DELAY_MS")) * time.Millisecond,
		StaleTime:      time.Duration(v.GetInt("STALE_TIME_SECONDS")) * time.Second,
		UserStaleTime:  time.Duration(v.GetInt("USER_STALE_TIME_SECONDS")) * time.Second,
		SearchDebounce: time.Duration(v.GetInt("SEARCH_DEBOUNCE_MS")) * time.Millisecond,
		PageSize:       v.GetInt("PAGE_SIZE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad загружает конфигурацию клиента и паникует при ошибке
func MustLoad() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

// ErrConfigExists возвращается Save, если config.yaml уже есть.
var ErrConfigExists = errors.New("config file already exists")

// Save пишет текущие настройки в config.yaml внутри ConfigDir.
// Существующий файл не перезаписывается.
func (c *Config) Save() (string, error) {
	v := viper.New()
	v.Set("app_env", c.Env)
	v.Set("server_url", c.ServerURL)
	v.Set("request_timeout_seconds", int(c.RequestTimeout/time.Second))
	v.Set("query_retries", c.QueryRetries)
	v.Set("retry_base_delay_ms", int(c.RetryBaseDelay/time.Millisecond))
	v.Set("stale_time_seconds", int(c.StaleTime/time.Second))
	v.Set("user_stale_time_seconds", int(c.UserStaleTime/time.Second))
	v.Set("search_debounce_ms", int(c.SearchDebounce/time.Millisecond))
	v.Set("page_size", c.PageSize)

	path := filepath.Join(c.ConfigDir, "config.yaml")
	if err := v.SafeWriteConfigAs(path); err != nil {
		var exists viper.ConfigFileAlreadyExistsError
		if errors.As(err, &exists) {
			return path, ErrConfigExists
		}
		return "", fmt.Errorf("write config file: %w", err)
	}
	return path, nil
}

func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url must not be empty")
	}
	if !strings.HasPrefix(c.ServerURL, "http://") && !strings.HasPrefix(c.ServerURL, "https://") {
		return fmt.Errorf("server_url must start with http:// or https://, got %q", c.ServerURL)
	}
	if c.QueryRetries < 0 {
		return fmt.Errorf("query_retries must not be negative")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout_seconds must be positive")
	}
	if c.DataPath == "" {
		return fmt.Errorf("data_path must not be empty")
	}
	return nil
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}

func loadDotEnv() {
	// Определяем путь к .env файлу (относительно места запуска)
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}

	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Fprintf(os.Stderr, "Ошибка загрузки .env файла: %v\n", err)
		}
	}
}

func resolveConfigDir(dir string) (string, error) {
	if dir == defaultConfigDir {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}
		dir = filepath.Join(homeDir, dir)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create config dir %s: %w", dir, err)
	}
	return dir, nil
}
