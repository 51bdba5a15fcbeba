package client

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"todoctl/internal/app/client/cache"
	"todoctl/internal/app/client/config"
	"todoctl/internal/app/client/metrics"
	"todoctl/internal/app/client/todos"
	"todoctl/internal/domain/session"
	"todoctl/internal/domain/todo"
	"todoctl/internal/domain/user"
	"todoctl/internal/infrastructure/storage"
)

// Сообщения по умолчанию, когда сервер не прислал detail.
const (
	MsgLoginFailed        = "Login failed"
	MsgRegistrationFailed = "Registration failed"
	MsgLoadFailed         = "Failed to load todos"
	MsgCreateFailed       = "Failed to create todo"
	MsgUpdateFailed       = "Failed to update todo"
	MsgDeleteFailed       = "Failed to delete todo"
	MsgExportFailed       = "Failed to export todos"
)

const userKey = "me"

// App - координатор сессии: хранилище, REST клиент, кэши и роутер.
type App struct {
	config    *config.Config
	log       *slog.Logger
	metrics   *metrics.Metrics
	storage   storage.Backend
	durable   bool
	session   *session.Store
	router    *session.Router
	api       *httpClient
	todos     *todos.Coordinator
	users     *cache.Cache[*user.User]
	validator user.Validator

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	wg          gosync.WaitGroup
	mu          gosync.Mutex
	closed      bool
}

// New открывает хранилище сессии (SQLite или память) и собирает приложение.
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	backend, durable := storage.Open(cfg.DataPath, log)
	return NewWithStorage(cfg, backend, durable, log)
}

// NewWithStorage собирает приложение поверх готового хранилища.
func NewWithStorage(cfg *config.Config, backend storage.Backend, durable bool, log *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := metrics.New()

	a := &App{
		config:    cfg,
		log:       log.With(slog.String("component", "app")),
		metrics:   m,
		storage:   backend,
		durable:   durable,
		validator: user.NewPasswordValidator(),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.session = session.NewStore(ctx, backend, log)
	a.api = NewHTTPClient(cfg, a.session.Token, m, log)
	// общий запрос ограничен сверху: все попытки с паузами между ними
	fetchTimeout := cfg.RequestTimeout * time.Duration(cfg.QueryRetries+1)
	a.todos = todos.NewCoordinator(a.api, cfg.StaleTime, fetchTimeout, m, log)
	a.users = cache.New[*user.User]("user", cfg.UserStaleTime,
		cache.WithMetrics[*user.User](m),
		cache.WithFetchTimeout[*user.User](fetchTimeout),
	)
	a.router = session.NewRouter(a.session, session.PathRoot, func(path string) {
		a.log.Debug("Переход", slog.String("path", path))
	})

	a.unsubscribe = a.session.Subscribe(func(st session.State) {
		if st.IsAuthenticated && st.User == nil {
			a.refreshUserAsync()
		}
	})

	if a.session.IsAuthenticated() {
		a.log.Debug("Сессия восстановлена из хранилища", slog.Bool("durable", durable))
	}
	return a, nil
}

// Start запускает фоновое обновление профиля, если токен есть, а пользователя нет.
func (a *App) Start(ctx context.Context) {
	if ctx.Err() != nil || !a.session.IsAuthenticated() || !a.users.Stale(userKey) {
		return
	}
	a.refreshUserAsync()
}

// Login обменивает учетные данные на токен. Сессия меняется только при успехе.
func (a *App) Login(ctx context.Context, creds user.Credentials) error {
	if err := a.validator.ValidateCredentials(creds); err != nil {
		return err
	}

	tok, err := a.api.Login(ctx, creds)
	a.metrics.Auth("login", err)
	if err != nil {
		a.log.Info("Вход не выполнен", slog.String("username", creds.Username), slog.String("error", err.Error()))
		return err
	}

	// профиль прошлого пользователя не должен пережить смену токена
	a.users.Clear()
	if err = a.session.SetAuth(ctx, tok.AccessToken, nil); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	a.todos.Invalidate()
	a.router.Navigate(session.PathRoot)

	a.log.Info("Вход выполнен успешно", slog.String("username", creds.Username))
	return nil
}

// Register создает аккаунт, но не авторизует: дальше нужен Login.
func (a *App) Register(ctx context.Context, req user.RegisterRequest) (*user.User, error) {
	if err := a.validator.ValidateRegister(req); err != nil {
		return nil, err
	}

	u, err := a.api.Register(ctx, req)
	a.metrics.Auth("register", err)
	if err != nil {
		return nil, err
	}

	a.router.Navigate(session.PathLogin)
	a.log.Info("Пользователь успешно зарегистрирован", slog.String("username", u.Username))
	return u, nil
}

// Logout синхронно сбрасывает кэши и сессию.
func (a *App) Logout(ctx context.Context) error {
	a.todos.Reset()
	a.users.Clear()

	err := a.session.ClearAuth(ctx)
	a.router.Navigate(session.PathLogin)
	if err != nil {
		return err
	}

	a.log.Info("Выход выполнен")
	return nil
}

// CurrentUser возвращает профиль из кэша или с сервера. Ошибка загрузки
// не разлогинивает: токен остается, пользователь просто не обновлен.
func (a *App) CurrentUser(ctx context.Context) (*user.User, error) {
	if !a.session.IsAuthenticated() {
		return nil, ErrUnauthorized
	}

	u, err := a.users.Get(ctx, userKey, func(ctx context.Context) (*user.User, error) {
		return a.api.Me(ctx)
	})
	if err != nil {
		if ctx.Err() == nil {
			a.log.Warn("Не удалось загрузить профиль пользователя", slog.String("error", err.Error()))
		}
		return nil, err
	}

	if err = a.session.SetUser(ctx, u); err != nil {
		if errors.Is(err, session.ErrNoToken) {
			return nil, ErrUnauthorized
		}
		a.log.Warn("Не удалось сохранить профиль пользователя", slog.String("error", err.Error()))
	}
	return u, nil
}

// RequireAuth возвращает ErrUnauthorized, если guard отправил бы сессию на /login.
func (a *App) RequireAuth() error {
	if _, redirect := session.Guard(session.PathRoot, a.session.IsAuthenticated()); redirect {
		return ErrUnauthorized
	}
	return nil
}

// NewBrowser создает интерактивный список с запросом по умолчанию.
func (a *App) NewBrowser(ctx context.Context, publish func(todos.Snapshot)) *todos.Browser {
	q := todo.DefaultQuery().WithLimit(a.config.PageSize)
	return todos.NewBrowser(ctx, a.todos, q, a.config.SearchDebounce, publish, a.log)
}

func (a *App) Health(ctx context.Context) error {
	return a.api.HealthCheck(ctx)
}

// Claims декодирует текущий токен для вывода.
func (a *App) Claims() (session.Claims, bool) {
	return session.ParseClaims(a.session.Token())
}

func (a *App) Session() *session.Store   { return a.session }
func (a *App) Router() *session.Router   { return a.router }
func (a *App) Todos() *todos.Coordinator { return a.todos }
func (a *App) Config() *config.Config    { return a.config }
func (a *App) Metrics() *metrics.Metrics { return a.metrics }
func (a *App) Durable() bool             { return a.durable }

// Shutdown дожидается фоновых задач и закрывает хранилище. Повторный вызов ничего не делает.
func (a *App) Shutdown() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.log.Debug("Завершение работы клиента...")

	a.unsubscribe()
	a.cancel()
	a.wg.Wait()

	a.metrics.Log(a.log)

	if err := a.storage.Close(); err != nil {
		a.log.Warn("Ошибка закрытия хранилища", slog.String("error", err.Error()))
	}
	a.log.Debug("Клиент завершил работу")
}

func (a *App) refreshUserAsync() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(a.ctx, a.config.RequestTimeout)
		defer cancel()

		if _, err := a.CurrentUser(ctx); err != nil {
			a.log.Debug("Фоновое обновление профиля не удалось", slog.String("error", err.Error()))
		}
	}()
}
