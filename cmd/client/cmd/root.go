// cmd/client/cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"todoctl/cmd/client/cmd/types"
	"todoctl/internal/app/client"
	"todoctl/internal/app/client/config"
	"todoctl/internal/utils/logger"
)

var (
	cfgFile    string
	cfg        *config.Config
	log        *slog.Logger
	app        *client.App
	debug      bool
	jsonOutput bool
	serverURL  string
)

var rootCmd = &cobra.Command{
	Use:   "todoctl",
	Short: "todoctl - клиент трекера задач",
	Long: `todoctl работает с сервером задач: регистрация и вход,
список задач с поиском, фильтрами и постраничным выводом,
создание, изменение, удаление, экспорт и статистика.

Сессия хранится локально и переживает перезапуск.`,
	PersistentPreRunE: setupApp,
	PersistentPostRun: shutdownApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	err := run(ctx, os.Args[1:])
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run выполняет одну команду. PersistentPostRun не вызывается при ошибке,
// поэтому приложение останавливается здесь.
func run(ctx context.Context, args []string) error {
	defer shutdownApp(nil, nil)

	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func setupApp(cmd *cobra.Command, _ []string) error {
	// Загружаем конфигурацию
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Переопределяем настройки из флагов командной строки
	if serverURL != "" {
		cfg.ServerURL = strings.TrimRight(serverURL, "/")
	}

	// Без --debug в stderr попадают только предупреждения
	if debug {
		log = logger.New(cfg.Env)
	} else {
		log = logger.WithLevel(cfg.Env, slog.LevelWarn)
	}

	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app.Start(ctx)

	ctx = context.WithValue(ctx, types.ClientAppKey, app)
	ctx = context.WithValue(ctx, types.OptionsKey, types.Options{JSON: jsonOutput})
	cmd.SetContext(ctx)

	return nil
}

func shutdownApp(_ *cobra.Command, _ []string) {
	if app == nil {
		return
	}
	app.Shutdown()
	app = nil
}

func init() {
	// Глобальные флаги
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.todoctl/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log with the environment's level (debug for local and dev)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL, overrides SERVER_URL")
}
