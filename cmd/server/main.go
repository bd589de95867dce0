package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Samicowest/bag-bot/internal/api"
	"github.com/Samicowest/bag-bot/internal/api/middleware"
	"github.com/Samicowest/bag-bot/internal/app"
	"github.com/Samicowest/bag-bot/internal/bot"
	"github.com/Samicowest/bag-bot/internal/config"
	"github.com/Samicowest/bag-bot/internal/service"
	"github.com/Samicowest/bag-bot/internal/websocket"
	"github.com/Samicowest/bag-bot/pkg/utils"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", utils.Err(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *utils.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инфраструктура: БД, репозитории, фабрика клиентов MEXC
	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.Migrate(ctx); err != nil {
		return err
	}

	// WebSocket hub
	hub := websocket.NewHub(middleware.AllowedOrigins(cfg.Server.CORSOrigins))
	go hub.Run()
	defer hub.Stop()

	// Торговое ядро
	scheduler := application.NewScheduler(hub)

	// Сервисы
	store := application.Store
	configService := service.NewConfigService(store.Configs, application.Factory, cfg)
	sessionService := service.NewSessionService(store.Sessions, store.Trades, scheduler)
	notificationService := service.NewNotificationService(store.Notifications)

	router := api.SetupRoutes(&api.Dependencies{
		ConfigService:       configService,
		SessionService:      sessionService,
		NotificationService: notificationService,
		Bot:                 scheduler,
		Stream:              hub.ServeWS,
		CORSOrigins:         cfg.Server.CORSOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // принудительный цикл ходит на биржу
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", utils.String("addr", server.Addr), utils.Bool("https", cfg.Server.UseHTTPS))
		var err error
		if cfg.Server.UseHTTPS {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if cfg.Bot.AutoStart {
		if err := scheduler.Start(ctx); err != nil {
			logger.Warn("Auto start skipped", utils.Err(err))
		}
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	}

	// Сначала бот: выполняющийся цикл доходит до конца
	if err := scheduler.Stop(); err != nil && !errors.Is(err, bot.ErrNotRunning) {
		logger.Warn("Bot scheduler stop failed", utils.Err(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}
