package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brpay/pix-gateway/internal"
	"github.com/brpay/pix-gateway/internal/acquirer"
	"github.com/brpay/pix-gateway/internal/auth"
	authpostgres "github.com/brpay/pix-gateway/internal/auth/postgres"
	"github.com/brpay/pix-gateway/internal/core/events"
	"github.com/brpay/pix-gateway/internal/notification"
	"github.com/brpay/pix-gateway/internal/reconciler"
	"github.com/brpay/pix-gateway/internal/transaction"
	transactionpostgres "github.com/brpay/pix-gateway/internal/transaction/postgres"
	"github.com/brpay/pix-gateway/internal/transport"
	"github.com/brpay/pix-gateway/internal/transport/rest"
	"github.com/brpay/pix-gateway/internal/user"
	userpostgres "github.com/brpay/pix-gateway/internal/user/postgres"
	"github.com/brpay/pix-gateway/internal/wallet"
	walletpostgres "github.com/brpay/pix-gateway/internal/wallet/postgres"
	"github.com/brpay/pix-gateway/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests and acquirer callbacks`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config         *internal.Config
	DB             *sqlx.DB
	Router         *chi.Mux
	AcquirerClient *acquirer.Client
	Logger         *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		deps.AcquirerClient.Shutdown()
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// gorm shares the pgx pool sqlx opened, so both see one connection limit.
	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	eventBus := events.NewEventBus(lg)

	webhookURL := config.Acquirer.WebhookURL
	if webhookURL == "" {
		webhookURL = config.Server.BaseURL + "/api/v1/pix/callback"
	}
	acquirerClient := acquirer.NewClient(acquirer.Config{
		APIURL:         config.Acquirer.APIURL,
		APIKey:         config.Acquirer.APIKey,
		WebhookURL:     webhookURL,
		WebhookSecret:  config.Acquirer.WebhookSecret,
		RequestTimeout: config.Acquirer.RequestTimeout,
		MaxWorkers:     config.Acquirer.MaxWorkers,
		JobQueueSize:   config.Acquirer.JobQueueSize,
		Simulate:       config.Acquirer.Simulate,
	}, lg)

	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authpostgres.NewRepository(gormDB), tokenGen, config.Security.BCryptCost)
	authHandler := auth.NewHandler(authService)

	userService := user.NewService(userpostgres.NewUserRepository(gormDB), lg)
	userHandler := user.NewHandler(userService)

	transactionService := transaction.NewService(
		transactionpostgres.NewTransactionRepository(gormDB),
		acquirerClient,
		config.Acquirer.ChargeExpiry,
		lg,
	).WithEventBus(eventBus)
	transactionHandler := transaction.NewHandler(transactionService)

	walletService := wallet.NewService(walletpostgres.NewWalletRepository(gormDB), lg)
	walletHandler := wallet.NewHandler(walletService)

	reconcilerService := reconciler.NewService(transactionService, walletService, eventBus, lg)
	webhookHandler := reconciler.NewWebhookHandler(
		transport.NewBaseHandler(lg),
		reconcilerService,
		transactionService,
		config.Acquirer.WebhookSecret,
		lg,
	)

	mailer := notification.NewMailer(notification.MailerConfig{
		APIURL:      config.Mailer.APIURL,
		APIKey:      config.Mailer.APIKey,
		FromAddress: config.Mailer.FromAddress,
		SendTimeout: config.Mailer.SendTimeout,
		Enabled:     config.Mailer.Enabled,
	}, lg)
	notificationHandler := notification.NewEventHandler(mailer, userService, lg)
	notificationHandler.RegisterEventHandlers(eventBus)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, config.Server.AllowedOrigins, authHandler, userHandler, transactionHandler, walletHandler, webhookHandler, lg)

	return &Dependencies{
		Config:         config,
		Logger:         lg,
		DB:             db,
		Router:         router,
		AcquirerClient: acquirerClient,
	}, nil
}

func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
