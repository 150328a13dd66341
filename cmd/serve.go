package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sow2grow/ms-go-bestowals/app/auth"
	"github.com/sow2grow/ms-go-bestowals/app/controller"
	"github.com/sow2grow/ms-go-bestowals/app/provider"
	"github.com/sow2grow/ms-go-bestowals/app/repository"
	"github.com/sow2grow/ms-go-bestowals/app/service"
	"github.com/sow2grow/ms-go-bestowals/app/types"
	"github.com/sow2grow/ms-go-bestowals/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the Echo HTTP server for bestowal orders, provider webhooks, and escrow release.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, bestowalService, cleanup := mustCreateBestowalService()
	defer cleanup()

	bestowalController := controller.NewBestowalController(bestowalService)
	webhookController := controller.NewWebhookController(bestowalService)
	escrowController := controller.NewEscrowController(bestowalService)
	verifier := auth.NewVerifier(cfg.App.AuthSecret)

	e := setupHTTPServer(bestowalController, webhookController, escrowController, verifier)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	bestowalController *controller.BestowalController,
	webhookController *controller.WebhookController,
	escrowController *controller.EscrowController,
	verifier *auth.Verifier,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(requireRequestID())

	e.GET("/health", bestowalController.Health)

	bearer := verifier.RequireBearer()

	bestowals := e.Group("/bestowals", bearer)
	bestowals.POST("", bestowalController.CreateBestowal)
	bestowals.GET("/:orderRef", bestowalController.GetBestowal)

	// Provider webhooks authenticate through their own signature scheme.
	webhooks := e.Group("/webhooks")
	webhooks.POST("/binance", webhookController.HandleBinanceWebhook)
	webhooks.POST("/cryptomus", webhookController.HandleCryptomusWebhook)

	escrow := e.Group("/escrow", bearer, auth.RequireRoles(auth.RoleCourier, auth.RoleGosat, auth.RoleAdmin))
	escrow.POST("/release", escrowController.ReleaseEscrow)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			// Webhook deliveries come from the providers and carry no
			// request id of ours.
			if strings.HasPrefix(ctx.Request().URL.Path, "/webhooks/") {
				return next(ctx)
			}
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func mustCreateBestowalService() (*config.Config, *service.BestowalService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	bestowalRepo := repository.NewBestowalRepository(db)
	orchardRepo := repository.NewOrchardRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	balanceRepo := repository.NewWalletBalanceRepository(db)
	webhookRepo := repository.NewWebhookEventRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	transactionRepo := repository.NewPaymentTransactionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	binanceProvider := provider.NewBinancePayProvider(provider.BinancePayConfig{
		APIKey:                    cfg.BinancePay.APIKey,
		APISecret:                 cfg.BinancePay.APISecret,
		BaseURL:                   cfg.BinancePay.BaseURL,
		SignatureToleranceSeconds: cfg.BinancePay.SignatureToleranceSeconds,
		HTTPTimeout:               cfg.BinancePay.HTTPTimeout,
	})
	cryptomusProvider := provider.NewCryptomusProvider(provider.CryptomusConfig{
		MerchantID:    cfg.Cryptomus.MerchantID,
		PaymentAPIKey: cfg.Cryptomus.PaymentAPIKey,
		PayoutAPIKey:  cfg.Cryptomus.PayoutAPIKey,
		BaseURL:       cfg.Cryptomus.BaseURL,
		HTTPTimeout:   cfg.Cryptomus.HTTPTimeout,
	})

	providerRegistry := provider.NewRegistry(binanceProvider, cryptomusProvider)
	bestowalService := service.NewBestowalService(
		bestowalRepo,
		orchardRepo,
		walletRepo,
		balanceRepo,
		webhookRepo,
		idempotencyRepo,
		transferRepo,
		transactionRepo,
		notificationRepo,
		providerRegistry,
		cfg.Distribution,
		cfg.Notifications,
		cfg.Jobs,
	)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, bestowalService, cleanup
}
