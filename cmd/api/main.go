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

	_ "carwash/api/swagger" // swagger docs
	"carwash/internal/cache"
	"carwash/internal/config"
	"carwash/internal/database"
	"carwash/internal/handler"
	"carwash/internal/middleware"
	"carwash/internal/pricing"
	"carwash/internal/repository"
	"carwash/internal/scheduler"
	"carwash/internal/service"
	"carwash/internal/webhook"
	"carwash/internal/websocket"
	"carwash/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"
)

// Version is set at build time through ldflags.
var Version = "dev"

// @title           Car Wash API
// @version         1.0
// @description     Scheduling, pricing, discounts, bookings, appointments, worker ledger and stock of car washes.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cmd := &cli.Command{
		Name:    "carwash",
		Usage:   "car wash operations backend",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config.yaml (defaults to ./config.yaml or ./configs/config.yaml)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, db, err := bootstrap(cmd.String("config"))
					if err != nil {
						return err
					}
					return serve(ctx, cfg, db)
				},
			},
			{
				Name:  "migrate",
				Usage: "create or update the database schema",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					_, db, err := bootstrap(cmd.String("config"))
					if err != nil {
						return err
					}
					if err := database.Migrate(db); err != nil {
						return err
					}
					logger.Infof("Schema is up to date.")
					return nil
				},
			},
		},
		DefaultCommand: "serve",
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("%v", err)
	}
}

func bootstrap(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Setup(logger.Options{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	db, err := database.NewConnection(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	logger.Infof("Connected to %s database.", cfg.Database.Driver)
	return cfg, db, nil
}

func serve(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	secret := []byte(cfg.JWT.Secret)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	stop := make(chan struct{})
	defer close(stop)
	go wsHub.Run(stop)

	// Repositories
	txManager := repository.NewTransactionManager(db)
	carWashRepo := repository.NewCarWashRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	promoRepo := repository.NewPromoRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	workerRepo := repository.NewWorkerRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	productRepo := repository.NewProductRepository(db)
	stockRepo := repository.NewStockLedgerRepository(db)

	// Core
	memCache := cache.NewMemory(cfg.Cache.Cleanup)
	calculator := pricing.NewCalculator(catalogRepo, memCache)
	slots := scheduler.New(repository.NewScheduleSource(carWashRepo, appointmentRepo, bookingRepo), nil)
	sender := webhook.NewSender(cfg.Webhook.URL, cfg.Webhook.Secret, cfg.Webhook.Timeout)
	if sender.Enabled() {
		logger.Infof("Appointment webhook enabled: %s", cfg.Webhook.URL)
	}

	// Services
	discountService := service.NewDiscountService(carWashRepo, discountRepo, statsRepo, memCache, nil)
	usageService := service.NewDiscountUsageService(discountRepo, txManager)
	promoService := service.NewPromoService(promoRepo, auditRepo, nil)
	quoteService := service.NewQuoteService(calculator, carWashRepo, discountService, promoService)
	stockService := service.NewStockService(productRepo, stockRepo, auditRepo, txManager)
	ledgerService := service.NewLedgerService(carWashRepo, workerRepo, ledgerRepo, auditRepo, txManager, nil)
	bookingService := service.NewBookingService(bookingRepo, auditRepo, txManager, calculator, quoteService, usageService, promoService, wsHub, nil)
	appointmentService := service.NewAppointmentService(service.AppointmentDeps{
		AppointmentRepo: appointmentRepo,
		BookingRepo:     bookingRepo,
		CarWashRepo:     carWashRepo,
		WorkerRepo:      workerRepo,
		AuditRepo:       auditRepo,
		TxManager:       txManager,
		Calculator:      calculator,
		Discounts:       discountService,
		Usage:           usageService,
		Stock:           stockService,
		Ledger:          ledgerService,
		Bookings:        bookingService,
		Notifier:        wsHub,
		Webhook:         sender,
	})
	catalogService := service.NewCatalogService(catalogRepo, discountRepo, auditRepo, calculator, discountService)
	auditService := service.NewAuditService(auditRepo)

	publicLimit, err := middleware.RateLimit(cfg.RateLimit.Public)
	if err != nil {
		return err
	}

	// Set up Gin Router
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(middleware.Logger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, secret)
	})

	api := router.Group("")
	handler.NewScheduleHandler(slots, publicLimit, time.Local).RegisterRoutes(api)
	handler.NewPricingHandler(quoteService, publicLimit).RegisterRoutes(api)
	handler.NewBookingHandler(bookingService, secret).RegisterRoutes(api)
	handler.NewAppointmentHandler(appointmentService, secret).RegisterRoutes(api)
	handler.NewDiscountHandler(appointmentService, usageService, secret).RegisterRoutes(api)
	handler.NewWorkerHandler(ledgerService, secret).RegisterRoutes(api)
	handler.NewInventoryHandler(stockService, secret).RegisterRoutes(api)
	handler.NewCatalogHandler(catalogService, secret).RegisterRoutes(api)
	handler.NewAuditHandler(auditService, secret).RegisterRoutes(api)

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-sigCtx.Done():
	}

	logger.Infof("Shutting down...")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	return srv.Shutdown(shutdownCtx)
}
