package cmd

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"raffle-system/config"
	"raffle-system/internal/handlers"
	"raffle-system/internal/services"
	_ "raffle-system/migrations"
	"raffle-system/monitoring"
	"raffle-system/utils"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
	"github.com/robfig/cron/v3"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis (per-raffle reservation locks)
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	locks := redsync.New(goredis.NewPool(redisClient))

	// Initialize PubNub (optional, buyer notifications)
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" && cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	}

	monitor := monitoring.NewMonitor(redisClient)
	notifier := services.NewNotifier(pn)

	// Initialize services
	availabilityService := services.NewAvailabilityService()
	reservationService := services.NewReservationService(app, locks, monitor, cfg.ReservationTTL, cfg.LockTTL)
	purchaseService := services.NewPurchaseService(app, monitor)
	verificationService := services.NewVerificationService(app, notifier, monitor)

	// Initialize handlers
	raffleHandler := handlers.NewRaffleHandler(app, availabilityService)
	purchaseHandler := handlers.NewPurchaseHandler(app, reservationService, purchaseService)
	paymentHandler := handlers.NewPaymentHandler(app, verificationService)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Expiry sweep: lazy expiry keeps reads correct, the sweep persists it.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every "+cfg.SweepInterval.String(), func() {
		count, err := purchaseService.ExpireStale()
		if err != nil {
			slog.Error("Expiry sweep failed", "error", err)
			return
		}
		if count > 0 {
			slog.Info("Expiry sweep released purchases", "count", count)
		}
	}); err != nil {
		return err
	}

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Raffle endpoints
		e.Router.GET("/api/v1/raffles", raffleHandler.ListRaffles)
		e.Router.POST("/api/v1/raffles", raffleHandler.CreateRaffle)
		e.Router.GET("/api/v1/raffles/{raffleId}", raffleHandler.GetRaffle)
		e.Router.DELETE("/api/v1/raffles/{raffleId}", raffleHandler.DeleteRaffle)
		e.Router.GET("/api/v1/raffles/{raffleId}/availability", raffleHandler.GetAvailability)
		e.Router.GET("/api/v1/raffles/{raffleId}/manifest", raffleHandler.GetManifest)

		// Purchase endpoints
		e.Router.POST("/api/v1/purchases", purchaseHandler.Reserve)
		e.Router.GET("/api/v1/purchases", purchaseHandler.ListPurchases)
		e.Router.POST("/api/v1/purchases/{purchaseId}/cancel", purchaseHandler.Cancel)

		// Verification endpoints
		e.Router.POST("/api/v1/purchases/{purchaseId}/receipt", paymentHandler.UploadReceipt)
		e.Router.GET("/api/v1/verifications", paymentHandler.ListVerifications)
		e.Router.POST("/api/v1/verifications/{paymentId}/verify", paymentHandler.Verify)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		// Prometheus metrics
		if cfg.EnableMetrics {
			e.Router.GET("/metrics", func(e *core.RequestEvent) error {
				promhttp.Handler().ServeHTTP(e.Response, e.Request)
				return nil
			})
		}

		sweeper.Start()
		log.Println("Server routes registered")

		return e.Next()
	})

	// Setup graceful shutdown
	go handleShutdown(sweeper)

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

func handleShutdown(sweeper *cron.Cron) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	sweeper.Stop()
}
