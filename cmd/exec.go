package cmd

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"pass-system/config"
	"pass-system/internal/handlers"
	"pass-system/internal/notify"
	"pass-system/internal/scancode"
	"pass-system/internal/services"
	"pass-system/internal/services/gateway"
	"pass-system/internal/store"
	"pass-system/monitoring"
	"pass-system/security"
	"pass-system/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	_ "pass-system/migrations"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL)
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the payment gateway
	gw, err := gateway.New(ctx, gateway.Provider(cfg.GatewayProvider), &gateway.Config{
		Omise: gateway.OmiseConfig{
			PublicKey: cfg.OmisePublicKey,
			SecretKey: cfg.OmiseSecretKey,
			Currency:  cfg.Currency,
		},
	})
	if err != nil {
		return err
	}
	defer gw.Close(ctx)

	// Initialize PubNub
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)

	// Notification pipeline. A broker outage degrades to log-and-drop, it
	// never blocks issuance or review.
	publisher, err := notify.NewPublisher(cfg.AmqpURL)
	if err != nil {
		slog.Warn("amqp unavailable, event notifications disabled", "error", err)
		publisher = nil
	} else {
		defer publisher.Close()
	}
	dispatcher := notify.NewDispatcher(publisher)

	notifiers := []notify.Notifier{notify.NewMail(app)}
	if cfg.PubNubPublishKey != "" {
		notifiers = append(notifiers, notify.NewPubNub(pn))
	}
	if cfg.Environment == "development" {
		notifiers = append(notifiers, notify.NewConsole())
	}

	if publisher != nil {
		consumer, err := notify.NewConsumer(cfg.AmqpURL, "pass-notify", notify.WorkerBindings())
		if err != nil {
			slog.Warn("amqp consumer setup failed", "error", err)
		} else {
			defer consumer.Close()
			worker := notify.NewWorker(consumer, notifiers...)
			go func() {
				if err := worker.Run(ctx); err != nil {
					slog.Error("notify worker stopped", "error", err)
				}
			}()
		}
	}

	// Initialize services
	st := store.NewPB(app)
	pricing := services.Pricing{
		ContestantMinor: cfg.ContestantPrice,
		AudienceMinor:   cfg.AudiencePrice,
		Currency:        cfg.Currency,
	}
	issuanceService := services.NewIssuanceService(st, gw, dispatcher, redisClient, pricing)
	reviewService := services.NewReviewService(st, dispatcher)
	gateService := services.NewGateService(st)
	broadcastService := services.NewBroadcastService(st, notifiers...)
	reminderService := services.NewReminderService(st, dispatcher)

	// Initialize handlers
	registrationHandler := handlers.NewRegistrationHandler(app, issuanceService)
	paymentHandler := handlers.NewPaymentHandler(app, reviewService)
	gateHandler := handlers.NewGateHandler(app, gateService, &scancode.DefaultQRGenerator{})
	broadcastHandler := handlers.NewBroadcastHandler(app, broadcastService)

	rateLimiter := security.NewRateLimiter(redisClient)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Daily reminder sweep for verified but unused passes
	app.Cron().MustAdd("passReminders", cfg.ReminderCron, func() {
		claimed, err := reminderService.Sweep(context.Background())
		if err != nil {
			slog.Error("reminder sweep failed", "error", err)
			return
		}
		slog.Info("reminder sweep complete", "claimed", claimed)
	})

	if cfg.EnableMetrics {
		monitoring.NewMonitor(redisClient)
		go serveMetrics(cfg.MetricsPort)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Registration
		e.Router.POST("/api/v1/registrations", registrationHandler.CreateRegistration).
			BindFunc(rateLimiter.FloodGuard())

		// Payments and the review queue
		e.Router.GET("/api/v1/payments/{paymentId}", paymentHandler.GetPaymentDetails)
		e.Router.POST("/api/v1/payments/{paymentId}/proof", paymentHandler.AttachProof).
			BindFunc(rateLimiter.FloodGuard())
		e.Router.POST("/api/v1/payments/{paymentId}/approve", paymentHandler.ApprovePayment)
		e.Router.POST("/api/v1/payments/{paymentId}/reject", paymentHandler.RejectPayment)
		e.Router.GET("/api/v1/review-queue", paymentHandler.ListReviewQueue)

		// Gate
		e.Router.GET("/api/v1/gate/verify", gateHandler.VerifyCode)
		e.Router.POST("/api/v1/gate/admit", gateHandler.Admit)
		e.Router.GET("/api/v1/tickets/{code}/qr", gateHandler.TicketQR)

		// Admin
		e.Router.POST("/api/v1/admin/broadcast", broadcastHandler.SendBroadcast)

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

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		slog.Error("metrics server stopped", "error", err)
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
