package main // Entry point package

import (
	"context" // Context for publish hooks and shutdown-free tickers
	"log"     // Logging library
	"time"    // Ticker intervals for the expiry sweep

	"github.com/joho/godotenv"    // Loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/railway-ticket-booking/internal/config"     // Internal config loader
	"github.com/iliyamo/railway-ticket-booking/internal/database"   // MySQL connection pool
	"github.com/iliyamo/railway-ticket-booking/internal/handler"    // HTTP handlers
	"github.com/iliyamo/railway-ticket-booking/internal/ledger"     // Seat inventory ledger
	"github.com/iliyamo/railway-ticket-booking/internal/middleware" // Response cache middleware
	"github.com/iliyamo/railway-ticket-booking/internal/model"      // Domain models
	"github.com/iliyamo/railway-ticket-booking/internal/payment"    // Gateway client and reconciler
	"github.com/iliyamo/railway-ticket-booking/internal/queue"      // Broker payloads and consumer
	"github.com/iliyamo/railway-ticket-booking/internal/repository" // DB repositories
	"github.com/iliyamo/railway-ticket-booking/internal/router"     // Route registration
	queue_publisher "github.com/iliyamo/railway-ticket-booking/internal/service" // Event publisher
	"github.com/iliyamo/railway-ticket-booking/internal/ticket"     // Ticket rendering and delivery
)

func main() {
	_ = godotenv.Load() // Load .env when present; real env vars win

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName) // Connect to MySQL
	if err != nil {
		log.Fatalf("database: %v", err) // Without a database nothing works
	}
	defer db.Close()

	// Repositories share the single connection pool.
	users := repository.NewUserRepo(db)
	trains := repository.NewTrainRepo(db)
	bookings := repository.NewBookingRepo(db)
	inventory := repository.NewInventoryRepo(db)
	payments := repository.NewPaymentRepo(db)

	led := ledger.New(trains, bookings, inventory, uint32(cfg.ConvenienceFee)) // All seat mutations go through the ledger

	// Ticket delivery: real SMTP when configured, log-only otherwise.
	var mailer ticket.Mailer = ticket.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = &ticket.SMTPMailer{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.MailFrom,
		}
	}
	dispatcher := ticket.NewDispatcher(mailer)

	gateway := payment.NewPaystackGateway(cfg.PaystackURL, cfg.PaystackSecret) // Paystack client

	reconciler := &payment.Reconciler{
		Payments:    payments,
		Bookings:    bookings,
		Trains:      trains,
		Gateway:     gateway,
		Tickets:     dispatcher,
		Retry:       ticket.DefaultRetryPolicy(),
		CallbackURL: cfg.CallbackURL,
		OnConfirmed: func(ctx context.Context, b *model.Booking) {
			// Broker publish failures never affect the confirmation.
			_ = queue_publisher.PublishBookingConfirmed(ctx, queue.EventFromBooking(b))
		},
	}

	e := echo.New() // Create Echo instance

	// Optional Redis response cache on public schedule reads.
	var cache echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	} else {
		log.Printf("redis unavailable; response cache disabled")
	}

	router.RegisterRoutes(e)                                                                        // Health check
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users), cfg.JWTSecret)                       // Register/login/me
	router.RegisterTrains(e, handler.NewTrainHandler(trains), cfg.JWTSecret, cache)                 // Schedule directory
	router.RegisterBookings(e, handler.NewBookingHandler(led, bookings), cfg.JWTSecret)             // Booking lifecycle
	router.RegisterPayments(e, handler.NewPaymentHandler(reconciler, payments, cfg.PaystackSecret), cfg.JWTSecret) // Gateway entry points
	router.RegisterTickets(e, handler.NewTicketHandler(bookings, trains, dispatcher), cfg.JWTSecret)               // Issued tickets

	// Background consumer logs confirmed bookings from the broker.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	// Periodic sweep releases seats held by unpaid bookings.
	go func() {
		ttl := time.Duration(cfg.PendingTTLMin) * time.Minute
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			// Per-booking failures are joined; the count still reflects
			// whatever the sweep managed to release.
			n, err := led.ExpireStale(context.Background(), time.Now().UTC().Add(-ttl))
			if err != nil {
				log.Printf("expiry sweep: %v", err)
			}
			if n > 0 {
				log.Printf("expiry sweep: released %d stale bookings", n)
			}
		}
	}()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
