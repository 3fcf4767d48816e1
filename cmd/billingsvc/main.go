package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/avvvet/gamegate-services/configs"
	"github.com/avvvet/gamegate-services/internal/billingsvc/audit"
	"github.com/avvvet/gamegate-services/internal/billingsvc/broker"
	"github.com/avvvet/gamegate-services/internal/billingsvc/db"
	handlers "github.com/avvvet/gamegate-services/internal/billingsvc/handlers"
	"github.com/avvvet/gamegate-services/internal/billingsvc/payment"
	"github.com/avvvet/gamegate-services/internal/billingsvc/service"
	"github.com/avvvet/gamegate-services/internal/billingsvc/store"
	nats "github.com/avvvet/gamegate-services/internal/nats"
	"github.com/avvvet/gamegate-services/internal/notify"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "billing"

var instanceId string

func init() {
	instanceId = "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {

	// pg connection
	dbpool, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer dbpool.Close()
	log.Printf("pg connection established successfully")

	gameStore := store.NewGameStore(dbpool)
	purchaseStore := store.NewPurchaseStore(dbpool)

	verifier := payment.NewStripeVerifier(
		os.Getenv("PAYMENT_CONFIRM_URL"),
		os.Getenv("PAYMENT_MOCK") == "true",
	)

	// Connect to NATS; billing events are best effort, the gateway still
	// serves decisions without the bus.
	var events *broker.Broker
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("unable to connect to NATS server, billing events disabled: %v", err)
	} else {
		defer n.Conn.Close()
		log.Printf("NATS connection established successfully %s", n.Url)
		events = broker.NewBroker(n.Conn)
	}

	// audit trail, also best effort
	var trail *audit.Trail
	if os.Getenv("MONGODB_URI") != "" {
		mongoDB, cancelMongo, err := audit.Connect()
		if err != nil {
			log.Errorf("unable to connect to mongo, audit trail disabled: %v", err)
		} else {
			defer cancelMongo()
			trail = audit.NewTrail(mongoDB)
			log.Printf("mongo connection established successfully")
		}
	}

	// ops alerting for reconciliation-required events
	var ops *notify.TelegramNotifier
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		chatIDs := []int64{}
		for _, raw := range strings.Split(os.Getenv("TELEGRAM_CHAT_IDS"), ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err == nil {
				chatIDs = append(chatIDs, id)
			}
		}
		ops, err = notify.NewTelegramNotifier(token, chatIDs)
		if err != nil {
			log.Errorf("unable to create telegram notifier: %v", err)
		}
	}

	billingService := service.NewBillingService(gameStore, purchaseStore, verifier, events, trail, ops)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(billingService)
	h.InitAuth()
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("BILLING_SERVICE_PORT"),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
