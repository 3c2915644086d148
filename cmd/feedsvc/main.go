package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/tabletop-services/configs"
	"github.com/avvvet/tabletop-services/internal/feedsvc/broker"
	"github.com/avvvet/tabletop-services/internal/feedsvc/handlers"
	"github.com/avvvet/tabletop-services/internal/feedsvc/ws"
	natscli "github.com/avvvet/tabletop-services/internal/nats"
	settings "github.com/avvvet/tabletop-services/internal/tabletop/config"
)

const SERVICE_NAME = "feed"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg, err := settings.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Connect to NATS
	n, err := natscli.Connect(SERVICE_NAME+"_"+instanceId, cfg.NatsURL, cfg.NatsToken)
	if err != nil {
		log.Fatalf("Error: unable to connect to NATS server %v", err)
	}
	defer n.Conn.Close()
	log.Infof("NATS connection established successfully %s", n.Url)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.AllowedOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(c.Handler)
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	s := ws.NewWs()
	handlers.NewHandler(s, cfg.AllowedOrigins, cfg.FeedPort).SetRoutes(r)

	b := broker.NewBroker(n.Conn, s.Broadcast)
	sub, err := b.Subscribe(cfg.EventsSubject)
	if err != nil {
		log.Fatalf("Error: unable to subscribe to %s %v", cfg.EventsSubject, err)
	}

	// no write timeout, websocket connections are long lived
	server := &http.Server{
		Addr:        ":" + cfg.FeedPort,
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
