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

	config "github.com/avvvet/tabletop-services/configs"
	natscli "github.com/avvvet/tabletop-services/internal/nats"
	"github.com/avvvet/tabletop-services/internal/tabletop/broker"
	settings "github.com/avvvet/tabletop-services/internal/tabletop/config"
	"github.com/avvvet/tabletop-services/internal/tabletop/handlers"
	"github.com/avvvet/tabletop-services/internal/tabletop/service"
	"github.com/avvvet/tabletop-services/internal/tabletop/store"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "tabletop"

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

	ctx := context.Background()

	st, err := store.Open(ctx, cfg.Store())
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StorageKind, err)
	}
	defer st.Close()
	log.Infof("%s store ready", cfg.StorageKind)

	// events are best effort, the service runs without NATS
	var publisher service.EventPublisher
	n, err := natscli.Connect(SERVICE_NAME+"_"+instanceId, cfg.NatsURL, cfg.NatsToken)
	if err != nil {
		log.Warnf("NATS unavailable, events will not be published: %v", err)
	} else {
		defer n.Conn.Close()
		log.Infof("NATS connection established successfully %s", n.Url)
		publisher = broker.NewBroker(n.Conn, cfg.EventsSubject, instanceId)
	}

	catalog, err := service.NewCatalogService(ctx, st, publisher)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	sessions := service.NewSessionService(st, catalog, publisher)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.AllowedOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	h := handlers.NewHandler(catalog, sessions, cfg.RecentLimit, cfg.ServicePort)
	h.SetRoutes(r)

	server := &http.Server{
		Addr:         ":" + cfg.ServicePort,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
