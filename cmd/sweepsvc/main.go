package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/tabletop-services/configs"
	natscli "github.com/avvvet/tabletop-services/internal/nats"
	"github.com/avvvet/tabletop-services/internal/tabletop/broker"
	settings "github.com/avvvet/tabletop-services/internal/tabletop/config"
	"github.com/avvvet/tabletop-services/internal/tabletop/service"
	"github.com/avvvet/tabletop-services/internal/tabletop/store"
)

const SERVICE_NAME = "sweep"

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
	if cfg.StorageKind == store.KindMemory {
		log.Fatalf("sweep service needs a shared store, STORAGE_KIND is %s", cfg.StorageKind)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store())
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StorageKind, err)
	}
	defer st.Close()

	var publisher service.EventPublisher
	n, err := natscli.Connect(SERVICE_NAME+"_"+instanceId, cfg.NatsURL, cfg.NatsToken)
	if err != nil {
		log.Warnf("NATS unavailable, session.closed events will not be published: %v", err)
	} else {
		defer n.Conn.Close()
		log.Infof("NATS connection established successfully %s", n.Url)
		publisher = broker.NewBroker(n.Conn, cfg.EventsSubject, instanceId)
	}

	// sweeping never records sessions, so no catalog is needed
	sessions := service.NewSessionService(st, nil, publisher)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	log.Infof("%s service running every %s", SERVICE_NAME, cfg.SweepInterval)

	for {
		sweep(ctx, sessions)

		select {
		case <-ctx.Done():
			log.Infof("%s service gracefully stopped", SERVICE_NAME)
			return
		case <-ticker.C:
		}
	}
}

func sweep(ctx context.Context, sessions *service.SessionService) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	closed, err := sessions.SweepStatuses(runCtx)
	if err != nil {
		log.Errorf("sweep error after closing %d session(s): %v", closed, err)
	}
}
