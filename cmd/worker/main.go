// Command worker consumes reservation events from the broker and appends
// them to the audit log.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/room-reservation/internal/config"
	"github.com/iliyamo/room-reservation/internal/logging"
	"github.com/iliyamo/room-reservation/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	logger, err := logging.New(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("logger")
	}
	log := logger.WithField("service", "audit-worker")

	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{
		URL:    cfg.AMQPURL,
		Writer: &queue.AuditWriter{Path: cfg.AuditLogPath},
		Log:    log,
	}
	log.WithFields(logrus.Fields{"queue": queue.ReservationQueue, "path": cfg.AuditLogPath}).Info("worker started")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("worker stopped")
		return
	}
	log.Info("worker stopped")
}
