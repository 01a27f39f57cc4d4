// Command seed loads demo accounts, rooms and a reservation.
package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/room-reservation/internal/app"
	"github.com/iliyamo/room-reservation/internal/config"
	"github.com/iliyamo/room-reservation/internal/logging"
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
	log := logger.WithField("service", "seed")
	if !cfg.UseMySQL() {
		log.Fatal("DB_HOST is required; seeding the in-memory store has no effect")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer a.Close()

	if err := a.Seed(ctx, time.Now().UTC()); err != nil {
		log.WithError(err).Fatal("seed failed")
	}
}
