package main // Entry point package

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/room-reservation/internal/app"
	"github.com/iliyamo/room-reservation/internal/config"
	"github.com/iliyamo/room-reservation/internal/logging"
)

func main() {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	logger, err := logging.New(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("logger")
	}
	log := logger.WithField("service", "room-reservation")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer a.Close()

	if err := a.Bootstrap(ctx); err != nil {
		log.WithError(err).Fatal("startup failed")
	}

	if err := a.Serve(ctx, a.Echo()); err != nil {
		log.WithError(err).Error("server stopped")
		return
	}
	log.Info("shutdown complete")
}
