// Command sweep runs one payout sweep against the configured database and exits.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"happyinvest/internal/app"
	"happyinvest/internal/config"
	"happyinvest/internal/repositories"
	"happyinvest/internal/services/plan"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func main() {
	config.LoadEnv()
	config.InitLogger()

	settings := config.LoadSettings()
	flag.IntVar(&settings.SweepWorkers, "workers", settings.SweepWorkers, "concurrent users reconciled")
	flag.DurationVar(&settings.SweepTimeout, "timeout", settings.SweepTimeout, "upper bound for the whole sweep")
	flag.Parse()

	if err := run(settings); err != nil {
		log.WithError(err).Error("sweep failed")
		os.Exit(1)
	}
}

func run(settings config.Settings) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repositories.OpenPostgres()
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	catalog, err := plan.Load(settings.PlansFile)
	if err != nil {
		return err
	}

	container := app.Build(app.Options{
		Store:    repositories.NewGormStore(db),
		Catalog:  catalog,
		Settings: settings,
	})

	result, err := container.Scheduler.RunOnce(ctx)
	if err != nil {
		return err
	}
	if result.Failures > 0 {
		return errors.Errorf("%d records failed", result.Failures)
	}
	return nil
}
