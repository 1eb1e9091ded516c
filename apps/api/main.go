package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	dig_container "github.com/trezcool/masomo-console/apps/api/di/dig"
	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/services/scheduler"
	inmemdb "github.com/trezcool/masomo-console/storage/database/inmem"
)

func main() {
	c := dig_container.New(core.NewConfig)
	must(c.Invoke(run))
}

func run(app dig_container.App) {
	conf, logger := app.Conf, app.Logger

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	if err := loadData(app); err != nil {
		logger.Fatal(fmt.Sprintf("loading data: %v", err), err)
	}
	defer closeStorage(app)

	// =========================================================================
	// Start Scheduler

	sched := app.Scheduler
	must(sched.Add("monthly-reset", conf.Scheduler.MonthlyReset, scheduler.MonthlyReset(app.InvigilationSvc, logger)))
	if app.Snapshots != nil {
		must(sched.Add("snapshot", conf.Scheduler.Snapshot, scheduler.SaveSnapshot(app.DB, app.Snapshots)))
	}
	sched.Start()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics of the API.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("engine").Set(conf.Database.Engine)
	http.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := app.Server
	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
		sched.Stop(ctx)
	}
}

// loadData restores the last snapshot, or seeds the demo fixtures into an empty database.
func loadData(app dig_container.App) error {
	if app.Snapshots != nil {
		snap, ok, err := app.Snapshots.Load()
		if err != nil {
			return errors.Wrap(err, "loading snapshot")
		}
		if ok {
			app.DB.Restore(snap)
			app.Logger.Info(fmt.Sprintf("restored snapshot from %s", app.Conf.Database.SnapshotPath))
			return nil
		}
	}

	if app.Conf.Database.SeedOnStart && app.DB.IsEmpty() {
		if err := inmemdb.Seed(app.DB); err != nil {
			return errors.Wrap(err, "seeding database")
		}
		app.Logger.Info("seeded the demo data")
	}
	return nil
}

func closeStorage(app dig_container.App) {
	if app.Snapshots != nil {
		if err := app.Snapshots.Save(app.DB.Snapshot()); err != nil {
			app.DBLogger.Error(fmt.Sprintf("saving snapshot: %v", err), err)
		}
		if err := app.Snapshots.Close(); err != nil {
			app.DBLogger.Error(fmt.Sprintf("closing snapshot store: %v", err), err)
		}
	}
	if app.SQL != nil {
		if err := app.SQL.Close(); err != nil {
			app.DBLogger.Fatal("Failed to close", err)
		}
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
