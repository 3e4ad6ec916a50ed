package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stock-insight/src/config"
	"stock-insight/src/events"
	pb "stock-insight/src/grpc_control"
	"stock-insight/src/insight"
	"stock-insight/src/logger"
	"stock-insight/src/scheduler"
	"stock-insight/src/server"

	"go.uber.org/multierr"
)

// -----------------------------------------------------------------------------

func main() {

	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf, conf.Name)
	defer appLogger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 4. Setup Components
	db, err := setupDatabase(ctx, conf.MConfig, appLogger)
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}

	sources, err := setupDataSources(conf.MConfig, appLogger)
	if err != nil {
		appLogger.Critical("Failed to init data sources: %v", err)
	}

	predictor := setupPredictor(conf.MConfig, appLogger)
	sessions := setupSessions(ctx, conf.MConfig)
	publisher := events.NewPublisher(ctx, conf.MConfig, logger.NewLogger(conf, "Events"))

	svc := insight.NewService(conf.MConfig, logger.NewLogger(conf, "Insight"), sources, predictor, db, sessions, publisher)

	srv, err := server.NewInsightServer(conf.MConfig, logger.NewLogger(conf, "Server"), svc, db)
	if err != nil {
		appLogger.Critical("Failed to init server: %v", err)
	}
	svc.SetExchanger(srv)
	srv.SetWatchlistSource(conf.WatchlistSymbols)

	// 5. Watchlist
	var watchlist *scheduler.Watchlist
	var updater pb.WatchlistUpdater
	if conf.Watchlist.Enabled {
		watchlist = scheduler.NewWatchlist(ctx, conf.MConfig, svc, db, logger.NewLogger(conf, "Watchlist"))
		if err := watchlist.Register(); err != nil {
			appLogger.Critical("Failed to register watchlist: %v", err)
		}
		watchlist.Start()
		updater = watchlist
	}

	// 6. Start Servers
	grpcServer, err := startServers(srv, svc, updater, conf, *configPath, appLogger)
	if err != nil {
		appLogger.Critical("%v", err)
	}

	appLogger.Info("%s ready", conf.Name)
	<-ctx.Done()
	appLogger.Info("Shutting down...")

	// 7. Shutdown
	if watchlist != nil {
		watchlist.Stop()
	}
	grpcServer.GracefulStop()

	err = multierr.Combine(
		srv.Stop(),
		publisher.Close(),
		db.Close(),
	)
	if err != nil {
		appLogger.Error("Shutdown finished with errors: %v", err)
	}
}
