package main

import (
	"context"
	"time"

	datasource "stock-insight/src/data_source"
	"stock-insight/src/interfaces"
	"stock-insight/src/logger"
	"stock-insight/src/models"
	"stock-insight/src/network"
	"stock-insight/src/prediction"
	"stock-insight/src/session"
	"stock-insight/src/storage"
)

// -----------------------------------------------------------------------------

// setupDatabase opens the journal selected by storage.db_type.
func setupDatabase(ctx context.Context, config *models.MConfig, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	db, err := storage.NewDatabase(config, logger.NewLogger(config, "Storage"))
	if err != nil {
		return nil, err
	}

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.Initialize(initCtx); err != nil {
		return nil, err
	}
	appLogger.Info("Journal backend: %s", config.Storage.DBType)
	return db, nil
}

// -----------------------------------------------------------------------------

// setupDataSources builds the ordered fallback chain.
func setupDataSources(config *models.MConfig, appLogger *logger.Logger) (*datasource.MultiSourceManager, error) {
	networkManager := network.NewAsyncNetworkManager(config, logger.NewLogger(config, "NetworkManager"))

	appLogger.Info("Initializing data sources...")
	return datasource.NewFromConfig(config, networkManager, logger.NewLogger(config, "DataSource"))
}

// -----------------------------------------------------------------------------

// setupPredictor loads the model artifact. A missing or broken artifact
// leaves the service in heuristic-only mode.
func setupPredictor(config *models.MConfig, appLogger *logger.Logger) interfaces.IPredictor {
	if !config.Model.Enabled {
		appLogger.Info("Model disabled, running heuristics only")
		return nil
	}

	model, err := prediction.LoadModel(config.Model.Path)
	if err != nil {
		appLogger.Warning("Model unavailable (%v), running heuristics only", err)
		return nil
	}
	appLogger.Info("Loaded model %s", model.Name())
	return model
}

// -----------------------------------------------------------------------------

// setupSessions creates the session cache and its sweeper.
func setupSessions(ctx context.Context, config *models.MConfig) *session.Store {
	store := session.NewStore(config.Session, logger.NewLogger(config, "Sessions"))

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				store.Sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
	return store
}
