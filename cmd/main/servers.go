package main

import (
	"fmt"
	"net"

	"stock-insight/src/config"
	pb "stock-insight/src/grpc_control"
	"stock-insight/src/interfaces"
	"stock-insight/src/logger"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

// startServers launches the HTTP server and the gRPC server in the background.
// The returned gRPC server is stopped by the caller on shutdown.
func startServers(
	srv interfaces.IDataExchanger,
	analyzer interfaces.IAnalyzer,
	watchlist pb.WatchlistUpdater,
	config *config.Config,
	configPath string,
	appLogger *logger.Logger,
) (*grpc.Server, error) {

	// 1. HTTP + websocket
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 2. gRPC
	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", config.GrpcHost, config.GrpcPort))
	if err != nil {
		return nil, fmt.Errorf("failed to listen for gRPC: %w", err)
	}

	grpcServer := grpc.NewServer()
	controlService := pb.NewControlService(config, configPath, analyzer, watchlist, logger.NewLogger(config, "ControlService"))
	pb.RegisterAnalyzerServer(grpcServer, controlService)

	go func() {
		appLogger.Info("Starting gRPC server on %s", lis.Addr())
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Error("gRPC server stopped: %v", err)
		}
	}()
	return grpcServer, nil
}
