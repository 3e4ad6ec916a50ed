package grpc_control

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"stock-insight/src/config"
	"stock-insight/src/helpers"
	"stock-insight/src/interfaces"
	"stock-insight/src/logger"
	"stock-insight/src/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// WatchlistUpdater is satisfied by the scheduler.
type WatchlistUpdater interface {
	UpdateSymbols(symbols []string)
}

// ControlService implements AnalyzerServer on top of the analysis service.
type ControlService struct {
	Config     *config.Config
	ConfigPath string
	Analyzer   interfaces.IAnalyzer
	Watchlist  WatchlistUpdater
	Logger     *logger.Logger
}

// NewControlService creates a new instance of ControlService.
// watchlist may be nil when the scheduler is disabled.
func NewControlService(
	cfg *config.Config,
	cfgPath string,
	analyzer interfaces.IAnalyzer,
	watchlist WatchlistUpdater,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Config:     cfg,
		ConfigPath: cfgPath,
		Analyzer:   analyzer,
		Watchlist:  watchlist,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// Analyze expects {"ticker", "start", "end", "session_id"} and returns the
// analysis result as a struct.
func (s *ControlService) Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	in := models.MAnalysisRequest{
		Ticker:    fields["ticker"].GetStringValue(),
		Start:     fields["start"].GetStringValue(),
		End:       fields["end"].GetStringValue(),
		SessionID: fields["session_id"].GetStringValue(),
		Origin:    models.OriginGRPC,
	}

	res, err := s.Analyzer.Run(ctx, in)
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := toStruct(res)
	if err != nil {
		s.Logger.Error("gRPC: failed to encode result for %s: %v", res.Ticker, err)
		return nil, status.Error(codes.Internal, helpers.MsgGenericFailure)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := toStruct(s.Analyzer.Status())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// UpdateWatchlist replaces the scheduled symbols and persists the config.
func (s *ControlService) UpdateWatchlist(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	list := req.GetFields()["symbols"].GetListValue().GetValues()
	if len(list) == 0 {
		return nil, status.Error(codes.InvalidArgument, "symbols list cannot be empty")
	}

	symbols := make([]string, 0, len(list))
	for _, v := range list {
		sym := strings.ToUpper(strings.TrimSpace(v.GetStringValue()))
		if sym == "" {
			return nil, status.Error(codes.InvalidArgument, "symbols must be non-empty strings")
		}
		symbols = append(symbols, sym)
	}

	s.Config.SetWatchlistSymbols(symbols)
	if s.Watchlist != nil {
		s.Watchlist.UpdateSymbols(symbols)
	}

	persisted := false
	if s.ConfigPath != "" {
		if err := s.Config.Save(s.ConfigPath); err != nil {
			s.Logger.Error("gRPC: failed to persist watchlist: %v", err)
		} else {
			persisted = true
		}
	}

	s.Logger.Info("gRPC: UpdateWatchlist success. Count: %d", len(symbols))
	return structpb.NewStruct(map[string]interface{}{
		"success":      true,
		"message":      fmt.Sprintf("Watchlist updated with %d symbols", len(symbols)),
		"symbol_count": len(symbols),
		"persisted":    persisted,
	})
}

// -----------------------------------------------------------------------------

func toStatus(err error) error {
	msg := helpers.UserMessage(err)
	switch {
	case helpers.IsValidation(err):
		return status.Error(codes.InvalidArgument, msg)
	case helpers.IsEmptySeries(err):
		return status.Error(codes.NotFound, msg)
	default:
		return status.Error(codes.Unavailable, msg)
	}
}

// -----------------------------------------------------------------------------

// toStruct goes through JSON so field names match the HTTP API.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// -----------------------------------------------------------------------------

// DecodeResult converts an Analyze response back into a result.
func DecodeResult(s *structpb.Struct) (*models.MAnalysisResult, error) {
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return nil, err
	}
	var res models.MAnalysisResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
