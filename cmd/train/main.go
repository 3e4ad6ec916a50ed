package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"stock-insight/src/config"
	datasource "stock-insight/src/data_source"
	"stock-insight/src/helpers"
	"stock-insight/src/logger"
	"stock-insight/src/models"
	"stock-insight/src/network"
	"stock-insight/src/prediction"
)

// -----------------------------------------------------------------------------

// train fetches a ticker's history, reports a chronological holdout score,
// refits on every row and writes the artifact read by the server.
func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	ticker := flag.String("ticker", "", "ticker to train on (default: data_source.default_ticker)")
	start := flag.String("start", "", "first day, YYYY-MM-DD (default: data_source.default_start)")
	end := flag.String("end", "", "day after the last, YYYY-MM-DD (default: data_source.default_end)")
	out := flag.String("out", "", "artifact path (default: model.path)")
	holdout := flag.Float64("holdout", 0.2, "fraction of trailing rows scored out of sample")
	flag.Parse()

	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewLogger(conf, "Train")
	defer log.Sync()

	symbol := strings.ToUpper(firstNonEmpty(*ticker, conf.DataSource.DefaultTicker))
	from, err := time.Parse(models.DateLayout, firstNonEmpty(*start, conf.DataSource.DefaultStart))
	if err != nil {
		log.Critical("invalid start: %v", err)
	}
	to, err := time.Parse(models.DateLayout, firstNonEmpty(*end, conf.DataSource.DefaultEnd))
	if err != nil {
		log.Critical("invalid end: %v", err)
	}
	if *holdout < 0 || *holdout >= 1 {
		log.Critical("holdout must be in [0, 1)")
	}

	netMgr := network.NewAsyncNetworkManager(conf.MConfig, log.Named("network"))
	sources, err := datasource.NewFromConfig(conf.MConfig, netMgr, log.Named("source"))
	if err != nil {
		log.Critical("Failed to init data sources: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	series, err := sources.FetchSeries(ctx, symbol, from, to)
	if err != nil {
		log.Critical("Fetch failed: %v", err)
	}
	if series.Len() == 0 {
		log.Critical("%s", helpers.MsgEmptySeries)
	}

	rows := prediction.BuildFeatureRows(series.Bars)
	log.Info("Training on %s: %d feature rows from %s", symbol, len(rows), series.Source)

	if cut := int(float64(len(rows)) * (1 - *holdout)); *holdout > 0 && cut < len(rows) {
		train, test := rows[:cut], rows[cut:]
		m, err := prediction.Fit(train)
		if err != nil {
			log.Critical("Holdout fit failed: %v", err)
		}
		pred, err := m.Predict(test)
		if err != nil {
			log.Critical("Holdout predict failed: %v", err)
		}
		mae, rmse := prediction.Evaluate(prediction.Targets(test), pred)
		log.Info("Holdout (%d rows): MAE=%.4f RMSE=%.4f", len(test), mae, rmse)
	}

	model, err := prediction.Fit(rows)
	if err != nil {
		log.Critical("Fit failed: %v", err)
	}
	model.Artifact.Ticker = symbol
	model.Artifact.Start = from.Format(models.DateLayout)
	model.Artifact.End = to.Format(models.DateLayout)

	path := firstNonEmpty(*out, conf.Model.Path)
	if err := model.Save(path); err != nil {
		log.Critical("Save failed: %v", err)
	}
	log.Info("In-sample MAE=%.4f RMSE=%.4f, coefficients=%v", model.Artifact.MAE, model.Artifact.RMSE, model.Artifact.Coefficients)
	log.Info("Model written to %s", path)
}

// -----------------------------------------------------------------------------

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
