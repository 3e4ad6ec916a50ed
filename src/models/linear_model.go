package models

import "time"

// Feature names in the order used by MFeatureRow.Vector.
var FeatureNames = []string{"open", "high", "low", "volume", "prev_close"}

// MLinearModel is the persisted regression artifact.
type MLinearModel struct {
	Intercept    float64            `yaml:"intercept"`
	Coefficients map[string]float64 `yaml:"coefficients"`
	Ticker       string             `yaml:"ticker"`
	Start        string             `yaml:"start"`
	End          string             `yaml:"end"`
	Rows         int                `yaml:"rows"`
	MAE          float64            `yaml:"mae"`
	RMSE         float64            `yaml:"rmse"`
	TrainedAt    time.Time          `yaml:"trained_at"`
}
