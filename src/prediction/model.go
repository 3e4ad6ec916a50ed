package prediction

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"stock-insight/src/helpers"
	"stock-insight/src/models"

	"gopkg.in/yaml.v3"
)

// LinearModel predicts the close from [open, high, low, volume, prev_close].
type LinearModel struct {
	Artifact models.MLinearModel
	weights  []float64
}

// -----------------------------------------------------------------------------

// NewLinearModel validates an artifact and orders its coefficients.
func NewLinearModel(artifact models.MLinearModel) (*LinearModel, error) {
	weights := make([]float64, len(models.FeatureNames))
	for i, name := range models.FeatureNames {
		w, ok := artifact.Coefficients[name]
		if !ok {
			return nil, fmt.Errorf("model artifact missing coefficient %q", name)
		}
		weights[i] = w
	}
	return &LinearModel{Artifact: artifact, weights: weights}, nil
}

// -----------------------------------------------------------------------------

// LoadModel reads a YAML artifact from path.
func LoadModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, helpers.NewPredictionError(fmt.Sprintf("read model %s", path), err)
	}

	var artifact models.MLinearModel
	if err := yaml.Unmarshal(data, &artifact); err != nil {
		return nil, helpers.NewPredictionError(fmt.Sprintf("parse model %s", path), err)
	}

	m, err := NewLinearModel(artifact)
	if err != nil {
		return nil, helpers.NewPredictionError(fmt.Sprintf("invalid model %s", path), err)
	}
	return m, nil
}

// -----------------------------------------------------------------------------

// Save writes the artifact, creating the parent directory.
func (m *LinearModel) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create model dir: %w", err)
		}
	}
	data, err := yaml.Marshal(m.Artifact)
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// -----------------------------------------------------------------------------

func (m *LinearModel) Name() string {
	if m.Artifact.Ticker != "" {
		return "linear-" + m.Artifact.Ticker
	}
	return "linear"
}

// -----------------------------------------------------------------------------

// Predict returns one predicted close per row.
func (m *LinearModel) Predict(rows []models.MFeatureRow) ([]float64, error) {
	if m == nil || len(m.weights) == 0 {
		return nil, errors.New("model not loaded")
	}

	out := make([]float64, len(rows))
	for i, r := range rows {
		y := m.Artifact.Intercept
		for j, x := range r.Vector() {
			y += m.weights[j] * x
		}
		out[i] = y
	}
	return out, nil
}
