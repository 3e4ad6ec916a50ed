package prediction

import (
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"stock-insight/src/models"
)

func syntheticRows(n int) []models.MFeatureRow {
	rng := rand.New(rand.NewSource(7))
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	rows := make([]models.MFeatureRow, n)
	for i := range rows {
		r := models.MFeatureRow{
			Date:      day.AddDate(0, 0, i),
			Open:      100 + rng.Float64()*10,
			High:      110 + rng.Float64()*10,
			Low:       90 + rng.Float64()*10,
			Volume:    1e6 + rng.Float64()*5e5,
			PrevClose: 100 + rng.Float64()*10,
		}
		r.Close = 1.5 + 0.2*r.Open + 0.3*r.High + 0.1*r.Low + 2e-6*r.Volume + 0.4*r.PrevClose
		rows[i] = r
	}
	return rows
}

func TestBuildFeatureRows(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := []models.MPriceBar{
		{Date: day, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Date: day.AddDate(0, 0, 1), Open: 1.6, High: 2.2, Low: 1.4, Close: 2, Volume: 20},
		{Date: day.AddDate(0, 0, 2), Open: 2.1, High: 2.5, Low: 1.9, Close: 2.4, Volume: 30},
	}
	rows := BuildFeatureRows(bars)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].PrevClose != 1.5 || rows[0].Close != 2 || !rows[0].Date.Equal(bars[1].Date) {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].PrevClose != 2 || rows[1].Volume != 30 {
		t.Errorf("row 1 = %+v", rows[1])
	}
	if BuildFeatureRows(bars[:1]) != nil {
		t.Errorf("single bar should produce no rows")
	}
}

func TestFitRecoversCoefficients(t *testing.T) {
	m, err := Fit(syntheticRows(200))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	want := map[string]float64{"open": 0.2, "high": 0.3, "low": 0.1, "volume": 2e-6, "prev_close": 0.4}
	for name, w := range want {
		got := m.Artifact.Coefficients[name]
		if math.Abs(got-w) > 1e-6*math.Abs(w)+1e-12 {
			t.Errorf("coef[%s] = %g, want %g", name, got, w)
		}
	}
	if math.Abs(m.Artifact.Intercept-1.5) > 1e-4 {
		t.Errorf("intercept = %f, want 1.5", m.Artifact.Intercept)
	}
	if m.Artifact.RMSE > 1e-6 {
		t.Errorf("rmse = %g on noiseless data", m.Artifact.RMSE)
	}
}

func TestFitConstantFeature(t *testing.T) {
	rows := syntheticRows(50)
	for i := range rows {
		rows[i].Volume = 1000
		rows[i].Close = 2 + 0.5*rows[i].Open + 0.5*rows[i].PrevClose
	}
	m, err := Fit(rows)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if m.Artifact.Coefficients["volume"] != 0 {
		t.Errorf("constant feature weight = %g", m.Artifact.Coefficients["volume"])
	}
	pred, _ := m.Predict(rows[:1])
	if math.Abs(pred[0]-rows[0].Close) > 1e-6 {
		t.Errorf("prediction %f, want %f", pred[0], rows[0].Close)
	}
}

func TestFitErrors(t *testing.T) {
	if _, err := Fit(syntheticRows(3)); err == nil {
		t.Errorf("expected error for too few rows")
	}

	rows := syntheticRows(40)
	for i := range rows {
		rows[i].High = rows[i].Open * 2
	}
	if _, err := Fit(rows); !errors.Is(err, ErrSingular) {
		t.Errorf("err = %v, want ErrSingular", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	m, err := Fit(syntheticRows(100))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	m.Artifact.Ticker = "TEST"
	path := filepath.Join(t.TempDir(), "models", "model.yaml")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if loaded.Name() != "linear-TEST" {
		t.Errorf("name = %q", loaded.Name())
	}
	rows := syntheticRows(5)
	a, _ := m.Predict(rows)
	b, _ := loaded.Predict(rows)
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			t.Errorf("prediction %d differs: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestLoadModelMissing(t *testing.T) {
	if _, err := LoadModel(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := NewLinearModel(models.MLinearModel{Coefficients: map[string]float64{"open": 1}}); err == nil {
		t.Fatalf("expected missing coefficient error")
	}
}
