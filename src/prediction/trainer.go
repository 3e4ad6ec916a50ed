package prediction

import (
	"errors"
	"fmt"
	"math"
	"time"

	"stock-insight/src/analysis/core"
	"stock-insight/src/models"
)

// ErrSingular is returned when the features are linearly dependent.
var ErrSingular = errors.New("feature matrix is singular")

// -----------------------------------------------------------------------------

// Fit estimates an ordinary least squares model. Features are standardised
// before solving the normal equations and the weights are mapped back to raw
// units. Constant features get a zero weight.
func Fit(rows []models.MFeatureRow) (*LinearModel, error) {
	p := len(models.FeatureNames)
	if len(rows) <= p {
		return nil, fmt.Errorf("need more than %d rows to fit, got %d", p, len(rows))
	}

	n := len(rows)
	means := make([]float64, p)
	stds := make([]float64, p)
	cols := make([][]float64, p)
	for j := 0; j < p; j++ {
		cols[j] = make([]float64, n)
	}
	for i, r := range rows {
		for j, x := range r.Vector() {
			cols[j][i] = x
		}
	}
	active := make([]int, 0, p)
	for j := 0; j < p; j++ {
		means[j], stds[j] = core.CalculateMeanStd(cols[j])
		if stds[j] > 0 {
			active = append(active, j)
		}
	}

	y := Targets(rows)
	yMean, _ := core.CalculateMeanStd(y)

	// Centred normal equations over the active features: (ZᵀZ) b = Zᵀ(y - ȳ)
	k := len(active)
	a := make([][]float64, k)
	for r := 0; r < k; r++ {
		a[r] = make([]float64, k+1)
	}
	for i := 0; i < n; i++ {
		for r, jr := range active {
			zr := (cols[jr][i] - means[jr]) / stds[jr]
			for c, jc := range active {
				a[r][c] += zr * (cols[jc][i] - means[jc]) / stds[jc]
			}
			a[r][k] += zr * (y[i] - yMean)
		}
	}

	beta, err := solve(a)
	if err != nil {
		return nil, err
	}

	coef := make(map[string]float64, p)
	for _, name := range models.FeatureNames {
		coef[name] = 0
	}
	intercept := yMean
	for idx, j := range active {
		w := beta[idx] / stds[j]
		coef[models.FeatureNames[j]] = w
		intercept -= w * means[j]
	}

	m, err := NewLinearModel(models.MLinearModel{
		Intercept:    intercept,
		Coefficients: coef,
		Rows:         n,
		TrainedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	pred, _ := m.Predict(rows)
	m.Artifact.MAE, m.Artifact.RMSE = Evaluate(y, pred)
	return m, nil
}

// -----------------------------------------------------------------------------

// Evaluate returns mean absolute and root mean squared errors.
func Evaluate(actual, predicted []float64) (float64, float64) {
	return core.MeanAbsoluteError(actual, predicted), core.RootMeanSquaredError(actual, predicted)
}

// -----------------------------------------------------------------------------

// solve runs Gaussian elimination with partial pivoting on an augmented matrix.
func solve(a [][]float64) ([]float64, error) {
	k := len(a)
	for col := 0; col < k; col++ {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-10 {
			return nil, ErrSingular
		}
		a[col], a[pivot] = a[pivot], a[col]

		for r := col + 1; r < k; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c <= k; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}

	x := make([]float64, k)
	for r := k - 1; r >= 0; r-- {
		sum := a[r][k]
		for c := r + 1; c < k; c++ {
			sum -= a[r][c] * x[c]
		}
		x[r] = sum / a[r][r]
	}
	return x, nil
}
