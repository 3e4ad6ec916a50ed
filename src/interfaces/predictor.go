package interfaces

import "stock-insight/src/models"

// -----------------------------------------------------------------------------
// IPredictor maps feature rows to predicted closes.
// -----------------------------------------------------------------------------

type IPredictor interface {
	Name() string
	Predict(rows []models.MFeatureRow) ([]float64, error)
}
