package prediction

import "stock-insight/src/models"

// BuildFeatureRows pairs each bar with the previous close. The first bar has
// no predecessor and is dropped.
func BuildFeatureRows(bars []models.MPriceBar) []models.MFeatureRow {
	if len(bars) < 2 {
		return nil
	}

	rows := make([]models.MFeatureRow, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		b := bars[i]
		rows = append(rows, models.MFeatureRow{
			Date:      b.Date,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Volume:    b.Volume,
			PrevClose: bars[i-1].Close,
			Close:     b.Close,
		})
	}
	return rows
}

// -----------------------------------------------------------------------------

// Targets extracts the close column of rows.
func Targets(rows []models.MFeatureRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Close
	}
	return out
}
