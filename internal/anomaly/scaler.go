package anomaly

import "math"

// Scaler standardizes feature vectors to zero mean and unit variance using
// statistics fitted once over the training corpus. A feature with zero
// variance keeps a scale of 1 so standardization is always defined.
type Scaler struct {
	Mean  [3]float64
	Scale [3]float64
}

// FitScaler computes per-feature mean and population standard deviation.
func FitScaler(rows [][3]float64) *Scaler {
	s := &Scaler{}
	n := float64(len(rows))
	if n == 0 {
		s.Scale = [3]float64{1, 1, 1}
		return s
	}
	for _, r := range rows {
		for j := 0; j < 3; j++ {
			s.Mean[j] += r[j]
		}
	}
	for j := 0; j < 3; j++ {
		s.Mean[j] /= n
	}
	for _, r := range rows {
		for j := 0; j < 3; j++ {
			d := r[j] - s.Mean[j]
			s.Scale[j] += d * d
		}
	}
	for j := 0; j < 3; j++ {
		s.Scale[j] = math.Sqrt(s.Scale[j] / n)
		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}
	return s
}

// Transform standardizes one row with the fitted statistics.
func (s *Scaler) Transform(row [3]float64) [3]float64 {
	var out [3]float64
	for j := 0; j < 3; j++ {
		out[j] = (row[j] - s.Mean[j]) / s.Scale[j]
	}
	return out
}
