package anomaly

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"netsentry/internal/model"
)

// ErrInvalidFeatureVector reports a vector that cannot be scored, such as one
// carrying NaN or infinite components.
var ErrInvalidFeatureVector = errors.New("invalid feature vector")

// FitOptions control the offline fitting pass. Zero values select the
// trainer defaults: 100 trees, subsample min(256, corpus size), contamination
// 0.03, seed 42.
type FitOptions struct {
	Trees         int
	SubsampleSize int
	Contamination float64
	Seed          uint64
}

// Detector bundles the fitted forest and scaler. It is immutable after Fit
// or Load and safe for concurrent use from any number of goroutines.
type Detector struct {
	Forest  *Forest
	Scaler  *Scaler
	Summary Summary
}

// Fit standardizes the corpus, grows the ensemble, and calibrates the
// decision threshold so the configured contamination fraction of training
// points falls below it.
func Fit(features []model.FeatureVector, opts FitOptions) (*Detector, error) {
	if len(features) == 0 {
		return nil, errors.New("empty training corpus")
	}
	if opts.Trees <= 0 {
		opts.Trees = 100
	}
	if opts.Contamination <= 0 {
		opts.Contamination = 0.03
	}
	if opts.Contamination > 0.5 {
		return nil, fmt.Errorf("contamination %v out of range (0, 0.5]", opts.Contamination)
	}
	if opts.SubsampleSize <= 0 {
		opts.SubsampleSize = 256
	}
	if opts.SubsampleSize > len(features) {
		opts.SubsampleSize = len(features)
	}
	if opts.Seed == 0 {
		opts.Seed = 42
	}

	rows := make([][3]float64, len(features))
	for i, v := range features {
		vals := v.Values()
		for j := 0; j < 3; j++ {
			if !validValue(vals[j]) {
				return nil, fmt.Errorf("%w: training row %d", ErrInvalidFeatureVector, i)
			}
		}
		rows[i] = vals
	}

	scaler := FitScaler(rows)
	for i := range rows {
		rows[i] = scaler.Transform(rows[i])
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	forest := fitForest(rng, rows, opts.Trees, opts.SubsampleSize, opts.Contamination)

	return &Detector{
		Forest: forest,
		Scaler: scaler,
		Summary: Summary{
			SchemaVersion: artifactSchemaVersion,
			FittedAt:      time.Now().UTC().Format(time.RFC3339),
			Samples:       len(features),
			Trees:         opts.Trees,
			SubsampleSize: opts.SubsampleSize,
			Contamination: opts.Contamination,
			Offset:        forest.Offset,
			Seed:          opts.Seed,
		},
	}, nil
}

// Score evaluates one vector against the fitted model. Scores below zero are
// labeled anomalous. A port outside its nominal range is still scored; only
// NaN or infinite components are rejected.
func (d *Detector) Score(v model.FeatureVector) (float64, model.Label, error) {
	vals := v.Values()
	for j := 0; j < 3; j++ {
		if !validValue(vals[j]) {
			return 0, "", ErrInvalidFeatureVector
		}
	}
	decision := d.Forest.Decision(d.Scaler.Transform(vals))
	label := model.LabelNormal
	if decision < 0 {
		label = model.LabelAnomaly
	}
	return decision, label, nil
}

func validValue(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
