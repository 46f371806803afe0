package model

// Scorer evaluates a feature vector against a fitted model.
// Implementations are read-only after load and safe for concurrent use.
type Scorer interface {
	Score(v FeatureVector) (float64, Label, error)
}
