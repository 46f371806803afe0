package anomaly

import (
	"errors"
	"math"
	"testing"

	"netsentry/internal/corpus"
	"netsentry/internal/model"
)

func TestDetector_FitAndScore(t *testing.T) {
	// 1. Generate the default synthetic corpus
	features := corpus.Generate(corpus.Options{Samples: 1000, Contamination: 0.03, Seed: 42})
	if len(features) != 1000 {
		t.Fatalf("Expected 1000 training points, got %d", len(features))
	}

	// 2. Fit with trainer defaults
	det, err := Fit(features, FitOptions{Seed: 42})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if det.Summary.Trees != 100 || det.Summary.SubsampleSize != 256 {
		t.Errorf("Expected defaults 100 trees and subsample 256, got %d and %d", det.Summary.Trees, det.Summary.SubsampleSize)
	}

	// 3. The calibrated threshold should flag roughly 3% of the training set
	anomalies := 0
	for _, v := range features {
		_, label, err := det.Score(v)
		if err != nil {
			t.Fatalf("Score failed on training point: %v", err)
		}
		if label == model.LabelAnomaly {
			anomalies++
		}
	}
	if anomalies < 29 || anomalies > 31 {
		t.Errorf("Expected 29-31 training points labeled anomalous, got %d", anomalies)
	}

	// 4. A long oversized connection on a high port must read as anomalous
	score, label, err := det.Score(model.FeatureVector{Duration: 300, Size: 9000, Port: 51000})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if label != model.LabelAnomaly {
		t.Errorf("Expected (300, 9000, 51000) to be labeled Anomaly, got %s (score %v)", label, score)
	}
	if score >= 0 {
		t.Errorf("Expected negative decision score for anomalous point, got %v", score)
	}

	// 5. An ordinary HTTPS-shaped connection must read as normal
	score, label, err = det.Score(model.FeatureVector{Duration: 12, Size: 1400, Port: 443})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if label != model.LabelNormal {
		t.Errorf("Expected (12, 1400, 443) to be labeled Normal, got %s (score %v)", label, score)
	}
	if score < 0 {
		t.Errorf("Expected non-negative decision score for normal point, got %v", score)
	}
}

func TestDetector_Deterministic(t *testing.T) {
	features := corpus.Generate(corpus.Options{Samples: 500, Contamination: 0.03, Seed: 42})

	a, err := Fit(features, FitOptions{Seed: 42})
	if err != nil {
		t.Fatalf("First fit failed: %v", err)
	}
	b, err := Fit(features, FitOptions{Seed: 42})
	if err != nil {
		t.Fatalf("Second fit failed: %v", err)
	}

	if a.Forest.Offset != b.Forest.Offset {
		t.Errorf("Expected identical offsets for identical seeds, got %v and %v", a.Forest.Offset, b.Forest.Offset)
	}
	probe := model.FeatureVector{Duration: 42, Size: 2500, Port: 8080}
	sa, _, _ := a.Score(probe)
	sb, _, _ := b.Score(probe)
	if sa != sb {
		t.Errorf("Expected identical scores for identical seeds, got %v and %v", sa, sb)
	}
}

func TestDetector_ScoreRejectsInvalid(t *testing.T) {
	features := corpus.Generate(corpus.Options{Samples: 200, Contamination: 0.03, Seed: 42})
	det, err := Fit(features, FitOptions{Seed: 42})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	bad := []model.FeatureVector{
		{Duration: math.NaN(), Size: 1400, Port: 443},
		{Duration: 10, Size: math.Inf(1), Port: 443},
		{Duration: 10, Size: 1400, Port: math.Inf(-1)},
	}
	for _, v := range bad {
		if _, _, err := det.Score(v); !errors.Is(err, ErrInvalidFeatureVector) {
			t.Errorf("Expected ErrInvalidFeatureVector for %+v, got %v", v, err)
		}
	}

	// Out-of-range but finite values are still scorable.
	if _, _, err := det.Score(model.FeatureVector{Duration: -5, Size: 0, Port: 99999}); err != nil {
		t.Errorf("Expected finite out-of-range vector to score, got error: %v", err)
	}
}

func TestFit_RejectsBadInput(t *testing.T) {
	if _, err := Fit(nil, FitOptions{}); err == nil {
		t.Error("Expected error for empty training corpus")
	}

	features := corpus.Generate(corpus.Options{Samples: 100, Contamination: 0.03, Seed: 42})
	if _, err := Fit(features, FitOptions{Contamination: 0.6}); err == nil {
		t.Error("Expected error for contamination above 0.5")
	}

	features[10].Size = math.NaN()
	if _, err := Fit(features, FitOptions{}); !errors.Is(err, ErrInvalidFeatureVector) {
		t.Errorf("Expected ErrInvalidFeatureVector for NaN training row, got %v", err)
	}
}

func TestDetector_SmallCorpus(t *testing.T) {
	// Subsample is capped at the corpus size when the corpus is tiny.
	features := []model.FeatureVector{
		{Duration: 10, Size: 1500, Port: 443},
		{Duration: 12, Size: 1450, Port: 443},
		{Duration: 14, Size: 1550, Port: 80},
		{Duration: 11, Size: 1480, Port: 22},
		{Duration: 400, Size: 12000, Port: 50000},
	}
	det, err := Fit(features, FitOptions{Contamination: 0.2, Seed: 42})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if det.Summary.SubsampleSize != len(features) {
		t.Errorf("Expected subsample capped at %d, got %d", len(features), det.Summary.SubsampleSize)
	}
	if _, _, err := det.Score(features[0]); err != nil {
		t.Errorf("Score failed on tiny corpus: %v", err)
	}
}
