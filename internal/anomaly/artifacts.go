package anomaly

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	artifactSchemaVersion = 1

	forestFile  = "forest.gob"
	scalerFile  = "scaler.gob"
	summaryFile = "summary.json"
)

// Summary is the sidecar metadata written next to the fitted artifacts.
type Summary struct {
	SchemaVersion int     `json:"schema_version"`
	FittedAt      string  `json:"fitted_at"`
	Samples       int     `json:"samples"`
	Trees         int     `json:"trees"`
	SubsampleSize int     `json:"subsample_size"`
	Contamination float64 `json:"contamination"`
	Offset        float64 `json:"offset"`
	Seed          uint64  `json:"seed"`
}

// Save persists the detector into dir: forest and scaler as gob blobs plus a
// human-readable summary.json.
func (d *Detector) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := writeGob(filepath.Join(dir, forestFile), d.Forest); err != nil {
		return err
	}
	if err := writeGob(filepath.Join(dir, scalerFile), d.Scaler); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, summaryFile))
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d.Summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return nil
}

// Load restores a detector persisted by Save. A missing or undecodable
// artifact fails the whole load; there is no partial or degraded result.
func Load(dir string) (*Detector, error) {
	d := &Detector{Forest: &Forest{}, Scaler: &Scaler{}}
	if err := readGob(filepath.Join(dir, forestFile), d.Forest); err != nil {
		return nil, err
	}
	if err := readGob(filepath.Join(dir, scalerFile), d.Scaler); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(dir, summaryFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open summary file: %w", err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&d.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary json: %w", err)
	}

	if len(d.Forest.Trees) == 0 {
		return nil, fmt.Errorf("artifact in '%s' holds no trees", dir)
	}
	return d, nil
}

func writeGob(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create artifact file '%s': %w", path, err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		return fmt.Errorf("failed to encode gob for '%s': %w", path, err)
	}
	return nil
}

func readGob(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open artifact file '%s': %w", path, err)
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("failed to decode gob from '%s': %w", path, err)
	}
	return nil
}
