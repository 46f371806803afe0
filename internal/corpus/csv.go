package corpus

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"netsentry/internal/model"
)

var csvHeader = []string{"connection_duration", "packet_size", "port_number"}

// WriteCSV saves the corpus as a headed CSV file, creating parent
// directories as needed.
func WriteCSV(path string, features []model.FeatureVector) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create dataset directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dataset file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, v := range features {
		rec := []string{
			strconv.FormatFloat(v.Duration, 'g', -1, 64),
			strconv.FormatFloat(v.Size, 'g', -1, 64),
			strconv.FormatFloat(v.Port, 'g', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// ReadCSV loads a corpus saved by WriteCSV.
func ReadCSV(path string) ([]model.FeatureVector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset '%s' is empty", path)
	}

	// Skip the header row.
	out := make([]model.FeatureVector, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != 3 {
			return nil, fmt.Errorf("dataset row %d has %d columns, want 3", i+1, len(rec))
		}
		var vals [3]float64
		for j, field := range rec {
			vals[j], err = strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("dataset row %d column %s: %w", i+1, csvHeader[j], err)
			}
		}
		out = append(out, model.FeatureVector{Duration: vals[0], Size: vals[1], Port: vals[2]})
	}
	return out, nil
}
