package corpus

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCSV_RoundTrip(t *testing.T) {
	// 1. Write a small corpus under a temp dir, including a missing parent
	tmpDir, err := os.MkdirTemp("", "corpus_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "data", "dataset.csv")
	features := Generate(Options{Samples: 50, Contamination: 0.1, Seed: 42})
	if err := WriteCSV(path, features); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	// 2. Read it back and compare
	got, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(got) != len(features) {
		t.Fatalf("Expected %d points, got %d", len(features), len(got))
	}
	for i := range got {
		if got[i] != features[i] {
			t.Errorf("Point %d changed across round trip: %+v vs %+v", i, features[i], got[i])
		}
	}
}

func TestReadCSV_Malformed(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "corpus_bad")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "bad.csv")
	if err := os.WriteFile(path, []byte("connection_duration,packet_size,port_number\n1.5,oops,443\n"), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	if _, err := ReadCSV(path); err == nil {
		t.Error("Expected error for non-numeric field")
	}

	if _, err := ReadCSV(filepath.Join(tmpDir, "absent.csv")); err == nil {
		t.Error("Expected error for missing file")
	}
}
