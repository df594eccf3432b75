package storage

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/uav-lab/teststand2-buddy/internal/measure"
	"github.com/uav-lab/teststand2-buddy/internal/session"
)

func testConfig(dir string) session.Config {
	return session.Config{
		Name:        "bench-a",
		Resolution:  10,
		OutputScale: 0.8,
		StorageDir:  dir,
	}
}

func testResult(n int) measure.Result {
	result := make(measure.Result, n)
	for i := range result {
		result[i] = measure.Record{
			Throttle: float64((i + 1) * 10),
			RPM:      float64((i + 1) * 1000),
			Voltage:  12.6,
			Current:  float64(i+1) * 2.5,
			Thrust:   float64(i+1) * 0.15,
		}
	}
	return result
}

func TestSessionWriter_Write(t *testing.T) {
	storageDir := t.TempDir()
	cfg := testConfig(storageDir)
	savedAt := time.Date(2026, 8, 30, 14, 5, 0, 0, time.Local)
	chart := []byte("png-bytes")

	dir, err := NewSessionWriter().Write(cfg, testResult(10), chart, savedAt)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if want := filepath.Join(storageDir, "bench-a_260830-1405"); dir != want {
		t.Errorf("expected directory %s, got %s", want, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("expected exactly 3 files in the session directory, got %d", len(entries))
	}

	t.Run("parameters file", func(t *testing.T) {
		payload, err := os.ReadFile(filepath.Join(dir, "measure_param.json"))
		if err != nil {
			t.Fatal(err)
		}

		var params struct {
			SessionName string  `json:"session_name"`
			OutputScale float64 `json:"output_scale"`
		}
		if err = json.Unmarshal(payload, &params); err != nil {
			t.Fatalf("decoding parameters: %v", err)
		}
		if params.SessionName != "bench-a" || params.OutputScale != 0.8 {
			t.Errorf("unexpected parameters: %+v", params)
		}
		if !strings.Contains(string(payload), "\n    ") {
			t.Error("expected four-space indented JSON")
		}
	})

	t.Run("data file", func(t *testing.T) {
		f, err := os.Open(filepath.Join(dir, "data.csv"))
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()

		rows, err := csv.NewReader(f).ReadAll()
		if err != nil {
			t.Fatalf("reading data file: %v", err)
		}
		if len(rows) != 11 {
			t.Fatalf("expected header plus 10 rows, got %d", len(rows))
		}
		if got := strings.Join(rows[0], ","); got != "throttle,rpm,voltage,current,thrust" {
			t.Errorf("unexpected header: %s", got)
		}
		if rows[1][0] != "10" || rows[1][2] != "12.6" {
			t.Errorf("unexpected first record row: %v", rows[1])
		}
	})

	t.Run("chart artifact", func(t *testing.T) {
		payload, err := os.ReadFile(filepath.Join(dir, "visualized.png"))
		if err != nil {
			t.Fatal(err)
		}
		if string(payload) != "png-bytes" {
			t.Error("chart artifact content mismatch")
		}
	})
}

func TestSessionWriter_NoChart(t *testing.T) {
	cfg := testConfig(t.TempDir())

	dir, err := NewSessionWriter().Write(cfg, testResult(2), nil, time.Now())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if _, err = os.Stat(filepath.Join(dir, "visualized.png")); !os.IsNotExist(err) {
		t.Error("no chart file expected when no artifact was rendered")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected exactly 2 files in the session directory, got %d", len(entries))
	}
}
