// Package storage persists completed measurement sessions: a timestamped
// directory per session with the locked parameters, the raw data and the
// chart artifact, plus a sqlite index of all saved runs.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/uav-lab/teststand2-buddy/internal/measure"
	"github.com/uav-lab/teststand2-buddy/internal/session"
)

const (
	paramFile = "measure_param.json"
	dataFile  = "data.csv"
	chartFile = "visualized.png"

	// Directory suffix format: yymmdd-HHMM.
	dirTimeFormat = "060102-1504"
)

// measureParam is the metadata written to measure_param.json.
type measureParam struct {
	SessionName string  `json:"session_name"`
	OutputScale float64 `json:"output_scale"`
}

// SessionWriter writes saved sessions under the locked storage directory.
// It implements session.Persister.
type SessionWriter struct{}

// NewSessionWriter creates a session directory writer.
func NewSessionWriter() *SessionWriter {
	return &SessionWriter{}
}

// Write creates {storageDir}/{name}_{yymmdd-HHMM}/ containing
// measure_param.json, data.csv and the chart artifact, and returns the
// directory path.
func (w *SessionWriter) Write(cfg session.Config, result measure.Result, chart []byte, now time.Time) (string, error) {
	dir := filepath.Join(cfg.StorageDir, fmt.Sprintf("%s_%s", cfg.Name, now.Format(dirTimeFormat)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating session directory: %w", err)
	}

	if err := writeParams(filepath.Join(dir, paramFile), cfg); err != nil {
		return "", err
	}
	if err := writeData(filepath.Join(dir, dataFile), result); err != nil {
		return "", err
	}
	if len(chart) > 0 {
		if err := os.WriteFile(filepath.Join(dir, chartFile), chart, 0o644); err != nil {
			return "", fmt.Errorf("writing chart artifact: %w", err)
		}
	}

	return dir, nil
}

func writeParams(path string, cfg session.Config) error {
	payload, err := json.MarshalIndent(measureParam{
		SessionName: cfg.Name,
		OutputScale: cfg.OutputScale,
	}, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding session parameters: %w", err)
	}

	if err = os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("writing session parameters: %w", err)
	}
	return nil
}

// writeData writes the raw records: a header row followed by one row per
// record, columns in record field order. Derived quantities are not
// persisted; they are recomputed at visualization time.
func writeData(path string, result measure.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating data file: %w", err)
	}
	defer closeWithError(f, &err)

	cw := csv.NewWriter(f)
	if err = cw.Write([]string{"throttle", "rpm", "voltage", "current", "thrust"}); err != nil {
		return fmt.Errorf("writing data header: %w", err)
	}

	row := make([]string, 5)
	for _, rec := range result {
		row[0] = formatFloat(rec.Throttle)
		row[1] = formatFloat(rec.RPM)
		row[2] = formatFloat(rec.Voltage)
		row[3] = formatFloat(rec.Current)
		row[4] = formatFloat(rec.Thrust)
		if err = cw.Write(row); err != nil {
			return fmt.Errorf("writing data row: %w", err)
		}
	}

	cw.Flush()
	if err = cw.Error(); err != nil {
		return fmt.Errorf("flushing data file: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
