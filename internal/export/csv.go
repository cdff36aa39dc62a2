package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/taciochi/skylumos/internal/logger"
	"github.com/taciochi/skylumos/pkg/synth"
)

// Meta describes a run for the JSON sidecar written next to the CSV.
type Meta struct {
	RunID           string    `json:"run_id"`
	CreatedAt       time.Time `json:"created_at"`
	Model           string    `json:"model"`
	DeltaSunDeg     float64   `json:"delta_sun_deg,omitempty"`
	DeltaAntiDeg    float64   `json:"delta_anti_deg,omitempty"`
	MaxDoP          float64   `json:"max_dop,omitempty"`
	CIEType         int       `json:"cie_type,omitempty"`
	SensorKind      string    `json:"sensor_kind"`
	Elements        int       `json:"elements"`
	ActiveElements  int       `json:"active_elements"`
	ExtinctionRatio float64   `json:"extinction_ratio"`
	NoiseKind       string    `json:"noise_kind"`
	BitDepth        int       `json:"bit_depth,omitempty"`
	Seed            uint64    `json:"seed"`
	Frames          int       `json:"frames"`
}

// CSVWriter writes a run as <dir>/<run_id>.csv plus a <run_id>.json
// metadata sidecar.
type CSVWriter struct {
	Dir string
}

// WriteRun writes every recording, one row per sensor element, and
// returns the CSV path.
func (w CSVWriter) WriteRun(meta Meta, recs []synth.Recording) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	csvPath := filepath.Join(w.Dir, meta.RunID+".csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(RecordRow{}.CSVHeader()); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	rows := 0
	for _, rec := range recs {
		for _, row := range Flatten(meta.RunID, rec) {
			if err := cw.Write(row.CSVRow()); err != nil {
				return "", fmt.Errorf("write csv row: %w", err)
			}
			rows++
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close csv: %w", err)
	}

	if err := writeSidecar(filepath.Join(w.Dir, meta.RunID+".json"), meta); err != nil {
		return "", err
	}

	logger.Info("run written",
		zap.String("csv", csvPath),
		zap.Int("frames", len(recs)),
		zap.Int("rows", rows))
	return csvPath, nil
}

func writeSidecar(path string, meta Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run metadata: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write run metadata: %w", err)
	}
	return nil
}
