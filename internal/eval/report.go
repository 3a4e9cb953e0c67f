package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// SaveReport writes the run to outputDir: a readable summary JSON (metrics
// only) and a zstd-compressed archive of the full per-clip results. Raw
// results compress well and are only read back for error analysis.
func SaveReport(report *Report, outputDir string) (summaryPath string, archivePath string, err error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}

	summary := struct {
		RunID     string  `json:"run_id"`
		Model     string  `json:"model_name"`
		Timestamp string  `json:"evaluation_timestamp"`
		Metrics   Metrics `json:"metrics"`
	}{
		RunID:     report.RunID,
		Model:     report.Model,
		Timestamp: report.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		Metrics:   report.Metrics,
	}
	summaryPath = filepath.Join(outputDir, report.RunID+".json")
	summaryData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(summaryPath, summaryData, 0o644); err != nil {
		return "", "", fmt.Errorf("write summary: %w", err)
	}

	archivePath = filepath.Join(outputDir, report.RunID+"-results.json.zst")
	if err := writeCompressed(archivePath, report); err != nil {
		return "", "", err
	}

	log.Info().Str("summary", summaryPath).Str("archive", archivePath).Msg("Evaluation report saved")
	return summaryPath, archivePath, nil
}

func writeCompressed(path string, report *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("init zstd writer: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(report); err != nil {
		enc.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}
	return nil
}

// LoadArchive reads a zstd-compressed report archive back for error analysis.
func LoadArchive(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("init zstd reader: %w", err)
	}
	defer dec.Close()

	var report Report
	if err := json.NewDecoder(dec).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode archive %s: %w", path, err)
	}
	return &report, nil
}
