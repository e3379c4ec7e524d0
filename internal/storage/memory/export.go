// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/flightctl/flightctl/internal/storage/memory/export/v1"
	"github.com/flightctl/flightctl/pkg/core"
)

// exportJSON writes the run to a JSON file, gzipped when configured.
// Callers hold b.mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	label := strings.ReplaceAll(b.run.Label, " ", "_")
	label = strings.ReplaceAll(label, ":", "_")
	if label == "" {
		label = "run"
	}
	timestamp := b.run.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", label, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", label, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	completed := 0
	for _, r := range b.results {
		if r.Completed {
			completed++
		}
	}
	b.lastExportPath = outputPath
	b.lastMeta = core.UploadMetadata{
		RunID:         export.RunID,
		Label:         export.Label,
		ScenarioCount: len(b.results),
		Completed:     completed,
		SimDuration:   export.SimDuration,
	}
	return nil
}

func (b *Backend) buildExport() v1.Export {
	return v1.Build(&v1.RunData{
		Run:     b.run,
		Frames:  b.frames,
		Results: b.results,
	})
}

func writeJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}
