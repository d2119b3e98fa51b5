package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/quantlink-pairs/pkg/analysis"
	"github.com/yourusername/quantlink-pairs/pkg/logging"
)

// Writer writes pair and scan reports as markdown and JSON files.
type Writer struct {
	dir     string
	formats map[string]bool
	log     zerolog.Logger
	now     func() time.Time
}

// NewWriter 创建报告输出器；formats 取值 markdown / json
func NewWriter(dir string, formats []string, log zerolog.Logger) *Writer {
	w := &Writer{
		dir:     dir,
		formats: make(map[string]bool, len(formats)),
		log:     logging.Component(log, "report"),
		now:     time.Now,
	}
	for _, f := range formats {
		w.formats[f] = true
	}
	return w
}

// WritePair writes one pair report and returns the created files.
func (w *Writer) WritePair(r *analysis.PairReport) ([]string, error) {
	base := fmt.Sprintf("pairs_%s_%s_%s", fileSafe(r.Pair.A), fileSafe(r.Pair.B), w.now().Format("20060102_150405"))
	return w.write(base,
		func(out io.Writer) { writePairMarkdown(out, r) },
		NewPairDocument(r, true))
}

// WriteScan writes the ranked scan summary and returns the created files.
func (w *Writer) WriteScan(res *analysis.ScanResult) ([]string, error) {
	now := w.now()
	doc := NewScanDocument(res, now.UTC())
	base := fmt.Sprintf("scan_%s", now.Format("20060102_150405"))
	return w.write(base,
		func(out io.Writer) { writeScanMarkdown(out, doc) },
		doc)
}

// WriteCorrelation writes a correlation matrix and returns the created files.
func (w *Writer) WriteCorrelation(m *analysis.CorrelationMatrix) ([]string, error) {
	base := fmt.Sprintf("correlation_%s", w.now().Format("20060102_150405"))
	return w.write(base,
		func(out io.Writer) { writeCorrelationMarkdown(out, m) },
		NewCorrelationDocument(m))
}

func (w *Writer) write(base string, markdown func(io.Writer), doc any) ([]string, error) {
	// Ensure output directory exists
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var files []string
	if w.formats["markdown"] {
		filename := filepath.Join(w.dir, base+".md")
		file, err := os.Create(filename)
		if err != nil {
			return files, fmt.Errorf("failed to create report file: %w", err)
		}
		markdown(file)
		if err := file.Close(); err != nil {
			return files, fmt.Errorf("failed to write report file: %w", err)
		}
		w.log.Info().Str("file", filename).Msg("markdown report saved")
		files = append(files, filename)
	}
	if w.formats["json"] {
		filename := filepath.Join(w.dir, base+".json")
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return files, fmt.Errorf("failed to marshal report: %w", err)
		}
		if err := os.WriteFile(filename, data, 0644); err != nil {
			return files, fmt.Errorf("failed to write JSON file: %w", err)
		}
		w.log.Info().Str("file", filename).Msg("JSON report saved")
		files = append(files, filename)
	}
	return files, nil
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
