// Package report persists run outcomes: the per-candle ledger rows as CSV and
// the run digest as YAML. Each run gets its own timestamped directory so
// successive runs never overwrite each other.
package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"time"

	"github.com/quantfork/cryptbot/internal/types"
	"github.com/quantfork/cryptbot/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ResultWriter persists a finished run.
type ResultWriter interface {
	// WriteRows writes the per-candle ledger rows.
	WriteRows(rows []types.ReportRow) error
	// WriteSummary writes the run digest.
	WriteSummary(summary types.RunSummary) error
	// Close finalizes the output.
	Close() error
}

// CSVWriter implements ResultWriter with a rows.csv and summary.yaml file
// inside a per-run directory.
type CSVWriter struct {
	runDir   string
	rowsFile *os.File
	rowsCsv  *csv.Writer
}

var _ ResultWriter = (*CSVWriter)(nil)

var rowsHeader = []string{"close_time", "close_price", "base_amount", "quote_amount", "capital"}

// NewCSVWriter creates the run directory under baseDir and opens the rows
// file with its header written. runName prefixes the directory so reports
// from different strategies stay apart.
func NewCSVWriter(baseDir, runName string) (*CSVWriter, error) {
	runDir := filepath.Join(baseDir, runName+"_"+time.Now().Format("2006-01-02_15-04-05"))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to create run directory %s", runDir)
	}

	rowsFile, err := os.Create(filepath.Join(runDir, "rows.csv"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to create rows file", err)
	}

	rowsCsv := csv.NewWriter(rowsFile)
	if err := rowsCsv.Write(rowsHeader); err != nil {
		rowsFile.Close()

		return nil, errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to write rows header", err)
	}

	return &CSVWriter{
		runDir:   runDir,
		rowsFile: rowsFile,
		rowsCsv:  rowsCsv,
	}, nil
}

// RunDir returns the directory this run writes into.
func (w *CSVWriter) RunDir() string {
	return w.runDir
}

// WriteRows appends ledger rows to rows.csv. Decimal values are written in
// their exact string form so identical runs produce identical files.
func (w *CSVWriter) WriteRows(rows []types.ReportRow) error {
	for _, row := range rows {
		record := []string{
			row.CloseTime.UTC().Format(time.RFC3339),
			row.ClosePrice.String(),
			row.BaseAmount.String(),
			row.QuoteAmount.String(),
			row.Capital.String(),
		}

		if err := w.rowsCsv.Write(record); err != nil {
			return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to write report row", err)
		}
	}

	w.rowsCsv.Flush()

	if err := w.rowsCsv.Error(); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to flush report rows", err)
	}

	return nil
}

// WriteSummary writes summary.yaml next to the rows file.
func (w *CSVWriter) WriteSummary(summary types.RunSummary) error {
	summaryFile, err := os.Create(filepath.Join(w.runDir, "summary.yaml"))
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to create summary file", err)
	}
	defer summaryFile.Close()

	data, err := yaml.Marshal(summary)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to marshal summary", err)
	}

	if _, err := summaryFile.Write(data); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to write summary", err)
	}

	return nil
}

// Close flushes and closes the rows file.
func (w *CSVWriter) Close() error {
	w.rowsCsv.Flush()

	if err := w.rowsCsv.Error(); err != nil {
		w.rowsFile.Close()

		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to flush report rows", err)
	}

	return w.rowsFile.Close()
}
