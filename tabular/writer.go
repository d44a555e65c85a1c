// Package tabular implements the CSV side of the pipeline: appending
// flattened row batches to compiled files and deduplicating compiled files
// into the final output.
package tabular

import (
	"encoding/csv"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ResonanceResearch/WCVM-VetMic/flatten"
)

// AppendCSV appends a batch of rows to path. With fixedCols set, the output
// carries exactly the declared columns in declared order; columns absent from
// a row are filled empty, extra row columns are dropped (logged at debug).
// Without fixedCols, an existing file's header wins and the batch is
// reindexed to it; for a fresh file the batch's own columns, sorted, become
// the header.
//
// An empty batch is a no-op and does not create a zero-row file. Repeated
// appends of the same batch produce duplicate rows; deduplication is a
// deliberate later pass.
func AppendCSV(path string, rows []flatten.Row, fixedCols []string) error {
	if len(rows) == 0 {
		logrus.Debugf("append: nothing to write to %s (empty batch)", path)
		return nil
	}
	var (
		header []string
		exists bool
	)
	switch {
	case fixedCols != nil:
		header = fixedCols
		if _, err := os.Stat(path); err == nil {
			exists = true
		}
		logMissing(path, rows[0], header)
	default:
		existing, err := readHeader(path)
		if err != nil {
			return err
		}
		if existing != nil {
			header = existing
			exists = true
			if extra := extraColumns(rows, header); len(extra) > 0 {
				logrus.Warnf("append: dropping columns not in %s header: %v", path, extra)
			}
		} else {
			header = batchColumns(rows)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if !exists {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, col := range header {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// readHeader returns the header of an existing CSV file, or nil if the file
// does not exist.
func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	header, err := csv.NewReader(f).Read()
	if err != nil {
		return nil, err
	}
	return header, nil
}

// batchColumns returns the union of all row columns in the batch, sorted for
// a deterministic header.
func batchColumns(rows []flatten.Row) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for col := range row {
			seen[col] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for col := range seen {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func extraColumns(rows []flatten.Row, header []string) []string {
	known := make(map[string]struct{}, len(header))
	for _, col := range header {
		known[col] = struct{}{}
	}
	seen := make(map[string]struct{})
	var extra []string
	for _, row := range rows {
		for col := range row {
			if _, ok := known[col]; ok {
				continue
			}
			if _, ok := seen[col]; ok {
				continue
			}
			seen[col] = struct{}{}
			extra = append(extra, col)
		}
	}
	sort.Strings(extra)
	return extra
}

func logMissing(path string, probe flatten.Row, header []string) {
	var missing []string
	for _, col := range header {
		if _, ok := probe[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		logrus.Debugf("append: columns missing from batch for %s: %v", path, missing)
	}
}
