package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ResonanceResearch/WCVM-VetMic/atomicfile"
	"github.com/ResonanceResearch/WCVM-VetMic/flatten"
)

// Dedupe reads a compiled CSV and writes a copy keeping the first occurrence
// per key tuple; all non-key columns come verbatim from that first row.
// Idempotent. Key columns missing from the header contribute an empty key
// part, so (id, doi) degrades to id-only on files without a doi column.
func Dedupe(inPath, outPath string, keys []string) error {
	header, records, err := readAll(inPath)
	if err != nil {
		return err
	}
	idx := keyIndexes(header, keys)
	seen := make(map[string]struct{})
	var kept [][]string
	for _, rec := range records {
		k := keyOf(rec, idx)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, rec)
	}
	logrus.Infof("dedupe: %d -> %d rows (%s)", len(records), len(kept), strings.Join(keys, ","))
	return writeAll(outPath, header, kept)
}

// contributor columns folded by DedupeAggregate.
const (
	colAuthorName = "author_name"
	colAuthorID   = "author_openalex_id"
	colCount      = "author_count"
)

// DedupeAggregate deduplicates like Dedupe, but folds the contributing
// author tag columns across all rows sharing a key into order-preserving,
// de-duplicated semicolon joins, plus an author_count column. The count is
// tracked while folding, not derived from the joined string afterwards, so a
// separator inside a name cannot inflate it on the first pass; already
// joined cells are split again on re-runs to keep the operation idempotent.
func DedupeAggregate(inPath, outPath string, keys []string) error {
	header, records, err := readAll(inPath)
	if err != nil {
		return err
	}
	idx := keyIndexes(header, keys)
	nameIdx := columnIndex(header, colAuthorName)
	idIdx := columnIndex(header, colAuthorID)
	countIdx := columnIndex(header, colCount)
	outHeader := header
	if countIdx < 0 {
		outHeader = append(append([]string{}, header...), colCount)
	}
	type group struct {
		first []string
		names *fold
		ids   *fold
	}
	var (
		order  []string
		groups = make(map[string]*group)
	)
	for _, rec := range records {
		k := keyOf(rec, idx)
		g, ok := groups[k]
		if !ok {
			g = &group{first: rec, names: newFold(), ids: newFold()}
			groups[k] = g
			order = append(order, k)
		}
		g.names.add(cell(rec, nameIdx))
		g.ids.add(cell(rec, idIdx))
	}
	kept := make([][]string, 0, len(order))
	for _, k := range order {
		g := groups[k]
		rec := append([]string{}, g.first...)
		for len(rec) < len(outHeader) {
			rec = append(rec, "")
		}
		if nameIdx >= 0 {
			rec[nameIdx] = g.names.join()
		}
		if idIdx >= 0 {
			rec[idIdx] = g.ids.join()
		}
		ci := countIdx
		if ci < 0 {
			ci = len(outHeader) - 1
		}
		rec[ci] = strconv.Itoa(g.names.count())
		kept = append(kept, rec)
	}
	logrus.Infof("dedupe: %d -> %d rows with contributor aggregation (%s)",
		len(records), len(kept), strings.Join(keys, ","))
	return writeAll(outPath, outHeader, kept)
}

// fold accumulates distinct values in first-seen order.
type fold struct {
	seen map[string]struct{}
	vals []string
}

func newFold() *fold {
	return &fold{seen: make(map[string]struct{})}
}

// add splits already joined cells so re-aggregating an aggregated file does
// not nest separators or reset counts.
func (f *fold) add(v string) {
	for _, part := range strings.Split(v, flatten.JoinSep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := f.seen[part]; ok {
			continue
		}
		f.seen[part] = struct{}{}
		f.vals = append(f.vals, part)
	}
}

func (f *fold) join() string { return strings.Join(f.vals, flatten.JoinSep) }

func (f *fold) count() int { return len(f.vals) }

func readAll(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // compiled files may have short rows from older runs
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("tabular: empty file: %s", path)
	}
	return all[0], all[1:], nil
}

func writeAll(path string, header []string, records [][]string) error {
	af, err := atomicfile.New(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(af)
	if err := w.Write(header); err != nil {
		af.Abort()
		return err
	}
	for _, rec := range records {
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		if err := w.Write(rec[:len(header)]); err != nil {
			af.Abort()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		af.Abort()
		return err
	}
	return af.Close()
}

func keyIndexes(header []string, keys []string) []int {
	idx := make([]int, 0, len(keys))
	for _, k := range keys {
		idx = append(idx, columnIndex(header, k))
	}
	return idx
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func keyOf(rec []string, idx []int) string {
	parts := make([]string, len(idx))
	for i, j := range idx {
		parts[i] = cell(rec, j)
	}
	return strings.Join(parts, "\x1f")
}
