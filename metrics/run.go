package metrics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ResonanceResearch/WCVM-VetMic/atomicfile"
	"github.com/ResonanceResearch/WCVM-VetMic/ident"
	"github.com/ResonanceResearch/WCVM-VetMic/roster"
	"github.com/ResonanceResearch/WCVM-VetMic/schema/openalex"
)

// Columns appended to the roster, in output order.
var metricColumns = []string{
	"Display_name", "H_index", "I10_index", "Works_count", "Total_citations",
}

// ErrNoIDColumn means the roster has neither an OpenAlex id nor an ORCID
// column; the caller exits with a distinct status.
var ErrNoIDColumn = errors.New("no OpenAlex ID or ORCID column detected")

// Runner drives the metrics pass over one roster.
type Runner struct {
	Client *Client
	// Delay between API calls, politeness.
	Delay time.Duration
	// LogDiffs compares against a previous output at the same path.
	LogDiffs bool
	Sleep    func(time.Duration)
}

// Run fetches metrics for every roster row and writes the roster with metric
// columns appended to outPath. Rows with no usable identifier get empty
// metric cells; a failed lookup never aborts the run. Returns the number of
// rows for which metrics were fetched.
func (r *Runner) Run(t *roster.Table, outPath string) (int, error) {
	idCol := t.OpenAlexColumn()
	orcidCol := t.OrcidColumn()
	if idCol < 0 && orcidCol < 0 {
		return 0, ErrNoIDColumn
	}
	idCol = ensureColumn(t, idCol, "OpenAlexID")
	orcidCol = ensureColumn(t, orcidCol, "ORCID")

	var prev *roster.Table
	if r.LogDiffs {
		if pt, err := roster.Read(outPath); err == nil {
			prev = pt
			logrus.Infof("loaded previous output for diffing: %s", outPath)
		} else if !os.IsNotExist(err) {
			logrus.Warnf("could not read previous output for diffs: %v", err)
		}
	}

	r.resolveMissing(t, idCol, orcidCol)

	header := append(append([]string{}, t.Header...), metricColumns...)
	records := make([][]string, 0, len(t.Records))
	fetched := 0
	for i := range t.Records {
		rawID := t.Cell(i, idCol)
		rawOrcid := t.Cell(i, orcidCol)
		author, err := r.lookup(rawID, rawOrcid)
		rec := pad(t.Records[i], len(t.Header))
		if err != nil {
			if !errors.Is(err, ErrEmptyID) {
				logrus.Warnf("row %d/%d: %v", i+1, len(t.Records), err)
			} else {
				logrus.Infof("row %d/%d: missing identifier, skipping", i+1, len(t.Records))
			}
			rec = append(rec, "", "", "", "", "")
			records = append(records, rec)
			continue
		}
		fetched++
		// write resolved identifiers back into their roster columns
		rec[idCol] = author.ID
		if author.ORCID != "" {
			rec[orcidCol] = ident.NormalizeORCID(author.ORCID)
		}
		rec = append(rec,
			author.DisplayName,
			strconv.FormatInt(author.SummaryStats.HIndex, 10),
			strconv.FormatInt(author.SummaryStats.I10Index, 10),
			strconv.FormatInt(author.WorksCount, 10),
			strconv.FormatInt(author.CitedByCount, 10),
		)
		records = append(records, rec)
		r.pause()
	}
	if prev != nil {
		logDiffs(prev, header, records)
	}
	if err := writeCSV(outPath, header, records); err != nil {
		return fetched, err
	}
	logrus.Infof("wrote %s (%d rows, %d with metrics)", outPath, len(records), fetched)
	return fetched, nil
}

// lookup prefers the OpenAlex id and falls back to ORCID.
func (r *Runner) lookup(rawID, rawOrcid string) (*openalex.Author, error) {
	if ident.AuthorEndpoint(rawID) != "" {
		return r.Client.FetchAuthor(rawID)
	}
	if ident.OrcidEndpoint(rawOrcid) != "" {
		return r.Client.FetchByORCID(rawOrcid)
	}
	return nil, ErrEmptyID
}

// resolveMissing fills in the missing one of OpenAlexID/ORCID per row via the
// API, memoized per run so shared advisors cost one call.
func (r *Runner) resolveMissing(t *roster.Table, idCol, orcidCol int) {
	byID := make(map[string]*openalex.Author)
	byOrcid := make(map[string]*openalex.Author)
	for i := range t.Records {
		rawID := t.Cell(i, idCol)
		rawOrcid := ident.NormalizeORCID(t.Cell(i, orcidCol))
		switch {
		case rawID != "" && rawOrcid != "":
			continue
		case rawID != "":
			key := ident.AuthorEndpoint(rawID)
			author, ok := byID[key]
			if !ok {
				var err error
				if author, err = r.Client.FetchAuthor(rawID); err != nil {
					logrus.Warnf("resolve orcid for %s: %v", rawID, err)
					continue
				}
				byID[key] = author
				r.pause()
			}
			if author.ORCID != "" {
				setCell(t, i, orcidCol, ident.NormalizeORCID(author.ORCID))
			}
		case rawOrcid != "":
			author, ok := byOrcid[rawOrcid]
			if !ok {
				var err error
				if author, err = r.Client.FetchByORCID(rawOrcid); err != nil {
					logrus.Warnf("resolve openalex id for %s: %v", rawOrcid, err)
					continue
				}
				byOrcid[rawOrcid] = author
				r.pause()
			}
			if author.ID != "" {
				setCell(t, i, idCol, author.ID)
			}
		}
	}
}

func (r *Runner) pause() {
	if r.Delay <= 0 {
		return
	}
	if r.Sleep != nil {
		r.Sleep(r.Delay)
		return
	}
	time.Sleep(r.Delay)
}

// logDiffs logs per-column changed row counts and total deltas against a
// previous output, when row counts line up.
func logDiffs(prev *roster.Table, header []string, records [][]string) {
	if len(prev.Records) != len(records) {
		logrus.Warnf("diff: row count changed (%d -> %d), skipping deltas", len(prev.Records), len(records))
		return
	}
	for _, col := range []string{"H_index", "I10_index", "Works_count", "Total_citations"} {
		pi := columnIndex(prev.Header, col)
		ni := columnIndex(header, col)
		if pi < 0 || ni < 0 {
			continue
		}
		var changed int
		var total float64
		for i := range records {
			d := toFloat(cellOf(records[i], ni)) - toFloat(prev.Cell(i, pi))
			if d != 0 {
				changed++
				total += d
			}
		}
		logrus.Infof("diff %s: %d rows changed; total delta = %v", col, changed, total)
	}
}

func ensureColumn(t *roster.Table, col int, name string) int {
	if col >= 0 {
		return col
	}
	t.Header = append(t.Header, name)
	return len(t.Header) - 1
}

func setCell(t *roster.Table, row, col int, value string) {
	t.Records[row] = pad(t.Records[row], col+1)
	t.Records[row][col] = value
}

func pad(rec []string, n int) []string {
	out := append([]string{}, rec...)
	for len(out) < n {
		out = append(out, "")
	}
	return out
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func cellOf(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func toFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func writeCSV(path string, header []string, records [][]string) error {
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
		if err := w.Write(pad(rec, len(header))[:len(header)]); err != nil {
			af.Abort()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		af.Abort()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return af.Close()
}
