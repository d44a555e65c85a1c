// Package etl wires the per-author works pipeline: normalize the id, fetch
// all works, flatten, split off the recent window and append both streams to
// compiled CSV files. Strictly sequential, one author completes before the
// next starts; a failing author is logged and skipped, never fatal.
package etl

import (
	"github.com/sirupsen/logrus"

	"github.com/ResonanceResearch/WCVM-VetMic/flatten"
	"github.com/ResonanceResearch/WCVM-VetMic/harvest"
	"github.com/ResonanceResearch/WCVM-VetMic/ident"
	"github.com/ResonanceResearch/WCVM-VetMic/roster"
	"github.com/ResonanceResearch/WCVM-VetMic/tabular"
)

// KeyFields is the fixed column schema of the compiled files, the fields the
// dashboard expects, in order.
var KeyFields = []string{
	"id", "doi", "display_name", "publication_year", "type", "cited_by_count",
	"open_access__oa_status", "host_venue__display_name",
	"primary_location__source__display_name",
	"primary_topic__display_name", "primary_topic__field__display_name",
	"primary_topic__subfield__display_name",
	"biblio__volume", "biblio__issue", "biblio__first_page", "biblio__last_page",
	"fwci", "authors", "institutions", "concepts_list",
	"author_name", "author_openalex_id",
}

// DedupeKeys identify one work across authors; doi is a secondary key so
// works sharing an id but differing in doi spelling survive.
var DedupeKeys = []string{"id", "doi"}

// Works runs the compile phase over a roster.
type Works struct {
	Harvester *harvest.WorksHarvester
	// LifetimePath and WindowPath are the two compiled CSV streams.
	LifetimePath string
	WindowPath   string
	// MinYear is the inclusive publication year floor of the windowed stream,
	// computed once by the caller via flatten.MinYear.
	MinYear int
}

// Stats of one run.
type Stats struct {
	Attempted int // roster rows with a usable id
	Skipped   int // roster rows without an id
	Processed int // authors that yielded windowed output
	Works     int // lifetime records appended
}

// Run processes all roster entries in order and returns run statistics.
func (w *Works) Run(entries []roster.Entry) Stats {
	var stats Stats
	for _, e := range entries {
		uri := ident.WorksURI(e.ID)
		if uri == "" {
			stats.Skipped++
			logrus.Infof("skipping row %d (%s): missing OpenAlex id", e.Row, e.Name)
			continue
		}
		stats.Attempted++
		logrus.Infof("processing %s (%s)", e.Name, e.ID)
		if n, ok := w.processAuthor(uri); ok {
			stats.Processed++
			stats.Works += n
		}
	}
	logrus.Infof("run done: attempted=%d, processed=%d, skipped=%d, works=%d",
		stats.Attempted, stats.Processed, stats.Skipped, stats.Works)
	return stats
}

// processAuthor runs one fetch cycle. Partially fetched pages are still
// flattened and appended, a flaky tail page should not discard an author.
// Returns the lifetime record count and whether windowed output was written.
func (w *Works) processAuthor(uri string) (int, bool) {
	raws, err := w.Harvester.FetchAuthorWorks(uri, 0)
	if err != nil {
		logrus.Errorf("fetch failed for %s: %v", uri, err)
	}
	if len(raws) == 0 {
		logrus.Infof("no works returned for %s", uri)
		return 0, false
	}
	rows := make([]flatten.Row, 0, len(raws))
	for _, raw := range raws {
		row, err := flatten.FromRaw(raw)
		if err != nil {
			logrus.Warnf("skipping malformed record for %s: %v", uri, err)
			continue
		}
		rows = append(rows, row)
	}
	windowed := flatten.Window(rows, w.MinYear)
	flatten.Tag(rows, ident.TailSegment(uri), uri)
	if err := tabular.AppendCSV(w.LifetimePath, rows, KeyFields); err != nil {
		logrus.Errorf("append lifetime works for %s: %v", uri, err)
		return 0, false
	}
	logrus.Infof("appended %d lifetime works for %s", len(rows), uri)
	if len(windowed) == 0 {
		logrus.Infof("no works inside the year window for %s", uri)
		return len(rows), false
	}
	if err := tabular.AppendCSV(w.WindowPath, windowed, KeyFields); err != nil {
		logrus.Errorf("append windowed works for %s: %v", uri, err)
		return len(rows), false
	}
	logrus.Infof("appended %d windowed works for %s", len(windowed), uri)
	return len(rows), true
}

// Finalize deduplicates the windowed compiled file into the final output,
// optionally folding contributor tags across duplicate works.
func (w *Works) Finalize(outputPath string, aggregate bool) error {
	if aggregate {
		return tabular.DedupeAggregate(w.WindowPath, outputPath, DedupeKeys)
	}
	return tabular.Dedupe(w.WindowPath, outputPath, DedupeKeys)
}
