package flatten

import (
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/sirupsen/logrus"
)

// MinYear computes the inclusive year floor for a lookback of yearsBack
// calendar years, counting the current year as the first.
func MinYear(t time.Time, yearsBack int) int {
	return t.Year() - yearsBack + 1
}

// Window returns the subset of rows whose publication year is at or above
// minYear. Rows without a usable year are excluded, never an error. If the
// year column is absent from the whole set, a schema drift warning is logged
// once and the subset is empty unless publication_date can stand in.
func Window(rows []Row, minYear int) []Row {
	var (
		out     []Row
		haveCol bool
	)
	for _, row := range rows {
		if _, ok := row["publication_year"]; ok {
			haveCol = true
		}
		year, ok := rowYear(row)
		if !ok {
			continue
		}
		if year >= minYear {
			out = append(out, row)
		}
	}
	if len(rows) > 0 && !haveCol {
		logrus.Warn("publication_year missing from record set; windowed subset relies on publication_date only")
	}
	return out
}

// rowYear coerces the publication year of a row to an int, falling back to
// parsing publication_date when the year column is absent.
func rowYear(row Row) (int, bool) {
	if s, ok := row["publication_year"]; ok {
		if s == "" {
			return 0, false
		}
		if y, err := strconv.Atoi(s); err == nil {
			return y, true
		}
		// tolerate float-ish spellings like 2021.0
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f), true
		}
		return 0, false
	}
	if s := row["publication_date"]; s != "" {
		if t, err := dateparse.ParseAny(s); err == nil {
			return t.Year(), true
		}
	}
	return 0, false
}

// Tag marks rows with the author they were fetched for, so downstream
// aggregation can attribute rows after compilation.
func Tag(rows []Row, authorName, authorID string) {
	for _, row := range rows {
		row["author_name"] = authorName
		row["author_openalex_id"] = authorID
	}
}
