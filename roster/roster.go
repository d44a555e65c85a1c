// Package roster reads the faculty roster files driving a fetch run.
// Supported inputs: .csv, .tsv and .xlsx/.xls workbooks.
//
// Header matching works off an explicit ordered alias list per logical
// column, compared after lowercasing and stripping non-alphanumerics, so
// "OpenAlex ID", "openalex_id" and "OpenAlexAuthorID" all resolve to the
// same column. Resolution happens once at load time.
package roster

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Alias lists in priority order; first match wins.
var (
	openalexAliases = []string{
		"openalexid", "openalexauthorid", "authoropenalexid", "openalex",
	}
	orcidAliases = []string{
		"orcid", "orcidid", "orcididentifier", "orcidlink", "orcidurl",
	}
	nameAliases = []string{
		"name", "author", "fullname", "displayname",
	}
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// NormalizeHeader reduces a header cell to its comparable form.
func NormalizeHeader(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

// Table is a roster file in memory.
type Table struct {
	Header  []string
	Records [][]string
}

// Read loads a roster file, dispatching on the file extension.
func Read(path string) (*Table, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return readDelimited(path, ',')
	case ".tsv":
		return readDelimited(path, '\t')
	case ".xlsx", ".xls":
		return readWorkbook(path)
	default:
		return nil, fmt.Errorf("roster: unsupported input format %q, use .csv, .tsv, .xlsx or .xls", ext)
	}
}

func readDelimited(path string, sep rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = sep
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("roster: empty file: %s", path)
	}
	return &Table{Header: all[0], Records: all[1:]}, nil
}

func readWorkbook(path string) (*Table, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("roster: workbook has no sheets: %s", path)
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("roster: empty sheet in %s", path)
	}
	return &Table{Header: rows[0], Records: rows[1:]}, nil
}

// Resolve returns the index of the first header matching any alias, in alias
// priority order, or -1.
func (t *Table) Resolve(aliases []string) int {
	norm := make([]string, len(t.Header))
	for i, h := range t.Header {
		norm[i] = NormalizeHeader(h)
	}
	for _, a := range aliases {
		for i, n := range norm {
			if n == a {
				return i
			}
		}
	}
	return -1
}

// OpenAlexColumn returns the index of the author id column, or -1.
func (t *Table) OpenAlexColumn() int { return t.Resolve(openalexAliases) }

// OrcidColumn returns the index of the ORCID column, or -1.
func (t *Table) OrcidColumn() int { return t.Resolve(orcidAliases) }

// NameColumn returns the index of the display name column, or -1.
func (t *Table) NameColumn() int { return t.Resolve(nameAliases) }

// Cell returns a trimmed cell value, tolerating short records.
func (t *Table) Cell(row, col int) string {
	if col < 0 || row < 0 || row >= len(t.Records) || col >= len(t.Records[row]) {
		return ""
	}
	return strings.TrimSpace(t.Records[row][col])
}

// Entry is one roster line driving a fetch cycle.
type Entry struct {
	Row  int // zero-based record index, for log messages
	Name string
	ID   string
}

// Entries lists all roster rows with the display name and raw author id
// token. The name falls back to the id token, then "Unknown". Rows with an
// empty id are included, callers count and skip them.
func (t *Table) Entries() []Entry {
	idCol := t.OpenAlexColumn()
	nameCol := t.NameColumn()
	entries := make([]Entry, 0, len(t.Records))
	for i := range t.Records {
		e := Entry{Row: i, ID: t.Cell(i, idCol), Name: t.Cell(i, nameCol)}
		if e.Name == "" {
			e.Name = e.ID
		}
		if e.Name == "" {
			e.Name = "Unknown"
		}
		entries = append(entries, e)
	}
	return entries
}
