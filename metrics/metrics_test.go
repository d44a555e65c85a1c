package metrics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/ResonanceResearch/WCVM-VetMic/roster"
)

// authorServer serves two known authors, by id and by orcid path form.
func authorServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("select"); got == "" {
			t.Errorf("missing select projection in %s", r.URL)
		}
		switch r.URL.Path {
		case "/authors/A5015254879", "/authors/orcid:0000-0002-1825-0097":
			fmt.Fprint(w, `{
				"id": "https://openalex.org/A5015254879",
				"display_name": "Jane Debuck",
				"orcid": "https://orcid.org/0000-0002-1825-0097",
				"works_count": 120,
				"cited_by_count": 3400,
				"summary_stats": {"h_index": 31, "i10_index": 74}
			}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func testClient(serverURL string) *Client {
	return &Client{
		HTTP:      http.DefaultClient,
		BaseURL:   serverURL,
		UserAgent: "wcvm-metrics/test",
	}
}

func TestFetchAuthor(t *testing.T) {
	server := authorServer(t)
	defer server.Close()
	c := testClient(server.URL)
	author, err := c.FetchAuthor("A5015254879")
	if err != nil {
		t.Fatal(err)
	}
	if author.DisplayName != "Jane Debuck" {
		t.Errorf("display name: %q", author.DisplayName)
	}
	if author.SummaryStats.HIndex != 31 || author.SummaryStats.I10Index != 74 {
		t.Errorf("summary stats: %+v", author.SummaryStats)
	}
	if author.WorksCount != 120 || author.CitedByCount != 3400 {
		t.Errorf("counts: %+v", author)
	}
}

func TestFetchAuthorEmptyID(t *testing.T) {
	c := testClient("http://unused.example.com")
	if _, err := c.FetchAuthor(""); !errors.Is(err, ErrEmptyID) {
		t.Errorf("got %v, want ErrEmptyID", err)
	}
}

func TestFetchByORCID(t *testing.T) {
	server := authorServer(t)
	defer server.Close()
	c := testClient(server.URL)
	author, err := c.FetchByORCID("https://orcid.org/0000-0002-1825-0097")
	if err != nil {
		t.Fatal(err)
	}
	if author.ID != "https://openalex.org/A5015254879" {
		t.Errorf("id: %q", author.ID)
	}
}

func TestRunnerNoIDColumn(t *testing.T) {
	r := &Runner{Client: testClient("http://unused.example.com")}
	table := &roster.Table{Header: []string{"Name", "Department"}}
	if _, err := r.Run(table, filepath.Join(t.TempDir(), "out.csv")); !errors.Is(err, ErrNoIDColumn) {
		t.Errorf("got %v, want ErrNoIDColumn", err)
	}
}

func TestRunnerRun(t *testing.T) {
	server := authorServer(t)
	defer server.Close()
	table := &roster.Table{
		Header: []string{"Name", "OpenAlexID", "ORCID"},
		Records: [][]string{
			{"Jane Debuck", "A5015254879", ""},
			{"No Identifier", "", ""},
			{"Orcid Only", "", "0000-0002-1825-0097"},
		},
	}
	out := filepath.Join(t.TempDir(), "roster_with_metrics.csv")
	r := &Runner{Client: testClient(server.URL)}
	fetched, err := r.Run(table, out)
	if err != nil {
		t.Fatal(err)
	}
	if fetched != 2 {
		t.Errorf("fetched = %d, want 2", fetched)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"Name", "OpenAlexID", "ORCID", "Display_name", "H_index", "I10_index", "Works_count", "Total_citations"},
		{"Jane Debuck", "https://openalex.org/A5015254879", "0000-0002-1825-0097", "Jane Debuck", "31", "74", "120", "3400"},
		{"No Identifier", "", "", "", "", "", "", ""},
		{"Orcid Only", "https://openalex.org/A5015254879", "0000-0002-1825-0097", "Jane Debuck", "31", "74", "120", "3400"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected output (-want +got):\n%s", diff)
	}
}

func TestRunnerMemoizesResolution(t *testing.T) {
	var orcidHits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/authors/orcid:") {
			atomic.AddInt64(&orcidHits, 1)
		}
		fmt.Fprint(w, `{
			"id": "https://openalex.org/A5015254879",
			"display_name": "Jane Debuck",
			"orcid": "https://orcid.org/0000-0002-1825-0097",
			"works_count": 120,
			"cited_by_count": 3400,
			"summary_stats": {"h_index": 31, "i10_index": 74}
		}`)
	}))
	defer server.Close()
	// two advisees sharing one supervisor ORCID
	table := &roster.Table{
		Header: []string{"Name", "OpenAlexID", "ORCID"},
		Records: [][]string{
			{"Jane Debuck", "", "0000-0002-1825-0097"},
			{"Jane Debuck", "", "0000-0002-1825-0097"},
		},
	}
	out := filepath.Join(t.TempDir(), "out.csv")
	r := &Runner{Client: testClient(server.URL)}
	fetched, err := r.Run(table, out)
	if err != nil {
		t.Fatal(err)
	}
	if fetched != 2 {
		t.Errorf("fetched = %d, want 2", fetched)
	}
	if orcidHits != 1 {
		t.Errorf("orcid lookups = %d, want 1 (resolution should be memoized per run)", orcidHits)
	}
}

func TestRunnerLogDiffs(t *testing.T) {
	server := authorServer(t)
	defer server.Close()
	out := filepath.Join(t.TempDir(), "roster_with_metrics.csv")
	prior := "Name,OpenAlexID,ORCID,Display_name,H_index,I10_index,Works_count,Total_citations\n" +
		"Jane Debuck,https://openalex.org/A5015254879,0000-0002-1825-0097,Jane Debuck,30,74,120,3400\n"
	if err := os.WriteFile(out, []byte(prior), 0644); err != nil {
		t.Fatal(err)
	}
	hook := logtest.NewGlobal()
	defer hook.Reset()
	table := &roster.Table{
		Header:  []string{"Name", "OpenAlexID", "ORCID"},
		Records: [][]string{{"Jane Debuck", "A5015254879", "0000-0002-1825-0097"}},
	}
	r := &Runner{Client: testClient(server.URL), LogDiffs: true}
	if _, err := r.Run(table, out); err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, e := range hook.AllEntries() {
		if e.Message == "diff H_index: 1 rows changed; total delta = 1" {
			found = true
		}
	}
	if !found {
		t.Error("missing H_index delta log line against the previous output")
	}
}

func TestRunnerLogDiffsRowCountMismatch(t *testing.T) {
	server := authorServer(t)
	defer server.Close()
	out := filepath.Join(t.TempDir(), "roster_with_metrics.csv")
	prior := "Name,OpenAlexID,ORCID,Display_name,H_index,I10_index,Works_count,Total_citations\n" +
		"Jane Debuck,https://openalex.org/A5015254879,0000-0002-1825-0097,Jane Debuck,30,74,120,3400\n" +
		"Someone Else,,,,,,,\n"
	if err := os.WriteFile(out, []byte(prior), 0644); err != nil {
		t.Fatal(err)
	}
	hook := logtest.NewGlobal()
	defer hook.Reset()
	table := &roster.Table{
		Header:  []string{"Name", "OpenAlexID", "ORCID"},
		Records: [][]string{{"Jane Debuck", "A5015254879", "0000-0002-1825-0097"}},
	}
	r := &Runner{Client: testClient(server.URL), LogDiffs: true}
	if _, err := r.Run(table, out); err != nil {
		t.Fatal(err)
	}
	var skipped, deltas bool
	for _, e := range hook.AllEntries() {
		if strings.Contains(e.Message, "row count changed") {
			skipped = true
		}
		if strings.Contains(e.Message, "rows changed; total delta") {
			deltas = true
		}
	}
	if !skipped {
		t.Error("missing row count mismatch warning")
	}
	if deltas {
		t.Error("deltas logged despite mismatched row counts")
	}
}
