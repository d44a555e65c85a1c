package flatten

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleWork = `{
	"id": "https://openalex.org/W2741809807",
	"doi": "https://doi.org/10.7717/peerj.4375",
	"display_name": "The state of OA",
	"publication_year": 2018,
	"publication_date": "2018-02-13",
	"type": "article",
	"cited_by_count": 394,
	"is_retracted": false,
	"open_access": {"is_oa": true, "oa_status": "gold", "oa_url": null},
	"biblio": {"volume": "6", "issue": null, "first_page": "e4375", "last_page": "e4375"},
	"primary_location": {"source": {"display_name": "PeerJ"}},
	"authorships": [
		{"author": {"display_name": "Heather Piwowar"}, "institutions": [{"display_name": "Impactstory"}]},
		{"author": {"display_name": "Jason Priem"}, "institutions": [{"display_name": "Impactstory"}, {"display_name": ""}]},
		{"author": {"display_name": "Heather Piwowar"}, "institutions": []}
	],
	"concepts": [
		{"display_name": "Open access", "score": 0.9},
		{"display_name": "Citation", "score": 0.5},
		{"display_name": "Open access", "score": 0.1}
	]
}`

func TestFlatten(t *testing.T) {
	row, err := FromRaw(json.RawMessage(sampleWork))
	if err != nil {
		t.Fatal(err)
	}
	var cases = []struct {
		col  string
		want string
	}{
		{"id", "https://openalex.org/W2741809807"},
		{"display_name", "The state of OA"},
		{"publication_year", "2018"},
		{"cited_by_count", "394"},
		{"is_retracted", "false"},
		{"open_access__is_oa", "true"},
		{"open_access__oa_status", "gold"},
		{"open_access__oa_url", ""},
		{"biblio__volume", "6"},
		{"biblio__issue", ""},
		{"biblio__first_page", "e4375"},
		{"primary_location__source__display_name", "PeerJ"},
		{"authors", "Heather Piwowar; Jason Priem"},
		{"institutions", "Impactstory"},
		{"concepts_list", "Citation; Open access"},
		{"fwci", ""},
	}
	for _, c := range cases {
		got, ok := row[c.col]
		if !ok {
			t.Errorf("column %s missing", c.col)
			continue
		}
		if got != c.want {
			t.Errorf("column %s: got %q, want %q", c.col, got, c.want)
		}
	}
}

func TestFlattenPure(t *testing.T) {
	a, err := FromRaw(json.RawMessage(sampleWork))
	if err != nil {
		t.Fatal(err)
	}
	b, err := FromRaw(json.RawMessage(sampleWork))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("flatten not deterministic (-first +second):\n%s", diff)
	}
}

func TestFlattenMissingCollections(t *testing.T) {
	row := Flatten(map[string]interface{}{"id": "https://openalex.org/W1"})
	for _, col := range []string{"authors", "institutions", "concepts_list", "fwci"} {
		got, ok := row[col]
		if !ok {
			t.Fatalf("derived column %s missing", col)
		}
		if got != "" {
			t.Errorf("derived column %s: got %q, want empty", col, got)
		}
	}
}

func TestFlattenLargeNumbers(t *testing.T) {
	row, err := FromRaw(json.RawMessage(`{"ids": {"mag": 2741809807}}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := row["ids__mag"]; got != "2741809807" {
		t.Errorf("got %q, want 2741809807", got)
	}
}
