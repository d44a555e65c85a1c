package ident

import "testing"

func TestWorksURI(t *testing.T) {
	var cases = []struct {
		about string
		token string
		want  string
	}{
		{"bare id", "A5015254879", "https://openalex.org/A5015254879"},
		{"lowercase letter", "a5015254879", "https://openalex.org/A5015254879"},
		{"surrounding space", "  A5015254879 ", "https://openalex.org/A5015254879"},
		{"prefixed", "openalex:A5015254879", "https://openalex.org/A5015254879"},
		{"prefixed mixed case", "OpenAlex:a5015254879", "https://openalex.org/A5015254879"},
		{"human url unchanged", "https://openalex.org/A5015254879", "https://openalex.org/A5015254879"},
		{"http url unchanged", "http://openalex.org/A5015254879", "http://openalex.org/A5015254879"},
		{"empty", "", ""},
		{"spreadsheet nan", "nan", ""},
		{"spreadsheet none", "None", ""},
	}
	for _, c := range cases {
		if got := WorksURI(c.token); got != c.want {
			t.Errorf("%s: WorksURI(%q) = %q, want %q", c.about, c.token, got, c.want)
		}
	}
}

func TestWorksURIIdempotent(t *testing.T) {
	for _, token := range []string{"A5015254879", "openalex:a123", "https://openalex.org/A1", ""} {
		once := WorksURI(token)
		if twice := WorksURI(once); twice != once {
			t.Errorf("WorksURI not idempotent for %q: %q != %q", token, twice, once)
		}
	}
}

func TestAuthorEndpoint(t *testing.T) {
	var cases = []struct {
		token string
		want  string
	}{
		{"A5015254879", "https://api.openalex.org/authors/A5015254879"},
		{"a5015254879", "https://api.openalex.org/authors/A5015254879"},
		{"openalex:A5015254879", "https://api.openalex.org/authors/A5015254879"},
		{"https://openalex.org/A5015254879", "https://api.openalex.org/authors/A5015254879"},
		{"https://openalex.org/a5015254879/", "https://api.openalex.org/authors/A5015254879"},
		{"https://api.openalex.org/authors/A5015254879", "https://api.openalex.org/authors/A5015254879"},
		{"", ""},
		{"nan", ""},
	}
	for _, c := range cases {
		if got := AuthorEndpoint(c.token); got != c.want {
			t.Errorf("AuthorEndpoint(%q) = %q, want %q", c.token, got, c.want)
		}
		if again := AuthorEndpoint(c.want); again != c.want {
			t.Errorf("AuthorEndpoint not idempotent: %q -> %q", c.want, again)
		}
	}
}

func TestNormalizeORCID(t *testing.T) {
	var cases = []struct {
		token string
		want  string
	}{
		{"0000-0002-1825-0097", "0000-0002-1825-0097"},
		{"https://orcid.org/0000-0002-1825-0097", "0000-0002-1825-0097"},
		{"0000000218250097", "0000-0002-1825-0097"},
		{"000000021825009X", "0000-0002-1825-009X"},
		{"", ""},
		{"none", ""},
		{"not an orcid", "not an orcid"},
	}
	for _, c := range cases {
		if got := NormalizeORCID(c.token); got != c.want {
			t.Errorf("NormalizeORCID(%q) = %q, want %q", c.token, got, c.want)
		}
	}
}

func TestOrcidEndpoint(t *testing.T) {
	got := OrcidEndpoint("https://orcid.org/0000-0002-1825-0097")
	want := "https://api.openalex.org/authors/orcid:0000-0002-1825-0097"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := OrcidEndpoint(""); got != "" {
		t.Errorf("empty orcid should yield empty endpoint, got %q", got)
	}
}

func TestTailSegment(t *testing.T) {
	if got := TailSegment("https://openalex.org/A5015254879"); got != "A5015254879" {
		t.Errorf("got %q", got)
	}
	if got := TailSegment("A5015254879"); got != "A5015254879" {
		t.Errorf("got %q", got)
	}
}
