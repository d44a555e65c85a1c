// Package ident normalizes the various spellings of author identifiers found
// in roster files into canonical OpenAlex URIs.
//
// Accepted forms for an author id:
//
//   - A5015254879 (bare id, letter case insensitive)
//   - openalex:A5015254879
//   - https://openalex.org/A5015254879 (human page)
//   - https://api.openalex.org/authors/A5015254879 (API url)
//
// All functions fail soft: unusable input yields an empty string, which
// callers treat as "skip this record".
package ident

import (
	"regexp"
	"strings"
)

const (
	// SiteBase is the human-readable entity URI prefix; the works filter
	// wants ids in this form.
	SiteBase = "https://openalex.org"
	// APIBase is the REST API root.
	APIBase = "https://api.openalex.org"
)

// clean trims a raw token and filters out spreadsheet junk values.
func clean(token string) string {
	t := strings.TrimSpace(token)
	switch strings.ToLower(t) {
	case "", "nan", "none", "null":
		return ""
	}
	return t
}

// bareID reduces a token to the bare id with an uppercased type prefix
// letter. URL forms keep their last path segment.
func bareID(token string) string {
	t := clean(token)
	if t == "" {
		return ""
	}
	if strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") {
		t = strings.TrimRight(t, "/")
		if i := strings.LastIndex(t, "/"); i >= 0 {
			t = t[i+1:]
		}
	}
	if strings.HasPrefix(strings.ToLower(t), "openalex:") {
		t = t[strings.Index(t, ":")+1:]
	}
	if t == "" {
		return ""
	}
	return strings.ToUpper(t[:1]) + t[1:]
}

// WorksURI converts an author id token into the full entity URI used in the
// works filter predicate, e.g. https://openalex.org/A5015254879. Tokens that
// already carry a scheme are returned unchanged. Idempotent.
func WorksURI(token string) string {
	t := clean(token)
	if t == "" {
		return ""
	}
	if strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") {
		return t
	}
	id := bareID(t)
	if id == "" {
		return ""
	}
	return SiteBase + "/" + id
}

// AuthorEndpoint converts an author id token into the canonical API URL for a
// single author lookup, e.g. https://api.openalex.org/authors/A5015254879.
// Already-API urls are returned unchanged; human page urls map onto the API
// root, preserving the trailing id segment. Idempotent.
func AuthorEndpoint(token string) string {
	t := clean(token)
	if t == "" {
		return ""
	}
	if strings.HasPrefix(t, APIBase+"/") || strings.HasPrefix(t, "http://api.openalex.org/") {
		return t
	}
	id := bareID(t)
	if id == "" {
		return ""
	}
	return APIBase + "/authors/" + id
}

// OrcidEndpoint returns the API URL for an author lookup by ORCID, using the
// /authors/orcid:<id> path form.
func OrcidEndpoint(orcid string) string {
	norm := NormalizeORCID(orcid)
	if norm == "" {
		return ""
	}
	return APIBase + "/authors/orcid:" + norm
}

var orcidPattern = regexp.MustCompile(`(\d{4}-\d{4}-\d{4}-[\dX]{4})`)

var orcidJunk = regexp.MustCompile(`[^0-9X]`)

// NormalizeORCID returns an ORCID in the bare hyphenated form, e.g.
// 0000-0002-1825-0097. Accepts full urls and compact 16 character forms;
// anything unrecognizable is returned trimmed, missing values yield "".
func NormalizeORCID(token string) string {
	t := clean(token)
	if t == "" {
		return ""
	}
	if m := orcidPattern.FindString(t); m != "" {
		return m
	}
	digits := orcidJunk.ReplaceAllString(strings.ToUpper(t), "")
	if len(digits) == 16 {
		return digits[0:4] + "-" + digits[4:8] + "-" + digits[8:12] + "-" + digits[12:16]
	}
	return t
}

// TailSegment returns the last path segment of a URI, e.g. the bare id of an
// entity URI. Used to tag rows with a compact author handle.
func TailSegment(uri string) string {
	u := strings.TrimRight(uri, "/")
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}
