// Package flatten turns nested OpenAlex work documents into flat row maps
// suitable for CSV output.
//
// Nested object keys are joined with "__", so e.g. open_access.oa_status
// becomes the column open_access__oa_status and names line up with the key
// fields the dashboard expects. List-of-object collections are not flattened
// positionally; the contributor and topic collections instead feed three
// derived string columns: authors, institutions and concepts_list.
package flatten

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Sep joins nested key paths into one flat column name.
const Sep = "__"

// JoinSep separates entries within the derived string columns.
const JoinSep = "; "

// derivedColumns are always present on every row, empty if the underlying
// collections are missing.
var derivedColumns = []string{"authors", "institutions", "concepts_list"}

// Row is one flattened work record, column name to scalar value.
type Row map[string]string

// Clone returns a copy of the row.
func (r Row) Clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// FromRaw decodes one raw work document and flattens it. Numbers pass
// through undamaged via json.Number, so large identifiers do not round-trip
// through float64.
func FromRaw(raw json.RawMessage) (Row, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return Flatten(doc), nil
}

// Flatten converts one nested document into a flat row. Pure: the same
// document always yields the same row.
func Flatten(doc map[string]interface{}) Row {
	row := make(Row)
	walk(doc, "", row)
	row["authors"] = joinNames(authorNames(doc))
	row["institutions"] = joinNames(institutionNames(doc))
	row["concepts_list"] = joinNames(conceptNames(doc))
	// fwci is not part of the works payload; keep the column so downstream
	// schemas stay stable when it arrives from elsewhere.
	if _, ok := row["fwci"]; !ok {
		row["fwci"] = ""
	}
	return row
}

func walk(doc map[string]interface{}, prefix string, row Row) {
	for k, v := range doc {
		key := k
		if prefix != "" {
			key = prefix + Sep + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			walk(val, key, row)
		case []interface{}:
			// collections are handled by the derived columns
		case nil:
			row[key] = ""
		case string:
			row[key] = val
		case bool:
			if val {
				row[key] = "true"
			} else {
				row[key] = "false"
			}
		case json.Number:
			row[key] = val.String()
		default:
			// no other types occur in decoded JSON
		}
	}
}

// joinNames returns the semicolon joined, de-duplicated, lexicographically
// sorted set of non-empty names. Sorting keeps the column deterministic
// across runs regardless of contributor order in the payload.
func joinNames(names []string) string {
	seen := make(map[string]struct{})
	var keep []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		keep = append(keep, n)
	}
	sort.Strings(keep)
	return strings.Join(keep, JoinSep)
}

func authorNames(doc map[string]interface{}) (names []string) {
	for _, a := range asList(doc["authorships"]) {
		names = append(names, asString(dig(a, "author", "display_name")))
	}
	return
}

func institutionNames(doc map[string]interface{}) (names []string) {
	for _, a := range asList(doc["authorships"]) {
		am, ok := a.(map[string]interface{})
		if !ok {
			continue
		}
		for _, inst := range asList(am["institutions"]) {
			names = append(names, asString(dig(inst, "display_name")))
		}
	}
	return
}

func conceptNames(doc map[string]interface{}) (names []string) {
	for _, c := range asList(doc["concepts"]) {
		names = append(names, asString(dig(c, "display_name")))
	}
	return
}

func asList(v interface{}) []interface{} {
	l, _ := v.([]interface{})
	return l
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// dig walks a path of map keys, returning nil as soon as anything is not a
// map or absent.
func dig(v interface{}, path ...string) interface{} {
	for _, p := range path {
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil
		}
		v = m[p]
	}
	return v
}
