// Package openalex contains types for the parts of the OpenAlex API we
// consume, cf. https://docs.openalex.org/.
package openalex

import "encoding/json"

// WorksResponse is the envelope of the works listing endpoint. Work records
// stay raw here: the flattener works on the full nested documents, and we do
// not want to lose fields by forcing them through a struct.
type WorksResponse struct {
	Meta struct {
		Count      int64  `json:"count"`
		PerPage    int64  `json:"per_page"`
		NextCursor string `json:"next_cursor"` // iterate; empty means exhausted
	} `json:"meta"`
	Results []json.RawMessage `json:"results"`
}

// IsLast returns true, if there are no more pages to fetch. An empty result
// page counts as exhausted as well, the API sometimes hands out a cursor past
// the last page.
func (wr *WorksResponse) IsLast() bool {
	return len(wr.Results) == 0 || wr.Meta.NextCursor == ""
}

// Author entity, restricted to the fields of our select projection.
type Author struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	ORCID        string `json:"orcid"`
	WorksCount   int64  `json:"works_count"`
	CitedByCount int64  `json:"cited_by_count"`
	SummaryStats struct {
		HIndex          int64   `json:"h_index"`
		I10Index        int64   `json:"i10_index"`
		YrMeanCitedness float64 `json:"2yr_mean_citedness"`
	} `json:"summary_stats"`
}

// AuthorSelect is the projection requested for author lookups; h_index and
// i10_index live under summary_stats.
const AuthorSelect = "id,display_name,works_count,cited_by_count,orcid,summary_stats"
