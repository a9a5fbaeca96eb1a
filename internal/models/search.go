package models

import "strings"

// SearchRequest is a search issued to every available provider.
type SearchRequest struct {
	Query string `json:"query"`
	// Ext narrows daemon searches to a file extension (e.g. "iso"); empty means any.
	Ext string `json:"ext,omitempty"`
	// Filter is an optional query-language expression applied to the merged names.
	Filter string `json:"filter,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Validate normalizes the request: trims the query and clamps limit and offset.
// defaultLimit applies when Limit is unset; maxLimit caps it (0 = no cap).
func (r *SearchRequest) Validate(defaultLimit, maxLimit int) {
	r.Query = strings.TrimSpace(r.Query)
	if r.Limit <= 0 {
		r.Limit = defaultLimit
	}
	if maxLimit > 0 && r.Limit > maxLimit {
		r.Limit = maxLimit
	}
	if r.Offset < 0 {
		r.Offset = 0
	}
}

// SearchResponse is the merged result of a search.
type SearchResponse struct {
	ID      string `json:"id"`
	Query   string `json:"query"`
	Results []*Hit `json:"results"`
	// Total is the number of merged hits before offset/limit.
	Total int `json:"total"`
	// Providers maps each provider that ran to the raw hit count it returned.
	Providers map[string]int `json:"providers"`
	QueryTime int64          `json:"query_time_ms"`
}
