package db

import "github.com/kailas-cloud/hoteldex/internal/domain/search/filter"

// TextQuery is the input for a scored FT.SEARCH.
//
// Terms are matched against Field twice: as an exact phrase weighted by
// PhraseWeight, and term by term (fuzzy for long terms when Fuzzy is set).
// With no terms the query degenerates to Filters alone.
type TextQuery struct {
	IndexName    string
	Field        string
	Terms        []string
	PhraseWeight float64
	Fuzzy        bool
	Filters      filter.Expression
	Limit        int
	SortBy       string
	SortDesc     bool
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// IndexInfo is the subset of FT.INFO the service reports.
type IndexInfo struct {
	Name    string
	NumDocs int64
}
