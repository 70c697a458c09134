// Package request holds validated index lookups.
package request

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/hoteldex/internal/domain/search/filter"
)

// Lookup limits.
const (
	// MaxQueryLength is the maximum allowed name query length in runes.
	MaxQueryLength = 256
	DefaultLimit   = 10
	MaxLimit       = 100

	// MaxWindow bounds how many candidates the index may return before
	// ranking applies the tie-breaks and the cap.
	MaxWindow = 1000
)

// Request is a validated lookup over one index: name terms, filters, or both.
type Request struct {
	index    string
	text     string
	terms    []string
	filters  filter.Expression
	limit    int
	window   int
	sortBy   string
	sortDesc bool
}

// New validates a lookup. Text is split into lowercase word terms; a request
// needs at least one term or one filter. limit <= 0 means DefaultLimit.
func New(index, text string, filters filter.Expression, limit int) (Request, error) {
	if index == "" {
		return Request{}, fmt.Errorf("index is required")
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	terms := Terms(text)
	if text != "" && len(terms) == 0 {
		return Request{}, fmt.Errorf("query %q has no searchable words", text)
	}
	if len(terms) == 0 && filters.IsEmpty() {
		return Request{}, fmt.Errorf("query or filter is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Request{index: index, text: text, terms: terms, filters: filters, limit: limit}, nil
}

// WithSort asks the index to order candidates by a sortable field instead of
// by score. Only meaningful when every candidate scores the same.
func (r Request) WithSort(field string, desc bool) Request {
	r.sortBy = field
	r.sortDesc = desc
	return r
}

// WithWindow widens the candidate set the index returns. It is clamped to
// [Limit, MaxWindow].
func (r Request) WithWindow(n int) Request {
	r.window = min(max(n, r.limit), MaxWindow)
	return r
}

// Terms splits text on everything that is not a letter or digit.
func Terms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Index returns the target index name.
func (r Request) Index() string { return r.index }

// Text returns the trimmed query text as given.
func (r Request) Text() string { return r.text }

// Terms returns the word terms.
func (r Request) Terms() []string { return r.terms }

// Filters returns the filter expression.
func (r Request) Filters() filter.Expression { return r.filters }

// Limit returns the result cap.
func (r Request) Limit() int { return r.limit }

// Window returns how many candidates to fetch. Never less than Limit.
func (r Request) Window() int { return max(r.window, r.limit) }

// SortBy returns the server-side sort field, empty for score order.
func (r Request) SortBy() string { return r.sortBy }

// SortDesc reports whether SortBy is descending.
func (r Request) SortDesc() bool { return r.sortDesc }
