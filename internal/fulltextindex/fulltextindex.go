// Package fulltextindex defines the C3 contract: a tokenized inverted index
// over memory content with filter predicates and pushdown filtering.
package fulltextindex

import "time"

// Filters restricts a Search/Index call to matching documents. Only
// OrganizationID is mandatory; the rest are pointer/slice zero-values
// meaning "unfiltered on this dimension."
type Filters struct {
	OrganizationID string
	UserID         *string
	AgentID        *string
	Tags           []string
	TimeRangeFrom  *time.Time
	TimeRangeTo    *time.Time
}

// Rank is one search hit: an id and its relevance rank/score.
type Rank struct {
	ID    string
	Score float64
}

// Index is the C3 backend abstraction.
type Index interface {
	// Index tokenizes text and (re-)indexes it under id, attaching filters
	// as the document's queryable metadata.
	Index(id, text string, filters Filters) error

	// Delete removes id from the index. Deleting an absent id is a no-op.
	Delete(id string) error

	// Search tokenizes query_text and returns up to k ranked hits that
	// satisfy every provided filter (pushdown is mandatory, not optional).
	Search(queryText string, k int, filters Filters) ([]Rank, error)
}

// Tokenizer splits raw text into index terms. Pluggable per language.
type Tokenizer interface {
	Tokenize(text string) []string
}
