// Package memfts is an in-memory, tokenized inverted-index implementation
// of fulltextindex.Index with BM25-lite ranking. No pack example ships a
// dedicated full-text search library, so this is a stdlib-only component
// by design (see DESIGN.md).
package memfts

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kagent-dev/agentmem/internal/fulltextindex"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

type document struct {
	id        string
	tokens    []string
	termFreqs map[string]int
	filters   fulltextindex.Filters
	indexedAt time.Time
}

// Index is a single-language, single-organization-space inverted index.
// Safe for concurrent use.
type Index struct {
	mu        sync.RWMutex
	tokenizer fulltextindex.Tokenizer
	docs      map[string]*document
	postings  map[string]map[string]struct{} // token -> set of doc ids
	totalLen  int
}

func New(tokenizer fulltextindex.Tokenizer) *Index {
	return &Index{
		tokenizer: tokenizer,
		docs:      make(map[string]*document),
		postings:  make(map[string]map[string]struct{}),
	}
}

func (ix *Index) Index(id, text string, filters fulltextindex.Filters) error {
	tokens := ix.tokenizer.Tokenize(text)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.removeLocked(id)

	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	doc := &document{id: id, tokens: tokens, termFreqs: tf, filters: filters, indexedAt: time.Now().UTC()}
	ix.docs[id] = doc
	ix.totalLen += len(tokens)

	for tok := range tf {
		set, ok := ix.postings[tok]
		if !ok {
			set = make(map[string]struct{})
			ix.postings[tok] = set
		}
		set[id] = struct{}{}
	}
	return nil
}

func (ix *Index) Delete(id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(id)
	return nil
}

// removeLocked assumes ix.mu is already held for writing.
func (ix *Index) removeLocked(id string) {
	doc, ok := ix.docs[id]
	if !ok {
		return
	}
	for tok := range doc.termFreqs {
		if set, ok := ix.postings[tok]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(ix.postings, tok)
			}
		}
	}
	ix.totalLen -= len(doc.tokens)
	delete(ix.docs, id)
}

func (ix *Index) Search(queryText string, k int, filters fulltextindex.Filters) ([]fulltextindex.Rank, error) {
	queryTokens := ix.tokenizer.Tokenize(queryText)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := len(ix.docs)
	if n == 0 || len(queryTokens) == 0 {
		return nil, nil
	}
	avgdl := float64(ix.totalLen) / float64(n)

	scores := make(map[string]float64)
	seen := make(map[string]struct{})
	for _, tok := range queryTokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}

		postings := ix.postings[tok]
		nq := len(postings)
		if nq == 0 {
			continue
		}
		idf := math.Log(1 + (float64(n)-float64(nq)+0.5)/(float64(nq)+0.5))

		for id := range postings {
			doc := ix.docs[id]
			if !matchesFilters(doc, filters) {
				continue
			}
			f := float64(doc.termFreqs[tok])
			dl := float64(len(doc.tokens))
			denom := f + bm25K1*(1-bm25B+bm25B*dl/avgdl)
			scores[id] += idf * (f * (bm25K1 + 1)) / denom
		}
	}

	ranks := make([]fulltextindex.Rank, 0, len(scores))
	for id, score := range scores {
		ranks = append(ranks, fulltextindex.Rank{ID: id, Score: score})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Score != ranks[j].Score {
			return ranks[i].Score > ranks[j].Score
		}
		return ranks[i].ID < ranks[j].ID
	})
	if k > 0 && len(ranks) > k {
		ranks = ranks[:k]
	}
	return ranks, nil
}

// matchesFilters implements mandatory filter pushdown (§4.3): every
// provided predicate in `want` must hold against the indexed document's
// stored filters and timestamp.
func matchesFilters(doc *document, want fulltextindex.Filters) bool {
	have := doc.filters
	if want.OrganizationID != "" && have.OrganizationID != want.OrganizationID {
		return false
	}
	if want.UserID != nil {
		if have.UserID == nil || *have.UserID != *want.UserID {
			return false
		}
	}
	if want.AgentID != nil {
		if have.AgentID == nil || *have.AgentID != *want.AgentID {
			return false
		}
	}
	if len(want.Tags) > 0 {
		haveSet := make(map[string]struct{}, len(have.Tags))
		for _, t := range have.Tags {
			haveSet[strings.ToLower(t)] = struct{}{}
		}
		for _, t := range want.Tags {
			if _, ok := haveSet[strings.ToLower(t)]; !ok {
				return false
			}
		}
	}
	if want.TimeRangeFrom != nil && doc.indexedAt.Before(*want.TimeRangeFrom) {
		return false
	}
	if want.TimeRangeTo != nil && doc.indexedAt.After(*want.TimeRangeTo) {
		return false
	}
	return true
}
