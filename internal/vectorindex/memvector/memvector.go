// Package memvector is an in-memory, brute-force cosine-similarity
// implementation of vectorindex.Index. It backs tests and the SQLite
// backend's search path, which has no native vector column.
package memvector

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/kagent-dev/agentmem/internal/vectorindex"
)

type entry struct {
	id     string
	vector []float32
}

// Index is a brute-force, per-organization vector store. Safe for
// concurrent use.
type Index struct {
	mu        sync.RWMutex
	dimension int
	byOrg     map[string]map[string][]float32
}

func New(dimension int) *Index {
	return &Index{dimension: dimension, byOrg: make(map[string]map[string][]float32)}
}

func (ix *Index) Dimension() int { return ix.dimension }

func (ix *Index) Insert(ctx context.Context, orgID, id string, vec []float32) error {
	if err := vectorindex.ValidateDimension(len(vec), ix.dimension); err != nil {
		return err
	}
	stored := make([]float32, len(vec))
	copy(stored, vec)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	org, ok := ix.byOrg[orgID]
	if !ok {
		org = make(map[string][]float32)
		ix.byOrg[orgID] = org
	}
	org[id] = stored
	return nil
}

func (ix *Index) Delete(ctx context.Context, orgID, id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if org, ok := ix.byOrg[orgID]; ok {
		delete(org, id)
	}
	return nil
}

func (ix *Index) Search(ctx context.Context, orgID string, query []float32, k int, threshold float64) ([]vectorindex.Match, error) {
	if err := vectorindex.ValidateDimension(len(query), ix.dimension); err != nil {
		return nil, err
	}

	ix.mu.RLock()
	org := ix.byOrg[orgID]
	entries := make([]entry, 0, len(org))
	for id, vec := range org {
		entries = append(entries, entry{id: id, vector: vec})
	}
	ix.mu.RUnlock()

	matches := make([]vectorindex.Match, 0, len(entries))
	for _, e := range entries {
		score := cosineSimilarity(query, e.vector)
		if score >= threshold {
			matches = append(matches, vectorindex.Match{ID: e.id, Score: score})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
