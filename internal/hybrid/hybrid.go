// Package hybrid implements C4: parallel C2+C3 execution fused by
// Reciprocal Rank Fusion (RRF), with an optional TTL result cache.
package hybrid

import (
	"context"
	"fmt"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/kagent-dev/agentmem/internal/fulltextindex"
	"github.com/kagent-dev/agentmem/internal/vectorindex"
	"github.com/kagent-dev/agentmem/pkg/errs"
	"github.com/kagent-dev/agentmem/pkg/metrics"
)

// Weights are the non-negative vector/full-text fusion weights (defaults
// 0.7/0.3, §4.4).
type Weights struct {
	Vector   float64
	FullText float64
}

func DefaultWeights() Weights { return Weights{Vector: 0.7, FullText: 0.3} }

// Query bundles everything needed to run one hybrid search.
type Query struct {
	Text            string
	Embedding       []float32
	Filters         fulltextindex.Filters
	K               int
	Weights         Weights
	VectorThreshold float64
}

// ComponentScore preserves a result's per-branch contribution for callers
// that want to explain ranking.
type ComponentScore struct {
	ID            string
	VectorScore   *float64
	FullTextScore *float64
	RRFScore      float64
}

// Timing reports the latency breakdown required by §4.4.
type Timing struct {
	VectorMS   int64
	FullTextMS int64
	FusionMS   int64
	TotalMS    int64
}

// Result is a Search's complete response.
type Result struct {
	Matches  []ComponentScore
	Timing   Timing
	Warnings []string
}

const rrfKConst = 60.0

// Searcher runs hybrid search over injected C2/C3 backends.
type Searcher struct {
	vector   vectorindex.Index
	fulltext fulltextindex.Index
	cache    *lru.Cache[string, cachedResult]
	cacheTTL time.Duration
	metrics  *metrics.Registry
}

type cachedResult struct {
	result    Result
	expiresAt time.Time
}

// Option configures a Searcher at construction.
type Option func(*Searcher)

// WithCache enables the optional TTL query-fingerprint cache (disabled by
// default per §4.4).
func WithCache(size int, ttl time.Duration) Option {
	return func(s *Searcher) {
		c, err := lru.New[string, cachedResult](size)
		if err == nil {
			s.cache = c
			s.cacheTTL = ttl
		}
	}
}

// WithMetrics attaches a Registry to record SearchRequests/SearchLatency.
// Without it, Search records against a no-op Registry.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Searcher) {
		s.metrics = reg
	}
}

func NewSearcher(vector vectorindex.Index, fulltext fulltextindex.Index, opts ...Option) *Searcher {
	s := &Searcher{vector: vector, fulltext: fulltext, metrics: metrics.Noop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.Noop()
	}
	return s
}

// Search runs C2.search and C3.search concurrently via errgroup, fuses with
// RRF, and returns up to q.K results.
func (s *Searcher) Search(ctx context.Context, orgID string, q Query) (Result, error) {
	weights := q.Weights
	if weights.Vector == 0 && weights.FullText == 0 {
		weights = DefaultWeights()
	}
	k := q.K
	if k <= 0 {
		k = 10
	}

	if s.cache != nil {
		key := fingerprint(orgID, q)
		if cached, ok := s.cache.Get(key); ok && time.Now().Before(cached.expiresAt) {
			s.metrics.SearchRequests.WithLabelValues("cache_hit").Inc()
			return cached.result, nil
		}
	}

	start := time.Now()
	var (
		vectorMatches   []vectorindex.Match
		fulltextMatches []fulltextindex.Rank
		vectorErr       error
		fulltextErr     error
		vectorMS        int64
		fulltextMS      int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t0 := time.Now()
		matches, err := s.vector.Search(gctx, orgID, q.Embedding, k, q.VectorThreshold)
		vectorMS = time.Since(t0).Milliseconds()
		if err != nil {
			vectorErr = err
			return nil // partial-failure semantics: don't abort the group
		}
		vectorMatches = matches
		return nil
	})
	g.Go(func() error {
		t0 := time.Now()
		filters := q.Filters
		filters.OrganizationID = orgID
		ranks, err := s.fulltext.Search(q.Text, k, filters)
		fulltextMS = time.Since(t0).Milliseconds()
		if err != nil {
			fulltextErr = err
			return nil
		}
		fulltextMatches = ranks
		return nil
	})
	_ = g.Wait()

	s.metrics.SearchLatency.WithLabelValues("vector").Observe(float64(vectorMS) / 1000)
	s.metrics.SearchLatency.WithLabelValues("fulltext").Observe(float64(fulltextMS) / 1000)

	var warnings []string
	if vectorErr != nil && fulltextErr != nil {
		s.metrics.SearchRequests.WithLabelValues("error").Inc()
		return Result{}, errs.TransientError("both vector and full-text search failed", vectorErr)
	}
	if vectorErr != nil {
		warnings = append(warnings, fmt.Sprintf("vector search failed, returning full-text-only results: %v", vectorErr))
	}
	if fulltextErr != nil {
		warnings = append(warnings, fmt.Sprintf("full-text search failed, returning vector-only results: %v", fulltextErr))
	}

	fusionStart := time.Now()
	fused := fuse(vectorMatches, fulltextMatches, weights)
	if len(fused) > k {
		fused = fused[:k]
	}
	fusionMS := time.Since(fusionStart).Milliseconds()
	s.metrics.SearchLatency.WithLabelValues("fusion").Observe(float64(fusionMS) / 1000)

	totalMS := time.Since(start).Milliseconds()
	s.metrics.SearchLatency.WithLabelValues("total").Observe(float64(totalMS) / 1000)

	outcome := "ok"
	if len(warnings) > 0 {
		outcome = "partial"
	}
	s.metrics.SearchRequests.WithLabelValues(outcome).Inc()

	result := Result{
		Matches: fused,
		Timing: Timing{
			VectorMS:   vectorMS,
			FullTextMS: fulltextMS,
			FusionMS:   fusionMS,
			TotalMS:    totalMS,
		},
		Warnings: warnings,
	}

	if s.cache != nil {
		key := fingerprint(orgID, q)
		s.cache.Add(key, cachedResult{result: result, expiresAt: time.Now().Add(s.cacheTTL)})
	}
	return result, nil
}

// fuse computes RRF_score(d) per §4.4 and sorts descending, ties broken by
// vector rank then id.
func fuse(vectorMatches []vectorindex.Match, fulltextMatches []fulltextindex.Rank, w Weights) []ComponentScore {
	vectorRank := make(map[string]int, len(vectorMatches))
	vectorScore := make(map[string]float64, len(vectorMatches))
	for i, m := range vectorMatches {
		vectorRank[m.ID] = i + 1
		vectorScore[m.ID] = m.Score
	}
	fulltextRank := make(map[string]int, len(fulltextMatches))
	fulltextScore := make(map[string]float64, len(fulltextMatches))
	for i, r := range fulltextMatches {
		fulltextRank[r.ID] = i + 1
		fulltextScore[r.ID] = r.Score
	}

	ids := make(map[string]struct{}, len(vectorMatches)+len(fulltextMatches))
	for id := range vectorRank {
		ids[id] = struct{}{}
	}
	for id := range fulltextRank {
		ids[id] = struct{}{}
	}

	wSum := w.Vector + w.FullText
	if wSum == 0 {
		wSum = 1
	}

	results := make([]ComponentScore, 0, len(ids))
	for id := range ids {
		var vScore, ftScore float64
		var vScorePtr, ftScorePtr *float64

		rrf := 0.0
		if rv, ok := vectorRank[id]; ok {
			rrf += (w.Vector / wSum) * (1.0 / (rrfKConst + float64(rv)))
			vScore = vectorScore[id]
			vScorePtr = &vScore
		}
		if rt, ok := fulltextRank[id]; ok {
			rrf += (w.FullText / wSum) * (1.0 / (rrfKConst + float64(rt)))
			ftScore = fulltextScore[id]
			ftScorePtr = &ftScore
		}
		results = append(results, ComponentScore{
			ID: id, VectorScore: vScorePtr, FullTextScore: ftScorePtr, RRFScore: rrf,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].RRFScore != results[j].RRFScore {
			return results[i].RRFScore > results[j].RRFScore
		}
		ri, iok := vectorRank[results[i].ID]
		rj, jok := vectorRank[results[j].ID]
		if iok != jok {
			return iok // present-in-vector beats absent, as a tiebreak proxy for "original vector rank"
		}
		if iok && jok && ri != rj {
			return ri < rj
		}
		return results[i].ID < results[j].ID
	})
	return results
}

func fingerprint(orgID string, q Query) string {
	from, to := "", ""
	if q.Filters.TimeRangeFrom != nil {
		from = q.Filters.TimeRangeFrom.UTC().Format(time.RFC3339Nano)
	}
	if q.Filters.TimeRangeTo != nil {
		to = q.Filters.TimeRangeTo.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("%s|%s|%d|%.3f|%.3f|%.3f|%s|%s|%v|%s|%s",
		orgID, q.Text, q.K, q.Weights.Vector, q.Weights.FullText, q.VectorThreshold,
		strOrNil(q.Filters.UserID), strOrNil(q.Filters.AgentID), q.Filters.Tags, from, to)
}

func strOrNil(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
