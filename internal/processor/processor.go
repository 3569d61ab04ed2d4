// Package processor implements C7: end-to-end ingestion orchestration,
// wiring C5 (Fact Extractor) -> C2 (embed + similarity search) -> C6
// (Decision Engine) -> C1 (transactional mutations).
package processor

import (
	"context"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/sync/semaphore"

	"github.com/kagent-dev/agentmem/internal/decision"
	"github.com/kagent-dev/agentmem/internal/extractor"
	"github.com/kagent-dev/agentmem/internal/fulltextindex"
	"github.com/kagent-dev/agentmem/internal/storage"
	"github.com/kagent-dev/agentmem/internal/vectorindex"
	"github.com/kagent-dev/agentmem/pkg/embedder"
	"github.com/kagent-dev/agentmem/pkg/errs"
	"github.com/kagent-dev/agentmem/pkg/metrics"
)

// Config controls ingestion concurrency and the decision thresholds applied
// per fact.
type Config struct {
	Workers            int // P, default 4
	TopK               int // default 5
	SimilarityThreshold float64 // default 0.75
}

func DefaultConfig() Config {
	return Config{Workers: 4, TopK: 5, SimilarityThreshold: 0.75}
}

// FactError records a fact whose pipeline failed after exhausting its
// retry budget; it is skipped rather than failing the whole batch.
type FactError struct {
	FactContent string
	Err         error
}

// IngestReport is C7's output for one batch.
type IngestReport struct {
	FactsExtracted int
	AddCount       int
	UpdateCount    int
	DeleteCount    int
	NoopCount      int
	Errors         []FactError
}

// Processor wires the four upstream components together under a bounded
// worker pool.
type Processor struct {
	extractor *extractor.Extractor
	embedder  embedder.Client
	vector    vectorindex.Index
	fulltext  fulltextindex.Index
	memories  *storage.MemoryRepository
	tx        *storage.TransactionManager
	decision  *decision.Engine
	cfg       Config
	log       logr.Logger
	metrics   *metrics.Registry
}

func New(
	ex *extractor.Extractor,
	emb embedder.Client,
	vec vectorindex.Index,
	ft fulltextindex.Index,
	memories *storage.MemoryRepository,
	tx *storage.TransactionManager,
	dec *decision.Engine,
	cfg Config,
	log logr.Logger,
	reg *metrics.Registry,
) *Processor {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = 0.75
	}
	if reg == nil {
		reg = metrics.Noop()
	}
	return &Processor{
		extractor: ex, embedder: emb, vector: vec, fulltext: ft,
		memories: memories, tx: tx, decision: dec, cfg: cfg, log: log, metrics: reg,
	}
}

// Ingest runs the full C5->C2->C6->C1 pipeline for a batch of messages
// belonging to a single organization/agent/user context. Facts within the
// batch are processed in parallel up to cfg.Workers; ordering across facts
// is not guaranteed (§4.7).
func (p *Processor) Ingest(ctx context.Context, orgID string, agentID, userID *string, messages []extractor.Message, previousMemoriesSummary string) (IngestReport, error) {
	p.metrics.IngestBatches.WithLabelValues(orgID).Inc()

	facts, err := p.extractor.Extract(ctx, messages, previousMemoriesSummary)
	if err != nil {
		return IngestReport{}, err
	}

	report := IngestReport{FactsExtracted: len(facts)}
	if len(facts) == 0 {
		return report, nil
	}

	sem := semaphore.NewWeighted(int64(p.cfg.Workers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, fact := range facts {
		fact := fact
		if err := sem.Acquire(ctx, 1); err != nil {
			// context cancelled; stop launching new work but let already
			// acquired workers finish (fact-boundary cancellation safety, §5).
			mu.Lock()
			report.Errors = append(report.Errors, FactError{FactContent: fact.Content, Err: err})
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func() {
			defer sem.Release(1)
			defer wg.Done()

			outcome, ferr := p.processFact(ctx, orgID, agentID, userID, fact)
			mu.Lock()
			defer mu.Unlock()
			if ferr != nil {
				report.Errors = append(report.Errors, FactError{FactContent: fact.Content, Err: ferr})
				p.metrics.IngestFacts.WithLabelValues("error").Inc()
				return
			}
			switch outcome {
			case decision.ActionAdd:
				report.AddCount++
			case decision.ActionUpdate:
				report.UpdateCount++
			case decision.ActionDelete:
				report.DeleteCount++
			case decision.ActionNoop:
				report.NoopCount++
			}
			p.metrics.IngestFacts.WithLabelValues(strings.ToLower(string(outcome))).Inc()
		}()
	}
	wg.Wait()

	return report, nil
}

// processFact runs the strictly-ordered embed -> similar-search -> decide ->
// commit sequence for one fact (§5 ordering guarantees).
func (p *Processor) processFact(ctx context.Context, orgID string, agentID, userID *string, fact extractor.Fact) (decision.Action, error) {
	vecs, err := p.embedder.Embed(ctx, []string{fact.Content})
	if err != nil {
		return "", errs.TransientError("failed to embed fact", err)
	}
	embedding := vecs[0]

	matches, err := p.vector.Search(ctx, orgID, embedding, p.cfg.TopK, p.cfg.SimilarityThreshold)
	if err != nil {
		return "", errs.TransientError("similarity search failed", err)
	}

	similar, err := p.hydrateSimilar(ctx, orgID, matches)
	if err != nil {
		return "", err
	}

	d, err := p.decision.Decide(ctx, fact, similar)
	if err != nil {
		return "", err
	}

	if err := p.tx.WithinTx(ctx, func(ctx context.Context) error {
		return p.applyDecision(ctx, orgID, agentID, userID, fact, embedding, d)
	}); err != nil {
		return "", err
	}

	return d.Action, nil
}

func (p *Processor) hydrateSimilar(ctx context.Context, orgID string, matches []vectorindex.Match) ([]decision.SimilarMemory, error) {
	if len(matches) == 0 {
		return nil, nil
	}
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	mems, err := p.memories.ReadMany(ctx, orgID, ids)
	if err != nil {
		return nil, errs.TransientError("failed to hydrate similar memories", err)
	}
	byID := make(map[string]storage.Memory, len(mems))
	for _, m := range mems {
		byID[m.ID] = m
	}
	out := make([]decision.SimilarMemory, 0, len(matches))
	for _, m := range matches {
		mem, ok := byID[m.ID]
		if !ok {
			continue // tombstoned between search and hydration; skip
		}
		out = append(out, decision.SimilarMemory{ID: mem.ID, Content: mem.Content, Importance: mem.Importance})
	}
	return out, nil
}

func (p *Processor) applyDecision(ctx context.Context, orgID string, agentID, userID *string, fact extractor.Fact, embedding []float32, d decision.Decision) error {
	switch d.Action {
	case decision.ActionAdd:
		mem, err := p.memories.Create(ctx, orgID, storage.MemoryInput{
			AgentID: agentID, UserID: userID, Content: fact.Content,
			MemoryType: storage.MemoryTypeSemantic, Importance: d.Confidence,
		})
		if err != nil {
			return err
		}
		if err := p.vector.Insert(ctx, orgID, mem.ID, embedding); err != nil {
			return errs.TransientError("failed to insert vector", err)
		}
		if err := p.fulltext.Index(mem.ID, mem.Content, fulltextindex.Filters{OrganizationID: orgID, UserID: userID, AgentID: agentID}); err != nil {
			return errs.TransientError("failed to index fact for full-text search", err)
		}
		return nil

	case decision.ActionUpdate:
		mem, err := p.memories.Update(ctx, orgID, d.TargetID, storage.MemoryInput{Content: d.MergedContent})
		if err != nil {
			return err
		}
		vecs, err := p.embedder.Embed(ctx, []string{mem.Content})
		if err != nil {
			return errs.TransientError("failed to re-embed updated fact", err)
		}
		if err := p.vector.Insert(ctx, orgID, mem.ID, vecs[0]); err != nil {
			return errs.TransientError("failed to overwrite vector", err)
		}
		if err := p.fulltext.Index(mem.ID, mem.Content, fulltextindex.Filters{OrganizationID: orgID, UserID: userID, AgentID: agentID}); err != nil {
			return errs.TransientError("failed to reindex updated fact", err)
		}
		return nil

	case decision.ActionDelete:
		if err := p.memories.Delete(ctx, orgID, d.TargetID); err != nil {
			return err
		}
		if err := p.vector.Delete(ctx, orgID, d.TargetID); err != nil {
			return errs.TransientError("failed to remove vector", err)
		}
		if err := p.fulltext.Delete(d.TargetID); err != nil {
			return errs.TransientError("failed to remove full-text entry", err)
		}
		return nil

	case decision.ActionNoop:
		if d.TargetID != "" {
			if err := p.memories.BumpAccess(ctx, orgID, d.TargetID); err != nil {
				p.log.Info("noop access bump failed, ignoring (best-effort)", "error", err.Error())
			}
		}
		return nil

	default:
		return errs.InternalError("unrecognized decision action", nil)
	}
}
