// Package pgvectoridx implements vectorindex.Index against a Postgres
// "memories" table carrying a pgvector "embedding" column (provisioned by
// internal/storage's 0002_vector_index migration / HNSW index).
package pgvectoridx

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/kagent-dev/agentmem/internal/vectorindex"
	"github.com/kagent-dev/agentmem/pkg/errs"
)

// Index wraps a *gorm.DB and issues `<=>` cosine-distance queries against
// the memories.embedding column.
type Index struct {
	db        *gorm.DB
	dimension int
}

func New(db *gorm.DB, dimension int) *Index {
	return &Index{db: db, dimension: dimension}
}

func (ix *Index) Dimension() int { return ix.dimension }

// Insert writes vec into memories.embedding for the given row. The Memory
// row itself must already exist (I5: vector writes accompany, never
// precede, the structured row) -- callers insert the Memory row in the same
// transaction before calling Insert.
func (ix *Index) Insert(ctx context.Context, orgID, id string, vec []float32) error {
	if err := vectorindex.ValidateDimension(len(vec), ix.dimension); err != nil {
		return err
	}
	v := pgvector.NewVector(vec)
	res := ix.db.WithContext(ctx).Exec(
		`UPDATE memories SET embedding = ? WHERE id = ? AND organization_id = ? AND is_deleted = false`,
		v, id, orgID,
	)
	if res.Error != nil {
		return errs.TransientError("failed to upsert vector", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFoundError("memory row not found for vector insert", nil)
	}
	return nil
}

// Delete clears the embedding column for id. The Memory row itself is
// soft-deleted by the storage layer, not here.
func (ix *Index) Delete(ctx context.Context, orgID, id string) error {
	res := ix.db.WithContext(ctx).Exec(
		`UPDATE memories SET embedding = NULL WHERE id = ? AND organization_id = ?`, id, orgID)
	if res.Error != nil {
		return errs.TransientError("failed to delete vector", res.Error)
	}
	return nil
}

type scanRow struct {
	ID       string
	Distance float64
}

// Search issues an ORDER BY embedding <=> $1 LIMIT k query and translates
// pgvector cosine distance to the spec's score = 1 - distance convention,
// applying the threshold client-side since a WHERE on score directly would
// defeat the HNSW index's ordering.
func (ix *Index) Search(ctx context.Context, orgID string, query []float32, k int, threshold float64) ([]vectorindex.Match, error) {
	if err := vectorindex.ValidateDimension(len(query), ix.dimension); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 10
	}
	v := pgvector.NewVector(query)

	var rows []scanRow
	sql := `SELECT id, (embedding <=> ?) AS distance FROM memories
		WHERE organization_id = ? AND is_deleted = false AND embedding IS NOT NULL
		ORDER BY embedding <=> ? LIMIT ?`
	if err := ix.db.WithContext(ctx).Raw(sql, v, orgID, v, k).Scan(&rows).Error; err != nil {
		return nil, errs.TransientError(fmt.Sprintf("vector search failed for org %s", orgID), err)
	}

	matches := make([]vectorindex.Match, 0, len(rows))
	for _, r := range rows {
		score := 1 - r.Distance
		if score >= threshold {
			matches = append(matches, vectorindex.Match{ID: r.ID, Score: score})
		}
	}
	return matches, nil
}
