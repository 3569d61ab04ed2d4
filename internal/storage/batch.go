package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

// BatchItemResult is the per-item outcome of a batch operation, giving
// partial-success semantics (§4.1: "each input item maps to {ok(id)|err(reason)}").
type BatchItemResult struct {
	ID    string
	Error error
}

// BatchInserter chunks inserts to size B (default 100) and reports
// per-item results rather than failing the whole batch on one bad row.
type BatchInserter struct {
	db        *gorm.DB
	chunkSize int
}

func NewBatchInserter(m *Manager, chunkSize int) *BatchInserter {
	if chunkSize <= 0 {
		chunkSize = 100
	}
	return &BatchInserter{db: m.db, chunkSize: chunkSize}
}

// InsertMemories inserts memories in chunks, one chunk-level transaction at a
// time. A chunk failure falls back to per-row inserts in that chunk so a
// single bad row doesn't sink its siblings, matching the spec's
// partial-success contract.
func (b *BatchInserter) InsertMemories(ctx context.Context, orgID string, inputs []MemoryInput) ([]BatchItemResult, error) {
	results := make([]BatchItemResult, len(inputs))
	now := time.Now().UTC()

	for start := 0; start < len(inputs); start += b.chunkSize {
		end := start + b.chunkSize
		if end > len(inputs) {
			end = len(inputs)
		}
		chunk := inputs[start:end]

		rows := make([]*Memory, 0, len(chunk))
		rowIdx := make([]int, 0, len(chunk))
		for i, in := range chunk {
			if in.Content == "" || !validMemoryType(in.MemoryType) {
				results[start+i] = BatchItemResult{Error: errs.ValidationError("invalid batch item", nil)}
				continue
			}
			rowIdx = append(rowIdx, start+i)
			rows = append(rows, &Memory{
				ID: NewID(), OrganizationID: orgID, AgentID: in.AgentID, UserID: in.UserID,
				Content: in.Content, ContentVector: in.ContentVector, MemoryType: in.MemoryType,
				Importance: in.Importance, Tags: in.Tags, Metadata: in.Metadata, SearchVector: in.SearchVector,
				CreatedAt: now, UpdatedAt: now,
			})
		}

		if len(rows) == 0 {
			continue
		}

		if err := dbFromContext(ctx, b.db).WithContext(ctx).Create(&rows).Error; err == nil {
			for j, row := range rows {
				results[rowIdx[j]] = BatchItemResult{ID: row.ID}
			}
			continue
		}

		// Chunk insert failed; retry rows individually to isolate the bad one(s).
		for j, row := range rows {
			if err := dbFromContext(ctx, b.db).WithContext(ctx).Create(row).Error; err != nil {
				results[rowIdx[j]] = BatchItemResult{Error: errs.TransientError("failed to insert memory", err)}
			} else {
				results[rowIdx[j]] = BatchItemResult{ID: row.ID}
			}
		}
	}

	return results, nil
}

// DeleteMemories tombstones a set of memory ids in one statement. Batch
// delete is tombstone-only (§4.1).
func (b *BatchInserter) DeleteMemories(ctx context.Context, orgID string, ids []string) ([]BatchItemResult, error) {
	results := make([]BatchItemResult, 0, len(ids))
	if len(ids) == 0 {
		return results, nil
	}
	now := time.Now().UTC()
	res := dbFromContext(ctx, b.db).WithContext(ctx).Model(&Memory{}).
		Where("organization_id = ? AND id IN ? AND is_deleted = ?", orgID, ids, false).
		Updates(map[string]interface{}{"is_deleted": true, "updated_at": now})
	if res.Error != nil {
		err := errs.TransientError("failed to batch delete memories", res.Error)
		for _, id := range ids {
			results = append(results, BatchItemResult{ID: id, Error: err})
		}
		return results, nil
	}
	for _, id := range ids {
		results = append(results, BatchItemResult{ID: id})
	}
	return results, nil
}
