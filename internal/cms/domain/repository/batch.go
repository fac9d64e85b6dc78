package repository

import (
	"context"
	"fmt"

	"blog-cms/internal/cms/domain/model"
)

// CommitFunc writes one chunk of operations atomically.
type CommitFunc[T any] func(ctx context.Context, chunk []model.BatchOperation[T]) error

// CommitInChunks feeds ops to commit in chunks of at most size operations. The
// chunk is flushed each time the running count reaches a multiple of size, then
// once more for any remainder. It returns the number of operations committed.
func CommitInChunks[T any](ctx context.Context, ops []model.BatchOperation[T], size int, commit CommitFunc[T]) (int, error) {
	if size <= 0 {
		size = model.MaxBatchSize
	}
	written := 0
	count := 0
	chunk := make([]model.BatchOperation[T], 0, min(size, len(ops)))
	for _, op := range ops {
		chunk = append(chunk, op)
		count++
		if count%size == 0 {
			if err := commit(ctx, chunk); err != nil {
				return written, fmt.Errorf("commit batch ending at op %d: %w", count, err)
			}
			written += len(chunk)
			chunk = make([]model.BatchOperation[T], 0, min(size, len(ops)-count))
		}
	}
	if len(chunk) > 0 {
		if err := commit(ctx, chunk); err != nil {
			return written, fmt.Errorf("commit final batch: %w", err)
		}
		written += len(chunk)
	}
	return written, nil
}
