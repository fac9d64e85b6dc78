package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"blog-cms/internal/cms/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deleteOps(n int) []model.BatchOperation[model.Post] {
	ops := make([]model.BatchOperation[model.Post], n)
	for i := range ops {
		ops[i] = model.DeleteOp[model.Post](fmt.Sprintf("p%d", i))
	}
	return ops
}

func TestCommitInChunks_Splits(t *testing.T) {
	var sizes []int
	n, err := CommitInChunks(context.Background(), deleteOps(1201), model.MaxBatchSize,
		func(ctx context.Context, chunk []model.BatchOperation[model.Post]) error {
			sizes = append(sizes, len(chunk))
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 1201, n)
	assert.Equal(t, []int{500, 500, 201}, sizes)
}

func TestCommitInChunks_ExactMultiple(t *testing.T) {
	var sizes []int
	n, err := CommitInChunks(context.Background(), deleteOps(1000), 500,
		func(ctx context.Context, chunk []model.BatchOperation[model.Post]) error {
			sizes = append(sizes, len(chunk))
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 1000, n)
	assert.Equal(t, []int{500, 500}, sizes)
}

func TestCommitInChunks_Empty(t *testing.T) {
	calls := 0
	n, err := CommitInChunks(context.Background(), nil, 500,
		func(ctx context.Context, chunk []model.BatchOperation[model.Post]) error {
			calls++
			return nil
		})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, calls)
}

func TestCommitInChunks_StopsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	n, err := CommitInChunks(context.Background(), deleteOps(1201), 500,
		func(ctx context.Context, chunk []model.BatchOperation[model.Post]) error {
			calls++
			if calls == 2 {
				return boom
			}
			return nil
		})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 500, n)
	assert.Equal(t, 2, calls)
}

func TestCommitInChunks_FirstIDsInFirstChunk(t *testing.T) {
	var first []string
	_, err := CommitInChunks(context.Background(), deleteOps(3), 2,
		func(ctx context.Context, chunk []model.BatchOperation[model.Post]) error {
			if first == nil {
				for _, op := range chunk {
					first = append(first, op.ID)
				}
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"p0", "p1"}, first)
}
