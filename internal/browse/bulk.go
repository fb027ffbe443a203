package browse

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// DeleteFunc deletes one item on the backend
type DeleteFunc func(ctx context.Context, id int64) error

// BulkResult is the per-item outcome of a bulk delete
type BulkResult struct {
	Noun      string
	Attempted int
	Deleted   []int64
	Failed    map[int64]error
}

// Notice is the single user-facing message summarizing the delete
func (r BulkResult) Notice() string {
	if len(r.Failed) == 0 {
		return fmt.Sprintf("Deleted %d %s", len(r.Deleted), r.Noun)
	}
	return fmt.Sprintf("Deleted %d of %d %s (%d failed)", len(r.Deleted), r.Attempted, r.Noun, len(r.Failed))
}

// Err returns a *DeleteError when any item failed
func (r BulkResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	return &DeleteError{Noun: r.Noun, Attempted: r.Attempted, Failed: r.Failed}
}

// DeleteAll issues one delete per id with at most workers in flight. It never
// stops early: every id is attempted and its outcome recorded. Deleted ids
// keep the order of ids.
func DeleteAll(ctx context.Context, ids []int64, workers int, noun string, del DeleteFunc) BulkResult {
	if workers <= 0 {
		workers = 1
	}
	errs := make([]error, len(ids))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)
	for i, id := range ids {
		wg.Add(1)
		go func(idx int, id int64) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if err := del(ctx, id); err != nil {
				slog.Warn("Delete failed", "noun", noun, "id", id, "error", err)
				errs[idx] = err
			}
		}(i, id)
	}
	wg.Wait()

	result := BulkResult{Noun: noun, Attempted: len(ids), Failed: make(map[int64]error)}
	for i, id := range ids {
		if errs[i] != nil {
			result.Failed[id] = errs[i]
			continue
		}
		result.Deleted = append(result.Deleted, id)
	}
	slog.Info("Bulk delete finished", "noun", noun, "deleted", len(result.Deleted), "failed", len(result.Failed))
	return result
}
