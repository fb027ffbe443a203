package browse

import (
	"fmt"
	"sort"
	"strings"
)

// FetchError means a folder or note listing failed. The index is reset to
// empty for that resource and the next refresh retries.
type FetchError struct {
	Resource string
	FolderID int64
	Err      error
}

func (e *FetchError) Error() string {
	if e.Resource == "notes" {
		return fmt.Sprintf("failed to load notes for folder %d: %v", e.FolderID, e.Err)
	}
	return fmt.Sprintf("failed to load %s: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// DeleteError reports the items a bulk delete could not remove
type DeleteError struct {
	Noun      string
	Attempted int
	Failed    map[int64]error
}

func (e *DeleteError) Error() string {
	ids := e.FailedIDs()
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d: %v", id, e.Failed[id]))
	}
	return fmt.Sprintf("failed to delete %d of %d %s (%s)", len(ids), e.Attempted, e.Noun, strings.Join(parts, "; "))
}

// FailedIDs returns the ids that were not deleted, in ascending order
func (e *DeleteError) FailedIDs() []int64 {
	ids := make([]int64, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NotVisibleError reports ids that cannot be selected because the current
// view does not show them
type NotVisibleError struct {
	IDs []int64
}

func (e *NotVisibleError) Error() string {
	return fmt.Sprintf("ids not in the current view: %v", e.IDs)
}
