// Package browse is the client-side model of the record browser: the cached
// folder and note index, date grouping, filtering, sorting and selection.
package browse

import (
	"context"
	"log/slog"
	"sync"

	"github.com/neuranote/neuranote/internal/models"
)

// UnknownFolderName is shown when the active folder is not in the index
const UnknownFolderName = "Unknown Project"

// Source fetches folders and notes from the backend
type Source interface {
	ListFolders(ctx context.Context) ([]models.Folder, error)
	ListNotes(ctx context.Context, folderID int64) ([]models.Note, error)
}

// Index caches the last fetched folder list and the notes of the active
// folder. Every note fetch carries the generation it was issued under; a
// result arriving after the active folder changed is dropped.
type Index struct {
	source Source

	mu         sync.RWMutex
	folders    []models.Folder
	notes      []models.Note
	active     *int64
	generation uint64
	refreshes  uint64
}

// NewIndex creates an empty index over source
func NewIndex(source Source) *Index {
	return &Index{source: source}
}

// Refresh bumps the refresh counter and reloads folders and, when a folder
// is active, its notes. Both loads run even if the first fails.
func (x *Index) Refresh(ctx context.Context) error {
	x.mu.Lock()
	x.refreshes++
	x.generation++
	ticket := x.generation
	active := x.active
	x.mu.Unlock()

	folderErr := x.ReloadFolders(ctx)
	if active == nil {
		return folderErr
	}
	if err := x.loadNotes(ctx, ticket, *active); err != nil {
		return err
	}
	return folderErr
}

// ReloadFolders replaces the cached folder list. On failure the list is
// cleared.
func (x *Index) ReloadFolders(ctx context.Context) error {
	folders, err := x.source.ListFolders(ctx)

	x.mu.Lock()
	defer x.mu.Unlock()
	if err != nil {
		slog.Error("Failed to load folders", "error", err)
		x.folders = nil
		return &FetchError{Resource: "folders", Err: err}
	}
	x.folders = folders
	slog.Debug("Folders loaded", "count", len(folders))
	return nil
}

// SetActive changes the active folder and loads its notes. nil returns to
// the folder list. Notes of the previous folder are dropped immediately.
func (x *Index) SetActive(ctx context.Context, folderID *int64) error {
	x.mu.Lock()
	x.generation++
	ticket := x.generation
	x.notes = nil
	if folderID == nil {
		x.active = nil
		x.mu.Unlock()
		return nil
	}
	id := *folderID
	x.active = &id
	x.mu.Unlock()

	return x.loadNotes(ctx, ticket, id)
}

func (x *Index) loadNotes(ctx context.Context, ticket uint64, folderID int64) error {
	notes, err := x.source.ListNotes(ctx, folderID)

	x.mu.Lock()
	defer x.mu.Unlock()
	if ticket != x.generation {
		slog.Debug("Discarding stale notes", "folder_id", folderID)
		return nil
	}
	if err != nil {
		slog.Error("Failed to load notes", "folder_id", folderID, "error", err)
		x.notes = nil
		return &FetchError{Resource: "notes", FolderID: folderID, Err: err}
	}
	x.notes = notes
	slog.Debug("Notes loaded", "folder_id", folderID, "count", len(notes))
	return nil
}

// Folders returns a copy of the cached folders in fetch order
func (x *Index) Folders() []models.Folder {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]models.Folder(nil), x.folders...)
}

// Notes returns a copy of the cached notes of the active folder
func (x *Index) Notes() []models.Note {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]models.Note(nil), x.notes...)
}

// Active returns the active folder id, nil when none is open
func (x *Index) Active() *int64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.active == nil {
		return nil
	}
	id := *x.active
	return &id
}

// Refreshes returns how many refreshes have been requested
func (x *Index) Refreshes() uint64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.refreshes
}

// Folder looks up a cached folder by id
func (x *Index) Folder(id int64) (models.Folder, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for _, f := range x.folders {
		if f.ID == id {
			return f, true
		}
	}
	return models.Folder{}, false
}

// ActiveFolderName returns the name of the active folder
func (x *Index) ActiveFolderName() string {
	active := x.Active()
	if active == nil {
		return ""
	}
	if f, ok := x.Folder(*active); ok {
		return f.Name
	}
	return UnknownFolderName
}

// Favorites returns the favorite folders in fetch order
func (x *Index) Favorites() []models.Folder {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var out []models.Folder
	for _, f := range x.folders {
		if f.IsFavorite {
			out = append(out, f)
		}
	}
	return out
}

// RemoveFolders drops folders from the cache after a confirmed delete. If
// the active folder is removed the index returns to the folder list.
func (x *Index) RemoveFolders(ids ...int64) {
	drop := idSet(ids)
	x.mu.Lock()
	defer x.mu.Unlock()
	kept := x.folders[:0:0]
	for _, f := range x.folders {
		if !drop[f.ID] {
			kept = append(kept, f)
		}
	}
	x.folders = kept
	if x.active != nil && drop[*x.active] {
		x.active = nil
		x.notes = nil
		x.generation++
	}
}

// RemoveNotes drops notes from the cache after a confirmed delete
func (x *Index) RemoveNotes(ids ...int64) {
	drop := idSet(ids)
	x.mu.Lock()
	defer x.mu.Unlock()
	kept := x.notes[:0:0]
	for _, n := range x.notes {
		if !drop[n.ID] {
			kept = append(kept, n)
		}
	}
	x.notes = kept
}

// SetFavorite updates the cached favorite flag of a folder
func (x *Index) SetFavorite(id int64, favorite bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for i := range x.folders {
		if x.folders[i].ID == id {
			x.folders[i].IsFavorite = favorite
			return
		}
	}
}

func idSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
