package browse

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/neuranote/neuranote/internal/events"
	"github.com/neuranote/neuranote/internal/models"
)

// Mutator changes folders and notes on the backend
type Mutator interface {
	DeleteFolder(ctx context.Context, id int64) error
	DeleteNote(ctx context.Context, id int64) error
	SetFavorite(ctx context.Context, id int64, favorite bool) error
}

// Backend is everything the browser needs from the backend
type Backend interface {
	Source
	Mutator
}

// Browser ties the index to the query, selection and tree expansion state.
// With no active folder it lists folders; with one it lists that folder's
// notes. The query and selection reset whenever the active folder changes.
type Browser struct {
	index   *Index
	backend Mutator
	bus     *events.Bus
	workers int

	mu     sync.Mutex
	query  Query
	sel    *Selection
	expand *ExpandState
}

// View is a snapshot of what the browser shows
type View struct {
	ActiveFolder     *int64          `json:"active_folder,omitempty"`
	ActiveFolderName string          `json:"active_folder_name,omitempty"`
	Query            Query           `json:"query"`
	Folders          []models.Folder `json:"folders,omitempty"`
	Notes            []models.Note   `json:"notes,omitempty"`
	Favorites        []models.Folder `json:"favorites,omitempty"`
	Selected         []int64         `json:"selected"`
	Refreshes        uint64          `json:"refreshes"`
}

// NewBrowser creates a browser over backend, deleting with up to workers
// requests in flight
func NewBrowser(backend Backend, bus *events.Bus, workers int) *Browser {
	return &Browser{
		index:   NewIndex(backend),
		backend: backend,
		bus:     bus,
		workers: workers,
		query:   DefaultQuery(),
		sel:     NewSelection(),
		expand:  NewExpandState(time.Now()),
	}
}

// Index returns the underlying index
func (b *Browser) Index() *Index {
	return b.index
}

// Attach subscribes the browser to refresh and navigation events. The
// returned func unsubscribes.
func (b *Browser) Attach(ctx context.Context) func() {
	if b.bus == nil {
		return func() {}
	}
	offRefresh := b.bus.Subscribe(events.RefreshRequested, func(events.Event) {
		if err := b.index.Refresh(ctx); err != nil {
			slog.Warn("Refresh failed", "error", err)
		}
	})
	offNavigate := b.bus.Subscribe(events.NavigateRecords, func(e events.Event) {
		if e.FolderID == 0 {
			return
		}
		id := e.FolderID
		if err := b.Open(ctx, &id); err != nil {
			slog.Warn("Failed to open folder", "folder_id", id, "error", err)
		}
	})
	return func() {
		offRefresh()
		offNavigate()
	}
}

// Refresh reloads the index
func (b *Browser) Refresh(ctx context.Context) error {
	return b.index.Refresh(ctx)
}

// Open makes folderID the active folder, or returns to the folder list when
// nil. The query and selection are reset.
func (b *Browser) Open(ctx context.Context, folderID *int64) error {
	b.mu.Lock()
	b.query = DefaultQuery()
	b.sel.Clear()
	b.mu.Unlock()
	return b.index.SetActive(ctx, folderID)
}

// SetQuery replaces the query. The selection is cleared when the set of
// visible items changes.
func (b *Browser) SetQuery(q Query) error {
	if !q.Valid() {
		return fmt.Errorf("invalid query: sort=%q order=%q type=%q", q.Sort, q.Order, q.Type)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	before := b.visibleIDsLocked()
	b.query = q
	if !sameMembers(before, b.visibleIDsLocked()) {
		b.sel.Clear()
	}
	return nil
}

// Query returns the current query
func (b *Browser) Query() Query {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query
}

// SetSearch changes only the search text
func (b *Browser) SetSearch(search string) error {
	q := b.Query()
	q.Search = search
	return b.SetQuery(q)
}

// VisibleFolders returns the filtered and sorted folder list
func (b *Browser) VisibleFolders() []models.Folder {
	b.mu.Lock()
	defer b.mu.Unlock()
	return FilterFolders(b.index.Folders(), b.query)
}

// VisibleNotes returns the filtered and sorted notes of the active folder
func (b *Browser) VisibleNotes() []models.Note {
	b.mu.Lock()
	defer b.mu.Unlock()
	return FilterNotes(b.index.Notes(), b.query)
}

// Tree groups the full folder list by date, in fetch order. Search and sort
// apply to the flat list only.
func (b *Browser) Tree() []YearGroup {
	return GroupByDate(b.index.Folders())
}

// Expand returns the tree expansion state
func (b *Browser) Expand() *ExpandState {
	return b.expand
}

func (b *Browser) visibleIDsLocked() []int64 {
	var ids []int64
	if b.index.Active() == nil {
		for _, f := range FilterFolders(b.index.Folders(), b.query) {
			ids = append(ids, f.ID)
		}
		return ids
	}
	for _, n := range FilterNotes(b.index.Notes(), b.query) {
		ids = append(ids, n.ID)
	}
	return ids
}

// Toggle flips the selection of one visible item. Ids outside the current
// filtered view are rejected with a *NotVisibleError.
func (b *Browser) Toggle(id int64) (bool, error) {
	b.mu.Lock()
	visible := idSet(b.visibleIDsLocked())
	b.mu.Unlock()
	if !visible[id] {
		return false, &NotVisibleError{IDs: []int64{id}}
	}
	return b.sel.Toggle(id), nil
}

// Select replaces the selection with ids. Every id must be visible; when
// any is not, the selection is left unchanged and a *NotVisibleError lists
// the offenders.
func (b *Browser) Select(ids ...int64) error {
	b.mu.Lock()
	visible := idSet(b.visibleIDsLocked())
	b.mu.Unlock()

	var missing []int64
	for _, id := range ids {
		if !visible[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &NotVisibleError{IDs: missing}
	}
	b.sel.Clear()
	for _, id := range ids {
		if !b.sel.Has(id) {
			b.sel.Toggle(id)
		}
	}
	return nil
}

// ToggleAll selects every visible item, or clears when all are selected
func (b *Browser) ToggleAll() {
	b.mu.Lock()
	visible := b.visibleIDsLocked()
	b.mu.Unlock()
	b.sel.ToggleAll(visible)
}

// ClearSelection empties the selection
func (b *Browser) ClearSelection() {
	b.sel.Clear()
}

// Selected returns the selected ids
func (b *Browser) Selected() []int64 {
	return b.sel.IDs()
}

// DeleteSelected deletes every selected folder, or every selected note when
// a folder is open. Selected ids the view no longer shows are dropped, not
// deleted. Only confirmed deletions leave the index and the selection;
// failed ids stay selected for a retry.
func (b *Browser) DeleteSelected(ctx context.Context) (BulkResult, error) {
	b.mu.Lock()
	visible := idSet(b.visibleIDsLocked())
	b.mu.Unlock()

	var ids, stale []int64
	for _, id := range b.sel.IDs() {
		if visible[id] {
			ids = append(ids, id)
		} else {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		slog.Debug("Dropping selected ids no longer in view", "ids", stale)
		b.sel.Deselect(stale...)
	}
	if len(ids) == 0 {
		return BulkResult{}, fmt.Errorf("nothing selected")
	}

	var result BulkResult
	if b.index.Active() == nil {
		result = DeleteAll(ctx, ids, b.workers, "projects", b.backend.DeleteFolder)
		b.index.RemoveFolders(result.Deleted...)
		for _, id := range result.Deleted {
			b.bus.Publish(events.Event{Type: events.FolderDeleted, FolderID: id})
		}
	} else {
		result = DeleteAll(ctx, ids, b.workers, "notes", b.backend.DeleteNote)
		b.index.RemoveNotes(result.Deleted...)
		for _, id := range result.Deleted {
			b.bus.Publish(events.Event{Type: events.NoteDeleted, NoteID: id})
		}
	}
	b.sel.Deselect(result.Deleted...)
	return result, result.Err()
}

// DeleteFolder deletes a single folder
func (b *Browser) DeleteFolder(ctx context.Context, id int64) error {
	if err := b.backend.DeleteFolder(ctx, id); err != nil {
		return err
	}
	b.index.RemoveFolders(id)
	b.sel.Deselect(id)
	b.bus.Publish(events.Event{Type: events.FolderDeleted, FolderID: id})
	return nil
}

// DeleteNote deletes a single note of the active folder
func (b *Browser) DeleteNote(ctx context.Context, id int64) error {
	if err := b.backend.DeleteNote(ctx, id); err != nil {
		return err
	}
	b.index.RemoveNotes(id)
	b.sel.Deselect(id)
	b.bus.Publish(events.Event{Type: events.NoteDeleted, NoteID: id})
	return nil
}

// ToggleFavorite flips the favorite flag of a folder and returns the new value
func (b *Browser) ToggleFavorite(ctx context.Context, id int64) (bool, error) {
	folder, ok := b.index.Folder(id)
	if !ok {
		return false, fmt.Errorf("folder %d not found", id)
	}
	favorite := !folder.IsFavorite
	if err := b.backend.SetFavorite(ctx, id, favorite); err != nil {
		return folder.IsFavorite, err
	}
	b.index.SetFavorite(id, favorite)
	return favorite, nil
}

// View returns a snapshot of the browser
func (b *Browser) View() View {
	v := View{
		ActiveFolder:     b.index.Active(),
		ActiveFolderName: b.index.ActiveFolderName(),
		Query:            b.Query(),
		Favorites:        b.index.Favorites(),
		Selected:         b.sel.IDs(),
		Refreshes:        b.index.Refreshes(),
	}
	if v.ActiveFolder == nil {
		v.Folders = b.VisibleFolders()
	} else {
		v.Notes = b.VisibleNotes()
	}
	return v
}
