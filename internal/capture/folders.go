package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neuranote/neuranote/internal/models"
)

// FolderPalette is the set of colors offered for new folders. The first entry
// is the default for auto-created folders.
var FolderPalette = []string{
	"#0EA5E9", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#EC4899", "#6366F1", "#14B8A6", "#84CC16", "#F97316",
}

// FolderService lists and creates folders on the backend
type FolderService interface {
	ListFolders(ctx context.Context) ([]models.Folder, error)
	CreateFolder(ctx context.Context, name, color string) (models.Folder, error)
}

// Resolution is the outcome of a folder resolution
type Resolution struct {
	FolderID int64
	Name     string
	// Created is true when the resolver made a new folder
	Created bool
	// Explicit is true when the caller's own selection was used
	Explicit bool
}

// FolderResolver picks the destination folder of a submission. Without an
// explicit choice it files the capture under a folder named after today's
// date, creating it on first use.
//
// Listing then creating is not atomic: two resolvers racing on the same day
// can both create a folder with the same name.
type FolderResolver struct {
	folders FolderService
	prefix  string
	color   string
	now     func() time.Time
}

// NewFolderResolver creates a resolver naming folders prefix+YYYY-MM-DD
func NewFolderResolver(folders FolderService, prefix, color string) *FolderResolver {
	if prefix == "" {
		prefix = "Meeting_"
	}
	if color == "" {
		color = FolderPalette[0]
	}
	return &FolderResolver{
		folders: folders,
		prefix:  prefix,
		color:   color,
		now:     time.Now,
	}
}

// WithClock replaces the resolver's time source
func (r *FolderResolver) WithClock(now func() time.Time) *FolderResolver {
	r.now = now
	return r
}

// CanonicalName returns the dated folder name for t
func (r *FolderResolver) CanonicalName(t time.Time) string {
	return r.prefix + t.Format("2006-01-02")
}

// Resolve returns explicitID unchanged when given. Otherwise it finds or
// creates today's folder.
func (r *FolderResolver) Resolve(ctx context.Context, explicitID *int64) (Resolution, error) {
	if explicitID != nil {
		return Resolution{FolderID: *explicitID, Explicit: true}, nil
	}

	name := r.CanonicalName(r.now())
	existing, err := r.folders.ListFolders(ctx)
	if err != nil {
		return Resolution{}, &FolderResolutionError{Name: name, Err: err}
	}
	for _, f := range existing {
		if f.Name == name {
			slog.Debug("Reusing dated folder", "name", name, "id", f.ID)
			return Resolution{FolderID: f.ID, Name: name}, nil
		}
	}

	created, err := r.folders.CreateFolder(ctx, name, r.color)
	if err != nil {
		return Resolution{}, &FolderResolutionError{Name: name, Err: err}
	}
	if created.ID == 0 {
		return Resolution{}, &FolderResolutionError{Name: name, Err: fmt.Errorf("could not create folder")}
	}
	slog.Info("Created dated folder", "name", name, "id", created.ID)
	return Resolution{FolderID: created.ID, Name: name, Created: true}, nil
}
