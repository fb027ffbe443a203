package capture

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Built-in report types. They are sent to the backend by name.
const (
	ReportStandardMeeting = "Standard Meeting"
	ReportVisitor         = "Visitor Report"
	ReportSiteInspection  = "Site Inspection"
)

// BuiltinReportTypes lists the report types available without any saved prompt
var BuiltinReportTypes = []string{ReportStandardMeeting, ReportVisitor, ReportSiteInspection}

// PromptService loads, saves and imports prompts on the backend
type PromptService interface {
	ListPrompts(ctx context.Context) (map[string]string, error)
	SavePrompt(ctx context.Context, name, content string) error
	ImportPrompts(ctx context.Context, filename string, r io.Reader) (map[string]string, error)
}

// ResolvePrompt builds the instruction sent with an analysis. A key naming a
// saved prompt is replaced by its content; any other key is used literally.
func ResolvePrompt(saved map[string]string, key, freeform string) string {
	stem := key
	if content, ok := saved[key]; ok {
		stem = content
	}
	return stem + ": " + freeform
}

// PromptBook holds the saved prompts loaded at session start. It is shared
// by every session of a process; imported prompts live on each Session.
type PromptBook struct {
	mu      sync.RWMutex
	service PromptService
	saved   map[string]string
}

// NewPromptBook creates an empty book backed by service. service may be nil
// for a book that only holds locally supplied prompts.
func NewPromptBook(service PromptService) *PromptBook {
	return &PromptBook{
		service: service,
		saved:   map[string]string{},
	}
}

// Load replaces the saved prompts with the backend's current mapping
func (b *PromptBook) Load(ctx context.Context) error {
	if b.service == nil {
		return nil
	}
	prompts, err := b.service.ListPrompts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}
	b.mu.Lock()
	b.saved = copyPrompts(prompts)
	b.mu.Unlock()
	return nil
}

// Save persists content under name and adds it to the saved prompts
func (b *PromptBook) Save(ctx context.Context, name, content string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Reason: "prompt name is required"}
	}
	if strings.TrimSpace(content) == "" {
		return &ValidationError{Reason: "prompt content is required"}
	}
	if b.service != nil {
		if err := b.service.SavePrompt(ctx, name, content); err != nil {
			return err
		}
	}
	b.mu.Lock()
	b.saved[name] = content
	b.mu.Unlock()
	return nil
}

// Import sends a spreadsheet to the backend and returns the prompts it
// contains. Nothing is stored; the saved prompts are never touched.
func (b *PromptBook) Import(ctx context.Context, filename string, r io.Reader) (map[string]string, error) {
	if b.service == nil {
		return nil, fmt.Errorf("no prompt service configured")
	}
	prompts, err := b.service.ImportPrompts(ctx, filename, r)
	if err != nil {
		return nil, err
	}
	return copyPrompts(prompts), nil
}

// Saved returns a copy of the saved prompts
func (b *PromptBook) Saved() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copyPrompts(b.saved)
}

// SavedNames returns the saved prompt names, sorted
func (b *PromptBook) SavedNames() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return PromptNames(b.saved)
}

// Resolve builds the instruction for key and freeform against the saved prompts
func (b *PromptBook) Resolve(key, freeform string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return ResolvePrompt(b.saved, key, freeform)
}

func copyPrompts(prompts map[string]string) map[string]string {
	out := make(map[string]string, len(prompts))
	for k, v := range prompts {
		out[k] = v
	}
	return out
}

// PromptNames returns the names of prompts, sorted
func PromptNames(prompts map[string]string) []string {
	names := make([]string, 0, len(prompts))
	for name := range prompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
