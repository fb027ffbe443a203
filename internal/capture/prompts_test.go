package capture

import (
	"context"
	"errors"
	"io"
	"testing"
)

type fakePrompts struct {
	saved    map[string]string
	imported map[string]string
	saveErr  error
}

func (f *fakePrompts) ListPrompts(ctx context.Context) (map[string]string, error) {
	return f.saved, nil
}

func (f *fakePrompts) SavePrompt(ctx context.Context, name, content string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[name] = content
	return nil
}

func (f *fakePrompts) ImportPrompts(ctx context.Context, filename string, r io.Reader) (map[string]string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	return f.imported, nil
}

func TestResolvePrompt(t *testing.T) {
	saved := map[string]string{"Quarterly": "Summarize the quarterly review"}
	tests := []struct {
		name     string
		key      string
		freeform string
		expected string
	}{
		{"built-in type is used literally", "Visitor Report", "focus on badges", "Visitor Report: focus on badges"},
		{"saved prompt is substituted", "Quarterly", "", "Summarize the quarterly review: "},
		{"unknown key is used literally", "Anything", "x", "Anything: x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolvePrompt(saved, tt.key, tt.freeform); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestPromptBookLoadAndSave(t *testing.T) {
	service := &fakePrompts{saved: map[string]string{"A": "alpha"}}
	book := NewPromptBook(service)

	if err := book.Load(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := book.Resolve("A", "more"); got != "alpha: more" {
		t.Errorf("Expected %q, got %q", "alpha: more", got)
	}

	if err := book.Save(context.Background(), "  B ", "beta"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if service.saved["B"] != "beta" {
		t.Error("Expected prompt to be persisted under the trimmed name")
	}
	names := book.SavedNames()
	if len(names) != 2 || names[0] != "A" || names[1] != "B" {
		t.Errorf("Expected [A B], got %v", names)
	}

	var vErr *ValidationError
	if err := book.Save(context.Background(), "", "content"); !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for empty name, got %v", err)
	}
	if err := book.Save(context.Background(), "C", "   "); !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for empty content, got %v", err)
	}
}

func TestPromptBookImportDoesNotTouchSaved(t *testing.T) {
	service := &fakePrompts{
		saved:    map[string]string{"A": "alpha"},
		imported: map[string]string{"A": "imported alpha", "Z": "zeta"},
	}
	book := NewPromptBook(service)
	if err := book.Load(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	imported, err := book.Import(context.Background(), "prompts.xlsx", emptyReader{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if names := PromptNames(imported); len(names) != 2 || names[0] != "A" || names[1] != "Z" {
		t.Errorf("Expected [A Z], got %v", names)
	}
	if book.Saved()["A"] != "alpha" {
		t.Errorf("Expected saved prompt to be unchanged, got %q", book.Saved()["A"])
	}

	if _, err := NewPromptBook(nil).Import(context.Background(), "prompts.xlsx", emptyReader{}); err == nil {
		t.Error("Expected error without a prompt service")
	}
}

type emptyReader struct{}

func (emptyReader) Read(p []byte) (int, error) { return 0, io.EOF }
