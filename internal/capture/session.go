package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/neuranote/neuranote/internal/events"
	"github.com/neuranote/neuranote/internal/models"
)

// Analyzer submits an analysis request and returns the created note
type Analyzer interface {
	Analyze(ctx context.Context, req *models.AnalysisRequest) (*models.Note, error)
}

// Deps are the collaborators a Session drives
type Deps struct {
	Resolver *FolderResolver
	Prompts  *PromptBook
	Analyzer Analyzer
	Bus      *events.Bus
	MaxBatch int
	Workers  int
}

// Session is one capture episode: staged pages or text, the prompt choice,
// and the submission status. Submissions are serialized; a second Submit
// while one is running fails with ErrSubmitInProgress.
type Session struct {
	ID string

	mu        sync.Mutex
	deps      Deps
	pages     *PageStore
	mode      models.CaptureMode
	text      string
	promptKey string
	freeform  string
	merge     bool
	folderID  *int64
	status    models.SubmitStatus
	lastError string
	lastNote  *models.Note
	notice    string
	imported  map[string]string
	decoding  int
	updatedAt time.Time
}

// State is a point-in-time view of a session
type State struct {
	ID           string              `json:"id"`
	Mode         models.CaptureMode  `json:"mode"`
	Pages        []models.StagedPage `json:"pages"`
	TextContent  string              `json:"text_content"`
	PromptKey    string              `json:"prompt_key"`
	Freeform     string              `json:"freeform_prompt"`
	Merge        bool                `json:"merge"`
	FolderID     *int64              `json:"folder_id,omitempty"`
	Status       models.SubmitStatus `json:"status"`
	HasInput     bool                `json:"has_input"`
	LastError    string              `json:"last_error,omitempty"`
	LastNoteID   int64               `json:"last_note_id,omitempty"`
	Notice       string              `json:"notice,omitempty"`
	ImportedKeys []string            `json:"imported_prompts,omitempty"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// NewSession creates an idle upload session using the default report type
func NewSession(id string, deps Deps) *Session {
	if deps.Prompts == nil {
		deps.Prompts = NewPromptBook(nil)
	}
	return &Session{
		ID:        id,
		deps:      deps,
		pages:     NewPageStore(deps.MaxBatch, deps.Workers),
		mode:      models.ModeUpload,
		promptKey: ReportStandardMeeting,
		status:    models.StatusIdle,
		updatedAt: time.Now(),
	}
}

// State returns a snapshot of the session
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ID:           s.ID,
		Mode:         s.mode,
		Pages:        s.pages.Pages(),
		TextContent:  s.text,
		PromptKey:    s.promptKey,
		Freeform:     s.freeform,
		Merge:        s.merge,
		FolderID:     s.folderID,
		Status:       s.status,
		HasInput:     s.hasInputLocked(),
		LastError:    s.lastError,
		Notice:       s.notice,
		ImportedKeys: PromptNames(s.imported),
		UpdatedAt:    s.updatedAt,
	}
	if s.lastNote != nil {
		st.LastNoteID = s.lastNote.ID
	}
	return st
}

// HasInput reports whether anything is staged for submission
func (s *Session) HasInput() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasInputLocked()
}

func (s *Session) hasInputLocked() bool {
	return s.pages.Len() > 0 || strings.TrimSpace(s.text) != ""
}

// Status returns the submission status
func (s *Session) Status() models.SubmitStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// edit runs fn under the session lock unless a submission is running
func (s *Session) edit(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == models.StatusSubmitting {
		return ErrBusy
	}
	if err := fn(); err != nil {
		return err
	}
	s.updatedAt = time.Now()
	return nil
}

// SetMode switches the capture surface. Staged pages and text are kept.
func (s *Session) SetMode(mode models.CaptureMode) error {
	if !mode.Valid() {
		return &ValidationError{Reason: "unknown capture mode " + string(mode)}
	}
	return s.edit(func() error {
		s.mode = mode
		return nil
	})
}

// SetText replaces the text content
func (s *Session) SetText(text string) error {
	return s.edit(func() error {
		s.text = text
		return nil
	})
}

// SetPromptKey selects a report type or saved prompt
func (s *Session) SetPromptKey(key string) error {
	return s.edit(func() error {
		s.promptKey = key
		return nil
	})
}

// SetFreeform replaces the free-form prompt text
func (s *Session) SetFreeform(text string) error {
	return s.edit(func() error {
		s.freeform = text
		return nil
	})
}

// SetFolder selects an explicit destination folder. nil restores the dated
// default.
func (s *Session) SetFolder(id *int64) error {
	return s.edit(func() error {
		s.folderID = id
		return nil
	})
}

// SetMerge sets the merge flag. Clearing it is ignored while two or more
// pages are staged.
func (s *Session) SetMerge(merge bool) error {
	return s.edit(func() error {
		if !merge && s.pages.Len() > 1 {
			return nil
		}
		s.merge = merge
		return nil
	})
}

// AddFiles stages a batch of files and returns the batch summary. Files are
// decoded without holding the session lock; Submit is refused until every
// pending batch has been staged.
func (s *Session) AddFiles(ctx context.Context, files []FileInput) (AddSummary, error) {
	s.mu.Lock()
	if s.status == models.StatusSubmitting {
		s.mu.Unlock()
		return AddSummary{}, ErrBusy
	}
	s.decoding++
	s.mu.Unlock()

	summary := s.pages.Decode(ctx, files)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.decoding--
	s.pages.Append(summary.Pages...)
	s.notice = summary.Notice()
	s.applyAutoMerge()
	s.updatedAt = time.Now()
	return summary, nil
}

// AddCapturedFrame stages one camera frame
func (s *Session) AddCapturedFrame(frame string) (models.StagedPage, error) {
	var page models.StagedPage
	err := s.edit(func() error {
		var err error
		page, err = s.pages.AddCapturedFrame(frame)
		if err != nil {
			return err
		}
		s.applyAutoMerge()
		return nil
	})
	return page, err
}

// RemovePage drops a staged page. Unknown ids are ignored. The merge flag is
// left as it was.
func (s *Session) RemovePage(id string) error {
	return s.edit(func() error {
		s.pages.Remove(id)
		return nil
	})
}

// ImportPrompts reads a spreadsheet through the prompt service and replaces
// this session's imported pool with its prompts
func (s *Session) ImportPrompts(ctx context.Context, filename string, r io.Reader) (int, error) {
	prompts, err := s.deps.Prompts.Import(ctx, filename, r)
	if err != nil {
		return 0, err
	}
	return len(prompts), s.SetImportedPrompts(prompts)
}

// SetImportedPrompts replaces this session's imported pool
func (s *Session) SetImportedPrompts(prompts map[string]string) error {
	return s.edit(func() error {
		if len(prompts) == 0 {
			s.imported = nil
			return nil
		}
		s.imported = copyPrompts(prompts)
		return nil
	})
}

// SelectImportedPrompt copies an imported prompt's content into the
// free-form text
func (s *Session) SelectImportedPrompt(name string) error {
	return s.edit(func() error {
		content, ok := s.imported[name]
		if !ok {
			return &ValidationError{Reason: "no imported prompt named " + name}
		}
		s.freeform = content
		return nil
	})
}

// DismissImportedPrompts clears the imported pool and the free-form text
func (s *Session) DismissImportedPrompts() error {
	return s.edit(func() error {
		s.imported = nil
		s.freeform = ""
		return nil
	})
}

// SavePrompt saves the current free-form text under name and selects it
func (s *Session) SavePrompt(ctx context.Context, name string) error {
	s.mu.Lock()
	content := s.freeform
	s.mu.Unlock()

	if err := s.deps.Prompts.Save(ctx, name, content); err != nil {
		return err
	}
	return s.SetPromptKey(strings.TrimSpace(name))
}

// Discard drops the staged pages and text and returns the session to idle.
// The prompt choice, folder and imported pool are kept.
func (s *Session) Discard() error {
	return s.edit(func() error {
		s.pages.Clear()
		s.text = ""
		s.merge = false
		s.notice = ""
		s.lastError = ""
		s.status = models.StatusIdle
		return nil
	})
}

func (s *Session) applyAutoMerge() {
	if s.pages.Len() > 1 {
		s.merge = true
	}
}

// Submit resolves the destination folder, builds the request and sends it
// for analysis. On success the staged input is cleared and listeners are
// told to refresh and navigate to the records view. On failure the staged
// input is kept for a retry.
func (s *Session) Submit(ctx context.Context) (*models.Note, error) {
	s.mu.Lock()
	if s.status == models.StatusSubmitting {
		s.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	if s.decoding > 0 {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if !s.hasInputLocked() {
		s.mu.Unlock()
		return nil, ErrNoInput
	}
	s.status = models.StatusSubmitting
	s.lastError = ""
	snap := Snapshot{
		Mode:        s.mode,
		Pages:       s.pages.Pages(),
		TextContent: s.text,
		Merge:       s.merge,
	}
	explicit := s.folderID
	key, freeform := s.promptKey, s.freeform
	s.mu.Unlock()

	slog.Info("Submitting capture", "session", s.ID, "mode", snap.Mode, "pages", len(snap.Pages), "merge", snap.Merge)

	resolution, err := s.deps.Resolver.Resolve(ctx, explicit)
	if err != nil {
		return nil, s.fail(err)
	}
	s.deps.Bus.Publish(events.Event{Type: events.FolderResolved, FolderID: resolution.FolderID})

	instruction := s.deps.Prompts.Resolve(key, freeform)
	req, err := BuildRequest(snap, resolution.FolderID, instruction)
	if err != nil {
		return nil, s.fail(&SubmissionError{Err: err})
	}

	note, err := s.deps.Analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, s.fail(&SubmissionError{Err: err})
	}
	if note == nil {
		return nil, s.fail(&SubmissionError{Err: errors.New("backend returned no note")})
	}

	s.mu.Lock()
	s.pages.Clear()
	s.text = ""
	s.freeform = ""
	s.notice = ""
	s.status = models.StatusSucceeded
	s.lastNote = note
	s.updatedAt = time.Now()
	s.mu.Unlock()

	slog.Info("Capture analyzed", "session", s.ID, "folder_id", note.FolderID, "note_id", note.ID)
	s.deps.Bus.Publish(events.Event{Type: events.AnalysisCompleted, FolderID: note.FolderID, NoteID: note.ID})
	s.deps.Bus.Publish(events.Event{Type: events.RefreshRequested, FolderID: note.FolderID})
	s.deps.Bus.Publish(events.Event{Type: events.NavigateRecords, FolderID: note.FolderID})
	return note, nil
}

func (s *Session) fail(err error) error {
	msg := UserMessage(err)
	slog.Error("Capture submission failed", "session", s.ID, "error", err)

	s.mu.Lock()
	s.status = models.StatusFailed
	s.lastError = msg
	s.updatedAt = time.Now()
	s.mu.Unlock()
	return err
}
