package workspace

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tilsley/quill/apps/editor/internal/drafts"
)

// DefaultDebounce is the quiet period before an edit is written as a draft.
const DefaultDebounce = 500 * time.Millisecond

// DraftMode is the reconciliation state of the buffer against its draft.
type DraftMode string

const (
	// ModeIdle means the buffer matches the last known baseline.
	ModeIdle DraftMode = "idle"
	// ModeSaving means a debounced write is pending.
	ModeSaving DraftMode = "saving"
	// ModeRestored means a stored draft just replaced the buffer and the user
	// has not undone it yet.
	ModeRestored DraftMode = "restored"
)

// DraftStatus is the rendering view of DraftSync. Times are epoch millis.
type DraftStatus struct {
	Mode         DraftMode `json:"mode"`
	HasDraft     bool      `json:"hasDraft"`
	SavedAt      int64     `json:"savedAt,omitempty"`
	RestoredFrom int64     `json:"restoredFrom,omitempty"`
	CanUndo      bool      `json:"canUndo"`
	LastError    string    `json:"lastError,omitempty"`
}

// DraftSync keeps the buffer and the stored draft for one key in step.
//
// Store failures during Bind and autosave are logged and recorded in
// DraftStatus.LastError; they never reach the caller. Nothing is saved for a
// key until its initial lookup has completed.
type DraftSync struct {
	store DraftStore
	clock clockwork.Clock
	log   *slog.Logger
	delay time.Duration

	mu       sync.Mutex
	epoch    uint64
	key      drafts.Key
	enabled  bool
	ready    bool
	baseline string
	pending  string
	timer    clockwork.Timer
	undo     *string
	status   DraftStatus
}

// NewDraftSync returns a disabled DraftSync. Call Bind to attach a key.
func NewDraftSync(store DraftStore, clock clockwork.Clock, log *slog.Logger) *DraftSync {
	return &DraftSync{
		store:  store,
		clock:  clock,
		log:    log,
		delay:  DefaultDebounce,
		status: DraftStatus{Mode: ModeIdle},
	}
}

// Bind attaches key, cancelling any pending save for the previous key, and
// looks up its draft. When a stored draft differs from current, Bind returns
// the draft content and true: the caller replaces the buffer with it and the
// pre-replacement content becomes the undo snapshot. An incomplete key
// disables autosave.
func (s *DraftSync) Bind(ctx context.Context, key drafts.Key, current string) (string, bool) {
	content, restored, _ := s.bind(ctx, key, current, true)
	return content, restored
}

// Attach binds key like Bind but keeps current as the baseline even when a
// different draft is stored. The stored draft stays available to Restore.
func (s *DraftSync) Attach(ctx context.Context, key drafts.Key, current string) {
	s.bind(ctx, key, current, false)
}

// bind returns the epoch it bound under alongside the restore result.
func (s *DraftSync) bind(ctx context.Context, key drafts.Key, current string, restore bool) (string, bool, uint64) {
	s.mu.Lock()
	s.stopTimerLocked()
	s.epoch++
	epoch := s.epoch
	s.key = key
	s.enabled = key.Complete()
	s.ready = false
	s.undo = nil
	s.baseline = current
	s.status = DraftStatus{Mode: ModeIdle}
	enabled := s.enabled
	s.mu.Unlock()

	if !enabled {
		return "", false, epoch
	}

	rec, err := s.store.Get(ctx, key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return "", false, epoch
	}
	s.ready = true
	if err != nil {
		s.log.Warn("draft lookup failed", "key", key.String(), "error", err)
		s.status.LastError = err.Error()
		return "", false, epoch
	}
	if rec == nil {
		return "", false, epoch
	}
	s.status.HasDraft = true
	s.status.SavedAt = rec.UpdatedAt
	if !restore || rec.Content == current {
		return "", false, epoch
	}
	s.baseline = rec.Content
	prev := current
	s.undo = &prev
	s.status.Mode = ModeRestored
	s.status.RestoredFrom = rec.UpdatedAt
	s.log.Debug("restored local draft", "key", key.String(), "updatedAt", rec.UpdatedAt)
	return rec.Content, true, epoch
}

// Epoch identifies the current binding. It changes on every Bind, Attach and
// Stop.
func (s *DraftSync) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Observe reports the buffer's new content. A change away from the baseline
// (re)starts the debounce timer; at most one save is pending at a time.
func (s *DraftSync) Observe(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || !s.ready {
		return
	}
	if content == s.baseline {
		// Typed back to the baseline: drop the pending save.
		if s.timer != nil {
			s.stopTimerLocked()
			s.status.Mode = ModeIdle
		}
		return
	}
	s.pending = content
	s.status.Mode = ModeSaving
	s.stopTimerLocked()
	epoch := s.epoch
	s.timer = s.clock.AfterFunc(s.delay, func() { s.flush(epoch) })
}

func (s *DraftSync) flush(epoch uint64) {
	s.mu.Lock()
	if s.epoch != epoch || !s.enabled {
		s.mu.Unlock()
		return
	}
	rec := drafts.Record{Key: s.key, Content: s.pending, UpdatedAt: s.clock.Now().UnixMilli()}
	s.timer = nil
	s.mu.Unlock()

	err := s.store.Save(context.Background(), rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return
	}
	if s.timer == nil {
		s.status.Mode = ModeIdle
	}
	if err != nil {
		s.log.Warn("draft autosave failed", "key", rec.Key.String(), "error", err)
		s.status.LastError = err.Error()
		return
	}
	s.baseline = rec.Content
	s.status.HasDraft = true
	s.status.SavedAt = rec.UpdatedAt
	s.status.LastError = ""
}

// UndoRestore returns the content the last restore replaced and forgets it.
// The second call after one restore returns false.
func (s *DraftSync) UndoRestore() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.undoLocked()
}

// UndoRestoreIf is UndoRestore limited to the binding identified by epoch.
// It returns false once a later bind has replaced that binding.
func (s *DraftSync) UndoRestoreIf(epoch uint64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return "", false
	}
	return s.undoLocked()
}

func (s *DraftSync) undoLocked() (string, bool) {
	if s.undo == nil {
		return "", false
	}
	prev := *s.undo
	s.undo = nil
	if s.status.Mode == ModeRestored {
		s.status.Mode = ModeIdle
	}
	s.status.RestoredFrom = 0
	return prev, true
}

// Restore re-applies the stored draft for the bound key. It behaves like the
// restore half of Bind and returns false when there is nothing different to
// restore.
func (s *DraftSync) Restore(ctx context.Context, current string) (string, bool, error) {
	s.mu.Lock()
	key, enabled, epoch := s.key, s.enabled, s.epoch
	s.mu.Unlock()
	if !enabled {
		return "", false, nil
	}

	rec, err := s.store.Get(ctx, key)
	if err != nil {
		return "", false, LocalStorageError{Op: "get draft", Err: err}
	}
	if rec == nil || rec.Content == current {
		return "", false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return "", false, ErrSuperseded
	}
	s.stopTimerLocked()
	prev := current
	s.undo = &prev
	s.baseline = rec.Content
	s.status.Mode = ModeRestored
	s.status.HasDraft = true
	s.status.RestoredFrom = rec.UpdatedAt
	return rec.Content, true, nil
}

// Clear deletes the draft for the bound key, cancels any pending save and
// resets to idle with baseline as the new reference content.
func (s *DraftSync) Clear(ctx context.Context, baseline string) error {
	s.mu.Lock()
	s.stopTimerLocked()
	key, enabled, epoch := s.key, s.enabled, s.epoch
	s.mu.Unlock()

	var err error
	if enabled {
		err = s.store.Delete(ctx, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return err
	}
	s.baseline = baseline
	s.undo = nil
	s.status = DraftStatus{Mode: ModeIdle}
	if err != nil {
		s.status.LastError = err.Error()
		return LocalStorageError{Op: "delete draft", Err: err}
	}
	return nil
}

// Key returns the bound key.
func (s *DraftSync) Key() drafts.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// Status returns the current reconciliation view.
func (s *DraftSync) Status() DraftStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.CanUndo = s.undo != nil
	return st
}

// Stop cancels any pending save and disables the sync.
func (s *DraftSync) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.epoch++
	s.enabled = false
}

func (s *DraftSync) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
