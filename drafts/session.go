package drafts

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Session states. A fresh session is Empty until an image is chosen; loading
// an existing record starts at Saved.
const (
	StateEmpty   = "empty"
	StateEditing = "editing"
	StateSaved   = "saved"
)

// Exit choices offered when unsaved changes exist.
const (
	ExitSave    = "save"
	ExitDiscard = "discard"
	ExitCancel  = "cancel"
)

// ExitPrompter is the collaborator consulted before an exit that would drop
// unsaved changes. The presentation layer decides how to ask.
type ExitPrompter interface {
	ConfirmExit() string
}

// ExitPrompterFunc adapts a plain function to ExitPrompter.
type ExitPrompterFunc func() string

// ConfirmExit implements ExitPrompter.
func (f ExitPrompterFunc) ConfirmExit() string { return f() }

// EditorSession binds one user's editing screen to a TransformModel, a
// working copy of a DraftRecord, and the save/exit policy. The working copy
// only reaches the Store on an explicit Save.
type EditorSession struct {
	mu sync.Mutex

	store  *Store
	userID string

	transform *TransformModel

	draftID        string
	createdAt      time.Time
	localImageRef  *string
	remoteImageRef *string
	frameID        *string
	effectID       *string
	title          *string
	description    *string

	// persistedImageRef is the local ref the stored record still points at.
	// It must outlive any working-copy replacement until a save commits the
	// new ref or the record itself is deleted.
	persistedImageRef string
	staleRefs         []string

	dirty bool
}

// NewEditorSession opens a fresh, empty session for the user.
func NewEditorSession(store *Store, userID string) *EditorSession {
	return &EditorSession{
		store:     store,
		userID:    userID,
		transform: NewTransformModel(),
	}
}

// LoadDraft opens a session over an existing record. The session starts in
// the Saved state with transform, frame, effect and image refs pre-populated.
func LoadDraft(store *Store, userID string, record *DraftRecord) *EditorSession {
	s := NewEditorSession(store, userID)
	s.draftID = record.ID
	s.createdAt = record.CreatedAt
	s.localImageRef = record.LocalImageRef
	s.remoteImageRef = record.RemoteImageRef
	s.frameID = record.FrameID
	s.effectID = record.EffectID
	s.title = record.Title
	s.description = record.Description
	if record.LocalImageRef != nil {
		s.persistedImageRef = *record.LocalImageRef
	}
	s.transform.Load(record.Transform.Data())
	return s
}

// State reports the current session state.
func (s *EditorSession) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *EditorSession) stateLocked() string {
	if !s.hasImageLocked() {
		return StateEmpty
	}
	if s.dirty {
		return StateEditing
	}
	return StateSaved
}

func (s *EditorSession) hasImageLocked() bool {
	if s.localImageRef != nil && *s.localImageRef != "" {
		return true
	}
	if s.remoteImageRef != nil && *s.remoteImageRef != "" {
		return true
	}
	return false
}

// DraftID returns the persisted id, empty until the first save.
func (s *EditorSession) DraftID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftID
}

// AttachImage points the working copy at a locally cached image. A replaced
// ref the persisted record still owns is kept on disk until a save commits
// the new one; only refs no record can reach become stale.
func (s *EditorSession) AttachImage(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev := s.localImageRef; prev != nil && *prev != ref && *prev != s.persistedImageRef {
		s.staleRefs = append(s.staleRefs, *prev)
	}
	s.localImageRef = &ref
	s.remoteImageRef = nil
	s.dirty = true
}

// TakeStaleRefs drains the locally cached refs that are no longer reachable
// from the working copy or the persisted record. With teardown set the
// working copy itself is being abandoned, so its own uncommitted ref is
// stale too.
func (s *EditorSession) TakeStaleRefs(teardown bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := s.staleRefs
	s.staleRefs = nil
	if teardown && s.localImageRef != nil && *s.localImageRef != "" && *s.localImageRef != s.persistedImageRef {
		refs = append(refs, *s.localImageRef)
	}
	return refs
}

// AttachRemote records the durable URL of a finished background upload.
// This is bookkeeping, not a user edit, so it never flips Saved back to
// Editing. The persisted draft id is returned so the caller can write the
// ref through to the store; empty means the draft was never saved.
func (s *EditorSession) AttachRemote(url string) (draftID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if url == "" {
		return ""
	}
	s.remoteImageRef = &url
	return s.draftID
}

// SetFrame selects a frame from the catalog, or clears it with "".
func (s *EditorSession) SetFrame(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameID = optional(name)
	s.dirty = true
}

// SetEffect selects a shine effect from the catalog, or clears it with "".
func (s *EditorSession) SetEffect(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effectID = optional(name)
	s.dirty = true
}

// SetTitle updates the draft title.
func (s *EditorSession) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = optional(title)
	s.dirty = true
}

// SetDescription updates the draft description.
func (s *EditorSession) SetDescription(description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.description = optional(description)
	s.dirty = true
}

// Gesture ops delegate to the TransformModel. Only a finished gesture counts
// as a mutation; begin/update never flip the state on their own.

func (s *EditorSession) BeginDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform.BeginDrag()
}

func (s *EditorSession) UpdateDrag(deltaX, deltaY float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform.UpdateDrag(deltaX, deltaY)
}

func (s *EditorSession) EndDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform.EndDrag()
	s.dirty = true
}

func (s *EditorSession) BeginPinch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform.BeginPinch()
}

func (s *EditorSession) UpdatePinch(ratio float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform.UpdatePinch(ratio)
}

func (s *EditorSession) EndPinch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform.EndPinch()
	s.dirty = true
}

// Transform returns the working copy's live transform.
func (s *EditorSession) Transform() Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transform.Current()
}

// Save persists the working copy through the Store. With no image present it
// is a rejected no-op: saved is false and the store is untouched. On success
// the session moves to Saved.
func (s *EditorSession) Save(ctx context.Context) (saved bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasImageLocked() {
		return false, nil
	}

	stored, err := s.store.Upsert(ctx, s.workingCopyLocked())
	if err != nil {
		return false, fmt.Errorf("drafts: save session: %w", err)
	}

	s.draftID = stored.ID
	s.createdAt = stored.CreatedAt

	// The record now owns the working ref; the one it pointed at before is
	// unreachable and can be released.
	committed := ""
	if s.localImageRef != nil {
		committed = *s.localImageRef
	}
	if s.persistedImageRef != "" && s.persistedImageRef != committed {
		s.staleRefs = append(s.staleRefs, s.persistedImageRef)
	}
	s.persistedImageRef = committed

	s.dirty = false
	return true, nil
}

// workingCopyLocked assembles the record a save would persist. Status is
// always forced to saved; publishing is a separate explicit transition.
func (s *EditorSession) workingCopyLocked() DraftRecord {
	return DraftRecord{
		ID:             s.draftID,
		UserID:         s.userID,
		Status:         StatusSaved,
		RemoteImageRef: s.remoteImageRef,
		LocalImageRef:  s.localImageRef,
		FrameID:        s.frameID,
		EffectID:       s.effectID,
		Transform:      newTransformColumn(s.transform.Current()),
		Title:          s.title,
		Description:    s.description,
		CreatedAt:      s.createdAt,
	}
}

// Snapshot returns the working copy as it would be persisted, for display.
func (s *EditorSession) Snapshot() DraftRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workingCopyLocked()
}

// RequestExit applies the exit policy. With unsaved changes the prompter is
// consulted exactly once; Empty and Saved sessions exit immediately without
// a prompt. exited reports whether the session should be torn down.
func (s *EditorSession) RequestExit(ctx context.Context, prompter ExitPrompter) (exited bool, err error) {
	s.mu.Lock()
	state := s.stateLocked()
	s.mu.Unlock()

	if state != StateEditing {
		return true, nil
	}
	if prompter == nil {
		return false, nil
	}

	switch prompter.ConfirmExit() {
	case ExitSave:
		if _, err := s.Save(ctx); err != nil {
			return false, err
		}
		return true, nil
	case ExitDiscard:
		return true, nil
	default:
		return false, nil
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
