package drafts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPrompter struct {
	choice string
	calls  int
}

func (p *countingPrompter) ConfirmExit() string {
	p.calls++
	return p.choice
}

func TestEditorSessionStartsEmpty(t *testing.T) {
	store := newTestStore(t)
	session := NewEditorSession(store, "u1")

	assert.Equal(t, StateEmpty, session.State())
	assert.Equal(t, DefaultTransform(), session.Transform())
}

func TestEditorSessionSaveFromEmptyIsNoop(t *testing.T) {
	store := newTestStore(t)
	session := NewEditorSession(store, "u1")

	saved, err := session.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, saved)

	records, err := store.List(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestEditorSessionImageThenSave(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	session := NewEditorSession(store, "u1")

	session.AttachImage("img-1.png")
	require.Equal(t, StateEditing, session.State())

	session.SetFrame("aurora")
	session.SetEffect("prismatic")
	session.BeginDrag()
	session.UpdateDrag(10, 20)
	session.EndDrag()

	saved, err := session.Save(ctx)
	require.NoError(t, err)
	require.True(t, saved)
	assert.Equal(t, StateSaved, session.State())
	require.NotEmpty(t, session.DraftID())

	record, err := store.Get(ctx, "u1", session.DraftID())
	require.NoError(t, err)
	assert.Equal(t, StatusSaved, record.Status)
	assert.Equal(t, "aurora", *record.FrameID)
	assert.Equal(t, "prismatic", *record.EffectID)
	assert.Equal(t, Transform{OffsetX: 10, OffsetY: 20, Scale: 1.0}, record.Transform.Data())
}

func TestEditorSessionSecondSaveKeepsIdentity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	session := NewEditorSession(store, "u1")

	session.AttachImage("img-1.png")
	_, err := session.Save(ctx)
	require.NoError(t, err)
	firstID := session.DraftID()

	session.SetFrame("midnight")
	_, err = session.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, firstID, session.DraftID())

	records, err := store.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, firstID, records[0].ID)
}

func TestEditorSessionLoadEntersSaved(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ref := "img-1.png"
	stored, err := store.Upsert(ctx, DraftRecord{
		UserID:        "u1",
		LocalImageRef: &ref,
		FrameID:       stringPtr("aurora"),
		Transform:     newTransformColumn(Transform{OffsetX: 5, Scale: 2}),
	})
	require.NoError(t, err)

	session := LoadDraft(store, "u1", stored)
	require.Equal(t, StateSaved, session.State())
	assert.Equal(t, Transform{OffsetX: 5, Scale: 2}, session.Transform())

	// Saving without mutating is allowed and the state stays Saved.
	saved, err := session.Save(ctx)
	require.NoError(t, err)
	require.True(t, saved)
	assert.Equal(t, StateSaved, session.State())
	assert.Equal(t, stored.ID, session.DraftID())
}

func TestEditorSessionMutationInSavedMovesToEditing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ref := "img-1.png"
	stored, err := store.Upsert(ctx, DraftRecord{UserID: "u1", LocalImageRef: &ref})
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*EditorSession)
	}{
		{"frame", func(s *EditorSession) { s.SetFrame("aurora") }},
		{"effect", func(s *EditorSession) { s.SetEffect("prismatic") }},
		{"image", func(s *EditorSession) { s.AttachImage("img-2.png") }},
		{"drag end", func(s *EditorSession) { s.BeginDrag(); s.UpdateDrag(1, 1); s.EndDrag() }},
		{"pinch end", func(s *EditorSession) { s.BeginPinch(); s.UpdatePinch(2); s.EndPinch() }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session := LoadDraft(store, "u1", stored)
			require.Equal(t, StateSaved, session.State())
			tc.mutate(session)
			assert.Equal(t, StateEditing, session.State())
		})
	}
}

func TestEditorSessionExitWithoutChangesSkipsPrompt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	prompter := &countingPrompter{choice: ExitCancel}

	session := NewEditorSession(store, "u1")
	exited, err := session.RequestExit(ctx, prompter)
	require.NoError(t, err)
	assert.True(t, exited)
	assert.Zero(t, prompter.calls)

	ref := "img-1.png"
	stored, err := store.Upsert(ctx, DraftRecord{UserID: "u1", LocalImageRef: &ref})
	require.NoError(t, err)

	session = LoadDraft(store, "u1", stored)
	exited, err = session.RequestExit(ctx, prompter)
	require.NoError(t, err)
	assert.True(t, exited)
	assert.Zero(t, prompter.calls)
}

func TestEditorSessionExitWithChangesPromptsOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	newEditing := func() *EditorSession {
		session := NewEditorSession(store, "u1")
		session.AttachImage("img-1.png")
		return session
	}

	t.Run("cancel keeps the session", func(t *testing.T) {
		prompter := &countingPrompter{choice: ExitCancel}
		session := newEditing()
		exited, err := session.RequestExit(ctx, prompter)
		require.NoError(t, err)
		assert.False(t, exited)
		assert.Equal(t, 1, prompter.calls)
		assert.Equal(t, StateEditing, session.State())
	})

	t.Run("discard exits without saving", func(t *testing.T) {
		prompter := &countingPrompter{choice: ExitDiscard}
		session := newEditing()
		exited, err := session.RequestExit(ctx, prompter)
		require.NoError(t, err)
		assert.True(t, exited)
		assert.Equal(t, 1, prompter.calls)

		records, err := store.List(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("save persists then exits", func(t *testing.T) {
		prompter := &countingPrompter{choice: ExitSave}
		session := newEditing()
		exited, err := session.RequestExit(ctx, prompter)
		require.NoError(t, err)
		assert.True(t, exited)
		assert.Equal(t, 1, prompter.calls)

		records, err := store.List(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}

func TestEditorSessionAttachRemoteKeepsSavedState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := NewEditorSession(store, "u1")
	session.AttachImage("img-1.png")
	_, err := session.Save(ctx)
	require.NoError(t, err)

	draftID := session.AttachRemote("https://cdn.example/card.png")
	assert.Equal(t, session.DraftID(), draftID)
	assert.Equal(t, StateSaved, session.State())
}

func TestEditorSessionAttachRemoteBeforeSave(t *testing.T) {
	store := newTestStore(t)
	session := NewEditorSession(store, "u1")
	session.AttachImage("img-1.png")

	// Never persisted: nothing to write through.
	assert.Empty(t, session.AttachRemote("https://cdn.example/card.png"))
}

func TestEditorSessionReplacedUnsavedRefGoesStale(t *testing.T) {
	store := newTestStore(t)
	session := NewEditorSession(store, "u1")

	session.AttachImage("img-1.png")
	assert.Empty(t, session.TakeStaleRefs(false))

	// Neither ref was ever persisted, so the replaced one is released at once.
	session.AttachImage("img-2.png")
	assert.Equal(t, []string{"img-1.png"}, session.TakeStaleRefs(false))

	// Draining clears the list.
	assert.Empty(t, session.TakeStaleRefs(false))
}

func TestEditorSessionKeepsPersistedRefUntilCommit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	originalRef := "d1-original.png"
	stored, err := store.Upsert(ctx, DraftRecord{UserID: "u1", LocalImageRef: &originalRef})
	require.NoError(t, err)

	t.Run("discard keeps the record's file and abandons the replacement", func(t *testing.T) {
		session := LoadDraft(store, "u1", stored)
		session.AttachImage("d1-replacement.png")

		// The old ref is still owned by the stored record; replacing it in
		// the working copy must not release it.
		assert.Empty(t, session.TakeStaleRefs(false))

		// Exiting without saving abandons only the uncommitted replacement.
		assert.Equal(t, []string{"d1-replacement.png"}, session.TakeStaleRefs(true))
	})

	t.Run("save releases the superseded ref", func(t *testing.T) {
		session := LoadDraft(store, "u1", stored)
		session.AttachImage("d1-replacement.png")

		saved, err := session.Save(ctx)
		require.NoError(t, err)
		require.True(t, saved)

		assert.Equal(t, []string{originalRef}, session.TakeStaleRefs(false))

		// The committed ref now belongs to the record; teardown keeps it.
		assert.Empty(t, session.TakeStaleRefs(true))

		reloaded, err := store.Get(ctx, "u1", stored.ID)
		require.NoError(t, err)
		require.NotNil(t, reloaded.LocalImageRef)
		assert.Equal(t, "d1-replacement.png", *reloaded.LocalImageRef)
	})

	t.Run("never-saved working ref is stale at teardown", func(t *testing.T) {
		session := NewEditorSession(store, "u1")
		session.AttachImage("scratch.png")
		assert.Equal(t, []string{"scratch.png"}, session.TakeStaleRefs(true))
	})
}
