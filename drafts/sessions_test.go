package drafts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionRegistryHoldsOneSessionPerUser(t *testing.T) {
	store := newTestStore(t)
	registry := newSessionRegistry()

	assert.Nil(t, registry.Get("u1"))

	first := NewEditorSession(store, "u1")
	registry.Put("u1", first)
	assert.Same(t, first, registry.Get("u1"))

	// Opening a new session replaces the old one.
	second := NewEditorSession(store, "u1")
	registry.Put("u1", second)
	assert.Same(t, second, registry.Get("u1"))

	registry.Remove("u1")
	assert.Nil(t, registry.Get("u1"))

	// Removing an absent session is fine.
	registry.Remove("u1")
}
