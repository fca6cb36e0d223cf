package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c := Load()

	require.NotEmpty(t, c.Frames())
	require.NotEmpty(t, c.ShineEffects())

	for _, frame := range c.Frames() {
		assert.Contains(t, []string{TierFree, TierPaid}, frame.Tier)
		assert.NotEmpty(t, frame.DisplayName)
	}
}

func TestLookupByNameIsCaseInsensitive(t *testing.T) {
	c := Load()

	frame, ok := c.FrameByName("Classic-Gold")
	require.True(t, ok)
	assert.Equal(t, "classic-gold", frame.Name)

	effect, ok := c.ShineEffectByName("  prismatic ")
	require.True(t, ok)
	assert.Equal(t, "prismatic", effect.Name)

	_, ok = c.FrameByName("no-such-frame")
	assert.False(t, ok)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CARD_CATALOG", `{
		"frames": [
			{"name": "custom", "tier": "paid", "gradient_colors": ["#000", "#fff", "#000"]},
			{"name": "custom", "tier": "free"},
			{"name": "  "}
		],
		"effects": [
			{"name": "glint", "pattern": "linear"}
		]
	}`)

	c := Load()

	require.Len(t, c.Frames(), 1)
	frame := c.Frames()[0]
	assert.Equal(t, "custom", frame.Name)
	assert.Equal(t, "custom", frame.DisplayName)
	assert.Equal(t, TierPaid, frame.Tier)
	assert.Equal(t, []string{"#000", "#fff"}, frame.GradientColors)

	require.Len(t, c.ShineEffects(), 1)
	effect := c.ShineEffects()[0]
	assert.Equal(t, TierFree, effect.Tier)
	assert.Equal(t, "linear", effect.Pattern)
}

func TestLoadMalformedOverrideFallsBack(t *testing.T) {
	t.Setenv("CARD_CATALOG", "{not json")

	c := Load()
	assert.Len(t, c.Frames(), len(defaultFrames))
	assert.Len(t, c.ShineEffects(), len(defaultShineEffects))
}
