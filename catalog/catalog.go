package catalog

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
)

var defaultFrames = []Frame{
	{
		Name:           "classic-gold",
		DisplayName:    "Classic Gold",
		Tier:           TierFree,
		GradientColors: []string{"#f6d365", "#fda085"},
	},
	{
		Name:           "midnight",
		DisplayName:    "Midnight",
		Tier:           TierFree,
		GradientColors: []string{"#232526", "#414345"},
	},
	{
		Name:           "aurora",
		DisplayName:    "Aurora",
		Tier:           TierPaid,
		GradientColors: []string{"#00c6ff", "#7b2ff7", "#f107a3"},
	},
	{
		Name:           "rose-prism",
		DisplayName:    "Rose Prism",
		Tier:           TierPaid,
		GradientColors: []string{"#ff9a9e", "#fecfef"},
	},
}

var defaultShineEffects = []ShineEffect{
	{
		Name:        "linear-sheen",
		DisplayName: "Linear Sheen",
		Tier:        TierFree,
		Pattern:     "linear",
		Icon:        "sparkles",
	},
	{
		Name:        "radial-burst",
		DisplayName: "Radial Burst",
		Tier:        TierFree,
		Pattern:     "radial",
		Icon:        "sun.max",
	},
	{
		Name:        "prismatic",
		DisplayName: "Prismatic",
		Tier:        TierPaid,
		Pattern:     "rainbow",
		Icon:        "rainbow",
	},
	{
		Name:        "starfield",
		DisplayName: "Starfield",
		Tier:        TierPaid,
		Pattern:     "speckle",
		Icon:        "star.circle",
	},
}

// Catalog holds the static Frame and ShineEffect lists, loaded once at
// startup. Entries are read-only; lookup is by name.
type Catalog struct {
	frames  []Frame
	effects []ShineEffect
}

// Load builds the catalog from in-code defaults, letting CARD_CATALOG or
// CARD_CATALOG_FILE override the lists. A malformed override is logged and
// ignored, falling back to the defaults.
func Load() *Catalog {
	frames, effects := loadFromEnv()
	if len(frames) == 0 {
		frames = append([]Frame(nil), defaultFrames...)
	}
	if len(effects) == 0 {
		effects = append([]ShineEffect(nil), defaultShineEffects...)
	}
	return &Catalog{frames: frames, effects: effects}
}

// Frames returns the frame list.
func (c *Catalog) Frames() []Frame {
	return c.frames
}

// ShineEffects returns the shine effect list.
func (c *Catalog) ShineEffects() []ShineEffect {
	return c.effects
}

// FrameByName looks up a frame by its identity key.
func (c *Catalog) FrameByName(name string) (Frame, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, frame := range c.frames {
		if strings.ToLower(frame.Name) == needle {
			return frame, true
		}
	}
	return Frame{}, false
}

// ShineEffectByName looks up a shine effect by its identity key.
func (c *Catalog) ShineEffectByName(name string) (ShineEffect, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, effect := range c.effects {
		if strings.ToLower(effect.Name) == needle {
			return effect, true
		}
	}
	return ShineEffect{}, false
}

type catalogDocument struct {
	Frames  []Frame       `json:"frames"`
	Effects []ShineEffect `json:"effects"`
}

func loadFromEnv() ([]Frame, []ShineEffect) {
	rawInline := strings.TrimSpace(os.Getenv("CARD_CATALOG"))
	if rawInline != "" {
		if frames, effects, ok := parseCatalogJSON(rawInline); ok {
			return frames, effects
		}
		log.Printf("catalog: failed to parse CARD_CATALOG override")
	}

	rawPath := strings.TrimSpace(os.Getenv("CARD_CATALOG_FILE"))
	if rawPath != "" {
		data, err := os.ReadFile(filepath.Clean(rawPath))
		if err != nil {
			log.Printf("catalog: read CARD_CATALOG_FILE failed: %v", err)
		} else if frames, effects, ok := parseCatalogJSON(string(data)); ok {
			return frames, effects
		} else {
			log.Printf("catalog: failed to parse catalog file %s", rawPath)
		}
	}

	return nil, nil
}

func parseCatalogJSON(raw string) ([]Frame, []ShineEffect, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil, false
	}

	var doc catalogDocument
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil, nil, false
	}

	frames := normalizeFrames(doc.Frames)
	effects := normalizeShineEffects(doc.Effects)
	if len(frames) == 0 && len(effects) == 0 {
		return nil, nil, false
	}
	return frames, effects, true
}

func normalizeFrames(list []Frame) []Frame {
	if len(list) == 0 {
		return nil
	}

	result := make([]Frame, 0, len(list))
	seen := make(map[string]struct{}, len(list))

	for _, item := range list {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}

		key := strings.ToLower(name)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}

		frame := Frame{
			Name:           name,
			DisplayName:    strings.TrimSpace(item.DisplayName),
			Tier:           normalizeTier(item.Tier),
			GradientColors: normalizeStringSlice(item.GradientColors),
		}
		if frame.DisplayName == "" {
			frame.DisplayName = name
		}

		result = append(result, frame)
	}

	return result
}

func normalizeShineEffects(list []ShineEffect) []ShineEffect {
	if len(list) == 0 {
		return nil
	}

	result := make([]ShineEffect, 0, len(list))
	seen := make(map[string]struct{}, len(list))

	for _, item := range list {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}

		key := strings.ToLower(name)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}

		effect := ShineEffect{
			Name:        name,
			DisplayName: strings.TrimSpace(item.DisplayName),
			Tier:        normalizeTier(item.Tier),
			Pattern:     strings.TrimSpace(item.Pattern),
			Icon:        strings.TrimSpace(item.Icon),
		}
		if effect.DisplayName == "" {
			effect.DisplayName = name
		}

		result = append(result, effect)
	}

	return result
}

func normalizeTier(tier string) string {
	if strings.EqualFold(strings.TrimSpace(tier), TierPaid) {
		return TierPaid
	}
	return TierFree
}

func normalizeStringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	result := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		lowered := strings.ToLower(trimmed)
		if _, exists := seen[lowered]; exists {
			continue
		}
		seen[lowered] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
