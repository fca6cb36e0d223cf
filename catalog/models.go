package catalog

// Tier values for catalog entries.
const (
	TierFree = "free"
	TierPaid = "paid"
)

// Frame is a static card border preset. Name is the identity key drafts
// reference; frames are reference data, never user-created.
type Frame struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	Tier           string   `json:"tier"`
	GradientColors []string `json:"gradient_colors,omitempty"`
}

// ShineEffect is a static simulated-foil preset selectable per draft.
type ShineEffect struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Tier        string `json:"tier"`
	Pattern     string `json:"pattern,omitempty"`
	Icon        string `json:"icon,omitempty"`
}
