package drafts

import (
	"time"

	"gorm.io/datatypes"
)

// Draft status values. Publishing is an explicit transition; editing and
// saving never change a published draft back implicitly.
const (
	StatusSaved     = "saved"
	StatusPublished = "published"
)

// Transform captures the user-controlled placement of the source image
// within the fixed-aspect card canvas.
type Transform struct {
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	Scale   float64 `json:"scale"`
}

// DefaultTransform returns the neutral placement for a fresh card.
func DefaultTransform() Transform {
	return Transform{Scale: 1.0}
}

func newTransformColumn(t Transform) datatypes.JSONType[Transform] {
	return datatypes.NewJSONType(t)
}

// DraftRecord is one card-in-progress owned by a user. A record with neither
// a local nor a remote image reference is an empty placeholder and cannot be
// published.
type DraftRecord struct {
	ID             string                        `gorm:"primaryKey;size:36" json:"id"`
	UserID         string                        `gorm:"size:64;not null;index" json:"user_id"`
	Status         string                        `gorm:"size:16;not null;default:'saved'" json:"status"`
	RemoteImageRef *string                       `gorm:"size:512" json:"remote_image_ref,omitempty"`
	LocalImageRef  *string                       `gorm:"size:255" json:"local_image_ref,omitempty"`
	FrameID        *string                       `gorm:"size:100" json:"frame_id,omitempty"`
	EffectID       *string                       `gorm:"size:100" json:"effect_id,omitempty"`
	Transform      datatypes.JSONType[Transform] `gorm:"type:json" json:"transform"`
	Title          *string                       `gorm:"size:255" json:"title,omitempty"`
	Description    *string                       `gorm:"type:text" json:"description,omitempty"`
	CreatedAt      time.Time                     `json:"created_at"`
	// The store clock owns this stamp; gorm's auto-update callback would
	// overwrite it with wall time on every update.
	UpdatedAt time.Time `gorm:"index;autoUpdateTime:false" json:"updated_at"`
}

// TableName pins the storage table for DraftRecord.
func (DraftRecord) TableName() string {
	return "draft_records"
}

// HasImage reports whether the record references any image, local or remote.
func (r *DraftRecord) HasImage() bool {
	if r == nil {
		return false
	}
	if r.LocalImageRef != nil && *r.LocalImageRef != "" {
		return true
	}
	if r.RemoteImageRef != nil && *r.RemoteImageRef != "" {
		return true
	}
	return false
}
