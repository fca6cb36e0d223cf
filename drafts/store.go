package drafts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotPublishable is returned when a draft without any image reference is
// asked to publish.
var ErrNotPublishable = errors.New("drafts: draft has no image and cannot be published")

// Store is the durable collection of DraftRecords. Every Upsert and Delete
// is written through to the database before returning, so a restart never
// loses the last acknowledged write.
type Store struct {
	db     *gorm.DB
	images *imageStore
	now    func() time.Time
}

// NewStore wires a Store over an already-migrated database and the local
// image store releasing cached files on delete.
func NewStore(db *gorm.DB, images *imageStore) *Store {
	return &Store{db: db, images: images, now: func() time.Time { return time.Now().UTC() }}
}

// List returns a snapshot of the user's records, most recently touched first.
func (s *Store) List(ctx context.Context, userID string) ([]DraftRecord, error) {
	var records []DraftRecord
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("drafts: list records: %w", err)
	}
	return records, nil
}

// ListByStatus filters List by status with the same ordering.
func (s *Store) ListByStatus(ctx context.Context, userID, status string) ([]DraftRecord, error) {
	var records []DraftRecord
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, strings.ToLower(strings.TrimSpace(status))).
		Order("updated_at desc").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("drafts: list records by status: %w", err)
	}
	return records, nil
}

// Get fetches one record by id, scoped to its owner.
func (s *Store) Get(ctx context.Context, userID, id string) (*DraftRecord, error) {
	var record DraftRecord
	if err := s.db.WithContext(ctx).
		First(&record, "id = ? AND user_id = ?", strings.TrimSpace(id), userID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert stores the record, assigning an id and creation time on first write
// and always stamping UpdatedAt with the store clock, overriding whatever the
// caller carried. The stored record is returned.
func (s *Store) Upsert(ctx context.Context, record DraftRecord) (*DraftRecord, error) {
	if strings.TrimSpace(record.UserID) == "" {
		return nil, errors.New("drafts: record is missing an owner")
	}

	now := s.now()
	if strings.TrimSpace(record.ID) == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.Status == "" {
		record.Status = StatusSaved
	}
	record.UpdatedAt = now

	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return nil, fmt.Errorf("drafts: upsert record: %w", err)
	}
	return &record, nil
}

// Delete removes the record and releases its locally cached image, if any.
// The removed record is returned so the caller can clean up external state
// such as the remote object. Deleting an id that is not stored is a no-op
// returning nil.
func (s *Store) Delete(ctx context.Context, userID, id string) (*DraftRecord, error) {
	record, err := s.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("drafts: load record for delete: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&DraftRecord{}, "id = ?", record.ID).Error; err != nil {
		return nil, fmt.Errorf("drafts: delete record: %w", err)
	}

	if record.LocalImageRef != nil {
		if err := s.images.Remove(*record.LocalImageRef); err != nil {
			log.Printf("drafts: release image for %s: %v", record.ID, err)
		}
	}
	return record, nil
}

// AttachRemoteImage records the durable upload URL for a draft after the
// background upload lands. The draft having been deleted in the meantime is
// not an error.
func (s *Store) AttachRemoteImage(ctx context.Context, id, url string) error {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return nil
	}
	result := s.db.WithContext(ctx).
		Model(&DraftRecord{}).
		Where("id = ?", strings.TrimSpace(id)).
		Update("remote_image_ref", trimmed)
	if result.Error != nil {
		return fmt.Errorf("drafts: attach remote image: %w", result.Error)
	}
	return nil
}

// Publish moves a record to the published status. A record with no image
// reference at all is an empty placeholder and is rejected.
func (s *Store) Publish(ctx context.Context, userID, id string) (*DraftRecord, error) {
	record, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !record.HasImage() {
		return nil, ErrNotPublishable
	}

	record.Status = StatusPublished
	return s.Upsert(ctx, *record)
}
