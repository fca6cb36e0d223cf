package drafts

import (
	"context"
	"log"
	"time"

	filestore "holocard_back/storage"
)

const uploadTimeout = 30 * time.Second

// uploader pushes card images to remote object storage in the background.
// Uploads are fire-and-forget relative to the local save path: a draft is
// valid with only its local ref while an upload is in flight or has failed,
// and the remote ref is attached opportunistically when the upload lands.
type uploader struct {
	storage *filestore.CardImageStorage
	store   *Store
}

func newUploader(storage *filestore.CardImageStorage, store *Store) *uploader {
	return &uploader{storage: storage, store: store}
}

// Enqueue starts a background upload of the image bytes owned by the given
// session. Nothing blocks on the result and there is no cancellation on
// session exit; an in-flight upload may complete or fail after the editor is
// gone. When the upload lands the remote ref is attached to the working copy
// and, if the draft was already persisted, written through to the store.
// Attaching to a since-deleted draft is a no-op inside the store.
func (u *uploader) Enqueue(session *EditorSession, data []byte) {
	if u == nil || u.storage == nil || session == nil {
		return
	}

	payload := make([]byte, len(data))
	copy(payload, data)
	userID := session.userID

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		defer cancel()

		url, err := u.storage.Upload(ctx, payload, userID)
		if err != nil {
			log.Printf("drafts: background upload for user %s failed: %v", userID, err)
			return
		}

		draftID := session.AttachRemote(url)
		if draftID == "" {
			return
		}
		if err := u.store.AttachRemoteImage(ctx, draftID, url); err != nil {
			log.Printf("drafts: attach remote image for %s failed: %v", draftID, err)
		}
	}()
}
