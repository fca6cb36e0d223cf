package drafts

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"holocard_back/authorization"
	"holocard_back/cache"
	"holocard_back/catalog"
	filestore "holocard_back/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Module owns the draft collection and the per-user editing sessions.
type Module struct {
	db       *gorm.DB
	store    *Store
	images   *imageStore
	remote   *filestore.CardImageStorage
	uploader *uploader
	cache    *listCache
	sessions *sessionRegistry
	catalog  *catalog.Catalog
	guard    *authorization.Guard
}

// RegisterRoutes migrates the draft table and mounts the /drafts and /editor
// endpoints. Remote upload and the Redis listing cache are optional; either
// being unconfigured only disables that concern.
func RegisterRoutes(router *gin.Engine, guard *authorization.Guard, cat *catalog.Catalog) (*Module, error) {
	db, err := openDatabaseFromEnv()
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&DraftRecord{}); err != nil {
		return nil, fmt.Errorf("drafts: migrate tables: %w", err)
	}

	images, err := newImageStoreFromEnv()
	if err != nil {
		return nil, err
	}

	remote, err := filestore.NewCardImageStorageFromEnv()
	if err != nil {
		return nil, err
	}
	if remote == nil {
		log.Printf("drafts: remote image storage not configured, uploads disabled")
	}

	var lists *listCache
	if client, err := cache.GetRedisClient(); err != nil {
		log.Printf("drafts: redis unavailable, listing cache disabled: %v", err)
	} else {
		lists = newListCache(client)
	}

	store := NewStore(db, images)
	module := &Module{
		db:       db,
		store:    store,
		images:   images,
		remote:   remote,
		uploader: newUploader(remote, store),
		cache:    lists,
		sessions: newSessionRegistry(),
		catalog:  cat,
		guard:    guard,
	}

	authed := router.Group("")
	if guard != nil {
		authed.Use(guard.RequireAuthenticated())
	} else {
		authed.Use(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization middleware missing"})
		})
	}

	drafts := authed.Group("/drafts")
	drafts.GET("", module.handleListDrafts)
	drafts.GET("/:id", module.handleGetDraft)
	drafts.GET("/:id/image", module.handleServeImage)
	drafts.DELETE("/:id", module.handleDeleteDraft)
	drafts.POST("/:id/publish", module.handlePublishDraft)

	editor := authed.Group("/editor")
	editor.POST("/session", module.handleOpenSession)
	editor.GET("/session", module.handleGetSession)
	editor.POST("/image", module.handleAttachImage)
	editor.POST("/frame", module.handleSetFrame)
	editor.POST("/effect", module.handleSetEffect)
	editor.POST("/meta", module.handleSetMeta)
	editor.POST("/gesture", module.handleGesture)
	editor.POST("/save", module.handleSave)
	editor.POST("/exit", module.handleExit)

	return module, nil
}

type draftDTO struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	RemoteImageRef *string   `json:"remote_image_ref,omitempty"`
	LocalImageRef  *string   `json:"local_image_ref,omitempty"`
	FrameID        *string   `json:"frame_id,omitempty"`
	EffectID       *string   `json:"effect_id,omitempty"`
	Transform      Transform `json:"transform"`
	Title          *string   `json:"title,omitempty"`
	Description    *string   `json:"description,omitempty"`
	CreatedAt      int64     `json:"created_at"`
	UpdatedAt      int64     `json:"updated_at"`
}

func toDTO(record *DraftRecord) draftDTO {
	return draftDTO{
		ID:             record.ID,
		Status:         record.Status,
		RemoteImageRef: record.RemoteImageRef,
		LocalImageRef:  record.LocalImageRef,
		FrameID:        record.FrameID,
		EffectID:       record.EffectID,
		Transform:      record.Transform.Data(),
		Title:          record.Title,
		Description:    record.Description,
		CreatedAt:      record.CreatedAt.Unix(),
		UpdatedAt:      record.UpdatedAt.Unix(),
	}
}

func (m *Module) currentUserID(c *gin.Context) (string, bool) {
	userID := m.guard.CurrentUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return "", false
	}
	return userID, true
}

func (m *Module) handleListDrafts(c *gin.Context) {
	userID, ok := m.currentUserID(c)
	if !ok {
		return
	}

	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	if status != "" && status != StatusSaved && status != StatusPublished {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status filter"})
		return
	}

	ctx := c.Request.Context()
	if records, hit := m.cache.get(ctx, userID, status); hit {
		c.JSON(http.StatusOK, gin.H{"drafts": toDTOs(records)})
		return
	}

	var records []DraftRecord
	var err error
	if status == "" {
		records, err = m.store.List(ctx, userID)
	} else {
		records, err = m.store.ListByStatus(ctx, userID, status)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list drafts"})
		return
	}

	m.cache.store(ctx, userID, status, records)
	c.JSON(http.StatusOK, gin.H{"drafts": toDTOs(records)})
}

func toDTOs(records []DraftRecord) []draftDTO {
	result := make([]draftDTO, 0, len(records))
	for i := range records {
		result = append(result, toDTO(&records[i]))
	}
	return result
}

func (m *Module) handleGetDraft(c *gin.Context) {
	userID, ok := m.currentUserID(c)
	if !ok {
		return
	}

	record, err := m.store.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load draft"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"draft": toDTO(record)})
}

func (m *Module) handleServeImage(c *gin.Context) {
	userID, ok := m.currentUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	record, err := m.store.Get(ctx, userID, c.Param("id"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	if record.LocalImageRef == nil || *record.LocalImageRef == "" {
		// No cached copy; hand out a short-lived link to the uploaded object.
		if record.RemoteImageRef != nil && m.remote != nil {
			url, err := m.remote.PresignedURL(ctx, *record.RemoteImageRef, 15*time.Minute)
			if err != nil {
				log.Printf("drafts: presign remote image for %s: %v", record.ID, err)
			} else if url != "" {
				c.Redirect(http.StatusTemporaryRedirect, url)
				return
			}
		}
		c.Status(http.StatusNotFound)
		return
	}

	data, err := m.images.Load(*record.LocalImageRef)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

func (m *Module) handleDeleteDraft(c *gin.Context) {
	userID, ok := m.currentUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	record, err := m.store.Delete(ctx, userID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete draft"})
		return
	}

	if record != nil && record.RemoteImageRef != nil {
		if err := m.remote.Remove(ctx, *record.RemoteImageRef); err != nil {
			log.Printf("drafts: remove remote image for %s: %v", record.ID, err)
		}
	}

	m.cache.invalidate(ctx, userID)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (m *Module) handlePublishDraft(c *gin.Context) {
	userID, ok := m.currentUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	record, err := m.store.Publish(ctx, userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
		case errors.Is(err, ErrNotPublishable):
			c.JSON(http.StatusConflict, gin.H{"error": "draft has no image and cannot be published"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish draft"})
		}
		return
	}

	m.cache.invalidate(ctx, userID)
	c.JSON(http.StatusOK, gin.H{"draft": toDTO(record)})
}

type openSessionRequest struct {
	DraftID string `json:"draft_id"`
}

func (m *Module) handleOpenSession(c *gin.Context) {
	userID, ok := m.currentUserID(c)
	if !ok {
		return
	}

	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	var session *EditorSession
	if strings.TrimSpace(req.DraftID) != "" {
		record, err := m.store.Get(c.Request.Context(), userID, req.DraftID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load draft"})
			}
			return
		}
		session = LoadDraft(m.store, userID, record)
	} else {
		session = NewEditorSession(m.store, userID)
	}

	m.sessions.Put(userID, session)
	c.JSON(http.StatusCreated, m.sessionDTO(session))
}

func (m *Module) activeSession(c *gin.Context) (*EditorSession, bool) {
	userID, ok := m.currentUserID(c)
	if !ok {
		return nil, false
	}
	session := m.sessions.Get(userID)
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active editing session"})
		return nil, false
	}
	return session, true
}

func (m *Module) sessionDTO(session *EditorSession) gin.H {
	snapshot := session.Snapshot()
	return gin.H{
		"state":     session.State(),
		"draft_id":  session.DraftID(),
		"transform": session.Transform(),
		"frame_id":  snapshot.FrameID,
		"effect_id": snapshot.EffectID,
		"title":     snapshot.Title,
	}
}

func (m *Module) handleGetSession(c *gin.Context) {
	session, ok := m.activeSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, m.sessionDTO(session))
}

func (m *Module) handleAttachImage(c *gin.Context) {
	session, ok := m.activeSession(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image file"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxImageBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
		return
	}

	ref, err := m.images.Save(session.DraftID(), data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session.AttachImage(ref)
	m.releaseStaleImages(session, false)

	// Local save is the source of truth; the remote copy lands whenever the
	// upload finishes.
	m.uploader.Enqueue(session, data)

	c.JSON(http.StatusOK, m.sessionDTO(session))
}

type selectRequest struct {
	Name string `json:"name"`
}

func (m *Module) handleSetFrame(c *gin.Context) {
	session, ok := m.activeSession(c)
	if !ok {
		return
	}

	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name != "" {
		frame, found := m.catalog.FrameByName(name)
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "frame not found"})
			return
		}
		name = frame.Name
	}

	session.SetFrame(name)
	c.JSON(http.StatusOK, m.sessionDTO(session))
}

func (m *Module) handleSetEffect(c *gin.Context) {
	session, ok := m.activeSession(c)
	if !ok {
		return
	}

	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name != "" {
		effect, found := m.catalog.ShineEffectByName(name)
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "shine effect not found"})
			return
		}
		name = effect.Name
	}

	session.SetEffect(name)
	c.JSON(http.StatusOK, m.sessionDTO(session))
}

type metaRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (m *Module) handleSetMeta(c *gin.Context) {
	session, ok := m.activeSession(c)
	if !ok {
		return
	}

	var req metaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	if req.Title != nil {
		session.SetTitle(strings.TrimSpace(*req.Title))
	}
	if req.Description != nil {
		session.SetDescription(strings.TrimSpace(*req.Description))
	}
	c.JSON(http.StatusOK, m.sessionDTO(session))
}

type gestureRequest struct {
	Op     string  `json:"op" binding:"required"`
	DeltaX float64 `json:"delta_x"`
	DeltaY float64 `json:"delta_y"`
	Ratio  float64 `json:"ratio"`
}

func (m *Module) handleGesture(c *gin.Context) {
	session, ok := m.activeSession(c)
	if !ok {
		return
	}

	var req gestureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	switch strings.ToLower(strings.TrimSpace(req.Op)) {
	case "drag_begin":
		session.BeginDrag()
	case "drag_update":
		session.UpdateDrag(req.DeltaX, req.DeltaY)
	case "drag_end":
		session.EndDrag()
	case "pinch_begin":
		session.BeginPinch()
	case "pinch_update":
		session.UpdatePinch(req.Ratio)
	case "pinch_end":
		session.EndPinch()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown gesture op"})
		return
	}

	c.JSON(http.StatusOK, m.sessionDTO(session))
}

func (m *Module) handleSave(c *gin.Context) {
	session, ok := m.activeSession(c)
	if !ok {
		return
	}

	userID := m.guard.CurrentUserID(c)
	ctx := c.Request.Context()

	saved, err := session.Save(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save draft"})
		return
	}
	if !saved {
		c.JSON(http.StatusConflict, gin.H{"error": "no image selected, nothing to save"})
		return
	}

	m.releaseStaleImages(session, false)
	m.cache.invalidate(ctx, userID)
	c.JSON(http.StatusOK, m.sessionDTO(session))
}

// releaseStaleImages deletes the cached files the session no longer needs.
// Failures only cost disk space, so they are logged and swallowed.
func (m *Module) releaseStaleImages(session *EditorSession, teardown bool) {
	for _, ref := range session.TakeStaleRefs(teardown) {
		if err := m.images.Remove(ref); err != nil {
			log.Printf("drafts: release replaced image: %v", err)
		}
	}
}

type exitRequest struct {
	Choice string `json:"choice"`
}

func (m *Module) handleExit(c *gin.Context) {
	session, ok := m.activeSession(c)
	if !ok {
		return
	}

	userID := m.guard.CurrentUserID(c)
	ctx := c.Request.Context()

	var req exitRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	choice := strings.ToLower(strings.TrimSpace(req.Choice))
	if session.State() == StateEditing && choice == "" {
		// Unsaved changes: the client has to confirm before the exit proceeds.
		c.JSON(http.StatusConflict, gin.H{"confirm_required": true, "choices": []string{ExitSave, ExitDiscard, ExitCancel}})
		return
	}

	exited, err := session.RequestExit(ctx, ExitPrompterFunc(func() string { return choice }))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save before exit"})
		return
	}
	if !exited {
		c.JSON(http.StatusOK, gin.H{"status": "cancelled", "state": session.State()})
		return
	}

	// Tearing the session down abandons any cached file the persisted record
	// does not own: the working ref of a never-saved draft, or an uncommitted
	// replacement over a loaded one. The record's own file stays.
	m.releaseStaleImages(session, true)

	m.sessions.Remove(userID)
	m.cache.invalidate(ctx, userID)
	c.JSON(http.StatusOK, gin.H{"status": "exited"})
}
