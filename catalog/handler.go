package catalog

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"holocard_back/authorization"

	"github.com/gin-gonic/gin"
)

// Module serves the static Frame and ShineEffect catalogs and the optional
// locally stored frame texture packs.
type Module struct {
	catalog *Catalog
	storage *assetStorage
}

// RegisterRoutes loads the catalog once and mounts the read endpoints plus
// the admin pack-management endpoints under /catalog.
func RegisterRoutes(router *gin.Engine, guard *authorization.Guard) (*Module, error) {
	storage, err := newAssetStorageFromEnv()
	if err != nil {
		return nil, err
	}

	module := &Module{catalog: Load(), storage: storage}

	group := router.Group("/catalog")
	group.GET("/frames", module.handleListFrames)
	group.GET("/effects", module.handleListEffects)
	group.GET("/frames/:name/assets/*filepath", module.handleServePackFile)

	admin := group.Group("")
	if guard != nil {
		admin.Use(guard.RequireAuthenticated(), guard.RequireRole("admin"))
	} else {
		admin.Use(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization middleware missing"})
		})
	}
	admin.POST("/frames/:name/assets", module.handleUploadPack)
	admin.DELETE("/frames/:name/assets", module.handleDeletePack)

	return module, nil
}

// Catalog exposes the loaded catalog to the other modules.
func (m *Module) Catalog() *Catalog {
	return m.catalog
}

func (m *Module) handleListFrames(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"frames": m.catalog.Frames()})
}

func (m *Module) handleListEffects(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"effects": m.catalog.ShineEffects()})
}

func (m *Module) handleUploadPack(c *gin.Context) {
	frame, ok := m.catalog.FrameByName(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "frame not found"})
		return
	}

	archive, err := c.FormFile("archive")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "archive file is required"})
		return
	}

	files, err := m.storage.SavePack(frame.Name, archive)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"frame": frame.Name, "files": files})
}

func (m *Module) handleDeletePack(c *gin.Context) {
	frame, ok := m.catalog.FrameByName(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "frame not found"})
		return
	}

	if err := m.storage.Remove(frame.Name); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove pack"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (m *Module) handleServePackFile(c *gin.Context) {
	frame, ok := m.catalog.FrameByName(c.Param("name"))
	if !ok || m.storage == nil {
		c.Status(http.StatusNotFound)
		return
	}

	rel, err := sanitizePackEntry(c.Param("filepath"))
	if err != nil || rel == "" {
		c.Status(http.StatusNotFound)
		return
	}

	base := filepath.Join(m.storage.BaseDir(), frame.Name)
	target := filepath.Join(base, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, base+string(os.PathSeparator)) && target != base {
		c.Status(http.StatusForbidden)
		return
	}

	if _, err := os.Stat(target); err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.File(target)
}
