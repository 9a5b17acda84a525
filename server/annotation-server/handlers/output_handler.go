package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/annotator/server/core/ccc/logging"
	"github.com/yeti47/annotator/server/core/videos"
)

// OutputHandler serves finished outputs and their thumbnails
type OutputHandler struct {
	logger    logging.Logger
	workspace *videos.Workspace
	catalog   videos.Catalog
	delivery  string
}

// NewOutputHandler creates a new output handler
func NewOutputHandler(logger logging.Logger, workspace *videos.Workspace, catalog videos.Catalog, delivery string) *OutputHandler {
	if logger == nil {
		logger = logging.NopLogger
	}

	return &OutputHandler{
		logger:    logger,
		workspace: workspace,
		catalog:   catalog,
		delivery:  delivery,
	}
}

// GetOutput handles GET /outputs/:filename
func (h *OutputHandler) GetOutput(c *gin.Context) {
	name := c.Param("filename")

	path, err := h.workspace.ResolveOutput(name)
	if err != nil {
		h.logger.Debug("Output not found", "filename", name)
		c.JSON(http.StatusNotFound, gin.H{"detail": "Video file not found"})
		return
	}

	downloadName := name
	video, err := h.catalog.GetByStoredName(c.Request.Context(), name)
	if err != nil {
		h.logger.Warn("Failed to look up output in catalog", "error", err, "filename", name)
	}
	if video != nil {
		downloadName = video.DownloadName()
		c.Header("ETag", `"`+video.Checksum+`"`)
	}

	serveVideo(c, path, downloadName, videos.MimeTypeForExtension(filepath.Ext(name)), h.delivery)
}

// GetThumbnail handles GET /outputs/:filename/thumbnail
func (h *OutputHandler) GetThumbnail(c *gin.Context) {
	name := c.Param("filename")

	video, err := h.catalog.GetByStoredName(c.Request.Context(), name)
	if err != nil {
		h.logger.Error("Failed to look up output in catalog", "error", err, "filename", name)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to look up video"})
		return
	}
	if video == nil || video.ThumbnailName == "" {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Thumbnail not found"})
		return
	}

	path, err := h.workspace.ResolveOutput(video.ThumbnailName)
	if err != nil {
		h.logger.Warn("Thumbnail recorded but missing on disk", "thumbnail", video.ThumbnailName)
		c.JSON(http.StatusNotFound, gin.H{"detail": "Thumbnail not found"})
		return
	}

	c.Header("Content-Type", "image/jpeg")
	c.File(path)
}
