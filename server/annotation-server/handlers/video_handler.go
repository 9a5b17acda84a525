package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/annotator/server/core/ccc/logging"
	"github.com/yeti47/annotator/server/core/videos"
)

// uploadResponseMimeType is sent for every annotated upload regardless of container
const uploadResponseMimeType = "video/mp4"

// VideoHandler handles video upload and annotation
type VideoHandler struct {
	logger   logging.Logger
	service  videos.AnnotationService
	delivery string
}

// NewVideoHandler creates a new video handler
func NewVideoHandler(logger logging.Logger, service videos.AnnotationService, delivery string) *VideoHandler {
	if logger == nil {
		logger = logging.NopLogger
	}

	return &VideoHandler{
		logger:   logger,
		service:  service,
		delivery: delivery,
	}
}

// UploadVideo handles POST /upload_video/
func (h *VideoHandler) UploadVideo(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.logger.Warn("Failed to get uploaded file", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"detail": "A video file is required in the 'file' field"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	h.logger.Info("Received video upload", "filename", fileHeader.Filename, "size", fileHeader.Size, "request_id", c.GetString("requestID"))

	video, err := h.service.AnnotateUpload(c.Request.Context(), videos.UploadRequest{
		Filename: fileHeader.Filename,
		Body:     file,
	})
	if err != nil {
		h.logger.Warn("Video upload failed", "error", err, "kind", videos.KindOf(err).String(), "filename", fileHeader.Filename)
		abortWithError(c, err)
		return
	}

	c.Header("X-Output-Filename", video.StoredName)
	c.Header("X-Original-Filename", video.OriginalFilename)
	c.Header("X-Frame-Count", strconv.Itoa(video.FrameCount))
	c.Header("ETag", `"`+video.Checksum+`"`)

	serveVideo(c, video.Path, video.DownloadName(), uploadResponseMimeType, h.delivery)
}
