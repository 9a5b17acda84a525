package handlers

import (
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/annotator/server/core/config"
	"github.com/yeti47/annotator/server/core/videos"
)

// statusForError maps an annotation error kind to its HTTP status code
func statusForError(err error) int {
	switch videos.KindOf(err) {
	case videos.KindInvalidInput, videos.KindUnreadableSource:
		return http.StatusBadRequest
	case videos.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// detailFor returns the client facing message for err. Processing errors
// carry the underlying cause so callers can see why a video failed.
func detailFor(err error) string {
	var annErr *videos.AnnotationError
	if !errors.As(err, &annErr) {
		return err.Error()
	}
	if annErr.Kind == videos.KindProcessing {
		return annErr.Error()
	}
	return annErr.Message
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusForError(err), gin.H{"detail": detailFor(err)})
}

// serveVideo writes the file at path using the configured delivery policy.
// Both policies support range requests. downloadName comes from the client,
// so the disposition is always built with mime escaping.
func serveVideo(c *gin.Context, path, downloadName, mimeType, delivery string) {
	c.Header("Content-Type", mimeType)

	disposition := "attachment"
	if delivery == config.DeliveryInline {
		disposition = "inline"
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Header("Accept-Ranges", "bytes")
	}
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": downloadName}))

	c.File(path)
}
