package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yeti47/annotator/server/core/ccc/logging"
)

// RequestIDHeader carries the id assigned to each request
const RequestIDHeader = "X-Request-ID"

// ReadinessChecker reports whether the detection model is loaded
type ReadinessChecker interface {
	Ready() bool
}

// ReadinessMiddleware rejects work that needs the detection model while it is unavailable
type ReadinessMiddleware struct {
	logger    logging.Logger
	readiness ReadinessChecker
}

// NewReadinessMiddleware creates a new readiness middleware
func NewReadinessMiddleware(logger logging.Logger, readiness ReadinessChecker) *ReadinessMiddleware {
	if logger == nil {
		logger = logging.NopLogger
	}

	return &ReadinessMiddleware{
		logger:    logger,
		readiness: readiness,
	}
}

// RequireModel aborts with 500 before the request body is read if the model is not loaded
func (m *ReadinessMiddleware) RequireModel() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.readiness.Ready() {
			m.logger.Warn("Rejecting request, model not loaded", "path", c.FullPath())
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "YOLO model not initialized"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequestID tags every request with an id, reusing one sent by the client
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set("requestID", id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}
