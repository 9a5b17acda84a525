package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/annotator/server/core/videos"
)

// ReadinessReporter reports whether the detection model is available
type ReadinessReporter interface {
	Ready() bool
}

// DiagnosticsHandler answers health and codec checks
type DiagnosticsHandler struct {
	readiness ReadinessReporter
	encoders  videos.EncoderProvider
}

func NewDiagnosticsHandler(readiness ReadinessReporter, encoders videos.EncoderProvider) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		readiness: readiness,
		encoders:  encoders,
	}
}

// Health handles GET /health. It answers even when the model failed to load.
func (h *DiagnosticsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"model_loaded": h.readiness.Ready(),
	})
}

// CheckCodecs handles GET /check_codecs
func (h *DiagnosticsHandler) CheckCodecs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"available_codecs": videos.ProbeCodecs(videos.ProbeCandidates),
		"ffmpeg_encoders":  videos.EncoderReport(h.encoders),
	})
}
