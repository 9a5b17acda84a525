package videos

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xfrr/goffmpeg/transcoder"
	"github.com/yeti47/annotator/server/core/ccc/logging"
)

// OutputTranscoder re-encodes a finished output in place so browsers can play it
type OutputTranscoder interface {
	// MakeWebCompatible replaces the file at path with a re-encoded copy and
	// returns the codec name of the new video stream. An empty codec name
	// with a nil error means the file was left untouched.
	MakeWebCompatible(path string) (string, error)
}

// webContainers maps output extensions to the ffmpeg muxer used for them.
// AVI is left alone because browsers do not play it regardless of codec.
var webContainers = map[string]string{
	".mp4": "mp4",
	".mov": "mov",
}

// FFmpegTranscoder implements OutputTranscoder using FFmpeg
type FFmpegTranscoder struct {
	logger   logging.Logger
	encoders EncoderProvider
	codec    string
	bitrate  string
}

// NewFFmpegTranscoder creates a transcoder that prefers codec and falls back along its chain
func NewFFmpegTranscoder(logger logging.Logger, encoders EncoderProvider, codec, bitrate string) *FFmpegTranscoder {
	if logger == nil {
		logger = logging.NopLogger
	}

	return &FFmpegTranscoder{
		logger:   logger,
		encoders: encoders,
		codec:    codec,
		bitrate:  bitrate,
	}
}

// webCompatiblePath is the temporary file the re-encode is written to
func webCompatiblePath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".web" + ext
}

func (t *FFmpegTranscoder) MakeWebCompatible(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := webContainers[ext]
	if !ok {
		t.logger.Debug("skipping web compatible transcode", "path", path, "extension", ext)
		return "", nil
	}

	encoder, err := t.encoders.SelectEncoder(t.codec)
	if err != nil {
		return "", err
	}

	tempFile := webCompatiblePath(path)
	defer os.Remove(tempFile)

	trans := new(transcoder.Transcoder)
	if err := trans.Initialize(path, tempFile); err != nil {
		return "", fmt.Errorf("failed to initialize transcoder: %w", err)
	}

	// no SetFrameRate: ffmpeg keeps the source rate, which may be fractional
	trans.MediaFile().SetVideoCodec(encoder)
	trans.MediaFile().SetVideoBitRate(t.bitrate)
	trans.MediaFile().SetVideoFilter("format=yuv420p")
	trans.MediaFile().SetSkipAudio(true)
	trans.MediaFile().SetOutputFormat(format)

	done := trans.Run(false)
	if err := <-done; err != nil {
		return "", fmt.Errorf("ffmpeg transcoding failed: %w", err)
	}

	codecName, err := probeVideoCodec(tempFile)
	if err != nil {
		return "", err
	}

	if err := os.Rename(tempFile, path); err != nil {
		return "", fmt.Errorf("failed to replace output with transcoded file: %w", err)
	}

	t.logger.Info("output transcoded", "path", path, "encoder", encoder, "codec", codecName)
	return codecName, nil
}

// probeVideoCodec returns the codec name of the first video stream in path
func probeVideoCodec(path string) (string, error) {
	trans := new(transcoder.Transcoder)
	if err := trans.Initialize(path, ""); err != nil {
		return "", fmt.Errorf("failed to initialize transcoder for probe: %w", err)
	}

	metadata := trans.MediaFile().Metadata()
	for _, stream := range metadata.Streams {
		if stream.CodecType == "video" {
			return stream.CodecName, nil
		}
	}
	return "", fmt.Errorf("transcoded file %s has no video stream", filepath.Base(path))
}
