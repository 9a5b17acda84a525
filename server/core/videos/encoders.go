package videos

import (
	"fmt"
	"maps"
	"os/exec"
	"regexp"
	"strings"

	"github.com/yeti47/annotator/server/core/ccc/logging"
)

// H264Encoders are the ffmpeg H.264 encoders in order of preference
var H264Encoders = []string{"libx264", "libopenh264", "h264_vaapi", "h264_qsv", "h264_v4l2m2m"}

// EncoderFallbackMap defines fallback chains for ffmpeg encoders
var EncoderFallbackMap = map[string][]string{
	"libx264":      {"libx264", "libopenh264", "h264_vaapi", "h264_qsv", "h264_v4l2m2m"},
	"libopenh264":  {"libopenh264", "libx264", "h264_vaapi", "h264_qsv", "h264_v4l2m2m"},
	"h264_vaapi":   {"h264_vaapi", "libx264", "libopenh264", "h264_qsv", "h264_v4l2m2m"},
	"h264_qsv":     {"h264_qsv", "libx264", "libopenh264", "h264_vaapi", "h264_v4l2m2m"},
	"h264_v4l2m2m": {"h264_v4l2m2m", "libx264", "libopenh264", "h264_vaapi", "h264_qsv"},
}

// EncoderProvider answers which ffmpeg encoders can be used on this host
type EncoderProvider interface {
	IsEncoderAvailable(name string) bool
	SelectEncoder(requested string) (string, error)
	AvailableEncoders() map[string]bool
}

// FFmpegEncoderProvider caches the output of `ffmpeg -encoders`
type FFmpegEncoderProvider struct {
	logger    logging.Logger
	available map[string]bool
}

// NewFFmpegEncoderProvider queries ffmpeg once. If ffmpeg cannot be run the
// provider reports no encoders at all.
func NewFFmpegEncoderProvider(logger logging.Logger) *FFmpegEncoderProvider {
	if logger == nil {
		logger = logging.NopLogger
	}

	provider := &FFmpegEncoderProvider{
		logger:    logger,
		available: make(map[string]bool),
	}

	output, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").Output()
	if err != nil {
		logger.Warn("failed to query ffmpeg encoders", "error", err)
		return provider
	}

	provider.available = parseEncoderList(string(output))
	logger.Info("loaded ffmpeg encoders", "count", len(provider.available))
	return provider
}

// NewStaticEncoderProvider returns a provider that reports exactly the given encoders
func NewStaticEncoderProvider(names ...string) *FFmpegEncoderProvider {
	available := make(map[string]bool, len(names))
	for _, name := range names {
		available[name] = true
	}
	return &FFmpegEncoderProvider{logger: logging.NopLogger, available: available}
}

// encoderLine matches lines like " V....D libopenh264          OpenH264 H.264 / AVC"
var encoderLine = regexp.MustCompile(`^ ([VAS][.A-Z]{5})\s+([a-zA-Z0-9_-]+)\s+`)

func parseEncoderList(output string) map[string]bool {
	available := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		// legend lines look like " V..... = Video"
		if strings.Contains(line, " = ") {
			continue
		}
		matches := encoderLine.FindStringSubmatch(line)
		if len(matches) < 3 {
			continue
		}
		if strings.HasPrefix(matches[1], "V") || strings.HasPrefix(matches[1], "A") {
			available[matches[2]] = true
		}
	}
	return available
}

func (p *FFmpegEncoderProvider) IsEncoderAvailable(name string) bool {
	return p.available[name]
}

// AvailableEncoders returns a copy of the cached encoder set
func (p *FFmpegEncoderProvider) AvailableEncoders() map[string]bool {
	result := make(map[string]bool, len(p.available))
	maps.Copy(result, p.available)
	return result
}

// SelectEncoder returns requested if available, otherwise the first available encoder of its fallback chain
func (p *FFmpegEncoderProvider) SelectEncoder(requested string) (string, error) {
	if p.IsEncoderAvailable(requested) {
		return requested, nil
	}

	chain, exists := EncoderFallbackMap[requested]
	if !exists {
		return "", fmt.Errorf("encoder '%s' is not available and no fallback is defined", requested)
	}

	for _, encoder := range chain {
		if p.IsEncoderAvailable(encoder) {
			p.logger.Info("using fallback encoder", "requested", requested, "encoder", encoder)
			return encoder, nil
		}
	}

	return "", fmt.Errorf("no suitable encoder available from fallback chain: %v", chain)
}

// EncoderReport reports availability of each H.264 encoder for diagnostics
func EncoderReport(provider EncoderProvider) map[string]bool {
	report := make(map[string]bool, len(H264Encoders))
	for _, name := range H264Encoders {
		report[name] = provider.IsEncoderAvailable(name)
	}
	return report
}
