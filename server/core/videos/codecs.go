package videos

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// CodecTag is a four character code selecting the encoder used for output videos
type CodecTag string

// HostClass groups operating systems that share a usable OpenCV encoder
type HostClass int

const (
	HostOther HostClass = iota
	HostDarwin
	HostWindows
)

func (h HostClass) String() string {
	switch h {
	case HostDarwin:
		return "darwin"
	case HostWindows:
		return "windows"
	default:
		return "other"
	}
}

// HostClassFor maps a GOOS value to its host class
func HostClassFor(goos string) HostClass {
	switch goos {
	case "darwin", "ios":
		return HostDarwin
	case "windows":
		return HostWindows
	default:
		return HostOther
	}
}

// CurrentHostClass is the host class of the running process
func CurrentHostClass() HostClass {
	return HostClassFor(runtime.GOOS)
}

// CodecTable is the static host class to codec tag lookup. There is no
// negotiation: if the tag is unusable on a given build, opening the sink fails.
var CodecTable = map[HostClass]CodecTag{
	HostDarwin:  "avc1",
	HostWindows: "H264",
	HostOther:   "mp4v",
}

// CodecFor returns the codec tag for the host class
func CodecFor(host HostClass) CodecTag {
	if tag, ok := CodecTable[host]; ok {
		return tag
	}
	return CodecTable[HostOther]
}

// ProbeCandidates are the tags reported by the codec probe
var ProbeCandidates = []CodecTag{"mp4v", "avc1", "H264", "X264", "XVID", "MJPG"}

// FourCC packs the tag the way OpenCV does. It fails unless the tag is exactly
// four printable ASCII characters.
func FourCC(tag CodecTag) (uint32, error) {
	if len(tag) != 4 {
		return 0, fmt.Errorf("codec tag %q must be 4 characters", string(tag))
	}
	var code uint32
	for i := 0; i < 4; i++ {
		c := tag[i]
		if c < 0x20 || c > 0x7e {
			return 0, fmt.Errorf("codec tag %q contains a non-printable character", string(tag))
		}
		code |= uint32(c) << (8 * i)
	}
	return code, nil
}

// ProbeCodecs reports, for each candidate, whether its tag could be constructed.
// This does not prove that the codec library can encode with it.
func ProbeCodecs(candidates []CodecTag) map[string]bool {
	result := make(map[string]bool, len(candidates))
	for _, tag := range candidates {
		_, err := FourCC(tag)
		result[string(tag)] = err == nil
	}
	return result
}

// AllowedExtensions are the upload extensions accepted by the service
var AllowedExtensions = []string{".mp4", ".avi", ".mov"}

// ValidateExtension returns the lower cased extension of filename if it is allowed
func ValidateExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return ext, nil
		}
	}
	return "", NewInvalidInputError("Unsupported file format")
}

// MimeTypeForExtension returns the MIME type for a video file extension
func MimeTypeForExtension(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	switch ext {
	case "mp4":
		return "video/mp4"
	case "avi":
		return "video/x-msvideo"
	case "mov":
		return "video/quicktime"
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "video/mp4"
	}
}
