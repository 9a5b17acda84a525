package videos

import (
	"io"
	"time"
)

// UploadRequest is an incoming upload as received by the HTTP layer
type UploadRequest struct {
	Filename string
	Body     io.Reader
}

// UploadedVideo is the scratch copy of an upload. It only exists while its request is processed.
type UploadedVideo struct {
	OriginalFilename string
	StoragePath      string
	Extension        string
}

// AnnotationJob describes one pass over a video. Width, Height and FrameRate
// are filled in by the pipeline from the source and copied to the output.
type AnnotationJob struct {
	ID              string
	SourcePath      string
	DestinationPath string
	// ThumbnailPath receives a JPEG of the first annotated frame; empty skips it
	ThumbnailPath   string
	Codec           CodecTag
	Width           int
	Height          int
	FrameRate       float64
}

// PipelineResult is what a finished pipeline run reports back
type PipelineResult struct {
	FrameCount    int
	Width         int
	Height        int
	FrameRate     float64
	ThumbnailPath string
}

// ProcessedVideo is a finished, annotated output
type ProcessedVideo struct {
	ID               string
	OriginalFilename string
	StoredName       string
	Path             string
	MimeType         string
	Width            int
	Height           int
	FrameRate        float64
	FrameCount       int
	Codec            string
	SizeBytes        int64
	Checksum         string
	ThumbnailName    string
	CreatedAt        time.Time
}

// DownloadName is the file name offered to clients, derived from the name they uploaded
func (v *ProcessedVideo) DownloadName() string {
	return "processed_" + v.OriginalFilename
}
