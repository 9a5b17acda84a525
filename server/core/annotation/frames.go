package annotation

import (
	"fmt"

	"github.com/yeti47/annotator/server/core/videos"
	"gocv.io/x/gocv"
)

// FrameSource yields decoded frames in order
type FrameSource interface {
	// Read decodes the next frame into frame. It returns false at end of stream.
	Read(frame *gocv.Mat) bool
	Width() int
	Height() int
	FrameRate() float64
	Close() error
}

// FrameSink appends encoded frames to an output
type FrameSink interface {
	Write(frame gocv.Mat) error
	Close() error
}

// SourceOpener opens a FrameSource for a file
type SourceOpener func(path string) (FrameSource, error)

// SinkOpener opens a FrameSink for a file with the given codec and geometry
type SinkOpener func(path string, codec videos.CodecTag, fps float64, width, height int) (FrameSink, error)

// captureSource reads a video file through OpenCV
type captureSource struct {
	capture *gocv.VideoCapture
}

// OpenCaptureSource opens path for decoding
func OpenCaptureSource(path string) (FrameSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, err
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("video capture for %s did not open", path)
	}
	return &captureSource{capture: capture}, nil
}

func (s *captureSource) Read(frame *gocv.Mat) bool {
	return s.capture.Read(frame)
}

func (s *captureSource) Width() int {
	return int(s.capture.Get(gocv.VideoCaptureFrameWidth))
}

func (s *captureSource) Height() int {
	return int(s.capture.Get(gocv.VideoCaptureFrameHeight))
}

func (s *captureSource) FrameRate() float64 {
	return s.capture.Get(gocv.VideoCaptureFPS)
}

func (s *captureSource) Close() error {
	return s.capture.Close()
}

// writerSink encodes frames through OpenCV
type writerSink struct {
	writer *gocv.VideoWriter
}

// OpenWriterSink opens path for encoding. The tag must be a valid four character code.
func OpenWriterSink(path string, codec videos.CodecTag, fps float64, width, height int) (FrameSink, error) {
	if _, err := videos.FourCC(codec); err != nil {
		return nil, err
	}

	writer, err := gocv.VideoWriterFile(path, string(codec), fps, width, height, true)
	if err != nil {
		return nil, err
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("video writer for %s did not open with codec %s", path, codec)
	}
	return &writerSink{writer: writer}, nil
}

func (s *writerSink) Write(frame gocv.Mat) error {
	return s.writer.Write(frame)
}

func (s *writerSink) Close() error {
	return s.writer.Close()
}
