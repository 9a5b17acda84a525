package annotation

import (
	"context"

	"github.com/yeti47/annotator/server/core/ccc/logging"
	"github.com/yeti47/annotator/server/core/detection"
	"github.com/yeti47/annotator/server/core/videos"
	"gocv.io/x/gocv"
)

// Pipeline decodes a video, runs detection on every frame and encodes the annotated frames
type Pipeline struct {
	logger     logging.Logger
	detector   detection.Detector
	openSource SourceOpener
	openSink   SinkOpener
}

// NewPipeline creates a pipeline that reads and writes files through OpenCV
func NewPipeline(logger logging.Logger, detector detection.Detector) *Pipeline {
	return NewPipelineWithIO(logger, detector, OpenCaptureSource, OpenWriterSink)
}

// NewPipelineWithIO creates a pipeline with custom frame IO
func NewPipelineWithIO(logger logging.Logger, detector detection.Detector, openSource SourceOpener, openSink SinkOpener) *Pipeline {
	if logger == nil {
		logger = logging.NopLogger
	}

	return &Pipeline{
		logger:     logger,
		detector:   detector,
		openSource: openSource,
		openSink:   openSink,
	}
}

// Run annotates job.SourcePath into job.DestinationPath. The output has the
// source's width, height and frame rate and one frame per decoded frame.
// The caller removes the output if an error is returned.
func (p *Pipeline) Run(ctx context.Context, job *videos.AnnotationJob) (*videos.PipelineResult, error) {
	source, err := p.openSource(job.SourcePath)
	if err != nil {
		return nil, videos.NewUnreadableSourceError("Could not open video file", err)
	}
	defer source.Close()

	job.Width = source.Width()
	job.Height = source.Height()
	job.FrameRate = source.FrameRate()
	p.logger.Debug("source opened", "id", job.ID, "width", job.Width, "height", job.Height, "fps", job.FrameRate)

	sink, err := p.openSink(job.DestinationPath, job.Codec, job.FrameRate, job.Width, job.Height)
	if err != nil {
		return nil, videos.NewEncoderInitError("Could not create output video", err)
	}
	sinkClosed := false
	defer func() {
		if !sinkClosed {
			sink.Close()
		}
	}()

	result := &videos.PipelineResult{
		Width:     job.Width,
		Height:    job.Height,
		FrameRate: job.FrameRate,
	}

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if err := ctx.Err(); err != nil {
			return nil, videos.NewProcessingError("Annotation interrupted", err)
		}

		if ok := source.Read(&frame); !ok || frame.Empty() {
			break
		}

		if err := p.annotateFrame(frame, sink, job, result); err != nil {
			return nil, videos.NewProcessingError("Error processing video", err)
		}
		result.FrameCount++
	}

	sinkClosed = true
	if err := sink.Close(); err != nil {
		return nil, videos.NewProcessingError("Error finalizing video", err)
	}

	p.logger.Info("video annotated", "id", job.ID, "frames", result.FrameCount)
	return result, nil
}

// annotateFrame detects on frame, draws the first result set and writes it.
// Frames without results are written unchanged.
func (p *Pipeline) annotateFrame(frame gocv.Mat, sink FrameSink, job *videos.AnnotationJob, result *videos.PipelineResult) error {
	results, err := p.detector.Detect(frame)
	if err != nil {
		return err
	}

	annotated := frame
	if len(results) > 0 {
		annotated = results[0].Plot(frame)
		defer annotated.Close()
	}

	if result.FrameCount == 0 && job.ThumbnailPath != "" {
		if err := writeThumbnail(annotated, job.ThumbnailPath); err != nil {
			p.logger.Warn("failed to write thumbnail, continuing without", "error", err, "id", job.ID)
		} else {
			result.ThumbnailPath = job.ThumbnailPath
		}
	}

	return sink.Write(annotated)
}
