package videos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yeti47/annotator/server/core/ccc/logging"
	"github.com/yeti47/annotator/server/core/metrics"
)

// FramePipeline runs detection over every frame of job.SourcePath and writes
// the annotated frames to job.DestinationPath
type FramePipeline interface {
	Run(ctx context.Context, job *AnnotationJob) (*PipelineResult, error)
}

type AnnotationService interface {
	// Ready reports whether the detection model was loaded
	Ready() bool
	// AnnotateUpload stores the upload, annotates it and records the output.
	// Every returned error is an *AnnotationError.
	AnnotateUpload(ctx context.Context, req UploadRequest) (*ProcessedVideo, error)
}

// ServiceOptions are the per-deployment switches of the annotation service
type ServiceOptions struct {
	// Codec is the tag handed to the encoder for every output
	Codec CodecTag
	// SniffUploads rejects uploads that do not start with a known container signature
	SniffUploads bool
}

type annotationService struct {
	logger     logging.Logger
	workspace  *Workspace
	pipeline   FramePipeline
	catalog    Catalog
	transcoder OutputTranscoder
	recorder   metrics.Recorder
	options    ServiceOptions
	now        func() time.Time
}

// NewAnnotationService wires the upload flow. A nil pipeline puts the service
// in degraded mode where every upload fails as ServiceUnavailable. A nil
// transcoder disables the web compatible re-encode.
func NewAnnotationService(logger logging.Logger, workspace *Workspace, pipeline FramePipeline, catalog Catalog, transcoder OutputTranscoder, recorder metrics.Recorder, options ServiceOptions) *annotationService {
	if logger == nil {
		logger = logging.NopLogger
	}
	if recorder == nil {
		recorder = metrics.NopRecorder
	}
	if options.Codec == "" {
		options.Codec = CodecFor(CurrentHostClass())
	}

	return &annotationService{
		logger:     logger,
		workspace:  workspace,
		pipeline:   pipeline,
		catalog:    catalog,
		transcoder: transcoder,
		recorder:   recorder,
		options:    options,
		now:        time.Now,
	}
}

func (s *annotationService) Ready() bool {
	return s.pipeline != nil
}

func (s *annotationService) AnnotateUpload(ctx context.Context, req UploadRequest) (video *ProcessedVideo, err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = KindOf(err).String()
		}
		s.recorder.UploadFinished(outcome)
	}()

	if !s.Ready() {
		return nil, NewServiceUnavailableError("YOLO model not initialized")
	}

	ext, err := ValidateExtension(req.Filename)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	upload, err := s.workspace.SaveUpload(id, req.Filename, ext, req.Body)
	if err != nil {
		s.logger.Error("failed to store upload", "error", err, "filename", req.Filename)
		return nil, NewProcessingError("Failed to store upload", err)
	}
	defer func() {
		if rmErr := s.workspace.Remove(upload.StoragePath); rmErr != nil {
			s.logger.Warn("failed to remove scratch file", "error", rmErr, "path", upload.StoragePath)
		}
	}()

	if s.options.SniffUploads {
		format, ok, sniffErr := SniffFile(upload.StoragePath)
		if sniffErr != nil {
			return nil, NewProcessingError("Failed to inspect upload", sniffErr)
		}
		if !ok {
			s.logger.Warn("upload is not a recognised video container", "filename", req.Filename, "id", id)
			return nil, NewUnreadableSourceError("Uploaded file is not a readable video", nil)
		}
		s.logger.Debug("upload container detected", "format", format, "id", id)
	}

	storedName := OutputName(id, ext)
	thumbnailName := ThumbnailName(id)
	job := &AnnotationJob{
		ID:              id,
		SourcePath:      upload.StoragePath,
		DestinationPath: s.workspace.OutputPath(storedName),
		ThumbnailPath:   s.workspace.OutputPath(thumbnailName),
		Codec:           s.options.Codec,
	}

	// outputs are only kept once everything below has succeeded
	keep := false
	defer func() {
		if keep {
			return
		}
		s.workspace.Remove(job.DestinationPath)
		s.workspace.Remove(job.ThumbnailPath)
	}()

	s.logger.Info("annotating upload", "id", id, "filename", req.Filename, "codec", string(job.Codec))
	started := s.now()

	// a client disconnect must not abort a job halfway through writing the output
	jobCtx := context.WithoutCancel(ctx)

	result, err := s.pipeline.Run(jobCtx, job)
	if err != nil {
		s.logger.Error("annotation failed", "error", err, "id", id)
		var annErr *AnnotationError
		if errors.As(err, &annErr) {
			return nil, err
		}
		return nil, NewProcessingError("Error processing video", err)
	}

	s.recorder.PipelineDuration(s.now().Sub(started))
	s.recorder.FramesAnnotated(result.FrameCount)

	codec := string(job.Codec)
	if s.transcoder != nil {
		transcoded, transErr := s.transcoder.MakeWebCompatible(job.DestinationPath)
		if transErr != nil {
			s.logger.Warn("web compatible transcode failed, keeping original encoding", "error", transErr, "id", id)
		} else if transcoded != "" {
			codec = transcoded
		}
	}

	checksum, size, err := ChecksumFile(job.DestinationPath)
	if err != nil {
		return nil, NewProcessingError("Error processing video", err)
	}

	if result.ThumbnailPath == "" {
		thumbnailName = ""
	}

	video = &ProcessedVideo{
		ID:               id,
		OriginalFilename: req.Filename,
		StoredName:       storedName,
		Path:             job.DestinationPath,
		MimeType:         MimeTypeForExtension(ext),
		Width:            result.Width,
		Height:           result.Height,
		FrameRate:        result.FrameRate,
		FrameCount:       result.FrameCount,
		Codec:            codec,
		SizeBytes:        size,
		Checksum:         checksum,
		ThumbnailName:    thumbnailName,
		CreatedAt:        s.now().UTC(),
	}

	if s.catalog != nil {
		if err := s.catalog.Add(jobCtx, video); err != nil {
			s.logger.Error("failed to record output", "error", err, "id", id)
			return nil, NewProcessingError("Error processing video", err)
		}
	}

	keep = true
	s.logger.Info("annotation finished", "id", id, "stored_name", storedName, "frames", result.FrameCount, "size", size)
	return video, nil
}
