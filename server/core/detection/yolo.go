package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/yeti47/annotator/server/core/ccc/logging"
	"github.com/yeti47/annotator/server/core/config"
	"gocv.io/x/gocv"
)

// inferenceNet is the part of gocv.Net the detector drives
type inferenceNet interface {
	SetInput(blob gocv.Mat, name string)
	Forward(outputName string) gocv.Mat
	Close() error
}

// YOLODetector runs a YOLOv8 ONNX export through OpenCV's DNN module
type YOLODetector struct {
	logger     logging.Logger
	net        inferenceNet
	classNames []string
	inputSize  int
	confidence float32
	nms        float32

	// guards SetInput and Forward, and the net's output blob until it is copied
	mu sync.Mutex
}

// LoadYOLODetector reads the model at settings.ModelPath. It fails if the
// file is missing or OpenCV cannot parse it.
func LoadYOLODetector(logger logging.Logger, settings config.DetectionSettings) (*YOLODetector, error) {
	if logger == nil {
		logger = logging.NopLogger
	}

	if settings.InputSize <= 0 {
		return nil, fmt.Errorf("invalid model input size %d", settings.InputSize)
	}

	info, err := os.Stat(settings.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("model file not available: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("model path %s is a directory", settings.ModelPath)
	}

	var classNames []string
	if settings.ClassNamesPath != "" {
		classNames, err = LoadClassNames(settings.ClassNamesPath)
		if err != nil {
			return nil, err
		}
	}

	net := gocv.ReadNetFromONNX(settings.ModelPath)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("failed to read model %s", settings.ModelPath)
	}

	logger.Info("detection model loaded", "path", settings.ModelPath, "classes", len(classNames), "input_size", settings.InputSize)

	return &YOLODetector{
		logger:     logger,
		net:        &net,
		classNames: classNames,
		inputSize:  settings.InputSize,
		confidence: settings.ConfidenceThreshold,
		nms:        settings.NMSThreshold,
	}, nil
}

// Detect runs one forward pass and returns a single result set
func (d *YOLODetector) Detect(frame gocv.Mat) ([]Result, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("cannot run detection on an empty frame")
	}

	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(d.inputSize, d.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	output := d.forward(blob)
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read model output: %w", err)
	}

	scale := boxScale{
		x: float32(frame.Cols()) / float32(d.inputSize),
		y: float32(frame.Rows()) / float32(d.inputSize),
	}
	candidates, err := decodeYOLOv8(data, output.Size(), scale, d.confidence)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []Result{{}}, nil
	}

	keep := gocv.NMSBoxes(classOffsetBoxes(candidates), candidateScores(candidates), d.confidence, d.nms)

	result := Result{Detections: make([]Detection, 0, len(keep))}
	for _, idx := range keep {
		c := candidates[idx]
		result.Detections = append(result.Detections, Detection{
			ClassID:    c.classID,
			Label:      labelFor(d.classNames, c.classID),
			Confidence: c.score,
			Box:        c.box.Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows())),
		})
	}

	return []Result{result}, nil
}

// forward runs the net and returns a private copy of its output. The Mat
// returned by Forward shares memory with the net, so the next call on any
// goroutine would overwrite it.
func (d *YOLODetector) forward(blob gocv.Mat) gocv.Mat {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.net.SetInput(blob, "")
	shared := d.net.Forward("")
	defer shared.Close()
	return shared.Clone()
}

func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

type boxScale struct {
	x, y float32
}

type candidate struct {
	box     image.Rectangle
	score   float32
	classID int
}

// decodeYOLOv8 reads a [1, 4+classes, anchors] output tensor. Each anchor
// column holds cx, cy, w, h in model input pixels followed by per-class
// scores. Anchors whose best score is below minScore are dropped.
func decodeYOLOv8(data []float32, dims []int, scale boxScale, minScore float32) ([]candidate, error) {
	if len(dims) != 3 || dims[0] != 1 {
		return nil, fmt.Errorf("unexpected model output shape %v", dims)
	}
	rows, anchors := dims[1], dims[2]
	if rows <= 4 {
		return nil, fmt.Errorf("model output has no class scores: shape %v", dims)
	}
	if len(data) < rows*anchors {
		return nil, fmt.Errorf("model output has %d values, shape %v needs %d", len(data), dims, rows*anchors)
	}

	at := func(row, anchor int) float32 { return data[row*anchors+anchor] }

	var candidates []candidate
	for a := 0; a < anchors; a++ {
		bestClass, bestScore := -1, float32(0)
		for c := 4; c < rows; c++ {
			if s := at(c, a); s > bestScore {
				bestClass, bestScore = c-4, s
			}
		}
		if bestClass < 0 || bestScore < minScore {
			continue
		}

		cx, cy, w, h := at(0, a), at(1, a), at(2, a), at(3, a)
		left := int((cx - w/2) * scale.x)
		top := int((cy - h/2) * scale.y)
		width := int(w * scale.x)
		height := int(h * scale.y)

		candidates = append(candidates, candidate{
			box:     image.Rect(left, top, left+width, top+height),
			score:   bestScore,
			classID: bestClass,
		})
	}
	return candidates, nil
}

// classOffset separates classes so one NMS pass never merges boxes of different classes
const classOffset = 8192

func classOffsetBoxes(candidates []candidate) []image.Rectangle {
	boxes := make([]image.Rectangle, len(candidates))
	for i, c := range candidates {
		shift := image.Pt(c.classID*classOffset, c.classID*classOffset)
		boxes[i] = c.box.Add(shift)
	}
	return boxes
}

func candidateScores(candidates []candidate) []float32 {
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		scores[i] = c.score
	}
	return scores
}
