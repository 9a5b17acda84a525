package detection

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"

	"gocv.io/x/gocv"
)

// Detector finds objects in a single frame
type Detector interface {
	// Detect returns zero or more result sets for frame. The frame is not modified.
	Detect(frame gocv.Mat) ([]Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Detection is one labelled box
type Detection struct {
	ClassID    int
	Label      string
	Confidence float32
	Box        image.Rectangle
}

// Result is the set of detections found in one frame
type Result struct {
	Detections []Detection
}

// palette is indexed by class id
var palette = []color.RGBA{
	{R: 255, G: 56, B: 56, A: 255},
	{R: 255, G: 157, B: 151, A: 255},
	{R: 255, G: 112, B: 31, A: 255},
	{R: 255, G: 178, B: 29, A: 255},
	{R: 207, G: 210, B: 49, A: 255},
	{R: 72, G: 249, B: 10, A: 255},
	{R: 146, G: 204, B: 23, A: 255},
	{R: 61, G: 219, B: 134, A: 255},
	{R: 26, G: 147, B: 52, A: 255},
	{R: 0, G: 212, B: 187, A: 255},
	{R: 44, G: 153, B: 168, A: 255},
	{R: 0, G: 194, B: 255, A: 255},
	{R: 52, G: 69, B: 147, A: 255},
	{R: 100, G: 115, B: 255, A: 255},
	{R: 0, G: 24, B: 236, A: 255},
	{R: 132, G: 56, B: 255, A: 255},
	{R: 82, G: 0, B: 133, A: 255},
	{R: 203, G: 56, B: 255, A: 255},
	{R: 255, G: 149, B: 200, A: 255},
	{R: 255, G: 55, B: 199, A: 255},
}

var labelTextColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// ColorFor returns the box colour used for a class
func ColorFor(classID int) color.RGBA {
	if classID < 0 {
		classID = -classID
	}
	return palette[classID%len(palette)]
}

// Text formats the label drawn above a box
func (d Detection) Text() string {
	return fmt.Sprintf("%s %.2f", d.Label, d.Confidence)
}

// Plot returns a copy of frame with every detection drawn on it. The caller owns the returned Mat.
func (r Result) Plot(frame gocv.Mat) gocv.Mat {
	annotated := frame.Clone()

	thickness := lineThickness(frame.Cols(), frame.Rows())
	fontScale := float64(thickness) / 3
	for _, det := range r.Detections {
		boxColor := ColorFor(det.ClassID)
		gocv.Rectangle(&annotated, det.Box, boxColor, thickness)

		text := det.Text()
		size := gocv.GetTextSize(text, gocv.FontHersheySimplex, fontScale, thickness)

		// label sits above the box unless that would leave the frame
		top := det.Box.Min.Y - size.Y - 3
		if top < 0 {
			top = det.Box.Min.Y
		}
		background := image.Rect(det.Box.Min.X, top, det.Box.Min.X+size.X, top+size.Y+3)
		gocv.Rectangle(&annotated, background, boxColor, -1)
		gocv.PutText(&annotated, text, image.Pt(det.Box.Min.X, top+size.Y), gocv.FontHersheySimplex, fontScale, labelTextColor, thickness)
	}

	return annotated
}

// lineThickness scales box lines with the frame size, never below 1
func lineThickness(width, height int) int {
	t := (width + height) / 2 / 300
	if t < 1 {
		return 1
	}
	return t
}

// LoadClassNames reads one class name per line. Blank lines are skipped.
func LoadClassNames(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open class names file: %w", err)
	}
	defer file.Close()

	var names []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read class names: %w", err)
	}
	return names, nil
}

// labelFor returns the class name for id, or a generic name when unknown
func labelFor(names []string, id int) string {
	if id >= 0 && id < len(names) {
		return names[id]
	}
	return fmt.Sprintf("class %d", id)
}
