package annotation

import (
	"fmt"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

const (
	maxThumbnailWidth  = 480
	maxThumbnailHeight = 360
	thumbnailQuality   = 85
)

// writeThumbnail scales frame to fit 480x360, keeping its aspect ratio, and saves it as JPEG
func writeThumbnail(frame gocv.Mat, path string) error {
	img, err := frame.ToImage()
	if err != nil {
		return fmt.Errorf("failed to convert frame to image: %w", err)
	}

	thumb := imaging.Fit(img, maxThumbnailWidth, maxThumbnailHeight, imaging.Lanczos)
	if err := imaging.Save(thumb, path, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return fmt.Errorf("failed to save thumbnail: %w", err)
	}
	return nil
}
