package services

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"resqall/interfaces"
	"resqall/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

// CameraService captures the photo evidence. The camera surface itself is a
// capability handed in per call by the UI layer; the service owns it only
// for the duration of one capture. Captured photos are recompressed to
// bound the alert payload size.
type CameraService struct {
	library     interfaces.MediaLibrary
	outputDir   string
	jpegQuality int
	maxLongEdge int
}

func NewCameraService(library interfaces.MediaLibrary, outputDir string, jpegQuality, maxLongEdge int) *CameraService {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = 70
	}
	if maxLongEdge <= 0 {
		maxLongEdge = 1600
	}
	if outputDir == "" {
		outputDir = os.TempDir()
	}
	os.MkdirAll(outputDir, 0755)

	return &CameraService{
		library:     library,
		outputDir:   outputDir,
		jpegQuality: jpegQuality,
		maxLongEdge: maxLongEdge,
	}
}

// CapturePhoto takes a picture through the given handle. It never returns
// an error: a nil result means the capture failed and the photo field of
// the bundle stays absent.
func (cs *CameraService) CapturePhoto(ctx context.Context, camera interfaces.CameraHandle) *models.PhotoEvidence {
	if camera == nil {
		logrus.Warn("No camera handle available, skipping photo capture")
		return nil
	}

	photo, err := camera.TakePicture(ctx)
	if err != nil || photo == nil {
		logrus.Errorf("Photo capture failed: %v", err)
		return nil
	}

	compressed, err := cs.recompress(photo.LocalPath)
	if err != nil {
		// Keep the original capture rather than losing the evidence.
		logrus.Warnf("Photo recompression failed, keeping original: %v", err)
		compressed = photo
	}

	cs.saveToLibrary(ctx, compressed.LocalPath)

	return compressed
}

// recompress decodes the captured image, downscales it so its long edge
// stays within the configured bound, and re-encodes it as JPEG at the
// configured quality.
func (cs *CameraService) recompress(srcPath string) (*models.PhotoEvidence, error) {
	srcFile, err := os.Open(srcPath)
	if err != nil {
		return nil, err
	}
	defer srcFile.Close()

	img, _, err := image.Decode(srcFile)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	newWidth, newHeight := cs.scaledSize(width, height)
	if newWidth != width || newHeight != height {
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Over, nil)
		img = resized
	}

	filename := fmt.Sprintf("sos_photo_%s.jpg", uuid.New().String())
	dstPath := filepath.Join(cs.outputDir, filename)

	dstFile, err := os.Create(dstPath)
	if err != nil {
		return nil, err
	}
	defer dstFile.Close()

	if err := jpeg.Encode(dstFile, img, &jpeg.Options{Quality: cs.jpegQuality}); err != nil {
		os.Remove(dstPath) // Clean up
		return nil, err
	}

	return &models.PhotoEvidence{
		LocalPath: dstPath,
		MimeType:  "image/jpeg",
	}, nil
}

func (cs *CameraService) scaledSize(width, height int) (int, int) {
	long := width
	if height > width {
		long = height
	}
	if long <= cs.maxLongEdge {
		return width, height
	}

	ratio := float64(cs.maxLongEdge) / float64(long)
	return int(float64(width) * ratio), int(float64(height) * ratio)
}

// saveToLibrary copies the photo into the device gallery. Best-effort: a
// denied media-library permission or a save failure is logged and ignored.
func (cs *CameraService) saveToLibrary(ctx context.Context, localPath string) {
	if cs.library == nil {
		return
	}
	if err := cs.library.SaveToLibrary(ctx, localPath); err != nil {
		logrus.Warnf("Failed to save photo to media library: %v", err)
	}
}
