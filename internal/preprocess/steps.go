package preprocess

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Step is one normalization stage. Steps return new images and never mutate
// their input.
type Step interface {
	Apply(img image.Image) (image.Image, error)
}

// Grayscale drops color information.
type Grayscale struct{}

func (Grayscale) Apply(img image.Image) (image.Image, error) {
	return imaging.Grayscale(img), nil
}

// ContrastNormalize stretches contrast by a fixed amount.
type ContrastNormalize struct {
	Amount float64
}

func (s ContrastNormalize) Apply(img image.Image) (image.Image, error) {
	return imaging.AdjustContrast(img, s.Amount), nil
}

// Sharpen applies unsharp masking.
type Sharpen struct {
	Strength float64
}

func (s Sharpen) Apply(img image.Image) (image.Image, error) {
	return imaging.Sharpen(img, s.Strength), nil
}

// Deskew rotates the page to the nearest recoverable orientation. Skew is
// estimated by maximizing horizontal projection variance over a small angle
// sweep; angles beyond AngleLimit are treated as unrecoverable and left
// alone.
type Deskew struct {
	AngleLimit float64
}

func (s Deskew) Apply(img image.Image) (image.Image, error) {
	angle := s.detectAngle(img)
	if angle == 0 || math.Abs(angle) > s.AngleLimit {
		return img, nil
	}
	return imaging.Rotate(img, angle, color.White), nil
}

func (s Deskew) detectAngle(img image.Image) float64 {
	// Work on a small thumbnail; precision beyond half a degree does not
	// help OCR.
	thumb := imaging.Grayscale(imaging.Resize(img, 400, 0, imaging.Box))

	best, bestScore := 0.0, projectionVariance(thumb)
	for angle := -s.AngleLimit; angle <= s.AngleLimit; angle += 0.5 {
		if angle == 0 {
			continue
		}
		rotated := imaging.Rotate(thumb, angle, color.White)
		if score := projectionVariance(rotated); score > bestScore {
			best, bestScore = angle, score
		}
	}
	return best
}

// projectionVariance scores row-ink alignment: text lines parallel to the
// x axis produce strongly bimodal row sums.
func projectionVariance(img *image.NRGBA) float64 {
	bounds := img.Bounds()
	h := bounds.Dy()
	if h == 0 {
		return 0
	}
	rows := make([]float64, h)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		var sum float64
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			if g < 128 {
				sum++
			}
		}
		rows[y-bounds.Min.Y] = sum
	}

	var mean float64
	for _, v := range rows {
		mean += v
	}
	mean /= float64(h)

	var variance float64
	for _, v := range rows {
		d := v - mean
		variance += d * d
	}
	return variance / float64(h)
}
