package preprocess

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// QualityChecker computes cheap image metrics and reports findings that
// predict unreliable OCR. Findings are advisory; a poor page is still
// processed.
type QualityChecker struct {
	BlurThreshold float64 // minimum Laplacian variance
	BrightnessMin float64
	BrightnessMax float64
	ContrastMin   float64 // minimum gray stddev
	MinWidth      int
	MinHeight     int
}

// NewQualityChecker derives the resolution floor from the target scan
// density: an ID-card sized capture (2.0 by 1.33 inches) at targetDPI.
func NewQualityChecker(targetDPI int) *QualityChecker {
	if targetDPI <= 0 {
		targetDPI = 300
	}
	return &QualityChecker{
		BlurThreshold: 50,
		BrightnessMin: 40,
		BrightnessMax: 240,
		ContrastMin:   30,
		MinWidth:      2 * targetDPI,
		MinHeight:     targetDPI * 4 / 3,
	}
}

// Check returns human-readable findings for the page, empty when the page
// looks fine.
func (q *QualityChecker) Check(img image.Image) []string {
	var findings []string

	bounds := img.Bounds()
	if bounds.Dx() < q.MinWidth || bounds.Dy() < q.MinHeight {
		findings = append(findings, fmt.Sprintf(
			"low resolution %dx%d, minimum %dx%d",
			bounds.Dx(), bounds.Dy(), q.MinWidth, q.MinHeight))
	}

	gray := imaging.Grayscale(imaging.Resize(img, 400, 0, imaging.Box))

	brightness, contrast := grayStats(gray)
	if brightness < q.BrightnessMin {
		findings = append(findings, fmt.Sprintf("page too dark (brightness %.0f)", brightness))
	} else if brightness > q.BrightnessMax {
		findings = append(findings, fmt.Sprintf("page too bright (brightness %.0f)", brightness))
	}
	if contrast < q.ContrastMin {
		findings = append(findings, fmt.Sprintf("low contrast (%.0f)", contrast))
	}

	if blur := laplacianVariance(gray); blur < q.BlurThreshold {
		findings = append(findings, fmt.Sprintf("page looks blurry (score %.1f)", blur))
	}

	return findings
}

func grayStats(img *image.NRGBA) (mean, stddev float64) {
	bounds := img.Bounds()
	n := float64(bounds.Dx() * bounds.Dy())
	if n == 0 {
		return 0, 0
	}
	var sum, sumSq float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := float64(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
			sum += v
			sumSq += v * v
		}
	}
	mean = sum / n
	stddev = math.Sqrt(sumSq/n - mean*mean)
	return mean, stddev
}

// laplacianVariance estimates sharpness: crisp edges produce high variance
// of the 4-neighbour Laplacian response.
func laplacianVariance(img *image.NRGBA) float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	at := func(x, y int) float64 {
		return float64(color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray).Y)
	}

	var sum, sumSq float64
	n := float64((w - 2) * (h - 2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			sum += lap
			sumSq += lap * lap
		}
	}
	mean := sum / n
	return sumSq/n - mean*mean
}
