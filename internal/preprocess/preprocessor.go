package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/feichai0017/doc-extractor/internal/models"
	"github.com/feichai0017/doc-extractor/pkg/logger"
)

// ErrUnsupportedFormat is returned for inputs whose type is not recognized.
// It is surfaced before any OCR work starts.
var ErrUnsupportedFormat = fmt.Errorf("unsupported input format")

// ErrCorruptInput is returned when not a single page could be produced from
// the input bytes. Zero pages is always fatal for the run.
var ErrCorruptInput = fmt.Errorf("corrupt input: no page could be rasterized")

// extension -> MIME, the set of inputs the pipeline accepts
var extToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".bmp":  "image/bmp",
	".pdf":  "application/pdf",
}

// Preprocessor turns raw document bytes into an ordered sequence of page
// bitmaps, normalized for OCR. Pages are new images; inputs are never
// mutated in place.
type Preprocessor struct {
	logger  logger.Logger
	steps   []Step
	quality *QualityChecker
}

// NewPreprocessor builds the default normalization pipeline: grayscale,
// contrast normalization, deskew. targetDPI sets the resolution floor the
// quality checker warns below; zero means the 300dpi default.
func NewPreprocessor(log logger.Logger, targetDPI int) *Preprocessor {
	return &Preprocessor{
		logger: log,
		steps: []Step{
			Grayscale{},
			ContrastNormalize{Amount: 20},
			Deskew{AngleLimit: 5},
		},
		quality: NewQualityChecker(targetDPI),
	}
}

// Supported reports whether the extension maps to a known input type.
func Supported(ext string) bool {
	_, ok := extToMIME[strings.ToLower(ext)]
	return ok
}

// Pages produces one PageImage per physical page, in source order. The
// sequence is finite and restartable only by calling Pages again with the
// original bytes.
func (p *Preprocessor) Pages(ctx context.Context, data []byte, ext string) ([]models.PageImage, error) {
	mime, ok := extToMIME[strings.ToLower(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	var raw []image.Image
	var err error
	if mime == "application/pdf" {
		raw, err = p.pdfPages(ctx, data)
	} else {
		raw, err = p.singleImage(data)
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrCorruptInput
	}

	pages := make([]models.PageImage, 0, len(raw))
	for i, img := range raw {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := models.PageImage{Index: i, PageCount: len(raw)}
		page.Warnings = p.quality.Check(img)

		normalized, err := p.normalize(img)
		if err != nil {
			// Best effort: a page that fails normalization still goes to
			// OCR unmodified. Degraded OCR beats a skipped page.
			p.logger.Warn("page normalization failed, forwarding original",
				logger.Int("page", i),
				logger.Error(err),
			)
			page.Warnings = append(page.Warnings, "normalization failed: "+err.Error())
			normalized = img
		}
		page.Image = normalized
		pages = append(pages, page)
	}
	return pages, nil
}

func (p *Preprocessor) normalize(img image.Image) (image.Image, error) {
	result := img
	for _, step := range p.steps {
		next, err := step.Apply(result)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, fmt.Errorf("normalization step returned nil image")
		}
		result = next
	}
	return result, nil
}

func (p *Preprocessor) singleImage(data []byte) ([]image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptInput, err)
	}
	return []image.Image{img}, nil
}

// pdfPages pulls the page rasters out of a PDF. Scanned documents carry one
// embedded image per page; those are extracted in page order. Pages without
// a usable raster are skipped (the text-layer fallback covers born-digital
// PDFs).
func (p *Preprocessor) pdfPages(ctx context.Context, data []byte) ([]image.Image, error) {
	rs := bytes.NewReader(data)
	pageCount, err := api.PageCount(rs, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptInput, err)
	}
	if pageCount == 0 {
		return nil, ErrCorruptInput
	}

	if _, err := rs.Seek(0, 0); err != nil {
		return nil, err
	}
	extracted, err := api.ExtractImagesRaw(rs, nil, nil)
	if err != nil {
		p.logger.Warn("pdf image extraction failed", logger.Error(err))
		return nil, nil // caller decides between text fallback and ErrCorruptInput
	}

	byPage := make(map[int]image.Image, pageCount)
	for _, pageImages := range extracted {
		for _, pdfImg := range pageImages {
			if _, seen := byPage[pdfImg.PageNr]; seen {
				continue
			}
			img, _, err := image.Decode(pdfImg)
			if err != nil {
				p.logger.Warn("undecodable page raster",
					logger.Int("page", pdfImg.PageNr),
					logger.Error(err),
				)
				continue
			}
			byPage[pdfImg.PageNr] = img
		}
	}

	// page numbers are 1-based in pdfcpu
	out := make([]image.Image, 0, len(byPage))
	for n := 1; n <= pageCount; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if img, ok := byPage[n]; ok {
			out = append(out, img)
		}
	}
	return out, nil
}
