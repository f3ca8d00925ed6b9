package ocr

import (
	"context"
	"fmt"

	"github.com/feichai0017/doc-extractor/config"
	"github.com/feichai0017/doc-extractor/internal/models"
	"github.com/feichai0017/doc-extractor/pkg/logger"
)

// ErrEngineFailure wraps engine-level faults (binding errors, remote API
// failures). Page decode problems and empty pages are not engine failures.
var ErrEngineFailure = fmt.Errorf("ocr engine failure")

// Hint tunes recognition for a known document type. The zero value means
// "use engine defaults".
type Hint struct {
	Languages []string
	Whitelist string // restrict the character set, e.g. for machine readable zones
}

// Engine recognizes text on a single page. Implementations must be safe for
// concurrent use; the pipeline fans pages out across goroutines.
type Engine interface {
	Recognize(ctx context.Context, page models.PageImage, hint Hint) ([]models.OcrToken, error)
	Name() string
	Close() error
}

// NewEngine builds the engine named in the configuration.
func NewEngine(ctx context.Context, cfg *config.OCRConfig, log logger.Logger) (Engine, error) {
	switch cfg.Engine {
	case "", "tesseract":
		return NewTesseractEngine(cfg, log), nil
	case "textract":
		return NewTextractEngine(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}
}
