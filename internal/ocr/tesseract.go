package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/feichai0017/doc-extractor/config"
	"github.com/feichai0017/doc-extractor/internal/models"
	"github.com/feichai0017/doc-extractor/pkg/logger"
)

// TesseractEngine runs the local tesseract binding. A fresh client is created
// per call because gosseract clients are not goroutine-safe.
type TesseractEngine struct {
	languages []string
	logger    logger.Logger
}

func NewTesseractEngine(cfg *config.OCRConfig, log logger.Logger) *TesseractEngine {
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	return &TesseractEngine{languages: langs, logger: log}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

func (e *TesseractEngine) Close() error { return nil }

func (e *TesseractEngine) Recognize(ctx context.Context, page models.PageImage, hint Hint) ([]models.OcrToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	langs := e.languages
	if len(hint.Languages) > 0 {
		langs = hint.Languages
	}
	if err := client.SetLanguage(strings.Join(langs, "+")); err != nil {
		return nil, fmt.Errorf("%w: set language: %v", ErrEngineFailure, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return nil, fmt.Errorf("%w: set page seg mode: %v", ErrEngineFailure, err)
	}
	if hint.Whitelist != "" {
		if err := client.SetVariable("tessedit_char_whitelist", hint.Whitelist); err != nil {
			return nil, fmt.Errorf("%w: set whitelist: %v", ErrEngineFailure, err)
		}
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, page.Image); err != nil {
		return nil, fmt.Errorf("encode page %d: %w", page.Index, err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("%w: set image: %v", ErrEngineFailure, err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineFailure, err)
	}

	tokens := make([]models.OcrToken, 0, len(boxes))
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		tokens = append(tokens, models.OcrToken{
			Text:       word,
			Box:        box.Box,
			Confidence: box.Confidence / 100, // tesseract reports 0-100
			Script:     DetectScript(word),
			Page:       page.Index,
			Line:       box.LineNum,
		})
	}

	e.logger.Debug("page recognized",
		logger.Int("page", page.Index),
		logger.Int("tokens", len(tokens)),
	)
	return tokens, nil
}
