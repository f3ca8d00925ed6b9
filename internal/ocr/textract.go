package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/feichai0017/doc-extractor/config"
	"github.com/feichai0017/doc-extractor/internal/models"
	"github.com/feichai0017/doc-extractor/pkg/logger"
)

// TextractEngine recognizes pages through the AWS Textract API. The client is
// goroutine-safe, so one instance serves the whole fan-out.
type TextractEngine struct {
	client *textract.Client
	logger logger.Logger
}

func NewTextractEngine(ctx context.Context, cfg *config.OCRConfig, log logger.Logger) (*TextractEngine, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return &TextractEngine{
		client: textract.NewFromConfig(awsCfg),
		logger: log,
	}, nil
}

func (e *TextractEngine) Name() string { return "textract" }

func (e *TextractEngine) Close() error { return nil }

func (e *TextractEngine) Recognize(ctx context.Context, page models.PageImage, hint Hint) ([]models.OcrToken, error) {
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, page.Image); err != nil {
		return nil, fmt.Errorf("encode page %d: %w", page.Index, err)
	}

	result, err := e.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: buf.Bytes()},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: detect document text: %v", ErrEngineFailure, err)
	}

	bounds := page.Image.Bounds()
	return e.tokensFromBlocks(result.Blocks, page.Index, bounds), nil
}

// tokensFromBlocks flattens textract LINE/WORD blocks into tokens. Words are
// attributed to lines via CHILD relationships; geometry ratios are scaled
// back to page pixels.
func (e *TextractEngine) tokensFromBlocks(blocks []types.Block, pageIndex int, bounds image.Rectangle) []models.OcrToken {
	words := make(map[string]types.Block, len(blocks))
	for _, block := range blocks {
		if block.BlockType == types.BlockTypeWord && block.Id != nil {
			words[*block.Id] = block
		}
	}

	var tokens []models.OcrToken
	line := 0
	for _, block := range blocks {
		if block.BlockType != types.BlockTypeLine {
			continue
		}
		line++
		for _, rel := range block.Relationships {
			if rel.Type != "CHILD" {
				continue
			}
			for _, id := range rel.Ids {
				word, ok := words[id]
				if !ok || word.Text == nil {
					continue
				}
				confidence := 0.0
				if word.Confidence != nil {
					confidence = float64(*word.Confidence) / 100
				}
				tokens = append(tokens, models.OcrToken{
					Text:       *word.Text,
					Box:        scaleBox(word.Geometry, bounds),
					Confidence: confidence,
					Script:     DetectScript(*word.Text),
					Page:       pageIndex,
					Line:       line,
				})
			}
		}
	}
	return tokens
}

func scaleBox(geom *types.Geometry, bounds image.Rectangle) image.Rectangle {
	if geom == nil || geom.BoundingBox == nil {
		return image.Rectangle{}
	}
	bb := geom.BoundingBox
	w, h := float32(bounds.Dx()), float32(bounds.Dy())
	x0 := bounds.Min.X + int(bb.Left*w)
	y0 := bounds.Min.Y + int(bb.Top*h)
	return image.Rect(x0, y0, x0+int(bb.Width*w), y0+int(bb.Height*h))
}
