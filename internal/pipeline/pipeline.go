package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/feichai0017/doc-extractor/config"
	"github.com/feichai0017/doc-extractor/internal/classify"
	"github.com/feichai0017/doc-extractor/internal/mapper"
	"github.com/feichai0017/doc-extractor/internal/models"
	"github.com/feichai0017/doc-extractor/internal/mrz"
	"github.com/feichai0017/doc-extractor/internal/ocr"
	"github.com/feichai0017/doc-extractor/internal/preprocess"
	"github.com/feichai0017/doc-extractor/internal/registry"
	"github.com/feichai0017/doc-extractor/pkg/logger"
)

// ErrTimeout marks a run that ran out of its wall-clock budget.
var ErrTimeout = fmt.Errorf("document processing timed out")

// Request is one document to process. An empty TypeKey asks the pipeline to
// classify the document from its own text.
type Request struct {
	DocumentID string
	TypeKey    string
	Data       []byte
	Ext        string // file extension including the dot, e.g. ".pdf"
}

// Pipeline runs a document end to end: pages, recognition, decoding,
// mapping, aggregation. One Pipeline serves many concurrent runs.
type Pipeline struct {
	registry   *registry.Registry
	pre        *preprocess.Preprocessor
	engine     ocr.Engine
	decoder    *mrz.Decoder
	mapper     *mapper.Mapper
	classifier *classify.Classifier
	cfg        *config.PipelineConfig
	logger     logger.Logger
}

func New(reg *registry.Registry, pre *preprocess.Preprocessor, engine ocr.Engine, cfg *config.PipelineConfig, log logger.Logger) *Pipeline {
	return &Pipeline{
		registry:   reg,
		pre:        pre,
		engine:     engine,
		decoder:    mrz.NewDecoder(log),
		mapper:     mapper.NewMapper(log),
		classifier: classify.NewClassifier(reg, log),
		cfg:        cfg,
		logger:     log,
	}
}

// Run processes one document and always returns a terminal record. Errors
// end the run as failed with the reason on the record; they are not returned
// because the record is the unit of reporting.
func (p *Pipeline) Run(ctx context.Context, req Request) *models.ExtractionRecord {
	record := models.NewExtractionRecord(req.DocumentID, req.TypeKey)
	record.Transition(models.StatusProcessing)

	log := p.logger.With(logger.String("documentId", req.DocumentID))

	ctx, cancel := context.WithTimeout(ctx, p.cfg.DocumentTimeout)
	defer cancel()

	// An explicitly named unknown type fails before any OCR spend.
	var schema *registry.Schema
	if req.TypeKey != "" {
		var err error
		schema, err = p.registry.Lookup(req.TypeKey)
		if err != nil {
			return p.fail(record, log, err)
		}
	}

	tokens, err := p.recognize(ctx, req, log)
	if err != nil {
		return p.fail(record, log, err)
	}

	if schema == nil {
		key, hits := p.classifier.Classify(tokens)
		if hits == 0 {
			return p.fail(record, log, fmt.Errorf("%w: unclassifiable document", registry.ErrUnknownType))
		}
		schema, _ = p.registry.Lookup(key)
		record.TypeKey = key
	}

	var zone *mrz.Result
	if schema.HasMRZ() {
		zone, _, err = p.decoder.Decode(tokens)
		if err != nil {
			log.Warn("zone decoding failed, falling back to visual text", logger.Error(err))
		}
	}

	record.Fields = p.mapper.Map(schema, tokens, zone)
	record.Confidence = overallConfidence(record.Fields, schema, p.cfg.ConfidencePolicy)
	record.Transition(resolveStatus(record.Fields, schema))

	log.Info("run finished",
		logger.String("type", record.TypeKey),
		logger.String("status", string(record.Status)),
		logger.Float64("confidence", record.Confidence),
	)
	return record
}

// recognize produces the full token stream for the document. Pages fan out
// across a bounded number of goroutines; cancellation lands at page
// boundaries so no token batch is half-written.
func (p *Pipeline) recognize(ctx context.Context, req Request, log logger.Logger) ([]models.OcrToken, error) {
	pages, err := p.pre.Pages(ctx, req.Data, req.Ext)
	if err != nil {
		if errors.Is(err, preprocess.ErrCorruptInput) && strings.EqualFold(req.Ext, ".pdf") {
			// born-digital PDF: no rasters, but the text layer may carry
			// everything we need
			tokens, terr := p.pre.TextTokens(ctx, req.Data)
			if terr == nil {
				log.Info("using pdf text layer", logger.Int("tokens", len(tokens)))
				return tokens, nil
			}
			return nil, err
		}
		return nil, err
	}

	fanout := int64(p.cfg.PageFanout)
	if fanout < 1 {
		fanout = 1
	}
	sem := semaphore.NewWeighted(fanout)
	g, ctx := errgroup.WithContext(ctx)

	perPage := make([][]models.OcrToken, len(pages))
	for i := range pages {
		page := pages[i]
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			toks, err := p.engine.Recognize(ctx, page, ocr.Hint{})
			if err != nil {
				return fmt.Errorf("page %d: %w", page.Index, err)
			}
			perPage[page.Index] = toks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var tokens []models.OcrToken
	for _, toks := range perPage {
		tokens = append(tokens, toks...)
	}
	sort.SliceStable(tokens, func(i, j int) bool {
		if tokens[i].Page != tokens[j].Page {
			return tokens[i].Page < tokens[j].Page
		}
		return tokens[i].Line < tokens[j].Line
	})
	return tokens, nil
}

// fail moves the record to failed with a reason. A deadline hit is reported
// as a timeout regardless of which stage observed it.
func (p *Pipeline) fail(record *models.ExtractionRecord, log logger.Logger, err error) *models.ExtractionRecord {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s", ErrTimeout, p.cfg.DocumentTimeout)
	}
	record.ErrorMessage = err.Error()
	record.Transition(models.StatusFailed)
	log.Error("run failed", logger.Error(err))
	return record
}
