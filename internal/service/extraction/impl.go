package extraction

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/feichai0017/doc-extractor/internal/models"
	"github.com/feichai0017/doc-extractor/internal/pipeline"
	"github.com/feichai0017/doc-extractor/internal/preprocess"
	"github.com/feichai0017/doc-extractor/internal/registry"
	"github.com/feichai0017/doc-extractor/pkg/logger"
	"github.com/feichai0017/doc-extractor/pkg/queue"
)

const maxFileSize = 50 * 1024 * 1024 // 50MB

type extractionService struct {
	registry *registry.Registry
	queue    queue.Queue
	pipeline *pipeline.Pipeline
	logger   logger.Logger
}

func NewService(reg *registry.Registry, q queue.Queue, pl *pipeline.Pipeline, log logger.Logger) Service {
	return &extractionService{
		registry: reg,
		queue:    q,
		pipeline: pl,
		logger:   log,
	}
}

// Submit validates the submission, assigns a document id and enqueues the
// run. Validation failures never reach the queue.
func (s *extractionService) Submit(ctx context.Context, sub Submission) (string, error) {
	ext, err := s.validate(&sub)
	if err != nil {
		s.logger.Error("Submission rejected",
			logger.String("filename", sub.Filename),
			logger.Error(err),
		)
		return "", err
	}

	documentID := uuid.New().String()
	task := &queue.Task{
		DocumentID: documentID,
		TypeKey:    sub.TypeKey,
		Ext:        ext,
		Data:       sub.Data,
		Priority:   sub.Priority,
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return "", fmt.Errorf("failed to enqueue document: %w", err)
	}

	s.logger.Info("Document submitted",
		logger.String("documentId", documentID),
		logger.String("filename", sub.Filename),
		logger.String("type", sub.TypeKey),
		logger.Int("bytes", len(sub.Data)),
	)
	return documentID, nil
}

// SubmitBatch submits each document independently. One bad file does not
// block the rest; its slot carries an empty id.
func (s *extractionService) SubmitBatch(ctx context.Context, subs []Submission) ([]string, error) {
	ids := make([]string, len(subs))
	var firstErr error
	for i, sub := range subs {
		id, err := s.Submit(ctx, sub)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", sub.Filename, err)
		}
		ids[i] = id
	}
	return ids, firstErr
}

func (s *extractionService) Status(ctx context.Context, documentID string) (*models.ExtractionRecord, error) {
	return s.queue.GetRecord(ctx, documentID)
}

func (s *extractionService) Cancel(ctx context.Context, documentID string) error {
	return s.queue.Cancel(ctx, documentID)
}

func (s *extractionService) ListTypes() []registry.Summary {
	return s.registry.List()
}

func (s *extractionService) ExtractSync(ctx context.Context, sub Submission) *models.ExtractionRecord {
	ext := strings.ToLower(filepath.Ext(sub.Filename))
	return s.pipeline.Run(ctx, pipeline.Request{
		DocumentID: uuid.New().String(),
		TypeKey:    sub.TypeKey,
		Data:       sub.Data,
		Ext:        ext,
	})
}

func (s *extractionService) validate(sub *Submission) (string, error) {
	if len(sub.Data) == 0 {
		return "", fmt.Errorf("empty document")
	}
	if int64(len(sub.Data)) > maxFileSize {
		return "", fmt.Errorf("document exceeds %d bytes", maxFileSize)
	}
	ext := strings.ToLower(filepath.Ext(sub.Filename))
	if !preprocess.Supported(ext) {
		return "", fmt.Errorf("%w: %q", preprocess.ErrUnsupportedFormat, ext)
	}
	if sub.TypeKey != "" {
		if _, err := s.registry.Lookup(sub.TypeKey); err != nil {
			return "", err
		}
	}
	return ext, nil
}
