package extraction

import (
	"context"

	"github.com/feichai0017/doc-extractor/internal/models"
	"github.com/feichai0017/doc-extractor/internal/registry"
)

// Submission is one document handed to the service.
type Submission struct {
	Filename string
	TypeKey  string // empty asks for classification
	Data     []byte
	Priority int
}

// Service is the submission boundary: enqueue runs, poll their records,
// discover known document types.
type Service interface {
	Submit(ctx context.Context, sub Submission) (string, error)
	SubmitBatch(ctx context.Context, subs []Submission) ([]string, error)
	Status(ctx context.Context, documentID string) (*models.ExtractionRecord, error)
	Cancel(ctx context.Context, documentID string) error
	ListTypes() []registry.Summary

	// ExtractSync runs the pipeline inline, bypassing the queue. For CLI and
	// test use.
	ExtractSync(ctx context.Context, sub Submission) *models.ExtractionRecord
}
