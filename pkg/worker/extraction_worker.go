package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/doc-extractor/internal/models"
	"github.com/feichai0017/doc-extractor/internal/pipeline"
	"github.com/feichai0017/doc-extractor/pkg/logger"
	"github.com/feichai0017/doc-extractor/pkg/queue"
)

// ExtractionWorker drains the run queue. Cross-document parallelism is the
// asynq concurrency setting; within-document parallelism belongs to the
// pipeline.
type ExtractionWorker struct {
	BaseWorker
	pipeline *pipeline.Pipeline
	queue    queue.Queue
}

func NewExtractionWorker(cfg *Config, pl *pipeline.Pipeline, q queue.Queue, log logger.Logger) (*ExtractionWorker, error) {
	queues := cfg.Queues
	if queues == nil {
		queues = map[string]int{"critical": 6, "default": 3, "low": 1}
	}
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Minute
			},
		},
	)

	w := &ExtractionWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   log,
			stopChan: make(chan struct{}),
		},
		pipeline: pl,
		queue:    q,
	}
	w.mux.HandleFunc(queue.TaskTypeExtract, w.handleExtract)
	return w, nil
}

func (w *ExtractionWorker) handleExtract(ctx context.Context, t *asynq.Task) error {
	var task queue.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}
	if task.DocumentID == "" || len(task.Data) == 0 {
		return fmt.Errorf("invalid task data: missing required fields")
	}

	w.logger.Info("Processing extraction task",
		logger.String("documentId", task.DocumentID),
		logger.String("type", task.TypeKey),
		logger.Int("bytes", len(task.Data)),
	)

	record := w.pipeline.Run(ctx, pipeline.Request{
		DocumentID: task.DocumentID,
		TypeKey:    task.TypeKey,
		Data:       task.Data,
		Ext:        task.Ext,
	})

	if err := w.queue.SaveRecord(ctx, record); err != nil {
		w.logger.Error("Failed to save record",
			logger.String("documentId", task.DocumentID),
			logger.Error(err),
		)
		return err
	}

	// A failed record is a finished run from the queue's point of view;
	// returning its error would trigger a redundant retry.
	if record.Status == models.StatusFailed {
		w.logger.Warn("run ended failed",
			logger.String("documentId", task.DocumentID),
			logger.String("reason", record.ErrorMessage),
		)
	}
	return nil
}

func (w *ExtractionWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("Worker server stopped", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
