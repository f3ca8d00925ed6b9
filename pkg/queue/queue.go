// pkg/queue/queue.go
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/feichai0017/doc-extractor/internal/models"
)

// TaskTypeExtract 文档抽取任务
const TaskTypeExtract = "document:extract"

// recordTTL bounds how long finished records stay pollable.
const recordTTL = 24 * time.Hour

// Task is the payload of one queued extraction run.
type Task struct {
	DocumentID string    `json:"documentId"`
	TypeKey    string    `json:"documentType,omitempty"`
	Ext        string    `json:"ext"`
	Data       []byte    `json:"data"` // raw document bytes, json base64
	Priority   int       `json:"priority"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Queue 接口定义
type Queue interface {
	Enqueue(ctx context.Context, task *Task) error
	GetRecord(ctx context.Context, documentID string) (*models.ExtractionRecord, error)
	SaveRecord(ctx context.Context, record *models.ExtractionRecord) error
	Cancel(ctx context.Context, documentID string) error
	Close() error
}

// AsynqQueue backs the run queue with asynq and keeps extraction records in
// redis for status polls.
type AsynqQueue struct {
	client     *asynq.Client
	inspector  *asynq.Inspector
	redis      *redis.Client
	runTimeout time.Duration
}

// Config 定义队列配置
type Config struct {
	RedisAddr  string
	RedisDB    int
	RunTimeout time.Duration // hard deadline per queued run, asynq kills past it
}

// NewAsynqQueue 创建新的队列实例
func NewAsynqQueue(cfg *Config) (*AsynqQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	runTimeout := cfg.RunTimeout
	if runTimeout <= 0 {
		runTimeout = 30 * time.Minute
	}

	return &AsynqQueue{
		client:     asynq.NewClient(redisOpt),
		inspector:  asynq.NewInspector(redisOpt),
		redis:      redisClient,
		runTimeout: runTimeout,
	}, nil
}

// Enqueue 将任务加入队列
// A pending record is written before the task so a poll between enqueue and
// pickup still resolves.
func (q *AsynqQueue) Enqueue(ctx context.Context, task *Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	record := models.NewExtractionRecord(task.DocumentID, task.TypeKey)
	if err := q.SaveRecord(ctx, record); err != nil {
		return err
	}

	opts := []asynq.Option{
		asynq.MaxRetry(0), // a failed run is terminal, the caller resubmits
		asynq.Timeout(q.runTimeout),
		asynq.TaskID(task.DocumentID),
	}
	switch task.Priority {
	case 1:
		opts = append(opts, asynq.Queue("critical"))
	case 2:
		opts = append(opts, asynq.Queue("default"))
	default:
		opts = append(opts, asynq.Queue("low"))
	}

	t := asynq.NewTask(TaskTypeExtract, payload, opts...)
	if _, err := q.client.EnqueueContext(ctx, t); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// GetRecord 获取任务状态
func (q *AsynqQueue) GetRecord(ctx context.Context, documentID string) (*models.ExtractionRecord, error) {
	data, err := q.redis.Get(ctx, recordKey(documentID)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("no record for document %s", documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record from redis: %w", err)
	}

	var record models.ExtractionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &record, nil
}

// SaveRecord 保存抽取结果
func (q *AsynqQueue) SaveRecord(ctx context.Context, record *models.ExtractionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := q.redis.Set(ctx, recordKey(record.DocumentID), data, recordTTL).Err(); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Cancel removes a still-queued task. A run that already started is not
// interrupted; its record finishes normally.
func (q *AsynqQueue) Cancel(ctx context.Context, documentID string) error {
	queues := []string{"critical", "default", "low"}
	var lastErr error
	for _, queue := range queues {
		if err := q.inspector.DeleteTask(queue, documentID); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("failed to cancel task: %w", lastErr)
}

func (q *AsynqQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	return q.redis.Close()
}

func recordKey(documentID string) string {
	return fmt.Sprintf("extraction:record:%s", documentID)
}
