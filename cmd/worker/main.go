package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/feichai0017/doc-extractor/config"
	"github.com/feichai0017/doc-extractor/internal/ocr"
	"github.com/feichai0017/doc-extractor/internal/pipeline"
	"github.com/feichai0017/doc-extractor/internal/preprocess"
	"github.com/feichai0017/doc-extractor/internal/registry"
	"github.com/feichai0017/doc-extractor/pkg/logger"
	"github.com/feichai0017/doc-extractor/pkg/queue"
	"github.com/feichai0017/doc-extractor/pkg/worker"
)

func main() {
	cfg := config.Get()

	// 初始化日志
	log, err := logger.NewLogger(
		logger.WithLevel(cfg.Logging.Level),
		logger.WithEncoding(cfg.Logging.Encoding),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, err := ocr.NewEngine(ctx, &cfg.OCR, log.Named("ocr"))
	if err != nil {
		log.Error("Failed to create ocr engine", logger.Error(err))
		os.Exit(1)
	}
	defer engine.Close()

	pl := pipeline.New(
		registry.Default(),
		preprocess.NewPreprocessor(log.Named("preprocess"), cfg.Pipeline.TargetDPI),
		engine,
		&cfg.Pipeline,
		log.Named("pipeline"),
	)

	// queue deadline backstops the pipeline's own timeout
	q, err := queue.NewAsynqQueue(&queue.Config{
		RedisAddr:  cfg.Queue.RedisAddr,
		RedisDB:    cfg.Queue.RedisDB,
		RunTimeout: 2 * cfg.Pipeline.DocumentTimeout,
	})
	if err != nil {
		log.Error("Failed to create queue", logger.Error(err))
		os.Exit(1)
	}
	defer q.Close()

	workerCfg := &worker.Config{
		RedisAddr:   cfg.Queue.RedisAddr,
		RedisDB:     cfg.Queue.RedisDB,
		Concurrency: cfg.Queue.Concurrency,
	}
	extractionWorker, err := worker.NewExtractionWorker(workerCfg, pl, q, log.Named("worker"))
	if err != nil {
		log.Error("Failed to create extraction worker", logger.Error(err))
		os.Exit(1)
	}

	if err := extractionWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}
	log.Info("Worker started",
		logger.String("redis", cfg.Queue.RedisAddr),
		logger.Int("concurrency", cfg.Queue.Concurrency),
	)

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	extractionWorker.Stop()
	log.Info("Worker stopped")
}
