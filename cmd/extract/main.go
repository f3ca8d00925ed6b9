// Extraction CLI. The default mode runs the pipeline inline and prints the
// record as JSON; -submit, -status and -cancel talk to the redis-backed run
// queue instead.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/feichai0017/doc-extractor/config"
	"github.com/feichai0017/doc-extractor/internal/models"
	"github.com/feichai0017/doc-extractor/internal/ocr"
	"github.com/feichai0017/doc-extractor/internal/pipeline"
	"github.com/feichai0017/doc-extractor/internal/preprocess"
	"github.com/feichai0017/doc-extractor/internal/registry"
	"github.com/feichai0017/doc-extractor/internal/service/extraction"
	"github.com/feichai0017/doc-extractor/pkg/logger"
	"github.com/feichai0017/doc-extractor/pkg/queue"
)

func main() {
	typeKey := flag.String("type", "", "document type key (empty: classify)")
	listTypes := flag.Bool("list-types", false, "print known document types and exit")
	submit := flag.Bool("submit", false, "enqueue instead of extracting inline")
	status := flag.String("status", "", "poll the record for a document id")
	cancel := flag.String("cancel", "", "cancel a queued document id")
	flag.Parse()

	cfg := config.Get()

	log, err := logger.NewLogger(
		logger.WithLevel(cfg.Logging.Level),
		logger.WithEncoding("console"),
		logger.WithOutputPaths([]string{"stderr"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	reg := registry.Default()

	needsQueue := *submit || *status != "" || *cancel != ""
	var q queue.Queue
	if needsQueue {
		aq, err := queue.NewAsynqQueue(&queue.Config{
			RedisAddr:  cfg.Queue.RedisAddr,
			RedisDB:    cfg.Queue.RedisDB,
			RunTimeout: 2 * cfg.Pipeline.DocumentTimeout,
		})
		if err != nil {
			fatal("queue: %v", err)
		}
		defer aq.Close()
		q = aq
	}

	engine, err := ocr.NewEngine(ctx, &cfg.OCR, log.Named("ocr"))
	if err != nil {
		fatal("ocr engine: %v", err)
	}
	defer engine.Close()

	pl := pipeline.New(reg, preprocess.NewPreprocessor(log.Named("preprocess"), cfg.Pipeline.TargetDPI), engine, &cfg.Pipeline, log.Named("pipeline"))
	svc := extraction.NewService(reg, q, pl, log.Named("service"))

	switch {
	case *listTypes:
		for _, s := range svc.ListTypes() {
			fmt.Printf("%-18s %s (%d fields)\n", s.Key, s.Name, s.FieldCount)
		}

	case *status != "":
		record, err := svc.Status(ctx, *status)
		if err != nil {
			fatal("status: %v", err)
		}
		printRecord(record)

	case *cancel != "":
		if err := svc.Cancel(ctx, *cancel); err != nil {
			fatal("cancel: %v", err)
		}
		fmt.Println("cancelled")

	case *submit:
		sub, err := readSubmission(*typeKey)
		if err != nil {
			fatal("%v", err)
		}
		id, err := svc.Submit(ctx, sub)
		if err != nil {
			fatal("submit: %v", err)
		}
		fmt.Println(id)

	default:
		sub, err := readSubmission(*typeKey)
		if err != nil {
			fatal("%v", err)
		}
		record := svc.ExtractSync(ctx, sub)
		printRecord(record)
		if record.Status == models.StatusFailed {
			os.Exit(1)
		}
	}
}

func readSubmission(typeKey string) (extraction.Submission, error) {
	if flag.NArg() != 1 {
		return extraction.Submission{}, fmt.Errorf("usage: extract [-type KEY] [-submit] FILE")
	}
	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return extraction.Submission{}, fmt.Errorf("read %s: %w", path, err)
	}
	return extraction.Submission{
		Filename: filepath.Base(path),
		TypeKey:  typeKey,
		Data:     data,
	}, nil
}

func printRecord(record *models.ExtractionRecord) {
	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		fatal("encode record: %v", err)
	}
	fmt.Println(string(out))
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
