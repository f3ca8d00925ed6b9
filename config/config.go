package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	once sync.Once
	cfg  *Config
)

// Config is the full process configuration. Values come from an optional
// config.yaml, overridden by environment variables (.env supported).
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	OCR      OCRConfig      `yaml:"ocr"`
	Queue    QueueConfig    `yaml:"queue"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PipelineConfig bounds one processing run.
type PipelineConfig struct {
	PageFanout       int           `yaml:"pageFanout"`       // parallel OCR calls within one document
	DocumentTimeout  time.Duration `yaml:"documentTimeout"`  // wall-clock budget per run
	ConfidencePolicy string        `yaml:"confidencePolicy"` // "mean" or "weighted"
	TargetDPI        int           `yaml:"targetDpi"`
}

// OCRConfig selects and tunes the recognition engine.
type OCRConfig struct {
	Engine    string   `yaml:"engine"`    // "tesseract" or "textract"
	Languages []string `yaml:"languages"` // tesseract language codes
	AWSRegion string   `yaml:"awsRegion"`
	AccessKey string   `yaml:"-"`
	SecretKey string   `yaml:"-"`
}

// QueueConfig configures the asynq/redis run queue.
type QueueConfig struct {
	RedisAddr   string `yaml:"redisAddr"`
	RedisDB     int    `yaml:"redisDb"`
	Concurrency int    `yaml:"concurrency"` // worker pool size across documents
}

// LoggingConfig mirrors pkg/logger options.
type LoggingConfig struct {
	Level       string   `yaml:"level"`
	Encoding    string   `yaml:"encoding"`
	OutputPaths []string `yaml:"outputPaths"`
}

// Get loads configuration once for the whole process.
func Get() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: .env file not found, falling back to environment variables")
		}

		cfg = defaults()

		path := envStr("DOCEXTRACT_CONFIG", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				log.Printf("Warning: can't parse %s: %v", path, err)
			}
		}

		applyEnv(cfg)
	})
	return cfg
}

func defaults() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			PageFanout:       4,
			DocumentTimeout:  5 * time.Minute,
			ConfidencePolicy: "mean",
			TargetDPI:        300,
		},
		OCR: OCRConfig{
			Engine:    "tesseract",
			Languages: []string{"eng", "ara"},
		},
		Queue: QueueConfig{
			RedisAddr:   "localhost:6379",
			RedisDB:     0,
			Concurrency: 5,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Encoding:    "json",
			OutputPaths: []string{"stdout", "logs/app.log"},
		},
	}
}

func applyEnv(c *Config) {
	c.Queue.RedisAddr = envStr("REDIS_ADDR", c.Queue.RedisAddr)
	c.Queue.RedisDB = envInt("REDIS_DB", c.Queue.RedisDB)
	c.Queue.Concurrency = envInt("WORKER_CONCURRENCY", c.Queue.Concurrency)

	c.OCR.Engine = envStr("OCR_ENGINE", c.OCR.Engine)
	c.OCR.AWSRegion = envStr("AWS_REGION", c.OCR.AWSRegion)
	c.OCR.AccessKey = envStr("AWS_ACCESS_KEY", "")
	c.OCR.SecretKey = envStr("AWS_SECRET_KEY", "")

	c.Pipeline.PageFanout = envInt("PAGE_FANOUT", c.Pipeline.PageFanout)
	c.Pipeline.TargetDPI = envInt("TARGET_DPI", c.Pipeline.TargetDPI)
	if v := envStr("DOCUMENT_TIMEOUT", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Pipeline.DocumentTimeout = d
		}
	}

	c.Logging.Level = envStr("LOG_LEVEL", c.Logging.Level)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
