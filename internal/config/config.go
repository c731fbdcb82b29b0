// Package config reads service settings from the environment. A .env file in
// the working directory is loaded first when present; real environment
// variables win over it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	HTTPAddr       string
	UploadDir      string
	OutputDir      string
	ImageDir       string
	MaxUploadBytes int64

	StatusStore   string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	FFmpegPath     string
	FFprobePath    string
	SegmentSeconds int
	EncodeTimeout  time.Duration

	S3 S3
	// RemotePrefix is the key prefix HLS output is published under.
	RemotePrefix string
	// PublishConcurrency caps concurrent uploads per transcoding job.
	PublishConcurrency int

	KafkaBrokers    []string
	KafkaTopic      string
	OutboxInterval  time.Duration
	OutboxBatchSize int

	LogLevel  string
	LogFormat string
}

type S3 struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	PublicBaseURL   string
}

func Default() Config {
	return Config{
		HTTPAddr:           ":8081",
		UploadDir:          "uploads/videos/temp",
		OutputDir:          "uploads/videos",
		ImageDir:           "uploads/images",
		MaxUploadBytes:     50 << 20,
		StatusStore:        StoreMemory,
		MongoDatabase:      "media",
		FFmpegPath:         "ffmpeg",
		FFprobePath:        "ffprobe",
		SegmentSeconds:     6,
		RemotePrefix:       "videos-hls",
		PublishConcurrency: 8,
		KafkaTopic:         "video-status",
		OutboxInterval:     time.Second,
		OutboxBatchSize:    100,
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// Load reads .env (if any) and the environment on top of Default.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup. Unset variables keep their defaults.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var errs []string

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = d
		}
	}

	str("HTTP_ADDR", &cfg.HTTPAddr)
	str("UPLOAD_VIDEO_TEMP_DIR", &cfg.UploadDir)
	str("UPLOAD_VIDEO_DIR", &cfg.OutputDir)
	str("UPLOAD_IMAGE_DIR", &cfg.ImageDir)
	if v, ok := lookup("MAX_UPLOAD_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("MAX_UPLOAD_BYTES: %v", err))
		} else {
			cfg.MaxUploadBytes = n
		}
	}

	str("STATUS_STORE", &cfg.StatusStore)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("MONGO_URI", &cfg.MongoURI)
	str("MONGO_DATABASE", &cfg.MongoDatabase)

	str("FFMPEG_PATH", &cfg.FFmpegPath)
	str("FFPROBE_PATH", &cfg.FFprobePath)
	integer("HLS_SEGMENT_SECONDS", &cfg.SegmentSeconds)
	duration("ENCODE_TIMEOUT", &cfg.EncodeTimeout)

	str("AWS_REGION", &cfg.S3.Region)
	str("S3_BUCKET", &cfg.S3.Bucket)
	str("AWS_ACCESS_KEY_ID", &cfg.S3.AccessKeyID)
	str("AWS_SECRET_ACCESS_KEY", &cfg.S3.SecretAccessKey)
	str("S3_ENDPOINT", &cfg.S3.Endpoint)
	str("S3_PUBLIC_BASE_URL", &cfg.S3.PublicBaseURL)
	str("REMOTE_PREFIX", &cfg.RemotePrefix)
	integer("PUBLISH_CONCURRENCY", &cfg.PublishConcurrency)

	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		cfg.KafkaBrokers = splitList(v)
	}
	str("KAFKA_TOPIC", &cfg.KafkaTopic)
	duration("OUTBOX_INTERVAL", &cfg.OutboxInterval)
	integer("OUTBOX_BATCH_SIZE", &cfg.OutboxBatchSize)

	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StatusStore {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is empty")
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("config: MONGO_URI is empty")
		}
	default:
		return fmt.Errorf("config: unknown STATUS_STORE %q", c.StatusStore)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_BYTES must be positive")
	}
	if c.SegmentSeconds <= 0 {
		return fmt.Errorf("config: HLS_SEGMENT_SECONDS must be positive")
	}
	if c.PublishConcurrency <= 0 {
		return fmt.Errorf("config: PUBLISH_CONCURRENCY must be positive")
	}
	if c.EncodeTimeout < 0 {
		return fmt.Errorf("config: ENCODE_TIMEOUT cannot be negative")
	}
	if c.OutboxInterval <= 0 {
		return fmt.Errorf("config: OUTBOX_INTERVAL must be positive")
	}
	if c.OutboxBatchSize <= 0 {
		return fmt.Errorf("config: OUTBOX_BATCH_SIZE must be positive")
	}
	return nil
}

// ValidatePublishing checks the settings the video service needs to upload.
func (c Config) ValidatePublishing() error {
	if c.S3.Bucket == "" {
		return fmt.Errorf("config: S3_BUCKET is empty")
	}
	if c.S3.Region == "" {
		return fmt.Errorf("config: AWS_REGION is empty")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
