package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common contains Elasticsearch parameters shared by the audit services.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Kafka locates the review event topic. An empty broker list disables publishing.
type Kafka struct {
	KafkaBrokers []string
	KafkaTopic   string
}

// MinIO configures the optional object store for uploaded files.
type MinIO struct {
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
}

// Enabled reports whether an endpoint was configured.
func (m MinIO) Enabled() bool {
	return m.MinIOEndpoint != ""
}

// Screening holds the knobs of the screening session itself.
type Screening struct {
	ClassifyWindow int
	ArchiveName    string
	ArchiveFolder  string
	ExtractTimeout time.Duration
}

// API describes the screening HTTP service.
type API struct {
	Screening
	Kafka
	MinIO
	BindAddr       string
	MaxUploadBytes int64
	EventBuffer    int
}

// Worker holds configuration for the Kafka -> Elasticsearch audit worker.
type Worker struct {
	Common
	Kafka
	KafkaConsumer  string
	DedupeCapacity int
	DedupeTTL      time.Duration
	BatchSize      int
}

// Retention configures the audit cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

// Classify configures the batch classification CLI.
type Classify struct {
	ClassifyWindow int
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	screening, err := loadScreening()
	if err != nil {
		return nil, err
	}

	c := &API{
		Screening: *screening,
		Kafka: Kafka{
			KafkaBrokers: splitAndTrim(getEnv("KAFKA_BROKERS", "")),
			KafkaTopic:   getEnv("KAFKA_TOPIC", "screening_events"),
		},
		MinIO: MinIO{
			MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
			MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinIOBucket:    getEnv("MINIO_BUCKET", "screening-originals"),
			MinIOUseSSL:    getBool("MINIO_USE_SSL", false),
		},
		BindAddr:       getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		MaxUploadBytes: int64(getInt("SCREENING_MAX_UPLOAD_MB", 256)) << 20,
		EventBuffer:    getInt("SCREENING_EVENT_BUFFER", 1024),
	}

	if c.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("SCREENING_MAX_UPLOAD_MB must be positive")
	}
	if c.EventBuffer <= 0 {
		return nil, fmt.Errorf("SCREENING_EVENT_BUFFER must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Common: loadCommon(),
		Kafka: Kafka{
			KafkaBrokers: splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
			KafkaTopic:   getEnv("KAFKA_TOPIC", "screening_events"),
		},
		KafkaConsumer:  getEnv("KAFKA_CONSUMER_GROUP", "screening-audit"),
		DedupeCapacity: getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:      getInt("WORKER_BATCH_SIZE", 10),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:    loadCommon(),
		Interval:  getDuration("RETENTION_CRON", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

// LoadClassify builds the CLI defaults from environment variables.
func LoadClassify() (*Classify, error) {
	c := &Classify{ClassifyWindow: getInt("SCREENING_CLASSIFY_WINDOW", 1500)}
	if c.ClassifyWindow <= 0 {
		return nil, fmt.Errorf("SCREENING_CLASSIFY_WINDOW must be positive")
	}
	return c, nil
}

func loadScreening() (*Screening, error) {
	s := &Screening{
		ClassifyWindow: getInt("SCREENING_CLASSIFY_WINDOW", 1500),
		ArchiveName:    getEnv("SCREENING_ARCHIVE_NAME", "UNCTAD_Selection.zip"),
		ArchiveFolder:  getEnv("SCREENING_ARCHIVE_FOLDER", "Selected_Candidates"),
		ExtractTimeout: getDuration("SCREENING_EXTRACT_TIMEOUT", "0s"),
	}
	if s.ClassifyWindow <= 0 {
		return nil, fmt.Errorf("SCREENING_CLASSIFY_WINDOW must be positive")
	}
	if s.ExtractTimeout < 0 {
		return nil, fmt.Errorf("SCREENING_EXTRACT_TIMEOUT cannot be negative")
	}
	if strings.ContainsAny(s.ArchiveName, `/\"`) {
		return nil, fmt.Errorf("SCREENING_ARCHIVE_NAME must be a plain file name")
	}
	return s, nil
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "screening-events"),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
