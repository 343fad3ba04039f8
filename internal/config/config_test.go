package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phpscreening/screener/internal/config"
)

func TestLoadAPIDefaults(t *testing.T) {
	for _, key := range []string{
		"API_BIND_ADDR", "KAFKA_BROKERS", "KAFKA_TOPIC", "MINIO_ENDPOINT", "MINIO_BUCKET",
		"SCREENING_CLASSIFY_WINDOW", "SCREENING_ARCHIVE_NAME", "SCREENING_ARCHIVE_FOLDER",
		"SCREENING_EXTRACT_TIMEOUT", "SCREENING_MAX_UPLOAD_MB",
	} {
		t.Setenv(key, "")
	}

	cfg, err := config.LoadAPI()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8080", cfg.BindAddr)
	require.Equal(t, 1500, cfg.ClassifyWindow)
	require.Equal(t, "UNCTAD_Selection.zip", cfg.ArchiveName)
	require.Equal(t, "Selected_Candidates", cfg.ArchiveFolder)
	require.Zero(t, cfg.ExtractTimeout)
	require.Equal(t, int64(256<<20), cfg.MaxUploadBytes)
	require.Empty(t, cfg.KafkaBrokers)
	require.False(t, cfg.MinIO.Enabled())
	require.Equal(t, "screening-originals", cfg.MinIOBucket)
}

func TestLoadAPIOverrides(t *testing.T) {
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "broker-a:29092, broker-b:29093")
	t.Setenv("KAFKA_TOPIC", "review")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("SCREENING_CLASSIFY_WINDOW", "2000")
	t.Setenv("SCREENING_ARCHIVE_NAME", "shortlist.zip")
	t.Setenv("SCREENING_EXTRACT_TIMEOUT", "45s")
	t.Setenv("SCREENING_MAX_UPLOAD_MB", "10")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, []string{"broker-a:29092", "broker-b:29093"}, cfg.KafkaBrokers)
	require.Equal(t, "review", cfg.KafkaTopic)
	require.True(t, cfg.MinIO.Enabled())
	require.True(t, cfg.MinIOUseSSL)
	require.Equal(t, 2000, cfg.ClassifyWindow)
	require.Equal(t, "shortlist.zip", cfg.ArchiveName)
	require.Equal(t, 45*time.Second, cfg.ExtractTimeout)
	require.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
}

func TestLoadAPIValidation(t *testing.T) {
	t.Setenv("SCREENING_CLASSIFY_WINDOW", "-1")
	_, err := config.LoadAPI()
	require.Error(t, err)

	t.Setenv("SCREENING_CLASSIFY_WINDOW", "")
	t.Setenv("SCREENING_ARCHIVE_NAME", "../escape.zip")
	_, err = config.LoadAPI()
	require.Error(t, err)
}

func TestLoadWorkerDefaults(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "")
	t.Setenv("ELASTICSEARCH_INDEX", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TOPIC", "")
	t.Setenv("KAFKA_CONSUMER_GROUP", "")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "http://elasticsearch:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "screening-events", cfg.ElasticsearchIndex)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "screening_events", cfg.KafkaTopic)
	require.Equal(t, "screening-audit", cfg.KafkaConsumer)
}

func TestLoadWorkerOverrides(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://localhost:9999")
	t.Setenv("ELASTICSEARCH_INDEX", "custom")
	t.Setenv("KAFKA_CONSUMER_GROUP", "custom-group")
	t.Setenv("WORKER_DEDUPE_CAPACITY", "5")
	t.Setenv("WORKER_DEDUPE_TTL", "48h")
	t.Setenv("WORKER_BATCH_SIZE", "3")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "http://localhost:9999", cfg.ElasticsearchAddr)
	require.Equal(t, "custom", cfg.ElasticsearchIndex)
	require.Equal(t, "custom-group", cfg.KafkaConsumer)
	require.Equal(t, 5, cfg.DedupeCapacity)
	require.Equal(t, 48*time.Hour, cfg.DedupeTTL)
	require.Equal(t, 3, cfg.BatchSize)
}

func TestLoadRetention(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://ret-es:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "ret-index")
	t.Setenv("RETENTION_CRON", "12h")
	t.Setenv("RETENTION_MAX_AGE", "36h")
	t.Setenv("RETENTION_BATCH_SIZE", "123")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)

	require.Equal(t, 12*time.Hour, cfg.Interval)
	require.Equal(t, 36*time.Hour, cfg.MaxAge)
	require.Equal(t, 123, cfg.BatchSize)
	require.Equal(t, "http://ret-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "ret-index", cfg.ElasticsearchIndex)
}

func TestLoadClassify(t *testing.T) {
	t.Setenv("SCREENING_CLASSIFY_WINDOW", "800")
	cfg, err := config.LoadClassify()
	require.NoError(t, err)
	require.Equal(t, 800, cfg.ClassifyWindow)
}
