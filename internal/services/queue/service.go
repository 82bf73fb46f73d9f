package queue

import (
	"context"
	"fmt"

	"github.com/phambaophuc/image-watermark/internal/config"
	"github.com/phambaophuc/image-watermark/internal/models"
	"github.com/phambaophuc/image-watermark/internal/services/watermark"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Embedder stamps a watermark onto a local image.
type Embedder interface {
	Embed(ctx context.Context, source string, opts models.WatermarkOptions) (*models.WatermarkResult, error)
	TempDir() string
}

// JobStore is the slice of the storage layer used by workers.
type JobStore interface {
	GenerateCacheKey(source string, opts models.WatermarkOptions) string
	GetFromCache(ctx context.Context, cacheKey string) ([]byte, error)
	SetCache(ctx context.Context, cacheKey string, data []byte) error
	SaveFile(ctx context.Context, data []byte, filename, contentType string) (string, error)
	SetJobResult(ctx context.Context, job *models.ProcessingJob) error
}

type QueueService struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	logger      *zap.Logger
	queueName   string
	maxFileSize int64
	embedder    Embedder
	store       JobStore
	policy      watermark.ClientPolicy
	counters    jobCounters
}

func NewQueueService(
	cfg config.RabbitMQConfig,
	maxFileSize int64,
	embedder Embedder,
	store JobStore,
	policy watermark.ClientPolicy,
	logger *zap.Logger,
) (*QueueService, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	queueName := cfg.QueueName

	// Declare queue
	_, err = channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &QueueService{
		conn:        conn,
		channel:     channel,
		logger:      logger,
		queueName:   queueName,
		maxFileSize: maxFileSize,
		embedder:    embedder,
		store:       store,
		policy:      policy,
	}, nil
}

// Close closes the queue connection
func (q *QueueService) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		q.conn.Close()
	}
	return nil
}
