package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/image-watermark/internal/models"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Submit records a pending job and hands it to the workers.
func (q *QueueService) Submit(ctx context.Context, req *models.WatermarkJobRequest) (*models.ProcessingJob, error) {
	job := NewJob(req)

	if err := q.store.SetJobResult(ctx, job); err != nil {
		q.logger.Warn("Failed to store pending job", zap.String("job_id", job.ID), zap.Error(err))
	}

	if err := q.PublishJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func NewJob(req *models.WatermarkJobRequest) *models.ProcessingJob {
	return &models.ProcessingJob{
		ID:        uuid.New().String(),
		ImageURL:  req.ImageURL,
		Options:   req.Options,
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}
}

func (q *QueueService) PublishJob(ctx context.Context, job *models.ProcessingJob) error {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = q.channel.Publish(
		"",          // exchange
		q.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         jobBytes,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}

	q.logger.Info("Job published to queue", zap.String("job_id", job.ID))
	return nil
}
