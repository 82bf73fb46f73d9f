package queue

import (
	"fmt"
	"sync/atomic"
)

// jobCounters tracks what this process's workers have done since start.
type jobCounters struct {
	workers   atomic.Int64
	active    atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
}

// GetQueueStats reports local worker counts, plus broker depth when a channel
// is open.
func (q *QueueService) GetQueueStats() (map[string]interface{}, error) {
	stats := map[string]interface{}{
		"name":    q.queueName,
		"workers": q.counters.workers.Load(),
		"jobs": map[string]int64{
			"active":    q.counters.active.Load(),
			"completed": q.counters.completed.Load(),
			"failed":    q.counters.failed.Load(),
			"rejected":  q.counters.rejected.Load(),
		},
	}

	if q.channel == nil {
		return stats, nil
	}

	queueInfo, err := q.channel.QueueInspect(q.queueName)
	if err != nil {
		return stats, fmt.Errorf("failed to inspect queue %s: %w", q.queueName, err)
	}
	stats["messages"] = queueInfo.Messages
	stats["consumers"] = queueInfo.Consumers

	return stats, nil
}

// HealthCheck checks if RabbitMQ is available
func (q *QueueService) HealthCheck() string {
	if q.conn == nil || q.conn.IsClosed() {
		return "unhealthy: connection closed"
	}

	if q.channel == nil {
		return "unhealthy: channel not available"
	}

	return "healthy"
}
