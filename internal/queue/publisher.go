// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package queue publishes preference-change events to Redis as
// Celery-compatible tasks for the ETL workers that apply them to the CRM.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/placebyte/gateway/internal/models"
)

// PreferenceTask is the Celery task name consumed by the ETL workers.
const PreferenceTask = "etl.tasks.apply_preference_change"

// Publisher sends preference events to Redis in Celery task format.
type Publisher struct {
	rdb       *redis.Client
	queueName string
}

// NewPublisher creates a new Redis publisher targeting the specified queue.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
	}
}

// celeryTask is the task body. Celery reads this exact JSON structure.
type celeryTask struct {
	ID      string  `json:"id"`
	Task    string  `json:"task"`
	Args    []any   `json:"args"`
	Kwargs  any     `json:"kwargs"`
	Retries int     `json:"retries"`
	ETA     *string `json:"eta"`
}

// celeryMessage wraps a task for Redis transport.
type celeryMessage struct {
	Body            string         `json:"body"`
	ContentEncoding string         `json:"content-encoding"`
	ContentType     string         `json:"content-type"`
	Headers         map[string]any `json:"headers"`
	Properties      map[string]any `json:"properties"`
}

// PublishPreferenceChange serialises the change in the same shape as the
// ETL block of the notification email and pushes it onto the queue.
// It returns the task ID.
func (p *Publisher) PublishPreferenceChange(ctx context.Context, req models.PreferenceChangeRequest) (string, error) {
	req.RequestedAt = req.RequestedAt.UTC()
	eventJSON, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal preference event: %w", err)
	}

	taskID := uuid.New().String()

	task := celeryTask{
		ID:     taskID,
		Task:   PreferenceTask,
		Args:   []any{string(eventJSON)},
		Kwargs: map[string]any{},
	}

	taskBody, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("marshal celery task: %w", err)
	}

	msg := celeryMessage{
		Body:            string(taskBody),
		ContentEncoding: "utf-8",
		ContentType:     "application/json",
		Headers: map[string]any{
			"lang":    "py",
			"task":    PreferenceTask,
			"id":      taskID,
			"retries": 0,
		},
		Properties: map[string]any{
			"correlation_id": taskID,
			"delivery_mode":  2,
			"delivery_tag":   taskID,
			"body_encoding":  "utf-8",
			"delivery_info": map[string]string{
				"exchange":    p.queueName,
				"routing_key": p.queueName,
			},
		},
	}

	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal celery message: %w", err)
	}

	// Celery consumes with BRPOP, so producers LPUSH.
	if err := p.rdb.LPush(ctx, p.queueName, string(msgJSON)).Err(); err != nil {
		return "", fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Info("published preference event",
		"task_id", taskID,
		"delete_requested", req.DeleteDataRequested,
		"queue", p.queueName,
	)

	return taskID, nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
