// Package queue wraps hibiken/asynq as the broker between the
// submission service and the import worker. The public surface is
// narrow on purpose: enqueue a process_import task by job id, and let
// cmd/worker register the corresponding handler.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TaskProcessImport = "import:process"

// ProcessImportPayload is the task body delivered to the worker.
type ProcessImportPayload struct {
	JobID string `json:"job_id"`
}

// Client enqueues import-processing tasks onto the broker.
type Client struct {
	client *asynq.Client
}

func NewClient(redisURL string) (*Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &Client{client: asynq.NewClient(opt)}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueProcessImport enqueues exactly one process_import(job_id)
// task. Errors here are BrokerUnavailable to the caller.
func (c *Client) EnqueueProcessImport(ctx context.Context, jobID string) error {
	payload, err := json.Marshal(ProcessImportPayload{JobID: jobID})
	if err != nil {
		return fmt.Errorf("marshaling task payload: %w", err)
	}

	task := asynq.NewTask(TaskProcessImport, payload)
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(5),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("enqueuing task: %w", err)
	}
	return nil
}

// Server runs the asynq consumer loop that dispatches process_import
// tasks to a Handler.
type Server struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

// Handler processes one process_import task for the given job id.
type Handler func(ctx context.Context, jobID string) error

// NewServer builds a consumer with the given concurrency, matching
// the ingestion core's worker-pool sizing policy.
func NewServer(redisURL string, concurrency int, handler Handler) (*Server, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	srv := asynq.NewServer(opt, asynq.Config{Concurrency: concurrency})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskProcessImport, func(ctx context.Context, t *asynq.Task) error {
		var payload ProcessImportPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshaling task payload: %w", err)
		}
		return handler(ctx, payload.JobID)
	})

	return &Server{srv: srv, mux: mux}, nil
}

func (s *Server) Run() error {
	return s.srv.Run(s.mux)
}

func (s *Server) Shutdown() {
	s.srv.Shutdown()
}
