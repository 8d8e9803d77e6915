package tasks

import "context"

// TaskSchedulerInterface is the scheduler surface used by main and the API.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// FeedProcessor runs channel sweeps; Orchestrator is the production implementation.
type FeedProcessor interface {
	ProcessFeeds(ctx context.Context, force bool) Summary
	ProcessFeed(ctx context.Context, channelID string) (Summary, error)
}

var _ FeedProcessor = (*Orchestrator)(nil)
