package tasks

import (
	"context"
	"errors"
	"log/slog"
)

// ProcessFeedsTask runs one sweep over all due channels.
type ProcessFeedsTask struct {
	Task
	Force     bool
	processor FeedProcessor
}

func NewProcessFeedsTask(force bool, processor FeedProcessor) *ProcessFeedsTask {
	return &ProcessFeedsTask{
		Task:      NewTask(TaskTypeProcessFeeds, ""),
		Force:     force,
		processor: processor,
	}
}

func (t *ProcessFeedsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	summary := t.processor.ProcessFeeds(ctx, t.Force)

	failed := 0
	added := 0
	for _, r := range summary.Results {
		added += r.Added
		if !r.Success {
			failed++
		}
	}

	slog.Info("Task completed",
		"type", "ProcessFeeds",
		"duration", t.GetDuration(),
		"channels", len(summary.Results),
		"failed", failed,
		"added", added)

	if !summary.Success {
		return errors.New(summary.Message)
	}
	return nil
}

// ProcessChannelTask runs one channel outside the schedule.
type ProcessChannelTask struct {
	Task
	ChannelID string
	processor FeedProcessor
}

func NewProcessChannelTask(channelID string, processor FeedProcessor) *ProcessChannelTask {
	return &ProcessChannelTask{
		Task:      NewTask(TaskTypeProcessChannel, channelID),
		ChannelID: channelID,
		processor: processor,
	}
}

func (t *ProcessChannelTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	summary, err := t.processor.ProcessFeed(ctx, t.ChannelID)
	if err != nil {
		slog.Error("Task failed", "type", "ProcessChannel", "channel", t.ChannelID, "error", err)
		return err
	}

	added := 0
	for _, r := range summary.Results {
		added += r.Added
	}

	slog.Info("Task completed",
		"type", "ProcessChannel",
		"channel", t.ChannelID,
		"duration", t.GetDuration(),
		"added", added)

	return nil
}
